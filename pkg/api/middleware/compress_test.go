package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func payloadHandler(size int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(bytes.Repeat([]byte("a"), size))
	})
}

func TestCompression_LargeBodyIsCompressed(t *testing.T) {
	handler := Compression()(payloadHandler(4096))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Expected gzip encoding, got %q", got)
	}
	if rec.Body.Len() >= 4096 {
		t.Errorf("Expected compressed body smaller than input, got %d bytes", rec.Body.Len())
	}
}

func TestCompression_SmallBodyPassesThrough(t *testing.T) {
	handler := Compression()(payloadHandler(64))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got == "gzip" {
		t.Error("Expected body under the minimum size to stay uncompressed")
	}
	if rec.Body.Len() != 64 {
		t.Errorf("Expected 64 raw bytes, got %d", rec.Body.Len())
	}
}

func TestCompression_OptOutHeaderSkips(t *testing.T) {
	handler := Compression()(payloadHandler(4096))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set(CompressionOptOutHeader, "1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got == "gzip" {
		t.Error("Expected opt-out request to stay uncompressed")
	}
	if rec.Body.Len() != 4096 {
		t.Errorf("Expected 4096 raw bytes, got %d", rec.Body.Len())
	}
}
