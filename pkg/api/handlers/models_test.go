package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/geobim/geobim/pkg/storage/s3"
)

type fakeModelStorage struct {
	objects map[string][]byte
}

func (s *fakeModelStorage) Head(ctx context.Context, key string) (*s3.ObjectInfo, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, s3.ErrObjectNotFound
	}
	return &s3.ObjectInfo{Size: int64(len(data))}, nil
}

func (s *fakeModelStorage) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, 0, s3.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func modelsRouter(h *ModelsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/models/{filename}", h.Stream)
	r.Options("/models/{filename}", h.Preflight)
	return r
}

func TestModelsStream_HappyPath(t *testing.T) {
	storage := &fakeModelStorage{objects: map[string][]byte{
		"models/abc123.glb": []byte("glTF-binary-bytes"),
	}}
	h := NewModelsHandler(storage)

	req := httptest.NewRequest(http.MethodGet, "/models/abc123.glb", nil)
	rec := httptest.NewRecorder()
	modelsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "model/gltf-binary" {
		t.Errorf("Expected model/gltf-binary, got %s", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "17" {
		t.Errorf("Expected Content-Length 17, got %s", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=31536000" {
		t.Errorf("Expected immutable cache header, got %s", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected permissive CORS, got %q", got)
	}
	if rec.Body.String() != "glTF-binary-bytes" {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
}

func TestModelsStream_GltfContentType(t *testing.T) {
	storage := &fakeModelStorage{objects: map[string][]byte{
		"models/abc.gltf": []byte(`{"asset":{"version":"2.0"}}`),
	}}
	h := NewModelsHandler(storage)

	req := httptest.NewRequest(http.MethodGet, "/models/abc.gltf", nil)
	rec := httptest.NewRecorder()
	modelsRouter(h).ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); got != "model/gltf+json" {
		t.Errorf("Expected model/gltf+json, got %s", got)
	}
}

func TestModelsStream_RejectsInvalidFilename(t *testing.T) {
	h := NewModelsHandler(&fakeModelStorage{objects: map[string][]byte{}})

	for _, name := range []string{"..%2fsecret.glb", "UPPER.glb", "model.obj", "abc.glb.exe"} {
		req := httptest.NewRequest(http.MethodGet, "/models/"+name, nil)
		rec := httptest.NewRecorder()
		modelsRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %q, got %d", name, rec.Code)
		}
	}
}

func TestModelsStream_NotFound(t *testing.T) {
	h := NewModelsHandler(&fakeModelStorage{objects: map[string][]byte{}})

	req := httptest.NewRequest(http.MethodGet, "/models/abc123.glb", nil)
	rec := httptest.NewRecorder()
	modelsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}

func TestModelsPreflight(t *testing.T) {
	h := NewModelsHandler(&fakeModelStorage{objects: map[string][]byte{}})

	req := httptest.NewRequest(http.MethodOptions, "/models/abc123.glb", nil)
	rec := httptest.NewRecorder()
	modelsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected permissive CORS, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Expected GET, OPTIONS, got %q", got)
	}
}
