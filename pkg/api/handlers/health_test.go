package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct{ err error }

func (p *fakePinger) Ping(ctx context.Context) error { return p.err }

type fakeProber struct{ healthy bool }

func (p *fakeProber) HealthCheck(ctx context.Context) bool { return p.healthy }

func TestHealthLiveness(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"db down", errors.New("connection refused"), http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&fakePinger{err: tt.pingErr}, nil)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			h.Liveness(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d", tt.wantCode, rec.Code)
			}
			var body map[string]string
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body["status"] != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, body["status"])
			}
			// The body must stay non-disclosing.
			if len(body) != 1 {
				t.Errorf("Expected only a status field, got %v", body)
			}
		})
	}
}

func TestHealthWorker(t *testing.T) {
	h := NewHealthHandler(&fakePinger{}, &fakeProber{healthy: true})
	rec := httptest.NewRecorder()
	h.Worker(rec, httptest.NewRequest(http.MethodGet, "/health/worker", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with responsive worker, got %d", rec.Code)
	}

	h = NewHealthHandler(&fakePinger{}, &fakeProber{healthy: false})
	rec = httptest.NewRecorder()
	h.Worker(rec, httptest.NewRequest(http.MethodGet, "/health/worker", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 with unresponsive worker, got %d", rec.Code)
	}

	h = NewHealthHandler(&fakePinger{}, nil)
	rec = httptest.NewRecorder()
	h.Worker(rec, httptest.NewRequest(http.MethodGet, "/health/worker", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a broker, got %d", rec.Code)
	}
}

func TestCSRFIssue(t *testing.T) {
	h := NewCSRFHandler(false)

	req := httptest.NewRequest(http.MethodGet, "/csrf-token", nil)
	rec := httptest.NewRecorder()
	h.Issue(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	token := body["csrfToken"]
	if token == "" {
		t.Fatal("Expected a csrfToken in the body")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].Value != token {
		t.Error("Expected the cookie and body token to match")
	}
	if cookies[0].Secure {
		t.Error("Expected a non-Secure cookie outside production")
	}
}
