package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

func newTestServer() *Server {
	return &Server{
		config:      NewConfig(),
		rateLimiter: rate.NewLimiter(100, 200),
	}
}

func TestRequestIDMiddleware_GeneratesNewID(t *testing.T) {
	s := newTestServer()

	var captured string
	handler := s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
		captured = RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if _, err := uuid.Parse(captured); err != nil {
		t.Errorf("expected valid UUID, got: %q", captured)
	}
	if rec.Header().Get("X-Request-Id") != captured {
		t.Errorf("expected X-Request-Id header to be %s, got %s", captured, rec.Header().Get("X-Request-Id"))
	}
}

func TestRequestIDMiddleware_UsesProvidedID(t *testing.T) {
	s := newTestServer()
	provided := "550e8400-e29b-41d4-a716-446655440000"

	var captured string
	handler := s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
		captured = RequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", provided)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if captured != provided {
		t.Errorf("expected request ID %s, got %s", provided, captured)
	}
}

func TestRequestIDMiddleware_ReplacesInvalidID(t *testing.T) {
	s := newTestServer()

	var captured string
	handler := s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
		captured = RequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if captured == "not-a-uuid" {
		t.Error("expected invalid request ID to be replaced")
	}
	if _, err := uuid.Parse(captured); err != nil {
		t.Errorf("expected valid UUID, got: %q", captured)
	}
}

func TestVersionMiddleware(t *testing.T) {
	s := newTestServer()

	var captured string
	handler := s.versionMiddleware(func(w http.ResponseWriter, r *http.Request) {
		captured = APIVersion(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Accept", "application/vnd.kiln.v1+json")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if captured != "v1" {
		t.Errorf("expected context version v1, got %q", captured)
	}
	if got := rec.Header().Get("X-API-Version"); got != "v1" {
		t.Errorf("expected X-API-Version v1, got %q", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer()
	s.rateLimiter = rate.NewLimiter(rate.Limit(0), 1)

	handler := s.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRecorder()
	handler(first, httptest.NewRequest(http.MethodGet, "/test", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", first.Code)
	}
	if first.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("expected X-RateLimit-Limit header")
	}

	second := httptest.NewRecorder()
	handler(second, httptest.NewRequest(http.MethodGet, "/test", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After 1, got %q", second.Header().Get("Retry-After"))
	}

	var resp ErrorResponse
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != string(apperrors.ErrCodeRateLimitExceeded) || !resp.Retryable {
		t.Errorf("unexpected rate limit response %#v", resp)
	}
}

func TestBodyLimitMiddleware(t *testing.T) {
	s := newTestServer()
	s.config.MaxBodyBytes = 8

	var readErr error
	handler := s.bodyLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("x", 64)))
	handler(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	if readErr == nil || !errors.As(readErr, &maxErr) {
		t.Fatalf("expected MaxBytesError, got %v", readErr)
	}
	if maxErr.Limit != 8 {
		t.Errorf("expected limit 8, got %d", maxErr.Limit)
	}
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	s := newTestServer()

	handler := s.panicRecoveryMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("recipe exploded")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != string(apperrors.ErrCodeInternal) {
		t.Errorf("expected INTERNAL, got %s", resp.Code)
	}
}

func TestWithMiddlewareChain(t *testing.T) {
	s := newTestServer()

	var requestID, version string
	handler := s.withMiddleware("/test", func(w http.ResponseWriter, r *http.Request) {
		requestID = RequestID(r.Context())
		version = APIVersion(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}
	if requestID == "" || rec.Header().Get("X-Request-Id") != requestID {
		t.Errorf("request ID not propagated: ctx=%q header=%q", requestID, rec.Header().Get("X-Request-Id"))
	}
	if version != DefaultAPIVersion {
		t.Errorf("expected default API version, got %q", version)
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK)
	if _, err := rw.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}

	if rw.Status() != http.StatusNotFound {
		t.Errorf("expected first status to stick, got %d", rw.Status())
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected recorder status 404, got %d", rec.Code)
	}
	if rw.Unwrap() != rec {
		t.Error("Unwrap should return the underlying writer")
	}
}
