package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

func TestHTTPStatusFromCode(t *testing.T) {
	tests := []struct {
		name string
		code apperrors.ErrorCode
		want int
	}{
		{"invalid request", apperrors.ErrCodeInvalidRequest, http.StatusBadRequest},
		{"unknown option", apperrors.ErrCodeUnknownOption, http.StatusBadRequest},
		{"not found", apperrors.ErrCodeNotFound, http.StatusNotFound},
		{"method not allowed", apperrors.ErrCodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{"version conflict", apperrors.ErrCodeVersionConflict, http.StatusConflict},
		{"dependency cycle", apperrors.ErrCodeDependencyCycle, http.StatusUnprocessableEntity},
		{"recipe evaluation", apperrors.ErrCodeRecipeEvaluation, http.StatusUnprocessableEntity},
		{"rate limit", apperrors.ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{"timeout", apperrors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{"artifact staging", apperrors.ErrCodeArtifactStaging, http.StatusInternalServerError},
		{"internal", apperrors.ErrCodeInternal, http.StatusInternalServerError},
		{"unknown defaults to internal", apperrors.ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusFromCode(tt.code); got != tt.want {
				t.Fatalf("HTTPStatusFromCode(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestRetryableFromCode(t *testing.T) {
	tests := []struct {
		code apperrors.ErrorCode
		want bool
	}{
		{apperrors.ErrCodeInvalidRequest, false},
		{apperrors.ErrCodeNotFound, false},
		{apperrors.ErrCodeVersionConflict, false},
		{apperrors.ErrCodeDependencyCycle, false},
		{apperrors.ErrCodeTimeout, true},
		{apperrors.ErrCodeRateLimitExceeded, true},
		{apperrors.ErrCodeInternal, true},
		{apperrors.ErrorCode("SOMETHING_ELSE"), false},
	}

	for _, tt := range tests {
		if got := retryableFromCode(tt.code); got != tt.want {
			t.Errorf("retryableFromCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestMergeDetails(t *testing.T) {
	t.Run("both empty returns nil", func(t *testing.T) {
		if got := mergeDetails(nil, nil); got != nil {
			t.Fatalf("expected nil, got %#v", got)
		}
		if got := mergeDetails(map[string]any{}, map[string]any{}); got != nil {
			t.Fatalf("expected nil, got %#v", got)
		}
	})

	t.Run("merges and second overwrites", func(t *testing.T) {
		got := mergeDetails(map[string]any{"a": 1, "shared": "old"}, map[string]any{"b": 2, "shared": "new"})
		if got["a"].(int) != 1 || got["b"].(int) != 2 {
			t.Fatalf("unexpected merge result %#v", got)
		}
		if got["shared"].(string) != "new" {
			t.Fatalf("expected shared to be overwritten to 'new', got %#v", got["shared"])
		}
	})
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), contextKeyRequestID, "req-123"))
	w := httptest.NewRecorder()

	WriteError(w, req, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "bad request", false, map[string]any{"k": "v"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Code != string(apperrors.ErrCodeInvalidRequest) {
		t.Errorf("code = %q", resp.Code)
	}
	if resp.RequestID != "req-123" {
		t.Errorf("requestId = %q, want req-123", resp.RequestID)
	}
	if resp.Details["k"] != "v" {
		t.Errorf("details = %#v", resp.Details)
	}
	if resp.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
}

func TestWriteErrorFromErr(t *testing.T) {
	t.Run("structured error", func(t *testing.T) {
		err := apperrors.NewWithContext(apperrors.ErrCodeVersionConflict, "zlib requested at two versions",
			map[string]any{apperrors.ContextNode: "zlib"})
		req := httptest.NewRequest(http.MethodPost, "/v1/graph", nil)
		w := httptest.NewRecorder()

		WriteErrorFromErr(w, req, err, "", map[string]any{"root": "app/1.0"})

		if w.Code != http.StatusConflict {
			t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Message != "zlib requested at two versions" {
			t.Errorf("message = %q", resp.Message)
		}
		if resp.Details[apperrors.ContextNode] != "zlib" || resp.Details["root"] != "app/1.0" {
			t.Errorf("details = %#v", resp.Details)
		}
		if resp.Retryable {
			t.Error("version conflicts are not retryable")
		}
		if resp.RequestID == "" {
			t.Error("expected generated request ID")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/graph", nil)
		w := httptest.NewRecorder()

		WriteErrorFromErr(w, req, errors.New("boom"), "", nil)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Code != string(apperrors.ErrCodeInternal) || resp.Details["error"] != "boom" {
			t.Errorf("unexpected response %#v", resp)
		}
	})
}
