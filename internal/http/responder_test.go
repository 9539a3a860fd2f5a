package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/court-reservations/internal/application"
)

func TestResponderHandleServiceError(t *testing.T) {
	r := newResponder(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &application.ValidationError{FieldErrors: map[string]string{"court_id": "court_id is required"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", fmt.Errorf("book: %w", &application.ConflictError{CourtID: 1, ConflictingIDs: []int64{3, 9}}), http.StatusConflict, "RESERVATION_CONFLICT"},
		{"duplicate", application.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{"event full", application.ErrEventFull, http.StatusConflict, "EVENT_FULL"},
		{"credentials", application.ErrInvalidCredentials, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS"},
		{"disabled", application.ErrAccountDisabled, http.StatusUnauthorized, "AUTH_ACCOUNT_DISABLED"},
		{"expired", application.ErrSessionExpired, http.StatusUnauthorized, "AUTH_SESSION_EXPIRED"},
		{"forbidden", application.ErrUnauthorized, http.StatusForbidden, "AUTH_FORBIDDEN"},
		{"not found", application.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"storage", &application.StorageError{Op: "insert", Err: errors.New("disk full")}, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.handleServiceError(context.Background(), rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.ErrorCode != tt.wantCode {
				t.Fatalf("expected error code %s, got %s", tt.wantCode, body.ErrorCode)
			}
		})
	}

	t.Run("conflict body lists ids", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.handleServiceError(context.Background(), rec, &application.ConflictError{CourtID: 1, ConflictingIDs: []int64{3, 9}})

		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		ids, ok := body["conflicting_ids"].([]any)
		if !ok || len(ids) != 2 || ids[0] != float64(3) || ids[1] != float64(9) {
			t.Fatalf("unexpected conflicting_ids: %v", body["conflicting_ids"])
		}
	})

	t.Run("validation messages are localized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.handleServiceError(context.Background(), rec, &application.ValidationError{FieldErrors: map[string]string{
			"password": "password must be at least 8 characters",
			"day":      msgInvalidDay,
		}})

		var body errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body.Errors["password"] != "パスワードは 8 文字以上で指定してください。" {
			t.Fatalf("unexpected password message: %q", body.Errors["password"])
		}
		if body.Errors["day"] != "YYYY-MM-DD 形式の日付を指定してください。" {
			t.Fatalf("unexpected day message: %q", body.Errors["day"])
		}
	})
}

func TestResponderWriteJSONNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	newResponder(nil).writeJSON(context.Background(), rec, http.StatusNoContent, map[string]string{"ignored": "x"})

	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("expected empty 204, got %d %q", rec.Code, rec.Body.String())
	}
}
