package json

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestWriteInternalErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalError(rec, logging.NewNop(), errors.New("mongo: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode(t, rec); resp.Message != "An unexpected error occurred" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestWriteRateLimitError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRateLimitError(rec, 3)

	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "3" {
		t.Fatalf("status = %d, retry-after = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if resp := decode(t, rec); resp.Error != "Too Many Requests" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestWriteNotFoundError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNotFoundError(rec, "room not found")

	if rec.Code != http.StatusNotFound || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode(t, rec); resp.Message != "room not found" {
		t.Errorf("message = %q", resp.Message)
	}
}
