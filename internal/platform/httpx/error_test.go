package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/velvra/api/internal/platform/requestctx"
)

func TestWriteErrorStampsContextIdentifiers(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "trace-abc"})

	rr := httptest.NewRecorder()
	WriteError(ctx, rr, NewError("cart_conflict", "cart has been modified", http.StatusConflict))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected JSON content type, got %q", got)
	}

	var body struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		Status    int    `json:"status"`
		RequestID string `json:"request_id"`
		TraceID   string `json:"trace_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body.Error != "cart_conflict" || body.Status != http.StatusConflict {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if body.RequestID != "req-123" {
		t.Fatalf("expected request id req-123, got %q", body.RequestID)
	}
	if body.TraceID != "trace-abc" {
		t.Fatalf("expected trace id trace-abc, got %q", body.TraceID)
	}
}

func TestWriteErrorOmitsAbsentIdentifiers(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(context.Background(), rr, Error{Code: "oops", Message: "broken"})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected zero status to default to 500, got %d", rr.Code)
	}
	raw := rr.Body.String()
	if strings.Contains(raw, "request_id") || strings.Contains(raw, "trace_id") {
		t.Fatalf("expected identifiers omitted, got %s", raw)
	}
}

func TestNewErrorClipsHostileInput(t *testing.T) {
	err := NewError("code", "line one\r\nline two", 0)
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("expected defaulted status, got %d", err.Status)
	}
	if strings.ContainsAny(err.Message, "\r\n") {
		t.Fatalf("expected newlines flattened, got %q", err.Message)
	}
	if got := NewError(strings.Repeat("x", 200), "", http.StatusBadRequest).Code; len(got) != 80 {
		t.Fatalf("expected code clipped to 80 runes, got %d", len(got))
	}
}
