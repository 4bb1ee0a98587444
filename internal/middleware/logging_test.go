package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoggingInterceptor(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantText  string
	}{
		{name: "ok", wantLevel: "level=INFO", wantText: "RPC ok"},
		{name: "client error", err: connect.NewError(connect.CodeNotFound, errors.New("account not found")), wantLevel: "level=WARN", wantText: "code=not_found"},
		{name: "internal error", err: connect.NewError(connect.CodeInternal, errors.New("disk full")), wantLevel: "level=ERROR", wantText: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
				return nil, tt.err
			}

			_, err := LoggingInterceptor()(next)(context.Background(), connect.NewRequest(&struct{}{}))
			if !errors.Is(err, tt.err) {
				t.Errorf("interceptor changed error: got %v, want %v", err, tt.err)
			}

			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) || !strings.Contains(out, tt.wantText) {
				t.Errorf("unexpected log output: %q", out)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	buf := captureLogs(t)
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/splitwallet.v1.LedgerService/GetBalance", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected status %d, got %d", http.StatusTeapot, rec.Code)
	}
	if out := buf.String(); !strings.Contains(out, "status=418") || !strings.Contains(out, "GetBalance") {
		t.Errorf("unexpected log output: %q", out)
	}
}
