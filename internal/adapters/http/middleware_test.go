package httpadapter

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddlewareGeneratesAndEchoes(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analytics", nil))
	if seen == "" {
		t.Fatalf("expected a generated request id in context")
	}
	if got := rec.Header().Get(requestIDHeader); got != seen {
		t.Fatalf("response header %q does not match context id %q", got, seen)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/analytics", nil)
	req.Header.Set(requestIDHeader, "req-abc")
	handler.ServeHTTP(rec, req)
	if seen != "req-abc" {
		t.Fatalf("caller-supplied id not propagated, got %q", seen)
	}
}

func TestAccessLogSkipsHealthProbes(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := accessLogMiddleware(log, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if buf.Len() != 0 {
		t.Fatalf("health probe must not be logged, got %s", buf.String())
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/documents?page=2", nil))
	line := buf.String()
	if !strings.Contains(line, "http_request") || !strings.Contains(line, `"query":"page=2"`) {
		t.Fatalf("unexpected access log line: %s", line)
	}
}
