package apistub

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareStatusRecorder(t *testing.T) {
	recorder := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: recorder}

	_, _ = sr.Write([]byte("ok"))
	if sr.status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", sr.status)
	}

	recorder = httptest.NewRecorder()
	sr = &statusRecorder{ResponseWriter: recorder}
	sr.WriteHeader(http.StatusNotFound)
	if sr.status != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", sr.status)
	}
}

func TestMiddlewareLoggerPanic(t *testing.T) {
	var out bytes.Buffer
	s := &Server{Logger: slog.New(slog.NewJSONHandler(&out, nil))}

	handler := s.MiddlewareLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Internal server error") {
		t.Fatalf("expected error body, got %q", recorder.Body.String())
	}
	if !strings.Contains(out.String(), `"level":"ERROR"`) || !strings.Contains(out.String(), "boom") {
		t.Fatalf("expected error record with panic, got %q", out.String())
	}
}

func TestMiddlewareLoggerEchoesRequestID(t *testing.T) {
	var out bytes.Buffer
	s := &Server{Logger: slog.New(slog.NewJSONHandler(&out, nil))}

	handler := s.MiddlewareLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	request.Header.Set("X-Request-Id", "req-1")
	handler.ServeHTTP(recorder, request)

	if recorder.Header().Get("X-Request-Id") != "req-1" {
		t.Fatalf("expected request id echoed")
	}
	if !strings.Contains(out.String(), `"request_id":"req-1"`) || !strings.Contains(out.String(), `"status":418`) {
		t.Fatalf("unexpected log record %q", out.String())
	}
}
