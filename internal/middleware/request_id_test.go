package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDGenerated(t *testing.T) {
	t.Parallel()

	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if captured == "" {
		t.Fatal("expected a request ID in the context")
	}
	if _, err := uuid.Parse(captured); err != nil {
		t.Errorf("expected a UUID, got %q", captured)
	}
	if w.Header().Get("X-Request-ID") != captured {
		t.Error("expected the ID to be echoed in the response header")
	}
}

func TestRequestIDReusesValidHeader(t *testing.T) {
	t.Parallel()

	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if captured != "client-id-42" {
		t.Errorf("expected the client ID to be reused, got %q", captured)
	}
}

func TestRequestIDRejectsInvalidHeader(t *testing.T) {
	t.Parallel()

	cases := []string{
		"has spaces",
		"has\nnewline",
		strings.Repeat("x", 129),
		"emoji-\U0001F600",
	}

	for _, bad := range cases {
		var captured string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", bad)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if captured == bad {
			t.Errorf("expected %q to be replaced", bad)
		}
		if _, err := uuid.Parse(captured); err != nil {
			t.Errorf("expected a generated UUID, got %q", captured)
		}
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty ID without the middleware, got %q", id)
	}
}
