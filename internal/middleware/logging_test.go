package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAccessLogWritesOneLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/guests", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	if !strings.Contains(line, `"path":"/api/guests"`) {
		t.Errorf("expected the path in the log line, got %s", line)
	}
	if !strings.Contains(line, `"status":418`) {
		t.Errorf("expected the handler's status in the log line, got %s", line)
	}
}

func TestAccessLogDefaultsTo200(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), `"status":200`) {
		t.Errorf("expected an implicit 200, got %s", buf.String())
	}
}

func TestMaxBodySize(t *testing.T) {
	t.Parallel()

	readErr := false
	handler := MaxBodySize(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			readErr = true
		}
	}))

	small := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny"))
	handler.ServeHTTP(httptest.NewRecorder(), small)
	if readErr {
		t.Error("expected a small body to be readable")
	}

	big := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	handler.ServeHTTP(httptest.NewRecorder(), big)
	if !readErr {
		t.Error("expected an oversized body to fail the read")
	}
}
