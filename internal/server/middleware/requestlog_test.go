package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/officewatch/internal/server/middleware"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := chimw.RequestID(middleware.RequestLogger(logger)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short"))
		}),
	))

	req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1/api/state", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var line struct {
		Method    string `json:"method"`
		Path      string `json:"path"`
		Status    int    `json:"status"`
		Bytes     int    `json:"bytes"`
		RequestID string `json:"request_id"`
		Message   string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, http.MethodGet, line.Method)
	assert.Equal(t, "/api/state", line.Path)
	assert.Equal(t, http.StatusTeapot, line.Status)
	assert.Equal(t, 5, line.Bytes)
	assert.NotEmpty(t, line.RequestID)
	assert.Equal(t, "request", line.Message)
}

func TestRequestLoggerWithoutRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := middleware.RequestLogger(logger)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1/healthz", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.NotContains(t, buf.String(), "request_id")
	assert.Contains(t, buf.String(), `"status":200`)
}
