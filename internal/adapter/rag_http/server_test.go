package rag_http_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rag-governor/internal/adapter/rag_http"
	"rag-governor/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewServer_RoutesAndMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	pipeline, holder := newPipeline(t)
	handler := rag_http.NewHandler(pipeline, holder, testLogger())
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("rag_index_ready 1\n"))
	})

	e := rag_http.NewServer(handler, rag_http.ServerOptions{
		ServiceName:    "rag-governor-test",
		TracerProvider: tp,
		CORSOrigins:    []string{"http://ui.test"},
		Metrics:        metrics,
		Logger:         testLogger(),
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "rag_index_ready")
	})

	t.Run("query carries request id and cors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/query?variant=A&k=2", strings.NewReader(`{"question":"privacy contact"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderXRequestID, "req-42")
		req.Header.Set(echo.HeaderOrigin, "http://ui.test")
		rec := httptest.NewRecorder()

		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))
		assert.Equal(t, "http://ui.test", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})

	t.Run("spans are recorded", func(t *testing.T) {
		assert.NotEmpty(t, recorder.Ended())
	})
}

func TestNewServer_WithoutTracingOrMetrics(t *testing.T) {
	handler := rag_http.NewHandler(&stubAnswerUsecase{}, usecase.NewIndexHolder(nil), testLogger())
	e := rag_http.NewServer(handler, rag_http.ServerOptions{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
