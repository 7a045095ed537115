package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Empty(t, TraceID(context.Background()))
}

func TestMiddlewareNamesSpanAfterRoute(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := chi.NewRouter()
	r.Use(Middleware("test"))
	r.Get("/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, TraceID(r.Context()))
		w.WriteHeader(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/42", nil))

	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /events/{id}", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
