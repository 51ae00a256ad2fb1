package api

import (
	"net/http"
	"time"

	"github.com/babylonlabs-io/simple-staking/internal/observability/metrics"
	"github.com/babylonlabs-io/simple-staking/internal/observability/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// tracingMiddleware attaches a trace id to the request logger, reusing the one
// sent by the caller when it is a valid uuid
func tracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.WithTraceID(r.Context(), r.Header.Get(tracing.TraceIDHeader))
		w.Header().Set(tracing.TraceIDHeader, tracing.TraceID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// the route pattern is only known once chi has routed the request
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHttpRequestDuration(time.Since(start), r.Method, route, status)
		log.Ctx(r.Context()).Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Msg("request served")
	})
}
