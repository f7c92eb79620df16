package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/phrazzld/coursework/internal/platform/logger"
)

const tracerName = "github.com/phrazzld/coursework/internal/api"

// RequestLogger starts a server span for each request and puts a logger
// carrying the request id (and trace id, when one is recorded) into the
// request context. It must run after chi's RequestID middleware.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	tracer := otel.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
				))
			defer span.End()

			log := base.With(slog.String("request_id", chimw.GetReqID(ctx)))
			if sc := span.SpanContext(); sc.HasTraceID() {
				log = log.With(slog.String("trace_id", sc.TraceID().String()))
			}

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r.WithContext(logger.WithLogger(ctx, log)))

			span.SetAttributes(attribute.Int("http.status_code", ww.Status()))
			log.Debug("request completed",
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(started)))
		})
	}
}
