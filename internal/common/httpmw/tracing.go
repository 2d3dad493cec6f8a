package httpmw

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// routeParams are path parameters recorded on request spans as dot.<name>.
var routeParams = []string{"jobId", "agentId", "packId"}

// Tracing starts a server span per request, continuing any W3C trace
// context the caller sent. The span is named after the matched route.
func Tracing(tp trace.TracerProvider, serverName string) gin.HandlerFunc {
	tracer := tp.Tracer(serverName)
	propagator := propagation.TraceContext{}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		parent := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(parent, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Request.Method),
				semconv.HTTPRouteKey.String(route),
			))
		defer span.End()

		for _, name := range routeParams {
			if v := c.Param(name); v != "" {
				span.SetAttributes(attribute.String("dot."+name, v))
			}
		}
		if reqID := c.GetHeader(RequestIDHeader); reqID != "" {
			span.SetAttributes(attribute.String("dot.request_id", reqID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
