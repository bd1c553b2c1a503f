package middleware

import (
	"time"

	"github.com/annel0/happy-builder/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// ContextTraceID - ключ gin.Context с идентификатором трассировки запроса
const ContextTraceID = "trace_id"

// slowRequest - запросы дольше этого пишутся как предупреждение
const slowRequest = 500 * time.Millisecond

// RequestLogger пишет одну строку на запрос в логгер компонента api.
// Trace-ID берётся из спана OpenTelemetry или генерируется и возвращается в X-Trace-Id.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.GetAPILogger()
	}
	return func(c *gin.Context) {
		traceID := uuid.NewString()
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		c.Set(ContextTraceID, traceID)
		c.Header("X-Trace-Id", traceID)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		line := "%s %s → %d %s %dB trace=%s"
		args := []interface{}{c.Request.Method, c.Request.URL.RequestURI(), status, latency.Round(time.Microsecond), c.Writer.Size(), traceID}
		if builder, ok := c.Get(ContextBuilderID); ok {
			line += " builder=%v"
			args = append(args, builder)
		}

		switch {
		case status >= 500:
			logger.Error("[HTTP] "+line, args...)
		case latency > slowRequest:
			logger.Warn("[HTTP] медленно: "+line, args...)
		case c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics":
			logger.Trace("[HTTP] "+line, args...)
		default:
			logger.Debug("[HTTP] "+line, args...)
		}
	}
}
