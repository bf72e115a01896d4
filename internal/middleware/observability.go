package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/observability"
)

// Observability records Prometheus metrics and a structured access log line
// for every API request. Non-API paths such as /metrics are skipped.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		if strings.HasPrefix(c.Path(), "/api/") {
			route := routeTemplate(c)
			method := c.Method()
			status := c.Response().StatusCode()
			duration := time.Since(start)

			observability.HTTPRequests().WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			observability.HTTPLatency().WithLabelValues(method, route).Observe(duration.Seconds())

			logRequest(logger, c, route, method, status, duration)
		}

		return err
	}
}

func logRequest(logger zerolog.Logger, c *fiber.Ctx, route, method string, status int, duration time.Duration) {
	event := logger.With().
		Str("correlation_id", GetCorrelationID(c)).
		Str("route", route).
		Str("method", method).
		Int("status", status).
		Float64("latency_ms", float64(duration)/float64(time.Millisecond)).
		Str("latency_bucket", latencyBucket(duration)).
		Logger()

	switch {
	case status >= fiber.StatusInternalServerError:
		event.Error().Msg("request failed")
	case status >= fiber.StatusBadRequest:
		event.Warn().Msg("request completed with client error")
	default:
		event.Info().Msg("request completed")
	}
}

// routeTemplate prefers the registered route pattern over the raw path so
// metric cardinality stays bounded.
func routeTemplate(c *fiber.Ctx) string {
	if c.Route() != nil && c.Route().Path != "" {
		return c.Route().Path
	}
	return c.Path()
}

func latencyBucket(duration time.Duration) string {
	bounds := []struct {
		limit time.Duration
		label string
	}{
		{25 * time.Millisecond, "<=25ms"},
		{50 * time.Millisecond, "<=50ms"},
		{100 * time.Millisecond, "<=100ms"},
		{250 * time.Millisecond, "<=250ms"},
		{500 * time.Millisecond, "<=500ms"},
	}
	for _, bound := range bounds {
		if duration <= bound.limit {
			return bound.label
		}
	}
	return ">500ms"
}
