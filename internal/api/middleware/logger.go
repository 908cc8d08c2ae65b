package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// quietPaths are polled constantly and only logged at debug level
var quietPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// Logger writes one record per request, leveled by outcome.
func Logger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		latency := time.Since(start)
		// the error handler has not written the response yet
		status := c.Response().StatusCode()
		if err != nil {
			status = statusFor(err)
		}

		logLevel := slog.LevelInfo
		switch {
		case status >= 500:
			logLevel = slog.LevelError
		case status >= 400:
			logLevel = slog.LevelWarn
		case quietPaths[c.Path()]:
			logLevel = slog.LevelDebug
		}

		requestID, _ := c.Locals("requestid").(string)

		attrs := []slog.Attr{
			slog.String("request_id", requestID),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.String("ip", c.IP()),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		logger.LogAttrs(c.Context(), logLevel, "http request", attrs...)

		return err
	}
}
