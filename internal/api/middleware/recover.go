package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Locals("requestid").(string)
				logger.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("request_id", requestID),
					slog.String("path", c.Path()),
					slog.String("method", c.Method()),
					slog.String("stack", string(debug.Stack())),
				)
				err = domain.ErrInternal
			}
		}()
		return c.Next()
	}
}
