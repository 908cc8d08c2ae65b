package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor returns the status ErrorHandler will answer err with.
func statusFor(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return fiber.StatusInternalServerError
}

func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID, _ := c.Locals("requestid").(string)

		// Fiber errors (404 routes, body limit, upgrade required)
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Error: ErrorBody{Code: "HTTP_ERROR", Message: fiberErr.Message},
			})
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= 500 {
				logger.Error("request failed",
					slog.String("request_id", requestID),
					slog.String("code", appErr.Code),
					slog.String("message", appErr.Message),
					slog.Any("error", appErr.Err),
				)
			}

			return c.Status(appErr.StatusCode).JSON(ErrorResponse{
				Error: ErrorBody{Code: appErr.Code, Message: appErr.Message},
			})
		}

		logger.Error("unhandled error",
			slog.String("request_id", requestID),
			slog.Any("error", err),
			slog.String("path", c.Path()),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: ErrorBody{Code: domain.ErrInternal.Code, Message: domain.ErrInternal.Message},
		})
	}
}
