package errors

import (
	"github.com/gofiber/fiber/v2"
)

func RaiseError(context *fiber.Ctx, status int, message string, data any) error {
	return context.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    data})
}

func RaiseInternalServerError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusInternalServerError, "internal error", data)
}

func RaiseBadRequestError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusBadRequest, "bad request", data)
}

func RaiseNotFoundError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusNotFound, "resource not found", data)
}

// RaiseValidationError answers a rejected form. data carries whatever the
// page needs to render it again with the messages.
func RaiseValidationError(context *fiber.Ctx, data any) error {
	return RaiseError(context, fiber.StatusBadRequest, "incorrect input for booking parameters", data)
}

func RaiseTooManyRequestsError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusTooManyRequests, "too many requests", data)
}

func RaiseServiceUnavailableError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusServiceUnavailable, "service unavailable", data)
}
