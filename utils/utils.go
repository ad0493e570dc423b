package utils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"sporty/apperrors"
)

// GenerateRateLimitKey creates a unique key for rate limiting
func GenerateRateLimitKey(userID, resourceID, path string) string {
	return fmt.Sprintf("rl:%s:%s:%s", userID, resourceID, path)
}

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}

// ErrorResponse creates a standardized error response
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

// HandleError writes a domain error as JSON. Internal failures are logged and
// their cause is hidden from the client.
func HandleError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal("internal server error", err)
	}

	if appErr.Kind == apperrors.KindInternal {
		LogError("request_failed", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "internal server error",
			"code":    apperrors.KindInternal,
		})
	}

	response := fiber.Map{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Kind,
	}
	if appErr.Field != "" {
		response["field"] = appErr.Field
	}
	return c.Status(apperrors.HTTPStatus(appErr)).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}
