package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"sporty/apperrors"
	"sporty/models"
	"sporty/utils"
)

// currentUser returns the caller set by middleware.Protected.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// parseBody decodes the JSON body into req and runs its validate tags.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.BadRequest("Invalid request body")
	}
	return utils.ValidateStruct(req)
}

// parseDate reads a calendar date (YYYY-MM-DD) in loc. An empty value yields
// the zero time.
func parseDate(field, value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, apperrors.Invalid(field, field+" must be a date formatted YYYY-MM-DD")
	}
	return t, nil
}
