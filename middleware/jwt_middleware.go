package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"sporty/models"
	"sporty/repository"
	"sporty/utils"
)

// UserLookup loads the account behind a token.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Protected verifies the bearer token and loads the caller. Tokens come from
// the Authorization header, the access_token cookie, or, for websocket
// upgrades where browsers cannot set headers, the token query parameter.
func Protected(users UserLookup, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid authorization format", nil)
			}
			token = tokenParts[1]
		} else {
			token = c.Cookies("access_token")
			if token == "" {
				token = c.Query("token")
			}
			if token == "" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
			}
		}

		claims, err := utils.ParseJWTToken(token, secret)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
		}

		user, err := users.FindByID(c.UserContext(), claims.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "User not found", nil)
		}
		if err != nil {
			return utils.HandleError(c, err)
		}

		if !user.IsActive {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Account is not active", nil)
		}

		c.Locals("user", user)
		c.Locals("userID", user.ID)
		return c.Next()
	}
}

// CurrentUser returns the caller loaded by Protected.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// RequireSiteAdmin rejects callers that are not site administrators.
func RequireSiteAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Site administrator access required", nil)
		}
		return c.Next()
	}
}
