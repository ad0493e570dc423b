package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"sporty/services"
	"sporty/utils"
)

type UserController struct {
	Users  *services.UserService
	Logger *logrus.Entry
}

func NewUserController(users *services.UserService, logger *logrus.Entry) *UserController {
	return &UserController{
		Users:  users,
		Logger: logger.WithField("component", "user_controller"),
	}
}

type UserRoleRequest struct {
	IsAdmin *bool `json:"isAdmin" validate:"required"`
}

// ListUsers pages through every account, filtered by ?search=.
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	page, err := uc.Users.List(c.UserContext(), currentUser(c), c.QueryInt("page", 1), c.Query("search"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(page))
}

func (uc *UserController) UpdateRole(c *fiber.Ctx) error {
	var req UserRoleRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}

	user, err := uc.Users.SetAdmin(c.UserContext(), currentUser(c), c.Params("id"), *req.IsAdmin)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(user))
}
