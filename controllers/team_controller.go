package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"sporty/services"
	"sporty/utils"
)

type TeamController struct {
	Teams  *services.TeamService
	Logger *logrus.Entry
}

func NewTeamController(teams *services.TeamService, logger *logrus.Entry) *TeamController {
	return &TeamController{
		Teams:  teams,
		Logger: logger.WithField("component", "team_controller"),
	}
}

type TeamRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Slug string `json:"slug" validate:"omitempty,max=100"`
}

func (tc *TeamController) ListTeams(c *fiber.Ctx) error {
	teams, err := tc.Teams.List(c.UserContext())
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(teams))
}

// GetTeam returns the team together with the caller's role on it.
func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	team, role, err := tc.Teams.Get(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"team": team,
		"role": role,
	}))
}

func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	var req TeamRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}

	team, err := tc.Teams.Create(c.UserContext(), currentUser(c), services.TeamInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(team))
}

func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	var req TeamRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}

	team, err := tc.Teams.Update(c.UserContext(), currentUser(c), c.Params("id"), services.TeamInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(team))
}

// DeleteTeam removes an empty team once ?confirm= repeats its name.
func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	if err := tc.Teams.Delete(c.UserContext(), currentUser(c), c.Params("id"), c.Query("confirm")); err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Team deleted",
	})
}
