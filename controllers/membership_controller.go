package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/models"
	"sporty/services"
	"sporty/utils"
)

type MembershipController struct {
	Memberships *services.MembershipService
	Logger      *logrus.Entry
}

func NewMembershipController(memberships *services.MembershipService, logger *logrus.Entry) *MembershipController {
	return &MembershipController{
		Memberships: memberships,
		Logger:      logger.WithField("component", "membership_controller"),
	}
}

type AddMemberRequest struct {
	UserID string          `json:"userId" validate:"required"`
	Role   models.TeamRole `json:"role" validate:"omitempty,team_role"`
}

type UpdateRoleRequest struct {
	Role models.TeamRole `json:"role" validate:"required,team_role"`
}

type SyncRequest struct {
	Token string `json:"token"`
}

// ListMembers pages through a team's roster (?page=&search=).
func (mc *MembershipController) ListMembers(c *fiber.Ctx) error {
	page, err := mc.Memberships.ListMembers(c.UserContext(), currentUser(c), c.Params("id"), c.QueryInt("page", 1), c.Query("search"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(page))
}

func (mc *MembershipController) AddMember(c *fiber.Ctx) error {
	var req AddMemberRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}

	member, err := mc.Memberships.AddMember(c.UserContext(), currentUser(c), c.Params("id"), req.UserID, req.Role)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(member))
}

func (mc *MembershipController) UpdateRole(c *fiber.Ctx) error {
	var req UpdateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}

	member, err := mc.Memberships.UpdateRole(c.UserContext(), currentUser(c), c.Params("id"), c.Params("membershipId"), req.Role)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(member))
}

func (mc *MembershipController) RemoveMember(c *fiber.Ctx) error {
	err := mc.Memberships.RemoveMember(c.UserContext(), currentUser(c), c.Params("id"), c.Params("membershipId"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Member removed",
	})
}

func (mc *MembershipController) MyTeams(c *fiber.Ctx) error {
	members, err := mc.Memberships.MyMemberships(c.UserContext(), currentUser(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(members))
}

// Sync mirrors the caller's memberships from the membership service. The
// token is read from X-Membership-Token, falling back to the JSON body.
func (mc *MembershipController) Sync(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Get("X-Membership-Token"))
	if token == "" {
		var req SyncRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return utils.HandleError(c, apperrors.BadRequest("Invalid request body"))
			}
		}
		token = strings.TrimSpace(req.Token)
	}
	if token == "" {
		return utils.HandleError(c, apperrors.Invalid("token", "membership token is required"))
	}

	result, err := mc.Memberships.Sync(c.UserContext(), currentUser(c), token)
	if err != nil {
		return utils.HandleError(c, err)
	}
	mc.Logger.WithFields(logrus.Fields{
		"user_id": currentUser(c).ID,
		"created": result.Created,
		"updated": result.Updated,
	}).Info("memberships synced")
	return c.JSON(utils.SuccessResponse(result))
}
