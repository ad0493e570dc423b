package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"sporty/models"
	"sporty/services"
	"sporty/utils"
)

type RegistrationController struct {
	Registrations *services.RegistrationService
	Attendance    *services.AttendanceService
	Logger        *logrus.Entry
}

func NewRegistrationController(registrations *services.RegistrationService, attendance *services.AttendanceService, logger *logrus.Entry) *RegistrationController {
	return &RegistrationController{
		Registrations: registrations,
		Attendance:    attendance,
		Logger:        logger.WithField("component", "registration_controller"),
	}
}

type RegistrationRequest struct {
	Type    models.RegistrationType `json:"type" validate:"required,registration_type"`
	Comment *string                 `json:"comment" validate:"omitempty,max=500"`
}

type AdminRegistrationRequest struct {
	UserID  string                  `json:"userId" validate:"required"`
	Type    models.RegistrationType `json:"type" validate:"required,registration_type"`
	Comment *string                 `json:"comment" validate:"omitempty,max=500"`
}

// Register records or replaces the caller's answer for an event.
func (rc *RegistrationController) Register(c *fiber.Ctx) error {
	var req RegistrationRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}

	reg, err := rc.Registrations.Upsert(c.UserContext(), currentUser(c), c.Params("id"), req.Type, req.Comment)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(services.NewRegistrationEntry(*reg)))
}

// AdminUpdate sets another member's answer regardless of the deadline.
func (rc *RegistrationController) AdminUpdate(c *fiber.Ctx) error {
	var req AdminRegistrationRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}

	reg, err := rc.Registrations.AdminUpdate(c.UserContext(), currentUser(c), req.UserID, c.Params("id"), req.Type, req.Comment)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(services.NewRegistrationEntry(*reg)))
}

func (rc *RegistrationController) Delete(c *fiber.Ctx) error {
	if err := rc.Registrations.Delete(c.UserContext(), currentUser(c), c.Params("id")); err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Registration deleted",
	})
}

// GetMine returns the caller's registration, or null when there is none.
func (rc *RegistrationController) GetMine(c *fiber.Ctx) error {
	reg, err := rc.Registrations.GetMine(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	if reg == nil {
		return c.JSON(utils.SuccessResponse(nil))
	}
	return c.JSON(utils.SuccessResponse(services.NewRegistrationEntry(*reg)))
}

func (rc *RegistrationController) List(c *fiber.Ctx) error {
	entries, err := rc.Registrations.ListByEvent(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(entries))
}

func (rc *RegistrationController) Counts(c *fiber.Ctx) error {
	counts, err := rc.Attendance.GetCounts(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(counts))
}

func (rc *RegistrationController) NonResponded(c *fiber.Ctx) error {
	missing, err := rc.Attendance.GetNonResponded(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(missing))
}
