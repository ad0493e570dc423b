package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"sporty/models"
	"sporty/services"
	"sporty/utils"
)

type EventController struct {
	Events *services.EventService
	Logger *logrus.Entry
}

func NewEventController(events *services.EventService, logger *logrus.Entry) *EventController {
	return &EventController{
		Events: events,
		Logger: logger.WithField("component", "event_controller"),
	}
}

type EventRequest struct {
	Name                 string           `json:"name" validate:"required,max=200"`
	Type                 models.EventType `json:"type" validate:"omitempty,event_type"`
	StartAt              time.Time        `json:"startAt"`
	EndAt                *time.Time       `json:"endAt"`
	Location             *string          `json:"location" validate:"omitempty,max=200"`
	Note                 *string          `json:"note" validate:"omitempty,max=2000"`
	RegistrationDeadline *time.Time       `json:"registrationDeadline"`
}

func (r EventRequest) input() services.EventInput {
	in := services.EventInput{
		Name:                 r.Name,
		Type:                 r.Type,
		StartAt:              r.StartAt,
		Location:             r.Location,
		Note:                 r.Note,
		RegistrationDeadline: r.RegistrationDeadline,
	}
	if r.EndAt != nil {
		in.EndAt = *r.EndAt
	}
	return in
}

// ListTeamEvents returns a team's events, filtered by ?filter=all|ongoing|past.
func (ec *EventController) ListTeamEvents(c *fiber.Ctx) error {
	filter := services.EventFilter(c.Query("filter", string(services.FilterAll)))
	events, err := ec.Events.ListByTeam(c.UserContext(), currentUser(c), c.Params("id"), filter)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(events))
}

func (ec *EventController) CreateEvent(c *fiber.Ctx) error {
	var req EventRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}

	event, err := ec.Events.Create(c.UserContext(), currentUser(c), c.Params("id"), req.input())
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(event))
}

func (ec *EventController) GetEvent(c *fiber.Ctx) error {
	event, err := ec.Events.Get(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(event))
}

func (ec *EventController) UpdateEvent(c *fiber.Ctx) error {
	var req EventRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}

	event, err := ec.Events.Update(c.UserContext(), currentUser(c), c.Params("id"), req.input())
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(event))
}

// DeleteEvent removes an event once ?confirm= repeats its name.
func (ec *EventController) DeleteEvent(c *fiber.Ctx) error {
	if err := ec.Events.Delete(c.UserContext(), currentUser(c), c.Params("id"), c.Query("confirm")); err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Event deleted",
	})
}

func (ec *EventController) NotifyUnattended(c *fiber.Ctx) error {
	queued, err := ec.Events.NotifyUnattended(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(utils.SuccessResponse(fiber.Map{"queued": queued}))
}

// ListUnanswered returns the caller's upcoming events without an answer.
func (ec *EventController) ListUnanswered(c *fiber.Ctx) error {
	events, err := ec.Events.ListUnanswered(c.UserContext(), currentUser(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(events))
}
