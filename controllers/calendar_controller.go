package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"sporty/calendar"
	"sporty/services"
	"sporty/utils"
)

type CalendarController struct {
	Events      *services.EventService
	Teams       *services.TeamService
	Engine      *calendar.Engine
	Coordinator *calendar.Coordinator
	Now         services.Clock
	Logger      *logrus.Entry
}

func NewCalendarController(events *services.EventService, teams *services.TeamService, engine *calendar.Engine, coordinator *calendar.Coordinator, now services.Clock, logger *logrus.Entry) *CalendarController {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &CalendarController{
		Events:      events,
		Teams:       teams,
		Engine:      engine,
		Coordinator: coordinator,
		Now:         now,
		Logger:      logger.WithField("component", "calendar_controller"),
	}
}

type MoveRequest struct {
	TargetDate    string `json:"targetDate" validate:"required"`
	TargetMinutes *int   `json:"targetMinutes"`
}

type ResizeRequest struct {
	EndAt time.Time `json:"endAt"`
}

// anchor reads ?date=, defaulting to today in the display zone.
func (cc *CalendarController) anchor(c *fiber.Ctx) (time.Time, error) {
	date, err := parseDate("date", c.Query("date"), cc.Engine.Config().Location)
	if err != nil {
		return time.Time{}, err
	}
	if date.IsZero() {
		return cc.Engine.Today(cc.Now()), nil
	}
	return date, nil
}

func (cc *CalendarController) project(c *fiber.Ctx, teamID string) error {
	view, err := calendar.ParseView(c.Query("view"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	anchor, err := cc.anchor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	r := cc.Engine.VisibleRange(anchor, view)
	events, err := cc.Events.ListInRange(c.UserContext(), currentUser(c), teamID, r.Start, r.End)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(cc.Engine.Project(events, anchor, view)))
}

// TeamCalendar projects one team's events (?view=&date=).
func (cc *CalendarController) TeamCalendar(c *fiber.Ctx) error {
	return cc.project(c, c.Params("id"))
}

// MyCalendar projects the events of every team the caller belongs to.
func (cc *CalendarController) MyCalendar(c *fiber.Ctx) error {
	return cc.project(c, "")
}

// TeamDay lists every event touching ?date=, backing the "+N more" popover.
func (cc *CalendarController) TeamDay(c *fiber.Ctx) error {
	day, err := cc.anchor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	r := cc.Engine.VisibleRange(day, calendar.ViewDay)
	events, err := cc.Events.ListInRange(c.UserContext(), currentUser(c), c.Params("id"), r.Start, r.End)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(cc.Engine.ExpandDay(events, day)))
}

// ExportICS serves the team calendar as an iCalendar feed.
func (cc *CalendarController) ExportICS(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := currentUser(c)

	team, _, err := cc.Teams.Get(ctx, user, c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	events, err := cc.Events.ListByTeam(ctx, user, team.ID, services.FilterAll)
	if err != nil {
		return utils.HandleError(c, err)
	}

	c.Attachment(team.Slug + ".ics")
	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	return c.SendString(calendar.ExportICS(team, events, cc.Now()))
}

// MoveEvent commits a drop of an event onto a calendar cell.
func (cc *CalendarController) MoveEvent(c *fiber.Ctx) error {
	var req MoveRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}
	date, err := parseDate("targetDate", req.TargetDate, cc.Engine.Config().Location)
	if err != nil {
		return utils.HandleError(c, err)
	}

	confirmation, err := cc.Coordinator.Move(c.UserContext(), currentUser(c), c.Params("id"), calendar.DropTarget{
		Date:    date,
		Minutes: req.TargetMinutes,
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(confirmation))
}

// ResizeEvent commits a new end time for an event.
func (cc *CalendarController) ResizeEvent(c *fiber.Ctx) error {
	var req ResizeRequest
	if err := parseBody(c, &req); err != nil {
		return utils.HandleError(c, err)
	}

	confirmation, err := cc.Coordinator.Resize(c.UserContext(), currentUser(c), c.Params("id"), req.EndAt)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(confirmation))
}
