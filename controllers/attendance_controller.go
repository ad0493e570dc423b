package controller

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"sporty/services"
	"sporty/utils"
)

type AttendanceController struct {
	Attendance *services.AttendanceService
	Teams      *services.TeamService
	Logger     *logrus.Entry
}

func NewAttendanceController(attendance *services.AttendanceService, teams *services.TeamService, logger *logrus.Entry) *AttendanceController {
	return &AttendanceController{
		Attendance: attendance,
		Teams:      teams,
		Logger:     logger.WithField("component", "attendance_controller"),
	}
}

func (ac *AttendanceController) TeamStats(c *fiber.Ctx) error {
	stats, err := ac.Attendance.GetTeamStats(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(utils.SuccessResponse(stats))
}

// ExportCSV streams the attendance statistics as a CSV download.
func (ac *AttendanceController) ExportCSV(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := currentUser(c)

	var buf bytes.Buffer
	if err := ac.Attendance.ExportTeamStats(ctx, user, c.Params("id"), &buf); err != nil {
		return utils.HandleError(c, err)
	}

	filename := "attendance.csv"
	if team, _, err := ac.Teams.Get(ctx, user, c.Params("id")); err == nil {
		filename = "attendance-" + team.Slug + ".csv"
	}
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}
