package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	controller "sporty/controllers"
	"sporty/middleware"
	"sporty/repository"
)

// Handlers bundles the controllers and guards the route table mounts.
type Handlers struct {
	Users            repository.UserRepository
	JWTSecret        string
	NotifyRateLimit  int
	RateLimitStorage fiber.Storage

	Events        *controller.EventController
	Registrations *controller.RegistrationController
	Teams         *controller.TeamController
	Memberships   *controller.MembershipController
	Attendance    *controller.AttendanceController
	Calendar      *controller.CalendarController
	Notifications *controller.NotificationController
	Accounts      *controller.UserController
	Hub           *controller.Hub
	Health        *controller.HealthController
}

func SetupRoutes(app *fiber.App, h Handlers, log *logrus.Entry) {
	if h.Health != nil {
		app.Get("/health", h.Health.Health)
	}

	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}), middleware.Protected(h.Users, h.JWTSecret))

	// Caller-scoped routes
	me := api.Group("/me")
	me.Get("/teams", h.Memberships.MyTeams)
	me.Get("/events/unanswered", h.Events.ListUnanswered)
	me.Post("/memberships/sync", h.Memberships.Sync)
	me.Get("/calendar", h.Calendar.MyCalendar)
	me.Get("/email-notifications", h.Notifications.EmailStatus)
	me.Put("/email-notifications", h.Notifications.UpdateEmailStatus)
	me.Post("/email-notifications/test", h.Notifications.SendTestEmail)

	// Web push routes
	push := api.Group("/push")
	push.Get("/status", h.Notifications.PushStatus)
	push.Post("/subscribe", h.Notifications.Subscribe)
	push.Post("/unsubscribe", h.Notifications.Unsubscribe)
	push.Post("/test", h.Notifications.SendTestPush)

	// Site administration
	users := api.Group("/users", middleware.RequireSiteAdmin())
	users.Get("/", h.Accounts.ListUsers)
	users.Put("/:id/role", h.Accounts.UpdateRole)

	// Team routes
	teams := api.Group("/teams")
	teams.Get("/", h.Teams.ListTeams)
	teams.Post("/", middleware.RequireSiteAdmin(), h.Teams.CreateTeam)
	teams.Get("/:id", h.Teams.GetTeam)
	teams.Put("/:id", middleware.RequireSiteAdmin(), h.Teams.UpdateTeam)
	teams.Delete("/:id", middleware.RequireSiteAdmin(), h.Teams.DeleteTeam)

	teams.Get("/:id/members", h.Memberships.ListMembers)
	teams.Post("/:id/members", h.Memberships.AddMember)
	teams.Put("/:id/members/:membershipId", h.Memberships.UpdateRole)
	teams.Delete("/:id/members/:membershipId", h.Memberships.RemoveMember)

	teams.Get("/:id/events", h.Events.ListTeamEvents)
	teams.Post("/:id/events", h.Events.CreateEvent)

	teams.Get("/:id/calendar.ics", h.Calendar.ExportICS)
	teams.Get("/:id/calendar/day", h.Calendar.TeamDay)
	teams.Get("/:id/calendar", h.Calendar.TeamCalendar)

	teams.Get("/:id/attendance.csv", h.Attendance.ExportCSV)
	teams.Get("/:id/attendance", h.Attendance.TeamStats)

	// WebSocket route for live calendar updates
	teams.Get("/:id/ws", h.Hub.Upgrade, websocket.New(h.Hub.Serve))

	// Event routes
	events := api.Group("/events")
	events.Get("/:id", h.Events.GetEvent)
	events.Put("/:id", h.Events.UpdateEvent)
	events.Delete("/:id", h.Events.DeleteEvent)
	events.Post("/:id/move", h.Calendar.MoveEvent)
	events.Post("/:id/resize", h.Calendar.ResizeEvent)
	events.Post("/:id/notify-unattended", middleware.NotifyRateLimiter(h.NotifyRateLimit, h.RateLimitStorage), h.Events.NotifyUnattended)

	events.Get("/:id/registrations", h.Registrations.List)
	events.Get("/:id/registrations/me", h.Registrations.GetMine)
	events.Get("/:id/registrations/counts", h.Registrations.Counts)
	events.Get("/:id/registrations/non-responded", h.Registrations.NonResponded)
	events.Post("/:id/registrations", h.Registrations.Register)
	events.Put("/:id/registrations/admin", h.Registrations.AdminUpdate)

	api.Delete("/registrations/:id", h.Registrations.Delete)

	log.Info("routes initialized")
}
