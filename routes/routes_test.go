package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"sporty/cache"
	"sporty/calendar"
	controller "sporty/controllers"
	"sporty/models"
	"sporty/repository"
	"sporty/repository/sqlitetest"
	"sporty/routes"
	"sporty/services"
	"sporty/utils"
)

const secret = "test-secret"

type nopNotifier struct{}

func (nopNotifier) Enqueue(context.Context, services.Notification) bool { return true }

type env struct {
	t     *testing.T
	ctx   context.Context
	app   *fiber.App
	store *repository.Store
	team  *models.Team
	users map[string]*models.User
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := repository.New(sqlitetest.Open(t))
	log := quietLogger()
	c := cache.NewMemoryCache()
	now := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	teams := services.NewTeamService(store, c, log)
	hub := controller.NewHub(teams, log)
	events := services.NewEventService(store, c, nopNotifier{}, hub, now, "https://sporty.example.com", log)
	registrations := services.NewRegistrationService(store, c, time.Minute, hub, now, log)
	attendance := services.NewAttendanceService(store, c, time.Minute, log)
	memberships := services.NewMembershipService(store, nil, c, log)
	engine := calendar.NewEngine(calendar.DefaultConfig())
	coordinator := calendar.NewCoordinator(events, hub, time.UTC, log)

	app := fiber.New()
	routes.SetupRoutes(app, routes.Handlers{
		Users:           store.Users,
		JWTSecret:       secret,
		NotifyRateLimit: 1,
		Events:          controller.NewEventController(events, log),
		Registrations:   controller.NewRegistrationController(registrations, attendance, log),
		Teams:           controller.NewTeamController(teams, log),
		Memberships:     controller.NewMembershipController(memberships, log),
		Attendance:      controller.NewAttendanceController(attendance, teams, log),
		Calendar:        controller.NewCalendarController(events, teams, engine, coordinator, now, log),
		Notifications:   controller.NewNotificationController(services.NewNotificationService(store, nopNotifier{}, "vapid-public", "https://sporty.example.com", log), log),
		Accounts:        controller.NewUserController(services.NewUserService(store, log), log),
		Hub:             hub,
	}, log)

	e := &env{t: t, ctx: ctx, app: app, store: store, users: map[string]*models.User{}}
	e.team = &models.Team{Name: "Blue", Slug: "blue"}
	if err := store.Teams.Create(ctx, e.team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	return e
}

func (e *env) user(name string, role models.TeamRole, siteAdmin bool) *models.User {
	e.t.Helper()
	u := &models.User{Email: strings.ToLower(name) + "@example.com", Name: name, IsActive: true, IsAdmin: siteAdmin}
	if err := e.store.Users.Create(e.ctx, u); err != nil {
		e.t.Fatalf("create user: %v", err)
	}
	if role != "" {
		if err := e.store.Memberships.Create(e.ctx, &models.TeamMember{UserID: u.ID, TeamID: e.team.ID, Role: role}); err != nil {
			e.t.Fatalf("create membership: %v", err)
		}
	}
	e.users[name] = u
	return u
}

func (e *env) event(name string, start time.Time) *models.TeamEvent {
	e.t.Helper()
	ev := &models.TeamEvent{
		TeamID:    e.team.ID,
		Name:      name,
		EventType: models.EventTraining,
		StartAt:   start,
		EndAt:     start.Add(90 * time.Minute),
	}
	if err := e.store.Events.Create(e.ctx, ev); err != nil {
		e.t.Fatalf("create event: %v", err)
	}
	return ev
}

func (e *env) token(name string) string {
	e.t.Helper()
	token, err := utils.GenerateJWTToken(e.users[name].ID, secret, time.Hour)
	if err != nil {
		e.t.Fatalf("token: %v", err)
	}
	return token
}

type apiResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

// do sends a request as the named user; an empty name sends no token.
func (e *env) do(method, path, as string, body interface{}) (*http.Response, []byte) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(as))
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatal(err)
	}
	return resp, raw
}

func (e *env) api(method, path, as string, body interface{}) (int, apiResponse) {
	e.t.Helper()
	resp, raw := e.do(method, path, as, body)
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		e.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
	}
	return resp.StatusCode, out
}

func TestProtectedRejectsMissingOrBadToken(t *testing.T) {
	e := newEnv(t)

	if status, _ := e.api(http.MethodGet, "/api/v1/me/teams", "", nil); status != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", status)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/teams", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d", resp.StatusCode)
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	e := newEnv(t)
	e.user("Ada", models.RoleAdmin, false)
	e.user("Bo", models.RoleUser, false)
	e.user("Root", "", true)
	teamEvents := "/api/v1/teams/" + e.team.ID + "/events"

	cases := []struct {
		name   string
		method string
		path   string
		as     string
		body   interface{}
		status int
		code   string
		field  string
	}{
		{
			name: "missing event", method: http.MethodGet, path: "/api/v1/events/missing", as: "Ada",
			status: http.StatusNotFound, code: "NOT_FOUND",
		},
		{
			name: "member cannot create", method: http.MethodPost, path: teamEvents, as: "Bo",
			body:   map[string]interface{}{"name": "Practice", "startAt": "2025-06-03T18:00:00Z"},
			status: http.StatusForbidden, code: "FORBIDDEN",
		},
		{
			name: "end before start", method: http.MethodPost, path: teamEvents, as: "Ada",
			body: map[string]interface{}{
				"name":    "Practice",
				"startAt": "2025-06-03T18:00:00Z",
				"endAt":   "2025-06-03T17:00:00Z",
			},
			status: http.StatusBadRequest, code: "BAD_REQUEST", field: "endAt",
		},
		{
			name: "unknown event type", method: http.MethodPost, path: teamEvents, as: "Ada",
			body:   map[string]interface{}{"name": "Practice", "type": "PARTY", "startAt": "2025-06-03T18:00:00Z"},
			status: http.StatusBadRequest, code: "BAD_REQUEST", field: "type",
		},
		{
			name: "team with members", method: http.MethodDelete, path: "/api/v1/teams/" + e.team.ID + "?confirm=Blue", as: "Root",
			status: http.StatusConflict, code: "CONFLICT",
		},
		{
			name: "unknown filter", method: http.MethodGet, path: teamEvents + "?filter=upcoming", as: "Bo",
			status: http.StatusBadRequest, code: "BAD_REQUEST", field: "filter",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := e.api(tc.method, tc.path, tc.as, tc.body)
			if status != tc.status || resp.Code != tc.code || resp.Field != tc.field {
				t.Errorf("got %d %s field %q (%s), want %d %s field %q",
					status, resp.Code, resp.Field, resp.Error, tc.status, tc.code, tc.field)
			}
		})
	}

	if status, _ := e.api(http.MethodPost, "/api/v1/teams", "Ada", map[string]string{"name": "Red"}); status != http.StatusForbidden {
		t.Errorf("team create by team admin: status = %d", status)
	}
	status, resp := e.api(http.MethodPost, "/api/v1/teams", "Root", map[string]string{"name": "Red"})
	if status != http.StatusCreated || !resp.Success {
		t.Errorf("team create by site admin: %d %s", status, resp.Error)
	}
}

func TestAttendanceCSVEndpoint(t *testing.T) {
	e := newEnv(t)
	ada := e.user("Ada", models.RoleAdmin, false)
	e.user("Bo", models.RoleUser, false)
	ev := e.event("Practice", time.Date(2025, 5, 20, 18, 0, 0, 0, time.UTC))
	if _, err := e.store.Registrations.Upsert(e.ctx, ada.ID, ev.ID, models.Attending, nil); err != nil {
		t.Fatal(err)
	}
	path := "/api/v1/teams/" + e.team.ID + "/attendance.csv"

	resp, body := e.do(http.MethodGet, path, "Ada", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attendance-blue.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	want := "Navn,Antall deltakelser,Totalt arrangementer,Oppmøteprosent\n" +
		"Ada,1,1,100.0%\n" +
		"Bo,0,1,0.0%\n"
	if string(body) != want {
		t.Errorf("csv =\n%s\nwant\n%s", body, want)
	}

	if resp, _ := e.do(http.MethodGet, path, "Bo", nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("member export: status = %d", resp.StatusCode)
	}
}

func TestCalendarEndpoints(t *testing.T) {
	e := newEnv(t)
	e.user("Ada", models.RoleAdmin, false)
	e.user("Bo", models.RoleUser, false)
	ev := e.event("Practice", time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC))
	base := "/api/v1/teams/" + e.team.ID

	status, resp := e.api(http.MethodGet, base+"/calendar?view=week&date=2025-06-02", "Bo", nil)
	if status != http.StatusOK {
		t.Fatalf("week: %d %s", status, resp.Error)
	}
	var week struct {
		View string `json:"view"`
		Days []struct {
			Segments []json.RawMessage `json:"segments"`
		} `json:"days"`
	}
	if err := json.Unmarshal(resp.Data, &week); err != nil {
		t.Fatal(err)
	}
	if week.View != "week" || len(week.Days) != 7 {
		t.Errorf("projection = %s with %d days", week.View, len(week.Days))
	}

	if status, resp := e.api(http.MethodGet, base+"/calendar?view=year", "Bo", nil); status != http.StatusBadRequest || resp.Field != "view" {
		t.Errorf("bad view: %d field %q", status, resp.Field)
	}
	if status, resp := e.api(http.MethodGet, base+"/calendar?date=June", "Bo", nil); status != http.StatusBadRequest || resp.Field != "date" {
		t.Errorf("bad date: %d field %q", status, resp.Field)
	}

	ics, body := e.do(http.MethodGet, base+"/calendar.ics", "Bo", nil)
	if ics.StatusCode != http.StatusOK || !strings.HasPrefix(ics.Header.Get("Content-Type"), "text/calendar") {
		t.Errorf("ics: %d %s", ics.StatusCode, ics.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), "BEGIN:VCALENDAR") || !strings.Contains(string(body), "SUMMARY:Practice") {
		t.Errorf("ics body = %s", body)
	}

	move := "/api/v1/events/" + ev.ID + "/move"
	if status, _ := e.api(http.MethodPost, move, "Bo", map[string]interface{}{"targetDate": "2025-06-05"}); status != http.StatusForbidden {
		t.Errorf("member move: status = %d", status)
	}
	if status, resp := e.api(http.MethodPost, move, "Ada", map[string]interface{}{"targetDate": "2025-06-05", "targetMinutes": 7}); status != http.StatusBadRequest || resp.Field != "targetMinutes" {
		t.Errorf("off-grid move: %d field %q", status, resp.Field)
	}

	status, resp = e.api(http.MethodPost, move, "Ada", map[string]interface{}{"targetDate": "2025-06-05", "targetMinutes": 600})
	if status != http.StatusOK {
		t.Fatalf("move: %d %s", status, resp.Error)
	}
	var confirmation calendar.Confirmation
	if err := json.Unmarshal(resp.Data, &confirmation); err != nil {
		t.Fatal(err)
	}
	if confirmation.Message != `Event "Practice" moved to 5 Jun 2025` {
		t.Errorf("message = %q", confirmation.Message)
	}
	moved, err := e.store.Events.FindByID(e.ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !moved.StartAt.Equal(time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)) || moved.Duration() != 90*time.Minute {
		t.Errorf("stored = %v for %v", moved.StartAt, moved.Duration())
	}

	status, resp = e.api(http.MethodPost, "/api/v1/events/"+ev.ID+"/resize", "Ada", map[string]interface{}{"endAt": "2025-06-05T09:00:00Z"})
	if status != http.StatusBadRequest || resp.Field != "endAt" {
		t.Errorf("resize before start: %d field %q", status, resp.Field)
	}
}

func TestRegistrationFlow(t *testing.T) {
	e := newEnv(t)
	e.user("Ada", models.RoleAdmin, false)
	e.user("Bo", models.RoleUser, false)
	ev := e.event("Practice", time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC))
	base := "/api/v1/events/" + ev.ID + "/registrations"

	status, resp := e.api(http.MethodPost, base, "Bo", map[string]interface{}{"type": "NOT_ATTENDING"})
	if status != http.StatusBadRequest || resp.Field != "comment" {
		t.Errorf("missing comment: %d field %q", status, resp.Field)
	}
	status, resp = e.api(http.MethodPost, base, "Bo", map[string]interface{}{"type": "ATTENDING"})
	if status != http.StatusOK {
		t.Fatalf("register: %d %s", status, resp.Error)
	}
	var created map[string]interface{}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatal(err)
	}
	if created["userId"] != e.users["Bo"].ID || created["eventId"] != ev.ID || created["user_id"] != nil {
		t.Errorf("register response = %v", created)
	}
	if user, _ := created["user"].(map[string]interface{}); user["name"] != "Bo" {
		t.Errorf("register user = %v", created["user"])
	}

	_, resp = e.api(http.MethodGet, base, "Bo", nil)
	var listed []map[string]interface{}
	if err := json.Unmarshal(resp.Data, &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || len(listed[0]) != len(created) {
		t.Errorf("list entry = %v, register = %v", listed, created)
	}
	_, resp = e.api(http.MethodGet, base+"/me", "Bo", nil)
	var mine map[string]interface{}
	if err := json.Unmarshal(resp.Data, &mine); err != nil {
		t.Fatal(err)
	}
	if mine["id"] != created["id"] || mine["userId"] != e.users["Bo"].ID {
		t.Errorf("mine = %v", mine)
	}

	status, resp = e.api(http.MethodGet, base+"/counts", "Bo", nil)
	if status != http.StatusOK {
		t.Fatalf("counts: %d %s", status, resp.Error)
	}
	var counts services.Counts
	if err := json.Unmarshal(resp.Data, &counts); err != nil {
		t.Fatal(err)
	}
	if counts != (services.Counts{Attending: 1, NotAttending: 0, NotResponded: 1}) {
		t.Errorf("counts = %+v", counts)
	}

	status, resp = e.api(http.MethodGet, base+"/me", "Ada", nil)
	if status != http.StatusOK || string(resp.Data) != "null" {
		t.Errorf("no registration: %d %s", status, resp.Data)
	}
}

func TestNotificationSettingsEndpoints(t *testing.T) {
	e := newEnv(t)
	e.user("Bo", models.RoleUser, false)

	status, resp := e.api(http.MethodGet, "/api/v1/me/email-notifications", "Bo", nil)
	if status != http.StatusOK || string(resp.Data) != `{"emailNotificationsEnabled":true}` {
		t.Fatalf("status: %d %s", status, resp.Data)
	}
	if status, resp := e.api(http.MethodPut, "/api/v1/me/email-notifications", "Bo", map[string]interface{}{}); status != http.StatusBadRequest {
		t.Errorf("missing flag: %d %s", status, resp.Error)
	}
	if status, resp := e.api(http.MethodPut, "/api/v1/me/email-notifications", "Bo", map[string]bool{"emailNotificationsEnabled": false}); status != http.StatusOK {
		t.Fatalf("update: %d %s", status, resp.Error)
	}
	_, resp = e.api(http.MethodGet, "/api/v1/me/email-notifications", "Bo", nil)
	if string(resp.Data) != `{"emailNotificationsEnabled":false}` {
		t.Errorf("after update: %s", resp.Data)
	}
	if status, _ := e.api(http.MethodPost, "/api/v1/me/email-notifications/test", "Bo", nil); status != http.StatusAccepted {
		t.Errorf("test mail: status = %d", status)
	}

	sub := map[string]interface{}{
		"endpoint": "https://push.example.com/bo",
		"keys":     map[string]string{"p256dh": "key", "auth": "secret"},
	}
	if status, resp := e.api(http.MethodPost, "/api/v1/push/subscribe", "Bo", sub); status != http.StatusCreated {
		t.Fatalf("subscribe: %d %s", status, resp.Error)
	}
	status, resp = e.api(http.MethodGet, "/api/v1/push/status", "Bo", nil)
	var push services.PushStatus
	if err := json.Unmarshal(resp.Data, &push); err != nil || status != http.StatusOK {
		t.Fatalf("push status: %d %s", status, resp.Data)
	}
	if !push.Enabled || push.PublicKey != "vapid-public" || push.SubscriptionCount != 1 {
		t.Errorf("push status = %+v", push)
	}
	if status, _ := e.api(http.MethodPost, "/api/v1/push/test", "Bo", nil); status != http.StatusAccepted {
		t.Errorf("test push: status = %d", status)
	}
	if status, _ := e.api(http.MethodPost, "/api/v1/push/unsubscribe", "Bo", map[string]string{"endpoint": "https://push.example.com/bo"}); status != http.StatusOK {
		t.Errorf("unsubscribe: status = %d", status)
	}
	_, resp = e.api(http.MethodGet, "/api/v1/push/status", "Bo", nil)
	if err := json.Unmarshal(resp.Data, &push); err != nil || push.SubscriptionCount != 0 {
		t.Errorf("after unsubscribe: %s", resp.Data)
	}
}

func TestUserAdministrationEndpoints(t *testing.T) {
	e := newEnv(t)
	bo := e.user("Bo", models.RoleUser, false)
	root := e.user("Root", "", true)

	if status, _ := e.api(http.MethodGet, "/api/v1/users", "Bo", nil); status != http.StatusForbidden {
		t.Errorf("member listing users: status = %d", status)
	}

	status, resp := e.api(http.MethodGet, "/api/v1/users?search=bo", "Root", nil)
	if status != http.StatusOK {
		t.Fatalf("list: %d %s", status, resp.Error)
	}
	var page struct {
		Users []map[string]interface{} `json:"users"`
		Total int                      `json:"total"`
	}
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || len(page.Users) != 1 || page.Users[0]["id"] != bo.ID || page.Users[0]["isAdmin"] != false {
		t.Errorf("page = %s", resp.Data)
	}

	status, resp = e.api(http.MethodPut, "/api/v1/users/"+bo.ID+"/role", "Root", map[string]bool{"isAdmin": true})
	if status != http.StatusOK || !strings.Contains(string(resp.Data), `"isAdmin":true`) {
		t.Fatalf("promote: %d %s", status, resp.Data)
	}
	if status, _ := e.api(http.MethodGet, "/api/v1/users", "Bo", nil); status != http.StatusOK {
		t.Errorf("promoted user listing users: status = %d", status)
	}

	status, resp = e.api(http.MethodPut, "/api/v1/users/"+root.ID+"/role", "Root", map[string]bool{"isAdmin": false})
	if status != http.StatusBadRequest || resp.Field != "isAdmin" {
		t.Errorf("self revoke: %d field %q", status, resp.Field)
	}
}
