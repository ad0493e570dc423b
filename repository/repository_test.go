package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
	"sporty/models"
	"sporty/repository"
	"sporty/repository/sqlitetest"
)

type fixture struct {
	store *repository.Store
	team  *models.Team
	users []*models.User
}

func newFixture(t *testing.T, members int) *fixture {
	t.Helper()
	return newFixtureOn(t, sqlitetest.Open(t), members)
}

func newFixtureOn(t *testing.T, db *gorm.DB, members int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.New(db)

	team := &models.Team{Name: "Blue", Slug: "blue"}
	if err := store.Teams.Create(ctx, team); err != nil {
		t.Fatalf("create team: %v", err)
	}

	f := &fixture{store: store, team: team}
	names := []string{"Ada", "Bo", "Cy", "Di", "Ed"}
	for i := 0; i < members; i++ {
		u := &models.User{Email: names[i] + "@example.com", Name: names[i]}
		if err := store.Users.Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
		m := &models.TeamMember{UserID: u.ID, TeamID: team.ID, Role: models.RoleUser}
		if err := store.Memberships.Create(ctx, m); err != nil {
			t.Fatalf("create membership: %v", err)
		}
		f.users = append(f.users, u)
	}
	return f
}

func (f *fixture) event(t *testing.T, name string, start time.Time, d time.Duration) *models.TeamEvent {
	t.Helper()
	e := &models.TeamEvent{TeamID: f.team.ID, Name: name, EventType: models.EventTraining, StartAt: start, EndAt: start.Add(d)}
	if err := f.store.Events.Create(context.Background(), e); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

func TestRegistrationUpsertKeepsSingleRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	e := f.event(t, "Training", time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC), time.Hour)
	u := f.users[0]

	first, err := f.store.Registrations.Upsert(ctx, u.ID, e.ID, models.Attending, nil)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	comment := "injured"
	second, err := f.store.Registrations.Upsert(ctx, u.ID, e.ID, models.NotAttending, &comment)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("upsert created a new row: %s != %s", first.ID, second.ID)
	}
	if second.Type != models.NotAttending || second.Comment == nil || *second.Comment != comment {
		t.Errorf("second upsert not applied: %+v", second)
	}

	regs, err := f.store.Registrations.ListByEvent(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 1 {
		t.Fatalf("rows = %d, want 1", len(regs))
	}
	if regs[0].User == nil || regs[0].User.Name != u.Name {
		t.Errorf("user not preloaded: %+v", regs[0].User)
	}
}

func TestConcurrentUpsertsConvergeOnOneRow(t *testing.T) {
	ctx := context.Background()
	f := newFixtureOn(t, sqlitetest.OpenFile(t, 4), 1)
	e := f.event(t, "Training", time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC), time.Hour)
	u := f.users[0]
	comment := "away"

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rt, c := models.Attending, (*string)(nil)
			if i%2 == 1 {
				rt, c = models.NotAttending, &comment
			}
			if _, err := f.store.Registrations.Upsert(ctx, u.ID, e.ID, rt, c); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("upsert: %v", err)
	}

	regs, err := f.store.Registrations.ListByEvent(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 1 {
		t.Fatalf("rows = %d, want 1", len(regs))
	}
	switch got := regs[0]; got.Type {
	case models.Attending:
		if got.Comment != nil {
			t.Errorf("ATTENDING row kept comment %q", *got.Comment)
		}
	case models.NotAttending:
		if got.Comment == nil || *got.Comment != comment {
			t.Errorf("NOT_ATTENDING row comment = %v", got.Comment)
		}
	default:
		t.Errorf("type = %s", got.Type)
	}
}

func TestRegistrationCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	start := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	e1 := f.event(t, "One", start, time.Hour)
	e2 := f.event(t, "Two", start.AddDate(0, 0, 1), time.Hour)

	mustUpsert := func(userID, eventID string, rt models.RegistrationType) {
		t.Helper()
		if _, err := f.store.Registrations.Upsert(ctx, userID, eventID, rt, nil); err != nil {
			t.Fatal(err)
		}
	}
	mustUpsert(f.users[0].ID, e1.ID, models.Attending)
	mustUpsert(f.users[1].ID, e1.ID, models.NotAttending)
	mustUpsert(f.users[0].ID, e2.ID, models.Attending)
	mustUpsert(f.users[2].ID, e2.ID, models.Attending)

	counts, err := f.store.Registrations.CountByType(ctx, e1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts[models.Attending] != 1 || counts[models.NotAttending] != 1 {
		t.Errorf("counts = %v", counts)
	}

	byUser, err := f.store.Registrations.CountAttendingByUser(ctx, f.team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if byUser[f.users[0].ID] != 2 || byUser[f.users[1].ID] != 0 || byUser[f.users[2].ID] != 1 {
		t.Errorf("attending by user = %v", byUser)
	}
}

func TestEventDeleteCascadesRegistrations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	e := f.event(t, "Match", time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC), 2*time.Hour)
	for _, u := range f.users {
		if _, err := f.store.Registrations.Upsert(ctx, u.ID, e.ID, models.Attending, nil); err != nil {
			t.Fatal(err)
		}
	}

	if err := f.store.Events.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.store.Events.FindByID(ctx, e.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("event still present: %v", err)
	}
	regs, err := f.store.Registrations.ListByEvent(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 0 {
		t.Errorf("registrations left behind: %d", len(regs))
	}
	if err := f.store.Events.Delete(ctx, e.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestEventListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	past := f.event(t, "Past", now.Add(-48*time.Hour), time.Hour)
	older := f.event(t, "Older", now.Add(-96*time.Hour), time.Hour)
	running := f.event(t, "Running", now.Add(-time.Hour), 2*time.Hour)
	future := f.event(t, "Future", now.Add(24*time.Hour), time.Hour)

	ongoing, err := f.store.Events.ListOngoingByTeam(ctx, f.team.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, "ongoing", ongoing, running.ID, future.ID)

	pastEvents, err := f.store.Events.ListPastByTeam(ctx, f.team.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, "past", pastEvents, past.ID, older.ID)

	inRange, err := f.store.Events.ListByTeamsInRange(ctx, []string{f.team.ID}, now.Add(-50*time.Hour), now)
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, "range", inRange, past.ID, running.ID)

	if _, err := f.store.Registrations.Upsert(ctx, f.users[0].ID, future.ID, models.Attending, nil); err != nil {
		t.Fatal(err)
	}
	extra := f.event(t, "Extra", now.Add(48*time.Hour), time.Hour)
	unanswered, err := f.store.Events.ListUnansweredForUser(ctx, f.users[0].ID, now)
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, "unanswered", unanswered, extra.ID)
	if unanswered[0].Team == nil || unanswered[0].Team.Name != f.team.Name {
		t.Errorf("team not preloaded")
	}
}

func TestMembershipUniquePair(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	dup := &models.TeamMember{UserID: f.users[0].ID, TeamID: f.team.ID, Role: models.RoleAdmin}
	if err := f.store.Memberships.Create(ctx, dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate membership = %v, want ErrDuplicate", err)
	}
}

func TestMembershipSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)

	members, total, err := f.store.Memberships.Search(ctx, f.team.ID, "D", 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	// Ada, Di and Ed
	if total != 3 || len(members) != 3 {
		t.Fatalf("search total=%d len=%d", total, len(members))
	}

	page, total, err := f.store.Memberships.Search(ctx, f.team.ID, "", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page) != 2 {
		t.Errorf("page total=%d len=%d", total, len(page))
	}
}

func TestTeamConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	if err := f.store.Teams.Create(ctx, &models.Team{Name: "Blue", Slug: "other"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("duplicate name = %v", err)
	}
	if _, err := f.store.Teams.FindConflicting(ctx, "Red", "blue", ""); err != nil {
		t.Errorf("slug conflict not found: %v", err)
	}
	if _, err := f.store.Teams.FindConflicting(ctx, "Blue", "blue", f.team.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("self should not conflict: %v", err)
	}
}

func assertIDs(t *testing.T, label string, events []models.TeamEvent, want ...string) {
	t.Helper()
	if len(events) != len(want) {
		t.Fatalf("%s: got %d events, want %d", label, len(events), len(want))
	}
	for i, id := range want {
		if events[i].ID != id {
			t.Errorf("%s[%d] = %s (%s), want %s", label, i, events[i].ID, events[i].Name, id)
		}
	}
}

func TestPushSubscriptionMovesBetweenUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	ada, bo := f.users[0], f.users[1]
	subs := f.store.PushSubscriptions

	sub := &models.PushSubscription{UserID: ada.ID, Endpoint: "https://push.example.com/1", P256dh: "k1", Auth: "a1"}
	if err := subs.Upsert(ctx, sub); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	moved := &models.PushSubscription{UserID: bo.ID, Endpoint: "https://push.example.com/1", P256dh: "k2", Auth: "a2"}
	if err := subs.Upsert(ctx, moved); err != nil {
		t.Fatalf("upsert as Bo: %v", err)
	}

	if n, _ := subs.CountByUser(ctx, ada.ID); n != 0 {
		t.Errorf("Ada keeps %d endpoints", n)
	}
	list, err := subs.ListByUsers(ctx, []string{ada.ID, bo.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].UserID != bo.ID || list[0].P256dh != "k2" || list[0].Auth != "a2" {
		t.Fatalf("subscriptions = %+v", list)
	}

	if n, err := subs.DeleteByUserAndEndpoint(ctx, ada.ID, moved.Endpoint); err != nil || n != 0 {
		t.Errorf("foreign delete = %d, %v", n, err)
	}
	if err := subs.DeleteByIDs(ctx, []string{list[0].ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := subs.CountByUser(ctx, bo.ID); n != 0 {
		t.Errorf("Bo keeps %d endpoints", n)
	}
}

func TestUserSearchAndFlags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	users := f.store.Users

	found, total, err := users.Search(ctx, "  AD  example ", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(found) != 1 || found[0].Name != "Ada" {
		t.Errorf("search = %d %+v", total, found)
	}
	if _, total, _ := users.Search(ctx, "", 0, 1); total != 3 {
		t.Errorf("total = %d, want 3", total)
	}

	if err := users.SetEmailNotifications(ctx, f.users[1].ID, false); err != nil {
		t.Fatalf("SetEmailNotifications: %v", err)
	}
	if err := users.SetAdmin(ctx, f.users[1].ID, true); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	bo, err := users.FindByID(ctx, f.users[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if bo.EmailNotificationsEnabled || !bo.IsAdmin {
		t.Errorf("Bo = email %v admin %v", bo.EmailNotificationsEnabled, bo.IsAdmin)
	}
	ada, _ := users.FindByID(ctx, f.users[0].ID)
	if !ada.EmailNotificationsEnabled {
		t.Error("mail is not on by default")
	}

	if err := users.SetAdmin(ctx, "missing", true); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
