package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"sporty/apperrors"
	"sporty/cache"
	"sporty/models"
	"sporty/repository"
	"sporty/repository/sqlitetest"
	"sporty/services"
)

type fixture struct {
	ctx     context.Context
	store   *repository.Store
	cache   *cache.MemoryCache
	now     time.Time
	team    *models.Team
	users   map[string]*models.User
	members map[string]*models.TeamMember

	notifier  *recordingNotifier
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, sqlitetest.Open(t))
}

func newFixtureOn(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{
		ctx:       context.Background(),
		store:     repository.New(db),
		cache:     cache.NewMemoryCache(),
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		users:     map[string]*models.User{},
		members:   map[string]*models.TeamMember{},
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
	}
	f.team = f.newTeam(t, "Blue", "blue")
	return f
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func (f *fixture) clock() services.Clock {
	return func() time.Time { return f.now }
}

func (f *fixture) newTeam(t *testing.T, name, slug string) *models.Team {
	t.Helper()
	team := &models.Team{Name: name, Slug: slug}
	if err := f.store.Teams.Create(f.ctx, team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	return team
}

func (f *fixture) newUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Email: strings.ToLower(name) + "@example.com", Name: name, IsActive: true}
	if err := f.store.Users.Create(f.ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	f.users[name] = u
	return u
}

// member creates a user on the fixture team.
func (f *fixture) member(t *testing.T, name string, role models.TeamRole) *models.User {
	t.Helper()
	u := f.newUser(t, name)
	m := &models.TeamMember{UserID: u.ID, TeamID: f.team.ID, Role: role}
	if err := f.store.Memberships.Create(f.ctx, m); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	f.members[name] = m
	return u
}

func (f *fixture) event(t *testing.T, name string, start time.Time, deadline *time.Time) *models.TeamEvent {
	t.Helper()
	ev := &models.TeamEvent{
		TeamID:               f.team.ID,
		Name:                 name,
		EventType:            models.EventTraining,
		StartAt:              start,
		EndAt:                start.Add(90 * time.Minute),
		RegistrationDeadline: deadline,
	}
	if err := f.store.Events.Create(f.ctx, ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev
}

func (f *fixture) registrations() *services.RegistrationService {
	return services.NewRegistrationService(f.store, f.cache, time.Minute, f.publisher, f.clock(), quietLogger())
}

func (f *fixture) attendance() *services.AttendanceService {
	return services.NewAttendanceService(f.store, f.cache, time.Minute, quietLogger())
}

func (f *fixture) events() *services.EventService {
	return services.NewEventService(f.store, f.cache, f.notifier, f.publisher, f.clock(), "https://sporty.example.com/", quietLogger())
}

func (f *fixture) teams() *services.TeamService {
	return services.NewTeamService(f.store, f.cache, quietLogger())
}

func (f *fixture) memberships(source services.MembershipSource) *services.MembershipService {
	return services.NewMembershipService(f.store, source, f.cache, quietLogger())
}

func (f *fixture) notifications(pushKey string) *services.NotificationService {
	return services.NewNotificationService(f.store, f.notifier, pushKey, "https://sporty.example.com/", quietLogger())
}

func (f *fixture) accounts() *services.UserService {
	return services.NewUserService(f.store, quietLogger())
}

func at(t time.Time) *time.Time { return &t }

func text(s string) *string { return &s }

func wantKind(t *testing.T, err error, kind apperrors.Kind) *apperrors.Error {
	t.Helper()
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Kind != kind {
		t.Fatalf("err = %v, want %s", err, kind)
	}
	return appErr
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []services.Notification
	reject        bool
}

func (n *recordingNotifier) Enqueue(_ context.Context, notification services.Notification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.reject {
		return false
	}
	n.notifications = append(n.notifications, notification)
	return true
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []services.Message
}

func (p *recordingPublisher) Publish(_ string, msg services.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}
