package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/cache"
	"sporty/models"
	"sporty/repository"
	"sporty/utils"
)

// EventFilter selects which part of a team's schedule to list.
type EventFilter string

const (
	FilterAll     EventFilter = "all"
	FilterOngoing EventFilter = "ongoing"
	FilterPast    EventFilter = "past"
)

// EventInput carries the editable fields of an event.
type EventInput struct {
	Name                 string
	Type                 models.EventType
	StartAt              time.Time
	EndAt                time.Time
	Location             *string
	Note                 *string
	RegistrationDeadline *time.Time
}

// EventService manages a team's schedule.
type EventService struct {
	Events        repository.EventRepository
	Registrations repository.RegistrationRepository
	Memberships   repository.MembershipRepository
	Teams         repository.TeamRepository
	Access        *Access
	Cache         cache.Cache
	Notifier      Notifier
	Publisher     Publisher
	Now           Clock
	PublicURL     string
	Logger        *logrus.Entry
}

func NewEventService(store *repository.Store, c cache.Cache, notifier Notifier, pub Publisher, now Clock, publicURL string, logger *logrus.Entry) *EventService {
	if notifier == nil {
		notifier = NopNotifier
	}
	if pub == nil {
		pub = NopPublisher
	}
	return &EventService{
		Events:        store.Events,
		Registrations: store.Registrations,
		Memberships:   store.Memberships,
		Teams:         store.Teams,
		Access:        NewAccess(store.Memberships),
		Cache:         c,
		Notifier:      notifier,
		Publisher:     pub,
		Now:           clockOrDefault(now),
		PublicURL:     strings.TrimRight(publicURL, "/"),
		Logger:        logger.WithField("component", "events"),
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// validateEventInput normalizes in and checks the schedule rules shared by
// every write path: end is not before start, and a deadline is not after start.
func validateEventInput(in *EventInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperrors.Invalid("name", "name is required")
	}
	if in.Type == "" {
		in.Type = models.EventTraining
	}
	if !in.Type.Valid() {
		return apperrors.Invalid("type", "type must be one of TRAINING, MATCH, SOCIAL, OTHER")
	}
	if in.StartAt.IsZero() {
		return apperrors.Invalid("startAt", "start time is required")
	}
	if in.EndAt.IsZero() {
		in.EndAt = in.StartAt
	}
	if err := validateSchedule(in.StartAt, in.EndAt, in.RegistrationDeadline); err != nil {
		return err
	}
	in.Location = trimmedOrNil(in.Location)
	in.Note = trimmedOrNil(in.Note)
	return nil
}

func validateSchedule(start, end time.Time, deadline *time.Time) error {
	if end.Before(start) {
		return apperrors.Invalid("endAt", "end time must not be before start time")
	}
	if deadline != nil && deadline.After(start) {
		return apperrors.Invalid("registrationDeadline", "registration deadline must not be after start time")
	}
	return nil
}

func (s *EventService) load(ctx context.Context, eventID string) (*models.TeamEvent, error) {
	event, err := s.Events.FindByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err, errEventNotFound.Message)
	}
	return event, nil
}

// Get returns one event to a member of its team.
func (s *EventService) Get(ctx context.Context, actor *models.User, eventID string) (*models.TeamEvent, error) {
	event, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Access.RequireMember(ctx, actor, event.TeamID); err != nil {
		return nil, err
	}
	return event, nil
}

// Create adds an event and notifies every team member.
func (s *EventService) Create(ctx context.Context, actor *models.User, teamID string, in EventInput) (*models.TeamEvent, error) {
	if _, err := s.Access.RequireManager(ctx, actor, teamID); err != nil {
		return nil, err
	}
	if err := validateEventInput(&in); err != nil {
		return nil, err
	}
	team, err := s.Teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, storeError(err, "team not found")
	}

	event := &models.TeamEvent{
		TeamID:               team.ID,
		Name:                 in.Name,
		EventType:            in.Type,
		StartAt:              in.StartAt,
		EndAt:                in.EndAt,
		Location:             in.Location,
		Note:                 in.Note,
		RegistrationDeadline: in.RegistrationDeadline,
	}
	if err := s.Events.Create(ctx, event); err != nil {
		return nil, storeError(err, "team not found")
	}

	invalidate(ctx, s.Cache, s.Logger, team.ID)
	s.Publisher.Publish(team.ID, Message{Type: MessageEventChanged, Payload: event})
	utils.LogEvent("event_created", map[string]interface{}{
		"event_id": event.ID,
		"team_id":  team.ID,
		"actor_id": actor.ID,
	})

	s.notifyNewEvent(ctx, team, event)
	return event, nil
}

func (s *EventService) notifyNewEvent(ctx context.Context, team *models.Team, event *models.TeamEvent) {
	members, err := s.Memberships.ListByTeam(ctx, team.ID)
	if err != nil {
		utils.LogError("notify_new_event_failed", err, map[string]interface{}{"event_id": event.ID})
		return
	}
	recipients := recipientsOf(members)
	if len(recipients) == 0 {
		return
	}
	accepted := s.Notifier.Enqueue(ctx, Notification{
		Template: TemplateNewEvent,
		Subject:  "New event: " + event.Name,
		To:       recipients,
		Data:     s.eventMailData(team, event),
		Push: &utils.PushPayload{
			Title: "New event: " + event.Name,
			Body:  team.Name + " added a new event.",
			URL:   "/teams/" + team.ID,
		},
	})
	if !accepted {
		s.Logger.WithField("event_id", event.ID).Warn("new event notification dropped")
	}
}

func (s *EventService) eventMailData(team *models.Team, event *models.TeamEvent) map[string]interface{} {
	data := map[string]interface{}{
		"TeamName":  team.Name,
		"EventName": event.Name,
		"EventType": string(event.EventType),
		"StartAt":   event.StartAt,
		"EndAt":     event.EndAt,
		"Link":      s.PublicURL + "/teams/" + team.ID,
	}
	if event.Location != nil {
		data["Location"] = *event.Location
	}
	if event.RegistrationDeadline != nil {
		data["Deadline"] = *event.RegistrationDeadline
	}
	return data
}

// Update replaces every editable field of an event.
func (s *EventService) Update(ctx context.Context, actor *models.User, eventID string, in EventInput) (*models.TeamEvent, error) {
	event, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Access.RequireManager(ctx, actor, event.TeamID); err != nil {
		return nil, err
	}
	if err := validateEventInput(&in); err != nil {
		return nil, err
	}

	event.Name = in.Name
	event.EventType = in.Type
	event.StartAt = in.StartAt
	event.EndAt = in.EndAt
	event.Location = in.Location
	event.Note = in.Note
	event.RegistrationDeadline = in.RegistrationDeadline
	if err := s.Events.Update(ctx, event); err != nil {
		return nil, storeError(err, errEventNotFound.Message)
	}

	s.Publisher.Publish(event.TeamID, Message{Type: MessageEventChanged, Payload: event})
	return event, nil
}

// Delete removes an event and its registrations. confirm must repeat the
// event name; the check runs against the stored event.
func (s *EventService) Delete(ctx context.Context, actor *models.User, eventID, confirm string) error {
	event, err := s.load(ctx, eventID)
	if err != nil {
		return err
	}
	if _, err := s.Access.RequireManager(ctx, actor, event.TeamID); err != nil {
		return err
	}
	if strings.TrimSpace(confirm) != event.Name {
		return apperrors.Invalid("confirm", "confirmation does not match the event name")
	}

	if err := s.Events.Delete(ctx, event.ID); err != nil {
		return storeError(err, errEventNotFound.Message)
	}

	invalidate(ctx, s.Cache, s.Logger, event.TeamID)
	s.Publisher.Publish(event.TeamID, Message{
		Type:    MessageEventChanged,
		Payload: map[string]interface{}{"eventId": event.ID, "deleted": true},
	})
	utils.LogEvent("event_deleted", map[string]interface{}{
		"event_id": event.ID,
		"team_id":  event.TeamID,
		"actor_id": actor.ID,
	})
	return nil
}

// Reschedule moves an event to [start, end]. An existing deadline keeps its
// distance to the start so it never ends up after the new start.
func (s *EventService) Reschedule(ctx context.Context, actor *models.User, eventID string, start, end time.Time) (*models.TeamEvent, error) {
	event, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Access.RequireManager(ctx, actor, event.TeamID); err != nil {
		return nil, err
	}

	var deadline *time.Time
	if event.RegistrationDeadline != nil {
		lead := event.StartAt.Sub(*event.RegistrationDeadline)
		d := start.Add(-lead)
		deadline = &d
	}
	if err := validateSchedule(start, end, deadline); err != nil {
		return nil, err
	}

	if err := s.Events.UpdateSchedule(ctx, event.ID, start, end, deadline); err != nil {
		return nil, storeError(err, errEventNotFound.Message)
	}
	event.StartAt = start.UTC()
	event.EndAt = end.UTC()
	if deadline != nil {
		d := deadline.UTC()
		event.RegistrationDeadline = &d
	}
	return event, nil
}

// ListByTeam returns a team's events for a member.
func (s *EventService) ListByTeam(ctx context.Context, actor *models.User, teamID string, filter EventFilter) ([]models.TeamEvent, error) {
	if _, err := s.Access.RequireMember(ctx, actor, teamID); err != nil {
		return nil, err
	}

	var (
		events []models.TeamEvent
		err    error
	)
	switch filter {
	case FilterOngoing:
		events, err = s.Events.ListOngoingByTeam(ctx, teamID, s.Now())
	case FilterPast:
		events, err = s.Events.ListPastByTeam(ctx, teamID, s.Now())
	case FilterAll, "":
		events, err = s.Events.ListByTeam(ctx, teamID)
	default:
		return nil, apperrors.Invalid("filter", "filter must be all, ongoing or past")
	}
	if err != nil {
		return nil, storeError(err, "team not found")
	}
	return events, nil
}

// ListUnanswered returns upcoming events of the actor's teams the actor has
// not answered yet.
func (s *EventService) ListUnanswered(ctx context.Context, actor *models.User) ([]models.TeamEvent, error) {
	events, err := s.Events.ListUnansweredForUser(ctx, actor.ID, s.Now())
	if err != nil {
		return nil, storeError(err, errEventNotFound.Message)
	}
	return events, nil
}

// ListInRange returns the events of the given teams intersecting [from, to).
// With no team given it covers every team the actor belongs to.
func (s *EventService) ListInRange(ctx context.Context, actor *models.User, teamID string, from, to time.Time) ([]models.TeamEvent, error) {
	var teamIDs []string
	if teamID != "" {
		if _, err := s.Access.RequireMember(ctx, actor, teamID); err != nil {
			return nil, err
		}
		teamIDs = []string{teamID}
	} else {
		memberships, err := s.Memberships.ListByUser(ctx, actor.ID)
		if err != nil {
			return nil, storeError(err, "membership not found")
		}
		for _, m := range memberships {
			teamIDs = append(teamIDs, m.TeamID)
		}
	}

	events, err := s.Events.ListByTeamsInRange(ctx, teamIDs, from, to)
	if err != nil {
		return nil, storeError(err, "team not found")
	}
	return events, nil
}

// NotifyUnattended reminds every member without an answer. It returns the
// number of reminders queued.
func (s *EventService) NotifyUnattended(ctx context.Context, actor *models.User, eventID string) (int, error) {
	event, err := s.load(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if _, err := s.Access.Require(ctx, actor, event.TeamID, models.RoleAdmin); err != nil {
		return 0, err
	}
	team, err := s.Teams.FindByID(ctx, event.TeamID)
	if err != nil {
		return 0, storeError(err, "team not found")
	}

	return s.remind(ctx, team, event)
}

func (s *EventService) remind(ctx context.Context, team *models.Team, event *models.TeamEvent) (int, error) {
	missing, err := nonRespondingMembers(ctx, s.Memberships, s.Registrations, event)
	if err != nil {
		return 0, err
	}
	recipients := recipientsOf(missing)
	if len(recipients) == 0 {
		return 0, nil
	}

	data := s.eventMailData(team, event)
	if !s.Notifier.Enqueue(ctx, Notification{
		Template: TemplateUnattendedReminder,
		Subject:  "Reminder: " + event.Name,
		To:       recipients,
		Data:     data,
		Push: &utils.PushPayload{
			Title: "Have you answered for " + event.Name + "?",
			Body:  team.Name + " is still waiting for your answer.",
			URL:   "/teams/" + team.ID,
		},
	}) {
		return 0, apperrors.Internal("notification queue is full", nil)
	}

	utils.LogEvent("unattended_reminder_queued", map[string]interface{}{
		"event_id":   event.ID,
		"recipients": len(recipients),
	})
	return len(recipients), nil
}
