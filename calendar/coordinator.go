package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/models"
	"sporty/services"
	"sporty/utils"
)

// Rescheduler is the part of the event service the coordinator writes through.
type Rescheduler interface {
	Get(ctx context.Context, actor *models.User, eventID string) (*models.TeamEvent, error)
	Reschedule(ctx context.Context, actor *models.User, eventID string, start, end time.Time) (*models.TeamEvent, error)
}

// Confirmation is the user-visible notice emitted after a committed move.
type Confirmation struct {
	EventID  string    `json:"eventId"`
	TeamID   string    `json:"teamId"`
	Name     string    `json:"name"`
	NewStart time.Time `json:"newStart"`
	NewEnd   time.Time `json:"newEnd"`
	Date     string    `json:"date"`
	Message  string    `json:"message"`
}

// Coordinator commits drag and resize gestures and announces the result on
// the team channel.
type Coordinator struct {
	Events    Rescheduler
	Publisher services.Publisher
	Location  *time.Location
	Logger    *logrus.Entry
}

func NewCoordinator(events Rescheduler, pub services.Publisher, loc *time.Location, logger *logrus.Entry) *Coordinator {
	if pub == nil {
		pub = services.NopPublisher
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Coordinator{
		Events:    events,
		Publisher: pub,
		Location:  loc,
		Logger:    logger.WithField("component", "calendar"),
	}
}

// Commit writes the proposal of a dropped-valid session. Any other state
// writes nothing; an invalid drop returns its validation error.
func (c *Coordinator) Commit(ctx context.Context, actor *models.User, s *DragSession) (*Confirmation, error) {
	start, end, ok := s.Proposal()
	if !ok {
		if s.State() == StateDroppedInvalid && s.Err() != nil {
			return nil, s.Err()
		}
		return nil, apperrors.BadRequest("there is no drop to commit")
	}
	event := s.Event()
	return c.apply(ctx, actor, event.ID, start, end, "moved")
}

// Move drags eventID onto target in one step.
func (c *Coordinator) Move(ctx context.Context, actor *models.User, eventID string, target DropTarget) (*Confirmation, error) {
	event, err := c.Events.Get(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	s := NewDragSession(c.Location)
	s.PointerDown(*event, Point{})
	s.begin()
	s.Drop(&target)
	return c.Commit(ctx, actor, s)
}

// Resize changes only the end of eventID.
func (c *Coordinator) Resize(ctx context.Context, actor *models.User, eventID string, newEnd time.Time) (*Confirmation, error) {
	event, err := c.Events.Get(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	start, end, err := Resize(*event, newEnd)
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, actor, event.ID, start, end, "resized")
}

func (c *Coordinator) apply(ctx context.Context, actor *models.User, eventID string, start, end time.Time, verb string) (*Confirmation, error) {
	updated, err := c.Events.Reschedule(ctx, actor, eventID, start, end)
	if err != nil {
		return nil, err
	}

	date := updated.StartAt.In(c.Location).Format("2 Jan 2006")
	confirmation := &Confirmation{
		EventID:  updated.ID,
		TeamID:   updated.TeamID,
		Name:     updated.Name,
		NewStart: updated.StartAt,
		NewEnd:   updated.EndAt,
		Date:     date,
		Message:  fmt.Sprintf("Event %q %s to %s", updated.Name, verb, date),
	}
	c.Publisher.Publish(updated.TeamID, services.Message{
		Type:    services.MessageEventMoved,
		Payload: confirmation,
	})
	utils.LogEvent("event_rescheduled", map[string]interface{}{
		"event_id":  updated.ID,
		"team_id":   updated.TeamID,
		"actor_id":  actor.ID,
		"new_start": updated.StartAt,
		"new_end":   updated.EndAt,
	})
	c.Logger.WithField("event_id", updated.ID).Debug(confirmation.Message)
	return confirmation, nil
}
