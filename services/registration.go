package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/cache"
	"sporty/models"
	"sporty/repository"
	"sporty/utils"
)

// MaxCommentLength bounds registration comments, in characters.
const MaxCommentLength = 500

var errEventNotFound = apperrors.NotFound("event not found")

// RegistrationEntry is one row of an event's registration list.
type RegistrationEntry struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"userId"`
	EventID   string                  `json:"eventId"`
	Type      models.RegistrationType `json:"type"`
	Comment   *string                 `json:"comment"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
	User      models.UserSummary      `json:"user"`
}

// NewRegistrationEntry is the API shape of reg. The user summary is empty
// unless reg.User is loaded.
func NewRegistrationEntry(reg models.Registration) RegistrationEntry {
	entry := RegistrationEntry{
		ID:        reg.ID,
		UserID:    reg.UserID,
		EventID:   reg.EventID,
		Type:      reg.Type,
		Comment:   reg.Comment,
		CreatedAt: reg.CreatedAt,
		UpdatedAt: reg.UpdatedAt,
	}
	if reg.User != nil {
		entry.User = reg.User.Summary()
	}
	return entry
}

// RegistrationService is the Registration Ledger: one row per (user, event),
// written through the Deadline Gate.
type RegistrationService struct {
	Events        repository.EventRepository
	Registrations repository.RegistrationRepository
	Memberships   repository.MembershipRepository
	Access        *Access
	Cache         cache.Cache
	CacheTTL      time.Duration
	Publisher     Publisher
	Now           Clock
	Logger        *logrus.Entry
}

func NewRegistrationService(store *repository.Store, c cache.Cache, ttl time.Duration, pub Publisher, now Clock, logger *logrus.Entry) *RegistrationService {
	if pub == nil {
		pub = NopPublisher
	}
	return &RegistrationService{
		Events:        store.Events,
		Registrations: store.Registrations,
		Memberships:   store.Memberships,
		Access:        NewAccess(store.Memberships),
		Cache:         c,
		CacheTTL:      ttl,
		Publisher:     pub,
		Now:           clockOrDefault(now),
		Logger:        logger.WithField("component", "registrations"),
	}
}

func (s *RegistrationService) loadEvent(ctx context.Context, eventID string) (*models.TeamEvent, error) {
	event, err := s.Events.FindByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err, errEventNotFound.Message)
	}
	return event, nil
}

// normalizeComment trims the comment and enforces the length cap. Blank
// comments become nil.
func normalizeComment(comment *string) (*string, error) {
	if comment == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > MaxCommentLength {
		return nil, apperrors.Invalid("comment", "comment must be at most 500 characters")
	}
	return &trimmed, nil
}

func validateRegistrationType(t models.RegistrationType) error {
	if !t.Valid() {
		return apperrors.Invalid("type", "type must be ATTENDING or NOT_ATTENDING")
	}
	return nil
}

// Upsert records the actor's own attendance intent. A NOT_ATTENDING answer
// needs a comment on this path.
func (s *RegistrationService) Upsert(ctx context.Context, actor *models.User, eventID string, t models.RegistrationType, comment *string) (*models.Registration, error) {
	if err := validateRegistrationType(t); err != nil {
		return nil, err
	}
	comment, err := normalizeComment(comment)
	if err != nil {
		return nil, err
	}
	if t == models.NotAttending && comment == nil {
		return nil, apperrors.Invalid("comment", "a comment is required when not attending")
	}

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	role, err := s.Access.RequireMember(ctx, actor, event.TeamID)
	if err != nil {
		return nil, err
	}
	if decision := CanRegister(role, event, s.Now()); !decision.Allowed {
		return nil, apperrors.Forbidden(decision.Reason)
	}

	reg, err := s.Registrations.Upsert(ctx, actor.ID, event.ID, t, comment)
	if err != nil {
		return nil, storeError(err, errEventNotFound.Message)
	}
	s.afterWrite(ctx, event, MessageRegistrationUpdated, reg)
	return reg, nil
}

// AdminUpdate writes another member's answer. It bypasses the Deadline Gate
// but needs ADMIN or SUBADMIN on the event's team.
func (s *RegistrationService) AdminUpdate(ctx context.Context, actor *models.User, targetUserID, eventID string, t models.RegistrationType, comment *string) (*models.Registration, error) {
	if err := validateRegistrationType(t); err != nil {
		return nil, err
	}
	comment, err := normalizeComment(comment)
	if err != nil {
		return nil, err
	}

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Access.RequireManager(ctx, actor, event.TeamID); err != nil {
		return nil, err
	}
	if _, err := s.Memberships.FindByUserAndTeam(ctx, targetUserID, event.TeamID); err != nil {
		return nil, storeError(err, "user is not a member of this team")
	}

	reg, err := s.Registrations.Upsert(ctx, targetUserID, event.ID, t, comment)
	if err != nil {
		return nil, storeError(err, errEventNotFound.Message)
	}

	s.Logger.WithFields(logrus.Fields{
		"actor_id":  actor.ID,
		"target_id": targetUserID,
		"event_id":  event.ID,
		"type":      t,
	}).Info("registration overridden by team manager")
	s.afterWrite(ctx, event, MessageRegistrationUpdated, reg)
	return reg, nil
}

// Delete withdraws the actor's own registration. Ownership is checked before
// any role, so managers cannot remove someone else's answer on this path.
func (s *RegistrationService) Delete(ctx context.Context, actor *models.User, registrationID string) error {
	reg, err := s.Registrations.FindByID(ctx, registrationID)
	if err != nil {
		return storeError(err, "registration not found")
	}
	if actor == nil || reg.UserID != actor.ID {
		return apperrors.Forbidden("you can only delete your own registration")
	}

	event, err := s.loadEvent(ctx, reg.EventID)
	if err != nil {
		return err
	}
	role, err := s.Access.RequireMember(ctx, actor, event.TeamID)
	if err != nil {
		return err
	}
	if decision := CanRegister(role, event, s.Now()); !decision.Allowed {
		return apperrors.Forbidden(decision.Reason)
	}

	if err := s.Registrations.Delete(ctx, reg.ID); err != nil {
		return storeError(err, "registration not found")
	}
	s.afterWrite(ctx, event, MessageRegistrationDeleted, reg)
	return nil
}

// GetMine returns the actor's registration for the event, or nil.
func (s *RegistrationService) GetMine(ctx context.Context, actor *models.User, eventID string) (*models.Registration, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Access.RequireMember(ctx, actor, event.TeamID); err != nil {
		return nil, err
	}
	reg, err := s.Registrations.FindByUserAndEvent(ctx, actor.ID, event.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "registration not found")
	}
	return reg, nil
}

// ListByEvent returns every registration for the event, oldest first.
func (s *RegistrationService) ListByEvent(ctx context.Context, actor *models.User, eventID string) ([]RegistrationEntry, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Access.RequireMember(ctx, actor, event.TeamID); err != nil {
		return nil, err
	}

	entries := []RegistrationEntry{}
	err = cached(ctx, s.Cache, s.CacheTTL, s.Logger, event.TeamID, cache.RegistrationsKey(event.ID), &entries, func() error {
		regs, err := s.Registrations.ListByEvent(ctx, event.ID)
		if err != nil {
			return storeError(err, errEventNotFound.Message)
		}
		entries = make([]RegistrationEntry, 0, len(regs))
		for _, reg := range regs {
			entries = append(entries, NewRegistrationEntry(reg))
		}
		return nil
	})
	return entries, err
}

func (s *RegistrationService) afterWrite(ctx context.Context, event *models.TeamEvent, messageType string, reg *models.Registration) {
	invalidate(ctx, s.Cache, s.Logger, event.TeamID)
	s.Publisher.Publish(event.TeamID, Message{
		Type: messageType,
		Payload: map[string]interface{}{
			"eventId":        event.ID,
			"userId":         reg.UserID,
			"registrationId": reg.ID,
			"type":           reg.Type,
		},
	})
	utils.LogEvent(messageType, map[string]interface{}{
		"event_id": event.ID,
		"user_id":  reg.UserID,
		"type":     reg.Type,
	})
}
