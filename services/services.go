// Package services holds the domain rules: team access, the registration
// deadline gate, the registration ledger, attendance aggregation and the
// event, team and membership workflows.
//
// Services receive the repository interfaces they need and return
// *apperrors.Error for every domain failure.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/cache"
	"sporty/repository"
	"sporty/utils"
)

// Message is pushed to every client subscribed to a team channel.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	MessageRegistrationUpdated = "registration.updated"
	MessageRegistrationDeleted = "registration.deleted"
	MessageEventMoved          = "event.moved"
	MessageEventChanged        = "event.changed"
)

// Publisher fans team-scoped messages out to live clients. Publishing never
// fails the mutation that triggered it.
type Publisher interface {
	Publish(teamID string, msg Message)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, Message) {}

// NopPublisher discards every message.
var NopPublisher Publisher = nopPublisher{}

// Clock returns the current instant. Tests pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

// storeError converts repository sentinels into domain errors.
func storeError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(notFound)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.Conflict("record already exists")
	default:
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.Internal("store failure", err)
	}
}

// invalidate retires every cached read model of the team. A failed bump is
// reported but does not fail the write.
func invalidate(ctx context.Context, c cache.Cache, log *logrus.Entry, teamID string) {
	if c == nil {
		return
	}
	if err := c.Bump(ctx, teamID); err != nil {
		utils.LogError("cache_invalidate_failed", err, map[string]interface{}{
			"team_id": teamID,
		})
		log.WithError(err).Warn("team cache invalidation failed")
	}
}

// cached reads the team read model name into dest or fills it with load. The
// key carries the generation seen before load runs, so a value loaded before
// a concurrent write is stored under a generation nobody reads any more. A
// ttl of zero disables caching.
func cached(ctx context.Context, c cache.Cache, ttl time.Duration, log *logrus.Entry, teamID, name string, dest interface{}, load func() error) error {
	if c == nil || ttl <= 0 {
		return load()
	}
	gen, err := c.Generation(ctx, teamID)
	if err != nil {
		log.WithError(err).WithField("team_id", teamID).Debug("cache generation read failed")
		return load()
	}
	key := cache.Scope{TeamID: teamID, Generation: gen}.Key(name)

	found, err := c.Get(ctx, key, dest)
	if err != nil {
		log.WithError(err).WithField("key", key).Debug("cache read failed")
	}
	if found && err == nil {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	if err := c.Set(ctx, key, dest, ttl); err != nil {
		log.WithError(err).WithField("key", key).Debug("cache write failed")
	}
	return nil
}
