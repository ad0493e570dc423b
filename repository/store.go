// Package repository is the persistence boundary. Each component receives
// the repository interfaces it needs; nothing reaches for a global handle.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Store bundles the repositories over one database handle.
type Store struct {
	db *gorm.DB

	Events            EventRepository
	Registrations     RegistrationRepository
	Memberships       MembershipRepository
	Teams             TeamRepository
	Users             UserRepository
	PushSubscriptions PushSubscriptionRepository
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:                db,
		Events:            &eventRepository{db: db},
		Registrations:     &registrationRepository{db: db},
		Memberships:       &membershipRepository{db: db},
		Teams:             &teamRepository{db: db},
		Users:             &userRepository{db: db},
		PushSubscriptions: &pushSubscriptionRepository{db: db},
	}
}

// DB exposes the underlying handle for migrations and health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a Store bound to a single transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// translate maps gorm errors onto the package sentinels. The handle must be
// opened with TranslateError so that unique violations surface as
// gorm.ErrDuplicatedKey.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
