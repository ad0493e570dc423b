package services

import (
	"time"

	"sporty/models"
)

// ReasonDeadlinePassed is reported when a regular member writes after the
// registration deadline.
const ReasonDeadlinePassed = "deadline passed"

// Decision is the Deadline Gate's verdict.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CanRegister decides whether a registration write (create, update or
// withdrawal) is still open for an actor with the given role. Without a
// deadline the gate is always open; after it only ADMIN and SUBADMIN pass.
// The deadline instant itself is still open.
func CanRegister(role models.TeamRole, event *models.TeamEvent, now time.Time) Decision {
	if event.RegistrationDeadline == nil {
		return Decision{Allowed: true}
	}
	if !now.After(*event.RegistrationDeadline) {
		return Decision{Allowed: true}
	}
	if role.Privileged() {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Reason: ReasonDeadlinePassed}
}
