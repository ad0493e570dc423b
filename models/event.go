package models

import "time"

// EventType only affects presentation (calendar color, labels).
type EventType string

const (
	EventTraining EventType = "TRAINING"
	EventMatch    EventType = "MATCH"
	EventSocial   EventType = "SOCIAL"
	EventOther    EventType = "OTHER"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTraining, EventMatch, EventSocial, EventOther:
		return true
	}
	return false
}

// TeamEvent is a single-occurrence team event.
type TeamEvent struct {
	Base
	TeamID    string    `gorm:"size:36;not null;index" json:"team_id"`
	Name      string    `gorm:"not null" json:"name"`
	EventType EventType `gorm:"size:16;not null;default:'TRAINING'" json:"type"`
	StartAt   time.Time `gorm:"not null;index" json:"start_at"`
	EndAt     time.Time `gorm:"not null;index" json:"end_at"`
	Location  *string   `json:"location,omitempty"`
	Note      *string   `json:"note,omitempty"`

	// RegistrationDeadline, when set, is never after StartAt.
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`

	// Relations
	Team          *Team          `json:"team,omitempty"`
	Registrations []Registration `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
}

// Duration is end minus start; zero for instant events.
func (e TeamEvent) Duration() time.Duration {
	if e.EndAt.Before(e.StartAt) {
		return 0
	}
	return e.EndAt.Sub(e.StartAt)
}
