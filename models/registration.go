package models

// RegistrationType is a member's recorded attendance intent.
type RegistrationType string

const (
	Attending    RegistrationType = "ATTENDING"
	NotAttending RegistrationType = "NOT_ATTENDING"
)

func (t RegistrationType) Valid() bool {
	return t == Attending || t == NotAttending
}

// Registration is one member's answer for one event. The storage layer
// enforces at most one row per (user, event); writes for an existing pair
// update that row in place.
type Registration struct {
	Base
	UserID  string           `gorm:"size:36;not null;uniqueIndex:idx_registrations_user_event" json:"user_id"`
	EventID string           `gorm:"size:36;not null;uniqueIndex:idx_registrations_user_event;index" json:"event_id"`
	Type    RegistrationType `gorm:"size:16;not null" json:"type"`
	Comment *string          `gorm:"size:500" json:"comment"`

	// Relations
	User  *User      `json:"user,omitempty"`
	Event *TeamEvent `json:"-"`
}
