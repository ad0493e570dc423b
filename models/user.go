package models

// User represents an account. Sign-in and session issuance live outside this
// service; users arrive here through the identity provider or membership sync.
type User struct {
	Base

	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Username *string `gorm:"uniqueIndex" json:"username,omitempty"`
	Name     string  `gorm:"not null" json:"name"`
	Image    *string `json:"image,omitempty"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`
	// IsAdmin marks a site administrator. Site administrators pass every team
	// access check with the ADMIN role.
	IsAdmin bool `gorm:"default:false" json:"is_admin"`
	// EmailNotificationsEnabled opts the user in to notification mail.
	EmailNotificationsEnabled bool `gorm:"default:true" json:"email_notifications_enabled"`

	// Relations
	Memberships       []TeamMember       `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
	Registrations     []Registration     `gorm:"foreignKey:UserID" json:"-"`
	PushSubscriptions []PushSubscription `gorm:"foreignKey:UserID" json:"-"`
}

// UserSummary is the public projection of a user embedded in listings.
type UserSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Image: u.Image}
}
