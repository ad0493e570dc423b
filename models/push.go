package models

// PushSubscription is one browser endpoint registered for web push. An
// endpoint belongs to a single user; subscribing it again moves it.
type PushSubscription struct {
	Base

	UserID   string `gorm:"size:36;not null;index" json:"user_id"`
	Endpoint string `gorm:"size:1000;not null;uniqueIndex" json:"endpoint"`
	P256dh   string `gorm:"not null" json:"-"`
	Auth     string `gorm:"not null" json:"-"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
