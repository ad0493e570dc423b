package services

import (
	"context"

	"sporty/models"
	"sporty/utils"
)

// Mail templates understood by the notification worker.
const (
	TemplateNewEvent           = "new_event"
	TemplateUnattendedReminder = "unattended_reminder"
	TemplateTestNotification   = "test_notification"
)

// Recipient is one addressee of a notification. EmailOptOut suppresses the
// mail but not the push message.
type Recipient struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	EmailOptOut bool   `json:"emailOptOut"`
}

// Notification is a fan-out request handed to the delivery side channel. An
// empty Template sends no mail; a nil Push sends no push message.
type Notification struct {
	Template string
	Subject  string
	To       []Recipient
	Data     map[string]interface{}
	Push     *utils.PushPayload
}

// Notifier accepts notifications for background delivery. Enqueue never
// blocks and reports whether the notification was accepted; delivery failures
// are logged by the implementation and never reach the caller.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification) bool
}

type nopNotifier struct{}

func (nopNotifier) Enqueue(context.Context, Notification) bool { return true }

// NopNotifier drops every notification.
var NopNotifier Notifier = nopNotifier{}

func recipientsOf(members []models.TeamMember) []Recipient {
	out := make([]Recipient, 0, len(members))
	for _, m := range members {
		if m.User == nil || !m.User.IsActive || m.User.Email == "" {
			continue
		}
		out = append(out, recipientOf(m.User))
	}
	return out
}

func recipientOf(u *models.User) Recipient {
	return Recipient{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		EmailOptOut: !u.EmailNotificationsEnabled,
	}
}
