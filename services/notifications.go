package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/models"
	"sporty/repository"
	"sporty/utils"
)

var (
	errSignedInOnly = apperrors.Forbidden("you must be signed in")
	errPushDisabled = apperrors.Invalid("push", "push notifications are not configured")
	errQueueFull    = apperrors.Internal("notification queue is full", nil)
)

const (
	settingsPath      = "/me/settings"
	testNotifySubject = "Test notification from Sporty"
)

// PushSubscriptionInput is a browser's push subscription.
type PushSubscriptionInput struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// PushStatus tells a client whether push is available and how many of the
// caller's browsers are subscribed.
type PushStatus struct {
	Enabled           bool   `json:"enabled"`
	PublicKey         string `json:"publicKey,omitempty"`
	SubscriptionCount int64  `json:"subscriptionCount"`
}

// NotificationService manages a user's own notification channels: the mail
// opt-out, web push endpoints and test sends.
type NotificationService struct {
	Users     repository.UserRepository
	Push      repository.PushSubscriptionRepository
	Notifier  Notifier
	PushKey   string
	PublicURL string
	Logger    *logrus.Entry
}

// NewNotificationService wires the settings endpoints. An empty pushKey means
// web push is not configured.
func NewNotificationService(store *repository.Store, notifier Notifier, pushKey, publicURL string, logger *logrus.Entry) *NotificationService {
	if notifier == nil {
		notifier = NopNotifier
	}
	return &NotificationService{
		Users:     store.Users,
		Push:      store.PushSubscriptions,
		Notifier:  notifier,
		PushKey:   pushKey,
		PublicURL: strings.TrimRight(publicURL, "/"),
		Logger:    logger.WithField("component", "notifications"),
	}
}

// EmailStatus reports whether the caller receives notification mail.
func (s *NotificationService) EmailStatus(ctx context.Context, actor *models.User) (bool, error) {
	if actor == nil {
		return false, errSignedInOnly
	}
	user, err := s.Users.FindByID(ctx, actor.ID)
	if err != nil {
		return false, storeError(err, "user not found")
	}
	return user.EmailNotificationsEnabled, nil
}

func (s *NotificationService) SetEmailStatus(ctx context.Context, actor *models.User, enabled bool) error {
	if actor == nil {
		return errSignedInOnly
	}
	if err := s.Users.SetEmailNotifications(ctx, actor.ID, enabled); err != nil {
		return storeError(err, "user not found")
	}
	utils.LogEvent("email_notifications_changed", map[string]interface{}{
		"user_id": actor.ID,
		"enabled": enabled,
	})
	return nil
}

// SendTestEmail queues a test mail to the caller, even when they opted out.
func (s *NotificationService) SendTestEmail(ctx context.Context, actor *models.User) error {
	if actor == nil {
		return errSignedInOnly
	}
	to := recipientOf(actor)
	to.EmailOptOut = false
	if !s.Notifier.Enqueue(ctx, Notification{
		Template: TemplateTestNotification,
		Subject:  testNotifySubject,
		To:       []Recipient{to},
		Data:     map[string]interface{}{"Link": s.PublicURL + settingsPath},
	}) {
		return errQueueFull
	}
	return nil
}

// Subscribe stores a browser endpoint for the caller. An endpoint already
// known under another user moves to the caller.
func (s *NotificationService) Subscribe(ctx context.Context, actor *models.User, in PushSubscriptionInput) error {
	if actor == nil {
		return errSignedInOnly
	}
	in.Endpoint = strings.TrimSpace(in.Endpoint)
	if u, err := url.Parse(in.Endpoint); err != nil || u.Scheme != "https" || u.Host == "" {
		return apperrors.Invalid("endpoint", "endpoint must be an https URL")
	}
	if in.P256dh == "" || in.Auth == "" {
		return apperrors.Invalid("keys", "subscription keys are required")
	}

	sub := &models.PushSubscription{
		UserID:   actor.ID,
		Endpoint: in.Endpoint,
		P256dh:   in.P256dh,
		Auth:     in.Auth,
	}
	if err := s.Push.Upsert(ctx, sub); err != nil {
		return storeError(err, "user not found")
	}
	s.Logger.WithField("user_id", actor.ID).Info("push subscription stored")
	return nil
}

// Unsubscribe drops the caller's endpoint. Unknown endpoints are ignored.
func (s *NotificationService) Unsubscribe(ctx context.Context, actor *models.User, endpoint string) error {
	if actor == nil {
		return errSignedInOnly
	}
	if _, err := s.Push.DeleteByUserAndEndpoint(ctx, actor.ID, strings.TrimSpace(endpoint)); err != nil {
		return storeError(err, "subscription not found")
	}
	return nil
}

func (s *NotificationService) PushStatus(ctx context.Context, actor *models.User) (PushStatus, error) {
	if actor == nil {
		return PushStatus{}, errSignedInOnly
	}
	n, err := s.Push.CountByUser(ctx, actor.ID)
	if err != nil {
		return PushStatus{}, storeError(err, "user not found")
	}
	return PushStatus{
		Enabled:           s.PushKey != "",
		PublicKey:         s.PushKey,
		SubscriptionCount: n,
	}, nil
}

// SendTestPush queues a push message to every browser of the caller.
func (s *NotificationService) SendTestPush(ctx context.Context, actor *models.User) error {
	if actor == nil {
		return errSignedInOnly
	}
	if s.PushKey == "" {
		return errPushDisabled
	}
	if !s.Notifier.Enqueue(ctx, Notification{
		To: []Recipient{recipientOf(actor)},
		Push: &utils.PushPayload{
			Title: "Test notification",
			Body:  "This is a test notification from Sporty.",
			URL:   settingsPath,
		},
	}) {
		return errQueueFull
	}
	return nil
}
