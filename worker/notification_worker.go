package worker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"sporty/models"
	"sporty/services"
	"sporty/utils"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(data utils.EmailData) error
}

// PushSender delivers one web push message.
type PushSender interface {
	Send(ctx context.Context, target utils.PushTarget, payload utils.PushPayload) error
}

// PushStore finds the endpoints of recipients and prunes dead ones.
type PushStore interface {
	ListByUsers(ctx context.Context, userIDs []string) ([]models.PushSubscription, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

// NotificationWorker drains the notification queue in the background. It is
// the only goroutine the service starts besides the HTTP server. Its only
// store writes are deletions of push endpoints the push service reports gone.
type NotificationWorker struct {
	queue  chan services.Notification
	sender Sender
	pusher PushSender
	subs   PushStore
	logger *logrus.Entry
	now    func() time.Time
}

func NewNotificationWorker(sender Sender, queueSize int, logger *logrus.Entry) *NotificationWorker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &NotificationWorker{
		queue:  make(chan services.Notification, queueSize),
		sender: sender,
		logger: logger.WithField("component", "notifications"),
		now:    time.Now,
	}
}

// WithPush turns on web push delivery next to mail.
func (w *NotificationWorker) WithPush(pusher PushSender, subs PushStore) *NotificationWorker {
	w.pusher = pusher
	w.subs = subs
	return w
}

// Enqueue hands n to the worker without blocking. It reports false when the
// queue is full or ctx is already done.
func (w *NotificationWorker) Enqueue(ctx context.Context, n services.Notification) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case w.queue <- n:
		return true
	default:
		utils.LogError("notification_queue_full", nil, map[string]interface{}{
			"template": n.Template,
			"subject":  n.Subject,
		})
		return false
	}
}

func (w *NotificationWorker) Start(ctx context.Context) {
	w.logger.Info("notification worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.WithField("pending", len(w.queue)).Info("notification worker shutting down")
			return
		case n := <-w.queue:
			w.deliver(ctx, n)
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, n services.Notification) {
	mailed := w.mail(n)
	pushed := w.push(ctx, n)
	w.logger.WithFields(logrus.Fields{
		"template":   n.Template,
		"recipients": len(n.To),
		"mailed":     mailed,
		"pushed":     pushed,
	}).Info("notification delivered")
}

// mail sends one message per valid, opted-in recipient and returns how many
// went out. Failures are logged; nothing is retried.
func (w *NotificationWorker) mail(n services.Notification) int {
	if n.Template == "" || w.sender == nil {
		return 0
	}
	sent := 0
	for _, r := range n.To {
		if r.EmailOptOut {
			continue
		}
		if !utils.ValidRecipient(r.Email) {
			w.logger.WithField("email", r.Email).Warn("skipping invalid recipient")
			continue
		}
		err := w.sender.Send(utils.EmailData{
			Subject:  n.Subject,
			To:       []string{r.Email},
			Template: n.Template,
			Data:     n.Data,
			Year:     w.now().Year(),
		})
		if err != nil {
			utils.LogError("notification_send_failed", err, map[string]interface{}{
				"template": n.Template,
				"email":    r.Email,
			})
			continue
		}
		sent++
	}
	return sent
}

// push sends n.Push to every endpoint of the recipients and deletes the
// endpoints the push service reports gone.
func (w *NotificationWorker) push(ctx context.Context, n services.Notification) int {
	if n.Push == nil || w.pusher == nil || w.subs == nil {
		return 0
	}
	seen := make(map[string]bool, len(n.To))
	userIDs := make([]string, 0, len(n.To))
	for _, r := range n.To {
		if r.UserID != "" && !seen[r.UserID] {
			seen[r.UserID] = true
			userIDs = append(userIDs, r.UserID)
		}
	}
	subs, err := w.subs.ListByUsers(ctx, userIDs)
	if err != nil {
		utils.LogError("push_lookup_failed", err, map[string]interface{}{"users": len(userIDs)})
		return 0
	}

	sent := 0
	var gone []string
	for _, sub := range subs {
		err := w.pusher.Send(ctx, utils.PushTarget{
			Endpoint: sub.Endpoint,
			P256dh:   sub.P256dh,
			Auth:     sub.Auth,
		}, *n.Push)
		switch {
		case errors.Is(err, utils.ErrPushGone):
			gone = append(gone, sub.ID)
		case err != nil:
			utils.LogError("push_send_failed", err, map[string]interface{}{
				"user_id":  sub.UserID,
				"endpoint": sub.Endpoint,
			})
		default:
			sent++
		}
	}

	if len(gone) > 0 {
		if err := w.subs.DeleteByIDs(ctx, gone); err != nil {
			utils.LogError("push_prune_failed", err, map[string]interface{}{"subscriptions": len(gone)})
		} else {
			w.logger.WithField("subscriptions", len(gone)).Info("pruned expired push subscriptions")
		}
	}
	return sent
}
