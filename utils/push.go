package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrPushGone reports an endpoint the push service no longer accepts. The
// subscription should be deleted.
var ErrPushGone = errors.New("push subscription is gone")

// PushConfig holds the VAPID key pair. Push is off when either key is empty.
type PushConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
	TTL        int
}

func (c PushConfig) Enabled() bool {
	return c.PublicKey != "" && c.PrivateKey != ""
}

// PushPayload is the JSON body the service worker renders.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// PushTarget is one browser endpoint with its encryption keys.
type PushTarget struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Pusher delivers web push messages signed with the VAPID key pair.
type Pusher struct {
	config PushConfig
	client *http.Client
}

func NewPusher(cfg PushConfig) *Pusher {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * 60 * 60
	}
	return &Pusher{config: cfg, client: http.DefaultClient}
}

// Send encrypts payload for target and posts it to the push service.
func (p *Pusher) Send(ctx context.Context, target PushTarget, payload PushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: target.Endpoint,
		Keys: webpush.Keys{
			P256dh: target.P256dh,
			Auth:   target.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      p.client,
		Subscriber:      p.config.Subscriber,
		VAPIDPublicKey:  p.config.PublicKey,
		VAPIDPrivateKey: p.config.PrivateKey,
		TTL:             p.config.TTL,
	})
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrPushGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}
