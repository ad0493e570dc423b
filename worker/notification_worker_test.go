package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"sporty/models"
	"sporty/services"
	"sporty/utils"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []utils.EmailData
	fail map[string]bool
	done chan struct{}
}

func (f *fakeSender) Send(data utils.EmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[data.To[0]] {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, data)
	if f.done != nil {
		f.done <- struct{}{}
	}
	return nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestEnqueueDoesNotBlockWhenFull(t *testing.T) {
	w := NewNotificationWorker(&fakeSender{}, 1, quietLogger())
	ctx := context.Background()

	if !w.Enqueue(ctx, services.Notification{Template: services.TemplateNewEvent}) {
		t.Fatal("first enqueue rejected")
	}
	if w.Enqueue(ctx, services.Notification{Template: services.TemplateNewEvent}) {
		t.Error("enqueue into a full queue accepted")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	w2 := NewNotificationWorker(&fakeSender{}, 4, quietLogger())
	if w2.Enqueue(cancelled, services.Notification{}) {
		t.Error("enqueue with a cancelled context accepted")
	}
}

func TestDeliverSkipsInvalidAndFailedRecipients(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{"down@example.com": true}}
	w := NewNotificationWorker(sender, 1, quietLogger())
	w.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	sent := w.mail(services.Notification{
		Template: services.TemplateUnattendedReminder,
		Subject:  "Reminder: Practice",
		To: []services.Recipient{
			{Email: "ada@example.com", Name: "Ada"},
			{Email: "not-an-address", Name: "Bo"},
			{Email: "down@example.com", Name: "Cy"},
			{Email: "di@example.com", Name: "Di", EmailOptOut: true},
		},
		Data: map[string]interface{}{"EventName": "Practice"},
	})
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	got := sender.sent[0]
	if got.To[0] != "ada@example.com" || got.Template != services.TemplateUnattendedReminder || got.Year != 2025 {
		t.Errorf("email = %+v", got)
	}
}

func TestStartDrainsQueue(t *testing.T) {
	sender := &fakeSender{done: make(chan struct{}, 2)}
	w := NewNotificationWorker(sender, 4, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()

	w.Enqueue(ctx, services.Notification{
		Template: services.TemplateNewEvent,
		To:       []services.Recipient{{Email: "ada@example.com"}, {Email: "bo@example.com"}},
	})
	for i := 0; i < 2; i++ {
		select {
		case <-sender.done:
		case <-time.After(2 * time.Second):
			t.Fatal("notification not delivered")
		}
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

type fakePusher struct {
	gone map[string]bool
	sent []string
}

func (p *fakePusher) Send(_ context.Context, target utils.PushTarget, payload utils.PushPayload) error {
	if p.gone[target.Endpoint] {
		return utils.ErrPushGone
	}
	p.sent = append(p.sent, target.Endpoint+" "+payload.Title)
	return nil
}

type fakePushStore struct {
	subs    []models.PushSubscription
	deleted []string
}

func (s *fakePushStore) ListByUsers(_ context.Context, userIDs []string) ([]models.PushSubscription, error) {
	want := map[string]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var out []models.PushSubscription
	for _, sub := range s.subs {
		if want[sub.UserID] {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakePushStore) DeleteByIDs(_ context.Context, ids []string) error {
	s.deleted = append(s.deleted, ids...)
	return nil
}

func TestPushReachesOptedOutUsersAndPrunesGoneEndpoints(t *testing.T) {
	sub := func(id, userID, endpoint string) models.PushSubscription {
		s := models.PushSubscription{UserID: userID, Endpoint: endpoint}
		s.ID = id
		return s
	}
	store := &fakePushStore{subs: []models.PushSubscription{
		sub("s1", "ada", "https://push.example.com/a"),
		sub("s2", "bo", "https://push.example.com/b"),
		sub("s3", "bo", "https://push.example.com/old"),
		sub("s4", "cy", "https://push.example.com/c"),
	}}
	pusher := &fakePusher{gone: map[string]bool{"https://push.example.com/old": true}}
	mailer := &fakeSender{}
	w := NewNotificationWorker(mailer, 1, quietLogger()).WithPush(pusher, store)

	n := services.Notification{
		Template: services.TemplateNewEvent,
		Subject:  "New event: Practice",
		To: []services.Recipient{
			{UserID: "ada", Email: "ada@example.com"},
			{UserID: "bo", Email: "bo@example.com", EmailOptOut: true},
		},
		Push: &utils.PushPayload{Title: "New event: Practice"},
	}
	if mailed := w.mail(n); mailed != 1 {
		t.Errorf("mailed = %d, want 1", mailed)
	}
	if pushed := w.push(context.Background(), n); pushed != 2 {
		t.Errorf("pushed = %d, want 2", pushed)
	}
	if len(pusher.sent) != 2 || pusher.sent[1] != "https://push.example.com/b New event: Practice" {
		t.Errorf("sent = %v", pusher.sent)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "s3" {
		t.Errorf("deleted = %v, want [s3]", store.deleted)
	}

	n.Push = nil
	if pushed := w.push(context.Background(), n); pushed != 0 {
		t.Errorf("pushed without payload = %d", pushed)
	}
}

func TestPushOnlyNotificationSendsNoMail(t *testing.T) {
	mailer := &fakeSender{}
	w := NewNotificationWorker(mailer, 1, quietLogger())
	if mailed := w.mail(services.Notification{
		To:   []services.Recipient{{UserID: "ada", Email: "ada@example.com"}},
		Push: &utils.PushPayload{Title: "Test"},
	}); mailed != 0 || len(mailer.sent) != 0 {
		t.Errorf("mailed = %d", mailed)
	}
}
