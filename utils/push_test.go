package utils

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
)

func TestPusherMapsPushServiceStatus(t *testing.T) {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		t.Fatal(err)
	}
	browserKey, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatal(err)
	}

	status := http.StatusCreated
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(status)
	}))
	defer srv.Close()

	p := NewPusher(PushConfig{PublicKey: publicKey, PrivateKey: privateKey, Subscriber: "admin@example.com"})
	target := PushTarget{
		Endpoint: srv.URL + "/push/abc",
		P256dh:   base64.RawURLEncoding.EncodeToString(browserKey.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
	payload := PushPayload{Title: "Test", Body: "Hello", URL: "/settings"}

	if err := p.Send(context.Background(), target, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth == "" {
		t.Error("request carried no VAPID authorization")
	}

	status = http.StatusGone
	if err := p.Send(context.Background(), target, payload); !errors.Is(err, ErrPushGone) {
		t.Errorf("410: err = %v, want ErrPushGone", err)
	}
	status = http.StatusInternalServerError
	if err := p.Send(context.Background(), target, payload); err == nil || errors.Is(err, ErrPushGone) {
		t.Errorf("500: err = %v", err)
	}
}

func TestPushConfigEnabled(t *testing.T) {
	if (PushConfig{PublicKey: "pub"}).Enabled() {
		t.Error("enabled without a private key")
	}
	if !(PushConfig{PublicKey: "pub", PrivateKey: "priv"}).Enabled() {
		t.Error("disabled with both keys")
	}
}
