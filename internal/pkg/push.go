package pkg

import (
	"errors"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrEndpointGone marks a permanently invalid delivery endpoint; the caller
// should drop the subscription. Other failures are transient.
var ErrEndpointGone = errors.New("push endpoint gone")

type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string // mailto: contact required by the push services
}

type PushSender struct {
	cfg VAPIDConfig
	ttl int
}

func NewPushSender(cfg VAPIDConfig) *PushSender {
	return &PushSender{cfg: cfg, ttl: 86400}
}

func (p *PushSender) Configured() bool {
	return p.cfg.PublicKey != "" && p.cfg.PrivateKey != ""
}

// PublicKey is the VAPID application server key browsers pass to
// pushManager.subscribe.
func (p *PushSender) PublicKey() string {
	return p.cfg.PublicKey
}

// Send pushes payload to one endpoint. Returns ErrEndpointGone on HTTP
// 404/410 so the subscription can be removed.
func (p *PushSender) Send(endpoint, p256dh, auth string, payload []byte) error {
	sub := &webpush.Subscription{
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: p256dh,
			Auth:   auth,
		},
	}
	resp, err := webpush.SendNotification(payload, sub, &webpush.Options{
		Subscriber:      p.cfg.Subject,
		VAPIDPublicKey:  p.cfg.PublicKey,
		VAPIDPrivateKey: p.cfg.PrivateKey,
		TTL:             p.ttl,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return ErrEndpointGone
	}
	if resp.StatusCode >= 400 {
		return errors.New("push delivery failed: " + resp.Status)
	}
	return nil
}
