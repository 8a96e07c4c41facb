package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"

	"github.com/sarahkitay/cute-schedule/internal/store"
)

// PushSubscription is one registered browser endpoint, persisted as-is.
type PushSubscription struct {
	ID        string    `json:"id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}

// PushOpts holds VAPID configuration for the push channel.
type PushOpts struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

// PushOption configures the push service.
type PushOption func(*PushOpts)

// WithVAPIDKeys sets the VAPID key pair.
func WithVAPIDKeys(public, private string) PushOption {
	return func(o *PushOpts) {
		o.VAPIDPublicKey = public
		o.VAPIDPrivateKey = private
	}
}

// WithSubscriber sets the VAPID subscriber contact (mailto: or URL).
func WithSubscriber(sub string) PushOption {
	return func(o *PushOpts) { o.Subscriber = sub }
}

// PushService delivers notifications over web push and owns the persisted
// subscription list.
type PushService struct {
	mu   sync.Mutex
	subs []PushSubscription
	kv   store.KV
	opts PushOpts
}

// NewPushService loads persisted subscriptions and applies configuration.
// VAPID keys fall back to VAPID_PUBLIC_KEY / VAPID_PRIVATE_KEY env vars. A
// service without keys still registers subscriptions but reports
// ErrNotConfigured on send.
func NewPushService(kv store.KV, opts ...PushOption) (*PushService, error) {
	s := &PushService{kv: kv}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if s.opts.VAPIDPublicKey == "" {
		s.opts.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	}
	if s.opts.VAPIDPrivateKey == "" {
		s.opts.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	}
	if s.opts.Subscriber == "" {
		s.opts.Subscriber = os.Getenv("VAPID_SUBSCRIBER")
	}
	if _, err := store.LoadJSON(kv, store.KeyPushSubscriptions, &s.subs); err != nil {
		return nil, fmt.Errorf("failed to load push subscriptions: %w", err)
	}
	slog.Debug("notify.NewPushService: loaded", "subscriptions", len(s.subs), "configured", s.Configured())
	return s, nil
}

// Configured reports whether the VAPID key pair is present.
func (s *PushService) Configured() bool {
	return s.opts.VAPIDPublicKey != "" && s.opts.VAPIDPrivateKey != ""
}

// PublicKey returns the VAPID public key browsers need to subscribe.
func (s *PushService) PublicKey() string { return s.opts.VAPIDPublicKey }

// Subscribe registers a browser endpoint. Re-registering the same endpoint
// replaces the stored keys instead of duplicating it.
func (s *PushService) Subscribe(endpoint, p256dh, auth string) (PushSubscription, error) {
	if endpoint == "" {
		return PushSubscription{}, fmt.Errorf("push subscription endpoint must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub.Endpoint == endpoint {
			s.subs[i].P256dh = p256dh
			s.subs[i].Auth = auth
			if err := s.persistLocked(); err != nil {
				return PushSubscription{}, err
			}
			slog.Debug("PushService.Subscribe: refreshed existing endpoint", "id", sub.ID)
			return s.subs[i], nil
		}
	}

	sub := PushSubscription{
		ID:        uuid.NewString(),
		Endpoint:  endpoint,
		P256dh:    p256dh,
		Auth:      auth,
		CreatedAt: time.Now(),
	}
	s.subs = append(s.subs, sub)
	if err := s.persistLocked(); err != nil {
		return PushSubscription{}, err
	}
	slog.Info("PushService.Subscribe: new subscription", "id", sub.ID, "total", len(s.subs))
	return sub, nil
}

// Unsubscribe removes a subscription by ID. Unknown IDs are a no-op.
func (s *PushService) Unsubscribe(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.ID == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return s.persistLocked()
		}
	}
	return nil
}

// Subscriptions returns a copy of the current list.
func (s *PushService) Subscriptions() []PushSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PushSubscription, len(s.subs))
	copy(out, s.subs)
	return out
}

func (s *PushService) Name() string { return "webpush" }

// Send delivers the notification to every subscription. Endpoints answering
// 404 or 410 are pruned. Other per-endpoint failures are logged and do not
// stop the fan-out.
func (s *PushService) Send(ctx context.Context, n Notification) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	s.mu.Lock()
	subs := make([]PushSubscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if len(subs) == 0 {
		slog.Debug("PushService.Send: no subscriptions")
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	var expired []string
	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, &webpush.Options{
			Subscriber:      s.opts.Subscriber,
			VAPIDPublicKey:  s.opts.VAPIDPublicKey,
			VAPIDPrivateKey: s.opts.VAPIDPrivateKey,
			TTL:             3600,
		})
		if err != nil {
			slog.Warn("PushService.Send: delivery failed", "id", sub.ID, "error", err)
			continue
		}
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			expired = append(expired, sub.ID)
		}
		resp.Body.Close()
	}

	if len(expired) > 0 {
		s.prune(expired)
	}
	return nil
}

// prune drops subscriptions whose endpoints reported themselves gone.
func (s *PushService) prune(ids []string) {
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.subs[:0]
	for _, sub := range s.subs {
		if !gone[sub.ID] {
			kept = append(kept, sub)
		}
	}
	s.subs = kept
	if err := s.persistLocked(); err != nil {
		slog.Warn("PushService.prune: persist failed", "error", err)
	}
	slog.Info("PushService.prune: removed expired subscriptions", "removed", len(ids), "remaining", len(s.subs))
}

func (s *PushService) persistLocked() error {
	return store.SaveJSON(s.kv, store.KeyPushSubscriptions, s.subs)
}
