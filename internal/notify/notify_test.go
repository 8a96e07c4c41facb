package notify

import (
	"context"
	"errors"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/sarahkitay/cute-schedule/internal/store"
)

type recordingNotifier struct {
	name string
	sent []Notification
	err  error
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(ctx context.Context, n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func TestMultiFansOutAndSwallowsFailures(t *testing.T) {
	good := &recordingNotifier{name: "good"}
	bad := &recordingNotifier{name: "bad", err: errors.New("boom")}
	absent := &recordingNotifier{name: "absent", err: ErrNotConfigured}

	m := NewMulti(good, bad, absent, nil)
	n := Notification{Kind: KindTaskReminder, Title: "water the plants"}
	if err := m.Send(context.Background(), n); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(good.sent) != 1 || good.sent[0].Title != "water the plants" {
		t.Errorf("good channel sent = %v, want one notification", good.sent)
	}
	// Failing and unconfigured channels were still attempted.
	if len(bad.sent) != 1 || len(absent.sent) != 1 {
		t.Error("every channel should be attempted")
	}
}

func TestPushServiceSubscribeAndPersist(t *testing.T) {
	kv := store.NewInMemoryStore()
	svc, err := NewPushService(kv, WithVAPIDKeys("pub", "priv"))
	if err != nil {
		t.Fatalf("NewPushService() error = %v", err)
	}
	if !svc.Configured() {
		t.Fatal("Configured() = false with keys set")
	}
	if svc.PublicKey() != "pub" {
		t.Errorf("PublicKey() = %q, want pub", svc.PublicKey())
	}

	sub, err := svc.Subscribe("https://push.example/ep1", "p256", "auth")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub.ID == "" {
		t.Error("Subscribe() should assign an ID")
	}

	// Same endpoint again refreshes keys instead of duplicating.
	again, err := svc.Subscribe("https://push.example/ep1", "p256-new", "auth-new")
	if err != nil {
		t.Fatalf("Subscribe() refresh error = %v", err)
	}
	if again.ID != sub.ID {
		t.Errorf("refresh changed ID: %q vs %q", again.ID, sub.ID)
	}
	if got := svc.Subscriptions(); len(got) != 1 || got[0].P256dh != "p256-new" {
		t.Errorf("Subscriptions() = %v, want single refreshed entry", got)
	}

	// Survives a reload from the same KV.
	reloaded, err := NewPushService(kv, WithVAPIDKeys("pub", "priv"))
	if err != nil {
		t.Fatalf("NewPushService() reload error = %v", err)
	}
	if got := reloaded.Subscriptions(); len(got) != 1 || got[0].ID != sub.ID {
		t.Errorf("reloaded Subscriptions() = %v, want the persisted entry", got)
	}

	if err := reloaded.Unsubscribe(sub.ID); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if got := reloaded.Subscriptions(); len(got) != 0 {
		t.Errorf("Subscriptions() after unsubscribe = %v, want empty", got)
	}
	// Unknown ID is a no-op.
	if err := reloaded.Unsubscribe("nope"); err != nil {
		t.Errorf("Unsubscribe() unknown ID error = %v", err)
	}
}

func TestPushServiceUnconfigured(t *testing.T) {
	t.Setenv("VAPID_PUBLIC_KEY", "")
	t.Setenv("VAPID_PRIVATE_KEY", "")
	svc, err := NewPushService(store.NewInMemoryStore())
	if err != nil {
		t.Fatalf("NewPushService() error = %v", err)
	}
	if svc.Configured() {
		t.Fatal("Configured() = true without keys")
	}
	if err := svc.Send(context.Background(), Notification{Kind: KindCoach}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Send() error = %v, want ErrNotConfigured", err)
	}
	// Registration still works so the user can subscribe before keys exist.
	if _, err := svc.Subscribe("https://push.example/ep", "k", "a"); err != nil {
		t.Errorf("Subscribe() error = %v", err)
	}
}

func TestPushServiceRejectsEmptyEndpoint(t *testing.T) {
	svc, err := NewPushService(store.NewInMemoryStore(), WithVAPIDKeys("pub", "priv"))
	if err != nil {
		t.Fatalf("NewPushService() error = %v", err)
	}
	if _, err := svc.Subscribe("", "k", "a"); err == nil {
		t.Error("Subscribe() with empty endpoint should fail")
	}
}

type mockMessageCreator struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (m *mockMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	m.params = append(m.params, params)
	return &twilioApi.ApiV2010Message{}, m.err
}

func TestSMSNotifierSend(t *testing.T) {
	mock := &mockMessageCreator{}
	s := &SMSNotifier{api: mock, from: "+15550001111", to: "+15550002222"}

	n := Notification{Kind: KindWrapUp, Title: "Wrap up", Body: "Yoga starts in 10 minutes"}
	if err := s.Send(context.Background(), n); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(mock.params) != 1 {
		t.Fatalf("CreateMessage calls = %d, want 1", len(mock.params))
	}
	p := mock.params[0]
	if p.Body == nil || *p.Body != "Wrap up\nYoga starts in 10 minutes" {
		t.Errorf("Body = %v, want title and body joined", p.Body)
	}
	if p.To == nil || *p.To != "+15550002222" {
		t.Errorf("To = %v, want the user number", p.To)
	}
}

func TestSMSNotifierSendError(t *testing.T) {
	mock := &mockMessageCreator{err: errors.New("twilio down")}
	s := &SMSNotifier{api: mock, from: "+1", to: "+2"}
	if err := s.Send(context.Background(), Notification{Title: "x"}); err == nil {
		t.Error("Send() error = nil, want wrapped failure")
	}
}

func TestNewSMSNotifierSkipsWhenUnconfigured(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	t.Setenv("TWILIO_TO_NUMBER", "")
	s, err := NewSMSNotifier()
	if err != nil {
		t.Fatalf("NewSMSNotifier() error = %v", err)
	}
	if s != nil {
		t.Error("NewSMSNotifier() without credentials should return nil")
	}
}
