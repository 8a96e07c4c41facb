package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSOpts holds configuration for the Twilio SMS channel.
type SMSOpts struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// SMSOption configures the SMS channel.
type SMSOption func(*SMSOpts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) SMSOption {
	return func(o *SMSOpts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) SMSOption {
	return func(o *SMSOpts) { o.AuthToken = token }
}

// WithFromNumber sets the sending number.
func WithFromNumber(from string) SMSOption {
	return func(o *SMSOpts) { o.From = from }
}

// WithToNumber sets the user's number. Single-user app, single recipient.
func WithToNumber(to string) SMSOption {
	return func(o *SMSOpts) { o.To = to }
}

// messageCreator is the Twilio API surface used, extracted for tests.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSNotifier delivers notifications as SMS through Twilio.
type SMSNotifier struct {
	api  messageCreator
	from string
	to   string
}

// NewSMSNotifier builds the SMS channel. Options fall back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER, and
// TWILIO_TO_NUMBER environment variables. Missing credentials yield a nil
// notifier and no error so startup can simply skip the channel.
func NewSMSNotifier(opts ...SMSOption) (*SMSNotifier, error) {
	var cfg SMSOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.To == "" {
		cfg.To = os.Getenv("TWILIO_TO_NUMBER")
	}
	slog.Debug("notify.NewSMSNotifier config loaded",
		"account_sid_set", cfg.AccountSID != "",
		"auth_token_set", cfg.AuthToken != "",
		"from_set", cfg.From != "",
		"to_set", cfg.To != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" || cfg.To == "" {
		slog.Info("notify: SMS channel not configured, skipping")
		return nil, nil
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &SMSNotifier{api: client.Api, from: cfg.From, to: cfg.To}, nil
}

func (s *SMSNotifier) Name() string { return "sms" }

// Send delivers one notification as a single SMS.
func (s *SMSNotifier) Send(ctx context.Context, n Notification) error {
	body := n.Title
	if n.Body != "" {
		body = n.Title + "\n" + n.Body
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(s.to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.api.CreateMessage(params); err != nil {
		slog.Error("SMSNotifier.Send failed", "kind", n.Kind, "error", err)
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	slog.Debug("SMSNotifier.Send delivered", "kind", n.Kind)
	return nil
}
