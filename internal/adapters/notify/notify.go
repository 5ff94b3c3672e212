// Package notify delivers alert messages to observers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/hotspot/pkg/logger"
)

// Sender delivers one message. On success it returns a provider receipt id.
// Senders never retry; a failed send is reported to the caller once.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
	Name() string
}

// Sentinel kinds for delivery errors.
var (
	ErrNoRecipient      = errors.New("recipient is required")
	ErrNotConfigured    = errors.New("sender is not configured")
	ErrUnknownNotifier  = errors.New("unknown notifier")
	ErrProviderRejected = errors.New("provider rejected message")
)

// DemoReceipt is the receipt returned by LogSender.
const DemoReceipt = "demo_mode"

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	log logger.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(l logger.Logger) *LogSender {
	if l == nil {
		l = logger.Nop()
	}
	return &LogSender{log: l}
}

// Name implements Sender.
func (s *LogSender) Name() string { return "log" }

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, to, body string) (string, error) {
	if to == "" {
		return "", ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.log.Info(ctx, "demo mode alert", logger.String("to", to), logger.String("body", body))
	return DemoReceipt, nil
}

// Settings selects and configures a sender.
type Settings struct {
	Notifier string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	KafkaBrokers []string
	KafkaTopic   string
}

func (s Settings) twilioReady() bool {
	return s.TwilioAccountSID != "" && s.TwilioAuthToken != "" && s.TwilioFromNumber != ""
}

// New builds the sender named by st.Notifier: "log", "twilio", "kafka" or
// "auto". Auto picks Twilio when all of its credentials are set and falls
// back to the log sender otherwise.
func New(st Settings, l logger.Logger) (Sender, error) {
	if l == nil {
		l = logger.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(st.Notifier)) {
	case "", "auto":
		if st.twilioReady() {
			return NewTwilioSender(st.TwilioAccountSID, st.TwilioAuthToken, st.TwilioFromNumber), nil
		}
		l.Warn(context.Background(), "twilio credentials not set, alerts are logged only")
		return NewLogSender(l), nil
	case "log":
		return NewLogSender(l), nil
	case "twilio":
		if !st.twilioReady() {
			return nil, fmt.Errorf("%w: twilio needs account sid, auth token and from number", ErrNotConfigured)
		}
		return NewTwilioSender(st.TwilioAccountSID, st.TwilioAuthToken, st.TwilioFromNumber), nil
	case "kafka":
		if len(st.KafkaBrokers) == 0 || st.KafkaTopic == "" {
			return nil, fmt.Errorf("%w: kafka needs brokers and a topic", ErrNotConfigured)
		}
		return NewKafkaSender(st.KafkaBrokers, st.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotifier, st.Notifier)
	}
}

// Close releases resources held by s, if any.
func Close(s Sender) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
