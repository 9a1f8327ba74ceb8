// Package push delivers notifications to device tokens through a push gateway.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	ProviderLog  = "log"
	ProviderExpo = "expo"
)

var (
	// ErrUnsupportedProvider is returned by New for an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported push provider")
	// ErrDelivery indicates the gateway rejected or failed a send.
	ErrDelivery = errors.New("push delivery failed")
	// ErrDeviceNotRegistered indicates the gateway no longer accepts the token.
	ErrDeviceNotRegistered = errors.New("push device not registered")
)

// Message is a single notification addressed to one device token.
type Message struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Sender delivers a message to its token.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Options configures the gateway sender.
type Options struct {
	Endpoint    string
	AccessToken string
	// Rate is the sustained sends per second; zero disables limiting.
	Rate    float64
	Burst   int
	Timeout time.Duration
}

// New returns the sender registered under provider.
func New(provider string, opts Options, logger *slog.Logger) (Sender, error) {
	switch provider {
	case ProviderLog:
		return NewLogSender(logger), nil
	case ProviderExpo:
		return NewExpo(opts, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

type logSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender that only logs messages.
func NewLogSender(logger *slog.Logger) Sender {
	return &logSender{logger: logger.With("sender", ProviderLog)}
}

func (s *logSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("push message", "to", redact(msg.To), "title", msg.Title)
	return nil
}

// redact keeps the token prefix recognizable without logging the secret part.
func redact(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:12] + "***"
}
