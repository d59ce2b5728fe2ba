package notifier

import "context"

// Provider delivers one alert message to a configured recipient. The
// dispatcher depends only on this interface.
type Provider interface {
	// Configured reports whether the provider has everything it needs to
	// deliver a message.
	Configured() bool
	// Send makes exactly one delivery attempt.
	Send(ctx context.Context, text string) error
}
