package alerts

import (
	"context"
	"log/slog"

	"netmon/internal/notifier"
)

// Dispatcher wraps the notification provider. Send reports success or
// failure and never panics; a failed alert is dropped, not queued.
type Dispatcher struct {
	enabled  bool
	provider notifier.Provider
	log      *slog.Logger
}

func NewDispatcher(enabled bool, provider notifier.Provider, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{enabled: enabled, provider: provider, log: logger}
}

// Send makes exactly one delivery attempt.
func (d *Dispatcher) Send(ctx context.Context, message string) bool {
	if !d.enabled {
		d.log.Info("alerts disabled")
		return false
	}
	if d.provider == nil || !d.provider.Configured() {
		d.log.Error("alert provider not configured")
		return false
	}
	if err := d.provider.Send(ctx, message); err != nil {
		d.log.Error("send alert", "err", err)
		return false
	}
	d.log.Info("alert sent", "message", message)
	return true
}
