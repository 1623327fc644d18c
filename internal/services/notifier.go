package services

import "context"

// Notifier delivers out-of-band messages about order events. Implementations
// report Enabled so callers can skip the preference lookups entirely when no
// delivery channel is configured.
type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, recipient, subject, body string) error
}
