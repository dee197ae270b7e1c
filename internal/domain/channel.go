package domain

import "context"

// Channel is a chat transport. Channels publish inbound messages to the
// bus and register an outbound handler for replies; they carry no agent
// logic.
type Channel interface {
	Name() string
	// Start blocks until the context is cancelled or the transport fails.
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
}
