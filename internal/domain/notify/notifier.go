package notify

import "context"

// Notifier delivers short operational messages to the console operators.
// It decouples the core from the concrete messaging channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
