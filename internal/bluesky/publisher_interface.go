package bluesky

import "context"

// ThreadPublisher defines the interface for publishing threads.
// This interface allows handlers to be tested with mock implementations.
type ThreadPublisher interface {
	// Check verifies the configured credentials by logging in.
	Check(ctx context.Context) error

	// Publish posts chunks as one thread, in order.
	Publish(ctx context.Context, chunks []string) (*PublishResult, error)
}

// Ensure Publisher implements ThreadPublisher interface
var _ ThreadPublisher = (*Publisher)(nil)
