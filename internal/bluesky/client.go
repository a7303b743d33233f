// Package bluesky publishes threads of posts to Bluesky.
package bluesky

import (
	"context"

	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/models"
)

// ReplyRef links a post into a thread. Root is the first post of the thread and Parent is the
// post being answered.
type ReplyRef struct {
	Root   models.PostRef
	Parent models.PostRef
}

// SocialClient is the subset of the Bluesky API the publisher needs.
// This interface allows the publisher to be tested with mock implementations.
type SocialClient interface {
	// Login creates a session for the account. It must be called before CreatePost.
	Login(ctx context.Context, identifier, password string) error

	// CreatePost creates a post. A nil reply creates a top-level post.
	CreatePost(ctx context.Context, text string, reply *ReplyRef) (models.PostRef, error)
}

// ClientFactory creates a fresh, logged-out SocialClient. Logins are never shared between calls.
type ClientFactory func(cfg config.BlueskyConfig) SocialClient

// NewXRPCClientFactory returns a ClientFactory that talks to the configured Bluesky host.
func NewXRPCClientFactory() ClientFactory {
	return func(cfg config.BlueskyConfig) SocialClient {
		return NewXRPCClient(cfg.Host, cfg.Timeout)
	}
}
