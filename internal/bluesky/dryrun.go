package bluesky

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/models"
)

// DryRunClient accepts any credentials and logs posts instead of sending them.
type DryRunClient struct {
	mu     sync.Mutex
	handle string
	posts  []DryRunPost
}

// DryRunPost is a post recorded by DryRunClient.
type DryRunPost struct {
	Ref   models.PostRef
	Text  string
	Reply *ReplyRef
}

// NewDryRunClientFactory returns a ClientFactory producing DryRunClients.
func NewDryRunClientFactory() ClientFactory {
	return func(config.BlueskyConfig) SocialClient {
		return &DryRunClient{}
	}
}

func (c *DryRunClient) Login(_ context.Context, identifier, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = identifier
	log.Printf("DryRunClient: logged in as %s", identifier)
	return nil
}

func (c *DryRunClient) CreatePost(ctx context.Context, text string, reply *ReplyRef) (models.PostRef, error) {
	if err := ctx.Err(); err != nil {
		return models.PostRef{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == "" {
		return models.PostRef{}, fmt.Errorf("not logged in")
	}

	rkey := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	ref := models.PostRef{
		URI: fmt.Sprintf("at://%s/%s/%s", c.handle, postCollection, rkey),
		CID: "dryrun-" + rkey,
	}
	c.posts = append(c.posts, DryRunPost{Ref: ref, Text: text, Reply: reply})

	log.Printf("DryRunClient: post %d (%d chars): %q", len(c.posts), len([]rune(text)), text)
	return ref, nil
}

// Posts returns the posts recorded so far.
func (c *DryRunClient) Posts() []DryRunPost {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DryRunPost(nil), c.posts...)
}

// Ensure DryRunClient implements SocialClient
var _ SocialClient = (*DryRunClient)(nil)
