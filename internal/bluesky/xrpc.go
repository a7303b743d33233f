package bluesky

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/vdavid/mailsky/internal/models"
)

// postCollection is the record collection of Bluesky posts.
const postCollection = "app.bsky.feed.post"

// XRPCClient is a SocialClient backed by the AT Protocol XRPC API.
type XRPCClient struct {
	client *xrpc.Client
	now    func() time.Time
}

// NewXRPCClient creates a client for the given service URL, e.g. https://bsky.social.
func NewXRPCClient(host string, timeout time.Duration) *XRPCClient {
	return &XRPCClient{
		client: &xrpc.Client{
			Client: &http.Client{Timeout: timeout},
			Host:   host,
		},
		now: time.Now,
	}
}

// Login creates a session with com.atproto.server.createSession.
func (c *XRPCClient) Login(ctx context.Context, identifier, password string) error {
	session, err := atproto.ServerCreateSession(ctx, c.client, &atproto.ServerCreateSession_Input{
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	c.client.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}

	return nil
}

// CreatePost creates an app.bsky.feed.post record in the logged-in account's repository.
func (c *XRPCClient) CreatePost(ctx context.Context, text string, reply *ReplyRef) (models.PostRef, error) {
	if c.client.Auth == nil {
		return models.PostRef{}, errors.New("not logged in")
	}

	post := &bsky.FeedPost{
		LexiconTypeID: postCollection,
		Text:          text,
		CreatedAt:     c.now().UTC().Format(time.RFC3339Nano),
	}
	if reply != nil {
		post.Reply = &bsky.FeedPost_ReplyRef{
			Root:   strongRef(reply.Root),
			Parent: strongRef(reply.Parent),
		}
	}

	out, err := atproto.RepoCreateRecord(ctx, c.client, &atproto.RepoCreateRecord_Input{
		Repo:       c.client.Auth.Did,
		Collection: postCollection,
		Record:     &lexutil.LexiconTypeDecoder{Val: post},
	})
	if err != nil {
		return models.PostRef{}, fmt.Errorf("failed to create post: %w", err)
	}

	return models.PostRef{URI: out.Uri, CID: out.Cid}, nil
}

func strongRef(ref models.PostRef) *atproto.RepoStrongRef {
	return &atproto.RepoStrongRef{Uri: ref.URI, Cid: ref.CID}
}

// isUnauthorized reports whether err carries an XRPC 401 response.
func isUnauthorized(err error) bool {
	var xrpcErr *xrpc.Error
	return errors.As(err, &xrpcErr) && xrpcErr.StatusCode == http.StatusUnauthorized
}

// Ensure XRPCClient implements SocialClient
var _ SocialClient = (*XRPCClient)(nil)
