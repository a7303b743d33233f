package bluesky

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/models"
)

// ProgressFunc receives an event after each post and when a run ends.
type ProgressFunc func(event models.ProgressEvent)

// PublishResult describes a thread that was published completely.
type PublishResult struct {
	RunID string
	Posts []models.PostRef
}

// Publisher posts threads to one Bluesky account.
type Publisher struct {
	cfg       config.BlueskyConfig
	newClient ClientFactory
	progress  ProgressFunc
	newRunID  func() string
}

// PublisherOption customizes a Publisher.
type PublisherOption func(*Publisher)

// WithClientFactory replaces the factory that creates SocialClients.
func WithClientFactory(factory ClientFactory) PublisherOption {
	return func(p *Publisher) {
		p.newClient = factory
	}
}

// WithProgress registers a callback for publish progress events.
func WithProgress(progress ProgressFunc) PublisherOption {
	return func(p *Publisher) {
		p.progress = progress
	}
}

// NewPublisher creates a new Publisher for the given account.
func NewPublisher(cfg config.BlueskyConfig, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		cfg:       cfg,
		newClient: NewXRPCClientFactory(),
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check logs in with the configured credentials and does nothing else.
func (p *Publisher) Check(ctx context.Context) error {
	_, err := p.login(ctx)
	return err
}

// Publish posts chunks as one thread, strictly in order. The first chunk is the root and every
// later chunk replies to its predecessor. The first failure stops the run; posts created before
// it are not deleted and are listed in the returned *PublishError.
//
// The configured timeout bounds each network call on its own, so long threads are not cut off
// halfway by a deadline over the whole run.
func (p *Publisher) Publish(ctx context.Context, chunks []string) (*PublishResult, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyThread
	}

	client, err := p.login(ctx)
	if err != nil {
		return nil, err
	}

	runID := p.newRunID()
	total := len(chunks)
	log.Printf("Publisher: run %s started with %d posts", runID, total)

	state := chainState{}
	for i, text := range chunks {
		postCtx, cancel := p.withTimeout(ctx)
		state, err = state.post(postCtx, client, text)
		cancel()
		if err != nil {
			log.Printf("Publisher: run %s failed at post %d of %d: %v", runID, i+1, total, err)
			p.emit(models.ProgressEvent{Type: models.ProgressFailed, RunID: runID, Index: i, Total: total, Error: err.Error()})
			return nil, &PublishError{RunID: runID, Index: i, Total: total, Published: state.posts, Err: err}
		}

		posted := state.posts[len(state.posts)-1]
		p.emit(models.ProgressEvent{Type: models.ProgressPosted, RunID: runID, Index: i, Total: total, Post: &posted})
	}

	log.Printf("Publisher: run %s published %d posts", runID, total)
	p.emit(models.ProgressEvent{Type: models.ProgressDone, RunID: runID, Index: total - 1, Total: total})

	return &PublishResult{RunID: runID, Posts: state.posts}, nil
}

// login creates a fresh client and logs it in.
func (p *Publisher) login(ctx context.Context) (SocialClient, error) {
	if !p.cfg.IsConfigured() {
		return nil, config.ErrBlueskyNotConfigured
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	client := p.newClient(p.cfg)
	if err := client.Login(ctx, p.cfg.Handle, p.cfg.AppPassword); err != nil {
		return nil, &AuthError{Unauthorized: isUnauthorized(err), Err: err}
	}

	return client, nil
}

// withTimeout bounds a single call to the social network.
func (p *Publisher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, p.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (p *Publisher) emit(event models.ProgressEvent) {
	if p.progress != nil {
		p.progress(event)
	}
}

// chainState is the accumulator of the publish fold. root is set by the first post and never
// changes; parent is the most recent post.
type chainState struct {
	root   *models.PostRef
	parent *models.PostRef
	posts  []models.PostRef
}

// replyRef returns the reply reference for the next post, or nil before the first post.
func (s chainState) replyRef() *ReplyRef {
	if s.root == nil {
		return nil
	}
	return &ReplyRef{Root: *s.root, Parent: *s.parent}
}

// post creates the next post of the chain and returns the advanced state.
// On failure the returned state is s unchanged.
func (s chainState) post(ctx context.Context, client SocialClient, text string) (chainState, error) {
	if err := ctx.Err(); err != nil {
		return s, err
	}

	ref, err := client.CreatePost(ctx, text, s.replyRef())
	if err != nil {
		return s, err
	}

	root := s.root
	if root == nil {
		root = &ref
	}

	posts := make([]models.PostRef, len(s.posts), len(s.posts)+1)
	copy(posts, s.posts)

	return chainState{
		root:   root,
		parent: &ref,
		posts:  append(posts, ref),
	}, nil
}
