package imap

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/models"
)

// Fetcher reads the most recent messages of a mailbox. Every call opens its own session and
// logs it out before returning; sessions are never shared between calls.
type Fetcher struct {
	cfg    config.IMAPConfig
	dial   DialFunc
	parser BodyParser
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithDialFunc replaces the function that opens IMAP sessions.
func WithDialFunc(dial DialFunc) FetcherOption {
	return func(f *Fetcher) {
		f.dial = dial
	}
}

// WithBodyParser replaces the message source parser.
func WithBodyParser(parser BodyParser) FetcherOption {
	return func(f *Fetcher) {
		f.parser = parser
	}
}

// NewFetcher creates a new Fetcher for the given IMAP account.
func NewFetcher(cfg config.IMAPConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		cfg:    cfg,
		dial:   DialSession,
		parser: EnmimeParser{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ResolveMailbox returns the trimmed mailbox name, or the configured default when it is blank.
func (f *Fetcher) ResolveMailbox(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return f.cfg.Mailbox
}

// FetchRecent returns the newest messages of the mailbox, newest first, capped at the configured
// fetch limit. A blank mailbox selects the configured default.
func (f *Fetcher) FetchRecent(ctx context.Context, mailbox string) ([]models.MailMessage, error) {
	if !f.cfg.IsConfigured() {
		return nil, config.ErrIMAPNotConfigured
	}

	mailbox = f.ResolveMailbox(mailbox)
	messages := make([]models.MailMessage, 0)

	err := f.withSession(ctx, func(s Session) error {
		if _, err := s.Select(mailbox, true); err != nil {
			return &ProtocolError{Op: "select " + mailbox, Err: err}
		}

		uids, err := recentUIDs(s, f.cfg.FetchLimit)
		if err != nil {
			return &ProtocolError{Op: "search", Err: err}
		}

		if len(uids) == 0 {
			return nil
		}

		fetched, err := fetchMessages(s, uids)
		if err != nil {
			return &ProtocolError{Op: "fetch", Err: err}
		}

		for _, imapMsg := range fetched {
			msg, err := f.parseMessage(imapMsg)
			if err != nil {
				if f.cfg.ParseFailurePolicy == config.ParseFailureSkip {
					log.Printf("Warning: Skipping message in %s: %v", mailbox, err)
					continue
				}
				return err
			}
			messages = append(messages, msg)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// ListMailboxes returns the names of all selectable mailboxes.
func (f *Fetcher) ListMailboxes(ctx context.Context) ([]string, error) {
	if !f.cfg.IsConfigured() {
		return nil, config.ErrIMAPNotConfigured
	}

	var names []string
	err := f.withSession(ctx, func(s Session) error {
		var err error
		names, err = listMailboxes(s)
		if err != nil {
			return &ProtocolError{Op: "list", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return names, nil
}

// withSession opens a session, runs fn and always logs out. The configured timeout applies to
// each IMAP command (see DialSession), not to the session as a whole; ctx cancels everything.
// A logout failure is logged and never replaces the error returned by fn.
func (f *Fetcher) withSession(ctx context.Context, fn func(Session) error) error {
	session, err := f.dial(ctx, f.cfg)
	if err != nil {
		return &ProtocolError{Op: "connect", Err: err}
	}

	defer func() {
		if logoutErr := session.Logout(); logoutErr != nil {
			log.Printf("Fetcher: IMAP logout failed: %v", logoutErr)
		}
	}()

	// Commands of go-imap v1 are not context-aware, so cancellation closes the connection.
	if t, ok := session.(terminator); ok {
		stop := context.AfterFunc(ctx, func() {
			_ = t.Terminate()
		})
		defer stop()
	}

	err = fn(session)
	if err != nil && ctx.Err() != nil {
		var protocolErr *ProtocolError
		if errors.As(err, &protocolErr) {
			protocolErr.Err = errors.Join(ctx.Err(), protocolErr.Err)
		}
	}
	return err
}

// parseMessage parses the source of one fetched message into a MailMessage.
func (f *Fetcher) parseMessage(imapMsg *imap.Message) (models.MailMessage, error) {
	source := imapMsg.GetBody(&imap.BodySectionName{})
	if source == nil {
		return models.MailMessage{}, &ParseError{UID: imapMsg.Uid, Err: errors.New("server returned no message source")}
	}

	parsed, err := f.parser.Parse(source)
	if err != nil {
		return models.MailMessage{}, &ParseError{UID: imapMsg.Uid, Err: err}
	}

	return toMailMessage(imapMsg, parsed, f.cfg.Location, f.cfg.ReceivedAtLayout), nil
}
