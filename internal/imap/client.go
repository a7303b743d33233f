package imap

import (
	"context"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/vdavid/mailsky/internal/config"
)

// Session is the subset of go-imap's client.Client the fetcher uses.
// This allows the fetcher to be tested with fake sessions.
type Session interface {
	// Select opens a mailbox. readOnly selects it with EXAMINE.
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)

	// UidSearch returns the UIDs of the messages matching criteria.
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)

	// UidFetch streams the requested items of the given UIDs into ch and closes ch when done.
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error

	// List streams the mailboxes matching name into ch and closes ch when done.
	List(ref, name string, ch chan *imap.MailboxInfo) error

	// Logout ends the session and closes the connection.
	Logout() error
}

// DialFunc opens an authenticated session. The caller owns the session and must log out.
type DialFunc func(ctx context.Context, cfg config.IMAPConfig) (Session, error)

// terminator is implemented by sessions whose connection can be torn down from another goroutine.
type terminator interface {
	Terminate() error
}

// DialSession connects to the configured server and logs in.
func DialSession(ctx context.Context, cfg config.IMAPConfig) (Session, error) {
	c, err := ConnectToIMAP(ctx, cfg.Address(), cfg.TLS)
	if err != nil {
		return nil, err
	}

	// Bounds every command, so a slow mailbox is not cut off while each step still progresses.
	c.Timeout = cfg.Timeout

	if err := Login(c, cfg.Username, cfg.Password); err != nil {
		_ = c.Logout()
		return nil, err
	}

	return c, nil
}

// Ensure client.Client implements Session
var _ Session = (*client.Client)(nil)

// Ensure client.Client can be terminated
var _ terminator = (*client.Client)(nil)
