package imap

import (
	"context"

	"github.com/vdavid/mailsky/internal/models"
)

// MailboxService defines the read operations the API needs from an IMAP account.
// This interface allows handlers to be tested with mock implementations.
type MailboxService interface {
	// FetchRecent returns the newest messages of the mailbox, newest first.
	// A blank mailbox selects the configured default.
	FetchRecent(ctx context.Context, mailbox string) ([]models.MailMessage, error)

	// ListMailboxes returns the names of all selectable mailboxes.
	ListMailboxes(ctx context.Context) ([]string, error)

	// ResolveMailbox returns the mailbox FetchRecent would read for the given name.
	ResolveMailbox(name string) string
}

// Prober checks whether an IMAP host accepts TLS connections.
type Prober interface {
	Probe(ctx context.Context, host string, port int) models.ProbeResult
}

// Ensure Fetcher implements MailboxService interface
var _ MailboxService = (*Fetcher)(nil)

// Ensure TLSProber implements Prober interface
var _ Prober = (*TLSProber)(nil)
