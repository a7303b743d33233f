package models

// MessageStatus is derived from the IMAP \Seen flag.
type MessageStatus string

const (
	StatusNew  MessageStatus = "new"
	StatusRead MessageStatus = "read"
)

// Placeholders used when a message lacks the corresponding data.
const (
	NoSubject       = "(no subject)"
	UnknownSender   = "unknown"
	UnknownReceived = "unknown"
)

// MailMessage is one fetched message as shown to the editors. It is built fresh on every fetch.
type MailMessage struct {
	ID          string        `json:"id"`
	Subject     string        `json:"subject"`
	ReceivedAt  string        `json:"receivedAt"`
	Status      MessageStatus `json:"status"`
	From        string        `json:"from"`
	Body        string        `json:"body"`
	Attachments []string      `json:"attachments"`
}

// MessagesResponse is returned by GET /api/imap/messages.
type MessagesResponse struct {
	Mailbox  string        `json:"mailbox"`
	Messages []MailMessage `json:"messages"`
}

// MailboxesResponse is returned by GET /api/imap/mailboxes.
type MailboxesResponse struct {
	Mailboxes []string `json:"mailboxes"`
}

// ProbeResult is the outcome of a connectivity probe. Failures are values, never errors.
type ProbeResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
