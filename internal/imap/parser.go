package imap

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/vdavid/mailsky/internal/models"
)

// ParsedMail is what a BodyParser extracts from a raw RFC 822 source.
type ParsedMail struct {
	Subject     string
	From        string
	Text        string
	Attachments []string
}

// BodyParser turns a raw message source into a ParsedMail.
type BodyParser interface {
	Parse(r io.Reader) (*ParsedMail, error)
}

// EnmimeParser parses messages with enmime. HTML-only messages get enmime's plain-text
// down-conversion as their text.
type EnmimeParser struct{}

// Parse parses the email source using enmime.
func (EnmimeParser) Parse(r io.Reader) (*ParsedMail, error) {
	envelope, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email source: %w", err)
	}

	parsed := &ParsedMail{
		Subject:     envelope.GetHeader("Subject"),
		From:        senderFromEnvelope(envelope),
		Text:        envelope.Text,
		Attachments: make([]string, 0, len(envelope.Attachments)+len(envelope.Inlines)),
	}

	for _, parts := range [][]*enmime.Part{envelope.Attachments, envelope.Inlines} {
		for _, part := range parts {
			if name := strings.TrimSpace(part.FileName); name != "" {
				parsed.Attachments = append(parsed.Attachments, name)
			}
		}
	}

	return parsed, nil
}

// senderFromEnvelope formats the From header as "Name <address>", falling back to the raw header
// when it does not parse as an address list.
func senderFromEnvelope(envelope *enmime.Envelope) string {
	addresses, err := envelope.AddressList("From")
	if err != nil || len(addresses) == 0 {
		return strings.TrimSpace(envelope.GetHeader("From"))
	}

	formatted := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if address.Name != "" {
			formatted = append(formatted, fmt.Sprintf("%s <%s>", address.Name, address.Address))
		} else {
			formatted = append(formatted, address.Address)
		}
	}
	return strings.Join(formatted, ", ")
}

// toMailMessage combines the IMAP metadata of a message with its parsed source.
func toMailMessage(imapMsg *imap.Message, parsed *ParsedMail, location *time.Location, layout string) models.MailMessage {
	msg := models.MailMessage{
		ID:          fmt.Sprintf("uid-%d", imapMsg.Uid),
		Subject:     models.NoSubject,
		ReceivedAt:  models.UnknownReceived,
		Status:      models.StatusNew,
		From:        models.UnknownSender,
		Body:        strings.TrimSpace(parsed.Text),
		Attachments: make([]string, 0, len(parsed.Attachments)),
	}

	if subject := strings.TrimSpace(parsed.Subject); subject != "" {
		msg.Subject = subject
	} else if imapMsg.Envelope != nil && strings.TrimSpace(imapMsg.Envelope.Subject) != "" {
		msg.Subject = strings.TrimSpace(imapMsg.Envelope.Subject)
	}

	if !imapMsg.InternalDate.IsZero() {
		if location == nil {
			location = time.UTC
		}
		msg.ReceivedAt = imapMsg.InternalDate.In(location).Format(layout)
	}

	for _, flag := range imapMsg.Flags {
		if flag == imap.SeenFlag {
			msg.Status = models.StatusRead
			break
		}
	}

	if from := strings.TrimSpace(parsed.From); from != "" {
		msg.From = from
	} else if imapMsg.Envelope != nil && len(imapMsg.Envelope.From) > 0 {
		if formatted := formatAddress(imapMsg.Envelope.From[0]); formatted != "" {
			msg.From = formatted
		}
	}

	for _, name := range parsed.Attachments {
		if strings.TrimSpace(name) != "" {
			msg.Attachments = append(msg.Attachments, name)
		}
	}

	return msg
}

// formatAddress formats an IMAP address to a string.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" && address.HostName == "" {
		return ""
	}

	if address.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", address.PersonalName, address.MailboxName, address.HostName)
	}

	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}
