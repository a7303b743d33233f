package imap

import (
	"fmt"
	"sort"

	"github.com/emersion/go-imap"
)

// listMailboxes lists all selectable mailboxes on the IMAP server, sorted with INBOX first.
func listMailboxes(s Session) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.List("", "*", mailboxes)
	}()

	names := make([]string, 0)
	for m := range mailboxes {
		if hasAttribute(m, imap.NoSelectAttr) {
			continue
		}
		names = append(names, m.Name)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}

	sort.Slice(names, func(i, j int) bool {
		if names[i] == "INBOX" || names[j] == "INBOX" {
			return names[i] == "INBOX" && names[j] != "INBOX"
		}
		return names[i] < names[j]
	})

	return names, nil
}

func hasAttribute(info *imap.MailboxInfo, attr string) bool {
	for _, a := range info.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}
