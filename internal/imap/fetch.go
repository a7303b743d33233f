package imap

import (
	"fmt"
	"log"

	"github.com/emersion/go-imap"
)

// sourceSection is BODY.PEEK[]: the whole RFC 822 source, fetched without setting \Seen.
var sourceSection = &imap.BodySectionName{Peek: true}

// fetchMessages fetches envelope, flags, UID, internal date and full source for the given UIDs.
// The result follows the order of uids; UIDs the server did not return are skipped.
func fetchMessages(s Session, uids []uint32) ([]*imap.Message, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}

	if len(uids) == 0 {
		return []*imap.Message{}, nil
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
		imap.FetchInternalDate,
		sourceSection.FetchItem(),
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- s.UidFetch(seqSet, items, messages)
	}()

	byUID := make(map[uint32]*imap.Message, len(uids))
	for msg := range messages {
		byUID[msg.Uid] = msg
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	result := make([]*imap.Message, 0, len(uids))
	for _, uid := range uids {
		msg, ok := byUID[uid]
		if !ok {
			log.Printf("Warning: Server returned no data for UID %d, skipping", uid)
			continue
		}
		result = append(result, msg)
	}

	return result, nil
}
