package imap

import (
	"fmt"
	"log"
	"sort"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/client"
)

// sortCapability is the capability advertised by servers implementing RFC 5256 SORT.
const sortCapability = "SORT"

// recentUIDs returns the UIDs of the newest limit messages in the selected mailbox, newest first.
func recentUIDs(s Session, limit int) ([]uint32, error) {
	uids, err := uidsByArrival(s)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	newestFirst := make([]uint32, len(uids))
	for i, uid := range uids {
		newestFirst[len(uids)-1-i] = uid
	}
	return newestFirst, nil
}

// uidsByArrival lists all UIDs of the selected mailbox in ascending arrival order.
// Servers that support SORT are asked for ARRIVAL order. Everyone else gets UID SEARCH ALL,
// whose ascending UIDs follow arrival order because UIDs are assigned on delivery.
func uidsByArrival(s Session) ([]uint32, error) {
	if c, ok := s.(*client.Client); ok {
		uids, sorted, err := sortByArrival(c)
		if err != nil {
			log.Printf("Warning: UID SORT failed, falling back to UID SEARCH: %v", err)
		} else if sorted {
			return uids, nil
		}
	}

	uids, err := s.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// sortByArrival runs UID SORT (ARRIVAL) ALL. The bool result is false when the server lacks SORT.
func sortByArrival(c *client.Client) ([]uint32, bool, error) {
	supported, err := c.Support(sortCapability)
	if err != nil || !supported {
		return nil, false, err
	}

	sortClient := sortthread.NewSortClient(c)
	criteria := []sortthread.SortCriterion{{Field: sortthread.SortArrival}}

	uids, err := sortClient.UidSort(criteria, imap.NewSearchCriteria())
	if err != nil {
		return nil, false, fmt.Errorf("SORT command returned error: %w", err)
	}

	return uids, true, nil
}
