package imap

import (
	"bytes"
	"sync"
	"time"

	"github.com/emersion/go-imap"
)

// fakeSession is an in-process Session for exercising error paths the memory server cannot produce.
type fakeSession struct {
	mu sync.Mutex

	selectErr error
	searchErr error
	fetchErr  error
	listErr   error
	logoutErr error

	uids      []uint32
	messages  map[uint32]*imap.Message
	mailboxes []*imap.MailboxInfo

	// blockSearch makes UidSearch wait until Terminate is called.
	blockSearch bool
	terminated  chan struct{}

	// delay is added to every Select, UidSearch and UidFetch. A command that was terminated
	// while waiting fails like a closed connection.
	delay time.Duration

	selected     string
	readOnly     bool
	fetchedUIDs  []uint32
	logoutCalls  int
	terminations int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		messages:   make(map[uint32]*imap.Message),
		terminated: make(chan struct{}),
	}
}

// addMessage registers a message with the given UID and raw source.
func (f *fakeSession) addMessage(uid uint32, source string) {
	msg := imap.NewMessage(0, []imap.FetchItem{imap.FetchUid})
	msg.Uid = uid
	msg.Body = map[*imap.BodySectionName]imap.Literal{
		{}: bytes.NewBufferString(source),
	}
	f.messages[uid] = msg
	f.uids = append(f.uids, uid)
}

// wait applies delay and reports whether the connection was terminated meanwhile.
func (f *fakeSession) wait() error {
	if f.delay <= 0 {
		return nil
	}
	select {
	case <-f.terminated:
		return errConnectionClosed
	case <-time.After(f.delay):
		return nil
	}
}

func (f *fakeSession) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	if err := f.wait(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = name
	f.readOnly = readOnly
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return imap.NewMailboxStatus(name, nil), nil
}

func (f *fakeSession) UidSearch(*imap.SearchCriteria) ([]uint32, error) {
	if err := f.wait(); err != nil {
		return nil, err
	}
	if f.blockSearch {
		<-f.terminated
		return nil, errConnectionClosed
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]uint32(nil), f.uids...), nil
}

func (f *fakeSession) UidFetch(seqset *imap.SeqSet, _ []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	if err := f.wait(); err != nil {
		return err
	}
	if f.fetchErr != nil {
		return f.fetchErr
	}
	for _, uid := range f.uids {
		if !seqset.Contains(uid) {
			continue
		}
		f.mu.Lock()
		f.fetchedUIDs = append(f.fetchedUIDs, uid)
		f.mu.Unlock()
		if msg, ok := f.messages[uid]; ok {
			ch <- msg
		}
	}
	return nil
}

func (f *fakeSession) List(_, _ string, ch chan *imap.MailboxInfo) error {
	defer close(ch)
	if f.listErr != nil {
		return f.listErr
	}
	for _, m := range f.mailboxes {
		ch <- m
	}
	return nil
}

func (f *fakeSession) Logout() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeSession) Terminate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminations++
	if f.terminations == 1 {
		close(f.terminated)
	}
	return nil
}
