package imap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/models"
	"github.com/vdavid/mailsky/internal/testutil"
)

var errConnectionClosed = errors.New("connection closed")

func fakeDial(session *fakeSession) DialFunc {
	return func(context.Context, config.IMAPConfig) (Session, error) {
		return session, nil
	}
}

func fakeConfig() config.IMAPConfig {
	return config.IMAPConfig{
		Host:               "imap.example.com",
		Port:               993,
		TLS:                true,
		Username:           "user",
		Password:           "secret",
		Mailbox:            "INBOX",
		FetchLimit:         20,
		Timeout:            5 * time.Second,
		ParseFailurePolicy: config.ParseFailureAbort,
		ReceivedAtLayout:   "2.1.2006, 15:04:05",
		Location:           time.UTC,
	}
}

// seedMailbox creates mailbox on the server and appends count messages, one minute apart.
// Even-numbered messages are marked as seen.
func seedMailbox(t *testing.T, server *testutil.TestIMAPServer, mailbox string, count int, base time.Time) {
	t.Helper()

	server.MustCreateMailbox(t, mailbox)
	for i := 1; i <= count; i++ {
		source := testutil.BuildMessage(testutil.TestMessage{
			From:    fmt.Sprintf("Sender %d <s%d@example.com>", i, i),
			To:      "redaktion@example.com",
			Subject: fmt.Sprintf("Message %d", i),
			Body:    fmt.Sprintf("Body %d", i),
			Date:    base.Add(time.Duration(i) * time.Minute),
		})
		server.AddMessage(t, mailbox, i%2 == 0, base.Add(time.Duration(i)*time.Minute), source)
	}
}

func TestFetcher_FetchRecent(t *testing.T) {
	base := time.Date(2024, time.March, 5, 14, 0, 9, 0, time.UTC)

	t.Run("returns the newest messages first, capped at the fetch limit", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)
		seedMailbox(t, server, "Archive", 25, base)

		fetcher := NewFetcher(server.IMAPConfig("INBOX"))
		messages, err := fetcher.FetchRecent(context.Background(), "Archive")
		require.NoError(t, err)
		require.Len(t, messages, 20)

		for i, msg := range messages {
			n := 25 - i
			assert.Equal(t, fmt.Sprintf("uid-%d", n), msg.ID)
			assert.Equal(t, fmt.Sprintf("Message %d", n), msg.Subject)
			assert.Equal(t, fmt.Sprintf("Sender %d <s%d@example.com>", n, n), msg.From)
			assert.Equal(t, fmt.Sprintf("Body %d", n), msg.Body)
			if n%2 == 0 {
				assert.Equal(t, models.StatusRead, msg.Status)
			} else {
				assert.Equal(t, models.StatusNew, msg.Status)
			}
		}

		assert.Equal(t, "5.3.2024, 14:25:09", messages[0].ReceivedAt)
		assert.Equal(t, "uid-6", messages[19].ID)
	})

	t.Run("formats receivedAt in the configured location", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)
		seedMailbox(t, server, "Archive", 1, base)

		berlin, err := time.LoadLocation("Europe/Berlin")
		require.NoError(t, err)

		cfg := server.IMAPConfig("INBOX")
		cfg.Location = berlin

		messages, err := NewFetcher(cfg).FetchRecent(context.Background(), "Archive")
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "5.3.2024, 15:01:09", messages[0].ReceivedAt)
	})

	t.Run("returns an empty slice for an empty mailbox", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)
		server.MustCreateMailbox(t, "Empty")

		messages, err := NewFetcher(server.IMAPConfig("INBOX")).FetchRecent(context.Background(), "Empty")
		require.NoError(t, err)
		assert.NotNil(t, messages)
		assert.Empty(t, messages)
	})

	t.Run("blank mailbox uses the configured default", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)
		seedMailbox(t, server, "Redaktion", 3, base)

		messages, err := NewFetcher(server.IMAPConfig("Redaktion")).FetchRecent(context.Background(), "  ")
		require.NoError(t, err)
		assert.Len(t, messages, 3)
	})

	t.Run("does not mark messages as seen", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)
		seedMailbox(t, server, "Archive", 1, base)

		fetcher := NewFetcher(server.IMAPConfig("INBOX"))
		for i := 0; i < 2; i++ {
			messages, err := fetcher.FetchRecent(context.Background(), "Archive")
			require.NoError(t, err)
			require.Len(t, messages, 1)
			assert.Equal(t, models.StatusNew, messages[0].Status)
		}
	})

	t.Run("lists attachments", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)
		server.MustCreateMailbox(t, "Archive")
		server.AddMessage(t, "Archive", false, base, testutil.BuildMessage(testutil.TestMessage{
			From:        "anna@example.com",
			Subject:     "Bericht",
			Body:        "Siehe Anhang.",
			Attachments: map[string]string{"bericht.pdf": "PDF"},
		}))

		messages, err := NewFetcher(server.IMAPConfig("INBOX")).FetchRecent(context.Background(), "Archive")
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, []string{"bericht.pdf"}, messages[0].Attachments)
		assert.Equal(t, "Siehe Anhang.", messages[0].Body)
	})

	t.Run("missing mailbox is a protocol error", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)

		_, err := NewFetcher(server.IMAPConfig("INBOX")).FetchRecent(context.Background(), "Nope")
		require.Error(t, err)
		assert.True(t, IsProtocolError(err))
		assert.Contains(t, err.Error(), "select Nope")
	})

	t.Run("wrong password is a protocol error", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)
		cfg := server.IMAPConfig("INBOX")
		cfg.Password = "wrong"

		_, err := NewFetcher(cfg).FetchRecent(context.Background(), "")
		require.Error(t, err)
		assert.True(t, IsProtocolError(err))
		assert.Contains(t, err.Error(), "imap connect failed")
	})

	t.Run("unconfigured account fails without dialing", func(t *testing.T) {
		dialed := false
		cfg := fakeConfig()
		cfg.Host = ""

		fetcher := NewFetcher(cfg, WithDialFunc(func(context.Context, config.IMAPConfig) (Session, error) {
			dialed = true
			return nil, errors.New("unexpected dial")
		}))

		_, err := fetcher.FetchRecent(context.Background(), "")
		assert.ErrorIs(t, err, config.ErrIMAPNotConfigured)
		assert.False(t, dialed)
	})
}

func TestFetcher_SessionHandling(t *testing.T) {
	t.Run("selects read-only and logs out", func(t *testing.T) {
		session := newFakeSession()
		session.addMessage(1, "Subject: one\r\n\r\nfirst\r\n")

		messages, err := NewFetcher(fakeConfig(), WithDialFunc(fakeDial(session))).FetchRecent(context.Background(), "Archive")
		require.NoError(t, err)
		require.Len(t, messages, 1)

		assert.Equal(t, "Archive", session.selected)
		assert.True(t, session.readOnly)
		assert.Equal(t, 1, session.logoutCalls)
	})

	t.Run("logout failure does not mask the original error", func(t *testing.T) {
		selectErr := errors.New("NO mailbox busy")
		session := newFakeSession()
		session.selectErr = selectErr
		session.logoutErr = errors.New("connection reset")

		_, err := NewFetcher(fakeConfig(), WithDialFunc(fakeDial(session))).FetchRecent(context.Background(), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, selectErr)
		assert.NotContains(t, err.Error(), "connection reset")
		assert.Equal(t, 1, session.logoutCalls)
	})

	t.Run("logout failure after success is ignored", func(t *testing.T) {
		session := newFakeSession()
		session.logoutErr = errors.New("connection reset")

		messages, err := NewFetcher(fakeConfig(), WithDialFunc(fakeDial(session))).FetchRecent(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("search and fetch failures are protocol errors", func(t *testing.T) {
		session := newFakeSession()
		session.searchErr = errors.New("BAD search")

		_, err := NewFetcher(fakeConfig(), WithDialFunc(fakeDial(session))).FetchRecent(context.Background(), "")
		assert.True(t, IsProtocolError(err))
		assert.Contains(t, err.Error(), "imap search failed")

		session = newFakeSession()
		session.addMessage(1, "Subject: x\r\n\r\ny\r\n")
		session.fetchErr = errors.New("BAD fetch")

		_, err = NewFetcher(fakeConfig(), WithDialFunc(fakeDial(session))).FetchRecent(context.Background(), "")
		assert.True(t, IsProtocolError(err))
		assert.Contains(t, err.Error(), "imap fetch failed")
	})

	t.Run("dial failure is a connect protocol error", func(t *testing.T) {
		dialErr := errors.New("connection refused")
		fetcher := NewFetcher(fakeConfig(), WithDialFunc(func(context.Context, config.IMAPConfig) (Session, error) {
			return nil, dialErr
		}))

		_, err := fetcher.FetchRecent(context.Background(), "")
		assert.ErrorIs(t, err, dialErr)
		var protocolErr *ProtocolError
		require.ErrorAs(t, err, &protocolErr)
		assert.Equal(t, "connect", protocolErr.Op)
	})

	t.Run("cancellation terminates a blocked session", func(t *testing.T) {
		session := newFakeSession()
		session.blockSearch = true

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(50*time.Millisecond, cancel)

		_, err := NewFetcher(fakeConfig(), WithDialFunc(fakeDial(session))).FetchRecent(ctx, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, errConnectionClosed)
		assert.Equal(t, 1, session.terminations)
	})

	t.Run("timeout applies per command, not to the whole fetch", func(t *testing.T) {
		session := newFakeSession()
		session.delay = 45 * time.Millisecond
		session.addMessage(1, "Subject: Eins\r\n\r\nText 1\r\n")
		session.addMessage(2, "Subject: Zwei\r\n\r\nText 2\r\n")

		cfg := fakeConfig()
		cfg.Timeout = 100 * time.Millisecond

		messages, err := NewFetcher(cfg, WithDialFunc(fakeDial(session))).FetchRecent(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "Zwei", messages[0].Subject)
		assert.Equal(t, 0, session.terminations)
	})
}

// failingParser fails on every source that contains marker.
type failingParser struct {
	marker string
}

func (p failingParser) Parse(r io.Reader) (*ParsedMail, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if strings.Contains(string(data), p.marker) {
		return nil, errors.New("malformed source")
	}
	return EnmimeParser{}.Parse(strings.NewReader(string(data)))
}

func TestFetcher_ParseFailurePolicy(t *testing.T) {
	newSession := func() *fakeSession {
		session := newFakeSession()
		session.addMessage(1, "Subject: first\r\n\r\nfine\r\n")
		session.addMessage(2, "Subject: second\r\n\r\nbroken\r\n")
		session.addMessage(3, "Subject: third\r\n\r\nfine\r\n")
		return session
	}

	t.Run("abort fails the whole fetch", func(t *testing.T) {
		fetcher := NewFetcher(fakeConfig(),
			WithDialFunc(fakeDial(newSession())),
			WithBodyParser(failingParser{marker: "broken"}))

		_, err := fetcher.FetchRecent(context.Background(), "")
		require.Error(t, err)
		assert.True(t, IsParseError(err))

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, uint32(2), parseErr.UID)
	})

	t.Run("skip drops the malformed message", func(t *testing.T) {
		cfg := fakeConfig()
		cfg.ParseFailurePolicy = config.ParseFailureSkip
		fetcher := NewFetcher(cfg,
			WithDialFunc(fakeDial(newSession())),
			WithBodyParser(failingParser{marker: "broken"}))

		messages, err := fetcher.FetchRecent(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "uid-3", messages[0].ID)
		assert.Equal(t, "uid-1", messages[1].ID)
	})

	t.Run("missing source is a parse error", func(t *testing.T) {
		session := newFakeSession()
		session.addMessage(1, "Subject: x\r\n\r\ny\r\n")
		session.messages[1].Body = nil

		_, err := NewFetcher(fakeConfig(), WithDialFunc(fakeDial(session))).FetchRecent(context.Background(), "")
		assert.True(t, IsParseError(err))
	})
}

func TestFetcher_ListMailboxes(t *testing.T) {
	t.Run("lists mailboxes with INBOX first", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)
		server.MustCreateMailbox(t, "Zeitung")
		server.MustCreateMailbox(t, "Archive")

		names, err := NewFetcher(server.IMAPConfig("INBOX")).ListMailboxes(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"INBOX", "Archive", "Zeitung"}, names)
	})

	t.Run("unconfigured account fails", func(t *testing.T) {
		cfg := fakeConfig()
		cfg.Username = ""

		_, err := NewFetcher(cfg).ListMailboxes(context.Background())
		assert.ErrorIs(t, err, config.ErrIMAPNotConfigured)
	})

	t.Run("list failure is a protocol error", func(t *testing.T) {
		session := newFakeSession()
		session.listErr = errors.New("BAD list")

		_, err := NewFetcher(fakeConfig(), WithDialFunc(fakeDial(session))).ListMailboxes(context.Background())
		assert.True(t, IsProtocolError(err))
		assert.Equal(t, 1, session.logoutCalls)
	})
}

func TestFetcher_ResolveMailbox(t *testing.T) {
	fetcher := NewFetcher(fakeConfig())

	assert.Equal(t, "INBOX", fetcher.ResolveMailbox(""))
	assert.Equal(t, "INBOX", fetcher.ResolveMailbox("   "))
	assert.Equal(t, "Archive", fetcher.ResolveMailbox(" Archive "))
}
