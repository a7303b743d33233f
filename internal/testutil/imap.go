package testutil

import (
	"bytes"
	"fmt"
	"mime"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/vdavid/mailsky/internal/config"
)

// TestIMAPServer represents an in-memory IMAP server listening on a random local port.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// StartIMAPServer starts an IMAP server with an in-memory backend.
// The memory backend creates a default user with username "username" and password "password".
// Its INBOX already holds one sample message.
func StartIMAPServer() (*TestIMAPServer, error) {
	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		_ = s.Serve(listener)
	}()

	return &TestIMAPServer{
		Server:  s,
		Address: listener.Addr().String(),
		Backend: be,
		cleanup: func() {
			_ = s.Close()
		},
		username: "username",
		password: "password",
	}, nil
}

// NewTestIMAPServer starts an in-memory IMAP server and closes it when the test ends.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	s, err := StartIMAPServer()
	if err != nil {
		t.Fatalf("Failed to start IMAP server: %v", err)
	}
	t.Cleanup(s.Close)

	return s
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

// IMAPConfig returns a plain-text configuration pointing at this server.
func (s *TestIMAPServer) IMAPConfig(mailbox string) config.IMAPConfig {
	host, portStr, _ := net.SplitHostPort(s.Address)
	port, _ := strconv.Atoi(portStr)

	return config.IMAPConfig{
		Host:               host,
		Port:               port,
		TLS:                false,
		Username:           s.username,
		Password:           s.password,
		Mailbox:            mailbox,
		FetchLimit:         20,
		ProbeTimeout:       time.Second,
		Timeout:            5 * time.Second,
		ParseFailurePolicy: config.ParseFailureAbort,
		ReceivedAtLayout:   "2.1.2006, 15:04:05",
		Location:           time.UTC,
	}
}

// Dial opens an authenticated client connection to the server.
func (s *TestIMAPServer) Dial() (*imapclient.Client, error) {
	client, err := imapclient.Dial(s.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test server: %w", err)
	}

	if err := client.Login(s.username, s.password); err != nil {
		_ = client.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	return client, nil
}

// Connect creates a new IMAP client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := s.Dial()
	if err != nil {
		t.Fatalf("%v", err)
	}

	cleanup := func() {
		_ = client.Logout()
	}

	return client, cleanup
}

// CreateMailbox creates a mailbox, ignoring the error when it already exists.
func (s *TestIMAPServer) CreateMailbox(name string) error {
	client, err := s.Dial()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Logout()
	}()

	if err := client.Create(name); err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create mailbox %s: %w", name, err)
	}

	return nil
}

// MustCreateMailbox creates a mailbox and fails the test on error.
func (s *TestIMAPServer) MustCreateMailbox(t *testing.T, name string) {
	t.Helper()

	if err := s.CreateMailbox(name); err != nil {
		t.Fatalf("%v", err)
	}
}

// AppendMessage appends a raw RFC 822 message with the given flags and internal date.
func (s *TestIMAPServer) AppendMessage(mailbox string, flags []string, receivedAt time.Time, source []byte) error {
	client, err := s.Dial()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Logout()
	}()

	if flags == nil {
		flags = []string{}
	}

	if err := client.Append(mailbox, flags, receivedAt, bytes.NewReader(source)); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// AddMessage appends a raw message to the mailbox and fails the test on error.
func (s *TestIMAPServer) AddMessage(t *testing.T, mailbox string, seen bool, receivedAt time.Time, source []byte) {
	t.Helper()

	var flags []string
	if seen {
		flags = []string{imap.SeenFlag}
	}

	if err := s.AppendMessage(mailbox, flags, receivedAt, source); err != nil {
		t.Fatalf("%v", err)
	}
}

// TestMessage describes a message built by BuildMessage.
type TestMessage struct {
	From        string
	To          string
	Subject     string
	Body        string
	Date        time.Time
	Attachments map[string]string
}

// BuildMessage renders msg as an RFC 822 source. Attachments turn it into multipart/mixed.
// Empty header values are left out.
func BuildMessage(msg TestMessage) []byte {
	var b strings.Builder

	writeHeader := func(name, value string) {
		if value != "" {
			b.WriteString(name + ": " + value + "\r\n")
		}
	}

	if !msg.Date.IsZero() {
		writeHeader("Date", msg.Date.Format(time.RFC1123Z))
	}
	writeHeader("From", msg.From)
	writeHeader("To", msg.To)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
		b.WriteString(msg.Body)
		b.WriteString("\r\n")
		return []byte(b.String())
	}

	const boundary = "mailsky-test-boundary"
	b.WriteString("Content-Type: multipart/mixed; boundary=\"" + boundary + "\"\r\n\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")

	for name, content := range msg.Attachments {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString("Content-Type: application/octet-stream\r\n")
		b.WriteString("Content-Disposition: attachment; filename=\"" + name + "\"\r\n\r\n")
		b.WriteString(content)
		b.WriteString("\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")

	return []byte(b.String())
}
