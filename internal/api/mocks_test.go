package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vdavid/mailsky/internal/bluesky"
	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/models"
)

// mockMailboxService is a mock implementation of imap.MailboxService for testing.
type mockMailboxService struct {
	mock.Mock
	defaultMailbox string
}

func (m *mockMailboxService) FetchRecent(ctx context.Context, mailbox string) ([]models.MailMessage, error) {
	args := m.Called(ctx, mailbox)
	messages, _ := args.Get(0).([]models.MailMessage)
	return messages, args.Error(1)
}

func (m *mockMailboxService) ListMailboxes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *mockMailboxService) ResolveMailbox(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return m.defaultMailbox
}

// mockProber is a mock implementation of imap.Prober for testing.
type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, host string, port int) models.ProbeResult {
	args := m.Called(ctx, host, port)
	return args.Get(0).(models.ProbeResult)
}

// mockPublisher is a mock implementation of bluesky.ThreadPublisher for testing.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Check(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockPublisher) Publish(ctx context.Context, chunks []string) (*bluesky.PublishResult, error) {
	args := m.Called(ctx, chunks)
	result, _ := args.Get(0).(*bluesky.PublishResult)
	return result, args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:        "test",
		Port:               "8080",
		Timezone:           "UTC",
		CORSAllowedOrigin:  "*",
		RateLimitPerMinute: 0,
		MaxPostLength:      300,
		IMAP: config.IMAPConfig{
			Host:               "imap.example.com",
			Port:               993,
			TLS:                true,
			Username:           "redaktion@example.com",
			Password:           "secret",
			Mailbox:            "INBOX",
			FetchLimit:         20,
			ProbeTimeout:       5 * time.Second,
			Timeout:            30 * time.Second,
			ParseFailurePolicy: config.ParseFailureAbort,
			ReceivedAtLayout:   "2.1.2006, 15:04:05",
			Location:           time.UTC,
		},
		Bluesky: config.BlueskyConfig{
			Host:        "https://bsky.social",
			Handle:      "redaktion.bsky.social",
			AppPassword: "app-pass",
			Timeout:     30 * time.Second,
		},
		Admin: config.AdminConfig{
			Email:    "admin@example.com",
			Password: "admin",
		},
	}
}

// decodeBody decodes the recorded JSON response into v.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Expected Content-Type application/json, got %q (body %q)", ct, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// FailingResponseWriter is a ResponseWriter that fails on Write to test error handling.
type FailingResponseWriter struct {
	http.ResponseWriter
	WriteShouldFail bool
}

func (f *FailingResponseWriter) Write(p []byte) (int, error) {
	if f.WriteShouldFail {
		return 0, fmt.Errorf("write failed")
	}
	return f.ResponseWriter.Write(p)
}
