// Command preview connects to the configured IMAP account and prints how the newest
// message would be split into a Bluesky thread. It never publishes anything.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/imap"
	"github.com/vdavid/mailsky/internal/thread"
)

var errNoMessages = errors.New("mailbox has no messages")

type options struct {
	mailbox   string
	maxLength int
	all       bool
}

func main() {
	log.Println("Starting mail preview...")

	var opts options
	flag.StringVar(&opts.mailbox, "mailbox", "", "mailbox to read (defaults to IMAP_MAILBOX)")
	flag.IntVar(&opts.maxLength, "max-length", 0, "maximum post length (defaults to MAX_POST_LENGTH)")
	flag.BoolVar(&opts.all, "all", false, "list every fetched message instead of only the newest")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.IsIMAPConfigured() {
		log.Fatal("Error: IMAP_HOST, IMAP_USER and IMAP_PASSWORD environment variables are required")
	}
	if opts.maxLength <= 0 {
		opts.maxLength = cfg.MaxPostLength
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	prober := imap.NewProber(cfg.IMAP.ProbeTimeout)
	fetcher := imap.NewFetcher(cfg.IMAP)

	if err := run(ctx, os.Stdout, cfg.IMAP, prober, fetcher, opts); err != nil {
		log.Fatalf("Preview failed: %v", err)
	}

	log.Println("Preview completed successfully")
}

// run probes the server, fetches the newest messages and writes the preview to out.
func run(ctx context.Context, out io.Writer, cfg config.IMAPConfig, prober imap.Prober, mailboxes imap.MailboxService, opts options) error {
	if cfg.TLS {
		result := prober.Probe(ctx, cfg.Host, cfg.Port)
		if !result.OK {
			return fmt.Errorf("failed to reach %s: %s", cfg.Address(), result.Error)
		}
		log.Printf("TLS handshake with %s succeeded", cfg.Address())
	}

	mailbox := mailboxes.ResolveMailbox(opts.mailbox)
	messages, err := mailboxes.FetchRecent(ctx, mailbox)
	if err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}
	if len(messages) == 0 {
		return fmt.Errorf("%s: %w", mailbox, errNoMessages)
	}

	if opts.all {
		_, _ = fmt.Fprintf(out, "%d message(s) in %s:\n", len(messages), mailbox)
		for _, msg := range messages {
			_, _ = fmt.Fprintf(out, "  [%s] %s  %s  %s\n", msg.Status, msg.ReceivedAt, msg.From, msg.Subject)
		}
		_, _ = fmt.Fprintln(out)
	}

	newest := messages[0]
	_, _ = fmt.Fprintf(out, "Subject: %s\nFrom: %s\nReceived: %s\n", newest.Subject, newest.From, newest.ReceivedAt)
	if len(newest.Attachments) > 0 {
		_, _ = fmt.Fprintf(out, "Attachments: %v\n", newest.Attachments)
	}

	chunks := thread.SplitChunks(newest.Body, opts.maxLength)
	_, _ = fmt.Fprintf(out, "\nThread preview (%d post(s), max %d characters):\n", len(chunks), opts.maxLength)
	for _, chunk := range chunks {
		_, _ = fmt.Fprintf(out, "\n--- %d/%d (%d) ---\n%s\n", chunk.Index+1, len(chunks), thread.Length(chunk.Text), chunk.Text)
	}

	return nil
}
