// Command dev-server runs the API against an in-memory IMAP server seeded with sample mail
// and a dry-run Bluesky client, so the dashboard can be developed without real accounts.
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/vdavid/mailsky/internal/api"
	"github.com/vdavid/mailsky/internal/bluesky"
	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/imap"
	"github.com/vdavid/mailsky/internal/serve"
	"github.com/vdavid/mailsky/internal/testutil"
	ws "github.com/vdavid/mailsky/internal/websocket"
)

const (
	devMailbox = "Redaktion"
	devHandle  = "redaktion.dev.bsky.social"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Starting in-memory IMAP server...")
	imapServer, err := testutil.StartIMAPServer()
	if err != nil {
		log.Fatalf("Failed to start IMAP server: %v", err)
	}
	defer imapServer.Close()
	log.Printf("In-memory IMAP server started on %s", imapServer.Address)

	if err := seedTestData(imapServer, time.Now()); err != nil {
		log.Fatalf("Failed to seed test data: %v", err)
	}

	useDevAccounts(cfg, imapServer)

	if err := startHTTPServer(cfg, imapServer); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// useDevAccounts points cfg at the in-memory IMAP server and a fake Bluesky account.
func useDevAccounts(cfg *config.Config, imapServer *testutil.TestIMAPServer) {
	imapCfg := imapServer.IMAPConfig(devMailbox)
	imapCfg.Location = cfg.IMAP.Location
	imapCfg.ReceivedAtLayout = cfg.IMAP.ReceivedAtLayout
	imapCfg.FetchLimit = cfg.IMAP.FetchLimit
	cfg.IMAP = imapCfg

	cfg.Bluesky.Handle = devHandle
	cfg.Bluesky.AppPassword = "dry-run"
}

// startHTTPServer starts the HTTP server and waits for shutdown signals.
func startHTTPServer(cfg *config.Config, imapServer *testutil.TestIMAPServer) error {
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewServer(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Mailsky dev server starting on %s", server.Addr)
	log.Printf("IMAP server: %s (username: %s, password: %s, mailbox: %s)", imapServer.Address, imapServer.Username(), imapServer.Password(), devMailbox)
	log.Printf("Bluesky: dry run as @%s, nothing is published", devHandle)
	log.Println("Press Ctrl+C to stop.")

	return serve.Run(server, 5*time.Second)
}

// NewServer creates the API handler with a dry-run publisher.
func NewServer(cfg *config.Config) http.Handler {
	hub := ws.NewHub(50)

	services := api.Services{
		Prober:  imap.NewProber(cfg.IMAP.ProbeTimeout),
		Mailbox: imap.NewFetcher(cfg.IMAP),
		Publisher: bluesky.NewPublisher(cfg.Bluesky,
			bluesky.WithClientFactory(bluesky.NewDryRunClientFactory()),
			bluesky.WithProgress(hub.PublishProgress),
		),
		Hub: hub,
	}

	return api.NewRouter(cfg, services, "Mailsky Dev Server")
}

// seedTestData creates the sample mailboxes and fills the default one with press mail.
func seedTestData(imapServer *testutil.TestIMAPServer, now time.Time) error {
	for _, name := range []string{devMailbox, "Archiv", "Leserbriefe"} {
		if err := imapServer.CreateMailbox(name); err != nil {
			return fmt.Errorf("failed to create mailbox %s: %w", name, err)
		}
	}

	messages := []struct {
		msg  testutil.TestMessage
		seen bool
		age  time.Duration
	}{
		{
			msg: testutil.TestMessage{
				From:    "Pressestelle Stadt <presse@stadt.example>",
				To:      "redaktion@example.com",
				Subject: "Straßensperrung am Marktplatz",
				Body:    "Wegen Bauarbeiten ist der Marktplatz von Montag bis Freitag für den Durchgangsverkehr gesperrt. Anlieger können die Zufahrt über die Kirchgasse nutzen. Die Buslinien 3 und 7 werden umgeleitet, Ersatzhaltestellen sind ausgeschildert.",
			},
			seen: true,
			age:  26 * time.Hour,
		},
		{
			msg: testutil.TestMessage{
				From:    "Feuerwehr Nord <info@feuerwehr.example>",
				To:      "redaktion@example.com",
				Subject: "Tag der offenen Tür",
				Body:    "Am Samstag lädt die Freiwillige Feuerwehr zum Tag der offenen Tür ein. Es gibt Fahrzeugvorführungen, eine Hüpfburg für Kinder und Würstchen vom Grill.",
				Attachments: map[string]string{
					"programm.pdf": "%PDF-1.4 sample",
				},
			},
			age: 3 * time.Hour,
		},
		{
			msg: testutil.TestMessage{
				From:    "Landesamt für Statistik <statistik@land.example>",
				To:      "redaktion@example.com",
				Subject: "Bevölkerungszahlen 2024",
				Body:    "Die Einwohnerzahl ist im vergangenen Jahr um 0,4 Prozent gestiegen. Den stärksten Zuwachs verzeichneten die Städte im Süden des Landes, während ländliche Gemeinden im Norden weiter Einwohner verloren. Die vollständigen Tabellen stehen ab sofort zum Download bereit. Rückfragen beantwortet das Pressereferat werktags zwischen 9 und 15 Uhr.",
			},
			age: 20 * time.Minute,
		},
	}

	for _, m := range messages {
		receivedAt := now.Add(-m.age)
		m.msg.Date = receivedAt
		if err := imapServer.AppendMessage(devMailbox, seenFlags(m.seen), receivedAt, testutil.BuildMessage(m.msg)); err != nil {
			return fmt.Errorf("failed to add message %q: %w", m.msg.Subject, err)
		}
	}

	log.Printf("Seeded %d messages into %s", len(messages), devMailbox)
	return nil
}

func seenFlags(seen bool) []string {
	if seen {
		return []string{`\Seen`}
	}
	return nil
}
