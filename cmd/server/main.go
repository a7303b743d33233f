package main

import (
	"log"
	"net/http"
	"time"

	"github.com/vdavid/mailsky/internal/api"
	"github.com/vdavid/mailsky/internal/bluesky"
	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/imap"
	"github.com/vdavid/mailsky/internal/serve"
	ws "github.com/vdavid/mailsky/internal/websocket"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if !cfg.IsIMAPConfigured() {
		log.Printf("Warning: IMAP is not configured, mailbox endpoints will return 400")
	}
	if !cfg.IsBlueskyConfigured() {
		log.Printf("Warning: Bluesky is not configured, publish endpoints will return 400")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewServer(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Mailsky API starting on %s (environment: %s)", server.Addr, cfg.Environment)

	if err := serve.Run(server, 30*time.Second); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// NewServer creates and returns a new HTTP handler for the Mailsky API server.
func NewServer(cfg *config.Config) http.Handler {
	hub := ws.NewHub(50)

	services := api.Services{
		Prober:    imap.NewProber(cfg.IMAP.ProbeTimeout),
		Mailbox:   imap.NewFetcher(cfg.IMAP),
		Publisher: bluesky.NewPublisher(cfg.Bluesky, bluesky.WithProgress(hub.PublishProgress)),
		Hub:       hub,
	}

	return api.NewRouter(cfg, services, "Mailsky API")
}
