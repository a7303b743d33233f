package api

import (
	"fmt"
	"net/http"

	"github.com/vdavid/mailsky/internal/bluesky"
	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/imap"
	ws "github.com/vdavid/mailsky/internal/websocket"
)

// Services are the collaborators the handlers talk to.
type Services struct {
	Prober    imap.Prober
	Mailbox   imap.MailboxService
	Publisher bluesky.ThreadPublisher
	Hub       *ws.Hub
}

// NewRouter registers all API routes. Endpoints that reach IMAP or Bluesky are rate limited.
func NewRouter(cfg *config.Config, services Services, name string) http.Handler {
	healthHandler := NewHealthHandler(cfg)
	imapHandler := NewIMAPHandler(cfg.IMAP, services.Prober, services.Mailbox)
	threadHandler := NewThreadHandler(cfg.MaxPostLength)
	blueskyHandler := NewBlueskyHandler(cfg.Bluesky, services.Publisher)
	wsHandler := NewWebSocketHandler(services.Hub, cfg.CORSAllowedOrigin)

	limiter := NewRateLimiter(cfg.RateLimitPerMinute)
	limited := func(h http.HandlerFunc) http.Handler {
		return limiter.Middleware(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "%s is running", name)
	})

	mux.HandleFunc("/api/health", healthHandler.GetHealth)
	mux.Handle("/api/imap/ping", limited(imapHandler.Ping))
	mux.Handle("/api/imap/messages", limited(imapHandler.GetMessages))
	mux.Handle("/api/imap/mailboxes", limited(imapHandler.GetMailboxes))
	mux.HandleFunc("/api/thread/split", threadHandler.Split)
	mux.Handle("/api/bluesky/check", limited(blueskyHandler.Check))
	mux.Handle("/api/bluesky/publish", limited(blueskyHandler.Publish))
	mux.HandleFunc("/api/ws", wsHandler.Handle)

	return LogRequests(CORS(cfg.CORSAllowedOrigin, mux))
}
