package api

import (
	"net/http"

	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/models"
)

// HealthHandler reports which integrations are configured. It never touches the network.
type HealthHandler struct {
	cfg *config.Config
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// GetHealth returns the configuration status. Secrets are reported only as set or unset.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	response := models.HealthResponse{
		OK:                true,
		IMAPConfigured:    h.cfg.IsIMAPConfigured(),
		BlueskyConfigured: h.cfg.IsBlueskyConfigured(),
		AdminConfigured:   h.cfg.IsAdminConfigured(),
		IMAP: models.IMAPHealth{
			Host:           h.cfg.IMAP.Host,
			Port:           h.cfg.IMAP.Port,
			Mailbox:        h.cfg.IMAP.Mailbox,
			TLS:            h.cfg.IMAP.TLS,
			UserConfigured: h.cfg.IMAP.Username != "",
		},
		Bluesky: models.BlueskyHealth{
			Host:             h.cfg.Bluesky.Host,
			HandleConfigured: h.cfg.Bluesky.Handle != "",
		},
	}

	WriteJSONResponse(w, response)
}
