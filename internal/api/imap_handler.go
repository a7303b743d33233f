package api

import (
	"log"
	"net/http"

	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/imap"
	"github.com/vdavid/mailsky/internal/models"
)

// IMAPHandler handles the IMAP probe and mailbox endpoints.
type IMAPHandler struct {
	cfg     config.IMAPConfig
	prober  imap.Prober
	mailbox imap.MailboxService
}

// NewIMAPHandler creates a new IMAPHandler instance.
func NewIMAPHandler(cfg config.IMAPConfig, prober imap.Prober, mailbox imap.MailboxService) *IMAPHandler {
	return &IMAPHandler{
		cfg:     cfg,
		prober:  prober,
		mailbox: mailbox,
	}
}

// Ping checks that the IMAP host accepts TLS connections. Probe failures are reported
// with status 200 and ok=false.
func (h *IMAPHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	if h.cfg.Host == "" {
		WriteJSONStatus(w, http.StatusBadRequest, models.ProbeResult{OK: false, Error: config.ErrIMAPHostMissing.Error()})
		return
	}

	result := h.prober.Probe(r.Context(), h.cfg.Host, h.cfg.Port)
	if !result.OK {
		log.Printf("IMAPHandler: Probe of %s:%d failed: %s", h.cfg.Host, h.cfg.Port, result.Error)
	}

	WriteJSONResponse(w, result)
}

// GetMessages returns the newest messages of the mailbox named by the mailbox query parameter,
// or of the configured default mailbox.
func (h *IMAPHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	if !h.cfg.IsConfigured() {
		WriteJSONError(w, http.StatusBadRequest, config.ErrIMAPNotConfigured.Error(), "")
		return
	}

	mailbox := h.mailbox.ResolveMailbox(r.URL.Query().Get("mailbox"))

	messages, err := h.mailbox.FetchRecent(r.Context(), mailbox)
	if err != nil {
		if config.IsConfigurationError(err) {
			WriteJSONError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		log.Printf("IMAPHandler: Failed to fetch messages from %s: %v", mailbox, err)
		WriteJSONError(w, http.StatusInternalServerError, "IMAP fetch failed", err.Error())
		return
	}

	WriteJSONResponse(w, models.MessagesResponse{
		Mailbox:  mailbox,
		Messages: messages,
	})
}

// GetMailboxes returns the selectable mailboxes of the account.
func (h *IMAPHandler) GetMailboxes(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	if !h.cfg.IsConfigured() {
		WriteJSONError(w, http.StatusBadRequest, config.ErrIMAPNotConfigured.Error(), "")
		return
	}

	mailboxes, err := h.mailbox.ListMailboxes(r.Context())
	if err != nil {
		log.Printf("IMAPHandler: Failed to list mailboxes: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "IMAP mailbox list failed", err.Error())
		return
	}

	WriteJSONResponse(w, models.MailboxesResponse{Mailboxes: mailboxes})
}
