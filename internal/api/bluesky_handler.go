package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/vdavid/mailsky/internal/bluesky"
	"github.com/vdavid/mailsky/internal/config"
	"github.com/vdavid/mailsky/internal/models"
)

// BlueskyHandler handles the Bluesky credential check and thread publishing.
type BlueskyHandler struct {
	cfg       config.BlueskyConfig
	publisher bluesky.ThreadPublisher
}

// NewBlueskyHandler creates a new BlueskyHandler instance.
func NewBlueskyHandler(cfg config.BlueskyConfig, publisher bluesky.ThreadPublisher) *BlueskyHandler {
	return &BlueskyHandler{
		cfg:       cfg,
		publisher: publisher,
	}
}

// Check logs in with the configured account.
func (h *BlueskyHandler) Check(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if !h.cfg.IsConfigured() {
		WriteJSONError(w, http.StatusBadRequest, config.ErrBlueskyNotConfigured.Error(), "")
		return
	}

	if err := h.publisher.Check(r.Context()); err != nil {
		log.Printf("BlueskyHandler: Login check failed: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Bluesky login failed", errorDetails(err))
		return
	}

	WriteJSONResponse(w, models.OKResponse{OK: true})
}

// Publish posts the thread in the request body. On a partial failure the response lists the
// posts that are already live.
func (h *BlueskyHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if !h.cfg.IsConfigured() {
		WriteJSONError(w, http.StatusBadRequest, config.ErrBlueskyNotConfigured.Error(), "")
		return
	}

	var req models.PublishRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		log.Printf("BlueskyHandler: Failed to decode request: %v", err)
		WriteJSONError(w, decodeStatus(err), "No thread content provided", err.Error())
		return
	}

	if len(req.Thread) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "No thread content provided", "")
		return
	}

	result, err := h.publisher.Publish(r.Context(), req.Thread)
	if err != nil {
		h.writePublishError(w, err)
		return
	}

	WriteJSONResponse(w, models.PublishResponse{
		OK:    true,
		RunID: result.RunID,
		Posts: result.Posts,
	})
}

func (h *BlueskyHandler) writePublishError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bluesky.ErrEmptyThread):
		WriteJSONError(w, http.StatusBadRequest, "No thread content provided", "")
		return
	case config.IsConfigurationError(err):
		WriteJSONError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	log.Printf("BlueskyHandler: Publish failed: %v", err)

	response := models.PublishFailureResponse{
		ErrorResponse: models.ErrorResponse{
			Error:   "Bluesky publish failed",
			Details: errorDetails(err),
		},
		Posts: []models.PostRef{},
	}

	var publishErr *bluesky.PublishError
	if errors.As(err, &publishErr) {
		response.RunID = publishErr.RunID
		response.Published = len(publishErr.Published)
		if publishErr.Published != nil {
			response.Posts = publishErr.Published
		}
	}

	WriteJSONStatus(w, http.StatusInternalServerError, response)
}

// errorDetails returns the innermost message of an auth or publish error, which is what the
// remote service reported.
func errorDetails(err error) string {
	var authErr *bluesky.AuthError
	if errors.As(err, &authErr) && authErr.Err != nil {
		return authErr.Err.Error()
	}
	var publishErr *bluesky.PublishError
	if errors.As(err, &publishErr) && publishErr.Err != nil {
		return publishErr.Err.Error()
	}
	return err.Error()
}
