package api

import (
	"log"
	"net/http"

	"github.com/vdavid/mailsky/internal/models"
	"github.com/vdavid/mailsky/internal/thread"
)

// ThreadHandler previews how text is split into posts.
type ThreadHandler struct {
	maxLength int
}

// NewThreadHandler creates a new ThreadHandler with the default post length.
func NewThreadHandler(maxLength int) *ThreadHandler {
	if maxLength <= 0 {
		maxLength = thread.DefaultMaxLength
	}
	return &ThreadHandler{maxLength: maxLength}
}

// Split splits the request text into chunks. A maxLength in the body overrides the default
// but can only make posts shorter.
func (h *ThreadHandler) Split(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.SplitRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		log.Printf("ThreadHandler: Failed to decode request: %v", err)
		WriteJSONError(w, decodeStatus(err), "Invalid request body", err.Error())
		return
	}

	maxLength := h.maxLength
	if req.MaxLength < 0 {
		WriteJSONError(w, http.StatusBadRequest, "maxLength must not be negative", "")
		return
	}
	if req.MaxLength > 0 && req.MaxLength < maxLength {
		maxLength = req.MaxLength
	}

	chunks := thread.SplitChunks(req.Text, maxLength)
	entries := make([]models.ChunkEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = models.ChunkEntry{
			Index:  chunk.Index,
			Text:   chunk.Text,
			Length: thread.Length(chunk.Text),
		}
	}

	WriteJSONResponse(w, models.SplitResponse{
		MaxLength: maxLength,
		Chunks:    entries,
	})
}
