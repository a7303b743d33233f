package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/vdavid/mailsky/internal/models"
)

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 2 << 20

// WriteJSONResponse writes data as a 200 JSON response.
// Returns false if encoding failed; an error response has been written in that case.
func WriteJSONResponse(w http.ResponseWriter, data any) bool {
	return WriteJSONStatus(w, http.StatusOK, data)
}

// WriteJSONStatus writes data as a JSON response with the given status.
// Encodes to a buffer first to prevent partial writes if JSON encoding fails.
func WriteJSONStatus(w http.ResponseWriter, status int, data any) bool {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	// Only write headers and body if encoding succeeded
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("API: Failed to write response: %v", err)
	}
	return true
}

// WriteJSONError writes an {error, details} body. details is omitted when empty.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	WriteJSONStatus(w, status, models.ErrorResponse{Error: message, Details: details})
}

// decodeJSONBody decodes a size-limited JSON request body into dst.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// decodeStatus maps a body decoding error to an HTTP status.
func decodeStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// requireMethod writes 405 and returns false when r does not use method.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
