package bluesky

import (
	"errors"
	"fmt"

	"github.com/vdavid/mailsky/internal/models"
)

// ErrEmptyThread is returned when Publish is called without chunks. No network call is made.
var ErrEmptyThread = errors.New("thread is empty")

// AuthError indicates that logging in to Bluesky failed.
type AuthError struct {
	// Unauthorized is true when the server rejected the credentials (HTTP 401).
	Unauthorized bool
	Err          error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("bluesky login failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// PublishError reports the chunk that could not be posted. Posts created before it stay live.
type PublishError struct {
	RunID     string
	Index     int
	Total     int
	Published []models.PostRef
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish post %d of %d (%d already published): %v", e.Index+1, e.Total, len(e.Published), e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// IsPublishError reports whether err (or any error in its chain) is a PublishError.
func IsPublishError(err error) bool {
	var publishErr *PublishError
	return errors.As(err, &publishErr)
}
