package config

import "errors"

// ConfigurationError reports a required setting that is missing. It is returned before any
// network attempt is made.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

var (
	ErrIMAPHostMissing      = &ConfigurationError{Message: "IMAP_HOST is not set"}
	ErrIMAPNotConfigured    = &ConfigurationError{Message: "IMAP configuration is incomplete"}
	ErrBlueskyNotConfigured = &ConfigurationError{Message: "Bluesky configuration is incomplete"}
)

// IsConfigurationError reports whether err (or any error in its chain) is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
