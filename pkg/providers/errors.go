package providers

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is wrapped by a ProviderError when a keyed provider
// has no API key configured.
var ErrMissingCredentials = errors.New("api key is not configured")

// ProviderError reports a failed adapter call: transport failure, non-2xx
// status, malformed payload or missing credentials.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerErr(provider string, status int, err error) error {
	return &ProviderError{Provider: provider, StatusCode: status, Err: err}
}

// IsProviderError reports whether err carries a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
