package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a provider answers without any choice
var ErrEmptyResponse = errors.New("empty response from provider")

// StatusError is returned when a provider answers with a non-200 status
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

// ErrProviderNotFound is returned by the router for unknown providers
type ErrProviderNotFound struct {
	Provider string
}

func (e ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider not found: %s", e.Provider)
}
