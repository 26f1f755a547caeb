package tts

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by TTS providers.
var (
	// ErrNoAPIKey indicates a missing API key.
	ErrNoAPIKey = errors.New("tts: API key not provided")

	// ErrEmptyText indicates empty input text.
	ErrEmptyText = errors.New("tts: empty text input")

	// ErrEmptyAudio indicates the provider returned no audio bytes.
	// Empty audio is a provider failure, never a success.
	ErrEmptyAudio = errors.New("tts: provider returned empty audio")

	// ErrProviderUnavailable indicates the provider endpoint is unreachable.
	ErrProviderUnavailable = errors.New("tts: provider unavailable")

	// ErrUnsupportedLanguage indicates the provider cannot synthesize the
	// requested language.
	ErrUnsupportedLanguage = errors.New("tts: unsupported language")
)

// APIError represents an error response from a TTS API.
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tts: %s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if the error is a rate limit error.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true if the error is an authentication error.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsServerError returns true if the error is a server-side error.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// IsRetryable returns true if the request may succeed on retry.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("tts: provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// ChainError aggregates the failures of every provider in a chain, in
// attempt order.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "tts: all providers failed"
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("tts: all %d providers failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap returns the aggregated errors for errors.Is / errors.As.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}
