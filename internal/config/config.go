// Package config provides configuration helpers for go-vani commands.
package config

import (
	"fmt"
	"os"
	"time"
)

// Defaults for the voice server.
const (
	DefaultPort           = "8090"
	DefaultLanguage       = "hi-IN"
	DefaultSessionTimeout = 5 * time.Minute
)

// Port returns the listen port from VANI_PORT or the default.
func Port() string {
	if p := os.Getenv("VANI_PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// LogLevel returns the log level from VANI_LOG_LEVEL or "info".
func LogLevel() string {
	if l := os.Getenv("VANI_LOG_LEVEL"); l != "" {
		return l
	}
	return "info"
}

// DefaultLanguageCode returns the assistant language from VANI_LANGUAGE.
func DefaultLanguageCode() string {
	if l := os.Getenv("VANI_LANGUAGE"); l != "" {
		return l
	}
	return DefaultLanguage
}

// SessionIdleTimeout returns the registry idle timeout from
// VANI_SESSION_TIMEOUT (Go duration syntax) or the default.
func SessionIdleTimeout() time.Duration {
	v := os.Getenv("VANI_SESSION_TIMEOUT")
	if v == "" {
		return DefaultSessionTimeout
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid VANI_SESSION_TIMEOUT %q, using %s\n", v, DefaultSessionTimeout)
		return DefaultSessionTimeout
	}
	return d
}

// SarvamAPIKey returns the Sarvam API key from SARVAM_API_KEY.
func SarvamAPIKey() string {
	return os.Getenv("SARVAM_API_KEY")
}

// GroqAPIKey returns the Groq API key from GROQ_API_KEY.
func GroqAPIKey() string {
	return os.Getenv("GROQ_API_KEY")
}

// GroqAPIKeyRequired returns the Groq API key or exits with usage help.
func GroqAPIKeyRequired() string {
	key := os.Getenv("GROQ_API_KEY")
	if key == "" {
		fmt.Fprintln(os.Stderr, "Error: GROQ_API_KEY environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: GROQ_API_KEY=gsk_... go run ./cmd/vani-server")
		os.Exit(1)
	}
	return key
}

// BhashiniAPIKey returns the Bhashini API key from BHASHINI_API_KEY.
func BhashiniAPIKey() string {
	return os.Getenv("BHASHINI_API_KEY")
}
