package tts

import (
	"log/slog"
	"time"
)

// Config holds configuration for TTS providers.
type Config struct {
	// APIKey authenticates with the provider.
	APIKey string

	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string

	// Model selects the synthesis model (provider-specific).
	Model string

	// Speaker selects the voice (provider-specific, e.g. "meera").
	Speaker string

	// SampleRate requests a specific output sample rate in Hz.
	SampleRate int

	// Timeout bounds a single synthesis request.
	Timeout time.Duration

	// MaxRetries is the number of retries on retryable errors.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// Logger for provider diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SampleRate: 16000,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Option configures a provider.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel selects the synthesis model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithSpeaker selects the voice.
func WithSpeaker(speaker string) Option {
	return func(c *Config) { c.Speaker = speaker }
}

// WithSampleRate requests an output sample rate in Hz.
func WithSampleRate(hz int) Option {
	return func(c *Config) { c.SampleRate = hz }
}

// WithTimeout bounds a single synthesis request.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry configures retry behavior.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithLogger sets the logger for provider diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the config for required fields.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
