package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain tries multiple TTS providers in priority order until one
// produces audio. Provider order is fixed at construction; a provider
// returning empty audio counts as a failure and the chain moves on.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a provider chain. Providers are tried in the order
// given.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(slog.Default(), providers...)
}

// NewChainWithLogger creates a provider chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, errors.New("tts: chain requires at least one provider")
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "tts-chain"),
	}, nil
}

// Synthesize tries each provider until one returns non-empty audio.
// On total failure the returned error is a *ChainError holding one
// entry per provider in attempt order.
func (c *Chain) Synthesize(ctx context.Context, text, language string) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var failures []error
	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := p.Synthesize(ctx, text, language)
		if err == nil && (result == nil || len(result.Audio) == 0) {
			err = WrapError(fmt.Sprintf("provider_%d", i), ErrEmptyAudio)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("provider failed, trying next",
				"provider", i,
				"error", err)
			failures = append(failures, err)
			continue
		}

		if i > 0 {
			c.logger.Info("fallback provider succeeded",
				"provider", i,
				"skipped", i)
		}
		return result, nil
	}

	return nil, &ChainError{Errors: failures}
}

// Health reports healthy if any provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var failures []error
	for _, p := range c.providers {
		if err := p.Health(ctx); err != nil {
			failures = append(failures, err)
			continue
		}
		return nil
	}
	return &ChainError{Errors: failures}
}

// Close closes all providers, returning the first error encountered.
func (c *Chain) Close() error {
	var first error
	for _, p := range c.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Providers returns the number of providers in the chain.
func (c *Chain) Providers() int {
	return len(c.providers)
}
