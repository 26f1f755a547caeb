package inference

import (
	"context"
	"errors"
	"log/slog"
)

// Chain tries multiple inference providers in priority order until one
// produces a response. It lets a deployment prefer a fast hosted model
// and fall back to a local one when the API is down.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)

// NewChain creates a provider chain. Providers are tried in the order
// given.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(slog.Default(), providers...)
}

// NewChainWithLogger creates a provider chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, errors.New("inference: chain requires at least one provider")
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "inference.chain"),
	}, nil
}

// Chat tries each provider until one returns a response. On total
// failure the returned error is a *ChainError with one entry per
// provider in attempt order.
func (c *Chain) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var failures []error
	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := p.Chat(ctx, req)
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
			c.logger.Info("fallback provider succeeded", "provider", i)
		}
		return resp, nil
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
