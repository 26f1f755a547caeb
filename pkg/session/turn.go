package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TurnResult carries everything a completed turn produced. Degraded
// turns still count as completions.
type TurnResult struct {
	// Transcript is the recognized user text. Empty for text turns'
	// echo (the query itself is the transcript there).
	Transcript string

	// Reply is the assistant text that was spoken.
	Reply string

	// Audio is the synthesized reply audio, nil when the turn fell
	// back to the local speaker or to text only.
	Audio []byte

	// MIME describes Audio when present.
	MIME string

	// Degraded is true when the reply came from the canned fallback
	// instead of the model.
	Degraded bool

	// SpokeLocally is true when synthesis failed and the reply was
	// spoken on-device instead.
	SpokeLocally bool

	// Latency is the end-to-end turn duration.
	Latency time.Duration
}

// Turn is one in-flight voice or text interaction. A turn resolves
// exactly once: with a result or with an error (ErrCancelled counts as
// an error resolution).
type Turn struct {
	// ID uniquely identifies the turn.
	ID string

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	result *TurnResult
	err    error
	done   chan struct{}
	start  time.Time
}

func newTurn(parent context.Context) *Turn {
	ctx, cancel := context.WithCancel(parent)
	return &Turn{
		ID:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		start:  time.Now(),
	}
}

// resolve records the turn outcome exactly once.
func (t *Turn) resolve(result *TurnResult, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.done:
		return
	default:
	}
	if result != nil {
		result.Latency = time.Since(t.start)
	}
	t.result = result
	t.err = err
	close(t.done)
}

// Done returns a channel closed when the turn resolves.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn resolves or ctx expires.
func (t *Turn) Wait(ctx context.Context) (*TurnResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return t.Result()
	}
}

// Result returns the outcome of a resolved turn. Calling it before the
// turn resolves returns nil, nil.
func (t *Turn) Result() (*TurnResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}
