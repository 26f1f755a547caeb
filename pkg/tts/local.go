package tts

import (
	"context"
	"sync"
	"time"
)

// MemSpeaker is an in-memory LocalSpeaker for tests and for server
// deployments with no audio device. It records what it was asked to
// say and optionally simulates speech duration.
type MemSpeaker struct {
	mu    sync.Mutex
	calls []SpokenText
	delay time.Duration
	err   error
}

// SpokenText records one Speak invocation.
type SpokenText struct {
	Text     string
	Language string
	Time     time.Time
}

// compile-time interface check
var _ LocalSpeaker = (*MemSpeaker)(nil)

// NewMemSpeaker creates an in-memory speaker.
func NewMemSpeaker() *MemSpeaker {
	return &MemSpeaker{}
}

// SetDelay simulates speech taking d to complete.
func (m *MemSpeaker) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetError makes subsequent Speak calls fail with err.
func (m *MemSpeaker) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Speak records the call, then waits out the configured delay or the
// context, whichever ends first.
func (m *MemSpeaker) Speak(ctx context.Context, text, language string) error {
	m.mu.Lock()
	m.calls = append(m.calls, SpokenText{Text: text, Language: language, Time: time.Now()})
	delay, err := m.delay, m.err
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return ctx.Err()
}

// Calls returns a copy of all recorded Speak calls.
func (m *MemSpeaker) Calls() []SpokenText {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SpokenText, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Speak calls.
func (m *MemSpeaker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls.
func (m *MemSpeaker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
