package tts

import (
	"context"
	"sync"
	"time"

	"github.com/kisansathi/go-vani/pkg/audio"
)

// Mock implements the Provider interface for testing.
type Mock struct {
	mu    sync.Mutex
	calls []MockCall

	// SynthesizeFunc overrides the default Synthesize behavior.
	SynthesizeFunc func(ctx context.Context, text, language string) (*AudioResult, error)

	// HealthFunc overrides the default Health behavior.
	HealthFunc func(ctx context.Context) error

	// CloseFunc overrides the default Close behavior.
	CloseFunc func() error
}

// MockCall records a single provider invocation.
type MockCall struct {
	Method   string
	Text     string
	Language string
	Time     time.Time
}

// compile-time interface check
var _ Provider = (*Mock)(nil)

// NewMock creates a mock that returns audio bytes for any text.
func NewMock(audioData []byte) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text, language string) (*AudioResult, error) {
			return &AudioResult{
				Audio:      audioData,
				MIME:       audio.MIMEWAV,
				SampleRate: 16000,
				Duration:   audio.EstimateDuration(len(audioData), 16000),
				CharCount:  len(text),
			}, nil
		},
	}
}

// Synthesize records the call and delegates to SynthesizeFunc.
func (m *Mock) Synthesize(ctx context.Context, text, language string) (*AudioResult, error) {
	m.record("Synthesize", text, language)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, language)
	}
	return &AudioResult{Audio: []byte("audio"), MIME: audio.MIMEWAV, SampleRate: 16000, CharCount: len(text)}, nil
}

// Health records the call and delegates to HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", "", "")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close records the call and delegates to CloseFunc.
func (m *Mock) Close() error {
	m.record("Close", "", "")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) record(method, text, language string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:   method,
		Text:     text,
		Language: language,
		Time:     time.Now(),
	})
}

// Calls returns a copy of all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of recorded calls for a method.
// An empty method counts all calls.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if method == "" {
		return len(m.calls)
	}
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock whose Synthesize always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text, language string) (*AudioResult, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error { return err },
	}
}

// WithLatency wraps a mock's Synthesize with a delay, honoring ctx.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	inner := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, text, language string) (*AudioResult, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if inner != nil {
			return inner(ctx, text, language)
		}
		return &AudioResult{Audio: []byte("audio"), MIME: audio.MIMEWAV, SampleRate: 16000}, nil
	}
	return m
}
