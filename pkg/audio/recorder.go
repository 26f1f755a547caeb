package audio

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoAudio is returned when a capture ends without producing any audio.
var ErrNoAudio = errors.New("audio: no audio captured")

// DefaultMaxRecordDuration bounds capture as a safety net independent of
// explicit cancellation, so a missed stop never records forever.
const DefaultMaxRecordDuration = 15 * time.Second

// RecordOptions configures one capture.
type RecordOptions struct {
	// SampleRate in Hz (e.g. 16000).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// MaxDuration auto-stops the capture. Zero means
	// DefaultMaxRecordDuration.
	MaxDuration time.Duration
}

// Recorder is the device microphone boundary. One capture is in flight
// at a time.
type Recorder interface {
	// Record captures audio until RequestStop is called, MaxDuration
	// elapses, or ctx is cancelled. On success the returned clip is owned
	// by the caller. On cancellation the partial capture is discarded and
	// ctx.Err() is returned.
	Record(ctx context.Context, opts RecordOptions) (*Clip, error)

	// RequestStop ends the in-flight capture early; the audio recorded so
	// far is returned by Record. Safe to call when nothing is recording.
	RequestStop()
}

// MemRecorder is an in-memory Recorder for tests and the server, where
// audio arrives as an uploaded artifact rather than from a device.
type MemRecorder struct {
	mu    sync.Mutex
	next  []byte
	mime  string
	delay time.Duration
	stop  chan struct{}
}

// NewMemRecorder creates a recorder that yields the given bytes.
func NewMemRecorder(data []byte, mime string) *MemRecorder {
	return &MemRecorder{next: data, mime: mime}
}

// SetDelay makes Record wait the given duration before auto-completing,
// simulating a user who keeps talking.
func (r *MemRecorder) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

// Record implements Recorder.
func (r *MemRecorder) Record(ctx context.Context, opts RecordOptions) (*Clip, error) {
	r.mu.Lock()
	stop := make(chan struct{})
	r.stop = stop
	delay := r.delay
	data := make([]byte, len(r.next))
	copy(data, r.next)
	mime := r.mime
	r.mu.Unlock()

	maxDur := opts.MaxDuration
	if maxDur <= 0 {
		maxDur = DefaultMaxRecordDuration
	}

	timer := time.NewTimer(maxDur)
	defer timer.Stop()

	var settle <-chan time.Time
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		settle = t.C
	} else {
		done := make(chan time.Time, 1)
		done <- time.Time{}
		settle = done
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-stop:
	case <-timer.C:
	case <-settle:
	}

	if len(data) == 0 {
		return nil, ErrNoAudio
	}
	return NewClip(data, mime), nil
}

// RequestStop implements Recorder.
func (r *MemRecorder) RequestStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		select {
		case <-r.stop:
		default:
			close(r.stop)
		}
		r.stop = nil
	}
}

// Verify MemRecorder implements Recorder at compile time.
var _ Recorder = (*MemRecorder)(nil)
