package audio

import (
	"context"
	"sync"
	"time"
)

// Player is the device audio-output boundary.
//
// Play blocks until the clip finishes, Stop is called, or ctx is
// cancelled; exactly one of those outcomes resolves each playback, never
// both and never neither. The player reads the clip but never releases
// it; the caller keeps ownership.
type Player interface {
	// Play plays the clip. Returns nil on natural completion or stop,
	// ctx.Err() on cancellation.
	Play(ctx context.Context, clip *Clip) error

	// Stop halts the current playback. Idempotent; no-op when nothing is
	// playing.
	Stop()

	// IsPlaying reports whether a playback is in flight.
	IsPlaying() bool
}

// MemPlayer is an in-memory Player. By default it completes instantly;
// with SetPaced it simulates real-time pacing from the clip length so
// tests can interrupt mid-playback.
type MemPlayer struct {
	// OnPlaybackStart fires when a playback begins.
	OnPlaybackStart func()

	// OnPlaybackEnd fires exactly once per playback, on every exit path.
	OnPlaybackEnd func()

	mu         sync.Mutex
	playing    bool
	stop       chan struct{}
	sampleRate int
	paced      bool
}

// NewMemPlayer creates a player that completes playback immediately.
func NewMemPlayer() *MemPlayer {
	return &MemPlayer{sampleRate: 16000}
}

// SetPaced makes Play take the clip's estimated real-time duration.
func (p *MemPlayer) SetPaced(sampleRate int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paced = true
	if sampleRate > 0 {
		p.sampleRate = sampleRate
	}
}

// Play implements Player.
func (p *MemPlayer) Play(ctx context.Context, clip *Clip) error {
	p.mu.Lock()
	stop := make(chan struct{})
	p.stop = stop
	p.playing = true
	paced := p.paced
	rate := p.sampleRate
	onStart := p.OnPlaybackStart
	p.mu.Unlock()

	if onStart != nil {
		onStart()
	}

	var err error
	if paced {
		timer := time.NewTimer(EstimateDuration(clip.Len(), rate))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-stop:
		case <-timer.C:
		}
	} else {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		default:
		}
	}

	p.mu.Lock()
	p.playing = false
	p.stop = nil
	onEnd := p.OnPlaybackEnd
	p.mu.Unlock()

	if onEnd != nil {
		onEnd()
	}
	return err
}

// Stop implements Player. Safe to call when idle and safe to call twice.
func (p *MemPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		select {
		case <-p.stop:
		default:
			close(p.stop)
		}
		p.stop = nil
	}
}

// IsPlaying implements Player.
func (p *MemPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Verify MemPlayer implements Player at compile time.
var _ Player = (*MemPlayer)(nil)
