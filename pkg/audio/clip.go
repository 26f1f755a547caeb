// Package audio provides the capture and playback boundaries for the
// voice pipeline, plus the Clip type that carries recorded or synthesized
// audio between stages.
//
// A Clip is singly owned: exactly one component holds it at any point in
// time, ownership transfers explicitly (capture to transcription,
// synthesis to playback), and the owner releases it exactly once on every
// exit path, including cancellation.
package audio

import (
	"sync"
	"time"
)

// Common audio MIME types used by the providers.
const (
	MIMEWAV  = "audio/wav"
	MIMEMP3  = "audio/mpeg"
	MIMEOGG  = "audio/ogg"
	MIMEWebM = "audio/webm"
)

// Clip is a temporary audio artifact. The holder owns the backing data
// and any attached cleanup until Release is called.
type Clip struct {
	data []byte
	mime string
	name string

	mu       sync.Mutex
	released bool
	cleanup  func()
}

// NewClip creates a clip over raw audio bytes.
func NewClip(data []byte, mime string) *Clip {
	return &Clip{data: data, mime: mime, name: "audio" + extForMIME(mime)}
}

// NewNamedClip creates a clip that remembers its original filename.
// Providers that upload multipart files use the name as a format hint.
func NewNamedClip(data []byte, mime, name string) *Clip {
	return &Clip{data: data, mime: mime, name: name}
}

// OnRelease attaches a cleanup function run exactly once when the clip is
// released, e.g. removing a backing temp file.
func (c *Clip) OnRelease(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanup = fn
}

// Data returns the raw audio bytes. Returns nil once released.
func (c *Clip) Data() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	return c.data
}

// MIME returns the audio MIME type.
func (c *Clip) MIME() string { return c.mime }

// Name returns the filename hint for the clip.
func (c *Clip) Name() string { return c.name }

// Len returns the byte length of the clip, or 0 once released.
func (c *Clip) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return 0
	}
	return len(c.data)
}

// Release frees the clip. Safe to call multiple times; the cleanup
// function runs on the first call only.
func (c *Clip) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	cleanup := c.cleanup
	c.data = nil
	c.cleanup = nil
	c.mu.Unlock()

	if cleanup != nil {
		cleanup()
	}
}

// Released reports whether the clip has been released.
func (c *Clip) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// EstimateDuration estimates playback time of PCM16 mono audio from its
// byte count. Compressed formats will read long; this is a pacing hint,
// not a contract.
func EstimateDuration(byteLen, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	samples := byteLen / 2
	seconds := float64(samples) / float64(sampleRate)
	return time.Duration(seconds * float64(time.Second))
}

func extForMIME(mime string) string {
	switch mime {
	case MIMEMP3:
		return ".mp3"
	case MIMEOGG:
		return ".ogg"
	case MIMEWebM:
		return ".webm"
	default:
		return ".wav"
	}
}
