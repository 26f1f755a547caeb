// Package tts provides a unified interface for text-to-speech providers.
//
// The package supports multiple TTS backends including Sarvam (bulbul
// voices for Indian languages) and the Bhashini pipeline. All providers
// implement the Provider interface; Chain tries them in priority order
// until one succeeds. A LocalSpeaker covers the degraded mode where every
// network provider is down: it speaks on-device and returns no artifact.
//
// Example usage:
//
//	primary, _ := tts.NewSarvam(tts.WithAPIKey(os.Getenv("SARVAM_API_KEY")))
//	chain, _ := tts.NewChain(primary)
//	defer chain.Close()
//
//	result, _ := chain.Synthesize(ctx, tts.Normalize("₹1240 per quintal", "en-IN"), "en-IN")
//	// result.Audio contains WAV audio bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
// Callers normalize text once, before the first provider attempt, so all
// providers in a chain see identical input (see Normalize).
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio
	// buffer. An empty buffer is a provider failure, never a success.
	Synthesize(ctx context.Context, text, language string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// LocalSpeaker is the degraded-mode boundary: on-device speech with no
// audio artifact. Speak blocks until done and must honor ctx
// cancellation.
type LocalSpeaker interface {
	Speak(ctx context.Context, text, language string) error
}

// SpeakerFunc adapts a function to the LocalSpeaker interface.
type SpeakerFunc func(ctx context.Context, text, language string) error

// Speak implements LocalSpeaker.
func (f SpeakerFunc) Speak(ctx context.Context, text, language string) error {
	return f(ctx, text, language)
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data.
	Audio []byte

	// MIME describes the audio container (audio/wav, audio/mpeg, ...).
	MIME string

	// SampleRate in Hz (e.g. 16000, 22050).
	SampleRate int

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request time in milliseconds.
	LatencyMs int64
}
