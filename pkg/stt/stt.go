// Package stt provides a unified interface for speech-to-text providers.
//
// The package supports multiple STT backends including Sarvam (Indic
// language fit) and Whisper via any OpenAI-compatible endpoint such as
// Groq (availability fallback). All providers implement the Provider
// interface; Chain tries them in priority order until one succeeds.
//
// Example usage:
//
//	primary, _ := stt.NewSarvam(stt.WithAPIKey(os.Getenv("SARVAM_API_KEY")))
//	fallback, _ := stt.NewWhisper(stt.WithAPIKey(os.Getenv("GROQ_API_KEY")))
//	chain, _ := stt.NewChain(primary, fallback)
//	defer chain.Close()
//
//	text, _ := chain.Transcribe(ctx, clip, "hi-IN")
package stt

import (
	"context"

	"github.com/kisansathi/go-vani/pkg/audio"
)

// Provider defines the STT provider interface.
// An empty transcript is a provider failure, never a success; providers
// must return ErrEmptyTranscript rather than "".
type Provider interface {
	// Transcribe converts recorded audio to text. The clip is borrowed,
	// not owned; the caller releases it.
	Transcribe(ctx context.Context, clip *audio.Clip, language string) (string, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}
