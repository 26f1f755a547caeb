package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kisansathi/go-vani/internal/httpc"
	"github.com/kisansathi/go-vani/pkg/audio"
)

const (
	sarvamTTSBaseURL = "https://api.sarvam.ai"

	// ModelBulbul is Sarvam's Indic text-to-speech model.
	ModelBulbul = "bulbul:v1"

	// SpeakerMeera is the default bulbul voice.
	SpeakerMeera = "meera"

	// sarvamMaxChars is the per-request input limit of the bulbul API.
	sarvamMaxChars = 500
)

// Sarvam implements the Provider interface using Sarvam's text-to-speech
// API. It synthesizes Indian languages with the bulbul family of voices
// and returns 16 kHz WAV audio.
type Sarvam struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// compile-time interface check
var _ Provider = (*Sarvam)(nil)

// NewSarvam creates a Sarvam TTS provider.
func NewSarvam(opts ...Option) (*Sarvam, error) {
	config := DefaultConfig()
	config.BaseURL = sarvamTTSBaseURL
	config.Model = ModelBulbul
	config.Speaker = SpeakerMeera
	config.Apply(opts...)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Sarvam{
		config: config,
		client: httpc.NewClient(config.Timeout),
		logger: config.logger().With("component", "tts-sarvam"),
	}, nil
}

type sarvamRequest struct {
	Inputs             []string `json:"inputs"`
	TargetLanguageCode string   `json:"target_language_code"`
	Speaker            string   `json:"speaker"`
	Model              string   `json:"model"`
	SpeechSampleRate   int      `json:"speech_sample_rate"`
	EnablePreprocess   bool     `json:"enable_preprocessing"`
}

type sarvamResponse struct {
	Audios []string `json:"audios"`
}

// Synthesize converts text to WAV audio via the bulbul API. Inputs
// longer than the API limit are truncated at the limit.
func (s *Sarvam) Synthesize(ctx context.Context, text, language string) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if len([]rune(text)) > sarvamMaxChars {
		text = string([]rune(text)[:sarvamMaxChars])
	}

	body, err := json.Marshal(sarvamRequest{
		Inputs:             []string{text},
		TargetLanguageCode: language,
		Speaker:            s.config.Speaker,
		Model:              s.config.Model,
		SpeechSampleRate:   s.config.SampleRate,
		EnablePreprocess:   true,
	})
	if err != nil {
		return nil, WrapError("sarvam", err)
	}

	start := time.Now()
	respBody, err := s.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	var parsed sarvamResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, WrapError("sarvam", fmt.Errorf("decoding response: %w", err))
	}
	if len(parsed.Audios) == 0 {
		return nil, WrapError("sarvam", ErrEmptyAudio)
	}

	wav, err := base64.StdEncoding.DecodeString(parsed.Audios[0])
	if err != nil {
		return nil, WrapError("sarvam", fmt.Errorf("decoding audio: %w", err))
	}
	if len(wav) == 0 {
		return nil, WrapError("sarvam", ErrEmptyAudio)
	}

	s.logger.Debug("synthesis complete",
		"chars", len(text),
		"bytes", len(wav),
		"language", language,
		"latency_ms", latency.Milliseconds())

	return &AudioResult{
		Audio:      wav,
		MIME:       audio.MIMEWAV,
		SampleRate: s.config.SampleRate,
		Duration:   audio.EstimateDuration(len(wav), s.config.SampleRate),
		CharCount:  len(text),
		LatencyMs:  latency.Milliseconds(),
	}, nil
}

func (s *Sarvam) doWithRetry(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			s.config.BaseURL+"/text-to-speech", bytes.NewReader(body))
		if err != nil {
			return nil, WrapError("sarvam", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-subscription-key", s.config.APIKey)

		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = WrapError("sarvam", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = WrapError("sarvam", err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return respBody, nil
		}

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Provider:   "sarvam",
		}
		if !apiErr.IsRetryable() {
			return nil, apiErr
		}
		s.logger.Warn("retryable API error",
			"status", resp.StatusCode,
			"attempt", attempt+1)
		lastErr = apiErr
	}
	return nil, lastErr
}

// Health verifies API connectivity and key validity.
func (s *Sarvam) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL, nil)
	if err != nil {
		return WrapError("sarvam", err)
	}
	req.Header.Set("api-subscription-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return WrapError("sarvam", ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &APIError{StatusCode: resp.StatusCode, Message: "invalid API key", Provider: "sarvam"}
	}
	return nil
}

// Close releases provider resources.
func (s *Sarvam) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
