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

const bhashiniBaseURL = "https://dhruva-api.bhashini.gov.in"

// ttsServiceIDs maps base language codes to Bhashini TTS service IDs.
var ttsServiceIDs = map[string]string{
	"hi": "ai4bharat/tts-hindi-female",
	"en": "ai4bharat/tts-indianenglish-female",
	"bn": "ai4bharat/tts-bengali-female",
	"te": "ai4bharat/tts-telugu-female",
	"mr": "ai4bharat/tts-marathi-female",
	"ta": "ai4bharat/tts-tamil-female",
}

// Bhashini implements the Provider interface using the Bhashini pipeline
// inference API, India's government language platform. It is the
// fallback behind Sarvam.
type Bhashini struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// compile-time interface check
var _ Provider = (*Bhashini)(nil)

// NewBhashini creates a Bhashini TTS provider.
func NewBhashini(opts ...Option) (*Bhashini, error) {
	config := DefaultConfig()
	config.BaseURL = bhashiniBaseURL
	config.Apply(opts...)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Bhashini{
		config: config,
		client: httpc.NewClient(config.Timeout),
		logger: config.logger().With("component", "tts-bhashini"),
	}, nil
}

type bhashiniTask struct {
	TaskType string         `json:"taskType"`
	Config   bhashiniConfig `json:"config"`
}

type bhashiniConfig struct {
	Language    bhashiniLanguage `json:"language"`
	ServiceID   string           `json:"serviceId"`
	Gender      string           `json:"gender,omitempty"`
	AudioFormat string           `json:"audioFormat,omitempty"`
}

type bhashiniLanguage struct {
	SourceLanguage string `json:"sourceLanguage"`
}

type bhashiniRequest struct {
	PipelineTasks []bhashiniTask    `json:"pipelineTasks"`
	InputData     bhashiniInputData `json:"inputData"`
}

type bhashiniInputData struct {
	Text []bhashiniText `json:"text"`
}

type bhashiniText struct {
	Source string `json:"source"`
}

type bhashiniResponse struct {
	PipelineResponse []struct {
		Output []struct {
			Audio string `json:"audio"`
		} `json:"output"`
		Audio []struct {
			AudioContent string `json:"audioContent"`
		} `json:"audio"`
	} `json:"pipelineResponse"`
}

// Synthesize runs a single-task TTS pipeline and returns WAV audio.
func (b *Bhashini) Synthesize(ctx context.Context, text, language string) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	lang := baseLanguage(language)
	serviceID, ok := ttsServiceIDs[lang]
	if !ok {
		return nil, WrapError("bhashini", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language))
	}

	body, err := json.Marshal(bhashiniRequest{
		PipelineTasks: []bhashiniTask{{
			TaskType: "tts",
			Config: bhashiniConfig{
				Language:    bhashiniLanguage{SourceLanguage: lang},
				ServiceID:   serviceID,
				Gender:      "female",
				AudioFormat: "wav",
			},
		}},
		InputData: bhashiniInputData{Text: []bhashiniText{{Source: text}}},
	})
	if err != nil {
		return nil, WrapError("bhashini", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.config.BaseURL+"/services/inference/pipeline", bytes.NewReader(body))
	if err != nil {
		return nil, WrapError("bhashini", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.config.APIKey)

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, WrapError("bhashini", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError("bhashini", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Provider:   "bhashini",
		}
	}

	var parsed bhashiniResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, WrapError("bhashini", fmt.Errorf("decoding response: %w", err))
	}

	encoded := ""
	if len(parsed.PipelineResponse) > 0 {
		pr := parsed.PipelineResponse[0]
		if len(pr.Output) > 0 && pr.Output[0].Audio != "" {
			encoded = pr.Output[0].Audio
		} else if len(pr.Audio) > 0 {
			encoded = pr.Audio[0].AudioContent
		}
	}
	if encoded == "" {
		return nil, WrapError("bhashini", ErrEmptyAudio)
	}

	wav, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, WrapError("bhashini", fmt.Errorf("decoding audio: %w", err))
	}
	if len(wav) == 0 {
		return nil, WrapError("bhashini", ErrEmptyAudio)
	}

	latency := time.Since(start)
	b.logger.Debug("synthesis complete",
		"chars", len(text),
		"bytes", len(wav),
		"language", language,
		"latency_ms", latency.Milliseconds())

	return &AudioResult{
		Audio:      wav,
		MIME:       audio.MIMEWAV,
		SampleRate: b.config.SampleRate,
		Duration:   audio.EstimateDuration(len(wav), b.config.SampleRate),
		CharCount:  len(text),
		LatencyMs:  latency.Milliseconds(),
	}, nil
}

// Health verifies pipeline endpoint reachability.
func (b *Bhashini) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.config.BaseURL, nil)
	if err != nil {
		return WrapError("bhashini", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.config.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return WrapError("bhashini", ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &APIError{StatusCode: resp.StatusCode, Message: "invalid API key", Provider: "bhashini"}
	}
	return nil
}

// Close releases provider resources.
func (b *Bhashini) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
