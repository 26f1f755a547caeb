package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kisansathi/go-vani/internal/httpc"
	"github.com/kisansathi/go-vani/pkg/audio"
)

const (
	whisperBaseURL  = "https://api.groq.com/openai/v1"
	providerWhisper = "whisper"

	// ModelWhisperLargeV3 is the hosted Whisper model on Groq.
	ModelWhisperLargeV3 = "whisper-large-v3"
)

// Whisper implements Provider against any OpenAI-compatible
// /audio/transcriptions endpoint (Groq by default). It trades some
// Indic-language accuracy for availability, which makes it the usual
// fallback behind Sarvam.
type Whisper struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewWhisper creates a new Whisper STT provider.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Model = ModelWhisperLargeV3
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = whisperBaseURL
	}

	return &Whisper{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "stt.whisper"),
		baseURL: baseURL,
	}, nil
}

// Transcribe converts recorded audio to text.
func (w *Whisper) Transcribe(ctx context.Context, clip *audio.Clip, language string) (string, error) {
	start := time.Now()

	data := clip.Data()
	if len(data) == 0 {
		return "", WrapError(providerWhisper, ErrEmptyTranscript)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", clip.Name())
	if err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("write audio: %w", err))
	}
	if err := form.WriteField("model", w.config.Model); err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("write model field: %w", err))
	}
	if err := form.WriteField("response_format", "json"); err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("write format field: %w", err))
	}
	if lang := baseLanguage(language); lang != "" {
		if err := form.WriteField("language", lang); err != nil {
			return "", WrapError(providerWhisper, fmt.Errorf("write language field: %w", err))
		}
	}
	if err := form.Close(); err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("close form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+w.config.APIKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("transcription request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", w.parseError(resp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("decode response: %w", err))
	}

	if strings.TrimSpace(result.Text) == "" {
		return "", WrapError(providerWhisper, ErrEmptyTranscript)
	}

	w.logger.Debug("transcribed audio",
		"bytes", len(data),
		"chars", len(result.Text),
		"latency_ms", time.Since(start).Milliseconds(),
		"model", w.config.Model,
	)

	return result.Text, nil
}

// Health checks API connectivity and API key validity.
func (w *Whisper) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", w.baseURL+"/models", nil)
	if err != nil {
		return WrapError(providerWhisper, err)
	}
	req.Header.Set("Authorization", "Bearer "+w.config.APIKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return WrapError(providerWhisper, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return w.parseError(resp)
	}
	return nil
}

// Close releases resources held by the provider.
func (w *Whisper) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

// parseError reads and parses an error response.
func (w *Whisper) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerWhisper,
	}
}

// baseLanguage reduces a BCP-47 tag like "hi-IN" to the bare code
// Whisper expects ("hi").
func baseLanguage(language string) string {
	if i := strings.IndexByte(language, '-'); i > 0 {
		return language[:i]
	}
	return language
}

// Verify Whisper implements Provider at compile time.
var _ Provider = (*Whisper)(nil)
