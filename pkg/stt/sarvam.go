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
	sarvamBaseURL  = "https://api.sarvam.ai"
	providerSarvam = "sarvam"

	// ModelSaarika is Sarvam's multilingual Indic ASR model.
	ModelSaarika = "saarika:v2.5"
)

// Sarvam implements Provider for the Sarvam AI speech-to-text API.
// It is the accuracy-fit choice for Indian languages.
type Sarvam struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewSarvam creates a new Sarvam STT provider.
func NewSarvam(opts ...Option) (*Sarvam, error) {
	cfg := DefaultConfig()
	cfg.Model = ModelSaarika
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sarvamBaseURL
	}

	return &Sarvam{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "stt.sarvam"),
		baseURL: baseURL,
	}, nil
}

// Transcribe converts recorded audio to text via Sarvam ASR.
func (s *Sarvam) Transcribe(ctx context.Context, clip *audio.Clip, language string) (string, error) {
	start := time.Now()

	body, contentType, err := s.buildForm(clip)
	if err != nil {
		return "", WrapError(providerSarvam, err)
	}

	url := s.baseURL + "/speech-to-text"
	resp, err := s.doWithRetry(ctx, url, body, contentType)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", s.parseError(resp)
	}

	var result struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", WrapError(providerSarvam, fmt.Errorf("decode response: %w", err))
	}

	if strings.TrimSpace(result.Transcript) == "" {
		return "", WrapError(providerSarvam, ErrEmptyTranscript)
	}

	s.logger.Debug("transcribed audio",
		"bytes", clip.Len(),
		"chars", len(result.Transcript),
		"latency_ms", time.Since(start).Milliseconds(),
		"language", language,
	)

	return result.Transcript, nil
}

// Health checks API connectivity and API key validity.
func (s *Sarvam) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/speech-to-text", nil)
	if err != nil {
		return WrapError(providerSarvam, err)
	}
	req.Header.Set("api-subscription-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return WrapError(providerSarvam, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return s.parseError(resp)
	}
	return nil
}

// Close releases resources held by the provider.
func (s *Sarvam) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// buildForm assembles the multipart upload. Browser WebM captures are
// renamed to OGG, which Sarvam accepts for the same Opus payload.
func (s *Sarvam) buildForm(clip *audio.Clip) ([]byte, string, error) {
	data := clip.Data()
	if len(data) == 0 {
		return nil, "", ErrEmptyTranscript
	}

	name := clip.Name()
	if strings.HasSuffix(name, ".webm") {
		name = strings.TrimSuffix(name, ".webm") + ".ogg"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write audio: %w", err)
	}
	if err := w.WriteField("model", s.config.Model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// doWithRetry performs the request with retry logic on 429/5xx.
func (s *Sarvam) doWithRetry(ctx context.Context, url string, body []byte, contentType string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(providerSarvam, err)
		}
		req.Header.Set("api-subscription-key", s.config.APIKey)
		req.Header.Set("Content-Type", contentType)

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = WrapError(providerSarvam, err)
			continue
		}

		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = s.parseError(resp)
			s.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response.
func (s *Sarvam) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

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
		Provider:   providerSarvam,
	}
}

// Verify Sarvam implements Provider at compile time.
var _ Provider = (*Sarvam)(nil)
