package web

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kisansathi/go-vani/pkg/audio"
	"github.com/kisansathi/go-vani/pkg/hub"
	"github.com/kisansathi/go-vani/pkg/registry"
	"github.com/kisansathi/go-vani/pkg/session"
)

// statusClientClosedRequest mirrors nginx's 499 for cancelled turns.
const statusClientClosedRequest = 499

// CreateSessionRequest is the body for POST /api/voice/sessions.
type CreateSessionRequest struct {
	Language string `json:"language"`
}

// CreateSessionResponse identifies the new session.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Language  string `json:"language"`
}

// TurnRequest is the JSON body for text turns.
type TurnRequest struct {
	Text string `json:"text"`
}

// TurnResponse is the completed turn payload.
type TurnResponse struct {
	TurnID       string `json:"turn_id"`
	Transcript   string `json:"transcript"`
	Reply        string `json:"reply"`
	Degraded     bool   `json:"degraded"`
	SpokeLocally bool   `json:"spoke_locally"`
	Audio        string `json:"audio,omitempty"` // base64
	MIME         string `json:"mime,omitempty"`
	LatencyMs    int64  `json:"latency_ms"`
}

// handleCreateSession registers a new session.
func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.Language == "" {
		req.Language = "hi-IN"
	}
	if !SupportedLanguage(req.Language) {
		return fiber.NewError(fiber.StatusBadRequest, "unsupported language: "+req.Language)
	}

	sess := s.registry.Create(req.Language)
	return c.Status(fiber.StatusCreated).JSON(CreateSessionResponse{
		SessionID: sess.ID,
		Language:  sess.Language(),
	})
}

// handleTurn submits a turn. Multipart bodies carry an "audio" file
// for voice turns; JSON bodies carry text. The handler blocks until
// the turn resolves, and a newer request on the same session wins by
// cancelling this one.
func (s *Server) handleTurn(c *fiber.Ctx) error {
	id := c.Params("id")

	var (
		turn *session.Turn
		err  error
	)
	if file, ferr := c.FormFile("audio"); ferr == nil {
		clip, cerr := clipFromUpload(file)
		if cerr != nil {
			return fiber.NewError(fiber.StatusBadRequest, cerr.Error())
		}
		turn, err = s.registry.BeginVoiceTurn(c.Context(), id, clip)
	} else {
		var req TurnRequest
		if perr := c.BodyParser(&req); perr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "expected multipart audio or JSON text")
		}
		turn, err = s.registry.BeginTextTurn(c.Context(), id, req.Text)
	}
	if err != nil {
		return mapTurnError(err)
	}

	result, err := turn.Wait(context.Background())
	if err != nil {
		return mapTurnError(err)
	}

	resp := TurnResponse{
		TurnID:       turn.ID,
		Transcript:   result.Transcript,
		Reply:        result.Reply,
		Degraded:     result.Degraded,
		SpokeLocally: result.SpokeLocally,
		LatencyMs:    result.Latency.Milliseconds(),
	}
	if len(result.Audio) > 0 {
		resp.Audio = base64.StdEncoding.EncodeToString(result.Audio)
		resp.MIME = result.MIME
	}
	return c.JSON(resp)
}

// handleCancel interrupts the session's active turn.
func (s *Server) handleCancel(c *fiber.Ctx) error {
	cancelled, err := s.registry.CancelTurn(c.Params("id"))
	if err != nil {
		return mapTurnError(err)
	}
	return c.JSON(fiber.Map{"cancelled": cancelled})
}

// handleEndSession closes and removes the session.
func (s *Server) handleEndSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.registry.End(id); err != nil {
		return mapTurnError(err)
	}
	s.events.BroadcastEvent(id, "", hub.EventSessionEnded, "")
	return c.SendStatus(fiber.StatusNoContent)
}

// handleStats reports registry load.
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.registry.Stats())
}

// handleLanguages lists the supported language catalogue.
func (s *Server) handleLanguages(c *fiber.Ctx) error {
	return c.JSON(Languages)
}

// handleHealth probes every registered upstream dependency.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	status := fiber.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = fiber.StatusServiceUnavailable
		} else {
			deps[name] = "ok"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"status":       healthWord(status),
		"dependencies": deps,
	})
}

func healthWord(status int) string {
	if status == fiber.StatusOK {
		return "healthy"
	}
	return "degraded"
}

// clipFromUpload reads the multipart file into a named clip so the
// transcription providers keep the original format hint.
func clipFromUpload(file *multipart.FileHeader) (*audio.Clip, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	mime := file.Header.Get("Content-Type")
	if mime == "" {
		mime = mimeFromName(file.Filename)
	}
	return audio.NewNamedClip(data, mime, file.Filename), nil
}

func mimeFromName(name string) string {
	switch {
	case strings.HasSuffix(name, ".webm"):
		return audio.MIMEWebM
	case strings.HasSuffix(name, ".ogg"):
		return audio.MIMEOGG
	case strings.HasSuffix(name, ".mp3"):
		return audio.MIMEMP3
	default:
		return audio.MIMEWAV
	}
}

// mapTurnError converts pipeline errors to HTTP statuses.
func mapTurnError(err error) error {
	switch {
	case errors.Is(err, registry.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrSessionBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, session.ErrCancelled):
		return fiber.NewError(statusClientClosedRequest, "turn cancelled by a newer request")
	case errors.Is(err, session.ErrEmptyQuery), errors.Is(err, audio.ErrNoAudio):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrSessionClosed):
		return fiber.NewError(fiber.StatusGone, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}
