package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/kisansathi/go-vani/pkg/hub"
	"github.com/kisansathi/go-vani/pkg/inference"
	"github.com/kisansathi/go-vani/pkg/registry"
	"github.com/kisansathi/go-vani/pkg/session"
	"github.com/kisansathi/go-vani/pkg/stt"
	"github.com/kisansathi/go-vani/pkg/tts"
)

func newTestServer(t *testing.T, generator session.Generator, opts ...ServerOption) (*Server, *registry.Registry) {
	t.Helper()
	factory := func(language string) *session.Session {
		return session.New(
			stt.NewMock("mirchi ka bhav"),
			generator,
			tts.NewMock([]byte("wav-bytes")),
			session.WithLanguage(language),
		)
	}
	reg := registry.New(factory)
	t.Cleanup(func() { reg.Close() })

	events := hub.New("events", slog.Default())
	srv := NewServer("0", reg, events, opts...)
	return srv, reg
}

func jsonRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestCreateSession(t *testing.T) {
	srv, reg := newTestServer(t, inference.NewMock("namaste"))

	resp, err := srv.App().Test(jsonRequest(t, http.MethodPost, "/api/voice/sessions", CreateSessionRequest{Language: "mr-IN"}))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	created := decodeJSON[CreateSessionResponse](t, resp)
	if created.Language != "mr-IN" {
		t.Errorf("Language = %q", created.Language)
	}
	if _, err := reg.Session(created.SessionID); err != nil {
		t.Errorf("created session not in registry: %v", err)
	}
}

func TestCreateSessionDefaultsToHindi(t *testing.T) {
	srv, _ := newTestServer(t, inference.NewMock("namaste"))

	req, _ := http.NewRequest(http.MethodPost, "/api/voice/sessions", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	created := decodeJSON[CreateSessionResponse](t, resp)
	if created.Language != "hi-IN" {
		t.Errorf("Language = %q, want hi-IN", created.Language)
	}
}

func TestCreateSessionUnsupportedLanguage(t *testing.T) {
	srv, _ := newTestServer(t, inference.NewMock("namaste"))

	resp, err := srv.App().Test(jsonRequest(t, http.MethodPost, "/api/voice/sessions", CreateSessionRequest{Language: "fr-FR"}))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTextTurn(t *testing.T) {
	srv, reg := newTestServer(t, inference.NewMock("Pyaz aaj ₹1240 hai"))
	sess := reg.Create("hi-IN")

	resp, err := srv.App().Test(
		jsonRequest(t, http.MethodPost, "/api/voice/sessions/"+sess.ID+"/turns", TurnRequest{Text: "pyaz ka bhav?"}),
		5000,
	)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	turn := decodeJSON[TurnResponse](t, resp)
	if turn.Transcript != "pyaz ka bhav?" {
		t.Errorf("Transcript = %q", turn.Transcript)
	}
	if turn.Reply != "Pyaz aaj ₹1240 hai" {
		t.Errorf("Reply = %q", turn.Reply)
	}
	audioBytes, err := base64.StdEncoding.DecodeString(turn.Audio)
	if err != nil {
		t.Fatalf("audio is not base64: %v", err)
	}
	if string(audioBytes) != "wav-bytes" {
		t.Errorf("audio = %q", audioBytes)
	}
	if turn.MIME != "audio/wav" {
		t.Errorf("MIME = %q", turn.MIME)
	}
}

func TestVoiceTurnUpload(t *testing.T) {
	srv, reg := newTestServer(t, inference.NewMock("uttar"))
	sess := reg.Create("hi-IN")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="audio"; filename="capture.webm"`)
	header.Set("Content-Type", "audio/webm")
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := io.Copy(part, strings.NewReader("webm-opus-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	w.Close()

	req, _ := http.NewRequest(http.MethodPost, "/api/voice/sessions/"+sess.ID+"/turns", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := srv.App().Test(req, 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	turn := decodeJSON[TurnResponse](t, resp)
	if turn.Transcript != "mirchi ka bhav" {
		t.Errorf("Transcript = %q", turn.Transcript)
	}
	if turn.Reply != "uttar" {
		t.Errorf("Reply = %q", turn.Reply)
	}
}

func TestTurnUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t, inference.NewMock("uttar"))

	resp, err := srv.App().Test(jsonRequest(t, http.MethodPost, "/api/voice/sessions/no-such-id/turns", TurnRequest{Text: "hi"}))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestEmptyTextTurn(t *testing.T) {
	srv, reg := newTestServer(t, inference.NewMock("uttar"))
	sess := reg.Create("hi-IN")

	resp, err := srv.App().Test(jsonRequest(t, http.MethodPost, "/api/voice/sessions/"+sess.ID+"/turns", TurnRequest{Text: "  "}))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCancelledTurnReturns499(t *testing.T) {
	slow := &inference.Mock{}
	slow.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	srv, reg := newTestServer(t, slow)
	sess := reg.Create("hi-IN")

	type turnOutcome struct {
		resp *http.Response
		err  error
	}
	outcome := make(chan turnOutcome, 1)
	go func() {
		resp, err := srv.App().Test(
			jsonRequest(t, http.MethodPost, "/api/voice/sessions/"+sess.ID+"/turns", TurnRequest{Text: "slow"}),
			-1,
		)
		outcome <- turnOutcome{resp, err}
	}()

	deadline := time.After(2 * time.Second)
	for sess.CurrentTurn() == nil {
		select {
		case <-deadline:
			t.Fatal("turn never started")
		case <-time.After(time.Millisecond):
		}
	}

	resp, err := srv.App().Test(jsonRequest(t, http.MethodPost, "/api/voice/sessions/"+sess.ID+"/cancel", nil))
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}
	body := decodeJSON[map[string]bool](t, resp)
	if !body["cancelled"] {
		t.Error("cancel did not report an active turn")
	}

	got := <-outcome
	if got.err != nil {
		t.Fatalf("turn request failed: %v", got.err)
	}
	if got.resp.StatusCode != statusClientClosedRequest {
		t.Errorf("status = %d, want 499", got.resp.StatusCode)
	}
}

func TestCancelIdleSession(t *testing.T) {
	srv, reg := newTestServer(t, inference.NewMock("uttar"))
	sess := reg.Create("hi-IN")

	resp, err := srv.App().Test(jsonRequest(t, http.MethodPost, "/api/voice/sessions/"+sess.ID+"/cancel", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeJSON[map[string]bool](t, resp)
	if body["cancelled"] {
		t.Error("idle session reported a cancelled turn")
	}
}

func TestEndSession(t *testing.T) {
	srv, reg := newTestServer(t, inference.NewMock("uttar"))
	sess := reg.Create("hi-IN")

	req, _ := http.NewRequest(http.MethodDelete, "/api/voice/sessions/"+sess.ID, nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if srv.events.Backlog() != 1 {
		t.Errorf("event backlog = %d, want the session_ended event", srv.events.Backlog())
	}

	req, _ = http.NewRequest(http.MethodDelete, "/api/voice/sessions/"+sess.ID, nil)
	resp, err = srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
	if srv.events.Backlog() != 1 {
		t.Errorf("failed delete must not broadcast; backlog = %d", srv.events.Backlog())
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, inference.NewMock("uttar"))

	req, _ := http.NewRequest(http.MethodGet, "/api/voice/languages", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	langs := decodeJSON[[]Language](t, resp)
	if len(langs) != len(Languages) {
		t.Fatalf("got %d languages, want %d", len(langs), len(Languages))
	}
	found := false
	for _, l := range langs {
		if l.Code == "hi-IN" && l.Native == "हिन्दी" {
			found = true
		}
	}
	if !found {
		t.Error("hi-IN missing from the catalogue")
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, reg := newTestServer(t, inference.NewMock("uttar"))
	reg.Create("hi-IN")
	reg.Create("ta-IN")

	req, _ := http.NewRequest(http.MethodGet, "/api/voice/stats", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	stats := decodeJSON[registry.Stats](t, resp)
	if stats.ActiveSessions != 2 || stats.TotalCreated != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, inference.NewMock("uttar"),
		WithHealthCheck("stt", func(ctx context.Context) error { return nil }),
		WithHealthCheck("tts", func(ctx context.Context) error { return nil }),
	)

	req, _ := http.NewRequest(http.MethodGet, "/api/health", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeJSON[struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}](t, resp)
	if body.Status != "healthy" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Dependencies["stt"] != "ok" || body.Dependencies["tts"] != "ok" {
		t.Errorf("dependencies = %v", body.Dependencies)
	}
}

func TestHealthEndpointDegraded(t *testing.T) {
	srv, _ := newTestServer(t, inference.NewMock("uttar"),
		WithHealthCheck("stt", func(ctx context.Context) error { return nil }),
		WithHealthCheck("tts", func(ctx context.Context) error { return errors.New("all providers down") }),
	)

	req, _ := http.NewRequest(http.MethodGet, "/api/health", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	body := decodeJSON[struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}](t, resp)
	if body.Status != "degraded" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Dependencies["tts"] == "ok" {
		t.Error("failing dependency reported ok")
	}
}
