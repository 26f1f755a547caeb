// Package session orchestrates one voice conversation: capture,
// transcription, generation, synthesis, and playback, with barge-in
// cancellation at every stage boundary.
//
// A Session runs at most one Turn at a time. Starting a turn while one
// is active fails with ErrSessionBusy; BargeIn interrupts the active
// turn first. Interrupting resolves the turn with ErrCancelled, which
// is distinguishable from every failure mode.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kisansathi/go-vani/pkg/audio"
	"github.com/kisansathi/go-vani/pkg/inference"
	"github.com/kisansathi/go-vani/pkg/tts"
)

// DefaultGenerateTimeout bounds one model call so a hung provider
// cannot wedge the session.
const DefaultGenerateTimeout = 45 * time.Second

// Transcriber converts captured audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *audio.Clip, language string) (string, error)
}

// Generator produces the assistant reply.
type Generator interface {
	Chat(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error)
}

// Synthesizer converts reply text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (*tts.AudioResult, error)
}

// Session is one user's voice conversation.
type Session struct {
	ID string

	transcriber Transcriber
	generator   Generator
	synthesizer Synthesizer

	recorder audio.Recorder
	player   audio.Player
	speaker  tts.LocalSpeaker

	language        string
	queryContext    *inference.QueryContext
	generateTimeout time.Duration
	callbacks       *Callbacks
	history         *History
	logger          *slog.Logger

	mu       sync.Mutex
	state    State
	current  *Turn
	closed   bool
	lastUsed time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRecorder sets the audio capture device for voice turns.
func WithRecorder(r audio.Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

// WithPlayer sets the playback device.
func WithPlayer(p audio.Player) SessionOption {
	return func(s *Session) { s.player = p }
}

// WithLocalSpeaker sets the on-device fallback used when every
// network synthesizer fails.
func WithLocalSpeaker(sp tts.LocalSpeaker) SessionOption {
	return func(s *Session) { s.speaker = sp }
}

// WithLanguage sets the session language (BCP-47, e.g. "hi-IN").
func WithLanguage(code string) SessionOption {
	return func(s *Session) { s.language = code }
}

// WithQueryContext attaches farmer context to every query.
func WithQueryContext(qc *inference.QueryContext) SessionOption {
	return func(s *Session) { s.queryContext = qc }
}

// WithCallbacks registers lifecycle callbacks.
func WithCallbacks(cb *Callbacks) SessionOption {
	return func(s *Session) { s.callbacks = cb }
}

// WithHistoryLimit bounds the conversation memory.
func WithHistoryLimit(n int) SessionOption {
	return func(s *Session) { s.history = NewHistory(inference.AgriSystemPrompt, n) }
}

// WithGenerateTimeout bounds a single model call.
func WithGenerateTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.generateTimeout = d }
}

// WithSessionLogger sets the structured logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// New creates a session over the three pipeline stages. Recorder,
// player, and local speaker default to in-memory implementations
// suited to server deployments with no audio hardware.
func New(transcriber Transcriber, generator Generator, synthesizer Synthesizer, opts ...SessionOption) *Session {
	s := &Session{
		ID:              uuid.NewString(),
		transcriber:     transcriber,
		generator:       generator,
		synthesizer:     synthesizer,
		language:        "hi-IN",
		generateTimeout: DefaultGenerateTimeout,
		state:           StateIdle,
		lastUsed:        time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.player == nil {
		s.player = audio.NewMemPlayer()
	}
	if s.speaker == nil {
		s.speaker = tts.NewMemSpeaker()
	}
	if s.history == nil {
		s.history = NewHistory(inference.AgriSystemPrompt, DefaultHistoryLimit)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "session", "session_id", s.ID)
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Language returns the session language code.
func (s *Session) Language() string {
	return s.language
}

// History exposes the bounded conversation memory.
func (s *Session) History() *History {
	return s.history
}

// LastUsed returns when the session last started or finished a turn.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// CurrentTurn returns the active turn, or nil when idle.
func (s *Session) CurrentTurn() *Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Start begins a voice turn: record from the session recorder, then
// run the pipeline. Fails with ErrSessionBusy when a turn is active.
func (s *Session) Start(ctx context.Context) (*Turn, error) {
	if s.recorder == nil {
		return nil, fmt.Errorf("session: no recorder configured")
	}
	turn, err := s.begin(ctx, EventStartVoice)
	if err != nil {
		return nil, err
	}
	go s.run(turn, func(t *Turn) (string, bool) {
		return s.captureAndTranscribe(t, nil)
	})
	return turn, nil
}

// StartClip begins a voice turn over already-captured audio, the
// server upload path. The session takes ownership of the clip.
func (s *Session) StartClip(ctx context.Context, clip *audio.Clip) (*Turn, error) {
	if clip == nil || clip.Len() == 0 {
		if clip != nil {
			clip.Release()
		}
		return nil, audio.ErrNoAudio
	}
	turn, err := s.begin(ctx, EventStartVoice)
	if err != nil {
		clip.Release()
		return nil, err
	}
	go s.run(turn, func(t *Turn) (string, bool) {
		return s.captureAndTranscribe(t, clip)
	})
	return turn, nil
}

// StartText begins a text turn, skipping capture and transcription.
func (s *Session) StartText(ctx context.Context, query string) (*Turn, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	turn, err := s.begin(ctx, EventStartText)
	if err != nil {
		return nil, err
	}
	go s.run(turn, func(t *Turn) (string, bool) {
		if t.ctx.Err() != nil {
			s.finishCancelled(t)
			return "", false
		}
		s.callbacks.transcript(query)
		return query, true
	})
	return turn, nil
}

// begin claims the session for a new turn.
func (s *Session) begin(ctx context.Context, ev Event) (*Turn, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.current != nil {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	next, err := Transition(s.state, ev)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	turn := newTurn(ctx)
	from := s.state
	s.state = next
	s.current = turn
	s.lastUsed = time.Now()
	s.mu.Unlock()

	s.callbacks.stateChange(from, next)
	s.logger.Info("turn started", "turn_id", turn.ID, "state", next)
	return turn, nil
}

// Interrupt cancels the active turn and blocks until it resolves.
// Safe to call when idle, and idempotent under concurrent calls.
func (s *Session) Interrupt() {
	s.mu.Lock()
	turn := s.current
	if turn == nil {
		s.mu.Unlock()
		return
	}
	if s.state != StateCancelling {
		from := s.state
		s.state = StateCancelling
		s.mu.Unlock()
		s.callbacks.stateChange(from, StateCancelling)
	} else {
		s.mu.Unlock()
	}

	turn.cancel()
	s.player.Stop()
	if s.recorder != nil {
		s.recorder.RequestStop()
	}
	<-turn.done
}

// BargeIn interrupts any active turn and immediately starts a new
// voice turn.
func (s *Session) BargeIn(ctx context.Context) (*Turn, error) {
	s.Interrupt()
	return s.Start(ctx)
}

// BargeInText interrupts any active turn and starts a new text turn.
func (s *Session) BargeInText(ctx context.Context, query string) (*Turn, error) {
	s.Interrupt()
	return s.StartText(ctx, query)
}

// Close interrupts any active turn and refuses future ones.
func (s *Session) Close() error {
	s.Interrupt()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// advance attempts a lifecycle transition at a stage boundary. It
// returns false when the turn has been cancelled, in which case the
// caller must stop work and let run resolve the cancellation.
func (s *Session) advance(t *Turn, ev Event) bool {
	if t.ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	if s.state == StateCancelling || s.current != t {
		s.mu.Unlock()
		return false
	}
	next, err := Transition(s.state, ev)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("illegal transition", "state", s.state, "event", ev, "error", err)
		return false
	}
	from := s.state
	s.state = next
	s.mu.Unlock()
	s.callbacks.stateChange(from, next)
	return true
}

// run executes the pipeline for one turn. transcribe produces the user
// text (from the recorder, an uploaded clip, or the text query); the
// rest of the stages are shared.
func (s *Session) run(t *Turn, transcribe func(*Turn) (string, bool)) {
	query, ok := transcribe(t)
	if !ok {
		return
	}

	reply, degraded, ok := s.generate(t, query)
	if !ok {
		return
	}

	// The exchange enters history as a pair the moment generation
	// succeeds, before synthesis. Degraded replies are not remembered:
	// the model never produced them.
	if !degraded {
		s.history.AppendExchange(query, reply)
	}

	spoken := tts.Normalize(reply, s.language)
	result, spokeLocally, ok := s.synthesizeAndPlay(t, spoken)
	if !ok {
		return
	}

	result.Transcript = query
	result.Reply = reply
	result.Degraded = degraded
	result.SpokeLocally = spokeLocally
	s.finish(t, result, nil)
}

// captureAndTranscribe obtains audio (recording it when clip is nil)
// and produces the transcript. It owns the clip and releases it on
// every exit path.
func (s *Session) captureAndTranscribe(t *Turn, clip *audio.Clip) (string, bool) {
	if clip == nil {
		var err error
		clip, err = s.recorder.Record(t.ctx, audio.RecordOptions{})
		if err != nil {
			if t.ctx.Err() != nil {
				s.finishCancelled(t)
			} else {
				s.finish(t, nil, fmt.Errorf("capture failed: %w", err))
			}
			return "", false
		}
	}
	defer clip.Release()

	if !s.advance(t, EventCaptured) {
		s.finishCancelled(t)
		return "", false
	}

	text, err := s.transcriber.Transcribe(t.ctx, clip, s.language)
	if err != nil {
		if t.ctx.Err() != nil {
			s.finishCancelled(t)
		} else {
			s.finish(t, nil, fmt.Errorf("transcription failed: %w", err))
		}
		return "", false
	}

	text = strings.TrimSpace(text)

	// The transition is the cancellation gate; a transcript callback
	// must never escape after an interrupt has landed.
	if !s.advance(t, EventTranscribed) {
		s.finishCancelled(t)
		return "", false
	}
	s.callbacks.transcript(text)
	return text, true
}

// generate produces the reply text. Model failure degrades to the
// canned reply rather than failing the turn; only cancellation stops
// it.
func (s *Session) generate(t *Turn, query string) (reply string, degraded, ok bool) {
	ctx, cancel := context.WithTimeout(t.ctx, s.generateTimeout)
	defer cancel()

	messages := s.history.Messages()
	messages = append(messages, inference.BuildUserMessage(query, s.queryContext))

	resp, err := s.generator.Chat(ctx, &inference.ChatRequest{Messages: messages})
	if err != nil {
		if t.ctx.Err() != nil {
			s.finishCancelled(t)
			return "", false, false
		}
		s.logger.Warn("generation failed, using fallback reply", "turn_id", t.ID, "error", err)
		reply = FallbackReply(s.language)
		degraded = true
	} else {
		reply = strings.TrimSpace(resp.Message.Content)
	}

	if !s.advance(t, EventGenerated) {
		s.finishCancelled(t)
		return "", false, false
	}
	s.callbacks.response(reply)
	return reply, degraded, true
}

// synthesizeAndPlay converts the normalized reply to audio and plays
// it, falling back to the local speaker when synthesis fails. The
// synthesized clip is released on every exit path; the raw bytes
// survive in the result for the transport layer.
func (s *Session) synthesizeAndPlay(t *Turn, spoken string) (result *TurnResult, spokeLocally, ok bool) {
	audioResult, err := s.synthesizer.Synthesize(t.ctx, spoken, s.language)
	if err != nil {
		if t.ctx.Err() != nil {
			s.finishCancelled(t)
			return nil, false, false
		}
		s.logger.Warn("synthesis failed, speaking locally", "turn_id", t.ID, "error", err)
		return s.speakLocally(t, spoken)
	}

	if !s.advance(t, EventSynthesized) {
		s.finishCancelled(t)
		return nil, false, false
	}

	clip := audio.NewClip(audioResult.Audio, audioResult.MIME)
	defer clip.Release()

	s.callbacks.speakingStart()
	err = s.player.Play(t.ctx, clip)
	// A barge-in can stop the player and cancel the context in the same
	// instant; the context decides whether this playback completed.
	if t.ctx.Err() != nil {
		s.finishCancelled(t)
		return nil, false, false
	}
	if err != nil {
		s.finish(t, nil, fmt.Errorf("playback failed: %w", err))
		return nil, false, false
	}
	s.callbacks.speakingEnd()

	if !s.advance(t, EventPlayed) {
		s.finishCancelled(t)
		return nil, false, false
	}
	return &TurnResult{Audio: audioResult.Audio, MIME: audioResult.MIME}, false, true
}

// speakLocally is the degraded playback path when every synthesizer
// failed.
func (s *Session) speakLocally(t *Turn, spoken string) (result *TurnResult, spokeLocally, ok bool) {
	if !s.advance(t, EventSpokeLocal) {
		s.finishCancelled(t)
		return nil, false, false
	}

	s.callbacks.speakingStart()
	if err := s.speaker.Speak(t.ctx, spoken, s.language); err != nil {
		if t.ctx.Err() != nil {
			s.finishCancelled(t)
			return nil, false, false
		}
		// Text-only completion: the reply text still reaches the
		// caller even with no audio path at all. The speaking pair
		// must still balance; an observer may never be left in
		// Speaking.
		s.callbacks.speakingEnd()
		s.logger.Warn("local speech failed, completing text-only", "turn_id", t.ID, "error", err)
		if !s.advance(t, EventPlayed) {
			s.finishCancelled(t)
			return nil, false, false
		}
		return &TurnResult{}, true, true
	}
	s.callbacks.speakingEnd()

	if !s.advance(t, EventPlayed) {
		s.finishCancelled(t)
		return nil, false, false
	}
	return &TurnResult{}, true, true
}

// finish resolves a turn exactly once and returns the session to idle.
func (s *Session) finish(t *Turn, result *TurnResult, err error) {
	s.mu.Lock()
	if s.current == t {
		s.current = nil
		from := s.state
		s.state = StateIdle
		s.lastUsed = time.Now()
		s.mu.Unlock()
		if from != StateIdle {
			s.callbacks.stateChange(from, StateIdle)
		}
	} else {
		s.mu.Unlock()
	}

	if err != nil {
		s.logger.Warn("turn failed", "turn_id", t.ID, "error", err)
		s.callbacks.fail(err)
	} else {
		s.logger.Info("turn completed",
			"turn_id", t.ID,
			"degraded", result.Degraded,
			"spoke_locally", result.SpokeLocally)
	}
	t.cancel()
	t.resolve(result, err)
}

// finishCancelled resolves an interrupted turn with ErrCancelled.
func (s *Session) finishCancelled(t *Turn) {
	s.logger.Info("turn cancelled", "turn_id", t.ID)
	s.finish(t, nil, ErrCancelled)
}
