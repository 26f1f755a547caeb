package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kisansathi/go-vani/pkg/audio"
	"github.com/kisansathi/go-vani/pkg/inference"
	"github.com/kisansathi/go-vani/pkg/session"
	"github.com/kisansathi/go-vani/pkg/stt"
	"github.com/kisansathi/go-vani/pkg/tts"
)

func testFactory(generator session.Generator) Factory {
	return func(language string) *session.Session {
		return session.New(
			stt.NewMock("gehun ka bhav"),
			generator,
			tts.NewMock([]byte("wav")),
			session.WithLanguage(language),
		)
	}
}

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r := New(testFactory(inference.NewMock("aaj ka bhav 1240 hai")), opts...)
	t.Cleanup(func() { r.Close() })
	return r
}

// slowGenerator blocks until its context is cancelled or release closes.
func slowGenerator(release <-chan struct{}) *inference.Mock {
	m := &inference.Mock{}
	m.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return &inference.ChatResponse{Message: inference.NewAssistantMessage("ok")}, nil
		}
	}
	return m
}

func TestCreateAndLookup(t *testing.T) {
	r := newTestRegistry(t)

	s := r.Create("hi-IN")
	if s.Language() != "hi-IN" {
		t.Errorf("Language = %q", s.Language())
	}

	got, err := r.Session(s.ID)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if got != s {
		t.Error("lookup returned a different session")
	}

	if _, err := r.Session("no-such-id"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown id = %v, want ErrSessionNotFound", err)
	}
}

func TestEndRemovesSession(t *testing.T) {
	r := newTestRegistry(t)
	s := r.Create("hi-IN")

	if err := r.End(s.ID); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if _, err := r.Session(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ended session still resolvable: %v", err)
	}
	if err := r.End(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("double End = %v, want ErrSessionNotFound", err)
	}

	// The ended session refuses new turns.
	if _, err := s.StartText(context.Background(), "hello"); !errors.Is(err, session.ErrSessionClosed) {
		t.Errorf("turn on ended session = %v, want ErrSessionClosed", err)
	}
}

func TestBeginTextTurn(t *testing.T) {
	r := newTestRegistry(t)
	s := r.Create("hi-IN")

	turn, err := r.BeginTextTurn(context.Background(), s.ID, "pyaz ka bhav?")
	if err != nil {
		t.Fatalf("BeginTextTurn failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := turn.Wait(ctx)
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if result.Reply == "" {
		t.Error("empty reply")
	}

	if _, err := r.BeginTextTurn(context.Background(), "no-such-id", "hi"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown id = %v, want ErrSessionNotFound", err)
	}
}

func TestBeginVoiceTurn(t *testing.T) {
	r := newTestRegistry(t)
	s := r.Create("hi-IN")

	clip := audio.NewClip([]byte("pcm"), audio.MIMEWAV)
	turn, err := r.BeginVoiceTurn(context.Background(), s.ID, clip)
	if err != nil {
		t.Fatalf("BeginVoiceTurn failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := turn.Wait(ctx)
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if result.Transcript != "gehun ka bhav" {
		t.Errorf("Transcript = %q", result.Transcript)
	}
}

func TestBeginVoiceTurnUnknownSessionReleasesClip(t *testing.T) {
	r := newTestRegistry(t)

	clip := audio.NewClip([]byte("pcm"), audio.MIMEWAV)
	if _, err := r.BeginVoiceTurn(context.Background(), "no-such-id", clip); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
	if !clip.Released() {
		t.Error("clip must be released when the session does not exist")
	}
}

func TestNewestRequestWins(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	r := New(testFactory(slowGenerator(release)))
	t.Cleanup(func() { r.Close() })

	s := r.Create("hi-IN")

	first, err := r.BeginTextTurn(context.Background(), s.ID, "first")
	if err != nil {
		t.Fatalf("first BeginTextTurn failed: %v", err)
	}

	// The second request interrupts the first rather than failing busy.
	second, err := r.BeginTextTurn(context.Background(), s.ID, "second")
	if err != nil {
		t.Fatalf("second BeginTextTurn failed: %v", err)
	}

	if _, err := first.Result(); !session.IsCancelled(err) {
		t.Errorf("first turn = %v, want ErrCancelled", err)
	}
	if second == first {
		t.Error("second request must produce a new turn")
	}
}

func TestCancelTurn(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	r := New(testFactory(slowGenerator(release)))
	t.Cleanup(func() { r.Close() })

	s := r.Create("hi-IN")

	cancelled, err := r.CancelTurn(s.ID)
	if err != nil {
		t.Fatalf("CancelTurn failed: %v", err)
	}
	if cancelled {
		t.Error("idle session reported a cancelled turn")
	}

	turn, err := r.BeginTextTurn(context.Background(), s.ID, "sawaal")
	if err != nil {
		t.Fatalf("BeginTextTurn failed: %v", err)
	}
	cancelled, err = r.CancelTurn(s.ID)
	if err != nil {
		t.Fatalf("CancelTurn failed: %v", err)
	}
	if !cancelled {
		t.Error("active turn not reported cancelled")
	}
	if _, err := turn.Result(); !session.IsCancelled(err) {
		t.Errorf("turn = %v, want ErrCancelled", err)
	}

	if _, err := r.CancelTurn("no-such-id"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown id = %v, want ErrSessionNotFound", err)
	}
}

func TestStats(t *testing.T) {
	release := make(chan struct{})
	r := New(testFactory(slowGenerator(release)))
	t.Cleanup(func() { r.Close() })

	a := r.Create("hi-IN")
	b := r.Create("mr-IN")

	if _, err := r.BeginTextTurn(context.Background(), a.ID, "sawaal"); err != nil {
		t.Fatalf("BeginTextTurn failed: %v", err)
	}

	stats := r.Stats()
	if stats.ActiveSessions != 2 {
		t.Errorf("ActiveSessions = %d, want 2", stats.ActiveSessions)
	}
	if stats.ActiveTurns != 1 {
		t.Errorf("ActiveTurns = %d, want 1", stats.ActiveTurns)
	}
	if stats.TotalCreated != 2 {
		t.Errorf("TotalCreated = %d, want 2", stats.TotalCreated)
	}

	close(release)
	if err := r.End(b.ID); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	stats = r.Stats()
	if stats.ActiveSessions != 1 {
		t.Errorf("ActiveSessions after End = %d, want 1", stats.ActiveSessions)
	}
}

func TestExpireIdle(t *testing.T) {
	r := newTestRegistry(t, WithIdleTimeout(10*time.Millisecond))

	s := r.Create("hi-IN")
	time.Sleep(30 * time.Millisecond)
	r.expireIdle()

	if _, err := r.Session(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("idle session survived expiry: %v", err)
	}
	if got := r.Stats().TotalExpired; got != 1 {
		t.Errorf("TotalExpired = %d, want 1", got)
	}
}

func TestExpireSkipsActiveTurns(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	r := New(testFactory(slowGenerator(release)), WithIdleTimeout(10*time.Millisecond))
	t.Cleanup(func() { r.Close() })

	s := r.Create("hi-IN")
	if _, err := r.BeginTextTurn(context.Background(), s.ID, "sawaal"); err != nil {
		t.Fatalf("BeginTextTurn failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	r.expireIdle()

	if _, err := r.Session(s.ID); err != nil {
		t.Errorf("session with an active turn was expired: %v", err)
	}
}

func TestCloseEndsAllSessions(t *testing.T) {
	r := New(testFactory(inference.NewMock("ok")))

	s := r.Create("hi-IN")
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := s.StartText(context.Background(), "hello"); !errors.Is(err, session.ErrSessionClosed) {
		t.Errorf("turn after registry Close = %v, want ErrSessionClosed", err)
	}
	// Close is idempotent.
	if err := r.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
