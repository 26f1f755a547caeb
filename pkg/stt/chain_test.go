package stt

import (
	"context"
	"errors"
	"testing"

	"github.com/kisansathi/go-vani/pkg/audio"
)

func testClip() *audio.Clip {
	return audio.NewClip([]byte("pcm"), audio.MIMEWAV)
}

func TestChainFallback(t *testing.T) {
	ctx := context.Background()

	failing := WithError(errors.New("provider 1 failed"))
	working := NewMock("gehun ka bhav")

	chain, err := NewChain(failing, working)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}
	defer chain.Close()

	clip := testClip()
	defer clip.Release()

	text, err := chain.Transcribe(ctx, clip, "hi-IN")
	if err != nil {
		t.Fatalf("Chain transcribe failed: %v", err)
	}
	if text != "gehun ka bhav" {
		t.Errorf("transcript = %q", text)
	}
	if failing.CallCount("Transcribe") != 1 {
		t.Errorf("first provider called %d times, want 1", failing.CallCount("Transcribe"))
	}
}

func TestChainFirstSuccessShortCircuits(t *testing.T) {
	first := NewMock("first")
	second := NewMock("second")

	chain, _ := NewChain(first, second)
	defer chain.Close()

	clip := testClip()
	defer clip.Release()

	text, err := chain.Transcribe(context.Background(), clip, "hi-IN")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "first" {
		t.Errorf("transcript = %q, want first", text)
	}
	if second.CallCount("Transcribe") != 0 {
		t.Error("second provider should not have been tried")
	}
}

func TestChainEmptyTranscriptIsFailure(t *testing.T) {
	empty := NewMock("   ")
	working := NewMock("sahi jawab")

	chain, _ := NewChain(empty, working)
	defer chain.Close()

	clip := testClip()
	defer clip.Release()

	text, err := chain.Transcribe(context.Background(), clip, "hi-IN")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "sahi jawab" {
		t.Errorf("transcript = %q, expected fallback past empty result", text)
	}
}

func TestChainAllFail(t *testing.T) {
	p1 := WithError(errors.New("provider 1 failed"))
	p2 := WithError(errors.New("provider 2 failed"))

	chain, _ := NewChain(p1, p2)
	defer chain.Close()

	clip := testClip()
	defer clip.Release()

	_, err := chain.Transcribe(context.Background(), clip, "hi-IN")
	if err == nil {
		t.Fatal("Expected error when all providers fail")
	}

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("Expected ChainError, got %T", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(chainErr.Errors))
	}
}

func TestChainCancellation(t *testing.T) {
	slow := WithLatency(NewMock("late"), 500)

	chain, _ := NewChain(slow)
	defer chain.Close()

	clip := testClip()
	defer clip.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.Transcribe(ctx, clip, "hi-IN")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Transcribe = %v, want context.Canceled", err)
	}
}

func TestChainRequiresProvider(t *testing.T) {
	if _, err := NewChain(); err == nil {
		t.Fatal("NewChain with no providers should fail")
	}
}

func TestChainHealth(t *testing.T) {
	down := WithError(errors.New("down"))
	up := NewMock("ok")

	chain, _ := NewChain(down, up)
	defer chain.Close()

	if err := chain.Health(context.Background()); err != nil {
		t.Errorf("Health = %v, want nil when any provider is healthy", err)
	}

	allDown, _ := NewChain(WithError(errors.New("down")))
	defer allDown.Close()
	if err := allDown.Health(context.Background()); err == nil {
		t.Error("Health = nil, want error when all providers are down")
	}
}
