package session

import (
	"fmt"
	"testing"

	"github.com/kisansathi/go-vani/pkg/inference"
)

func TestHistoryBoundedInPairs(t *testing.T) {
	h := NewHistory("system prompt", 20)

	for i := 0; i < 30; i++ {
		h.AppendExchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	if h.Len() != 20 {
		t.Fatalf("Len = %d, want 20", h.Len())
	}

	msgs := h.Messages()
	if msgs[0].Role != inference.RoleSystem {
		t.Fatal("first message must be the system prompt")
	}

	// Oldest retained exchange is q20/a20; the window never splits a pair.
	if msgs[1].Content != "q20" || msgs[1].Role != inference.RoleUser {
		t.Errorf("oldest retained = %q (%s), want q20 (user)", msgs[1].Content, msgs[1].Role)
	}
	if msgs[2].Content != "a20" || msgs[2].Role != inference.RoleAssistant {
		t.Errorf("second retained = %q (%s), want a20 (assistant)", msgs[2].Content, msgs[2].Role)
	}
	if last := msgs[len(msgs)-1]; last.Content != "a29" {
		t.Errorf("newest = %q, want a29", last.Content)
	}

	for i := 1; i < len(msgs); i++ {
		want := inference.RoleUser
		if i%2 == 0 {
			want = inference.RoleAssistant
		}
		if msgs[i].Role != want {
			t.Fatalf("message %d role = %s, want %s", i, msgs[i].Role, want)
		}
	}
}

func TestHistoryOddLimitRoundsUp(t *testing.T) {
	h := NewHistory("sys", 5)
	for i := 0; i < 10; i++ {
		h.AppendExchange("q", "a")
	}
	if h.Len() != 6 {
		t.Errorf("Len = %d, want 6 (odd limit rounds up to keep pairs whole)", h.Len())
	}
}

func TestHistorySystemPromptNotCounted(t *testing.T) {
	h := NewHistory("sys", 4)
	h.AppendExchange("q1", "a1")
	h.AppendExchange("q2", "a2")

	if h.Len() != 4 {
		t.Errorf("Len = %d, want 4", h.Len())
	}
	if got := len(h.Messages()); got != 5 {
		t.Errorf("Messages len = %d, want 5 (system + 4)", got)
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory("sys", 4)
	h.AppendExchange("q", "a")
	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", h.Len())
	}
	if got := h.Messages(); len(got) != 1 || got[0].Role != inference.RoleSystem {
		t.Error("Clear must keep the system prompt")
	}
}
