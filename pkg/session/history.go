package session

import (
	"sync"

	"github.com/kisansathi/go-vani/pkg/inference"
)

// DefaultHistoryLimit is the maximum number of messages retained per
// session (user and assistant combined).
const DefaultHistoryLimit = 20

// History is the bounded conversation memory of a session. Exchanges
// are appended as user/assistant pairs and evicted oldest-first in
// pairs, so the window never splits a question from its answer. The
// system prompt never counts against the limit.
type History struct {
	mu       sync.Mutex
	system   inference.Message
	messages []inference.Message
	limit    int
}

// NewHistory creates a history bounded to limit messages. A
// non-positive limit uses DefaultHistoryLimit.
func NewHistory(systemPrompt string, limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	// Keep the limit even so eviction always removes whole pairs.
	if limit%2 != 0 {
		limit++
	}
	return &History{
		system: inference.NewSystemMessage(systemPrompt),
		limit:  limit,
	}
}

// AppendExchange records one completed user/assistant exchange
// atomically, evicting the oldest pair when over the limit. Failed or
// cancelled turns never reach history.
func (h *History) AppendExchange(userText, assistantText string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages,
		inference.NewUserMessage(userText),
		inference.NewAssistantMessage(assistantText),
	)
	if over := len(h.messages) - h.limit; over > 0 {
		h.messages = append(h.messages[:0:0], h.messages[over:]...)
	}
}

// Messages returns the system prompt followed by the retained
// exchanges, oldest first, ready for a ChatRequest.
func (h *History) Messages() []inference.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]inference.Message, 0, len(h.messages)+1)
	out = append(out, h.system)
	out = append(out, h.messages...)
	return out
}

// Len returns the number of retained messages, excluding the system
// prompt.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Clear drops all retained exchanges, keeping the system prompt.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}
