package memory

import (
	"strings"
	"sync"

	"github.com/soukly/agentcore/core"
)

// DefaultBufferSize is the short-term window per conversation.
const DefaultBufferSize = 12

// internalMarkers flag content that references tool machinery rather than
// conversation; such entries never enter the buffer.
var internalMarkers = []string{"tool_call", "tool_result"}

// Buffer is a fixed-capacity FIFO of recent messages for one session.
// Exceeding capacity evicts the oldest entry. Pure ring semantics, no
// persistence.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	entries  []core.Message
}

// NewBuffer creates a buffer with the given capacity (DefaultBufferSize when
// size <= 0).
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{capacity: size}
}

// Append records a message. It is a no-op unless the role is user or
// assistant and the content does not look like structural data.
func (b *Buffer) Append(role core.Role, content string) {
	if role != core.RoleUser && role != core.RoleAssistant {
		return
	}
	content = strings.TrimSpace(content)
	if content == "" || strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
		return
	}
	lower := strings.ToLower(content)
	for _, m := range internalMarkers {
		if strings.Contains(lower, m) {
			return
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, core.Message{Role: role, Content: content})
	if len(b.entries) > b.capacity {
		b.entries = b.entries[len(b.entries)-b.capacity:]
	}
}

// Messages returns the buffered messages in insertion order.
func (b *Buffer) Messages() []core.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.Message, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len reports the number of buffered messages.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// BufferSet holds one Buffer per session id.
type BufferSet struct {
	mu      sync.Mutex
	size    int
	buffers map[string]*Buffer
}

// NewBufferSet creates a set whose buffers hold size messages each.
func NewBufferSet(size int) *BufferSet {
	return &BufferSet{size: size, buffers: make(map[string]*Buffer)}
}

// Get returns the buffer for sessionID, creating it when absent.
func (s *BufferSet) Get(sessionID string) *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[sessionID]
	if !ok {
		b = NewBuffer(s.size)
		s.buffers[sessionID] = b
	}
	return b
}
