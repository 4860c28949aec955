// Package llm defines the chat-completion contract the agent core consumes.
// Concrete providers live in subpackages; the core never imports them.
package llm

import (
	"context"
	"encoding/json"

	"github.com/soukly/agentcore/core"
)

// ToolSchema describes one tool exposed to the model.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request is one completion call.
type Request struct {
	Messages []core.Message
	Tools    []ToolSchema

	// Temperature is the determinism knob: low for summarization and
	// classification, moderate for conversation.
	Temperature float64

	MaxTokens int64
}

// Response carries either assistant text or exactly one tool call, never both.
type Response struct {
	Content  string
	ToolCall *core.ToolCall
}

// Client is the narrow chat-completion interface.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// DecodeArguments unmarshals tool-call arguments into a generic map.
// Garbage arguments decode to an empty map rather than failing the turn.
func DecodeArguments(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{}
	}
	return args
}
