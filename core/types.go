package core

import "encoding/json"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Intent is the closed classification of a user turn.
type Intent string

const (
	IntentCreateProduct Intent = "create_product"
	IntentUpdatePrice   Intent = "update_price"
	IntentUpdateStock   Intent = "update_stock"
	IntentDeleteProduct Intent = "delete_product"
	IntentListProducts  Intent = "list_products"
	IntentCalculator    Intent = "calculator"
	IntentChat          Intent = "chat"
	IntentMeta          Intent = "meta"
)

// KnownIntents lists every intent the classifier may produce.
var KnownIntents = []Intent{
	IntentCreateProduct,
	IntentUpdatePrice,
	IntentUpdateStock,
	IntentDeleteProduct,
	IntentListProducts,
	IntentCalculator,
	IntentChat,
	IntentMeta,
}

// ParseIntent maps a raw classifier label onto the closed enumeration.
// Unknown labels fall back to chat.
func ParseIntent(s string) Intent {
	for _, in := range KnownIntents {
		if string(in) == s {
			return in
		}
	}
	return IntentChat
}

// ToolCall is a structured tool invocation decided by the model.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolStatus is the outcome class of a dispatched tool.
type ToolStatus string

const (
	ToolOK            ToolStatus = "ok"
	ToolError         ToolStatus = "error"
	ToolMissingFields ToolStatus = "missing_fields"
	ToolUnknown       ToolStatus = "unknown_tool"
)

// ToolResult is the structured outcome of one tool execution attempt.
type ToolResult struct {
	Status  ToolStatus     `json:"status"`
	Error   string         `json:"error,omitempty"`
	Missing []string       `json:"missing,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// TurnState is the mutable state threaded through the orchestrator stages.
// It is constructed fresh per turn from the persisted session plus fact
// context; only messages and the memory_* fields are persisted back.
type TurnState struct {
	ChatID string
	UserID string

	Messages []Message

	ToolCall   *ToolCall
	ToolResult *ToolResult

	// MemoryContext holds retrieved fact/summary strings injected into the
	// prompt verbatim.
	MemoryContext []string

	// Thinking is the raw classifier output; Intent the parsed value.
	Thinking string
	Intent   Intent

	ShouldStoreMemory bool
	MemoryPending     string
	MemorySummary     string
}

// LastUserMessage returns the most recent user message content, or "".
func (s *TurnState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// AppendAssistant appends an assistant message to the conversation.
func (s *TurnState) AppendAssistant(content string) {
	s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: content})
}

// Reply returns the content of the final assistant message, or "".
func (s *TurnState) Reply() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}
