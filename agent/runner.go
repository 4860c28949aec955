// Package agent drives one conversation turn through an explicit stage
// graph: classify, load context, decide, execute tools, and maintain the
// long-term memory channel. Stage transitions live in a single table so the
// control flow can be read (and tested) in one place.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/soukly/agentcore/core"
	"github.com/soukly/agentcore/llm"
	"github.com/soukly/agentcore/memory"
	"github.com/soukly/agentcore/tools"
)

const (
	// retrieveLimit is how many ranked facts are injected into the prompt.
	retrieveLimit = 5
	// summarizeWindow is how many trailing messages feed the summarizer.
	summarizeWindow = 6

	replyTemperature    = 0.7
	classifyTemperature = 0.0
	summaryTemperature  = 0.1
)

// Runner executes turns. Collaborator failures degrade the turn rather than
// abort it: the user always gets a reply.
type Runner struct {
	client     llm.Client
	mem        *memory.Manager
	summaries  memory.SummaryStore
	dispatcher *tools.Dispatcher
	registry   *tools.Registry
	log        *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithSummaryStore wires per-chat conversation summaries into context
// loading. Without it the runner still works; it just never sees summaries.
func WithSummaryStore(s memory.SummaryStore) Option {
	return func(r *Runner) { r.summaries = s }
}

// WithLogger replaces the default no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// NewRunner assembles a turn runner from its collaborators.
func NewRunner(client llm.Client, mem *memory.Manager, dispatcher *tools.Dispatcher, registry *tools.Registry, opts ...Option) *Runner {
	r := &Runner{
		client:     client,
		mem:        mem,
		dispatcher: dispatcher,
		registry:   registry,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives state through the stage graph until the end node. The returned
// state always carries an assistant reply; only a cancelled context produces
// an error.
func (r *Runner) Run(ctx context.Context, state *core.TurnState) (*core.TurnState, error) {
	stage := StageThinking
	for steps := 0; stage != StageEnd && steps < maxStages; steps++ {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		r.runStage(ctx, stage, state)
		stage = nextStage(stage, state)
	}
	if state.Reply() == "" {
		state.AppendAssistant(fallbackReply)
	}
	return state, nil
}

func (r *Runner) runStage(ctx context.Context, stage Stage, state *core.TurnState) {
	r.log.Debug("stage", zap.Stringer("name", stage), zap.String("chat_id", state.ChatID))
	switch stage {
	case StageThinking:
		r.stageThinking(ctx, state)
	case StageDecision:
		r.stageDecision(state)
	case StageMemoryLoad:
		r.stageMemoryLoad(ctx, state)
	case StageLLMDecide:
		r.stageLLMDecide(ctx, state)
	case StageToolExec:
		r.stageToolExec(ctx, state)
	case StageToolFeedback:
		r.stageToolFeedback(state)
	case StageMemoryClassify:
		r.stageMemoryClassify(state)
	case StageMemorySummarize:
		r.stageMemorySummarize(ctx, state)
	case StageMemoryWrite:
		r.stageMemoryWrite(ctx, state)
	}
}

// stageThinking classifies the user's message. Messages probing the
// assistant's own configuration are labelled meta without any model call.
func (r *Runner) stageThinking(ctx context.Context, state *core.TurnState) {
	message := state.LastUserMessage()
	if containsAny(strings.ToLower(message), metaKeywords) {
		state.Thinking = `{"intent": "meta"}`
		state.Intent = core.IntentMeta
		return
	}

	resp, err := r.client.Complete(ctx, llm.Request{
		Messages:    []core.Message{{Role: core.RoleUser, Content: buildIntentPrompt(message)}},
		Temperature: classifyTemperature,
	})
	if err != nil {
		r.log.Warn("intent classification failed", zap.Error(err))
		state.Thinking = ""
		state.Intent = core.IntentChat
		return
	}
	state.Thinking = resp.Content
	state.Intent = parseThinking(resp.Content)
}

// parseThinking extracts the intent label from classifier output. Anything
// malformed resolves to chat.
func parseThinking(raw string) core.Intent {
	var payload struct {
		Intent string `json:"intent"`
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return core.IntentChat
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return core.IntentChat
	}
	return core.ParseIntent(payload.Intent)
}

// stageDecision is the routing node. It holds no side effects beyond
// normalizing an unset intent; the transition table does the actual routing.
func (r *Runner) stageDecision(state *core.TurnState) {
	if state.Intent == "" {
		state.Intent = core.IntentChat
	}
}

// stageMemoryLoad fetches ranked long-term facts and the latest chat summary
// into the prompt context. Either store failing degrades to less context,
// never to a failed turn.
func (r *Runner) stageMemoryLoad(ctx context.Context, state *core.TurnState) {
	state.MemoryContext = state.MemoryContext[:0]

	facts, err := r.mem.Retrieve(ctx, state.UserID, state.LastUserMessage(), retrieveLimit)
	if err != nil {
		r.log.Warn("fact retrieval failed", zap.String("user_id", state.UserID), zap.Error(err))
	}
	for _, f := range facts {
		state.MemoryContext = append(state.MemoryContext, f.Key+": "+f.Value)
	}

	if r.summaries != nil {
		summary, err := r.summaries.LatestSummary(ctx, state.ChatID)
		if err != nil {
			r.log.Warn("summary load failed", zap.String("chat_id", state.ChatID), zap.Error(err))
		} else if summary != "" {
			state.MemoryContext = append(state.MemoryContext, "earlier conversation: "+summary)
		}
	}
}

// stageLLMDecide produces the assistant's reply or a tool call. Prompt
// injection phrases and meta-classified turns short-circuit to a fixed safe
// reply without touching the model.
func (r *Runner) stageLLMDecide(ctx context.Context, state *core.TurnState) {
	state.ToolCall = nil

	if state.Intent == core.IntentMeta ||
		containsAny(strings.ToLower(state.LastUserMessage()), forbiddenPhrases) {
		state.AppendAssistant(safeReply)
		return
	}

	messages := make([]core.Message, 0, len(state.Messages)+1)
	messages = append(messages, core.Message{
		Role:    core.RoleSystem,
		Content: buildSystemPrompt(state.MemoryContext),
	})
	messages = append(messages, state.Messages...)

	resp, err := r.client.Complete(ctx, llm.Request{
		Messages:    messages,
		Tools:       r.registry.Schemas(),
		Temperature: replyTemperature,
	})
	if err != nil {
		r.log.Warn("completion failed", zap.String("chat_id", state.ChatID), zap.Error(err))
		state.AppendAssistant(fallbackReply)
		return
	}
	if resp.ToolCall != nil {
		state.ToolCall = resp.ToolCall
		return
	}
	state.AppendAssistant(resp.Content)
}

// stageToolExec dispatches the pending tool call with the trusted caller
// identity and always clears it, so a call can never execute twice.
func (r *Runner) stageToolExec(ctx context.Context, state *core.TurnState) {
	call := state.ToolCall
	state.ToolCall = nil
	if call == nil {
		return
	}
	result := r.dispatcher.Execute(ctx, call.Name, llm.DecodeArguments(call.Arguments), tools.Trusted{
		SellerID: state.UserID,
	})
	state.ToolResult = &result
}

// stageToolFeedback renders the tool outcome as the assistant's reply using
// fixed templates, then clears the result.
func (r *Runner) stageToolFeedback(state *core.TurnState) {
	if state.ToolResult == nil {
		return
	}
	state.AppendAssistant(FormatToolResult(state.ToolResult))
	state.ToolResult = nil
}

// stageMemoryClassify runs the two-step storage decision on the user's
// message.
func (r *Runner) stageMemoryClassify(state *core.TurnState) {
	state.ShouldStoreMemory, state.MemoryPending = classifyMemory(state.LastUserMessage(), state.MemoryPending)
}

// stageMemorySummarize condenses the recent exchange into one sentence for
// storage. A model failure yields an empty summary, which the write stage
// treats as nothing to do.
func (r *Runner) stageMemorySummarize(ctx context.Context, state *core.TurnState) {
	state.MemorySummary = ""
	resp, err := r.client.Complete(ctx, llm.Request{
		Messages: []core.Message{{
			Role:    core.RoleUser,
			Content: fmt.Sprintf(summarizePrompt, buildSummarizeInput(state.Messages, summarizeWindow)),
		}},
		Temperature: summaryTemperature,
	})
	if err != nil {
		r.log.Warn("summarization failed", zap.String("chat_id", state.ChatID), zap.Error(err))
		return
	}
	state.MemorySummary = strings.TrimSpace(resp.Content)
}

// stageMemoryWrite persists the summary into the general memory channel.
// Storage failures are logged and swallowed; the reply already exists.
func (r *Runner) stageMemoryWrite(ctx context.Context, state *core.TurnState) {
	if state.MemorySummary == "" {
		return
	}
	if err := r.mem.StoreGeneral(ctx, state.UserID, state.MemorySummary); err != nil {
		r.log.Warn("memory write failed", zap.String("user_id", state.UserID), zap.Error(err))
	}
}
