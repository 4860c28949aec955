package agent

import "github.com/soukly/agentcore/core"

// Stage names one node of the turn pipeline.
type Stage int

const (
	StageThinking Stage = iota
	StageDecision
	StageMemoryLoad
	StageLLMDecide
	StageToolExec
	StageToolFeedback
	StageMemoryClassify
	StageMemorySummarize
	StageMemoryWrite
	StageEnd
)

func (s Stage) String() string {
	switch s {
	case StageThinking:
		return "thinking"
	case StageDecision:
		return "decision"
	case StageMemoryLoad:
		return "memory_load"
	case StageLLMDecide:
		return "llm_decide"
	case StageToolExec:
		return "tool_exec"
	case StageToolFeedback:
		return "tool_feedback"
	case StageMemoryClassify:
		return "memory_classify"
	case StageMemorySummarize:
		return "memory_summarize"
	case StageMemoryWrite:
		return "memory_write"
	case StageEnd:
		return "end"
	default:
		return "unknown"
	}
}

// maxStages bounds one turn; the graph is acyclic so a turn can never visit
// more nodes than this.
const maxStages = 9

// transition is one edge of the stage graph. A nil predicate always fires;
// predicates are evaluated in table order, first match wins.
type transition struct {
	from Stage
	when func(*core.TurnState) bool
	to   Stage
}

var transitions = []transition{
	{StageThinking, nil, StageDecision},
	{StageDecision, nil, StageMemoryLoad},
	{StageMemoryLoad, nil, StageLLMDecide},

	{StageLLMDecide, hasToolCall, StageToolExec},
	{StageLLMDecide, nil, StageMemoryClassify},

	{StageToolExec, nil, StageToolFeedback},
	{StageToolFeedback, nil, StageMemoryClassify},

	{StageMemoryClassify, shouldStoreMemory, StageMemorySummarize},
	{StageMemoryClassify, nil, StageEnd},

	{StageMemorySummarize, nil, StageMemoryWrite},
	{StageMemoryWrite, nil, StageEnd},
}

func hasToolCall(s *core.TurnState) bool { return s.ToolCall != nil }

func shouldStoreMemory(s *core.TurnState) bool { return s.ShouldStoreMemory }

// nextStage resolves the edge out of from for the given state.
func nextStage(from Stage, s *core.TurnState) Stage {
	for _, t := range transitions {
		if t.from != from {
			continue
		}
		if t.when == nil || t.when(s) {
			return t.to
		}
	}
	return StageEnd
}
