package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/soukly/agentcore/core"
)

// ExtractedFact is one explicit user fact produced by the extractor.
type ExtractedFact struct {
	Key        string  `json:"fact_key"`
	Value      string  `json:"fact_value"`
	Confidence float64 `json:"confidence"`
}

const extractorPrompt = `You are a background fact-extraction module.

Your job is to extract ONLY explicit user facts stated by the user.
Do NOT guess, infer, assume, or paraphrase.

A valid user fact MUST:
- Be explicitly stated by the user
- Be about the user themselves
- Not be a question, joke, example, or hypothetical

Statements like "my name is X", "I am called X", "I live in X" ARE explicit
user facts.

If no clear fact is present, return an empty list.

Return JSON ONLY, in the form:
{"facts":[{"fact_key":"name","fact_value":"Ahmed","confidence":0.55}]}`

// Extractor pulls explicit user facts out of a message. Extraction is the
// only path by which facts enter the store.
type Extractor struct {
	client Client
}

// NewExtractor creates an extractor over the given completion client.
func NewExtractor(client Client) *Extractor {
	return &Extractor{client: client}
}

// Extract returns the explicit facts in latest, using at most the two most
// recent prior user messages as context. Runs at temperature 0; anything the
// model returns that does not pass the shape guard is discarded.
func (e *Extractor) Extract(ctx context.Context, latest string, previous []string) ([]ExtractedFact, error) {
	var prior string
	if n := len(previous); n > 0 {
		start := n - 2
		if start < 0 {
			start = 0
		}
		prior = strings.Join(previous[start:], "\n")
	}

	user := "LATEST USER MESSAGE:\n" + latest
	if prior != "" {
		user += "\n\nPREVIOUS USER CONTEXT:\n" + prior
	}

	resp, err := e.client.Complete(ctx, Request{
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: extractorPrompt},
			{Role: core.RoleUser, Content: user},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Facts []ExtractedFact `json:"facts"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &parsed); err != nil {
		return nil, nil
	}

	// Shape guard: the model output is never trusted as-is.
	clean := make([]ExtractedFact, 0, len(parsed.Facts))
	for _, f := range parsed.Facts {
		key := strings.ToLower(strings.TrimSpace(f.Key))
		value := strings.TrimSpace(f.Value)
		if key == "" || value == "" {
			continue
		}
		conf := f.Confidence
		if conf <= 0 {
			conf = 0.3
		}
		clean = append(clean, ExtractedFact{Key: key, Value: value, Confidence: conf})
	}
	return clean, nil
}
