// Package tools implements the tool registry and dispatcher. Tools declare
// their required fields; the dispatcher validates arguments and injects
// trusted identity before any executor runs.
package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/soukly/agentcore/llm"
)

// Args is the validated argument set handed to an executor. Values originate
// from model JSON, so numerics may arrive as float64 or as digit strings;
// the accessors coerce both.
type Args map[string]any

// String returns the string value for key, or "".
func (a Args) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Float returns the numeric value for key.
func (a Args) Float(key string) (float64, error) {
	switch v := a[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q: not a number", key)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %q: not a number", key)
	}
}

// Int returns the integer value for key.
func (a Args) Int(key string) (int, error) {
	f, err := a.Float(key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Present reports whether key holds a non-empty value.
func (a Args) Present(key string) bool {
	v, ok := a[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// Tool is one named side-effecting action with a declared argument contract.
type Tool interface {
	Name() string

	// RequiredFields lists the argument names the dispatcher must see
	// non-empty before Execute runs.
	RequiredFields() []string

	// Schema describes the tool to the model.
	Schema() llm.ToolSchema

	// Execute performs the action with validated arguments. Returned data
	// becomes the structured tool result; errors are converted to error
	// results by the dispatcher and never propagate.
	Execute(ctx context.Context, args Args) (map[string]any, error)
}

// Registry is a static name -> Tool mapping.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry with the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any previous tool of the same name.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the tool for name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Schemas returns the model-facing schema for every registered tool, in
// registration order.
func (r *Registry) Schemas() []llm.ToolSchema {
	out := make([]llm.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Schema())
	}
	return out
}
