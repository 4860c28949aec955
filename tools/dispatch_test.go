package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soukly/agentcore/core"
	"github.com/soukly/agentcore/llm"
)

type spyTool struct {
	name     string
	required []string
	execute  func(ctx context.Context, args Args) (map[string]any, error)
	lastArgs Args
}

func (t *spyTool) Name() string             { return t.name }
func (t *spyTool) RequiredFields() []string { return t.required }
func (t *spyTool) Schema() llm.ToolSchema   { return llm.ToolSchema{Name: t.name} }
func (t *spyTool) Execute(ctx context.Context, args Args) (map[string]any, error) {
	t.lastArgs = args
	if t.execute != nil {
		return t.execute(ctx, args)
	}
	return map[string]any{"ok": true}, nil
}

func TestDispatcherUnknownTool(t *testing.T) {
	d := NewDispatcher(NewRegistry(), nil)

	res := d.Execute(context.Background(), "no_such_tool", nil, Trusted{SellerID: "s1"})
	assert.Equal(t, core.ToolUnknown, res.Status)
	assert.Contains(t, res.Error, "no_such_tool")
}

func TestDispatcherMissingFieldsSorted(t *testing.T) {
	tool := &spyTool{name: "t", required: []string{"zeta", "alpha", "mid"}}
	d := NewDispatcher(NewRegistry(tool), nil)

	res := d.Execute(context.Background(), "t", map[string]any{"mid": "x"}, Trusted{SellerID: "s1"})
	require.Equal(t, core.ToolMissingFields, res.Status)
	assert.Equal(t, []string{"alpha", "zeta"}, res.Missing)
	assert.Nil(t, tool.lastArgs, "executor must not run on validation failure")
}

func TestDispatcherInjectsTrustedIdentity(t *testing.T) {
	tool := &spyTool{name: "t"}
	d := NewDispatcher(NewRegistry(tool), nil)

	// The model-supplied seller_id is overridden, never merged.
	res := d.Execute(context.Background(), "t",
		map[string]any{"seller_id": "attacker", "name": "widget"},
		Trusted{SellerID: "seller-42"})

	require.Equal(t, core.ToolOK, res.Status)
	assert.Equal(t, "seller-42", tool.lastArgs.String("seller_id"))
	assert.Equal(t, "widget", tool.lastArgs.String("name"))
}

func TestDispatcherExecutorError(t *testing.T) {
	tool := &spyTool{
		name: "t",
		execute: func(context.Context, Args) (map[string]any, error) {
			return nil, errors.New("catalog unavailable")
		},
	}
	d := NewDispatcher(NewRegistry(tool), nil)

	res := d.Execute(context.Background(), "t", nil, Trusted{SellerID: "s1"})
	assert.Equal(t, core.ToolError, res.Status)
	assert.Equal(t, "catalog unavailable", res.Error)
}

func TestDispatcherRecoversPanic(t *testing.T) {
	tool := &spyTool{
		name: "t",
		execute: func(context.Context, Args) (map[string]any, error) {
			panic("boom")
		},
	}
	d := NewDispatcher(NewRegistry(tool), nil)

	res := d.Execute(context.Background(), "t", nil, Trusted{SellerID: "s1"})
	require.Equal(t, core.ToolError, res.Status)
	assert.Contains(t, res.Error, "boom")
}

func TestArgsCoercion(t *testing.T) {
	args := Args{
		"float":  12.5,
		"digits": "1999",
		"int":    float64(7),
		"empty":  "",
	}

	f, err := args.Float("float")
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)

	f, err = args.Float("digits")
	require.NoError(t, err)
	assert.Equal(t, 1999.0, f)

	n, err := args.Int("int")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = args.Float("missing")
	assert.Error(t, err)

	assert.True(t, args.Present("float"))
	assert.False(t, args.Present("empty"))
	assert.False(t, args.Present("missing"))
}
