package tools

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/soukly/agentcore/core"
)

// Trusted carries server-side identity injected into every tool call. These
// values override anything the model supplied for the same fields; the model
// is never trusted to self-assert identity.
type Trusted struct {
	SellerID string
}

// Dispatcher validates and executes named tool calls. It has no side effects
// of its own beyond logging; outcomes are always structured results, never
// panics or propagated errors.
type Dispatcher struct {
	registry *Registry
	log      *zap.Logger
}

// NewDispatcher creates a dispatcher over the registry.
func NewDispatcher(registry *Registry, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{registry: registry, log: log.Named("tools")}
}

// Execute runs one tool call. Exactly one execution attempt: validation
// failures and executor errors both produce terminal results.
func (d *Dispatcher) Execute(ctx context.Context, name string, rawArgs map[string]any, trusted Trusted) core.ToolResult {
	tool, ok := d.registry.Get(name)
	if !ok {
		d.log.Warn("unknown tool requested", zap.String("tool", name))
		return core.ToolResult{
			Status: core.ToolUnknown,
			Error:  fmt.Sprintf("unknown tool: %s", name),
		}
	}

	args := make(Args, len(rawArgs)+1)
	for k, v := range rawArgs {
		args[k] = v
	}
	// Trusted identity wins over any model-supplied value.
	args["seller_id"] = trusted.SellerID

	var missing []string
	for _, field := range tool.RequiredFields() {
		if !args.Present(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		d.log.Info("tool call rejected: missing fields",
			zap.String("tool", name), zap.Strings("missing", missing))
		return core.ToolResult{
			Status:  core.ToolMissingFields,
			Missing: missing,
		}
	}

	data, err := d.execute(ctx, tool, args)
	if err != nil {
		d.log.Warn("tool execution failed", zap.String("tool", name), zap.Error(err))
		return core.ToolResult{
			Status: core.ToolError,
			Error:  err.Error(),
		}
	}

	d.log.Info("tool executed", zap.String("tool", name))
	return core.ToolResult{Status: core.ToolOK, Data: data}
}

// execute isolates the executor call so a panicking tool still yields a
// structured error result.
func (d *Dispatcher) execute(ctx context.Context, tool Tool, args Args) (data map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panic: %v", r)
		}
	}()
	return tool.Execute(ctx, args)
}
