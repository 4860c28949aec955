// Package anthropic adapts the Anthropic Messages API to the llm.Client
// contract.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/soukly/agentcore/core"
	"github.com/soukly/agentcore/llm"
)

// Config configures the adapter.
type Config struct {
	// Model is the model identifier. Defaults to claude-sonnet-4-20250514.
	Model string

	// MaxTokens is the default response token cap. Defaults to 1024.
	MaxTokens int64
}

// Client implements llm.Client on top of anthropic-sdk-go.
type Client struct {
	api   *anthropic.Client
	model string
	max   int64
}

// New creates an adapter around an Anthropic client.
func New(api *anthropic.Client, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	return &Client{api: api, model: cfg.Model, max: cfg.MaxTokens}
}

// Complete sends one completion request. The first tool_use block wins; when
// present, any accompanying text is discarded so the response carries text or
// a tool call, never both.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.max,
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = req.MaxTokens
	}

	var system string
	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case core.RoleUser:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case core.RoleAssistant:
			params.Messages = append(params.Messages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	for _, t := range req.Tools {
		props, _ := t.InputSchema["properties"].(map[string]any)
		var required []string
		if req, ok := t.InputSchema["required"].([]string); ok {
			required = req
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   required,
				},
			},
		})
	}

	resp, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return nil, core.NewFault(core.KindDependency, fmt.Errorf("anthropic: %w", err))
	}

	out := &llm.Response{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			if out.ToolCall == nil {
				out.ToolCall = &core.ToolCall{
					Name:      block.Name,
					Arguments: block.Input,
				}
			}
		}
	}
	if out.ToolCall != nil {
		out.Content = ""
	}
	return out, nil
}
