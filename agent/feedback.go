package agent

import (
	"fmt"
	"strings"

	"github.com/soukly/agentcore/core"
)

// FormatToolResult turns a tool outcome into the assistant's reply. It is
// total: every result shape maps to a fixed template, no model call involved.
func FormatToolResult(res *core.ToolResult) string {
	switch res.Status {
	case core.ToolMissingFields:
		return fmt.Sprintf("I need a bit more to do that: %s.", strings.Join(res.Missing, ", "))
	case core.ToolUnknown:
		return "I don't have a tool for that, sorry."
	case core.ToolError:
		return fmt.Sprintf("That didn't work: %s.", res.Error)
	}

	data := res.Data
	if p, ok := data["product"].(map[string]any); ok {
		return fmt.Sprintf("Done! %q is now in your shop at %s with %v in stock.",
			str(p["name"]), money(p["price"]), p["stock_quantity"])
	}
	if ps, ok := data["products"].([]map[string]any); ok {
		if len(ps) == 0 {
			return "You don't have any products yet. Say 'create product' to add one."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "You have %d product(s):\n", len(ps))
		for _, p := range ps {
			fmt.Fprintf(&b, "- %s: %s (%v in stock)\n", str(p["name"]), money(p["price"]), p["stock_quantity"])
		}
		return strings.TrimRight(b.String(), "\n")
	}
	if d, ok := data["dashboard"].(map[string]any); ok {
		return fmt.Sprintf("Your shop: %v products, %v items in stock, %s total inventory value.",
			d["product_count"], d["total_stock"], money(d["inventory_value"]))
	}
	if _, ok := data["deleted"]; ok {
		return "The product has been removed from your shop."
	}
	if r, ok := data["result"]; ok {
		return fmt.Sprintf("The result is %v.", r)
	}
	return "Done."
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func money(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("$%.2f", f)
	}
	return fmt.Sprintf("$%v", v)
}
