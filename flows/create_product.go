package flows

import (
	"strconv"
	"strings"
)

// OutcomeKind classifies what the flow driver decided for a message.
type OutcomeKind int

const (
	// OutcomePass means no flow is involved; the message goes to the agent
	// pipeline unchanged.
	OutcomePass OutcomeKind = iota

	// OutcomeAsk means the flow consumed the message and asks the user for
	// the next field.
	OutcomeAsk

	// OutcomeTool means the flow completed and yields a tool invocation.
	OutcomeTool
)

// Outcome is the flow driver's decision for one message.
type Outcome struct {
	Kind      OutcomeKind
	Prompt    string
	ToolName  string
	Arguments map[string]any
}

// Strict trigger phrases; only these start or shortcut flows.
var (
	createCommands = []string{
		"create product",
		"add product",
		"upload product",
		"sell product",
	}
	listCommands = []string{
		"list my products",
		"show my products",
		"view my products",
	}
	dashboardCommands = []string{
		"show dashboard",
		"open dashboard",
		"view dashboard",
	}
)

// Steps of the product-creation flow, in order.
const (
	stepName        = "name"
	stepDescription = "description"
	stepPrice       = "price"
	stepStock       = "stock"
)

// Advance applies message to the (user, chat) flow state. An active flow
// always wins over trigger phrases; numeric steps re-ask on invalid input
// without advancing; crossing the step ceiling expires the session.
func Advance(reg *Registry, userID, chatID, message string) Outcome {
	msg := strings.TrimSpace(message)
	lower := strings.ToLower(msg)

	var out Outcome
	reg.Update(userID, chatID, func(s *Session) bool {
		if s.Mode == ModeCreatingProduct {
			out = advanceCreate(s, msg)
			return out.Kind != OutcomeTool && s.Mode == ModeCreatingProduct
		}

		if containsAny(lower, createCommands) {
			s.Mode = ModeCreatingProduct
			s.Step = stepName
			s.Steps = 0
			s.Data = make(map[string]any)
			out = Outcome{Kind: OutcomeAsk, Prompt: "Product title?"}
			return true
		}
		if containsAny(lower, listCommands) {
			out = Outcome{Kind: OutcomeTool, ToolName: "seller_products", Arguments: map[string]any{}}
			return false
		}
		if containsAny(lower, dashboardCommands) {
			out = Outcome{Kind: OutcomeTool, ToolName: "seller_dashboard", Arguments: map[string]any{}}
			return false
		}

		out = Outcome{Kind: OutcomePass}
		return false
	})
	return out
}

func advanceCreate(s *Session, msg string) Outcome {
	s.Steps++
	if s.Steps > MaxSteps {
		s.Mode = ModeNone
		return Outcome{
			Kind:   OutcomeAsk,
			Prompt: "Session expired. Please say 'create product' again.",
		}
	}

	switch s.Step {
	case stepName:
		s.Data["name"] = msg
		s.Step = stepDescription
		return Outcome{Kind: OutcomeAsk, Prompt: "Product description?"}

	case stepDescription:
		s.Data["description"] = msg
		s.Step = stepPrice
		return Outcome{Kind: OutcomeAsk, Prompt: "Product price?"}

	case stepPrice:
		price, err := strconv.ParseFloat(msg, 64)
		if err != nil {
			return Outcome{Kind: OutcomeAsk, Prompt: "Enter numeric price only."}
		}
		s.Data["price"] = price
		s.Step = stepStock
		return Outcome{Kind: OutcomeAsk, Prompt: "Stock quantity?"}

	case stepStock:
		stock, err := strconv.Atoi(msg)
		if err != nil {
			return Outcome{Kind: OutcomeAsk, Prompt: "Enter numeric stock only."}
		}
		args := map[string]any{"stock_quantity": stock}
		for k, v := range s.Data {
			args[k] = v
		}
		s.Mode = ModeNone
		return Outcome{Kind: OutcomeTool, ToolName: "seller_create_product", Arguments: args}
	}

	// Unknown step state; reset rather than wedge the session.
	s.Mode = ModeNone
	return Outcome{Kind: OutcomePass}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
