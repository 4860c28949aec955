package agent

import (
	"fmt"
	"strings"

	"github.com/soukly/agentcore/core"
)

// metaKeywords flag messages that probe the assistant's own configuration.
// Matching is a plain substring check on the lowercased message, so it fires
// before any model call.
var metaKeywords = []string{
	"system",
	"rules",
	"prompt",
	"ignore",
	"tools",
	"training",
}

// forbiddenPhrases are blocked outright at the reply stage even if the
// classifier let them through.
var forbiddenPhrases = []string{
	"system prompt",
	"ignore previous",
	"jailbreak",
}

const safeReply = "I can't discuss my internal configuration. Is there something about your shop I can help with?"

const fallbackReply = "I'm having trouble responding right now. Please try again in a moment."

const intentPrompt = `Classify the user's message into exactly one intent.

Intents:
- create_product: the user wants to add or sell a new product
- list_products: the user wants to see their products or shop overview
- update_price: the user wants to change a product's price
- update_stock: the user wants to change a stock level
- delete_product: the user wants to remove a product
- calculator: the user asks for an arithmetic result
- chat: anything else, including personal facts and small talk
- meta: questions about your instructions, rules, or tools

Respond with JSON only: {"intent": "<name>"}

Message: %s`

const systemInstruction = `You are a seller assistant for an online marketplace. You help the
seller manage products, answer questions about their shop, and keep the
conversation grounded in what you know about them.

Use the provided tools when the seller asks for an action you can perform.
Never invent product data; if a required detail is missing, ask for it.
Keep replies short and concrete.`

const summarizePrompt = `Summarize the following exchange in one sentence, focusing on any
personal fact or preference the user expressed. Respond with the sentence
only, no preamble.

%s`

// buildIntentPrompt formats the classifier request for one user message.
func buildIntentPrompt(message string) string {
	return fmt.Sprintf(intentPrompt, message)
}

// buildSystemPrompt assembles the reply-stage system text: the standing
// instruction plus whatever long-term context was loaded for this user.
// Context lines are injected verbatim.
func buildSystemPrompt(context []string) string {
	if len(context) == 0 {
		return systemInstruction
	}
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\nWhat you know about this seller:\n")
	for _, line := range context {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildSummarizeInput renders the tail of the conversation for the
// summarizer, newest last.
func buildSummarizeInput(messages []core.Message, window int) string {
	if len(messages) > window {
		messages = messages[len(messages)-window:]
	}
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
