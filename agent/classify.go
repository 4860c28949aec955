package agent

import "strings"

// importanceTriggers mark a message as a candidate for long-term storage.
// Storage only happens after the user confirms on the following turn.
var importanceTriggers = []string{
	"remember",
	"my name is",
	"i am",
	"i work",
	"i like",
	"i prefer",
	"always",
	"never",
	"important",
}

// affirmations are the exact (whole-message) tokens that confirm a pending
// memory candidate.
var affirmations = map[string]struct{}{
	"yes":     {},
	"confirm": {},
	"okay":    {},
	"sure":    {},
}

// classifyMemory implements the two-step confirmation protocol: a triggering
// message is held as the pending candidate, and an affirmation converts it
// into a store decision. A new trigger replaces the candidate; any other
// message leaves it untouched.
func classifyMemory(message, pending string) (shouldStore bool, newPending string) {
	trimmed := strings.ToLower(strings.TrimSpace(message))

	if pending != "" {
		if _, ok := affirmations[trimmed]; ok {
			return true, ""
		}
	}
	if containsAny(trimmed, importanceTriggers) {
		return false, message
	}
	return false, pending
}
