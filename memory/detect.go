package memory

import "strings"

// Signal is the outcome of explicit confirmation detection.
type Signal int

const (
	SignalNone Signal = iota
	SignalReinforce
	SignalContradict
)

func (s Signal) String() string {
	switch s {
	case SignalReinforce:
		return "reinforce"
	case SignalContradict:
		return "contradict"
	default:
		return "none"
	}
}

// DetectConfirmation matches message against the strict phrase patterns for
// one fact. No inference, no guessing: reinforcement fires only on an
// explicit "my {key} is {value}" form, contradiction only on an explicit
// "my {key} is not {value}" form.
func DetectConfirmation(message, key, value string) Signal {
	msg := strings.ToLower(strings.TrimSpace(message))
	key = strings.ToLower(key)
	val := strings.ToLower(value)

	contradict := []string{
		"no my " + key + " is not " + val,
		"my " + key + " is not " + val,
		"that's wrong my " + key + " is not " + val,
	}
	for _, p := range contradict {
		if strings.Contains(msg, p) {
			return SignalContradict
		}
	}

	confirm := []string{
		"my " + key + " is " + val,
		"yes my " + key + " is " + val,
		"correct my " + key + " is " + val,
		"that's right my " + key + " is " + val,
	}
	for _, p := range confirm {
		if strings.Contains(msg, p) {
			return SignalReinforce
		}
	}

	return SignalNone
}
