package core

import (
	"errors"
	"fmt"
)

// ErrorKind partitions collaborator failures so callers can choose between
// degrading and surfacing.
type ErrorKind int

const (
	// KindValidation covers caller-recoverable input problems (missing tool
	// fields, non-numeric input in a guided flow). Surfaced to the user as a
	// clarifying message; the turn continues.
	KindValidation ErrorKind = iota

	// KindUnknownTool covers requests for unregistered capabilities.
	KindUnknownTool

	// KindDependency covers external collaborator outages (embedding, vector
	// index, LLM, persistence). Always degraded to an empty/skip result.
	KindDependency

	// KindSafety marks deliberate short-circuits, not failures.
	KindSafety
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnknownTool:
		return "unknown_tool"
	case KindDependency:
		return "dependency"
	case KindSafety:
		return "safety"
	default:
		return "unknown"
	}
}

// Fault is a typed error carrying its kind through collaborator boundaries.
type Fault struct {
	Kind ErrorKind
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// NewFault wraps err with a kind.
func NewFault(kind ErrorKind, err error) *Fault {
	return &Fault{Kind: kind, Err: err}
}

// Faultf wraps a formatted error with a kind.
func Faultf(kind ErrorKind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from anywhere in err's chain, defaulting to
// KindDependency for untyped errors crossing a collaborator boundary.
func KindOf(err error) ErrorKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindDependency
}
