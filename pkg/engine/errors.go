package engine

import (
	"errors"
	"fmt"
)

// Adapter validation errors.
var (
	ErrAdapterGetID    = errors.New("adapter: GetID is required")
	ErrAdapterGetLabel = errors.New("adapter: GetLabel is required")
)

// ErrorScope classifies where a failure occurred.
type ErrorScope string

const (
	// ScopeRoot is a root-load failure: no data at all. Terminal for that
	// attempt, recoverable by re-invoking the root load.
	ScopeRoot ErrorScope = "root"
	// ScopeChildren is a children-load failure scoped to one node; sibling
	// subtrees are unaffected.
	ScopeChildren ErrorScope = "children"
	// ScopeNavigation is a pinned/path target that could not be resolved.
	ScopeNavigation ErrorScope = "navigation"
)

// Navigation failure reasons.
const (
	ReasonNotFound             = "not-found"
	ReasonPathUnavailable      = "path-unavailable"
	ReasonPathResolutionFailed = "path-resolution-failed"
	ReasonLoadFailed           = "load-failed"
)

// EngineError is the error surfaced to the embedding application through the
// configured error callback. Load failures are also recorded on the failing
// node; they never propagate as panics or returned errors across the engine
// boundary.
type EngineError struct {
	Scope     ErrorScope
	NodeID    NodeID // empty for root scope
	PageIndex int    // -1 unless a specific page failed
	Reason    string
	Err       error // underlying cause, may be nil for navigation failures
}

func (e EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Scope, e.Reason)
	if e.NodeID != "" {
		msg += fmt.Sprintf(" (node %s)", e.NodeID)
	}
	if e.PageIndex >= 0 {
		msg += fmt.Sprintf(" (page %d)", e.PageIndex)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e EngineError) Unwrap() error {
	return e.Err
}
