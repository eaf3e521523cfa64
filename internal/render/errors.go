package render

import (
	"encoding/json"
	"fmt"
)

// ResolutionError means the model references a module the index cannot
// supply, one that is not a struct, or one that is already being expanded.
// The model is malformed; the render is aborted.
type ResolutionError struct {
	Via    string // "include" or "alias"
	Target string // qualified path that was looked up
	Site   string // name of the alias or enclosing module, if known
	Kind   string // resolved module kind when it was not a struct
	Cycle  bool   // target is an ancestor of the site
}

func (e *ResolutionError) Error() string {
	switch {
	case e.Cycle:
		return fmt.Sprintf("cyclic reference: %s target %q is already being expanded (at %q)", e.Via, e.Target, e.Site)
	case e.Kind != "":
		return fmt.Sprintf("%s target %q is a %s, not a struct", e.Via, e.Target, e.Kind)
	case e.Via == "alias":
		return fmt.Sprintf("module %q (aliased as %q) is missing", e.Target, e.Site)
	default:
		return fmt.Sprintf("included module %q is missing", e.Target)
	}
}

// UnhandledCaseError reports a model shape the renderer has no rendering
// for. Functor results always fail this way; unknown node, kind and text
// tags fail this way only in production mode.
type UnhandledCaseError struct {
	Case  string
	Path  []string
	Value json.RawMessage
}

func (e *UnhandledCaseError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("unhandled case: %s", e.Case)
	}
	return fmt.Sprintf("unhandled case: %s (in %v)", e.Case, e.Path)
}
