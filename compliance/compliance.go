// Package compliance reports conformance to an accessibility standard.
package compliance

import (
	"context"

	"github.com/wudi/tagremedy/docctx"
)

// Context is an alias for context.Context to allow for future expansion.
type Context = context.Context

// Violation represents a compliance violation.
type Violation struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// Report details compliance status.
type Report struct {
	Compliant  bool        `json:"compliant"`
	Standard   string      `json:"standard"` // e.g., "PDF/UA-1"
	Violations []Violation `json:"violations"`
}

// Codes returns the distinct violation codes in first-seen order.
func (r *Report) Codes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range r.Violations {
		if !seen[v.Code] {
			seen[v.Code] = true
			out = append(out, v.Code)
		}
	}
	return out
}

// Validator checks document compliance against a standard.
type Validator interface {
	Validate(ctx Context, doc *docctx.Context) (*Report, error)
}
