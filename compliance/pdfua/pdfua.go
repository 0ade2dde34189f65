// Package pdfua maps remediation issues to PDF/UA-1 requirements.
package pdfua

import (
	"fmt"

	"github.com/wudi/tagremedy/compliance"
	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/engine"
	"github.com/wudi/tagremedy/issue"
)

type Level int

const (
	PDFUA1 Level = iota
)

func (l Level) String() string {
	switch l {
	case PDFUA1:
		return "PDF/UA-1"
	default:
		return "Unknown"
	}
}

// Enforcer validates a document against PDF/UA and repairs what the
// engine's fixes can repair.
type Enforcer interface {
	compliance.Validator
	Enforce(ctx compliance.Context, doc *docctx.Context, level Level) (*engine.Result, error)
}

type requirement struct {
	code string
	desc string
}

// requirements lists the issue types that break a PDF/UA-1 requirement.
// Heuristic findings (bullet alignment, ligatures, mixed scripts, needless
// nesting) are advisory and have no entry.
var requirements = map[issue.Type]requirement{
	issue.TypeNotMarked:         {"UA001", "Document must be marked (MarkInfo dictionary with Marked=true)"},
	issue.TypeNoTagTree:         {"UA002", "Document must be tagged (StructTree missing or empty)"},
	issue.TypeTitle:             {"UA003", "Document title is required"},
	issue.TypeLanguage:          {"UA004", "Document language is required"},
	issue.TypeBrokenMapping:     {"UA005", "Text must map to Unicode"},
	issue.TypeMissingAlt:        {"UA006", "Figure missing Alternative Text"},
	issue.TypeListItemShape:     {"UA007", "Structure element has invalid children"},
	issue.TypeListChild:         {"UA007", "Structure element has invalid children"},
	issue.TypeDisplayTitle:      {"UA008", "Viewer must display the document title"},
	issue.TypeTabOrder:          {"UA009", "Pages with annotations must use structure tab order"},
	issue.TypeUnmarkedLink:      {"UA010", "Annotation must be nested in the structure tree"},
	issue.TypeMistaggedArtifact: {"UA011", "Artifacts must not be tagged as real content"},
	issue.TypeDecorativeImage:   {"UA011", "Artifacts must not be tagged as real content"},
}

// Code returns the requirement code violated by issues of type t.
func Code(t issue.Type) (string, bool) {
	r, ok := requirements[t]
	return r.code, ok
}

// Assess builds a report from the open issues in issues.
func Assess(issues []*issue.Issue) *compliance.Report {
	report := &compliance.Report{
		Standard:   PDFUA1.String(),
		Violations: []compliance.Violation{},
	}
	for _, is := range issues {
		if is.Status() != issue.Open {
			continue
		}
		req, ok := requirements[is.Type]
		if !ok {
			continue
		}
		report.Violations = append(report.Violations, compliance.Violation{
			Code:        req.code,
			Description: req.desc,
			Location:    is.Location.String(),
		})
	}
	report.Compliant = len(report.Violations) == 0
	return report
}

type enforcerImpl struct {
	engine *engine.Engine
}

// NewEnforcer returns an Enforcer running the rules registered on e.
func NewEnforcer(e *engine.Engine) Enforcer { return &enforcerImpl{engine: e} }

func (e *enforcerImpl) Validate(ctx compliance.Context, doc *docctx.Context) (*compliance.Report, error) {
	issues, err := e.engine.DetectIssues(ctx, doc)
	if err != nil {
		return nil, err
	}
	return Assess(issues), nil
}

func (e *enforcerImpl) Enforce(ctx compliance.Context, doc *docctx.Context, level Level) (*engine.Result, error) {
	if level != PDFUA1 {
		return nil, fmt.Errorf("pdfua: unsupported level %s", level)
	}
	return e.engine.Run(ctx, doc)
}
