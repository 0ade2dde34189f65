// Package issue defines detected defects and the fixes attached to them.
package issue

import (
	"fmt"
	"strings"

	"github.com/wudi/tagremedy/tagtree"
)

type Severity uint8

const (
	Warning Severity = iota
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity accepts the names produced by String, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WARNING", "WARN":
		return Warning, nil
	case "ERROR":
		return Error, nil
	case "FATAL":
		return Fatal, nil
	}
	return Warning, fmt.Errorf("issue: unknown severity %q", s)
}

// Type is the closed set of defect kinds. The string form is a stable code
// used in reports, configuration and the ledger.
type Type string

const (
	TypeNoTagTree         Type = "no-tag-tree"
	TypeNotMarked         Type = "not-marked"
	TypeLanguage          Type = "language"
	TypeTitle             Type = "title"
	TypeDisplayTitle      Type = "display-doc-title"
	TypeTabOrder          Type = "tab-order"
	TypeDocumentWrapper   Type = "document-wrapper"
	TypeListItemShape     Type = "list-item-shape"
	TypeListChild         Type = "list-child"
	TypeNeedlessNesting   Type = "needless-nesting"
	TypePagePartition     Type = "page-partition"
	TypeUntaggedList      Type = "untagged-list"
	TypeMistaggedArtifact Type = "mistagged-artifact"
	TypeDecorativeImage   Type = "decorative-image"
	TypeMissingAlt        Type = "missing-alt"
	TypeUnmarkedLink      Type = "unmarked-link"
	TypeBrokenMapping     Type = "broken-text-mapping"
	TypeLigature          Type = "ligature"
	TypeMixedScript       Type = "mixed-script"
	TypeEmptyElement      Type = "empty-element"
	TypeScript            Type = "script"
	TypeRuleFailure       Type = "rule-failure"
)

var knownTypes = map[Type]bool{
	TypeNoTagTree: true, TypeNotMarked: true, TypeLanguage: true, TypeTitle: true,
	TypeDisplayTitle: true, TypeTabOrder: true, TypeDocumentWrapper: true,
	TypeListItemShape: true, TypeListChild: true, TypeNeedlessNesting: true,
	TypePagePartition: true, TypeUntaggedList: true, TypeMistaggedArtifact: true,
	TypeDecorativeImage: true, TypeMissingAlt: true, TypeUnmarkedLink: true,
	TypeBrokenMapping: true, TypeLigature: true, TypeMixedScript: true,
	TypeEmptyElement: true, TypeScript: true, TypeRuleFailure: true,
}

// Known reports whether t is one of the declared types.
func (t Type) Known() bool { return knownTypes[t] }

// Location pins an issue to a page, node and/or object. Each part is
// optional: Page 0, Node NoNode and a zero Obj mean unknown.
type Location struct {
	Page int
	Node tagtree.NodeID
	Obj  tagtree.ObjRef
}

// Nowhere is the document-level location.
var Nowhere = Location{Node: tagtree.NoNode}

// AtPage locates an issue on a page only.
func AtPage(page int) Location { return Location{Page: page, Node: tagtree.NoNode} }

// AtNode locates an issue on a node of the tree, carrying its page and
// original object.
func AtNode(t *tagtree.Tree, id tagtree.NodeID) Location {
	loc := Location{Node: id, Page: t.ResolvePage(id)}
	if n := t.Node(id); n != nil {
		loc.Obj = n.Obj
	}
	return loc
}

func (l Location) String() string {
	var parts []string
	if l.Page > 0 {
		parts = append(parts, fmt.Sprintf("page %d", l.Page))
	}
	if l.Node != tagtree.NoNode {
		parts = append(parts, fmt.Sprintf("node %d", l.Node))
	}
	if !l.Obj.IsZero() {
		parts = append(parts, "obj "+l.Obj.String())
	}
	if len(parts) == 0 {
		return "document"
	}
	return strings.Join(parts, ", ")
}

type Status uint8

const (
	Open Status = iota
	Resolved
	Failed
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "open"
	}
}

// Issue is a detected defect. Rule code creates it and never changes it
// afterwards; only the engine records the outcome.
type Issue struct {
	Type     Type
	Severity Severity
	Location Location
	Message  string
	Fix      Fix
	// Rule names the check or visitor that reported the issue.
	Rule string

	status Status
	note   string
}

func New(typ Type, sev Severity, loc Location, format string, args ...any) *Issue {
	return &Issue{Type: typ, Severity: sev, Location: loc, Message: fmt.Sprintf(format, args...)}
}

// WithFix attaches f and returns the issue.
func (i *Issue) WithFix(f Fix) *Issue {
	i.Fix = f
	return i
}

func (i *Issue) Status() Status { return i.status }

// Note is the resolution or failure message recorded by the engine.
func (i *Issue) Note() string { return i.note }

func (i *Issue) MarkResolved(note string) {
	i.status = Resolved
	i.note = note
}

func (i *Issue) MarkFailed(note string) {
	i.status = Failed
	i.note = note
}

// Restore sets the recorded outcome, for issues reloaded from storage.
func (i *Issue) Restore(s Status, note string) {
	i.status = s
	i.note = note
}

func (i *Issue) String() string {
	return fmt.Sprintf("%s [%s] %s: %s", i.Severity, i.Type, i.Location, i.Message)
}

// HasFatal reports whether any issue in list is FATAL.
func HasFatal(list []*Issue) bool {
	for _, i := range list {
		if i.Severity == Fatal {
			return true
		}
	}
	return false
}
