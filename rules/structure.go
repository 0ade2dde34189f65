package rules

import (
	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/fixes"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
	"github.com/wudi/tagremedy/walker"
)

// DocumentWrapper requires the root to hold exactly one Document element.
type DocumentWrapper struct{ base }

func NewDocumentWrapper() *DocumentWrapper {
	return &DocumentWrapper{base{
		name: NameDocumentWrapper,
		desc: "The structure tree root holds a single Document element",
	}}
}

func (r *DocumentWrapper) EnterElement(v *walker.Visit) bool {
	t := v.Tree
	kids := t.Kids(v.Node)
	if len(kids) == 0 {
		return false
	}
	if len(kids) == 1 && kids[0].Kind == tagtree.KidNode && t.Std(kids[0].Node) == tagtree.RoleDocument {
		return false
	}
	r.report(issue.New(issue.TypeDocumentWrapper, issue.Error, issue.Nowhere,
		"root holds %d element(s) instead of a single Document", len(kids)).WithFix(fixes.NewWrapInDocument()))
	return false
}

// PagePartition flags multi-page documents whose page content sits directly
// under the Document element instead of per-page Part elements.
type PagePartition struct{ base }

func NewPagePartition() *PagePartition {
	return &PagePartition{base{
		name:    NamePagePartition,
		desc:    "Content of multi-page documents is grouped into one Part per page",
		prereqs: []string{NameDocumentWrapper},
	}}
}

func (r *PagePartition) EnterElement(v *walker.Visit) bool {
	if v.Ctx.PageCount() < 2 {
		return false
	}
	t := v.Tree
	// Without a single Document the root kids are examined; the fix then
	// finds the Document created by the wrapper fix.
	container, scan := tagtree.NoNode, v.Node
	if kids := t.ChildNodes(v.Node); len(kids) == 1 && t.NumKids(v.Node) == 1 && t.Std(kids[0]) == tagtree.RoleDocument {
		container, scan = kids[0], kids[0]
	}
	pages := make(map[int]bool)
	for _, k := range t.Kids(scan) {
		switch {
		case k.Kind != tagtree.KidNode:
			if k.Page > 0 {
				pages[k.Page] = true
			}
		case !tagtree.IsGroupingRole(t.Std(k.Node)):
			if p := t.ResolvePage(k.Node); p > 0 {
				pages[p] = true
			}
		}
	}
	if len(pages) < 2 {
		return false
	}
	loc := issue.Nowhere
	if container != tagtree.NoNode {
		loc = issue.Location{Node: container, Obj: t.Node(container).Obj}
	}
	r.report(issue.New(issue.TypePagePartition, issue.Warning, loc,
		"content of %d pages sits directly under the document", len(pages)).WithFix(fixes.NewPartitionPages(container)))
	return false
}

// wrapperRoles add no semantics of their own.
var wrapperRoles = map[string]bool{
	tagtree.RoleDiv:       true,
	tagtree.RoleNonStruct: true,
	tagtree.RoleSpan:      true,
	tagtree.RolePrivate:   true,
}

// NeedlessNesting collects grouping elements that carry no attributes and
// only hold other elements, and flattens them all with one batch fix.
type NeedlessNesting struct {
	base
	wrappers []tagtree.NodeID
}

func NewNeedlessNesting() *NeedlessNesting {
	return &NeedlessNesting{base: base{
		name: NameNeedlessNesting,
		desc: "Grouping elements without semantics are flattened into their parents",
	}}
}

func (r *NeedlessNesting) EnterElement(v *walker.Visit) bool {
	if v.Depth > 0 && isNeedlessWrapper(v.Tree, v.Node) {
		r.wrappers = append(r.wrappers, v.Node)
	}
	return true
}

func isNeedlessWrapper(t *tagtree.Tree, id tagtree.NodeID) bool {
	n := t.Node(id)
	if !wrapperRoles[t.Std(id)] || hasAltText(n) || n.Lang != "" || n.Title != "" {
		return false
	}
	kids := t.Kids(id)
	if len(kids) == 0 {
		return false
	}
	for _, k := range kids {
		if k.Kind != tagtree.KidNode {
			return false
		}
	}
	return true
}

func (r *NeedlessNesting) AfterTraversal(ctx *docctx.Context) {
	if len(r.wrappers) == 0 {
		return
	}
	t := ctx.Tree()
	for _, w := range r.wrappers {
		t.Escalate(w, tagtree.MarkerWarning)
	}
	r.report(issue.New(issue.TypeNeedlessNesting, issue.Warning, issue.Nowhere,
		"%d grouping element(s) add no structure", len(r.wrappers)).WithFix(fixes.NewFlattenWrappers(r.wrappers)))
}

// EmptyElements flags elements whose whole subtree references no content.
// Only the outermost such element is reported.
type EmptyElements struct{ base }

func NewEmptyElements() *EmptyElements {
	return &EmptyElements{base{
		name: NameEmptyElements,
		desc: "Structure elements reference content",
	}}
}

func (r *EmptyElements) EnterElement(v *walker.Visit) bool {
	if v.Depth == 0 {
		return true
	}
	t := v.Tree
	switch v.Role() {
	case tagtree.RoleDocument, tagtree.RolePart, tagtree.RoleTD, tagtree.RoleTH:
		return true
	}
	if hasAltText(t.Node(v.Node)) || len(t.ContentRefs(v.Node, true)) > 0 {
		return true
	}
	r.flag(t, issue.New(issue.TypeEmptyElement, issue.Warning, issue.AtNode(t, v.Node),
		"%s element has no content", t.Role(v.Node)).WithFix(fixes.NewRemoveNode(v.Node)))
	return false
}
