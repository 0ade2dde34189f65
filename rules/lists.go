package rules

import (
	"github.com/wudi/tagremedy/config"
	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/fixes"
	"github.com/wudi/tagremedy/geometry"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
	"github.com/wudi/tagremedy/walker"
)

// ListItems normalizes the shape of LI elements to Lbl + LBody and wraps
// stray list children in LI. Every finding escalates a marker up to the
// enclosing container.
type ListItems struct{ base }

func NewListItems() *ListItems {
	return &ListItems{base{
		name: NameListItems,
		desc: "List items hold a label and a body",
	}}
}

func (r *ListItems) EnterElement(v *walker.Visit) bool {
	switch v.Role() {
	case tagtree.RoleLI:
		r.checkItem(v.Tree, v.Node)
	case tagtree.RoleL:
		r.checkList(v.Tree, v.Node)
	}
	return true
}

func (r *ListItems) checkList(t *tagtree.Tree, list tagtree.NodeID) {
	for _, kid := range t.ChildNodes(list) {
		switch t.Std(kid) {
		case tagtree.RoleLI, tagtree.RoleCaption, tagtree.RoleL:
			continue
		}
		r.flag(t, issue.New(issue.TypeListChild, issue.Warning, issue.AtNode(t, kid),
			"%s element is a direct child of a list", t.Role(kid)).WithFix(fixes.NewWrapInListItem(kid)))
	}
}

func (r *ListItems) checkItem(t *tagtree.Tree, item tagtree.NodeID) {
	kids := t.ChildNodes(item)
	loc := issue.AtNode(t, item)
	warn := func(format string, args ...any) *issue.Issue {
		is := issue.New(issue.TypeListItemShape, issue.Warning, loc, format, args...)
		r.flag(t, is)
		return is
	}

	switch len(kids) {
	case 0:
		warn("list item is empty")
	case 1:
		switch t.Std(kids[0]) {
		case tagtree.RoleP:
			warn("list item has no label").WithFix(fixes.NewWrapInBody(item, kids[0]))
		case tagtree.RoleLbl:
			warn("list item has no body")
		case tagtree.RoleLBody:
			warn("list item has no label")
		default:
			warn("list item holds a single %s element", t.Role(kids[0]))
		}
	case 2:
		first, second := t.Std(kids[0]), t.Std(kids[1])
		switch {
		case first == tagtree.RoleLbl && second == tagtree.RoleLBody:
		case first == tagtree.RoleP && second == tagtree.RoleLBody:
			warn("list item label is tagged as P").WithFix(fixes.NewRetype(item,
				fixes.RoleChange{Node: kids[0], Role: tagtree.RoleLbl}))
		case first == tagtree.RoleP && second == tagtree.RoleP:
			warn("list item label and body are tagged as P").WithFix(fixes.NewRetype(item,
				fixes.RoleChange{Node: kids[0], Role: tagtree.RoleLbl},
				fixes.RoleChange{Node: kids[1], Role: tagtree.RoleLBody}))
		default:
			warn("list item holds %s and %s instead of Lbl and LBody", t.Role(kids[0]), t.Role(kids[1]))
		}
	default:
		warn("list item has too many children (%d)", len(kids))
	}
}

// BulletLists finds runs of elements whose first line is aligned with a
// bullet painted as a vector shape or glyph, and tags each run as a list.
// Elements too tall to be a single item are searched for aligned lines
// among their own marked content.
type BulletLists struct {
	base
	cfg config.ListConfig
}

func NewBulletLists(cfg config.ListConfig) *BulletLists {
	return &BulletLists{base: base{
		name: NameBulletLists,
		desc: "Bulleted text is tagged as a list",
	}, cfg: cfg}
}

func (r *BulletLists) EnterElement(v *walker.Visit) bool {
	role := v.Role()
	if !tagtree.IsGroupingRole(role) {
		return false
	}
	r.scanSection(v.Ctx, v.Tree, v.Node)
	return true
}

// lineCandidate reports whether role may be one bulleted line.
func lineCandidate(role string) bool {
	switch role {
	case tagtree.RoleP, tagtree.RoleSpan, tagtree.RoleQuote, tagtree.RoleNote,
		tagtree.RoleCode, tagtree.RoleReference:
		return true
	}
	return tagtree.IsHeadingRole(role)
}

// scanSection collects runs among the direct kids of section. A run never
// crosses a page boundary.
func (r *BulletLists) scanSection(ctx *docctx.Context, t *tagtree.Tree, section tagtree.NodeID) {
	var run []tagtree.NodeID
	runPage := tagtree.NoPage
	flush := func() {
		if len(run) >= r.cfg.MinRun {
			nodes := append([]tagtree.NodeID(nil), run...)
			loc := issue.AtNode(t, nodes[0])
			r.report(issue.New(issue.TypeUntaggedList, issue.Warning, loc,
				"%d bullet-aligned elements are not tagged as a list", len(nodes)).WithFix(fixes.NewWrapRunInList(nodes)))
		}
		run = run[:0]
	}
	for _, kid := range t.ChildNodes(section) {
		if !lineCandidate(t.Std(kid)) {
			flush()
			continue
		}
		page := t.ResolvePage(kid)
		if len(run) > 0 && page != runPage {
			flush()
		}
		b, ok := ctx.Bounds(kid, page)
		switch {
		case !ok:
			flush()
		case b.Height() <= r.cfg.LineHeightCeiling && r.aligned(ctx.Bullets(page), b):
			run = append(run, kid)
			runPage = page
		default:
			flush()
			if b.Height() > r.cfg.LineHeightCeiling {
				r.drill(ctx, t, kid)
			}
		}
	}
	flush()
}

// drill looks for aligned runs among the direct marked content of id.
func (r *BulletLists) drill(ctx *docctx.Context, t *tagtree.Tree, id tagtree.NodeID) {
	var run []tagtree.Kid
	flush := func() {
		if len(run) >= r.cfg.MinRun {
			kids := append([]tagtree.Kid(nil), run...)
			loc := issue.AtNode(t, id)
			loc.Page = kids[0].Page
			r.report(issue.New(issue.TypeUntaggedList, issue.Warning, loc,
				"%d bullet-aligned lines inside %s are not tagged as a list", len(kids), t.Role(id)).
				WithFix(fixes.NewWrapContentInList(id, kids)))
		}
		run = run[:0]
	}
	for _, k := range t.Kids(id) {
		if k.Kind != tagtree.KidContent {
			flush()
			continue
		}
		b, ok := ctx.KidBounds(k)
		if ok && b.Height() <= r.cfg.LineHeightCeiling && r.aligned(ctx.Bullets(k.Page), b) {
			run = append(run, k)
			continue
		}
		flush()
	}
	flush()
}

func (r *BulletLists) aligned(bullets []float64, b geometry.Rect) bool {
	for _, y := range bullets {
		if b.SpansY(y, r.cfg.BulletTolerance) {
			return true
		}
	}
	return false
}
