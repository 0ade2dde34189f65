package fixes

import (
	"fmt"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/geometry"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
)

// CreateLinkTag adds a Link element referencing an untagged annotation.
// The element is placed next to (or inside, when the annotation lies on it)
// the closest tagged content of the same page; content resolved to other
// pages is never considered.
type CreateLinkTag struct {
	issue.BaseFix
	Page  int
	Annot tagtree.ObjRef
	Alt   string
}

func NewCreateLinkTag(page int, annot tagtree.ObjRef, alt string) *CreateLinkTag {
	return &CreateLinkTag{
		BaseFix: issue.BaseFix{Prio: issue.PriorityLink, Label: "Created Link tags"},
		Page:    page,
		Annot:   annot,
		Alt:     alt,
	}
}

func (f *CreateLinkTag) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	if _, tagged := ctx.ReferencedObjects()[f.Annot]; tagged {
		return nil
	}
	a, page := ctx.Doc.Annotation(f.Annot)
	if a == nil {
		return fmt.Errorf("fixes: annotation %s not found", f.Annot)
	}
	if page != f.Page {
		return fmt.Errorf("fixes: annotation %s is on page %d, not %d", f.Annot, page, f.Page)
	}

	link := t.NewNode(tagtree.RoleLink)
	n := t.Node(link)
	n.Page = f.Page
	n.Alt = f.Alt
	if err := t.AppendKid(link, tagtree.ObjectKid(f.Page, f.Annot)); err != nil {
		return err
	}

	best, inside := NearestOnPage(ctx, f.Page, a.Rect)
	switch {
	case best == tagtree.NoNode:
		return t.AppendKid(PageContainer(t, f.Page), tagtree.NodeKid(link))
	case inside && acceptsInline(t.Std(best)):
		return t.AppendKid(best, tagtree.NodeKid(link))
	default:
		parent := t.Parent(best)
		return t.InsertKid(parent, t.IndexOf(parent, best)+1, tagtree.NodeKid(link))
	}
}

func (f *CreateLinkTag) Describe() string {
	return fmt.Sprintf("created Link element for annotation %s on page %d", f.Annot, f.Page)
}

func acceptsInline(role string) bool {
	switch role {
	case tagtree.RoleP, tagtree.RoleSpan, tagtree.RoleLBody, tagtree.RoleLbl, tagtree.RoleTD,
		tagtree.RoleTH, tagtree.RoleCaption, tagtree.RoleQuote, tagtree.RoleNote,
		tagtree.RoleReference, tagtree.RoleCode, tagtree.RoleTOCI:
		return true
	}
	return tagtree.IsHeadingRole(role)
}

// NearestOnPage returns the attached node with marked content on page that
// overlaps rect the most, or failing any overlap, lies closest to it. Only
// nodes whose resolved page is page qualify. inside reports an overlap.
func NearestOnPage(ctx *docctx.Context, page int, rect geometry.Rect) (best tagtree.NodeID, inside bool) {
	t := ctx.Tree()
	best = tagtree.NoNode
	bestArea, bestDist := 0.0, 0.0
	for _, id := range t.Descendants(t.Root()) {
		if t.ResolvePage(id) != page || !hasContentOn(t, id, page) {
			continue
		}
		b, ok := ctx.Bounds(id, page)
		if !ok {
			continue
		}
		area := b.Intersect(rect).Area()
		dist := b.Distance(rect)
		switch {
		case best == tagtree.NoNode:
		case area > 0 && area > bestArea:
		case area == 0 && bestArea == 0 && dist < bestDist:
		default:
			continue
		}
		best, bestArea, bestDist = id, area, dist
	}
	return best, bestArea > 0
}

func hasContentOn(t *tagtree.Tree, id tagtree.NodeID, page int) bool {
	for _, k := range t.Kids(id) {
		if k.Kind == tagtree.KidContent && k.Page == page {
			return true
		}
	}
	return false
}

// PageContainer returns the Part holding page, else the Document element,
// else the root.
func PageContainer(t *tagtree.Tree, page int) tagtree.NodeID {
	doc := tagtree.NoNode
	for _, id := range t.ChildNodes(t.Root()) {
		if t.Std(id) == tagtree.RoleDocument {
			doc = id
			break
		}
	}
	if doc == tagtree.NoNode {
		return t.Root()
	}
	for _, id := range t.ChildNodes(doc) {
		if t.Std(id) == tagtree.RolePart && partPage(t, id) == page {
			return id
		}
	}
	return doc
}
