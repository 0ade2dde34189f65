package fixes

import (
	"fmt"
	"math"
	"sort"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
)

// WrapInDocument reparents every root kid under a single Document node.
// An existing Document kid is reused; further Document kids are spliced
// into it.
type WrapInDocument struct{ issue.BaseFix }

func NewWrapInDocument() *WrapInDocument {
	return &WrapInDocument{issue.BaseFix{Prio: issue.PriorityWrapper, Label: "Added Document wrapper"}}
}

func (f *WrapInDocument) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	root := t.Root()
	kids := t.Kids(root)
	var docs []tagtree.NodeID
	for _, k := range kids {
		if k.Kind == tagtree.KidNode && t.Std(k.Node) == tagtree.RoleDocument {
			docs = append(docs, k.Node)
		}
	}
	if len(kids) == 1 && len(docs) == 1 {
		return nil
	}
	if len(docs) == 0 {
		doc := t.NewNode(tagtree.RoleDocument)
		if err := t.SetKids(root, nil); err != nil {
			return err
		}
		if err := t.SetKids(doc, kids); err != nil {
			return err
		}
		return t.AppendKid(root, tagtree.NodeKid(doc))
	}

	target := docs[0]
	var before, after []tagtree.Kid
	seen := false
	for _, k := range kids {
		if k.Kind == tagtree.KidNode && k.Node == target {
			seen = true
			continue
		}
		moved := []tagtree.Kid{k}
		if k.Kind == tagtree.KidNode && t.Std(k.Node) == tagtree.RoleDocument {
			moved = t.Kids(k.Node)
			if err := t.SetKids(k.Node, nil); err != nil {
				return err
			}
		}
		if seen {
			after = append(after, moved...)
		} else {
			before = append(before, moved...)
		}
	}
	merged := append(append(before, t.Kids(target)...), after...)
	if err := t.SetKids(root, []tagtree.Kid{tagtree.NodeKid(target)}); err != nil {
		return err
	}
	return t.SetKids(target, merged)
}

func (f *WrapInDocument) Describe() string { return "wrapped root content in a Document element" }

// PartitionPages groups the kids of Container into one Part per page,
// keeping each page's relative order. Existing Parts are reused by page.
// Kids without a page follow the page of the preceding kid (the next one
// when none precedes). A NoNode container means the Document element under
// the root, resolved when the fix runs, so it can follow WrapInDocument.
type PartitionPages struct {
	issue.BaseFix
	Container tagtree.NodeID
}

func NewPartitionPages(container tagtree.NodeID) *PartitionPages {
	return &PartitionPages{
		BaseFix:   issue.BaseFix{Prio: issue.PriorityPartition, Label: "Created per-page Part elements"},
		Container: container,
	}
}

func (f *PartitionPages) Target() tagtree.NodeID { return f.Container }

func (f *PartitionPages) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	container := f.Container
	if container == tagtree.NoNode {
		container = documentElement(t)
	}
	if !t.Attached(container) {
		return fmt.Errorf("fixes: partition container %d is not in the tree", container)
	}
	kids := t.Kids(container)

	type slot struct {
		page int
		id   tagtree.NodeID
	}
	var slots []slot
	parts := make(map[int]tagtree.NodeID)
	pages := make([]int, len(kids))
	for i, k := range kids {
		if k.Kind == tagtree.KidNode && t.Std(k.Node) == tagtree.RolePart {
			p := partPage(t, k.Node)
			slots = append(slots, slot{p, k.Node})
			if _, ok := parts[p]; !ok && p > 0 {
				parts[p] = k.Node
			}
			pages[i] = -1
			continue
		}
		pages[i] = kidPage(t, k)
	}
	inheritPages(pages)

	if err := t.SetKids(container, nil); err != nil {
		return err
	}
	var loose []tagtree.Kid
	for i, k := range kids {
		switch p := pages[i]; {
		case p < 0:
		case p == tagtree.NoPage:
			loose = append(loose, k)
		default:
			part, ok := parts[p]
			if !ok {
				part = t.NewNode(tagtree.RolePart)
				t.Node(part).Page = p
				parts[p] = part
				slots = append(slots, slot{p, part})
			}
			if err := t.AppendKid(part, k); err != nil {
				return err
			}
		}
	}
	sort.SliceStable(slots, func(i, j int) bool { return pageKey(slots[i].page) < pageKey(slots[j].page) })
	out := make([]tagtree.Kid, 0, len(slots)+len(loose))
	for _, s := range slots {
		out = append(out, tagtree.NodeKid(s.id))
	}
	return t.SetKids(container, append(out, loose...))
}

func (f *PartitionPages) Describe() string { return "grouped page content into Part elements" }

// documentElement returns the single Document kid of the root, or NoNode.
func documentElement(t *tagtree.Tree) tagtree.NodeID {
	kids := t.ChildNodes(t.Root())
	if len(kids) == 1 && t.Std(kids[0]) == tagtree.RoleDocument {
		return kids[0]
	}
	return tagtree.NoNode
}

func pageKey(p int) int {
	if p <= 0 {
		return math.MaxInt
	}
	return p
}

func partPage(t *tagtree.Tree, id tagtree.NodeID) int {
	if p := t.Node(id).Page; p > 0 {
		return p
	}
	return t.ResolvePage(id)
}

func kidPage(t *tagtree.Tree, k tagtree.Kid) int {
	if k.Kind == tagtree.KidNode {
		return t.ResolvePage(k.Node)
	}
	return k.Page
}

// inheritPages fills NoPage entries from the previous paged entry, or the
// next one at the start. Negative entries are skipped.
func inheritPages(pages []int) {
	last := tagtree.NoPage
	for i, p := range pages {
		switch {
		case p > 0:
			last = p
		case p == tagtree.NoPage && last > 0:
			pages[i] = last
		}
	}
	next := tagtree.NoPage
	for i := len(pages) - 1; i >= 0; i-- {
		switch p := pages[i]; {
		case p > 0:
			next = p
		case p == tagtree.NoPage && next > 0:
			pages[i] = next
		}
	}
}

// FlattenWrappers splices needless grouping nodes into their parents. The
// wrappers are processed in reverse discovery order so that flattening an
// outer wrapper never moves an inner one that is still pending.
type FlattenWrappers struct {
	issue.BaseFix
	Wrappers []tagtree.NodeID
}

func NewFlattenWrappers(wrappers []tagtree.NodeID) *FlattenWrappers {
	return &FlattenWrappers{
		BaseFix:  issue.BaseFix{Prio: issue.PriorityFlatten, Label: "Flattened needless nesting"},
		Wrappers: wrappers,
	}
}

func (f *FlattenWrappers) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	for i := len(f.Wrappers) - 1; i >= 0; i-- {
		w := f.Wrappers[i]
		if !t.Attached(w) || w == t.Root() {
			continue
		}
		parent := t.Parent(w)
		idx := t.IndexOf(parent, w)
		if page := t.Node(w).Page; page > 0 {
			for _, kid := range t.ChildNodes(w) {
				if n := t.Node(kid); n.Page == tagtree.NoPage {
					n.Page = page
				}
			}
		}
		if err := t.Splice(parent, idx); err != nil {
			return fmt.Errorf("flatten %d: %w", w, err)
		}
	}
	return nil
}

// Invalidates reports whether other targets one of the flattened wrappers.
func (f *FlattenWrappers) Invalidates(other issue.Fix) bool {
	o, ok := other.(Targeted)
	if !ok {
		return false
	}
	for _, w := range f.Wrappers {
		if o.Target() == w {
			return true
		}
	}
	return false
}

func (f *FlattenWrappers) Describe() string {
	return fmt.Sprintf("flattened %d needless wrapper(s)", len(f.Wrappers))
}

func (f *FlattenWrappers) ResolvedCount() int { return len(f.Wrappers) }

// RemoveNode detaches a structure element whose subtree references no
// content.
type RemoveNode struct {
	issue.BaseFix
	Node tagtree.NodeID
}

func NewRemoveNode(id tagtree.NodeID) *RemoveNode {
	return &RemoveNode{BaseFix: issue.BaseFix{Prio: issue.PriorityStructure, Label: "Removed empty elements"}, Node: id}
}

func (f *RemoveNode) Target() tagtree.NodeID { return f.Node }

func (f *RemoveNode) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	if !t.Attached(f.Node) {
		return nil
	}
	if len(t.ContentRefs(f.Node, true)) > 0 {
		return fmt.Errorf("fixes: node %d is no longer empty", f.Node)
	}
	return t.Detach(f.Node)
}

func (f *RemoveNode) Describe() string { return fmt.Sprintf("removed empty element %d", f.Node) }
