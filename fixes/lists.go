package fixes

import (
	"fmt"
	"strings"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
)

// RoleChange is one retyping performed by Retype.
type RoleChange struct {
	Node tagtree.NodeID
	Role string
}

// Retype changes the roles of the kids of a list item.
type Retype struct {
	issue.BaseFix
	Item    tagtree.NodeID
	Changes []RoleChange
}

func NewRetype(item tagtree.NodeID, changes ...RoleChange) *Retype {
	return &Retype{
		BaseFix: issue.BaseFix{Prio: issue.PriorityStructure, Label: "Repaired list items"},
		Item:    item,
		Changes: changes,
	}
}

func (f *Retype) Target() tagtree.NodeID { return f.Item }

func (f *Retype) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	for _, c := range f.Changes {
		n := t.Node(c.Node)
		if n == nil {
			return fmt.Errorf("retype %d: %w", c.Node, tagtree.ErrInvalidNode)
		}
		n.Role = c.Role
	}
	return nil
}

func (f *Retype) Describe() string {
	roles := make([]string, len(f.Changes))
	for i, c := range f.Changes {
		roles[i] = c.Role
	}
	return fmt.Sprintf("retyped list item children as %s", strings.Join(roles, ", "))
}

func (f *Retype) ResolvedCount() int { return len(f.Changes) }

// WrapInBody wraps the single child of a list item in LBody.
type WrapInBody struct {
	issue.BaseFix
	Item  tagtree.NodeID
	Child tagtree.NodeID
}

func NewWrapInBody(item, child tagtree.NodeID) *WrapInBody {
	return &WrapInBody{
		BaseFix: issue.BaseFix{Prio: issue.PriorityStructure, Label: "Repaired list items"},
		Item:    item,
		Child:   child,
	}
}

func (f *WrapInBody) Target() tagtree.NodeID { return f.Item }

func (f *WrapInBody) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	if t.Std(t.Parent(f.Child)) == tagtree.RoleLBody {
		return nil
	}
	if t.Parent(f.Child) != f.Item {
		return fmt.Errorf("fixes: node %d is not a kid of list item %d", f.Child, f.Item)
	}
	_, err = t.Wrap(tagtree.RoleLBody, f.Child)
	return err
}

func (f *WrapInBody) Describe() string { return "wrapped list item content in LBody" }

// WrapInListItem wraps a stray kid of a list in LI/LBody.
type WrapInListItem struct {
	issue.BaseFix
	Node tagtree.NodeID
}

func NewWrapInListItem(id tagtree.NodeID) *WrapInListItem {
	return &WrapInListItem{BaseFix: issue.BaseFix{Prio: issue.PriorityStructure, Label: "Repaired list items"}, Node: id}
}

func (f *WrapInListItem) Target() tagtree.NodeID { return f.Node }

func (f *WrapInListItem) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	return wrapAsItem(t, f.Node)
}

func (f *WrapInListItem) Describe() string { return "wrapped list child in LI" }

// wrapAsItem turns id into LI > LBody > id, or LI > id when id already is a
// label or body. It does nothing when id already sits in a list item.
func wrapAsItem(t *tagtree.Tree, id tagtree.NodeID) error {
	parent := t.Std(t.Parent(id))
	if parent == tagtree.RoleLI {
		return nil
	}
	if parent == tagtree.RoleLBody && t.Std(t.Parent(t.Parent(id))) == tagtree.RoleLI {
		return nil
	}
	switch t.Std(id) {
	case tagtree.RoleLbl, tagtree.RoleLBody:
		_, err := t.Wrap(tagtree.RoleLI, id)
		return err
	}
	body, err := t.Wrap(tagtree.RoleLBody, id)
	if err != nil {
		return err
	}
	_, err = t.Wrap(tagtree.RoleLI, body)
	return err
}

// WrapRunInList wraps consecutive sibling elements aligned with bullets in
// L, each element becoming one LI > LBody.
type WrapRunInList struct {
	issue.BaseFix
	Nodes []tagtree.NodeID
}

func NewWrapRunInList(nodes []tagtree.NodeID) *WrapRunInList {
	return &WrapRunInList{BaseFix: issue.BaseFix{Prio: issue.PriorityStructure, Label: "Tagged bulleted lists"}, Nodes: nodes}
}

func (f *WrapRunInList) Target() tagtree.NodeID {
	if len(f.Nodes) == 0 {
		return tagtree.NoNode
	}
	return f.Nodes[0]
}

func (f *WrapRunInList) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	if len(f.Nodes) == 0 {
		return nil
	}
	if t.Std(t.Parent(f.Nodes[0])) == tagtree.RoleLBody {
		return nil
	}
	if _, err := t.Wrap(tagtree.RoleL, f.Nodes...); err != nil {
		return err
	}
	for _, id := range f.Nodes {
		if err := wrapAsItem(t, id); err != nil {
			return err
		}
	}
	return nil
}

func (f *WrapRunInList) Describe() string {
	return fmt.Sprintf("tagged %d bullet-aligned element(s) as a list", len(f.Nodes))
}

func (f *WrapRunInList) ResolvedCount() int { return len(f.Nodes) }

// WrapContentInList moves consecutive marked-content kids of Node into a
// new L, one LI > LBody per kid, placed where the first kid was.
type WrapContentInList struct {
	issue.BaseFix
	Node tagtree.NodeID
	Kids []tagtree.Kid
}

func NewWrapContentInList(id tagtree.NodeID, kids []tagtree.Kid) *WrapContentInList {
	return &WrapContentInList{
		BaseFix: issue.BaseFix{Prio: issue.PriorityStructure, Label: "Tagged bulleted lists"},
		Node:    id,
		Kids:    kids,
	}
}

func (f *WrapContentInList) Target() tagtree.NodeID { return f.Node }

func (f *WrapContentInList) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	if len(f.Kids) == 0 {
		return nil
	}
	want := make(map[tagtree.Kid]bool, len(f.Kids))
	for _, k := range f.Kids {
		want[k] = true
	}
	kids := t.Kids(f.Node)
	at := -1
	var keep []tagtree.Kid
	for _, k := range kids {
		if want[k] {
			if at < 0 {
				at = len(keep)
			}
			continue
		}
		keep = append(keep, k)
	}
	if at < 0 {
		return nil
	}
	if len(kids)-len(keep) != len(f.Kids) {
		return fmt.Errorf("fixes: only %d of %d content items still under node %d", len(kids)-len(keep), len(f.Kids), f.Node)
	}
	list := t.NewNode(tagtree.RoleL)
	for _, k := range f.Kids {
		item := t.Add(list, tagtree.RoleLI)
		t.Add(item, tagtree.RoleLBody, k)
	}
	out := make([]tagtree.Kid, 0, len(keep)+1)
	out = append(out, keep[:at]...)
	out = append(out, tagtree.NodeKid(list))
	out = append(out, keep[at:]...)
	return t.SetKids(f.Node, out)
}

func (f *WrapContentInList) Describe() string {
	return fmt.Sprintf("tagged %d bullet-aligned line(s) as list items", len(f.Kids))
}

func (f *WrapContentInList) ResolvedCount() int { return len(f.Kids) }
