package tagtree

import "fmt"

// AppendKid adds kid as the last child of parent.
func (t *Tree) AppendKid(parent NodeID, kid Kid) error {
	return t.InsertKid(parent, t.NumKids(parent), kid)
}

// InsertKid inserts kid at index under parent. A node kid must be detached and
// must not be an ancestor of parent.
func (t *Tree) InsertKid(parent NodeID, index int, kid Kid) error {
	p := t.Node(parent)
	if p == nil {
		return fmt.Errorf("insert under %d: %w", parent, ErrInvalidNode)
	}
	if index < 0 || index > len(p.kids) {
		return fmt.Errorf("insert at %d of %d: %w", index, len(p.kids), ErrIndexRange)
	}
	if kid.Kind == KidNode {
		if err := t.checkAdoptable(parent, kid.Node); err != nil {
			return err
		}
		t.nodes[kid.Node].parent = parent
	}
	p.kids = append(p.kids, Kid{})
	copy(p.kids[index+1:], p.kids[index:])
	p.kids[index] = kid
	return nil
}

func (t *Tree) checkAdoptable(parent, child NodeID) error {
	c := t.Node(child)
	if c == nil {
		return fmt.Errorf("adopt %d: %w", child, ErrInvalidNode)
	}
	if child == t.root {
		return ErrRootMutation
	}
	if c.parent != NoNode {
		return fmt.Errorf("adopt %d under %d: %w", child, parent, ErrAttached)
	}
	if child == parent || t.IsAncestor(child, parent) {
		return fmt.Errorf("adopt %d under %d: %w", child, parent, ErrCycle)
	}
	return nil
}

// RemoveKid removes and returns the kid at index. A removed node becomes
// detached but keeps its own subtree.
func (t *Tree) RemoveKid(parent NodeID, index int) (Kid, error) {
	p := t.Node(parent)
	if p == nil {
		return Kid{}, fmt.Errorf("remove under %d: %w", parent, ErrInvalidNode)
	}
	if index < 0 || index >= len(p.kids) {
		return Kid{}, fmt.Errorf("remove at %d of %d: %w", index, len(p.kids), ErrIndexRange)
	}
	kid := p.kids[index]
	p.kids = append(p.kids[:index], p.kids[index+1:]...)
	if kid.Kind == KidNode {
		t.nodes[kid.Node].parent = NoNode
	}
	return kid, nil
}

// Detach removes id from its parent. Detaching a detached node is a no-op.
func (t *Tree) Detach(id NodeID) error {
	n := t.Node(id)
	if n == nil {
		return fmt.Errorf("detach %d: %w", id, ErrInvalidNode)
	}
	if id == t.root {
		return ErrRootMutation
	}
	if n.parent == NoNode {
		return nil
	}
	idx := t.IndexOf(n.parent, id)
	if idx < 0 {
		n.parent = NoNode
		return nil
	}
	_, err := t.RemoveKid(n.parent, idx)
	return err
}

// Move detaches id and inserts it under parent at index.
func (t *Tree) Move(id, parent NodeID, index int) error {
	if err := t.Detach(id); err != nil {
		return err
	}
	return t.InsertKid(parent, index, NodeKid(id))
}

// Splice replaces the node at kid index of parent with the kids of that node,
// preserving their order. The spliced node is left detached and empty.
func (t *Tree) Splice(parent NodeID, index int) error {
	p := t.Node(parent)
	if p == nil {
		return fmt.Errorf("splice under %d: %w", parent, ErrInvalidNode)
	}
	if index < 0 || index >= len(p.kids) || p.kids[index].Kind != KidNode {
		return fmt.Errorf("splice at %d: %w", index, ErrIndexRange)
	}
	wrapper := t.nodes[p.kids[index].Node]
	moved := wrapper.kids
	wrapper.kids = nil
	wrapper.parent = NoNode

	out := make([]Kid, 0, len(p.kids)-1+len(moved))
	out = append(out, p.kids[:index]...)
	out = append(out, moved...)
	out = append(out, p.kids[index+1:]...)
	p.kids = out
	for _, k := range moved {
		if k.Kind == KidNode {
			t.nodes[k.Node].parent = parent
		}
	}
	return nil
}

// Wrap creates a node of role at the position of the earliest of ids and
// moves every id into it, in the given order. All ids must share one parent.
func (t *Tree) Wrap(role string, ids ...NodeID) (NodeID, error) {
	if len(ids) == 0 {
		return NoNode, fmt.Errorf("wrap: %w", ErrInvalidNode)
	}
	parent := t.Parent(ids[0])
	if parent == NoNode {
		return NoNode, fmt.Errorf("wrap %d: %w", ids[0], ErrInvalidNode)
	}
	for _, id := range ids[1:] {
		if t.Parent(id) != parent {
			return NoNode, fmt.Errorf("wrap: %d and %d have different parents", ids[0], id)
		}
	}
	at := t.IndexOf(parent, ids[0])
	for _, id := range ids[1:] {
		if i := t.IndexOf(parent, id); i < at {
			at = i
		}
	}
	w := t.NewNode(role)
	for _, id := range ids {
		if err := t.Detach(id); err != nil {
			return NoNode, err
		}
		if err := t.AppendKid(w, NodeKid(id)); err != nil {
			return NoNode, err
		}
	}
	if err := t.InsertKid(parent, at, NodeKid(w)); err != nil {
		return NoNode, err
	}
	return w, nil
}

// SetKids replaces all kids of id. Node kids in the old list that are not in
// the new one become detached.
func (t *Tree) SetKids(id NodeID, kids []Kid) error {
	n := t.Node(id)
	if n == nil {
		return fmt.Errorf("set kids of %d: %w", id, ErrInvalidNode)
	}
	old := n.kids
	n.kids = nil
	for _, k := range old {
		if k.Kind == KidNode {
			t.nodes[k.Node].parent = NoNode
		}
	}
	for _, k := range kids {
		if err := t.AppendKid(id, k); err != nil {
			return err
		}
	}
	return nil
}

// Add creates a node of role holding kids and appends it to parent. It panics
// when parent is invalid; it exists for building trees in code.
func (t *Tree) Add(parent NodeID, role string, kids ...Kid) NodeID {
	id := t.NewNode(role)
	for _, k := range kids {
		if err := t.AppendKid(id, k); err != nil {
			panic(err)
		}
	}
	if err := t.AppendKid(parent, NodeKid(id)); err != nil {
		panic(err)
	}
	return id
}
