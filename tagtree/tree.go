package tagtree

import (
	"errors"
	"fmt"
	"slices"
)

// NodeID addresses a node in the tree's arena. IDs stay valid for the
// lifetime of the tree, including after the node is detached.
type NodeID int32

// NoNode is the zero handle: no parent, no node.
const NoNode NodeID = -1

// NoPage marks an absent page association. Pages are numbered from 1.
const NoPage = 0

var (
	ErrInvalidNode  = errors.New("tagtree: invalid node")
	ErrIndexRange   = errors.New("tagtree: kid index out of range")
	ErrAttached     = errors.New("tagtree: node already has a parent")
	ErrCycle        = errors.New("tagtree: insertion would create a cycle")
	ErrRootMutation = errors.New("tagtree: the root cannot be moved")
)

// ObjRef identifies an indirect object of the underlying file.
type ObjRef struct {
	Num int
	Gen int
}

func (r ObjRef) IsZero() bool { return r.Num == 0 }

func (r ObjRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// KidKind tells which variant a Kid holds.
type KidKind uint8

const (
	KidNode KidKind = iota
	KidContent
	KidObject
)

func (k KidKind) String() string {
	switch k {
	case KidNode:
		return "node"
	case KidContent:
		return "mcid"
	case KidObject:
		return "objr"
	default:
		return "unknown"
	}
}

// Kid is one entry of a node's ordered children: a structure node, a marked
// content reference, or an object reference (typically an annotation).
type Kid struct {
	Kind KidKind
	Node NodeID // KidNode
	Page int    // KidContent, KidObject
	MCID int    // KidContent
	Obj  ObjRef // KidObject
}

func NodeKid(id NodeID) Kid { return Kid{Kind: KidNode, Node: id} }

func ContentKid(page, mcid int) Kid { return Kid{Kind: KidContent, Node: NoNode, Page: page, MCID: mcid} }

func ObjectKid(page int, obj ObjRef) Kid {
	return Kid{Kind: KidObject, Node: NoNode, Page: page, Obj: obj}
}

// Marker is a visual flag escalated from a defective node to its container.
type Marker uint8

const (
	MarkerNone Marker = iota
	MarkerWarning
	MarkerError
)

// Node is a structure element. Role, Page and the attribute fields may be
// edited in place; parent/kid links change only through Tree methods.
type Node struct {
	Role       string
	Page       int
	Alt        string
	ActualText string
	Title      string
	Lang       string
	Obj        ObjRef

	parent NodeID
	kids   []Kid
	marker Marker
}

// Tree is an arena-backed structure tree. The root is a StructTreeRoot node.
type Tree struct {
	nodes   []*Node
	root    NodeID
	RoleMap map[string]string
}

// New returns a tree holding only its root.
func New() *Tree {
	t := &Tree{RoleMap: make(map[string]string)}
	t.root = t.NewNode(RoleStructTreeRoot)
	return t
}

func (t *Tree) Root() NodeID { return t.root }

// Len returns the arena size, detached nodes included.
func (t *Tree) Len() int { return len(t.nodes) }

// NewNode allocates a detached node.
func (t *Tree) NewNode(role string) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{Role: role, parent: NoNode})
	return id
}

func (t *Tree) Valid(id NodeID) bool { return id >= 0 && int(id) < len(t.nodes) }

// Node returns the node for id, or nil.
func (t *Tree) Node(id NodeID) *Node {
	if !t.Valid(id) {
		return nil
	}
	return t.nodes[id]
}

func (t *Tree) Role(id NodeID) string {
	if n := t.Node(id); n != nil {
		return n.Role
	}
	return ""
}

// Std returns the standard role of id.
func (t *Tree) Std(id NodeID) string { return t.StandardRole(t.Role(id)) }

func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.Node(id); n != nil {
		return n.parent
	}
	return NoNode
}

// Kids returns a copy of id's ordered children.
func (t *Tree) Kids(id NodeID) []Kid {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	out := make([]Kid, len(n.kids))
	copy(out, n.kids)
	return out
}

func (t *Tree) NumKids(id NodeID) int {
	if n := t.Node(id); n != nil {
		return len(n.kids)
	}
	return 0
}

// ChildNodes returns the structure-node children of id in order.
func (t *Tree) ChildNodes(id NodeID) []NodeID {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	var out []NodeID
	for _, k := range n.kids {
		if k.Kind == KidNode {
			out = append(out, k.Node)
		}
	}
	return out
}

// IndexOf returns the kid index of child under parent, or -1.
func (t *Tree) IndexOf(parent, child NodeID) int {
	n := t.Node(parent)
	if n == nil {
		return -1
	}
	for i, k := range n.kids {
		if k.Kind == KidNode && k.Node == child {
			return i
		}
	}
	return -1
}

// Attached reports whether id is reachable from the root.
func (t *Tree) Attached(id NodeID) bool {
	if !t.Valid(id) {
		return false
	}
	for cur := id; cur != NoNode; cur = t.nodes[cur].parent {
		if cur == t.root {
			return true
		}
	}
	return false
}

// Ancestors returns the parent chain of id, nearest first.
func (t *Tree) Ancestors(id NodeID) []NodeID {
	var out []NodeID
	if !t.Valid(id) {
		return nil
	}
	for cur := t.nodes[id].parent; cur != NoNode; cur = t.nodes[cur].parent {
		out = append(out, cur)
	}
	return out
}

// IsAncestor reports whether anc is a proper ancestor of id.
func (t *Tree) IsAncestor(anc, id NodeID) bool {
	if !t.Valid(id) {
		return false
	}
	for cur := t.nodes[id].parent; cur != NoNode; cur = t.nodes[cur].parent {
		if cur == anc {
			return true
		}
	}
	return false
}

// Descendants returns the structure nodes below id in pre-order.
func (t *Tree) Descendants(id NodeID) []NodeID {
	var out []NodeID
	stack := t.ChildNodes(id)
	slices.Reverse(stack)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		kids := t.ChildNodes(cur)
		slices.Reverse(kids)
		stack = append(stack, kids...)
	}
	return out
}

// ContentRefs returns the content and object references of id. With deep set,
// references of all descendants are included in document order.
func (t *Tree) ContentRefs(id NodeID, deep bool) []Kid {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	var out []Kid
	for _, k := range n.kids {
		switch k.Kind {
		case KidContent, KidObject:
			out = append(out, k)
		case KidNode:
			if deep {
				out = append(out, t.ContentRefs(k.Node, true)...)
			}
		}
	}
	return out
}

// ResolvePage returns the page id belongs to. Order: the node's own page, its
// first direct content reference with a page, the first page found among its
// descendants, the nearest ancestor with a page. NoPage when none is known.
func (t *Tree) ResolvePage(id NodeID) int {
	n := t.Node(id)
	if n == nil {
		return NoPage
	}
	if n.Page > 0 {
		return n.Page
	}
	if p := t.descendantPage(id); p > 0 {
		return p
	}
	for cur := n.parent; cur != NoNode; cur = t.nodes[cur].parent {
		if p := t.nodes[cur].Page; p > 0 {
			return p
		}
	}
	return NoPage
}

func (t *Tree) descendantPage(id NodeID) int {
	n := t.nodes[id]
	for _, k := range n.kids {
		if k.Kind != KidNode && k.Page > 0 {
			return k.Page
		}
	}
	for _, k := range n.kids {
		if k.Kind != KidNode {
			continue
		}
		if p := t.nodes[k.Node].Page; p > 0 {
			return p
		}
		if p := t.descendantPage(k.Node); p > 0 {
			return p
		}
	}
	return NoPage
}

// Pages returns the distinct pages touched by id's content, ascending.
func (t *Tree) Pages(id NodeID) []int {
	seen := make(map[int]bool)
	if n := t.Node(id); n != nil && n.Page > 0 {
		seen[n.Page] = true
	}
	for _, k := range t.ContentRefs(id, true) {
		if k.Page > 0 {
			seen[k.Page] = true
		}
	}
	for _, d := range t.Descendants(id) {
		if p := t.nodes[d].Page; p > 0 {
			seen[p] = true
		}
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Marker returns the escalation marker of id.
func (t *Tree) Marker(id NodeID) Marker {
	if n := t.Node(id); n != nil {
		return n.marker
	}
	return MarkerNone
}

// Escalate raises the marker of id and each ancestor up to and including the
// nearest container (Document, Part or the root).
func (t *Tree) Escalate(id NodeID, m Marker) {
	for cur := id; t.Valid(cur); cur = t.nodes[cur].parent {
		n := t.nodes[cur]
		if m > n.marker {
			n.marker = m
		}
		if cur != id && IsContainerRole(t.StandardRole(n.Role)) {
			return
		}
	}
}

func (t *Tree) ClearMarkers() {
	for _, n := range t.nodes {
		n.marker = MarkerNone
	}
}

// FindByObject returns the attached node loaded from obj.
func (t *Tree) FindByObject(obj ObjRef) (NodeID, bool) {
	if obj.IsZero() {
		return NoNode, false
	}
	for i, n := range t.nodes {
		if n.Obj == obj && t.Attached(NodeID(i)) {
			return NodeID(i), true
		}
	}
	return NoNode, false
}

