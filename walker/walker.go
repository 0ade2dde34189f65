// Package walker drives a single depth-first traversal of the tag tree,
// dispatching each node to every registered visitor.
package walker

import (
	"fmt"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
)

// Visitor is a stateful traversal rule. An instance serves one traversal.
type Visitor interface {
	Name() string
	Description() string
	// Prerequisites names visitors that must be registered before this one.
	Prerequisites() []string
	// EnterElement is called in pre-order. Returning false skips the node's
	// children for this visitor only.
	EnterElement(v *Visit) bool
	// LeaveElement is called in post-order for every node EnterElement saw.
	LeaveElement(v *Visit)
	Issues() []*issue.Issue
}

// BeforeTraversal is implemented by visitors needing setup.
type BeforeTraversal interface {
	BeforeTraversal(ctx *docctx.Context)
}

// AfterTraversal is implemented by visitors that finish their analysis once
// the whole tree has been seen.
type AfterTraversal interface {
	AfterTraversal(ctx *docctx.Context)
}

// Visit describes the node being visited.
type Visit struct {
	Ctx  *docctx.Context
	Tree *tagtree.Tree
	Node tagtree.NodeID
	// Depth is 0 for the root.
	Depth int
	// Index counts visited nodes across the whole traversal.
	Index int
	// Page is the node's resolved page, NoPage when unknown.
	Page int
	// Siblings holds the same-level nodes already visited, in order.
	Siblings []tagtree.NodeID
	Obj      tagtree.ObjRef
}

// Role returns the standard role of the visited node.
func (v *Visit) Role() string { return v.Tree.Std(v.Node) }

func (v *Visit) Parent() tagtree.NodeID { return v.Tree.Parent(v.Node) }

// ConfigError reports an invalid visitor registration.
type ConfigError struct {
	Visitor      string
	Prerequisite string
	Missing      bool
}

func (e *ConfigError) Error() string {
	if e.Missing {
		return fmt.Sprintf("walker: visitor %q requires %q, which is not registered", e.Visitor, e.Prerequisite)
	}
	return fmt.Sprintf("walker: visitor %q requires %q to be registered before it", e.Visitor, e.Prerequisite)
}

// ValidateOrder checks that every prerequisite appears earlier in visitors.
func ValidateOrder(visitors []Visitor) error {
	pos := make(map[string]int, len(visitors))
	for i, v := range visitors {
		if _, dup := pos[v.Name()]; !dup {
			pos[v.Name()] = i
		}
	}
	for i, v := range visitors {
		for _, pre := range v.Prerequisites() {
			at, ok := pos[pre]
			if !ok {
				return &ConfigError{Visitor: v.Name(), Prerequisite: pre, Missing: true}
			}
			if at >= i {
				return &ConfigError{Visitor: v.Name(), Prerequisite: pre}
			}
		}
	}
	return nil
}

type Walker struct {
	visitors []Visitor
	index    int
	// failures holds the rule-failure issue of each visitor that panicked.
	failures []*issue.Issue
}

// New validates the visitor order. No visitor is called on error.
func New(visitors ...Visitor) (*Walker, error) {
	if err := ValidateOrder(visitors); err != nil {
		return nil, err
	}
	return &Walker{visitors: visitors}, nil
}

// Walk traverses the tree of ctx once and returns the issues of all
// visitors in registration order. Rule is filled with the visitor name when
// the visitor left it empty. A visitor that panics is dropped for the rest of
// the traversal and contributes a single rule-failure issue in place of its
// findings; the other visitors are unaffected.
func (w *Walker) Walk(ctx *docctx.Context) []*issue.Issue {
	w.index = 0
	w.failures = make([]*issue.Issue, len(w.visitors))
	for i, v := range w.visitors {
		if b, ok := v.(BeforeTraversal); ok {
			w.call(i, func() { b.BeforeTraversal(ctx) })
		}
	}
	if t := ctx.Tree(); t != nil {
		active := make([]bool, len(w.visitors))
		for i := range active {
			active[i] = true
		}
		w.visit(ctx, t, t.Root(), 0, nil, active)
	}
	var out []*issue.Issue
	for i, v := range w.visitors {
		if a, ok := v.(AfterTraversal); ok {
			w.call(i, func() { a.AfterTraversal(ctx) })
		}
		var found []*issue.Issue
		w.call(i, func() { found = v.Issues() })
		if f := w.failures[i]; f != nil {
			out = append(out, f)
			continue
		}
		for _, is := range found {
			if is.Rule == "" {
				is.Rule = v.Name()
			}
			out = append(out, is)
		}
	}
	return out
}

// call runs f on behalf of visitor i unless it already failed. A panic marks
// the visitor failed.
func (w *Walker) call(i int, f func()) {
	if w.failures[i] != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			name := w.visitors[i].Name()
			is := issue.New(issue.TypeRuleFailure, issue.Error, issue.Nowhere, "rule %s failed: %v", name, r)
			is.Rule = name
			w.failures[i] = is
		}
	}()
	f()
}

func (w *Walker) visit(ctx *docctx.Context, t *tagtree.Tree, id tagtree.NodeID, depth int, siblings []tagtree.NodeID, active []bool) {
	v := &Visit{
		Ctx:      ctx,
		Tree:     t,
		Node:     id,
		Depth:    depth,
		Index:    w.index,
		Page:     t.ResolvePage(id),
		Siblings: siblings,
	}
	if n := t.Node(id); n != nil {
		v.Obj = n.Obj
	}
	w.index++

	descend := make([]bool, len(w.visitors))
	deeper := false
	for i, vis := range w.visitors {
		if active[i] {
			w.call(i, func() { descend[i] = vis.EnterElement(v) })
			deeper = deeper || descend[i]
		}
	}
	if deeper {
		var prev []tagtree.NodeID
		for _, kid := range t.ChildNodes(id) {
			w.visit(ctx, t, kid, depth+1, prev[:len(prev):len(prev)], descend)
			prev = append(prev, kid)
		}
	}
	for i, vis := range w.visitors {
		if active[i] {
			w.call(i, func() { vis.LeaveElement(v) })
		}
	}
}
