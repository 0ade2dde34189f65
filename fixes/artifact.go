package fixes

import (
	"fmt"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
)

// ConvertToArtifact removes a node from the structure tree and records its
// marked content as artifacts.
type ConvertToArtifact struct {
	issue.BaseFix
	Tree   *tagtree.Tree
	Node   tagtree.NodeID
	Reason string
}

func NewConvertToArtifact(t *tagtree.Tree, id tagtree.NodeID, reason string) *ConvertToArtifact {
	return &ConvertToArtifact{
		BaseFix: issue.BaseFix{Prio: issue.PriorityArtifact, Label: "Converted content to artifacts"},
		Tree:    t,
		Node:    id,
		Reason:  reason,
	}
}

func (f *ConvertToArtifact) Target() tagtree.NodeID { return f.Node }

func (f *ConvertToArtifact) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	if !t.Valid(f.Node) {
		return fmt.Errorf("artifact %d: %w", f.Node, tagtree.ErrInvalidNode)
	}
	if !t.Attached(f.Node) {
		return nil
	}
	ctx.Doc.AddArtifacts(t.ContentRefs(f.Node, true)...)
	return t.Detach(f.Node)
}

// Invalidates reports whether other acts on this node or a node inside it.
func (f *ConvertToArtifact) Invalidates(other issue.Fix) bool {
	o, ok := other.(Targeted)
	if !ok {
		return false
	}
	target := o.Target()
	return target == f.Node || (f.Tree != nil && f.Tree.IsAncestor(f.Node, target))
}

func (f *ConvertToArtifact) Describe() string {
	if f.Reason == "" {
		return fmt.Sprintf("converted element %d to an artifact", f.Node)
	}
	return fmt.Sprintf("converted %s element %d to an artifact", f.Reason, f.Node)
}
