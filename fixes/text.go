package fixes

import (
	"fmt"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
)

// SetActualText replaces the extracted text of a node with Text.
type SetActualText struct {
	issue.BaseFix
	Node tagtree.NodeID
	Text string
}

func NewSetActualText(id tagtree.NodeID, text string) *SetActualText {
	return &SetActualText{
		BaseFix: issue.BaseFix{Prio: issue.PriorityText, Label: "Added ActualText for ligatures"},
		Node:    id,
		Text:    text,
	}
}

func (f *SetActualText) Target() tagtree.NodeID { return f.Node }

func (f *SetActualText) Apply(ctx *docctx.Context) error {
	t, err := requireTree(ctx)
	if err != nil {
		return err
	}
	n := t.Node(f.Node)
	if n == nil {
		return fmt.Errorf("actual text %d: %w", f.Node, tagtree.ErrInvalidNode)
	}
	n.ActualText = f.Text
	return nil
}

func (f *SetActualText) Describe() string {
	return fmt.Sprintf("set ActualText %q on element %d", f.Text, f.Node)
}
