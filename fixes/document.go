// Package fixes implements the remediations attached to issues. Every fix
// is idempotent: applying it to an already repaired document is a no-op.
package fixes

import (
	"fmt"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
)

// Targeted is implemented by fixes that act on a single node.
type Targeted interface {
	Target() tagtree.NodeID
}

func requireTree(ctx *docctx.Context) (*tagtree.Tree, error) {
	if ctx.Tree() == nil {
		return nil, fmt.Errorf("fixes: document has no tag tree")
	}
	return ctx.Tree(), nil
}

// SetMarked sets MarkInfo/Marked.
type SetMarked struct{ issue.BaseFix }

func NewSetMarked() *SetMarked {
	return &SetMarked{issue.BaseFix{Prio: issue.PriorityDocument, Label: "Marked document as tagged"}}
}

func (f *SetMarked) Apply(ctx *docctx.Context) error {
	ctx.Doc.Marked = true
	return nil
}

func (f *SetMarked) Describe() string { return "set MarkInfo Marked to true" }

// SetLanguage sets the document language.
type SetLanguage struct {
	issue.BaseFix
	Lang string
}

func NewSetLanguage(lang string) *SetLanguage {
	return &SetLanguage{BaseFix: issue.BaseFix{Prio: issue.PriorityDocument, Label: "Set document language"}, Lang: lang}
}

func (f *SetLanguage) Apply(ctx *docctx.Context) error {
	if f.Lang == "" {
		return fmt.Errorf("fixes: no language to set")
	}
	ctx.Doc.Lang = f.Lang
	return nil
}

func (f *SetLanguage) Describe() string { return fmt.Sprintf("set document language to %q", f.Lang) }

// SetTitle sets the document title.
type SetTitle struct {
	issue.BaseFix
	Title string
}

func NewSetTitle(title string) *SetTitle {
	return &SetTitle{BaseFix: issue.BaseFix{Prio: issue.PriorityDocument, Label: "Set document title"}, Title: title}
}

func (f *SetTitle) Apply(ctx *docctx.Context) error {
	if f.Title == "" {
		return fmt.Errorf("fixes: no title to set")
	}
	ctx.Doc.Title = f.Title
	return nil
}

func (f *SetTitle) Describe() string { return fmt.Sprintf("set document title to %q", f.Title) }

// SetDisplayDocTitle makes viewers show the title instead of the file name.
type SetDisplayDocTitle struct{ issue.BaseFix }

func NewSetDisplayDocTitle() *SetDisplayDocTitle {
	return &SetDisplayDocTitle{issue.BaseFix{Prio: issue.PriorityDocument, Label: "Display document title"}}
}

func (f *SetDisplayDocTitle) Apply(ctx *docctx.Context) error {
	ctx.Doc.DisplayDocTitle = true
	return nil
}

func (f *SetDisplayDocTitle) Describe() string { return "set DisplayDocTitle to true" }

// SetTabOrder sets structure tab order on Pages.
type SetTabOrder struct {
	issue.BaseFix
	Pages []int
}

func NewSetTabOrder(pages []int) *SetTabOrder {
	return &SetTabOrder{BaseFix: issue.BaseFix{Prio: issue.PriorityDocument, Label: "Set tab order"}, Pages: pages}
}

func (f *SetTabOrder) Apply(ctx *docctx.Context) error {
	for _, n := range f.Pages {
		p := ctx.Doc.Page(n)
		if p == nil {
			return fmt.Errorf("fixes: page %d out of range", n)
		}
		p.TabOrder = docctx.TabsStructure
	}
	return nil
}

func (f *SetTabOrder) Describe() string {
	return fmt.Sprintf("set structure tab order on %d page(s)", len(f.Pages))
}

func (f *SetTabOrder) ResolvedCount() int { return len(f.Pages) }
