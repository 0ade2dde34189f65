package scripting

import (
	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/observability"
)

type docView struct {
	ctx  *docctx.Context
	rule string
}

// NewDocumentView exposes ctx to scripts. Log messages go to the context
// logger tagged with rule.
func NewDocumentView(ctx *docctx.Context, rule string) DocumentView {
	return &docView{ctx: ctx, rule: rule}
}

func (d *docView) Lang() string   { return d.ctx.Doc.Lang }
func (d *docView) Title() string  { return d.ctx.Doc.Title }
func (d *docView) Marked() bool   { return d.ctx.Doc.Marked }
func (d *docView) PageCount() int { return d.ctx.PageCount() }

func (d *docView) RoleCounts() map[string]int {
	out := make(map[string]int)
	t := d.ctx.Tree()
	if t == nil {
		return out
	}
	for _, id := range t.Descendants(t.Root()) {
		out[t.Std(id)]++
	}
	return out
}

func (d *docView) Page(n int) PageProxy {
	p := d.ctx.Doc.Page(n)
	if p == nil {
		return nil
	}
	return pageProxy{p}
}

func (d *docView) Log(message string) {
	d.ctx.Logger().Info("script log", observability.String("rule", d.rule), observability.String("message", message))
}

type pageProxy struct{ p *docctx.PageInfo }

func (p pageProxy) GetNumber() int          { return p.p.Number }
func (p pageProxy) GetTabOrder() string     { return p.p.TabOrder }
func (p pageProxy) GetAnnotationCount() int { return len(p.p.Annotations) }
