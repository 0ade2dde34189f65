package rules

import (
	"strings"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/fixes"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
	"github.com/wudi/tagremedy/walker"
)

// UnmarkedLinks reports interactive annotations that no structure element
// references. Link annotations get a fix creating a Link element next to the
// nearest tagged content of their page.
type UnmarkedLinks struct {
	base
	referenced map[tagtree.ObjRef]bool
}

func NewUnmarkedLinks() *UnmarkedLinks {
	return &UnmarkedLinks{base: base{
		name:    NameUnmarkedLinks,
		desc:    "Interactive annotations are referenced from the structure tree",
		prereqs: []string{NamePagePartition},
	}}
}

func (r *UnmarkedLinks) BeforeTraversal(*docctx.Context) {
	r.referenced = make(map[tagtree.ObjRef]bool)
}

func (r *UnmarkedLinks) EnterElement(v *walker.Visit) bool {
	for _, k := range v.Tree.ContentRefs(v.Node, false) {
		if k.Kind == tagtree.KidObject {
			r.referenced[k.Obj] = true
		}
	}
	return true
}

func (r *UnmarkedLinks) AfterTraversal(ctx *docctx.Context) {
	for _, p := range ctx.Doc.Pages {
		for _, a := range p.Annotations {
			if !a.Interactive() || r.referenced[a.Obj] {
				continue
			}
			loc := issue.Location{Page: p.Number, Node: tagtree.NoNode, Obj: a.Obj}
			is := issue.New(issue.TypeUnmarkedLink, issue.Error, loc,
				"%s annotation is not referenced from the structure tree", a.Subtype)
			if a.IsLink() {
				is.WithFix(fixes.NewCreateLinkTag(p.Number, a.Obj, linkAlt(a)))
			}
			r.report(is)
		}
	}
}

func linkAlt(a docctx.Annotation) string {
	if s := strings.TrimSpace(a.Contents); s != "" {
		return s
	}
	return a.URI
}
