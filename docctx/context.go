package docctx

import (
	"strings"

	"github.com/wudi/tagremedy/geometry"
	"github.com/wudi/tagremedy/observability"
	"github.com/wudi/tagremedy/tagtree"
)

// Context is the per-run facade over a Document. Page geometry is
// memoized for the lifetime of the Context; the tree itself is read live so
// fixes see each other's mutations.
type Context struct {
	Doc *Document

	extractor geometry.Extractor
	pages     map[int]*geometry.PageContent
	failures  map[int]error
	log       observability.Logger
}

type Option func(*Context)

// WithLogger sets the logger used for extraction failures.
func WithLogger(l observability.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// New wraps doc. A nil extractor yields pages without content.
func New(doc *Document, ex geometry.Extractor, opts ...Option) *Context {
	c := &Context{
		Doc:       doc,
		extractor: ex,
		pages:     make(map[int]*geometry.PageContent),
		failures:  make(map[int]error),
		log:       observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) Tree() *tagtree.Tree { return c.Doc.Tree }

func (c *Context) Logger() observability.Logger { return c.log }

func (c *Context) PageCount() int { return len(c.Doc.Pages) }

// PageContent returns the memoized geometry of page. Extraction failures are
// logged once and then served as an empty page.
func (c *Context) PageContent(page int) *geometry.PageContent {
	if pc, ok := c.pages[page]; ok {
		return pc
	}
	var pc *geometry.PageContent
	if c.extractor != nil {
		var err error
		pc, err = c.extractor.ExtractPage(page)
		if err != nil {
			c.failures[page] = err
			c.log.Warn("page extraction failed", observability.Int("page", page), observability.Error("error", err))
			pc = nil
		}
	}
	if pc == nil {
		pc = geometry.NewPageContent(page)
		if p := c.Doc.Page(page); p != nil {
			pc.MediaBox = p.MediaBox
		}
	}
	c.pages[page] = pc
	return pc
}

// ExtractionError returns the error recorded for page, if any.
func (c *Context) ExtractionError(page int) error { return c.failures[page] }

// KidBounds returns the painted bounds of a content or object reference.
func (c *Context) KidBounds(k tagtree.Kid) (geometry.Rect, bool) {
	switch k.Kind {
	case tagtree.KidContent:
		s, ok := c.PageContent(k.Page).Spans[k.MCID]
		if !ok || s.Bounds.Empty() {
			return geometry.Rect{}, false
		}
		return s.Bounds, true
	case tagtree.KidObject:
		if a, _ := c.Doc.Annotation(k.Obj); a != nil && !a.Rect.Empty() {
			return a.Rect, true
		}
	}
	return geometry.Rect{}, false
}

// Bounds returns the union of the bounds of id's content on page. Page
// NoPage means all pages. Content on other pages never contributes.
func (c *Context) Bounds(id tagtree.NodeID, page int) (geometry.Rect, bool) {
	var out geometry.Rect
	found := false
	for _, k := range c.Tree().ContentRefs(id, true) {
		if page != tagtree.NoPage && k.Page != page {
			continue
		}
		if b, ok := c.KidBounds(k); ok {
			out = out.Union(b)
			found = true
		}
	}
	return out, found
}

// Text aggregates the extracted text of id's marked content on page (all
// pages for NoPage), in document order.
func (c *Context) Text(id tagtree.NodeID, page int) string {
	var parts []string
	for _, k := range c.Tree().ContentRefs(id, true) {
		if k.Kind != tagtree.KidContent || (page != tagtree.NoPage && k.Page != page) {
			continue
		}
		if s, ok := c.PageContent(k.Page).Spans[k.MCID]; ok && s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

// KidText returns the extracted text of a single content reference.
func (c *Context) KidText(k tagtree.Kid) string {
	if k.Kind != tagtree.KidContent {
		return ""
	}
	if s, ok := c.PageContent(k.Page).Spans[k.MCID]; ok {
		return s.Text
	}
	return ""
}

// ContentKinds maps each MCID on page to what it paints.
func (c *Context) ContentKinds(page int) map[int]geometry.Kind {
	pc := c.PageContent(page)
	out := make(map[int]geometry.Kind, len(pc.Spans))
	for mcid, s := range pc.Spans {
		out[mcid] = s.Kind
	}
	return out
}

// Kinds merges the content kinds of all marked content below id. Object
// references count as KindUnknown.
func (c *Context) Kinds(id tagtree.NodeID) geometry.Kind {
	k := geometry.KindUnknown
	for _, ref := range c.Tree().ContentRefs(id, true) {
		if ref.Kind != tagtree.KidContent {
			continue
		}
		if s, ok := c.PageContent(ref.Page).Spans[ref.MCID]; ok {
			k = k.Merge(s.Kind)
		}
	}
	return k
}

// Bullets returns the bullet y positions of page.
func (c *Context) Bullets(page int) []float64 { return c.PageContent(page).Bullets }

// NodeByObject resolves an object number to the attached node loaded from it.
func (c *Context) NodeByObject(obj tagtree.ObjRef) (tagtree.NodeID, bool) {
	if c.Tree() == nil {
		return tagtree.NoNode, false
	}
	return c.Tree().FindByObject(obj)
}

// ReferencedObjects maps every object reference kid in the attached tree to
// the node holding it.
func (c *Context) ReferencedObjects() map[tagtree.ObjRef]tagtree.NodeID {
	out := make(map[tagtree.ObjRef]tagtree.NodeID)
	t := c.Tree()
	if t == nil {
		return out
	}
	for _, id := range append([]tagtree.NodeID{t.Root()}, t.Descendants(t.Root())...) {
		for _, k := range t.Kids(id) {
			if k.Kind == tagtree.KidObject {
				out[k.Obj] = id
			}
		}
	}
	return out
}
