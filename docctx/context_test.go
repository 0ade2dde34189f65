package docctx_test

import (
	"errors"
	"testing"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/geometry"
	"github.com/wudi/tagremedy/tagtree"
)

type countingExtractor struct {
	inner geometry.Extractor
	calls map[int]int
}

func (c *countingExtractor) ExtractPage(page int) (*geometry.PageContent, error) {
	c.calls[page]++
	return c.inner.ExtractPage(page)
}

func sampleDoc() (*docctx.Document, tagtree.NodeID) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	p := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 0), tagtree.ContentKid(2, 0))
	return &docctx.Document{
		Tree:  tr,
		Pages: []*docctx.PageInfo{{Number: 1}, {Number: 2}},
	}, p
}

func TestPageContentIsMemoized(t *testing.T) {
	doc, p := sampleDoc()
	ex := &countingExtractor{
		inner: geometry.Static{}.
			Put(1, 0, geometry.Span{Bounds: geometry.Rect{LLX: 0, LLY: 0, URX: 10, URY: 10}, Text: "one", Kind: geometry.KindText}).
			Put(2, 0, geometry.Span{Bounds: geometry.Rect{LLX: 50, LLY: 50, URX: 60, URY: 60}, Text: "two", Kind: geometry.KindText}),
		calls: make(map[int]int),
	}
	ctx := docctx.New(doc, ex)
	for i := 0; i < 3; i++ {
		ctx.Bounds(p, 1)
		ctx.Text(p, tagtree.NoPage)
	}
	if ex.calls[1] != 1 || ex.calls[2] != 1 {
		t.Fatalf("expected one extraction per page, got %v", ex.calls)
	}
	if got := ctx.Text(p, tagtree.NoPage); got != "one two" {
		t.Fatalf("text %q", got)
	}
}

func TestBoundsArePageScoped(t *testing.T) {
	doc, p := sampleDoc()
	ex := geometry.Static{}.
		Put(1, 0, geometry.Span{Bounds: geometry.Rect{LLX: 0, LLY: 0, URX: 10, URY: 10}}).
		Put(2, 0, geometry.Span{Bounds: geometry.Rect{LLX: 50, LLY: 50, URX: 60, URY: 60}})
	ctx := docctx.New(doc, ex)
	b, ok := ctx.Bounds(p, 2)
	if !ok || b != (geometry.Rect{LLX: 50, LLY: 50, URX: 60, URY: 60}) {
		t.Fatalf("page 2 bounds %+v", b)
	}
	all, _ := ctx.Bounds(p, tagtree.NoPage)
	if all != (geometry.Rect{LLX: 0, LLY: 0, URX: 60, URY: 60}) {
		t.Fatalf("all-page bounds %+v", all)
	}
}

type failingExtractor struct{}

func (failingExtractor) ExtractPage(int) (*geometry.PageContent, error) {
	return nil, errors.New("corrupt stream")
}

func TestExtractionFailureYieldsEmptyPage(t *testing.T) {
	doc, p := sampleDoc()
	ctx := docctx.New(doc, failingExtractor{})
	if _, ok := ctx.Bounds(p, 1); ok {
		t.Fatal("expected no bounds")
	}
	if ctx.ExtractionError(1) == nil {
		t.Fatal("expected recorded extraction error")
	}
}

func TestReferencedObjects(t *testing.T) {
	doc, p := sampleDoc()
	obj := tagtree.ObjRef{Num: 12}
	tr := doc.Tree
	link := tr.Add(tr.Parent(p), tagtree.RoleLink, tagtree.ObjectKid(1, obj))
	ctx := docctx.New(doc, nil)
	refs := ctx.ReferencedObjects()
	if refs[obj] != link {
		t.Fatalf("refs %v", refs)
	}
}

func TestAddArtifactsDeduplicates(t *testing.T) {
	doc, _ := sampleDoc()
	doc.AddArtifacts(tagtree.ContentKid(1, 3), tagtree.ContentKid(1, 3), tagtree.ObjectKid(1, tagtree.ObjRef{Num: 4}))
	doc.AddArtifacts(tagtree.ContentKid(1, 3))
	if len(doc.Artifacts) != 1 {
		t.Fatalf("artifacts %v", doc.Artifacts)
	}
}
