package pdfio

import (
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/tagremedy/contentstream"
	"github.com/wudi/tagremedy/contentstream/editor"
	"github.com/wudi/tagremedy/geometry"
	"github.com/wudi/tagremedy/observability"
	"github.com/wudi/tagremedy/tagtree"
)

// pageResources resolves fonts and XObjects of one page for the tracer.
type pageResources struct {
	st       store
	xobjects types.Dict
	fonts    types.Dict
	cmaps    map[string]*toUnicode
}

func newPageResources(st store, res types.Dict) *pageResources {
	return &pageResources{
		st:       st,
		xobjects: derefDict(st, res["XObject"]),
		fonts:    derefDict(st, res["Font"]),
		cmaps:    make(map[string]*toUnicode),
	}
}

func (r *pageResources) XObjectKind(n string) geometry.Kind {
	v, err := r.st.Dereference(r.xobjects[n])
	if err != nil {
		return geometry.KindUnknown
	}
	sd, ok := v.(types.StreamDict)
	if !ok {
		return geometry.KindUnknown
	}
	switch nameOf(sd.Dict["Subtype"]) {
	case "Image":
		return geometry.KindImage
	case "Form":
		return geometry.KindMixed
	}
	return geometry.KindUnknown
}

func (r *pageResources) DecodeText(font string, raw []byte) string {
	m, ok := r.cmaps[font]
	if !ok {
		if fd := derefDict(r.st, r.fonts[font]); fd != nil && fd["ToUnicode"] != nil {
			if data, err := derefStream(r.st, fd["ToUnicode"]); err == nil {
				m = parseToUnicode(data)
			}
		}
		r.cmaps[font] = m
	}
	if m == nil {
		return contentstream.Latin1(raw)
	}
	return m.Decode(raw)
}

// ExtractPage traces the content stream of page. It implements
// geometry.Extractor.
func (f *File) ExtractPage(page int) (*geometry.PageContent, error) {
	ops, err := f.pageOperations(page)
	if err != nil {
		return nil, err
	}
	res := newPageResources(f.store, f.resources[page-1])
	pc, err := contentstream.NewTracer(res).Trace(page, ops)
	if err != nil {
		// Partial results are still usable; the tracer reports unbalanced
		// graphics state after finishing the stream.
		f.log.Debug("content stream trace incomplete", observability.Int("page", page), observability.Error("error", err))
	}
	pc.MediaBox = f.doc.Pages[page-1].MediaBox
	return pc, nil
}

func (f *File) pageOperations(page int) ([]contentstream.Operation, error) {
	if page < 1 || page > len(f.doc.Pages) {
		return nil, fmt.Errorf("pdfio: page %d out of range", page)
	}
	r, err := pdfcpu.ExtractPageContent(f.ctx, page)
	if err != nil {
		return nil, fmt.Errorf("pdfio: page %d content: %w", page, err)
	}
	if r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pdfio: page %d content: %w", page, err)
	}
	ops, err := contentstream.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("pdfio: page %d content: %w", page, err)
	}
	return ops, nil
}

// markArtifacts rewrites the content of every page holding converted
// artifacts and replaces its Contents entry with a single new stream.
func (f *File) markArtifacts() error {
	byPage := make(map[int]map[int]bool)
	for _, k := range f.doc.Artifacts {
		if k.Kind != tagtree.KidContent {
			continue
		}
		if byPage[k.Page] == nil {
			byPage[k.Page] = make(map[int]bool)
		}
		byPage[k.Page][k.MCID] = true
	}
	for page, mcids := range byPage {
		ops, err := f.pageOperations(page)
		if err != nil {
			return err
		}
		ops, n := editor.MarkArtifacts(ops, mcids)
		if n == 0 {
			continue
		}
		sd := types.NewStreamDict(types.Dict{}, 0, nil, nil, nil)
		sd.Content = contentstream.Serialize(ops)
		if err := sd.Encode(); err != nil {
			return fmt.Errorf("pdfio: page %d content: %w", page, err)
		}
		ref, err := f.store.Add(sd)
		if err != nil {
			return fmt.Errorf("pdfio: page %d content: %w", page, err)
		}
		f.pages.dicts[page-1]["Contents"] = *ref
		f.log.Debug("marked artifacts", observability.Int("page", page), observability.Int("sequences", n))
	}
	return nil
}
