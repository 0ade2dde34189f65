// Package pdfio loads tagged PDF files into a docctx.Document and writes the
// remediated structure tree back, using pdfcpu for the file format.
package pdfio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/observability"
	"github.com/wudi/tagremedy/tagtree"
)

var ErrNoCatalog = errors.New("pdfio: document has no catalog")

// File is an opened document. It is not safe for concurrent use.
type File struct {
	ctx       *model.Context
	store     store
	doc       *docctx.Document
	pages     pageObjects
	resources []types.Dict
	log       observability.Logger
}

type Option func(*File)

func WithLogger(l observability.Logger) Option {
	return func(f *File) {
		if l != nil {
			f.log = l
		}
	}
}

// Open reads the file at path.
func Open(path string, opts ...Option) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Read(fh, filepath.Base(path), opts...)
}

// Read parses a document from rs. name is used as the document file name.
func Read(rs io.ReadSeeker, name string, opts ...Option) (*File, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfio: read %s: %w", name, err)
	}
	f := &File{
		ctx:   ctx,
		store: xrefStore{t: ctx.XRefTable},
		log:   observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.load(name); err != nil {
		return nil, err
	}
	return f, nil
}

// Document returns the loaded document. Fixes mutate it in place; Save
// writes the mutations back.
func (f *File) Document() *docctx.Document { return f.doc }

func (f *File) load(name string) error {
	catalog, err := f.ctx.Catalog()
	if err != nil || catalog == nil {
		return ErrNoCatalog
	}
	doc := &docctx.Document{FileName: name}
	f.doc = doc

	f.pages.annotations = make(map[tagtree.ObjRef]types.Dict)
	pageNums := make(map[int]int, f.ctx.PageCount)
	for i := 1; i <= f.ctx.PageCount; i++ {
		d, ref, inh, err := f.ctx.PageDict(i, false)
		if err != nil {
			return fmt.Errorf("pdfio: page %d: %w", i, err)
		}
		if d == nil || ref == nil {
			return fmt.Errorf("pdfio: page %d: missing page dictionary", i)
		}
		f.pages.refs = append(f.pages.refs, *ref)
		f.pages.dicts = append(f.pages.dicts, d)
		var res types.Dict
		if inh != nil {
			res = inh.Resources
		}
		if res == nil {
			res = derefDict(f.store, d["Resources"])
		}
		f.resources = append(f.resources, res)
		obj, _ := refOf(*ref)
		pageNums[obj.Num] = i
		doc.Pages = append(doc.Pages, f.pageInfo(i, obj, d, inh))
	}

	if mi := derefDict(f.store, catalog["MarkInfo"]); mi != nil {
		doc.Marked = boolean(f.store, mi["Marked"])
	}
	doc.Lang = text(f.store, catalog["Lang"])
	if vp := derefDict(f.store, catalog["ViewerPreferences"]); vp != nil {
		doc.DisplayDocTitle = boolean(f.store, vp["DisplayDocTitle"])
	}
	if f.ctx.Info != nil {
		if info := derefDict(f.store, *f.ctx.Info); info != nil {
			doc.Title = text(f.store, info["Title"])
		}
	}

	if st := catalog["StructTreeRoot"]; st != nil {
		if root := derefDict(f.store, st); root != nil {
			rootRef, _ := refOf(st)
			doc.Tree = decodeTree(f.store, root, rootRef, pageNums, f.log)
		}
	}
	f.log.Debug("document loaded",
		observability.String("file", name),
		observability.Int("pages", len(doc.Pages)),
		observability.Bool("tagged", doc.Tree != nil))
	return nil
}

func (f *File) pageInfo(n int, obj tagtree.ObjRef, d types.Dict, inh *model.InheritedPageAttrs) *docctx.PageInfo {
	p := &docctx.PageInfo{Number: n, Obj: obj, TabOrder: nameOf(d["Tabs"])}
	if inh != nil && inh.MediaBox != nil {
		mb := inh.MediaBox
		p.MediaBox.LLX, p.MediaBox.LLY = mb.LL.X, mb.LL.Y
		p.MediaBox.URX, p.MediaBox.URY = mb.UR.X, mb.UR.Y
	} else if r, ok := rect(f.store, d["MediaBox"]); ok {
		p.MediaBox = r
	}
	for _, a := range derefArray(f.store, d["Annots"]) {
		ad := derefDict(f.store, a)
		if ad == nil {
			continue
		}
		annot := docctx.Annotation{
			Subtype:  nameOf(ad["Subtype"]),
			Contents: text(f.store, ad["Contents"]),
		}
		annot.Obj, _ = refOf(a)
		annot.Rect, _ = rect(f.store, ad["Rect"])
		if action := derefDict(f.store, ad["A"]); action != nil {
			annot.URI = text(f.store, action["URI"])
		}
		if !annot.Obj.IsZero() {
			f.pages.annotations[annot.Obj] = ad
		}
		p.Annotations = append(p.Annotations, annot)
	}
	return p
}

// apply copies document state back into the object table.
func (f *File) apply() error {
	doc := f.doc
	catalog, err := f.ctx.Catalog()
	if err != nil || catalog == nil {
		return ErrNoCatalog
	}

	mi := derefDict(f.store, catalog["MarkInfo"])
	if mi == nil {
		mi = types.Dict{}
		catalog["MarkInfo"] = mi
	}
	mi["Marked"] = types.Boolean(doc.Marked)

	if doc.Lang != "" {
		catalog["Lang"] = encodeText(doc.Lang)
	}
	vp := derefDict(f.store, catalog["ViewerPreferences"])
	if vp == nil {
		vp = types.Dict{}
		catalog["ViewerPreferences"] = vp
	}
	vp["DisplayDocTitle"] = types.Boolean(doc.DisplayDocTitle)

	if doc.Title != "" {
		if err := f.setTitle(doc.Title); err != nil {
			return err
		}
	}

	for i, p := range doc.Pages {
		if p.TabOrder != "" {
			f.pages.dicts[i]["Tabs"] = types.Name(p.TabOrder)
		}
	}

	if err := f.markArtifacts(); err != nil {
		return err
	}

	if doc.Tree == nil {
		return nil
	}
	rootRef, err := encodeTree(f.store, doc.Tree, f.pages)
	if err != nil {
		return err
	}
	catalog["StructTreeRoot"] = rootRef
	return nil
}

func (f *File) setTitle(title string) error {
	if f.ctx.Info != nil {
		if info := derefDict(f.store, *f.ctx.Info); info != nil {
			info["Title"] = encodeText(title)
			return nil
		}
	}
	ref, err := f.store.Add(types.Dict{"Title": encodeText(title)})
	if err != nil {
		return fmt.Errorf("pdfio: create info dictionary: %w", err)
	}
	f.ctx.Info = ref
	return nil
}

// Write serializes the remediated document to w.
func (f *File) Write(w io.Writer) error {
	if err := f.apply(); err != nil {
		return err
	}
	if err := api.WriteContext(f.ctx, w); err != nil {
		return fmt.Errorf("pdfio: write: %w", err)
	}
	return nil
}

// Save writes the remediated document to path through a temporary file in
// the same directory.
func (f *File) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tagremedy-*.pdf")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
