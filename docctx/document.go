// Package docctx holds the document being remediated and the per-run
// context shared by every rule and fix.
package docctx

import (
	"github.com/wudi/tagremedy/geometry"
	"github.com/wudi/tagremedy/tagtree"
)

// Tab order values for the page /Tabs entry.
const (
	TabsStructure = "S"
	TabsRow       = "R"
	TabsColumn    = "C"
)

// Annotation is an annotation dictionary on a page.
type Annotation struct {
	Obj      tagtree.ObjRef
	Subtype  string
	Rect     geometry.Rect
	Contents string
	URI      string
}

// Interactive reports whether assistive technology must reach the
// annotation through the tag tree.
func (a Annotation) Interactive() bool {
	switch a.Subtype {
	case "Popup", "PrinterMark", "TrapNet", "Watermark", "Artifact":
		return false
	}
	return true
}

// IsLink reports whether the annotation is a link.
func (a Annotation) IsLink() bool { return a.Subtype == "Link" }

// PageInfo is the page-level state rules inspect.
type PageInfo struct {
	Number      int // 1-based
	Obj         tagtree.ObjRef
	MediaBox    geometry.Rect
	TabOrder    string
	Annotations []Annotation
}

// Document is a loaded tagged document. Tree is nil when the file has no
// structure tree.
type Document struct {
	FileName        string
	Tree            *tagtree.Tree
	Pages           []*PageInfo
	Lang            string
	Title           string
	Marked          bool
	DisplayDocTitle bool
	// Artifacts lists content converted to artifacts during remediation, so
	// persistence can re-mark the page content.
	Artifacts []tagtree.Kid
}

// Page returns the 1-based page n, or nil.
func (d *Document) Page(n int) *PageInfo {
	if n < 1 || n > len(d.Pages) {
		return nil
	}
	return d.Pages[n-1]
}

// Annotation finds an annotation by object reference.
func (d *Document) Annotation(obj tagtree.ObjRef) (*Annotation, int) {
	for _, p := range d.Pages {
		for i := range p.Annotations {
			if p.Annotations[i].Obj == obj {
				return &p.Annotations[i], p.Number
			}
		}
	}
	return nil, 0
}

// AddArtifacts records content references as artifacts, ignoring duplicates.
func (d *Document) AddArtifacts(kids ...tagtree.Kid) {
	seen := make(map[tagtree.Kid]bool, len(d.Artifacts))
	for _, k := range d.Artifacts {
		seen[k] = true
	}
	for _, k := range kids {
		if k.Kind != tagtree.KidContent || seen[k] {
			continue
		}
		seen[k] = true
		d.Artifacts = append(d.Artifacts, k)
	}
}
