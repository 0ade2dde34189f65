package pdfio

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/tagremedy/observability"
	"github.com/wudi/tagremedy/tagtree"
)

type memStore struct {
	objs map[int]types.Object
	next int
}

func newMemStore() *memStore { return &memStore{objs: make(map[int]types.Object), next: 100} }

func (m *memStore) Dereference(o types.Object) (types.Object, error) {
	switch r := o.(type) {
	case types.IndirectRef:
		return m.lookup(int(r.ObjectNumber))
	case *types.IndirectRef:
		return m.lookup(int(r.ObjectNumber))
	}
	return o, nil
}

func (m *memStore) lookup(n int) (types.Object, error) {
	v, ok := m.objs[n]
	if !ok {
		return nil, fmt.Errorf("object %d not found", n)
	}
	return v, nil
}

func (m *memStore) Add(o types.Object) (*types.IndirectRef, error) {
	m.next++
	m.objs[m.next] = o
	return types.NewIndirectRef(m.next, 0), nil
}

func (m *memStore) Put(ref types.IndirectRef, o types.Object) error {
	if _, ok := m.objs[int(ref.ObjectNumber)]; !ok {
		return fmt.Errorf("object %d not found", ref.ObjectNumber)
	}
	m.objs[int(ref.ObjectNumber)] = o
	return nil
}

func ref(n int) types.IndirectRef { return *types.NewIndirectRef(n, 0) }

func TestDecodeTree(t *testing.T) {
	st := newMemStore()
	st.objs[10] = types.Dict{"Type": types.Name("StructElem"), "S": types.Name("Document"), "K": types.Array{ref(11), ref(12)}}
	st.objs[11] = types.Dict{
		"S":   types.Name("Para"),
		"Pg":  ref(3),
		"Alt": types.StringLiteral("Opening"),
		"K": types.Array{
			types.Integer(0),
			types.Dict{"Type": types.Name("MCR"), "MCID": types.Integer(4), "Pg": ref(4)},
		},
	}
	st.objs[12] = types.Dict{
		"S": types.Name("Link"),
		"K": types.Dict{"Type": types.Name("OBJR"), "Obj": ref(20), "Pg": ref(3)},
	}
	root := types.Dict{
		"Type":    types.Name("StructTreeRoot"),
		"K":       ref(10),
		"RoleMap": types.Dict{"Para": types.Name("P")},
	}

	tr := decodeTree(st, root, tagtree.ObjRef{Num: 9}, map[int]int{3: 1, 4: 2}, observability.NopLogger{})
	docs := tr.ChildNodes(tr.Root())
	if len(docs) != 1 || tr.Role(docs[0]) != "Document" || tr.Node(docs[0]).Obj.Num != 10 {
		t.Fatalf("document %v", docs)
	}
	kids := tr.ChildNodes(docs[0])
	if len(kids) != 2 {
		t.Fatalf("kids %v", kids)
	}
	p := tr.Node(kids[0])
	if tr.Std(kids[0]) != "P" || p.Page != 1 || p.Alt != "Opening" {
		t.Fatalf("paragraph %+v", p)
	}
	want := []tagtree.Kid{tagtree.ContentKid(1, 0), tagtree.ContentKid(2, 4)}
	got := tr.Kids(kids[0])
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("content kids %+v", got)
	}
	link := tr.Kids(kids[1])
	if len(link) != 1 || link[0] != tagtree.ObjectKid(1, tagtree.ObjRef{Num: 20}) {
		t.Fatalf("link kids %+v", link)
	}
}

func TestDecodeTreeSkipsRepeatedElements(t *testing.T) {
	st := newMemStore()
	st.objs[10] = types.Dict{"S": types.Name("Document"), "K": types.Array{ref(11), ref(11)}}
	st.objs[11] = types.Dict{"S": types.Name("P"), "K": ref(10)}
	tr := decodeTree(st, types.Dict{"K": ref(10)}, tagtree.ObjRef{}, nil, observability.NopLogger{})
	if n := len(tr.Descendants(tr.Root())); n != 2 {
		t.Fatalf("expected 2 elements, got %d", n)
	}
}

func TestEncodeTreeRoundTrip(t *testing.T) {
	tr := tagtree.New()
	tr.RoleMap["Para"] = "P"
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	p := tr.Add(doc, "Para", tagtree.ContentKid(1, 0), tagtree.ContentKid(2, 4))
	tr.Node(p).Page = 1
	tr.Node(p).Alt = "Caf\u00e9 (menu)"
	fig := tr.Add(doc, tagtree.RoleFigure, tagtree.ContentKid(1, 2))
	tr.Node(fig).ActualText = "chart"
	tr.Add(doc, tagtree.RoleLink, tagtree.ObjectKid(1, tagtree.ObjRef{Num: 20}))

	st := newMemStore()
	annot := types.Dict{"Subtype": types.Name("Link")}
	pages := pageObjects{
		refs:        []types.IndirectRef{ref(3), ref(4)},
		dicts:       []types.Dict{{}, {}},
		annotations: map[tagtree.ObjRef]types.Dict{{Num: 20}: annot},
	}
	rootRef, err := encodeTree(st, tr, pages)
	if err != nil {
		t.Fatal(err)
	}

	root := st.objs[int(rootRef.ObjectNumber)].(types.Dict)
	if v := root["ParentTreeNextKey"]; v != types.Integer(3) {
		t.Fatalf("next key %v", v)
	}
	nums := root["ParentTree"].(types.Dict)["Nums"].(types.Array)
	if len(nums) != 6 {
		t.Fatalf("nums %v", nums)
	}
	page1 := nums[1].(types.Array)
	if len(page1) != 3 || page1[1] != nil || page1[0] == nil || page1[2] == nil {
		t.Fatalf("page 1 parents %v", page1)
	}
	if pages.dicts[0]["StructParents"] != types.Integer(0) || pages.dicts[1]["StructParents"] != types.Integer(1) {
		t.Fatalf("page keys %v %v", pages.dicts[0], pages.dicts[1])
	}
	if annot["StructParent"] != types.Integer(2) {
		t.Fatalf("annotation key %v", annot["StructParent"])
	}

	back := decodeTree(st, root, tagtree.ObjRef{Num: int(rootRef.ObjectNumber)}, map[int]int{3: 1, 4: 2}, observability.NopLogger{})
	if back.Fingerprint() != tr.Fingerprint() {
		t.Fatal("decoded tree differs from the encoded one")
	}

	// A second encode reuses every object number.
	before := len(st.objs)
	if _, err := encodeTree(st, tr, pages); err != nil {
		t.Fatal(err)
	}
	if len(st.objs) != before {
		t.Fatalf("objects grew from %d to %d", before, len(st.objs))
	}
}

func TestEncodeText(t *testing.T) {
	if got := encodeText("a (b) \\c"); got != types.StringLiteral(`a \(b\) \\c`) {
		t.Fatalf("literal %v", got)
	}
	hl, ok := encodeText("\u00e9").(types.HexLiteral)
	if !ok || !strings.EqualFold(string(hl), "feff00e9") {
		t.Fatalf("hex %v", hl)
	}
}

func TestParseToUnicode(t *testing.T) {
	cmap := `/CIDInit /ProcSet findresource begin
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0003> <0020>
<0010> <FB01>
endbfchar
2 beginbfrange
<0024> <0026> <0041>
<0030> <0031> [<0078> <0079>]
endbfrange
endcmap`
	m := parseToUnicode([]byte(cmap))
	got := m.Decode([]byte{0x00, 0x24, 0x00, 0x26, 0x00, 0x03, 0x00, 0x10, 0x00, 0x31})
	if got != "AC \ufb01y" {
		t.Fatalf("decoded %q", got)
	}
}
