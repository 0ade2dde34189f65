package pdfio

import (
	"fmt"
	"slices"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/tagremedy/observability"
	"github.com/wudi/tagremedy/tagtree"
)

// maxDepth bounds structure element nesting while decoding.
const maxDepth = 256

type treeDecoder struct {
	st    store
	pages map[int]int // page object number -> page number
	tree  *tagtree.Tree
	seen  map[tagtree.ObjRef]bool
	log   observability.Logger
}

// decodeTree builds a tag tree from a StructTreeRoot dictionary. Cycles and
// malformed kids are skipped with a warning.
func decodeTree(st store, root types.Dict, rootRef tagtree.ObjRef, pages map[int]int, log observability.Logger) *tagtree.Tree {
	d := &treeDecoder{st: st, pages: pages, tree: tagtree.New(), seen: make(map[tagtree.ObjRef]bool), log: log}
	t := d.tree
	t.Node(t.Root()).Obj = rootRef
	if rm := derefDict(st, root["RoleMap"]); rm != nil {
		for k, v := range rm {
			if std := nameOf(v); std != "" {
				t.RoleMap[k] = std
			}
		}
	}
	d.kids(t.Root(), root["K"], tagtree.NoPage, 0)
	return t
}

func (d *treeDecoder) page(o types.Object) int {
	r, ok := refOf(o)
	if !ok {
		return tagtree.NoPage
	}
	return d.pages[r.Num]
}

func (d *treeDecoder) kids(parent tagtree.NodeID, k types.Object, page, depth int) {
	if k == nil {
		return
	}
	if arr := derefArray(d.st, k); arr != nil {
		for _, e := range arr {
			d.kid(parent, e, page, depth)
		}
		return
	}
	d.kid(parent, k, page, depth)
}

func (d *treeDecoder) kid(parent tagtree.NodeID, o types.Object, page, depth int) {
	if mcid, ok := number(nil, o); ok {
		d.append(parent, tagtree.ContentKid(page, mcid))
		return
	}
	ref, isRef := refOf(o)
	dict := derefDict(d.st, o)
	if dict == nil {
		d.log.Warn("skipping malformed structure kid", observability.String("type", fmt.Sprintf("%T", o)))
		return
	}
	switch nameOf(dict["Type"]) {
	case "MCR":
		mcid, ok := number(d.st, dict["MCID"])
		if !ok {
			return
		}
		p := page
		if pg := d.page(dict["Pg"]); pg != tagtree.NoPage {
			p = pg
		}
		d.append(parent, tagtree.ContentKid(p, mcid))
		return
	case "OBJR":
		obj, ok := refOf(dict["Obj"])
		if !ok {
			return
		}
		p := page
		if pg := d.page(dict["Pg"]); pg != tagtree.NoPage {
			p = pg
		}
		d.append(parent, tagtree.ObjectKid(p, obj))
		return
	}

	role := nameOf(dict["S"])
	if role == "" {
		d.log.Warn("skipping structure element without role")
		return
	}
	if isRef {
		if d.seen[ref] {
			d.log.Warn("structure element referenced twice", observability.String("obj", ref.String()))
			return
		}
		d.seen[ref] = true
	}
	if depth >= maxDepth {
		d.log.Warn("structure tree too deep", observability.Int("depth", depth))
		return
	}

	t := d.tree
	id := t.NewNode(role)
	n := t.Node(id)
	if isRef {
		n.Obj = ref
	}
	n.Page = d.page(dict["Pg"])
	n.Alt = text(d.st, dict["Alt"])
	n.ActualText = text(d.st, dict["ActualText"])
	n.Title = text(d.st, dict["T"])
	n.Lang = text(d.st, dict["Lang"])
	if err := t.AppendKid(parent, tagtree.NodeKid(id)); err != nil {
		d.log.Warn("cannot attach structure element", observability.Error("error", err))
		return
	}
	inherited := page
	if n.Page != tagtree.NoPage {
		inherited = n.Page
	}
	d.kids(id, dict["K"], inherited, depth+1)
}

func (d *treeDecoder) append(parent tagtree.NodeID, k tagtree.Kid) {
	if parent == d.tree.Root() {
		d.log.Warn("ignoring content attached to the structure root")
		return
	}
	if err := d.tree.AppendKid(parent, k); err != nil {
		d.log.Warn("cannot attach content", observability.Error("error", err))
	}
}

// pageObjects are the page and annotation dictionaries an encode run
// updates with StructParents/StructParent keys.
type pageObjects struct {
	refs        []types.IndirectRef // index = page-1
	dicts       []types.Dict
	annotations map[tagtree.ObjRef]types.Dict
}

type treeEncoder struct {
	st    store
	pages pageObjects
	tree  *tagtree.Tree
	refs  map[tagtree.NodeID]types.IndirectRef
	// parents[page][mcid] is the element owning the content.
	parents map[int]map[int]types.IndirectRef
	objrs   []types.IndirectRef // ParentTree values for OBJR keys
}

// encodeTree writes every attached element of t and the StructTreeRoot into
// st, reusing object numbers of elements loaded from the file, and returns
// the root reference. Page StructParents and annotation StructParent entries
// are updated in place; node Obj fields are set to the written references.
func encodeTree(st store, t *tagtree.Tree, pages pageObjects) (types.IndirectRef, error) {
	e := &treeEncoder{
		st:      st,
		pages:   pages,
		tree:    t,
		refs:    make(map[tagtree.NodeID]types.IndirectRef),
		parents: make(map[int]map[int]types.IndirectRef),
	}
	used := make(map[tagtree.ObjRef]bool)
	order := append([]tagtree.NodeID{t.Root()}, t.Descendants(t.Root())...)
	for _, id := range order {
		n := t.Node(id)
		if !n.Obj.IsZero() && !used[n.Obj] {
			used[n.Obj] = true
			e.refs[id] = indRef(n.Obj)
			continue
		}
		ref, err := st.Add(types.Dict{})
		if err != nil {
			return types.IndirectRef{}, fmt.Errorf("pdfio: allocate structure element: %w", err)
		}
		e.refs[id] = *ref
	}

	for _, id := range order[1:] {
		if err := st.Put(e.refs[id], e.element(id)); err != nil {
			return types.IndirectRef{}, err
		}
	}

	root := types.Dict{"Type": types.Name("StructTreeRoot")}
	var k types.Array
	for _, id := range t.ChildNodes(t.Root()) {
		k = append(k, e.refs[id])
	}
	root["K"] = k
	if len(t.RoleMap) > 0 {
		rm := types.Dict{}
		for from, to := range t.RoleMap {
			rm[from] = types.Name(to)
		}
		root["RoleMap"] = rm
	}
	nums, next := e.parentTree()
	root["ParentTree"] = types.Dict{"Nums": nums}
	root["ParentTreeNextKey"] = types.Integer(next)
	if err := st.Put(e.refs[t.Root()], root); err != nil {
		return types.IndirectRef{}, err
	}

	for _, id := range order {
		r := e.refs[id]
		t.Node(id).Obj = tagtree.ObjRef{Num: int(r.ObjectNumber), Gen: int(r.GenerationNumber)}
	}
	return e.refs[t.Root()], nil
}

func (e *treeEncoder) pageRef(page int) (types.IndirectRef, bool) {
	if page < 1 || page > len(e.pages.refs) {
		return types.IndirectRef{}, false
	}
	return e.pages.refs[page-1], true
}

func (e *treeEncoder) element(id tagtree.NodeID) types.Dict {
	t := e.tree
	n := t.Node(id)
	self := e.refs[id]
	d := types.Dict{
		"Type": types.Name("StructElem"),
		"S":    types.Name(n.Role),
		"P":    e.refs[t.Parent(id)],
	}
	if ref, ok := e.pageRef(n.Page); ok {
		d["Pg"] = ref
	}
	for key, val := range map[string]string{"Alt": n.Alt, "ActualText": n.ActualText, "T": n.Title, "Lang": n.Lang} {
		if val != "" {
			d[key] = encodeText(val)
		}
	}

	var k types.Array
	for _, kid := range t.Kids(id) {
		switch kid.Kind {
		case tagtree.KidNode:
			k = append(k, e.refs[kid.Node])
		case tagtree.KidContent:
			e.own(kid.Page, kid.MCID, self)
			if kid.Page == n.Page && n.Page != tagtree.NoPage {
				k = append(k, types.Integer(kid.MCID))
				continue
			}
			mcr := types.Dict{"Type": types.Name("MCR"), "MCID": types.Integer(kid.MCID)}
			if ref, ok := e.pageRef(kid.Page); ok {
				mcr["Pg"] = ref
			}
			k = append(k, mcr)
		case tagtree.KidObject:
			objr := types.Dict{"Type": types.Name("OBJR"), "Obj": indRef(kid.Obj)}
			if ref, ok := e.pageRef(kid.Page); ok {
				objr["Pg"] = ref
			}
			k = append(k, objr)
			if annot, ok := e.pages.annotations[kid.Obj]; ok {
				annot["StructParent"] = types.Integer(len(e.pages.refs) + len(e.objrs))
				e.objrs = append(e.objrs, self)
			}
		}
	}
	if len(k) > 0 {
		d["K"] = k
	}
	return d
}

func (e *treeEncoder) own(page, mcid int, elem types.IndirectRef) {
	if mcid < 0 {
		return
	}
	m, ok := e.parents[page]
	if !ok {
		m = make(map[int]types.IndirectRef)
		e.parents[page] = m
	}
	m[mcid] = elem
}

// parentTree lays out the number tree: key page-1 holds the MCID array of
// each page, keys after the last page hold OBJR owners.
func (e *treeEncoder) parentTree() (types.Array, int) {
	var nums types.Array
	for i := range e.pages.refs {
		page := i + 1
		owners := e.parents[page]
		if len(owners) == 0 {
			delete(e.pages.dicts[i], "StructParents")
			continue
		}
		mcids := make([]int, 0, len(owners))
		for mcid := range owners {
			mcids = append(mcids, mcid)
		}
		slices.Sort(mcids)
		arr := make(types.Array, mcids[len(mcids)-1]+1)
		for _, mcid := range mcids {
			arr[mcid] = owners[mcid]
		}
		e.pages.dicts[i]["StructParents"] = types.Integer(i)
		nums = append(nums, types.Integer(i), arr)
	}
	for j, owner := range e.objrs {
		nums = append(nums, types.Integer(len(e.pages.refs)+j), owner)
	}
	return nums, len(e.pages.refs) + len(e.objrs)
}
