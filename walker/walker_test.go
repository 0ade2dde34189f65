package walker_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
	"github.com/wudi/tagremedy/walker"
)

type recorder struct {
	name    string
	prereqs []string
	skip    string // role whose children are skipped
	events  []string
	hooks   []string
	found   []*issue.Issue
}

func (r *recorder) Name() string            { return r.name }
func (r *recorder) Description() string     { return "records events" }
func (r *recorder) Prerequisites() []string { return r.prereqs }
func (r *recorder) Issues() []*issue.Issue  { return r.found }

func (r *recorder) EnterElement(v *walker.Visit) bool {
	r.events = append(r.events, fmt.Sprintf("+%s@%d/%d", v.Role(), v.Depth, len(v.Siblings)))
	if v.Role() == tagtree.RoleFigure {
		r.found = append(r.found, issue.New(issue.TypeMissingAlt, issue.Error, issue.AtNode(v.Tree, v.Node), "figure"))
	}
	return v.Role() != r.skip
}

func (r *recorder) LeaveElement(v *walker.Visit) {
	r.events = append(r.events, "-"+v.Role())
}

func (r *recorder) BeforeTraversal(*docctx.Context) { r.hooks = append(r.hooks, "before") }
func (r *recorder) AfterTraversal(*docctx.Context)  { r.hooks = append(r.hooks, "after") }

func sampleCtx() *docctx.Context {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	sect := tr.Add(doc, tagtree.RoleSect)
	tr.Add(sect, tagtree.RoleFigure, tagtree.ContentKid(1, 0))
	tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(2, 1))
	return docctx.New(&docctx.Document{Tree: tr}, nil)
}

func TestWalkOrderAndSuppression(t *testing.T) {
	full := &recorder{name: "full"}
	pruned := &recorder{name: "pruned", skip: tagtree.RoleSect}
	w, err := walker.New(full, pruned)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	issues := w.Walk(sampleCtx())

	wantFull := []string{
		"+StructTreeRoot@0/0", "+Document@1/0", "+Sect@2/0", "+Figure@3/0", "-Figure", "-Sect",
		"+P@2/1", "-P", "-Document", "-StructTreeRoot",
	}
	if !reflect.DeepEqual(full.events, wantFull) {
		t.Fatalf("full events:\n%v\nwant\n%v", full.events, wantFull)
	}
	wantPruned := []string{
		"+StructTreeRoot@0/0", "+Document@1/0", "+Sect@2/0", "-Sect",
		"+P@2/1", "-P", "-Document", "-StructTreeRoot",
	}
	if !reflect.DeepEqual(pruned.events, wantPruned) {
		t.Fatalf("pruned events:\n%v\nwant\n%v", pruned.events, wantPruned)
	}
	if len(issues) != 1 || issues[0].Rule != "full" || issues[0].Location.Page != 1 {
		t.Fatalf("unexpected issues %v", issues)
	}
	if !reflect.DeepEqual(full.hooks, []string{"before", "after"}) {
		t.Fatalf("hooks %v", full.hooks)
	}
}

func TestVisitIndexIsMonotonic(t *testing.T) {
	var seen []int
	v := &indexVisitor{seen: &seen}
	w, _ := walker.New(v)
	w.Walk(sampleCtx())
	for i, idx := range seen {
		if idx != i {
			t.Fatalf("index %d at position %d", idx, i)
		}
	}
	if len(seen) != 5 {
		t.Fatalf("visited %d nodes", len(seen))
	}
}

type indexVisitor struct {
	recorder
	seen *[]int
}

func (v *indexVisitor) EnterElement(vis *walker.Visit) bool {
	*v.seen = append(*v.seen, vis.Index)
	return true
}

func TestPrerequisiteOrder(t *testing.T) {
	a := &recorder{name: "a"}
	b := &recorder{name: "b", prereqs: []string{"a"}}

	if _, err := walker.New(a, b); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}

	_, err := walker.New(b, a)
	var cfg *walker.ConfigError
	if !errors.As(err, &cfg) || cfg.Visitor != "b" || cfg.Missing {
		t.Fatalf("expected ordering error, got %v", err)
	}
	if len(a.events)+len(b.events) != 0 {
		t.Fatal("no visitor may run on configuration error")
	}

	_, err = walker.New(b)
	if !errors.As(err, &cfg) || !cfg.Missing {
		t.Fatalf("expected missing prerequisite error, got %v", err)
	}
}

func TestWalkWithoutTree(t *testing.T) {
	r := &recorder{name: "r"}
	w, _ := walker.New(r)
	w.Walk(docctx.New(&docctx.Document{}, nil))
	if len(r.events) != 0 || len(r.hooks) != 2 {
		t.Fatalf("events %v hooks %v", r.events, r.hooks)
	}
}

type panicker struct {
	recorder
	at string
}

func (p *panicker) EnterElement(v *walker.Visit) bool {
	if v.Role() == p.at {
		panic("broken rule")
	}
	return p.recorder.EnterElement(v)
}

func TestPanickingVisitorIsIsolated(t *testing.T) {
	bad := &panicker{recorder: recorder{name: "bad"}, at: tagtree.RoleSect}
	good := &recorder{name: "good"}
	w, err := walker.New(bad, good)
	if err != nil {
		t.Fatal(err)
	}
	found := w.Walk(sampleCtx())
	if len(found) != 2 {
		t.Fatalf("issues %v", found)
	}
	if found[0].Type != issue.TypeRuleFailure || found[0].Rule != "bad" {
		t.Fatalf("first issue %v", found[0])
	}
	if found[1].Type != issue.TypeMissingAlt || found[1].Rule != "good" {
		t.Fatalf("second issue %v", found[1])
	}
	for _, e := range bad.events {
		if e[0] == '-' {
			t.Fatalf("failed visitor still called: %v", bad.events)
		}
	}
	if !reflect.DeepEqual(bad.hooks, []string{"before"}) {
		t.Fatalf("failed visitor hooks %v", bad.hooks)
	}
	if !reflect.DeepEqual(good.hooks, []string{"before", "after"}) {
		t.Fatalf("hooks %v", good.hooks)
	}
}
