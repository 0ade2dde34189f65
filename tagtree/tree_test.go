package tagtree

import (
	"errors"
	"testing"
)

func TestResolvePageInheritance(t *testing.T) {
	tr := New()
	doc := tr.Add(tr.Root(), RoleDocument)
	sect := tr.Add(doc, RoleSect)
	p := tr.Add(sect, RoleP, ContentKid(3, 0))
	empty := tr.Add(sect, RoleSpan)

	if got := tr.ResolvePage(p); got != 3 {
		t.Fatalf("content page: got %d, want 3", got)
	}
	if got := tr.ResolvePage(sect); got != 3 {
		t.Fatalf("descendant page: got %d, want 3", got)
	}
	if got := tr.ResolvePage(empty); got != NoPage {
		t.Fatalf("no page known: got %d", got)
	}
	tr.Node(sect).Page = 2
	if got := tr.ResolvePage(empty); got != 2 {
		t.Fatalf("ancestor page: got %d, want 2", got)
	}
	if got := tr.ResolvePage(p); got != 3 {
		t.Fatalf("content should win over ancestor: got %d", got)
	}
}

func TestSplicePreservesOrder(t *testing.T) {
	tr := New()
	doc := tr.Add(tr.Root(), RoleDocument)
	a := tr.Add(doc, RoleP)
	div := tr.Add(doc, RoleDiv)
	b := tr.Add(div, RoleP)
	c := tr.Add(div, RoleP)
	d := tr.Add(doc, RoleP)

	if err := tr.Splice(doc, tr.IndexOf(doc, div)); err != nil {
		t.Fatalf("splice: %v", err)
	}
	got := tr.ChildNodes(doc)
	want := []NodeID{a, b, c, d}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if tr.Parent(b) != doc || tr.Parent(c) != doc {
		t.Fatal("spliced kids must point at the new parent")
	}
	if tr.Attached(div) {
		t.Fatal("wrapper should be detached")
	}
}

func TestInsertRejectsCycles(t *testing.T) {
	tr := New()
	doc := tr.Add(tr.Root(), RoleDocument)
	sect := tr.Add(doc, RoleSect)

	if err := tr.Detach(doc); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if err := tr.AppendKid(sect, NodeKid(doc)); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if err := tr.AppendKid(tr.Root(), NodeKid(sect)); !errors.Is(err, ErrAttached) {
		t.Fatalf("expected ErrAttached, got %v", err)
	}
}

func TestWrapKeepsPosition(t *testing.T) {
	tr := New()
	doc := tr.Add(tr.Root(), RoleDocument)
	a := tr.Add(doc, RoleP)
	b := tr.Add(doc, RoleP)
	c := tr.Add(doc, RoleP)

	w, err := tr.Wrap(RoleL, b, c)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	kids := tr.ChildNodes(doc)
	if len(kids) != 2 || kids[0] != a || kids[1] != w {
		t.Fatalf("unexpected kids %v", kids)
	}
	if got := tr.ChildNodes(w); len(got) != 2 || got[0] != b || got[1] != c {
		t.Fatalf("unexpected wrapped kids %v", got)
	}
}

func TestEscalateStopsAtContainer(t *testing.T) {
	tr := New()
	doc := tr.Add(tr.Root(), RoleDocument)
	l := tr.Add(doc, RoleL)
	li := tr.Add(l, RoleLI)

	tr.Escalate(li, MarkerWarning)
	for _, id := range []NodeID{li, l, doc} {
		if tr.Marker(id) != MarkerWarning {
			t.Fatalf("node %d not marked", id)
		}
	}
	if tr.Marker(tr.Root()) != MarkerNone {
		t.Fatal("escalation must stop at the Document container")
	}
}

func TestStandardRoleFollowsRoleMap(t *testing.T) {
	tr := New()
	tr.RoleMap["Heading1"] = "Title"
	tr.RoleMap["Title"] = RoleH1
	tr.RoleMap["Loop"] = "Loop"
	if got := tr.StandardRole("Heading1"); got != RoleH1 {
		t.Fatalf("got %q", got)
	}
	if got := tr.StandardRole("Loop"); got != "Loop" {
		t.Fatalf("got %q", got)
	}
}

func TestFingerprintIgnoresArenaLayout(t *testing.T) {
	a := New()
	docA := a.Add(a.Root(), RoleDocument)
	a.Add(docA, RoleP, ContentKid(1, 0))

	b := New()
	b.NewNode(RoleSpan) // unattached noise shifts IDs
	docB := b.Add(b.Root(), RoleDocument)
	b.Add(docB, RoleP, ContentKid(1, 0))

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("equal shapes should hash equal")
	}
	b.Node(docB).Lang = "en"
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("attribute change should alter the fingerprint")
	}

	c := a.Clone()
	if c.Fingerprint() != a.Fingerprint() {
		t.Fatal("clone should hash equal")
	}
	c.Add(docA, RoleP)
	if c.Fingerprint() == a.Fingerprint() {
		t.Fatal("clone must not share kid slices")
	}
}
