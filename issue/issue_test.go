package issue_test

import (
	"testing"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
)

type batchFix struct {
	issue.BaseFix
	n int
}

func (batchFix) Apply(*docctx.Context) error { return nil }
func (batchFix) Describe() string            { return "done" }
func (f batchFix) ResolvedCount() int        { return f.n }

func TestLocationString(t *testing.T) {
	tr := tagtree.New()
	p := tr.Add(tr.Root(), tagtree.RoleP, tagtree.ContentKid(3, 0))
	tr.Node(p).Obj = tagtree.ObjRef{Num: 7}
	cases := []struct {
		loc  issue.Location
		want string
	}{
		{issue.Nowhere, "document"},
		{issue.AtPage(2), "page 2"},
		{issue.AtNode(tr, p), "page 3, node 1, obj 7 0 R"},
	}
	for _, c := range cases {
		if got := c.loc.String(); got != c.want {
			t.Errorf("got %q, want %q", got, c.want)
		}
	}
}

func TestIssueLifecycle(t *testing.T) {
	is := issue.New(issue.TypeTitle, issue.Error, issue.Nowhere, "missing %s", "title")
	if is.Status() != issue.Open || is.Message != "missing title" {
		t.Fatalf("unexpected new issue: %v", is)
	}
	is.MarkFailed("boom")
	if is.Status() != issue.Failed || is.Note() != "boom" {
		t.Fatalf("unexpected status %v %q", is.Status(), is.Note())
	}
}

func TestResolvedCount(t *testing.T) {
	f := batchFix{BaseFix: issue.BaseFix{Prio: issue.PriorityFlatten}, n: 4}
	if issue.ResolvedCount(f) != 4 {
		t.Fatal("batch count ignored")
	}
	if f.Invalidates(f) {
		t.Fatal("base fix must not invalidate")
	}
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]issue.Severity{"warning": issue.Warning, "Error": issue.Error, "FATAL": issue.Fatal} {
		got, err := issue.ParseSeverity(in)
		if err != nil || got != want {
			t.Errorf("%s: got %v, %v", in, got, err)
		}
	}
	if _, err := issue.ParseSeverity("loud"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTypesAreKnown(t *testing.T) {
	if !issue.TypeUnmarkedLink.Known() || issue.Type("bogus").Known() {
		t.Fatal("unexpected Known result")
	}
}
