package rules_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wudi/tagremedy/config"
	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/engine"
	"github.com/wudi/tagremedy/fixes"
	"github.com/wudi/tagremedy/geometry"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/rules"
	"github.com/wudi/tagremedy/tagtree"
	"github.com/wudi/tagremedy/walker"
)

func newCtx(tr *tagtree.Tree, pages int, ex geometry.Extractor) *docctx.Context {
	doc := &docctx.Document{Tree: tr, FileName: "report.pdf"}
	for i := 1; i <= pages; i++ {
		doc.Pages = append(doc.Pages, &docctx.PageInfo{Number: i, TabOrder: docctx.TabsStructure})
	}
	return docctx.New(doc, ex)
}

func walk(t *testing.T, ctx *docctx.Context, visitors ...walker.Visitor) []*issue.Issue {
	t.Helper()
	w, err := walker.New(visitors...)
	if err != nil {
		t.Fatalf("walker: %v", err)
	}
	return w.Walk(ctx)
}

func ofType(list []*issue.Issue, typ issue.Type) []*issue.Issue {
	var out []*issue.Issue
	for _, is := range list {
		if is.Type == typ {
			out = append(out, is)
		}
	}
	return out
}

func text(s string, r geometry.Rect) geometry.Span {
	return geometry.Span{Bounds: r, Text: s, Kind: geometry.KindText}
}

func rect(llx, lly, urx, ury float64) geometry.Rect {
	return geometry.Rect{LLX: llx, LLY: lly, URX: urx, URY: ury}
}

func listItem(kids ...string) (*tagtree.Tree, tagtree.NodeID, tagtree.NodeID) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	list := tr.Add(doc, tagtree.RoleL)
	li := tr.Add(list, tagtree.RoleLI)
	for i, role := range kids {
		tr.Add(li, role, tagtree.ContentKid(1, i))
	}
	return tr, doc, li
}

func TestListItemTruthTable(t *testing.T) {
	cases := []struct {
		name   string
		kids   []string
		issues int
		fixes  int
		roles  []string
	}{
		{"label and body", []string{"Lbl", "LBody"}, 0, 0, []string{"Lbl", "LBody"}},
		{"paragraph and body", []string{"P", "LBody"}, 1, 1, []string{"Lbl", "LBody"}},
		{"two paragraphs", []string{"P", "P"}, 1, 2, []string{"Lbl", "LBody"}},
		{"single paragraph", []string{"P"}, 1, 1, []string{"LBody"}},
		{"empty", nil, 1, 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, _, li := listItem(tc.kids...)
			ctx := newCtx(tr, 1, nil)
			before := tr.Fingerprint()
			found := walk(t, ctx, rules.NewListItems())
			if len(found) != tc.issues {
				t.Fatalf("issues %v", found)
			}
			changes := 0
			for _, is := range found {
				if is.Fix == nil {
					continue
				}
				changes += issue.ResolvedCount(is.Fix)
				if err := is.Fix.Apply(ctx); err != nil {
					t.Fatalf("apply: %v", err)
				}
			}
			if changes != tc.fixes {
				t.Fatalf("changes %d, want %d", changes, tc.fixes)
			}
			var got []string
			for _, id := range tr.ChildNodes(li) {
				got = append(got, tr.Role(id))
			}
			if strings.Join(got, ",") != strings.Join(tc.roles, ",") {
				t.Fatalf("roles %v, want %v", got, tc.roles)
			}
			if tc.fixes == 0 && tr.Fingerprint() != before {
				t.Fatal("warning-only case changed the tree")
			}
		})
	}
}

func TestSingleParagraphFlagsMissingLabel(t *testing.T) {
	tr, _, _ := listItem("P")
	found := walk(t, newCtx(tr, 1, nil), rules.NewListItems())
	if len(found) != 1 || !strings.Contains(found[0].Message, "no label") {
		t.Fatalf("issues %v", found)
	}
}

func TestListWarningsEscalateToContainer(t *testing.T) {
	tr, doc, li := listItem()
	walk(t, newCtx(tr, 1, nil), rules.NewListItems())
	list := tr.Parent(li)
	for _, id := range []tagtree.NodeID{li, list, doc} {
		if tr.Marker(id) != tagtree.MarkerWarning {
			t.Fatalf("node %s marker %d", tr.Role(id), tr.Marker(id))
		}
	}
	if tr.Marker(tr.Root()) != tagtree.MarkerNone {
		t.Fatal("escalation must stop at the Document container")
	}
}

func TestStrayListChildWrapped(t *testing.T) {
	tr := tagtree.New()
	list := tr.Add(tr.Root(), tagtree.RoleL)
	p := tr.Add(list, tagtree.RoleP, tagtree.ContentKid(1, 0))
	ctx := newCtx(tr, 1, nil)
	found := ofType(walk(t, ctx, rules.NewListItems()), issue.TypeListChild)
	if len(found) != 1 {
		t.Fatalf("issues %v", found)
	}
	if err := found[0].Fix.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	if tr.Std(tr.Parent(p)) != tagtree.RoleLBody || tr.Std(tr.Parent(tr.Parent(p))) != tagtree.RoleLI {
		t.Fatal("paragraph not wrapped in LI > LBody")
	}
}

func TestDecorativeImageThresholds(t *testing.T) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	small := tr.Add(doc, tagtree.RoleFigure, tagtree.ContentKid(1, 0))
	large := tr.Add(doc, tagtree.RoleFigure, tagtree.ContentKid(1, 1))
	described := tr.Add(doc, tagtree.RoleFigure, tagtree.ContentKid(1, 2))
	tr.Node(described).Alt = "Company logo"
	// A wrapper around a described figure is not decoration either.
	wrapper := tr.Add(doc, tagtree.RoleDiv)
	nested := tr.Add(wrapper, tagtree.RoleFigure, tagtree.ContentKid(1, 3))
	tr.Node(nested).Alt = "Company logo"
	// ActualText keeps a figure out of the artifacts but is no Alt.
	replaced := tr.Add(doc, tagtree.RoleFigure, tagtree.ContentKid(1, 4))
	tr.Node(replaced).ActualText = "Logo"
	ex := geometry.Static{}.
		Put(1, 0, geometry.Span{Bounds: rect(10, 10, 22, 22), Kind: geometry.KindImage}).
		Put(1, 1, geometry.Span{Bounds: rect(100, 100, 300, 300), Kind: geometry.KindImage}).
		Put(1, 2, geometry.Span{Bounds: rect(10, 40, 22, 52), Kind: geometry.KindImage}).
		Put(1, 3, geometry.Span{Bounds: rect(40, 40, 52, 52), Kind: geometry.KindImage}).
		Put(1, 4, geometry.Span{Bounds: rect(60, 60, 72, 72), Kind: geometry.KindImage})
	ctx := newCtx(tr, 1, ex)

	limits := rules.DecorativeLimits{MaxWidth: 30, MaxHeight: 30}
	found := walk(t, ctx, rules.NewDecorativeImages(limits), rules.NewMissingAlt(limits))

	decorative := ofType(found, issue.TypeDecorativeImage)
	if len(decorative) != 1 || decorative[0].Location.Node != small {
		t.Fatalf("decorative issues %v", decorative)
	}
	missing := ofType(found, issue.TypeMissingAlt)
	if len(missing) != 2 || missing[0].Location.Node != large || missing[1].Location.Node != replaced || missing[0].Fix != nil {
		t.Fatalf("missing alt issues %v", missing)
	}

	if err := decorative[0].Fix.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	if tr.Attached(small) || len(ctx.Doc.Artifacts) != 1 {
		t.Fatal("decorative image not converted to an artifact")
	}
}

func TestMissingAltRequiresDecorativeImages(t *testing.T) {
	_, err := walker.New(rules.NewMissingAlt(rules.DecorativeLimits{}))
	var cfgErr *walker.ConfigError
	if !errors.As(err, &cfgErr) || !cfgErr.Missing {
		t.Fatalf("expected missing prerequisite, got %v", err)
	}
}

func TestArtifactMatcher(t *testing.T) {
	m, err := rules.NewArtifactMatcher([]string{`^CONFIDENTIAL$`})
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]bool{
		"3":                   true,
		"Page 3 of 10":        true,
		"- 4 -":               true,
		"xiv":                 true,
		"12/03/2024 10:15 AM": true,
		"2024-03-12T10:15:00": true,
		"CONFIDENTIAL":        true,
		"Revenue grew 3%":     false,
		"civil":               false,
		"Chapter 3":           false,
		"See www.example.com": false,
		"":                    false,

		"https://example.com/report 3/12/2024, 10:15": true,
	}
	for in, want := range cases {
		if _, got := m.Match(in); got != want {
			t.Errorf("Match(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := rules.NewArtifactMatcher([]string{"("}); err == nil {
		t.Fatal("expected invalid pattern error")
	}
}

func TestMistaggedArtifactsSkipTables(t *testing.T) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	footer := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 0))
	table := tr.Add(doc, tagtree.RoleTable)
	row := tr.Add(table, tagtree.RoleTR)
	tr.Add(row, tagtree.RoleTD, tagtree.ContentKid(1, 1))
	ex := geometry.Static{}.
		Put(1, 0, text("7", rect(290, 20, 300, 30))).
		Put(1, 1, text("42", rect(100, 400, 120, 410)))
	ctx := newCtx(tr, 1, ex)
	found := walk(t, ctx, rules.NewMistaggedArtifacts(nil))
	if len(found) != 1 || found[0].Location.Node != footer {
		t.Fatalf("issues %v", found)
	}
	if _, ok := found[0].Fix.(*fixes.ConvertToArtifact); !ok {
		t.Fatalf("fix %T", found[0].Fix)
	}
}

func TestBulletAlignedRun(t *testing.T) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	a := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 0))
	b := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 1))
	c := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 2))
	ex := geometry.Static{}.
		Put(1, 0, text("alpha", rect(20, 500, 200, 510))).
		Put(1, 1, text("beta", rect(20, 480, 200, 490))).
		Put(1, 2, text("closing paragraph", rect(20, 400, 200, 410))).
		AddBullets(1, 505, 485)
	ctx := newCtx(tr, 1, ex)
	cfg := config.Default().Lists

	found := walk(t, ctx, rules.NewBulletLists(cfg))
	if len(found) != 1 || issue.ResolvedCount(found[0].Fix) != 2 {
		t.Fatalf("issues %v", found)
	}
	if err := found[0].Fix.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	kids := tr.ChildNodes(doc)
	if len(kids) != 2 || tr.Role(kids[0]) != tagtree.RoleL || kids[1] != c {
		t.Fatalf("document kids %v", kids)
	}
	for _, id := range []tagtree.NodeID{a, b} {
		if tr.Std(tr.Parent(id)) != tagtree.RoleLBody {
			t.Fatalf("node %d not in LBody", id)
		}
	}
	if again := walk(t, ctx, rules.NewBulletLists(cfg)); len(again) != 0 {
		t.Fatalf("issues after fix %v", again)
	}
}

func TestBulletRunsStopAtPageBreak(t *testing.T) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	a := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 0))
	tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 1))
	c := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(2, 0))
	tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(2, 1))
	ex := geometry.Static{}.
		Put(1, 0, text("alpha", rect(20, 500, 200, 510))).
		Put(1, 1, text("beta", rect(20, 480, 200, 490))).
		Put(2, 0, text("gamma", rect(20, 500, 200, 510))).
		Put(2, 1, text("delta", rect(20, 480, 200, 490))).
		AddBullets(1, 505, 485).
		AddBullets(2, 505, 485)
	ctx := newCtx(tr, 2, ex)

	found := walk(t, ctx, rules.NewBulletLists(config.Default().Lists))
	if len(found) != 2 || found[0].Location.Node != a || found[1].Location.Node != c {
		t.Fatalf("issues %v", found)
	}
	for _, is := range found {
		if issue.ResolvedCount(is.Fix) != 2 {
			t.Fatalf("run size %d", issue.ResolvedCount(is.Fix))
		}
	}
}

func TestBulletAlignedLinesInsideTallParagraph(t *testing.T) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	p := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 0), tagtree.ContentKid(1, 1), tagtree.ContentKid(1, 2))
	ex := geometry.Static{}.
		Put(1, 0, text("one", rect(20, 500, 200, 510))).
		Put(1, 1, text("two", rect(20, 480, 200, 490))).
		Put(1, 2, text("three", rect(20, 460, 200, 470))).
		AddBullets(1, 505, 485, 465)
	ctx := newCtx(tr, 1, ex)

	found := walk(t, ctx, rules.NewBulletLists(config.Default().Lists))
	if len(found) != 1 {
		t.Fatalf("issues %v", found)
	}
	if _, ok := found[0].Fix.(*fixes.WrapContentInList); !ok || issue.ResolvedCount(found[0].Fix) != 3 {
		t.Fatalf("fix %T", found[0].Fix)
	}
	if err := found[0].Fix.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	if kids := tr.ChildNodes(p); len(kids) != 1 || tr.Role(kids[0]) != tagtree.RoleL {
		t.Fatalf("paragraph kids %v", kids)
	}
}

func TestBrokenLigatures(t *testing.T) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	lig := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 0))
	broken := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 1))
	mixed := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 2))
	clean := tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 3))
	ex := geometry.Static{}.
		Put(1, 0, text("\uFB01nance of\uFB01ce", rect(0, 0, 10, 10))).
		Put(1, 1, text("bro\uFFFDken", rect(0, 20, 10, 30))).
		Put(1, 2, text("p\u0430ypal login", rect(0, 40, 10, 50))).
		Put(1, 3, text("東京タワー and Paris", rect(0, 60, 10, 70)))
	ctx := newCtx(tr, 1, ex)
	found := walk(t, ctx, rules.NewBrokenLigatures())

	ligs := ofType(found, issue.TypeLigature)
	if len(ligs) != 1 || ligs[0].Location.Node != lig || ligs[0].Fix == nil {
		t.Fatalf("ligature issues %v", ligs)
	}
	if bad := ofType(found, issue.TypeBrokenMapping); len(bad) != 1 || bad[0].Location.Node != broken {
		t.Fatalf("mapping issues %v", bad)
	}
	mix := ofType(found, issue.TypeMixedScript)
	if len(mix) != 1 || mix[0].Location.Node != mixed {
		t.Fatalf("mixed script issues %v", mix)
	}
	for _, is := range found {
		if is.Location.Node == clean {
			t.Fatalf("clean text flagged: %v", is)
		}
	}

	if err := ligs[0].Fix.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	if got := tr.Node(lig).ActualText; got != "finance office" {
		t.Fatalf("actual text %q", got)
	}
	if again := ofType(walk(t, ctx, rules.NewBrokenLigatures()), issue.TypeLigature); len(again) != 0 {
		t.Fatalf("ligature still reported: %v", again)
	}
}

func TestDocumentWrapperAndPartition(t *testing.T) {
	tr := tagtree.New()
	tr.Add(tr.Root(), tagtree.RoleH1, tagtree.ContentKid(1, 0))
	tr.Add(tr.Root(), tagtree.RoleP, tagtree.ContentKid(2, 0))
	ctx := newCtx(tr, 2, nil)
	found := walk(t, ctx, rules.NewDocumentWrapper(), rules.NewPagePartition())
	if len(ofType(found, issue.TypeDocumentWrapper)) != 1 || len(ofType(found, issue.TypePagePartition)) != 1 {
		t.Fatalf("issues %v", found)
	}

	e, err := engine.New(nil, []engine.VisitorFactory{
		func() walker.Visitor { return rules.NewDocumentWrapper() },
		func() walker.Visitor { return rules.NewPagePartition() },
	})
	if err != nil {
		t.Fatal(err)
	}
	resolved := e.ApplyFixes(context.Background(), ctx, found)
	if len(resolved) != 2 {
		t.Fatalf("resolved %v", resolved)
	}
	again, err := e.DetectIssues(context.Background(), ctx)
	if err != nil || len(again) != 0 {
		t.Fatalf("issues after fix %v (%v)", again, err)
	}
}

func TestEmptyWrapperRemovalSuperseded(t *testing.T) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	tr.Add(doc, tagtree.RoleP, tagtree.ContentKid(1, 0))
	div := tr.Add(doc, tagtree.RoleDiv)
	inner := tr.Add(div, tagtree.RoleP)
	ctx := newCtx(tr, 1, nil)

	e, err := engine.New(nil, []engine.VisitorFactory{
		func() walker.Visitor { return rules.NewNeedlessNesting() },
		func() walker.Visitor { return rules.NewEmptyElements() },
	})
	if err != nil {
		t.Fatal(err)
	}
	found, err := e.DetectIssues(context.Background(), ctx)
	if err != nil {
		t.Fatal(err)
	}
	empty := ofType(found, issue.TypeEmptyElement)
	if len(empty) != 1 || empty[0].Location.Node != div {
		t.Fatalf("empty issues %v", empty)
	}
	e.ApplyFixes(context.Background(), ctx, found)
	if !strings.HasPrefix(empty[0].Note(), "skipped: superseded by") {
		t.Fatalf("note %q", empty[0].Note())
	}
	if tr.Parent(inner) != doc {
		t.Fatal("wrapper not flattened")
	}

	found, _ = e.DetectIssues(context.Background(), ctx)
	if len(found) != 1 || found[0].Location.Node != inner {
		t.Fatalf("second pass issues %v", found)
	}
}

func TestUnmarkedLinkStaysOnItsPage(t *testing.T) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	part1 := tr.Add(doc, tagtree.RolePart)
	p1 := tr.Add(part1, tagtree.RoleP, tagtree.ContentKid(1, 0))
	part2 := tr.Add(doc, tagtree.RolePart)
	p2 := tr.Add(part2, tagtree.RoleP, tagtree.ContentKid(2, 0))
	ex := geometry.Static{}.
		Put(1, 0, text("page one", rect(0, 0, 100, 100))).
		Put(2, 0, text("page two", rect(300, 300, 400, 400)))
	ctx := newCtx(tr, 2, ex)
	annot := tagtree.ObjRef{Num: 40}
	ctx.Doc.Pages[1].Annotations = []docctx.Annotation{
		{Obj: annot, Subtype: "Link", Rect: rect(10, 10, 50, 50), URI: "https://example.com"},
	}
	ctx.Doc.Pages[1].Annotations = append(ctx.Doc.Pages[1].Annotations,
		docctx.Annotation{Obj: tagtree.ObjRef{Num: 41}, Subtype: "Widget", Rect: rect(0, 0, 5, 5)})

	e, err := engine.New(nil, []engine.VisitorFactory{
		func() walker.Visitor { return rules.NewDocumentWrapper() },
		func() walker.Visitor { return rules.NewPagePartition() },
		func() walker.Visitor { return rules.NewUnmarkedLinks() },
	})
	if err != nil {
		t.Fatal(err)
	}
	found, err := e.DetectIssues(context.Background(), ctx)
	if err != nil {
		t.Fatal(err)
	}
	links := ofType(found, issue.TypeUnmarkedLink)
	if len(links) != 2 || links[0].Fix == nil || links[1].Fix != nil {
		t.Fatalf("link issues %v", links)
	}
	e.ApplyFixes(context.Background(), ctx, found)

	link, ok := ctx.ReferencedObjects()[annot]
	if !ok {
		t.Fatal("annotation still untagged")
	}
	if tr.IsAncestor(part1, link) || tr.IsAncestor(p1, link) {
		t.Fatal("link attached under page 1 content")
	}
	if tr.Parent(link) != part2 || tr.IndexOf(part2, link) != tr.IndexOf(part2, p2)+1 {
		t.Fatalf("link placed under %d", tr.Parent(link))
	}
	if tr.Node(link).Alt != "https://example.com" {
		t.Fatalf("alt %q", tr.Node(link).Alt)
	}
}

func TestDocumentChecks(t *testing.T) {
	tr := tagtree.New()
	doc := tr.Add(tr.Root(), tagtree.RoleDocument)
	tr.Add(doc, tagtree.RoleH1, tagtree.ContentKid(1, 0))
	ex := geometry.Static{}.Put(1, 0, text("  Annual   Report ", rect(0, 0, 10, 10)))
	ctx := newCtx(tr, 2, ex)
	ctx.Doc.Lang = "not a tag!"
	ctx.Doc.Pages[1].TabOrder = ""
	ctx.Doc.Pages[1].Annotations = []docctx.Annotation{{Subtype: "Link"}}

	var found []*issue.Issue
	for _, c := range []engine.Check{rules.TagTree(), rules.Marked(), rules.Language("en-US"), rules.Title(), rules.TabOrder()} {
		found = append(found, c.Check(ctx)...)
	}
	want := map[issue.Type]issue.Severity{
		issue.TypeNotMarked:    issue.Error,
		issue.TypeLanguage:     issue.Error,
		issue.TypeTitle:        issue.Error,
		issue.TypeDisplayTitle: issue.Warning,
		issue.TypeTabOrder:     issue.Warning,
	}
	if len(found) != len(want) {
		t.Fatalf("issues %v", found)
	}
	for _, is := range found {
		if sev, ok := want[is.Type]; !ok || sev != is.Severity || is.Fix == nil {
			t.Fatalf("unexpected %v", is)
		}
		if err := is.Fix.Apply(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if ctx.Doc.Title != "Annual Report" || ctx.Doc.Lang != "en-US" || ctx.Doc.Pages[1].TabOrder != docctx.TabsStructure {
		t.Fatalf("document %+v", ctx.Doc)
	}
}

func TestTagTreeFatal(t *testing.T) {
	ctx := docctx.New(&docctx.Document{}, nil)
	found := rules.TagTree().Check(ctx)
	if len(found) != 1 || found[0].Severity != issue.Fatal {
		t.Fatalf("issues %v", found)
	}
	e, err := engine.New([]engine.Check{rules.TagTree()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(context.Background(), ctx); !errors.Is(err, engine.ErrFatal) {
		t.Fatalf("expected ErrFatal, got %v", err)
	}
}

func TestTitleFallsBackToFileName(t *testing.T) {
	tr := tagtree.New()
	tr.Add(tr.Root(), tagtree.RoleP)
	ctx := newCtx(tr, 1, nil)
	ctx.Doc.FileName = "/tmp/q3-results.pdf"
	found := rules.Title().Check(ctx)
	f, ok := found[0].Fix.(*fixes.SetTitle)
	if !ok || f.Title != "q3-results" {
		t.Fatalf("fix %+v", found[0].Fix)
	}
}

func TestScriptChecks(t *testing.T) {
	checks, err := rules.Scripts([]config.ScriptRule{
		{Name: "needs-title", Source: `doc.title !== ""`, Message: "title required"},
		{Name: "multi-page", Source: `doc.pageCount > 1 ? true : "single page"`, Severity: "warning"},
		{Name: "broken", Source: `throw new Error("boom")`},
		{Name: "has-headings", Source: `doc.count("H1") > 0`},
	})
	if err != nil {
		t.Fatal(err)
	}
	tr := tagtree.New()
	tr.Add(tr.Root(), tagtree.RoleH1)
	ctx := newCtx(tr, 1, nil)

	results := make(map[string][]*issue.Issue)
	for _, c := range checks {
		results[c.Name()] = c.Check(ctx)
	}
	if got := results["script:needs-title"]; len(got) != 1 || got[0].Message != "title required" || got[0].Severity != issue.Error {
		t.Fatalf("needs-title %v", got)
	}
	if got := results["script:multi-page"]; len(got) != 1 || got[0].Message != "single page" || got[0].Severity != issue.Warning {
		t.Fatalf("multi-page %v", got)
	}
	if got := results["script:broken"]; len(got) != 1 || !strings.Contains(got[0].Message, "could not run") {
		t.Fatalf("broken %v", got)
	}
	if got := results["script:has-headings"]; len(got) != 0 {
		t.Fatalf("has-headings %v", got)
	}
}

func TestScriptTimeout(t *testing.T) {
	checks, err := rules.Scripts([]config.ScriptRule{{Name: "spin", Source: `while (true) {}`, TimeoutMS: 20}})
	if err != nil {
		t.Fatal(err)
	}
	got := checks[0].Check(newCtx(tagtree.New(), 1, nil))
	if len(got) != 1 || got[0].Type != issue.TypeScript {
		t.Fatalf("issues %v", got)
	}
}

func TestDefaultRegistration(t *testing.T) {
	checks, factories, err := rules.Default(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	e, err := engine.New(checks, factories)
	if err != nil {
		t.Fatalf("default order invalid: %v", err)
	}
	if n := len(e.Rules()); n != 16 {
		t.Fatalf("rules %v", e.Rules())
	}

	cfg := config.Default()
	cfg.Disabled = []string{rules.NameDecorativeImages}
	checks, factories, err = rules.Default(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var cfgErr *walker.ConfigError
	if _, err := engine.New(checks, factories); !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error, got %v", err)
	}
}

// messyDocument has every kind of defect the default rules can repair.
func messyDocument() *docctx.Context {
	tr := tagtree.New()
	root := tr.Root()
	tr.Add(root, tagtree.RoleH1, tagtree.ContentKid(1, 0))
	div := tr.Add(root, tagtree.RoleDiv)
	tr.Add(div, tagtree.RoleP, tagtree.ContentKid(1, 1))
	list := tr.Add(root, tagtree.RoleL)
	li := tr.Add(list, tagtree.RoleLI)
	tr.Add(li, tagtree.RoleP, tagtree.ContentKid(1, 2))
	tr.Add(li, tagtree.RoleP, tagtree.ContentKid(1, 3))
	tr.Add(root, tagtree.RoleP, tagtree.ContentKid(2, 0))
	ex := geometry.Static{}.
		Put(1, 0, text("Annual Report", rect(0, 700, 200, 720))).
		Put(1, 1, text("Intro", rect(0, 600, 200, 612))).
		Put(1, 2, text("1.", rect(0, 500, 10, 512))).
		Put(1, 3, text("First", rect(20, 500, 200, 512))).
		Put(2, 0, text("Body", rect(0, 700, 200, 712)))
	ctx := newCtx(tr, 2, ex)
	ctx.Doc.Pages[0].TabOrder = ""
	ctx.Doc.Pages[1].TabOrder = ""
	return ctx
}

func defaultEngine(t *testing.T) *engine.Engine {
	t.Helper()
	checks, factories, err := rules.Default(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	e, err := engine.New(checks, factories)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestNoAccumulationAcrossRuns(t *testing.T) {
	e := defaultEngine(t)
	ctx := messyDocument()
	first, err := e.DetectIssues(context.Background(), ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.DetectIssues(context.Background(), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("first %d issues, second %d", len(first), len(second))
	}
}

func TestRunRepairsAndIsIdempotent(t *testing.T) {
	e := defaultEngine(t)
	ctx := messyDocument()
	res, err := e.Run(context.Background(), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Remaining) != 0 || len(res.Failed) != 0 || !res.Changed() {
		t.Fatalf("remaining %v failed %v", res.Remaining, res.Failed)
	}
	tr := ctx.Tree()
	top := tr.ChildNodes(tr.Root())
	if len(top) != 1 || tr.Role(top[0]) != tagtree.RoleDocument {
		t.Fatalf("root kids %v", top)
	}
	parts := tr.ChildNodes(top[0])
	if len(parts) != 2 || tr.Role(parts[0]) != tagtree.RolePart || len(tr.ChildNodes(parts[0])) != 3 {
		t.Fatalf("parts %v", parts)
	}
	d := ctx.Doc
	if !d.Marked || d.Lang != "en-US" || d.Title != "Annual Report" || !d.DisplayDocTitle {
		t.Fatalf("document %+v", d)
	}

	again, err := e.Run(context.Background(), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Changed() || len(again.Detected) != 0 {
		t.Fatalf("second run changed the document: %v", again.Detected)
	}
}
