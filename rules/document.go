package rules

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/engine"
	"github.com/wudi/tagremedy/fixes"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
)

// TagTree reports a document without a structure tree, or with an empty one.
// Nothing else can be remediated then.
func TagTree() engine.Check {
	return engine.CheckFunc{ID: NameTagTree, Fn: func(ctx *docctx.Context) []*issue.Issue {
		t := ctx.Tree()
		switch {
		case t == nil:
			return []*issue.Issue{issue.New(issue.TypeNoTagTree, issue.Fatal, issue.Nowhere, "document has no structure tree")}
		case t.NumKids(t.Root()) == 0:
			return []*issue.Issue{issue.New(issue.TypeNoTagTree, issue.Fatal, issue.Nowhere, "structure tree is empty")}
		}
		return nil
	}}
}

func Marked() engine.Check {
	return engine.CheckFunc{ID: NameMarked, Fn: func(ctx *docctx.Context) []*issue.Issue {
		if ctx.Doc.Marked {
			return nil
		}
		return []*issue.Issue{
			issue.New(issue.TypeNotMarked, issue.Error, issue.Nowhere, "MarkInfo does not declare the document as tagged").
				WithFix(fixes.NewSetMarked()),
		}
	}}
}

// Language reports a missing or malformed document language. The fix sets
// fallback; no fix is offered when fallback is empty.
func Language(fallback string) engine.Check {
	return engine.CheckFunc{ID: NameLanguage, Fn: func(ctx *docctx.Context) []*issue.Issue {
		lang := strings.TrimSpace(ctx.Doc.Lang)
		var is *issue.Issue
		if lang == "" {
			is = issue.New(issue.TypeLanguage, issue.Error, issue.Nowhere, "document language is not set")
		} else if _, err := language.Parse(lang); err != nil {
			is = issue.New(issue.TypeLanguage, issue.Error, issue.Nowhere, "document language %q is not a valid BCP 47 tag", lang)
		} else {
			return nil
		}
		if fallback != "" {
			is.WithFix(fixes.NewSetLanguage(fallback))
		}
		return []*issue.Issue{is}
	}}
}

// Title reports a missing document title and a viewer preference that shows
// the file name instead. The title is derived from the first heading, then
// from the file name.
func Title() engine.Check {
	return engine.CheckFunc{ID: NameTitle, Fn: func(ctx *docctx.Context) []*issue.Issue {
		var out []*issue.Issue
		if strings.TrimSpace(ctx.Doc.Title) == "" {
			is := issue.New(issue.TypeTitle, issue.Error, issue.Nowhere, "document title is not set")
			if title := deriveTitle(ctx); title != "" {
				is.WithFix(fixes.NewSetTitle(title))
			}
			out = append(out, is)
		}
		if !ctx.Doc.DisplayDocTitle {
			out = append(out, issue.New(issue.TypeDisplayTitle, issue.Warning, issue.Nowhere,
				"viewer preferences do not display the document title").WithFix(fixes.NewSetDisplayDocTitle()))
		}
		return out
	}}
}

const maxTitleLen = 120

func deriveTitle(ctx *docctx.Context) string {
	if t := ctx.Tree(); t != nil {
		for _, id := range t.Descendants(t.Root()) {
			if !tagtree.IsHeadingRole(t.Std(id)) {
				continue
			}
			text := strings.Join(strings.Fields(ctx.Text(id, tagtree.NoPage)), " ")
			if text != "" {
				if r := []rune(text); len(r) > maxTitleLen {
					text = string(r[:maxTitleLen])
				}
				return text
			}
		}
	}
	if ctx.Doc.FileName == "" {
		return ""
	}
	base := filepath.Base(ctx.Doc.FileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TabOrder reports pages that carry annotations but do not use structure
// tab order. One issue covers all such pages.
func TabOrder() engine.Check {
	return engine.CheckFunc{ID: NameTabOrder, Fn: func(ctx *docctx.Context) []*issue.Issue {
		var pages []int
		for _, p := range ctx.Doc.Pages {
			if len(p.Annotations) > 0 && p.TabOrder != docctx.TabsStructure {
				pages = append(pages, p.Number)
			}
		}
		if len(pages) == 0 {
			return nil
		}
		loc := issue.Nowhere
		if len(pages) == 1 {
			loc = issue.AtPage(pages[0])
		}
		return []*issue.Issue{
			issue.New(issue.TypeTabOrder, issue.Warning, loc, "%d page(s) with annotations do not use structure tab order", len(pages)).
				WithFix(fixes.NewSetTabOrder(pages)),
		}
	}}
}
