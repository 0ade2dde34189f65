package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/fixes"
	"github.com/wudi/tagremedy/geometry"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
	"github.com/wudi/tagremedy/walker"
)

var (
	pageNumberRE = regexp.MustCompile(`(?i)^(?:page\s*)?[-–—]?\s*(?:\d{1,4}|x{1,3}(?:ix|iv|v?i{0,3})|ix|iv|v?i{1,3}|v)\s*[-–—]?(?:\s*(?:of|/)\s*\d{1,4})?$`)
	dateRE       = `(?:\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}|\d{4}-\d{2}-\d{2})`
	timeRE       = `(?:\d{1,2}:\d{2}(?::\d{2})?\s*(?:[ap]\.?m\.?)?)`
	timestampRE  = regexp.MustCompile(`(?i)^(?:` + dateRE + `(?:[,T\s]+` + timeRE + `)?|` + timeRE + `)$`)
	anyStampRE   = regexp.MustCompile(`(?i)` + dateRE + `|` + timeRE)
	urlRE        = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)
)

// maxFooterLen bounds the text considered for the URL-plus-timestamp
// pattern browsers print in page margins.
const maxFooterLen = 200

// ArtifactMatcher classifies element text as page furniture.
type ArtifactMatcher struct {
	extra []*regexp.Regexp
}

// NewArtifactMatcher compiles additional case-sensitive patterns on top of
// the built-in page number and timestamp patterns.
func NewArtifactMatcher(patterns []string) (*ArtifactMatcher, error) {
	m := &ArtifactMatcher{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("artifact pattern %q: %w", p, err)
		}
		m.extra = append(m.extra, re)
	}
	return m, nil
}

// Match returns a reason when text looks like a header or footer.
func (m *ArtifactMatcher) Match(text string) (reason string, ok bool) {
	text = strings.Join(strings.Fields(text), " ")
	switch {
	case text == "":
		return "", false
	case pageNumberRE.MatchString(text):
		return "page number", true
	case timestampRE.MatchString(text):
		return "timestamp", true
	case len(text) <= maxFooterLen && urlRE.MatchString(text) && anyStampRE.MatchString(urlRE.ReplaceAllString(text, " ")):
		return "printed URL and timestamp", true
	}
	for _, re := range m.extra {
		if re.MatchString(text) {
			return "running header or footer", true
		}
	}
	return "", false
}

// MistaggedArtifacts flags leaf elements whose text is page furniture such
// as page numbers and print timestamps.
type MistaggedArtifacts struct {
	base
	match *ArtifactMatcher
}

func NewMistaggedArtifacts(m *ArtifactMatcher) *MistaggedArtifacts {
	if m == nil {
		m = &ArtifactMatcher{}
	}
	return &MistaggedArtifacts{base: base{
		name: NameMistaggedArtifacts,
		desc: "Page numbers, timestamps and print footers are artifacts",
	}, match: m}
}

func (r *MistaggedArtifacts) EnterElement(v *walker.Visit) bool {
	t := v.Tree
	switch v.Role() {
	case tagtree.RoleTable, tagtree.RoleL, tagtree.RoleTOC, tagtree.RoleIndex,
		tagtree.RoleFigure, tagtree.RoleFormula, tagtree.RoleForm:
		// Numbers and dates are content here.
		return false
	}
	if v.Depth == 0 || tagtree.IsContainerRole(v.Role()) || len(t.ChildNodes(v.Node)) > 0 {
		return true
	}
	refs := t.ContentRefs(v.Node, false)
	if len(refs) == 0 {
		return false
	}
	for _, k := range refs {
		if k.Kind == tagtree.KidObject {
			return false
		}
	}
	reason, ok := r.match.Match(v.Ctx.Text(v.Node, tagtree.NoPage))
	if !ok {
		return false
	}
	r.report(issue.New(issue.TypeMistaggedArtifact, issue.Warning, issue.AtNode(t, v.Node),
		"%s element holds a %s", t.Role(v.Node), reason).WithFix(fixes.NewConvertToArtifact(t, v.Node, reason)))
	return false
}

// DecorativeLimits bounds the size of images treated as decoration.
type DecorativeLimits struct {
	MaxWidth  float64
	MaxHeight float64
}

// decorative reports whether id only paints a small image, has no text and
// no alternate description on itself or any descendant.
func (l DecorativeLimits) decorative(ctx *docctx.Context, t *tagtree.Tree, id tagtree.NodeID) bool {
	if hasAltText(t.Node(id)) {
		return false
	}
	for _, d := range t.Descendants(id) {
		if hasAltText(t.Node(d)) {
			return false
		}
	}
	refs := t.ContentRefs(id, true)
	if len(refs) == 0 {
		return false
	}
	for _, k := range refs {
		if k.Kind != tagtree.KidContent {
			return false
		}
	}
	if ctx.Kinds(id) != geometry.KindImage || strings.TrimSpace(ctx.Text(id, tagtree.NoPage)) != "" {
		return false
	}
	b, ok := ctx.Bounds(id, tagtree.NoPage)
	return ok && b.Width() <= l.MaxWidth && b.Height() <= l.MaxHeight
}

// DecorativeImages flags small image-only elements without alternate text
// and converts them to artifacts.
type DecorativeImages struct {
	base
	limits DecorativeLimits
}

func NewDecorativeImages(l DecorativeLimits) *DecorativeImages {
	return &DecorativeImages{base: base{
		name: NameDecorativeImages,
		desc: "Small decorative images are artifacts",
	}, limits: l}
}

func (r *DecorativeImages) EnterElement(v *walker.Visit) bool {
	if v.Depth == 0 || tagtree.IsContainerRole(v.Role()) {
		return true
	}
	if !r.limits.decorative(v.Ctx, v.Tree, v.Node) {
		return true
	}
	r.report(issue.New(issue.TypeDecorativeImage, issue.Warning, issue.AtNode(v.Tree, v.Node),
		"%s element only holds a small decorative image", v.Tree.Role(v.Node)).
		WithFix(fixes.NewConvertToArtifact(v.Tree, v.Node, "decorative image")))
	return false
}

// MissingAlt reports figures and formulas without an Alt entry. ActualText
// does not count. Elements classified as decorative are left to
// DecorativeImages.
type MissingAlt struct {
	base
	limits DecorativeLimits
}

func NewMissingAlt(l DecorativeLimits) *MissingAlt {
	return &MissingAlt{base: base{
		name:    NameMissingAlt,
		desc:    "Figures and formulas carry alternate text",
		prereqs: []string{NameDecorativeImages},
	}, limits: l}
}

func (r *MissingAlt) EnterElement(v *walker.Visit) bool {
	role := v.Role()
	if role != tagtree.RoleFigure && role != tagtree.RoleFormula {
		return true
	}
	t := v.Tree
	if t.Node(v.Node).Alt != "" || len(t.ContentRefs(v.Node, true)) == 0 || r.limits.decorative(v.Ctx, t, v.Node) {
		return false
	}
	r.flag(t, issue.New(issue.TypeMissingAlt, issue.Error, issue.AtNode(t, v.Node),
		"%s element has no alternate text", t.Role(v.Node)))
	return false
}
