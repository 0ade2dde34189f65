package rules

import (
	"strings"
	"unicode"

	"github.com/go-text/typesetting/language"
	"golang.org/x/text/unicode/norm"

	"github.com/wudi/tagremedy/fixes"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/walker"
)

// BrokenLigatures inspects the extracted text of elements for signs of a
// broken glyph-to-Unicode mapping: replacement and private-use characters,
// ligature presentation forms, and words mixing writing systems.
type BrokenLigatures struct{ base }

func NewBrokenLigatures() *BrokenLigatures {
	return &BrokenLigatures{base{
		name: NameBrokenLigatures,
		desc: "Extracted text maps to meaningful Unicode",
	}}
}

func (r *BrokenLigatures) EnterElement(v *walker.Visit) bool {
	t := v.Tree
	n := t.Node(v.Node)
	if n.ActualText != "" {
		// ActualText replaces the extracted text of the whole subtree.
		return false
	}
	var parts []string
	for _, k := range t.Kids(v.Node) {
		if s := v.Ctx.KidText(k); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return true
	}
	text := strings.Join(parts, " ")
	loc := issue.AtNode(t, v.Node)
	role := t.Role(v.Node)

	if bad := unmappedRunes(text); bad > 0 {
		r.flag(t, issue.New(issue.TypeBrokenMapping, issue.Error, loc,
			"%s element text has %d character(s) without a Unicode mapping", role, bad))
		return true
	}
	if hasLigature(text) {
		is := issue.New(issue.TypeLigature, issue.Warning, loc, "%s element text contains ligature glyphs", role)
		// ActualText would hide the text of child elements too.
		if len(t.ChildNodes(v.Node)) == 0 {
			is.WithFix(fixes.NewSetActualText(v.Node, norm.NFKC.String(text)))
		}
		r.flag(t, is)
	}
	if words := mixedScriptWords(text); len(words) > 0 {
		r.flag(t, issue.New(issue.TypeMixedScript, issue.Warning, loc,
			"%s element has words mixing writing systems: %s", role, strings.Join(words, ", ")))
	}
	return true
}

func unmappedRunes(s string) int {
	n := 0
	for _, r := range s {
		if r == unicode.ReplacementChar || unicode.Is(unicode.Co, r) {
			n++
		}
	}
	return n
}

// hasLigature reports Latin ligature presentation forms (U+FB00..U+FB06).
func hasLigature(s string) bool {
	for _, r := range s {
		if r >= 0xFB00 && r <= 0xFB06 {
			return true
		}
	}
	return false
}

const maxReportedWords = 5

// mixedScriptWords returns the words whose letters belong to more than one
// script. Han, Hiragana and Katakana count as one script.
func mixedScriptWords(s string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsMark(r) }) {
		first := language.Unknown
		for _, r := range w {
			sc := scriptOf(r)
			if !sc.Strong() || sc == language.Unknown {
				continue
			}
			if first == language.Unknown {
				first = sc
				continue
			}
			if sc != first {
				out = append(out, w)
				break
			}
		}
		if len(out) == maxReportedWords {
			break
		}
	}
	return out
}

func scriptOf(r rune) language.Script {
	switch sc := language.LookupScript(r); sc {
	case language.Hiragana, language.Katakana:
		return language.Han
	default:
		return sc
	}
}
