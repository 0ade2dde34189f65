package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wudi/tagremedy/tagtree"
)

const maxOutlineText = 80

// TextFunc returns the extracted text of a node, or "".
type TextFunc func(id tagtree.NodeID) string

// Outline renders the attached tree of t as nested HTML lists. Nodes carrying
// an escalation marker get the class "warning" or "error". text may be nil.
func Outline(w io.Writer, t *tagtree.Tree, text TextFunc) error {
	list := element(atom.Ul, "class", "tagtree")
	if t != nil {
		list.AppendChild(outlineNode(t, t.Root(), text))
	}
	return html.Render(w, list)
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func textNode(s string) *html.Node { return &html.Node{Type: html.TextNode, Data: s} }

func outlineNode(t *tagtree.Tree, id tagtree.NodeID, text TextFunc) *html.Node {
	n := t.Node(id)
	var li *html.Node
	switch t.Marker(id) {
	case tagtree.MarkerError:
		li = element(atom.Li, "class", "error")
	case tagtree.MarkerWarning:
		li = element(atom.Li, "class", "warning")
	default:
		li = element(atom.Li)
	}

	role := element(atom.Code)
	role.AppendChild(textNode(n.Role))
	li.AppendChild(role)
	if std := t.Std(id); std != n.Role {
		li.AppendChild(textNode(" → " + std))
	}
	var meta []string
	if p := t.ResolvePage(id); p != tagtree.NoPage {
		meta = append(meta, fmt.Sprintf("p.%d", p))
	}
	if n.Alt != "" {
		meta = append(meta, fmt.Sprintf("alt=%q", n.Alt))
	}
	if n.ActualText != "" {
		meta = append(meta, fmt.Sprintf("actual=%q", n.ActualText))
	}
	if n.Lang != "" {
		meta = append(meta, "lang="+n.Lang)
	}
	mcids, objs := 0, 0
	for _, k := range t.Kids(id) {
		switch k.Kind {
		case tagtree.KidContent:
			mcids++
		case tagtree.KidObject:
			objs++
		}
	}
	if mcids > 0 {
		meta = append(meta, fmt.Sprintf("%d mcid", mcids))
	}
	if objs > 0 {
		meta = append(meta, fmt.Sprintf("%d objr", objs))
	}
	if len(meta) > 0 {
		li.AppendChild(textNode(" [" + strings.Join(meta, ", ") + "]"))
	}
	if text != nil && mcids > 0 {
		if s := strings.Join(strings.Fields(text(id)), " "); s != "" {
			if r := []rune(s); len(r) > maxOutlineText {
				s = string(r[:maxOutlineText]) + "…"
			}
			q := element(atom.Q)
			q.AppendChild(textNode(s))
			li.AppendChild(textNode(" "))
			li.AppendChild(q)
		}
	}

	kids := t.ChildNodes(id)
	if len(kids) == 0 {
		return li
	}
	ul := element(atom.Ul)
	for _, kid := range kids {
		ul.AppendChild(outlineNode(t, kid, text))
	}
	li.AppendChild(ul)
	return li
}
