package contentstream

import (
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/wudi/tagremedy/geometry"
)

// Resources answers the few resource lookups the tracer needs.
type Resources interface {
	// XObjectKind classifies a named XObject (image or form).
	XObjectKind(name string) geometry.Kind
	// DecodeText maps raw string bytes shown with font to text.
	DecodeText(font string, raw []byte) string
}

// PlainResources treats every XObject as an image and decodes strings as
// single-byte PDFDocEncoding-compatible text.
type PlainResources struct{}

func (PlainResources) XObjectKind(string) geometry.Kind { return geometry.KindImage }

func (PlainResources) DecodeText(_ string, raw []byte) string { return Latin1(raw) }

// Latin1 decodes raw as ISO-8859-1, dropping control bytes.
func Latin1(raw []byte) string {
	var sb strings.Builder
	for _, b := range raw {
		if b < 0x20 && b != '\t' {
			continue
		}
		sb.WriteRune(rune(b))
	}
	return sb.String()
}

// Bullet detection limits, in user-space units.
const (
	bulletMinSize = 1.0
	bulletMaxSize = 9.0
	bulletAspect  = 2.0
	// Average glyph width in thousandths of an em when widths are unknown.
	defaultGlyphWidth = 500.0
)

var bulletGlyphs = map[string]bool{"•": true, "◦": true, "▪": true, "‣": true, "∙": true, "●": true, "○": true, "■": true}

// Tracer executes a content stream virtually and attributes painted bounds,
// text and content kinds to the enclosing marked-content identifiers.
type Tracer struct {
	res Resources
}

func NewTracer(res Resources) *Tracer {
	if res == nil {
		res = PlainResources{}
	}
	return &Tracer{res: res}
}

type graphicsState struct {
	ctm   geometry.Matrix
	stack []geometry.Matrix
}

func (gs *graphicsState) save() { gs.stack = append(gs.stack, gs.ctm) }

func (gs *graphicsState) restore() error {
	n := len(gs.stack)
	if n == 0 {
		return errors.New("contentstream: graphics state stack empty")
	}
	gs.ctm = gs.stack[n-1]
	gs.stack = gs.stack[:n-1]
	return nil
}

type textState struct {
	font       string
	size       float64
	leading    float64
	matrix     geometry.Matrix
	lineMatrix geometry.Matrix
	inText     bool
}

type traceRun struct {
	pc      *geometry.PageContent
	res     Resources
	gs      graphicsState
	ts      textState
	marked  []int // MCID per open marked-content sequence, -1 when none
	path    geometry.Rect
	hasPath bool
	newLine bool
}

// Trace runs ops and accumulates results into a PageContent for page.
// Unbalanced q/Q is tolerated: the stack error is reported after tracing
// completes, together with the partial result.
func (t *Tracer) Trace(page int, ops []Operation) (*geometry.PageContent, error) {
	r := &traceRun{
		pc:  geometry.NewPageContent(page),
		res: t.res,
		gs:  graphicsState{ctm: geometry.Identity()},
		ts:  textState{matrix: geometry.Identity(), lineMatrix: geometry.Identity()},
	}
	var firstErr error
	for _, op := range ops {
		if err := r.exec(op); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return r.pc, firstErr
}

func (r *traceRun) currentMCID() int {
	if n := len(r.marked); n > 0 {
		return r.marked[n-1]
	}
	return -1
}

func (r *traceRun) exec(op Operation) error {
	args := op.Operands
	switch op.Operator {
	case "q":
		r.gs.save()
	case "Q":
		return r.gs.restore()
	case "cm":
		if len(args) == 6 {
			r.gs.ctm = geometry.Matrix(operandsToMatrix(args)).Multiply(r.gs.ctm)
		}

	case "BT":
		r.ts.matrix = geometry.Identity()
		r.ts.lineMatrix = geometry.Identity()
		r.ts.inText = true
	case "ET":
		r.ts.inText = false
	case "Tf":
		if len(args) == 2 {
			if name, ok := args[0].(NameOperand); ok {
				r.ts.font = name.Value
			}
			r.ts.size = operandFloat(args[1])
		}
	case "TL":
		if len(args) == 1 {
			r.ts.leading = operandFloat(args[0])
		}
	case "Tm":
		if len(args) == 6 {
			r.ts.lineMatrix = geometry.Matrix(operandsToMatrix(args))
			r.ts.matrix = r.ts.lineMatrix
			r.newLine = true
		}
	case "Td", "TD":
		if len(args) == 2 {
			tx, ty := operandFloat(args[0]), operandFloat(args[1])
			if op.Operator == "TD" {
				r.ts.leading = -ty
			}
			r.moveLine(tx, ty)
		}
	case "T*":
		r.moveLine(0, -r.ts.leading)
	case "Tj":
		if len(args) == 1 {
			if s, ok := args[0].(StringOperand); ok {
				r.showText([]Operand{s})
			}
		}
	case "TJ":
		if len(args) == 1 {
			if arr, ok := args[0].(ArrayOperand); ok {
				r.showText(arr.Values)
			}
		}
	case "'", "\"":
		r.moveLine(0, -r.ts.leading)
		if n := len(args); n > 0 {
			if s, ok := args[n-1].(StringOperand); ok {
				r.showText([]Operand{s})
			}
		}

	case "m", "l":
		if len(args) == 2 {
			r.addPoint(operandFloat(args[0]), operandFloat(args[1]))
		}
	case "c":
		for i := 0; i+1 < len(args); i += 2 {
			r.addPoint(operandFloat(args[i]), operandFloat(args[i+1]))
		}
	case "v", "y":
		for i := 0; i+1 < len(args); i += 2 {
			r.addPoint(operandFloat(args[i]), operandFloat(args[i+1]))
		}
	case "re":
		if len(args) == 4 {
			x, y := operandFloat(args[0]), operandFloat(args[1])
			w, h := operandFloat(args[2]), operandFloat(args[3])
			r.addPoint(x, y)
			r.addPoint(x+w, y+h)
		}
	case "h":
	case "f", "F", "f*", "B", "B*", "b", "b*":
		r.paintPath(true)
	case "S", "s":
		r.paintPath(false)
	case "n":
		r.path, r.hasPath = geometry.Rect{}, false

	case "Do":
		if len(args) == 1 {
			if name, ok := args[0].(NameOperand); ok {
				kind := r.res.XObjectKind(name.Value)
				r.record(r.gs.ctm.TransformRect(geometry.Rect{URX: 1, URY: 1}), kind, "")
			}
		}
	case "BI":
		r.record(r.gs.ctm.TransformRect(geometry.Rect{URX: 1, URY: 1}), geometry.KindImage, "")

	case "BDC":
		r.marked = append(r.marked, r.mcidFromProperties(args))
	case "BMC":
		if len(args) == 1 {
			if tag, ok := args[0].(NameOperand); ok && tag.Value == "Artifact" {
				r.marked = append(r.marked, -1)
				return nil
			}
		}
		r.marked = append(r.marked, r.currentMCID())
	case "EMC":
		if n := len(r.marked); n > 0 {
			r.marked = r.marked[:n-1]
		}
	}
	return nil
}

func (r *traceRun) mcidFromProperties(args []Operand) int {
	if len(args) != 2 {
		return r.currentMCID()
	}
	if tag, ok := args[0].(NameOperand); ok && tag.Value == "Artifact" {
		return -1
	}
	if props, ok := args[1].(DictOperand); ok {
		if v, ok := props.Values["MCID"].(NumberOperand); ok {
			return int(v.Value)
		}
	}
	return r.currentMCID()
}

func (r *traceRun) moveLine(tx, ty float64) {
	r.ts.lineMatrix = geometry.Translate(tx, ty).Multiply(r.ts.lineMatrix)
	r.ts.matrix = r.ts.lineMatrix
	r.newLine = true
}

func (r *traceRun) showText(parts []Operand) {
	var sb strings.Builder
	width := 0.0
	for _, p := range parts {
		switch v := p.(type) {
		case StringOperand:
			sb.WriteString(r.res.DecodeText(r.ts.font, v.Value))
			width += float64(len(v.Value)) * defaultGlyphWidth
		case NumberOperand:
			if v.Value < -200 {
				sb.WriteByte(' ')
			}
			width -= v.Value
		}
	}
	w := width / 1000 * r.ts.size
	m := r.ts.matrix.Multiply(r.gs.ctm)
	rect := m.TransformRect(geometry.Rect{URX: w, URY: r.ts.size})
	text := sb.String()
	r.record(rect, geometry.KindText, text)
	if bulletGlyphs[strings.TrimSpace(text)] {
		r.pc.Bullets = append(r.pc.Bullets, rect.CenterY())
	}
	r.ts.matrix = geometry.Translate(w, 0).Multiply(r.ts.matrix)
}

func (r *traceRun) addPoint(x, y float64) {
	p := r.gs.ctm.Transform(geometry.Point{X: x, Y: y})
	pt := geometry.Rect{LLX: p.X, LLY: p.Y, URX: p.X, URY: p.Y}
	if !r.hasPath {
		r.path, r.hasPath = pt, true
		return
	}
	r.path = geometry.Rect{
		LLX: math.Min(r.path.LLX, pt.LLX),
		LLY: math.Min(r.path.LLY, pt.LLY),
		URX: math.Max(r.path.URX, pt.URX),
		URY: math.Max(r.path.URY, pt.URY),
	}
}

func (r *traceRun) paintPath(fill bool) {
	if !r.hasPath {
		return
	}
	b := r.path
	r.path, r.hasPath = geometry.Rect{}, false
	r.record(b, geometry.KindVector, "")
	if fill && !r.ts.inText && isBulletShape(b) {
		r.pc.Bullets = append(r.pc.Bullets, b.CenterY())
	}
}

func isBulletShape(b geometry.Rect) bool {
	w, h := b.Width(), b.Height()
	if w < bulletMinSize || h < bulletMinSize || w > bulletMaxSize || h > bulletMaxSize {
		return false
	}
	return math.Max(w, h)/math.Min(w, h) <= bulletAspect
}

func (r *traceRun) record(b geometry.Rect, kind geometry.Kind, text string) {
	mcid := r.currentMCID()
	if mcid < 0 {
		return
	}
	s := r.pc.Span(mcid)
	s.Bounds = s.Bounds.Union(b)
	s.Kind = s.Kind.Merge(kind)
	if text == "" {
		return
	}
	if r.newLine && s.Text != "" && !strings.HasSuffix(s.Text, " ") {
		s.Text += " "
	}
	r.newLine = false
	if utf8.ValidString(text) {
		s.Text += text
	}
}
