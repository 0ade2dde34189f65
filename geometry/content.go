package geometry

import "fmt"

// Kind classifies what a marked-content sequence paints.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindText
	KindImage
	KindVector
	KindMixed
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindVector:
		return "vector"
	case KindMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Merge combines two observations of the same sequence.
func (k Kind) Merge(o Kind) Kind {
	switch {
	case k == KindUnknown:
		return o
	case o == KindUnknown || o == k:
		return k
	default:
		return KindMixed
	}
}

// Span is what one MCID paints on a page.
type Span struct {
	Bounds Rect
	Text   string
	Kind   Kind
}

// PageContent is the extracted geometry of one page.
type PageContent struct {
	Page     int
	MediaBox Rect
	Spans    map[int]*Span // keyed by MCID
	// Bullets holds the vertical centers of small filled vector shapes drawn
	// outside text objects, in painting order.
	Bullets []float64
}

// NewPageContent returns an empty PageContent for page.
func NewPageContent(page int) *PageContent {
	return &PageContent{Page: page, Spans: make(map[int]*Span)}
}

// Span returns the span for mcid, creating it when absent.
func (pc *PageContent) Span(mcid int) *Span {
	s, ok := pc.Spans[mcid]
	if !ok {
		s = &Span{}
		pc.Spans[mcid] = s
	}
	return s
}

// Extractor is the page geometry/text collaborator. Results must be a pure
// function of the document and page so callers may memoize them.
type Extractor interface {
	ExtractPage(page int) (*PageContent, error)
}

// Static is an in-memory Extractor.
type Static map[int]*PageContent

func (s Static) ExtractPage(page int) (*PageContent, error) {
	pc, ok := s[page]
	if !ok {
		return nil, fmt.Errorf("geometry: no content for page %d", page)
	}
	return pc, nil
}

// Put records a span on page and returns s for chaining.
func (s Static) Put(page, mcid int, span Span) Static {
	pc, ok := s[page]
	if !ok {
		pc = NewPageContent(page)
		s[page] = pc
	}
	cp := span
	pc.Spans[mcid] = &cp
	return s
}

// AddBullets appends bullet y positions to page.
func (s Static) AddBullets(page int, ys ...float64) Static {
	pc, ok := s[page]
	if !ok {
		pc = NewPageContent(page)
		s[page] = pc
	}
	pc.Bullets = append(pc.Bullets, ys...)
	return s
}
