package geometry

import "math"

// Rect is an axis-aligned rectangle in PDF user space (y grows upward).
type Rect struct {
	LLX, LLY, URX, URY float64
}

func (r Rect) Width() float64  { return r.URX - r.LLX }
func (r Rect) Height() float64 { return r.URY - r.LLY }

// Empty reports whether r has no area and no extent.
func (r Rect) Empty() bool { return r.URX <= r.LLX && r.URY <= r.LLY }

// Union returns the smallest rectangle covering r and o. An empty operand is
// ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		LLX: math.Min(r.LLX, o.LLX),
		LLY: math.Min(r.LLY, o.LLY),
		URX: math.Max(r.URX, o.URX),
		URY: math.Max(r.URY, o.URY),
	}
}

// Intersect returns the overlap of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	x := Rect{
		LLX: math.Max(r.LLX, o.LLX),
		LLY: math.Max(r.LLY, o.LLY),
		URX: math.Min(r.URX, o.URX),
		URY: math.Min(r.URY, o.URY),
	}
	if x.URX <= x.LLX || x.URY <= x.LLY {
		return Rect{}
	}
	return x
}

func (r Rect) Area() float64 {
	if r.URX <= r.LLX || r.URY <= r.LLY {
		return 0
	}
	return r.Width() * r.Height()
}

// CenterY returns the vertical midpoint.
func (r Rect) CenterY() float64 { return (r.LLY + r.URY) / 2 }

// SpansY reports whether y lies within the vertical extent of r widened by tol.
func (r Rect) SpansY(y, tol float64) bool { return y >= r.LLY-tol && y <= r.URY+tol }

// Distance returns the gap between r and o, zero when they touch or overlap.
func (r Rect) Distance(o Rect) float64 {
	dx := math.Max(0, math.Max(o.LLX-r.URX, r.LLX-o.URX))
	dy := math.Max(0, math.Max(o.LLY-r.URY, r.LLY-o.URY))
	return math.Hypot(dx, dy)
}

// Matrix is a PDF affine transform [a b c d e f].
type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

// Multiply returns m × o (apply m first, then o).
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

type Point struct{ X, Y float64 }

func (m Matrix) Transform(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

// TransformRect maps the corners of r through m and returns their bounds.
func (m Matrix) TransformRect(r Rect) Rect {
	return Bounds(
		m.Transform(Point{r.LLX, r.LLY}),
		m.Transform(Point{r.URX, r.LLY}),
		m.Transform(Point{r.LLX, r.URY}),
		m.Transform(Point{r.URX, r.URY}),
	)
}

// Bounds returns the rectangle enclosing points.
func Bounds(points ...Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{LLX: minX, LLY: minY, URX: maxX, URY: maxY}
}
