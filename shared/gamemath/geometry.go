package gamemath

import "math"

// GeometryKind tags the active variant of a Geometry.
type GeometryKind uint8

const (
	GeometryRectangle GeometryKind = iota + 1
	GeometryCircle
)

func (k GeometryKind) String() string {
	switch k {
	case GeometryRectangle:
		return "rectangle"
	case GeometryCircle:
		return "circle"
	}
	return "unknown"
}

// Geometry is a tagged variant: Rectangle{HalfWidth, HalfHeight} or
// Circle{Radius}. Only the fields of the active Kind are meaningful. It is a
// plain struct so it travels over the wire unchanged.
type Geometry struct {
	Kind       GeometryKind
	HalfWidth  float64
	HalfHeight float64
	Radius     float64
}

// Rectangle builds a rectangle geometry from half extents.
func Rectangle(halfWidth, halfHeight float64) Geometry {
	return Geometry{Kind: GeometryRectangle, HalfWidth: halfWidth, HalfHeight: halfHeight}
}

// Circle builds a circle geometry.
func Circle(radius float64) Geometry {
	return Geometry{Kind: GeometryCircle, Radius: radius}
}

// BoundingRadius is the radius of the smallest circle around the shape.
func (g Geometry) BoundingRadius() float64 {
	if g.Kind == GeometryCircle {
		return g.Radius
	}
	return math.Hypot(g.HalfWidth, g.HalfHeight)
}

// Extents returns the half size of the axis-aligned box around the unrotated shape.
func (g Geometry) Extents() (halfW, halfH float64) {
	if g.Kind == GeometryCircle {
		return g.Radius, g.Radius
	}
	return g.HalfWidth, g.HalfHeight
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	Min, Max Vec2
}

// RectFromXYWH builds a Rect from a top-left corner and size.
func RectFromXYWH(x, y, w, h float64) Rect {
	return Rect{Min: Vec2{x, y}, Max: Vec2{x + w, y + h}}
}

func (r Rect) Width() float64 { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }
func (r Rect) Center() Vec2 { return r.Min.Lerp(r.Max, 0.5) }

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// ContainsCircle reports whether the whole circle lies inside r.
func (r Rect) ContainsCircle(center Vec2, radius float64) bool {
	return center.X-radius >= r.Min.X && center.X+radius <= r.Max.X &&
		center.Y-radius >= r.Min.Y && center.Y+radius <= r.Max.Y
}

// Overlap tests two placed shapes. normal points from a towards b; depth is
// the penetration distance. In a rectangle pair the smaller shape is
// approximated by its bounding circle.
func Overlap(a Transform, ga Geometry, b Transform, gb Geometry) (normal Vec2, depth float64, ok bool) {
	switch {
	case ga.Kind == GeometryRectangle && gb.Kind == GeometryCircle:
		return overlapBoxCircle(a, ga, b.Pos, gb.Radius)
	case ga.Kind == GeometryCircle && gb.Kind == GeometryRectangle:
		n, d, hit := overlapBoxCircle(b, gb, a.Pos, ga.Radius)
		return n.Scale(-1), d, hit
	case ga.Kind == GeometryRectangle && gb.Kind == GeometryRectangle:
		if ga.BoundingRadius() <= gb.BoundingRadius() {
			n, d, hit := overlapBoxCircle(b, gb, a.Pos, ga.BoundingRadius())
			return n.Scale(-1), d, hit
		}
		return overlapBoxCircle(a, ga, b.Pos, gb.BoundingRadius())
	default:
		return overlapCircles(a.Pos, ga.BoundingRadius(), b.Pos, gb.BoundingRadius())
	}
}

func overlapCircles(a Vec2, ra float64, b Vec2, rb float64) (Vec2, float64, bool) {
	d := b.Sub(a)
	dist := d.Len()
	if dist >= ra+rb {
		return Vec2{}, 0, false
	}
	n := d.Normalize()
	if n.IsZero() {
		n = Vec2{1, 0}
	}
	return n, ra + rb - dist, true
}

// overlapBoxCircle tests an oriented box against a circle; the normal points
// from the box to the circle.
func overlapBoxCircle(box Transform, g Geometry, c Vec2, radius float64) (Vec2, float64, bool) {
	local := c.Sub(box.Pos).Rotate(-box.Angle)
	closest := Vec2{
		X: math.Max(-g.HalfWidth, math.Min(g.HalfWidth, local.X)),
		Y: math.Max(-g.HalfHeight, math.Min(g.HalfHeight, local.Y)),
	}
	diff := local.Sub(closest)
	dist := diff.Len()
	if dist >= radius {
		return Vec2{}, 0, false
	}
	if dist == 0 {
		// Center inside the box: push out along the shallowest axis.
		dx := g.HalfWidth - math.Abs(local.X)
		dy := g.HalfHeight - math.Abs(local.Y)
		n := Vec2{math.Copysign(1, local.X), 0}
		depth := dx + radius
		if dy < dx {
			n = Vec2{0, math.Copysign(1, local.Y)}
			depth = dy + radius
		}
		return n.Rotate(box.Angle), depth, true
	}
	return diff.Scale(1 / dist).Rotate(box.Angle), radius - dist, true
}
