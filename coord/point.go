package coord

import "strconv"

// Point is a position in machine space, in millimeters.
type Point struct{ X, Y, Z float64 }

// PointFrom builds a Point from the first three values of v.
//
// It returns false if v has fewer than 3 elements.
func PointFrom(v []float64) (Point, bool) {
	if len(v) < 3 {
		return Point{}, false
	}
	return Point{X: v[0], Y: v[1], Z: v[2]}, true
}

func (p Point) Cross(op Point) Point {
	return Point{
		p.Y*op.Z - p.Z*op.Y,
		p.Z*op.X - p.X*op.Z,
		p.X*op.Y - p.Y*op.X,
	}
}
func (p Point) Dot(op Point) float64 {
	return p.X*op.X + p.Y*op.Y + p.Z*op.Z
}

// Add will add the target values to p.
func (p Point) Add(target Point) Point {
	p.X += target.X
	p.Y += target.Y
	p.Z += target.Z
	return p
}

// Sub will subtract the target values from p.
func (p Point) Sub(target Point) Point {
	p.X -= target.X
	p.Y -= target.Y
	p.Z -= target.Z
	return p
}

func (p Point) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	return f(p.X) + "," + f(p.Y) + "," + f(p.Z)
}
