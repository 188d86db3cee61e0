// Package surface interpolates a height map from scattered sample points.
package surface

import (
	"errors"
	"math"

	"github.com/fogleman/delaunay"

	"github.com/mastercactapus/gscan/coord"
)

// ErrTooFewPoints is returned when a mesh cannot be triangulated.
var ErrTooFewPoints = errors.New("need at least 3 points to create a mesh")

// Mesh is a Delaunay triangulation of sample points in the XY plane.
type Mesh struct {
	minX, minY, maxX, maxY float64
	triangles              []coord.Triangle
}

// NewMesh triangulates points. Points sharing an XY position keep the last
// Z seen.
func NewMesh(points []coord.Point) (*Mesh, error) {
	if len(points) < 3 {
		return nil, ErrTooFewPoints
	}

	byXY := make(map[delaunay.Point]coord.Point, len(points))
	points2d := make([]delaunay.Point, 0, len(points))

	mesh := &Mesh{
		minX: points[0].X,
		minY: points[0].Y,
		maxX: points[0].X,
		maxY: points[0].Y,
	}
	for _, p := range points {
		mesh.minX = math.Min(mesh.minX, p.X)
		mesh.minY = math.Min(mesh.minY, p.Y)
		mesh.maxX = math.Max(mesh.maxX, p.X)
		mesh.maxY = math.Max(mesh.maxY, p.Y)

		d := delaunay.Point{X: p.X, Y: p.Y}
		if _, ok := byXY[d]; !ok {
			points2d = append(points2d, d)
		}
		byXY[d] = p
	}
	if len(points2d) < 3 {
		return nil, ErrTooFewPoints
	}
	mesh.minX -= coord.Epsilon
	mesh.minY -= coord.Epsilon
	mesh.maxX += coord.Epsilon
	mesh.maxY += coord.Epsilon

	tri, err := delaunay.Triangulate(points2d)
	if err != nil {
		return nil, err
	}

	mesh.triangles = make([]coord.Triangle, 0, len(tri.Triangles)/3)
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		mesh.triangles = append(mesh.triangles, coord.Triangle{
			A: byXY[tri.Points[tri.Triangles[i]]],
			B: byXY[tri.Points[tri.Triangles[i+1]]],
			C: byXY[tri.Points[tri.Triangles[i+2]]],
		})
	}

	return mesh, nil
}

// Triangles returns the number of triangles in the mesh.
func (m *Mesh) Triangles() int { return len(m.triangles) }

// HeightAt interpolates Z at (x,y). It returns false outside the sampled area.
func (m *Mesh) HeightAt(x, y float64) (float64, bool) {
	if x < m.minX || m.maxX < x || y < m.minY || m.maxY < y {
		return 0, false
	}
	for _, t := range m.triangles {
		if !t.ContainsXY(x, y) {
			continue
		}
		return t.Z(x, y), true
	}

	return 0, false
}
