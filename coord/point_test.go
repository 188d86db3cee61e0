package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint_Add(t *testing.T) {
	a := Point{X: 1, Y: 2, Z: 3}
	b := Point{X: 4, Y: 5, Z: 6}

	assert.Equal(t, Point{X: 5, Y: 7, Z: 9}, a.Add(b))
	assert.Equal(t, a, a.Add(b).Sub(b))
}

func TestPoint_Cross(t *testing.T) {
	x := Point{X: 1}
	y := Point{Y: 1}
	assert.Equal(t, Point{Z: 1}, x.Cross(y))
	assert.Equal(t, 0.0, x.Dot(y))
}

func TestPointFrom(t *testing.T) {
	p, ok := PointFrom([]float64{1, 2, 3, 4})
	assert.True(t, ok)
	assert.Equal(t, Point{X: 1, Y: 2, Z: 3}, p)

	_, ok = PointFrom([]float64{1, 2})
	assert.False(t, ok)
}

func TestPoint_String(t *testing.T) {
	assert.Equal(t, "1.000,-2.500,0.000", Point{X: 1, Y: -2.5}.String())
}
