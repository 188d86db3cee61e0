package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/gscan/coord"
)

func TestMesh_HeightAt(t *testing.T) {
	// a slope rising 30mm over 100mm of X
	mesh, err := NewMesh([]coord.Point{
		{X: -700, Y: -450, Z: -80},
		{X: -700, Y: -550, Z: -80},

		{X: -600, Y: -450, Z: -50},
		{X: -600, Y: -550, Z: -50},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, mesh.Triangles())

	z, ok := mesh.HeightAt(-650, -500)
	assert.True(t, ok)
	assert.InDelta(t, -65, z, 0.0001)

	z, ok = mesh.HeightAt(-700, -450)
	assert.True(t, ok)
	assert.InDelta(t, -80, z, 0.0001)

	_, ok = mesh.HeightAt(0, 0)
	assert.False(t, ok)
}

func TestNewMesh_TooFew(t *testing.T) {
	_, err := NewMesh([]coord.Point{{X: 1}, {X: 2}})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = NewMesh([]coord.Point{{X: 1}, {X: 1, Z: 2}, {X: 2}})
	assert.ErrorIs(t, err, ErrTooFewPoints)
}
