package leveler

import (
	"testing"

	"github.com/cncio/gsend/coord"
	"github.com/stretchr/testify/assert"
)

func TestMesh_OffsetZ(t *testing.T) {
	// surface rises .3mm Z for every 1mm X
	probes := []coord.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 100, Z: 0},
		{X: 100, Y: 0, Z: 30},
		{X: 100, Y: 100, Z: 30},
	}

	mesh, err := NewMesh(probes)
	assert.NoError(t, err)

	ok, z := mesh.OffsetZ(50, 50)
	assert.True(t, ok)
	assert.InDelta(t, 15, z, .0001)

	ok, _ = mesh.OffsetZ(150, 50)
	assert.False(t, ok)
}

func TestNewMesh_TooFewPoints(t *testing.T) {
	_, err := NewMesh([]coord.Point{{X: 1}, {X: 2}})
	assert.Error(t, err)
}
