package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint_Add(t *testing.T) {
	a := Point{X: 1, Y: 2, Z: 3}
	b := Point{X: 4, Y: 5, Z: 6}

	assert.Equal(t, Point{X: 5, Y: 7, Z: 9}, a.Add(b))
}

func TestPoint_Distance(t *testing.T) {
	d := Point{X: 1, Y: 2, Z: 3}.Distance(Point{X: 4, Y: 6, Z: 3})
	assert.InEpsilon(t, 5, d, .0001)
}

func TestPoint_DistanceXY(t *testing.T) {
	dist := Point{X: 1, Y: 2, Z: 3}.DistanceXY(4, 5)
	assert.InEpsilon(t, 4.24264, dist, .01)
}

func TestTriangle_ContainsXY(t *testing.T) {
	tri := Triangle{
		A: Point{X: 0, Y: 0},
		B: Point{X: 10, Y: 0},
		C: Point{X: 0, Y: 10},
	}

	assert.True(t, tri.ContainsXY(1, 1))
	assert.True(t, tri.ContainsXY(0, 0))
	assert.False(t, tri.ContainsXY(8, 8))
}

func TestTriangle_Z(t *testing.T) {
	// plane rising 1mm Z per 1mm X
	tri := Triangle{
		A: Point{X: 0, Y: 0, Z: 0},
		B: Point{X: 10, Y: 0, Z: 10},
		C: Point{X: 0, Y: 10, Z: 0},
	}

	assert.InDelta(t, 5, tri.Z(5, 2), .0001)
}
