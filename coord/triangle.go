package coord

// Epsilon is the max error when checking containment.
const Epsilon = 0.001

type Triangle struct{ A, B, C Point }

// ContainsXY returns true if the 2D projection of the triangle
// has the point x,y. Points within Epsilon of an edge count.
func (t Triangle) ContainsXY(x, y float64) bool {
	d1 := edgeSide(t.A, t.B, x, y)
	d2 := edgeSide(t.B, t.C, x, y)
	d3 := edgeSide(t.C, t.A, x, y)

	hasNeg := d1 < -Epsilon || d2 < -Epsilon || d3 < -Epsilon
	hasPos := d1 > Epsilon || d2 > Epsilon || d3 > Epsilon

	return !(hasNeg && hasPos)
}

func edgeSide(a, b Point, x, y float64) float64 {
	return (b.Y-a.Y)*(x-a.X) - (b.X-a.X)*(y-a.Y)
}

// Z will give the Z-coordinate on the plane defined by the triangle
// where it intersects x,y.
func (t Triangle) Z(x, y float64) float64 {
	n := t.C.Sub(t.A).Cross(t.B.Sub(t.A))
	d := n.Dot(t.C)

	return (d - n.X*x - n.Y*y) / n.Z
}
