package kepler

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Frame is the direction cosine matrix taking perifocal coordinates of one
// orbit into ECI. It is the transpose of the 3-1-3 Euler rotation (Omega, i, omega):
//
//	Q = R3(Omega)^T * R1(i)^T * R3(omega)^T
type Frame struct {
	q *mat.Dense
}

// NewFrame builds the perifocal-to-ECI rotation for the given RAAN,
// inclination and argument of perigee (radians).
func NewFrame(raan, inc, argPerigee float64) Frame {
	var q, tmp mat.Dense
	tmp.Mul(r3(raan).T(), r1(inc).T())
	q.Mul(&tmp, r3(argPerigee).T())
	return Frame{q: &q}
}

// r3 is the frame rotation about the Z axis by theta.
func r3(theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})
}

// r1 is the frame rotation about the X axis by theta.
func r1(theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, s,
		0, -s, c,
	})
}

// Apply rotates a perifocal vector into ECI.
func (f Frame) Apply(x, y, z float64) (float64, float64, float64) {
	q := f.q
	return q.At(0, 0)*x + q.At(0, 1)*y + q.At(0, 2)*z,
		q.At(1, 0)*x + q.At(1, 1)*y + q.At(1, 2)*z,
		q.At(2, 0)*x + q.At(2, 1)*y + q.At(2, 2)*z
}

// Matrix exposes the rotation as a read-only gonum matrix.
func (f Frame) Matrix() mat.Matrix {
	return f.q
}
