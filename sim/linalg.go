package sim

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Rank tolerances for the 3x3 factorizations
const (
	degenerateAbs = 1e-12
	degenerateRel = 1e-8
)

// addOuter accumulates w·a·bᵗ into m
func addOuter(m *r3.Mat, w float64, a, b r3.Vec) {
	var o r3.Mat
	o.Outer(w, a, b)
	m.Add(m, &o)
}

func finiteMat(m mat.Matrix) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// polarRotation returns the rotation factor R of the polar decomposition A = R·S.
// When A has rank below 2 the rotation is not determined and identity is returned with ok=false.
func polarRotation(a *r3.Mat) (*r3.Mat, bool) {
	if !finiteMat(a) {
		return r3.Eye(), false
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return r3.Eye(), false
	}
	s := svd.Values(nil)
	if s[0] <= degenerateAbs || s[1] <= degenerateRel*s[0] {
		return r3.Eye(), false
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r := r3.NewMat(nil)
	r.Mul(&u, v.T())

	// Reflection: flip the axis of the smallest singular value
	if r.Det() < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}
	return r, true
}

// eigenSym factorizes the symmetric part of m, eigenvalues ascending
func eigenSym(m *r3.Mat) (vals []float64, vecs *mat.Dense, ok bool) {
	sd := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			sd.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}

	var es mat.EigenSym
	if !es.Factorize(sd, true) {
		return nil, nil, false
	}
	vecs = mat.NewDense(3, 3, nil)
	es.VectorsTo(vecs)
	return es.Values(nil), vecs, true
}

func column(m *mat.Dense, j int) r3.Vec {
	return r3.Vec{X: m.At(0, j), Y: m.At(1, j), Z: m.At(2, j)}
}

// pseudoInverseSym inverts a symmetric matrix on its range, dropping near-null directions
func pseudoInverseSym(m *r3.Mat) *r3.Mat {
	inv := r3.NewMat(nil)
	vals, vecs, ok := eigenSym(m)
	if !ok {
		return inv
	}
	maxAbs := 0.0
	for _, l := range vals {
		maxAbs = math.Max(maxAbs, math.Abs(l))
	}
	if maxAbs <= degenerateAbs {
		return inv
	}
	for k, l := range vals {
		if math.Abs(l) <= degenerateRel*maxAbs {
			continue
		}
		e := column(vecs, k)
		addOuter(inv, 1/l, e, e)
	}
	return inv
}

// principalAxis returns the unit eigenvector of the symmetric part of m with the largest
// absolute eigenvalue, and that eigenvalue
func principalAxis(m *r3.Mat) (r3.Vec, float64, bool) {
	vals, vecs, ok := eigenSym(m)
	if !ok {
		return r3.Vec{}, 0, false
	}
	best := 0
	for k := range vals {
		if math.Abs(vals[k]) > math.Abs(vals[best]) {
			best = k
		}
	}
	if math.Abs(vals[best]) <= degenerateAbs {
		return r3.Vec{}, 0, false
	}
	return r3.Unit(column(vecs, best)), vals[best], true
}
