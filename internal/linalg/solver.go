// Package linalg solves the small dense linear systems used by the warp engine.
package linalg

import (
	"math"

	"github.com/pkg/errors"
)

// Epsilon is the smallest pivot magnitude accepted during elimination.
const Epsilon = 1e-12

// ErrSingular is returned when a system has no unique solution, e.g. when the
// points that produced it are collinear or coincident.
var ErrSingular = errors.New("linalg: singular system")

// Solve solves the n×n system held in the row-major n×(n+1) augmented matrix a
// (coefficients followed by the right-hand side) and returns the solution
// vector. The matrix is overwritten with its row-echelon form.
func Solve(a []float64, n int) ([]float64, error) {
	if n <= 0 {
		return nil, errors.Errorf("linalg: invalid system size %d", n)
	}
	cols := n + 1
	if len(a) != n*cols {
		return nil, errors.Errorf("linalg: augmented matrix has %d values, want %d", len(a), n*cols)
	}

	// Forward elimination with partial pivoting
	for i := 0; i < n; i++ {
		pivot := i
		maxAbs := math.Abs(a[i*cols+i])
		for r := i + 1; r < n; r++ {
			if v := math.Abs(a[r*cols+i]); v > maxAbs {
				maxAbs = v
				pivot = r
			}
		}
		if maxAbs < Epsilon || math.IsNaN(maxAbs) {
			return nil, errors.Wrapf(ErrSingular, "zero pivot in column %d", i)
		}
		if pivot != i {
			swapRows(a, cols, i, pivot)
		}

		for r := i + 1; r < n; r++ {
			factor := a[r*cols+i] / a[i*cols+i]
			if factor == 0 {
				continue
			}
			for c := i; c < cols; c++ {
				a[r*cols+c] -= factor * a[i*cols+c]
			}
		}
	}

	// Back substitution
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := a[i*cols+n]
		for c := i + 1; c < n; c++ {
			sum -= a[i*cols+c] * x[c]
		}
		x[i] = sum / a[i*cols+i]
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) {
			return nil, errors.Wrapf(ErrSingular, "non-finite solution in row %d", i)
		}
	}
	return x, nil
}

// Invert returns the inverse of the row-major n×n matrix m using Gauss-Jordan
// elimination with partial pivoting on [m | I]. m is left untouched.
func Invert(m []float64, n int) ([]float64, error) {
	if n <= 0 || len(m) != n*n {
		return nil, errors.Errorf("linalg: cannot invert %d values as %dx%d", len(m), n, n)
	}
	cols := 2 * n
	aug := make([]float64, n*cols)
	for r := 0; r < n; r++ {
		copy(aug[r*cols:r*cols+n], m[r*n:(r+1)*n])
		aug[r*cols+n+r] = 1
	}

	for i := 0; i < n; i++ {
		pivot := i
		maxAbs := math.Abs(aug[i*cols+i])
		for r := i + 1; r < n; r++ {
			if v := math.Abs(aug[r*cols+i]); v > maxAbs {
				maxAbs = v
				pivot = r
			}
		}
		if maxAbs < Epsilon || math.IsNaN(maxAbs) {
			return nil, errors.Wrapf(ErrSingular, "zero pivot in column %d", i)
		}
		if pivot != i {
			swapRows(aug, cols, i, pivot)
		}

		div := aug[i*cols+i]
		for c := 0; c < cols; c++ {
			aug[i*cols+c] /= div
		}
		for r := 0; r < n; r++ {
			if r == i {
				continue
			}
			factor := aug[r*cols+i]
			if factor == 0 {
				continue
			}
			for c := 0; c < cols; c++ {
				aug[r*cols+c] -= factor * aug[i*cols+c]
			}
		}
	}

	inv := make([]float64, n*n)
	for r := 0; r < n; r++ {
		copy(inv[r*n:(r+1)*n], aug[r*cols+n:(r+1)*cols])
	}
	return inv, nil
}

func swapRows(a []float64, cols, r1, r2 int) {
	row1 := a[r1*cols : (r1+1)*cols]
	row2 := a[r2*cols : (r2+1)*cols]
	for c := range row1 {
		row1[c], row2[c] = row2[c], row1[c]
	}
}
