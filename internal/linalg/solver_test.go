package linalg

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestSolve(t *testing.T) {
	t.Run("3x3", func(t *testing.T) {
		// 2x + y - z = 8, -3x - y + 2z = -11, -2x + y + 2z = -3
		a := []float64{
			2, 1, -1, 8,
			-3, -1, 2, -11,
			-2, 1, 2, -3,
		}
		x, err := Solve(a, 3)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, x[0], test.ShouldAlmostEqual, 2, 1e-12)
		test.That(t, x[1], test.ShouldAlmostEqual, 3, 1e-12)
		test.That(t, x[2], test.ShouldAlmostEqual, -1, 1e-12)
	})

	t.Run("needs pivoting", func(t *testing.T) {
		a := []float64{
			0, 1, 2,
			1, 0, 3,
		}
		x, err := Solve(a, 2)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, x, test.ShouldResemble, []float64{3, 2})
	})

	t.Run("matches gonum", func(t *testing.T) {
		coeffs := []float64{
			4, -2, 1, 3, 0.5,
			3, 6, -4, 2, 1,
			2, 1, 8, -5, 2,
			1, 3, 2, 7, -1,
			-1, 0.5, 3, 2, 9,
		}
		rhs := []float64{1, 2, 3, 4, 5}
		aug := make([]float64, 0, 30)
		for r := 0; r < 5; r++ {
			aug = append(aug, coeffs[r*5:(r+1)*5]...)
			aug = append(aug, rhs[r])
		}
		x, err := Solve(aug, 5)
		test.That(t, err, test.ShouldBeNil)

		var want mat.VecDense
		err = want.SolveVec(mat.NewDense(5, 5, coeffs), mat.NewVecDense(5, rhs))
		test.That(t, err, test.ShouldBeNil)
		for i := range x {
			test.That(t, x[i], test.ShouldAlmostEqual, want.AtVec(i), 1e-9)
		}
	})

	t.Run("singular", func(t *testing.T) {
		a := []float64{
			1, 2, 3,
			2, 4, 6,
		}
		_, err := Solve(a, 2)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrSingular), test.ShouldBeTrue)
	})

	t.Run("bad shape", func(t *testing.T) {
		_, err := Solve([]float64{1, 2, 3}, 2)
		test.That(t, err, test.ShouldNotBeNil)
		_, err = Solve(nil, 0)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestInvert(t *testing.T) {
	m := []float64{
		2, 0, 1,
		1, 3, 2,
		1, 1, 2,
	}
	inv, err := Invert(m, 3)
	test.That(t, err, test.ShouldBeNil)

	var product mat.Dense
	product.Mul(mat.NewDense(3, 3, m), mat.NewDense(3, 3, inv))
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := 0.0
			if r == c {
				want = 1
			}
			test.That(t, product.At(r, c), test.ShouldAlmostEqual, want, 1e-12)
		}
	}

	_, err = Invert([]float64{1, 2, 2, 4}, 2)
	test.That(t, errors.Is(err, ErrSingular), test.ShouldBeTrue)
}
