package mesh

import (
	"testing"

	"go.viam.com/test"

	"warpcal/internal/grid"
	"warpcal/pkg/geometry"
)

func TestResolution(t *testing.T) {
	cases := []struct {
		base, controls, want int
	}{
		{36, 2, 36},
		{36, 3, 36},
		{36, 4, 36},
		{36, 5, 36},
		{36, 6, 35},
		{36, 8, 35},
		{36, 9, 40},
		{10, 20, 19},
		{16, 4, 15},
		{1, 2, 1},
	}
	for _, tc := range cases {
		got := Resolution(tc.base, tc.controls)
		test.That(t, got, test.ShouldEqual, tc.want)
		test.That(t, got%(tc.controls-1), test.ShouldEqual, 0)
	}
}

func TestCatmullRom(t *testing.T) {
	k := [4]geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 3, Y: 3}, {X: 4, Y: 7}}
	test.That(t, CatmullRom(k[0], k[1], k[2], k[3], 0), test.ShouldResemble, k[1])
	end := CatmullRom(k[0], k[1], k[2], k[3], 1)
	test.That(t, end.X, test.ShouldAlmostEqual, k[2].X, 1e-12)
	test.That(t, end.Y, test.ShouldAlmostEqual, k[2].Y, 1e-12)

	// evenly spaced collinear knots are reproduced linearly
	mid := CatmullRom(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 1, Y: 1}, geometry.Point2D{X: 2, Y: 2}, geometry.Point2D{X: 3, Y: 3}, 0.25)
	test.That(t, mid.X, test.ShouldAlmostEqual, 1.25, 1e-12)
	test.That(t, mid.Y, test.ShouldAlmostEqual, 1.25, 1e-12)
}

func TestUniformLattice(t *testing.T) {
	g, err := grid.New(4, 4)
	test.That(t, err, test.ShouldBeNil)

	m, err := NewBuilder().Build(g, Options{
		ResolutionX: 36,
		ResolutionY: 36,
		Width:       1920,
		Height:      1080,
		Tex:         FullTexRect(),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Cols, test.ShouldEqual, 37)
	test.That(t, m.Rows, test.ShouldEqual, 37)
	test.That(t, len(m.Positions), test.ShouldEqual, 37*37)
	test.That(t, m.NumTriangles(), test.ShouldEqual, 2*36*36)

	dx, dy := 1920.0/36, 1080.0/36
	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Cols; x++ {
			p := m.Vertex(x, y)
			test.That(t, p.X, test.ShouldAlmostEqual, float64(x)*dx, 1e-9)
			test.That(t, p.Y, test.ShouldAlmostEqual, float64(y)*dy, 1e-9)
		}
	}
	test.That(t, m.Bounds(), test.ShouldResemble, geometry.NewRect(0, 0, 1920, 1080))
}

func TestUniformLatticeLinear(t *testing.T) {
	g, err := grid.New(3, 5)
	test.That(t, err, test.ShouldBeNil)
	m, err := NewBuilder().Build(g, Options{ResolutionX: 8, ResolutionY: 8, Linear: true, Width: 80, Height: 40, Tex: FullTexRect()})
	test.That(t, err, test.ShouldBeNil)
	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Cols; x++ {
			p := m.Vertex(x, y)
			test.That(t, p.X, test.ShouldAlmostEqual, float64(x)*10, 1e-9)
			test.That(t, p.Y, test.ShouldAlmostEqual, float64(y)*5, 1e-9)
		}
	}
}

func distortedGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(4, 3)
	test.That(t, err, test.ShouldBeNil)
	offsets := []geometry.Point2D{
		{X: 0.02, Y: 0.01}, {X: -0.03, Y: 0.04}, {X: 0.05, Y: -0.02}, {X: 0.01, Y: 0.03},
		{X: 0.04, Y: 0.02}, {X: -0.06, Y: 0.05}, {X: 0.03, Y: -0.04}, {X: -0.02, Y: 0.01},
		{X: 0.01, Y: -0.03}, {X: 0.02, Y: 0.02}, {X: -0.04, Y: 0.01}, {X: 0.03, Y: -0.01},
	}
	for i, d := range offsets {
		test.That(t, g.Move(i, d), test.ShouldBeNil)
	}
	return g
}

func TestKnotsLandOnVertices(t *testing.T) {
	g := distortedGrid(t)
	resX, resY := Resolution(DefaultResolution, 4), Resolution(DefaultResolution, 3)

	for _, mode := range []struct {
		name     string
		linear   bool
		boundary Boundary
	}{
		{"curved extrapolated", false, BoundaryExtrapolate},
		{"curved clamped", false, BoundaryClamp},
		{"linear", true, BoundaryExtrapolate},
	} {
		t.Run(mode.name, func(t *testing.T) {
			m, err := NewBuilder().Build(g, Options{
				ResolutionX: resX, ResolutionY: resY,
				Linear: mode.linear, Boundary: mode.boundary,
				Width: 640, Height: 480, Tex: FullTexRect(),
			})
			test.That(t, err, test.ShouldBeNil)
			stepX, stepY := resX/3, resY/2
			for r := 0; r < 3; r++ {
				for c := 0; c < 4; c++ {
					want := g.At(c, r).Mul(640, 480)
					got := m.Vertex(c*stepX, r*stepY)
					test.That(t, got.X, test.ShouldEqual, want.X)
					test.That(t, got.Y, test.ShouldEqual, want.Y)
				}
			}
		})
	}
}

func TestLinearCellCenter(t *testing.T) {
	g := distortedGrid(t)
	m, err := NewBuilder().Build(g, Options{ResolutionX: 6, ResolutionY: 4, Linear: true, Width: 1, Height: 1, Tex: FullTexRect()})
	test.That(t, err, test.ShouldBeNil)

	// vertex (1,1) is the centre of the first cell
	want := geometry.Lerp(
		geometry.Lerp(g.At(0, 0), g.At(1, 0), 0.5),
		geometry.Lerp(g.At(0, 1), g.At(1, 1), 0.5),
		0.5,
	)
	got := m.Vertex(1, 1)
	test.That(t, got.X, test.ShouldAlmostEqual, want.X, 1e-12)
	test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 1e-12)
}

func TestClampedIdentityStaysInside(t *testing.T) {
	g, err := grid.New(4, 4)
	test.That(t, err, test.ShouldBeNil)
	m, err := NewBuilder().Build(g, Options{ResolutionX: 36, ResolutionY: 36, Boundary: BoundaryClamp, Width: 100, Height: 100, Tex: FullTexRect()})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, m.Bounds(), test.ShouldResemble, geometry.NewRect(0, 0, 100, 100))
	for y := 0; y < m.Rows; y++ {
		for x := 0; x+1 < m.Cols; x++ {
			// columns stay straight and strictly ordered
			test.That(t, m.Vertex(x, y).X, test.ShouldAlmostEqual, m.Vertex(x, 0).X, 1e-9)
			test.That(t, m.Vertex(x+1, y).X, test.ShouldBeGreaterThan, m.Vertex(x, y).X)
		}
	}
}

func TestTexCoords(t *testing.T) {
	g, err := grid.New(2, 2)
	test.That(t, err, test.ShouldBeNil)
	// a flipped sub-rectangle
	tex := TexRect{X1: 0.75, Y1: 0.5, X2: 0.25, Y2: 1}
	m, err := NewBuilder().Build(g, Options{ResolutionX: 4, ResolutionY: 2, Width: 10, Height: 10, Tex: tex})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, m.TexCoords[0], test.ShouldResemble, geometry.Point2D{X: 0.75, Y: 0.5})
	test.That(t, m.TexCoords[len(m.TexCoords)-1], test.ShouldResemble, geometry.Point2D{X: 0.25, Y: 1})
	mid := m.TexCoords[1*m.Cols+2]
	test.That(t, mid.X, test.ShouldAlmostEqual, 0.5, 1e-12)
	test.That(t, mid.Y, test.ShouldAlmostEqual, 0.75, 1e-12)
}

func TestTopologyIsReused(t *testing.T) {
	b := NewBuilder()
	g, err := grid.New(3, 3)
	test.That(t, err, test.ShouldBeNil)
	opts := Options{ResolutionX: 4, ResolutionY: 4, Width: 1, Height: 1, Tex: FullTexRect()}

	m1, err := b.Build(g, opts)
	test.That(t, err, test.ShouldBeNil)
	indices := m1.Indices
	test.That(t, len(indices), test.ShouldEqual, 4*4*6)
	test.That(t, indices[:6], test.ShouldResemble, []uint32{0, 1, 6, 0, 6, 5})

	test.That(t, g.Move(4, geometry.Point2D{X: 0.1, Y: 0.1}), test.ShouldBeNil)
	m2, err := b.Build(g, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, &m2.Indices[0], test.ShouldEqual, &indices[0])

	opts.ResolutionX = 6
	m3, err := b.Build(g, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m3.Cols, test.ShouldEqual, 7)
	test.That(t, len(m3.Indices), test.ShouldEqual, 6*4*6)
}

func TestBuildRejectsBadInput(t *testing.T) {
	g, err := grid.New(2, 2)
	test.That(t, err, test.ShouldBeNil)
	_, err = NewBuilder().Build(g, Options{ResolutionX: 0, ResolutionY: 4})
	test.That(t, err, test.ShouldNotBeNil)
}
