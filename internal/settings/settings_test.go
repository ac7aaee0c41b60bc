package settings

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"warpcal/internal/warp"
	"warpcal/pkg/geometry"
)

func sampleWarps(t *testing.T) []*warp.Warp {
	t.Helper()

	bilinear, err := warp.NewBilinear(1920, 1080)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bilinear.SetNumControl(4, 3), test.ShouldBeNil)
	test.That(t, bilinear.MoveControlPoint(5, geometry.Point2D{X: 13.25, Y: -7.125}), test.ShouldBeNil)
	test.That(t, bilinear.MoveControlPoint(0, geometry.Point2D{X: 1.0 / 3, Y: 0.1}), test.ShouldBeNil)
	bilinear.SetLinear(true)
	bilinear.SetTexCoords(1, 0, 0, 1)
	bilinear.SetBrightness(0.8)
	bilinear.SetResolution(20)

	perspective, err := warp.NewPerspective(1280, 720)
	test.That(t, err, test.ShouldBeNil)
	for i, p := range [4]geometry.Point2D{{X: 10, Y: 10}, {X: 1200, Y: 40}, {X: 30, Y: 700}, {X: 1250, Y: 690}} {
		test.That(t, perspective.SetControlPoint(i, p), test.ShouldBeNil)
	}

	composite, err := warp.NewPerspectiveBilinear(800, 600)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, composite.SetNumControl(3, 3), test.ShouldBeNil)
	test.That(t, composite.SetControlPoint(2, geometry.Point2D{X: 780, Y: 15}), test.ShouldBeNil)
	test.That(t, composite.SetControlPoint(4, geometry.Point2D{X: 410, Y: 290}), test.ShouldBeNil)
	composite.SetAdaptive(true)

	return []*warp.Warp{bilinear, perspective, composite}
}

func TestRoundTrip(t *testing.T) {
	warps := sampleWarps(t)

	var buf bytes.Buffer
	test.That(t, Write(&buf, warps), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldStartWith, "<?xml")
	test.That(t, buf.String(), test.ShouldContainSubstring, `method="perspectivebilinear"`)

	loaded, err := Read(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(loaded), test.ShouldEqual, len(warps))

	for i, want := range warps {
		got := loaded[i]
		test.That(t, got.Kind(), test.ShouldEqual, want.Kind())
		test.That(t, got.ID(), test.ShouldEqual, want.ID())
		test.That(t, got.Size(), test.ShouldResemble, want.Size())
		test.That(t, got.Brightness(), test.ShouldEqual, want.Brightness())
		test.That(t, got.IsLinear(), test.ShouldEqual, want.IsLinear())
		test.That(t, got.IsAdaptive(), test.ShouldEqual, want.IsAdaptive())
		test.That(t, got.Resolution(), test.ShouldEqual, want.Resolution())
		test.That(t, got.TexCoords(), test.ShouldResemble, want.TexCoords())
		test.That(t, got.GridPoints(), test.ShouldResemble, want.GridPoints())
		test.That(t, got.ControlPoints(), test.ShouldResemble, want.ControlPoints())

		if nested := want.Perspective(); nested != nil {
			test.That(t, got.Perspective().GridPoints(), test.ShouldResemble, nested.GridPoints())
			test.That(t, got.Perspective().ID(), test.ShouldEqual, got.ID())
		}
	}
}

func TestReadDefaultsAndErrors(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<profile>
  <map>
    <warp method="bilinear" width="640" height="480">
      <controlpoint x="0" y="0"/>
      <controlpoint x="1" y="0"/>
      <controlpoint x="0" y="1"/>
      <controlpoint x="1" y="1"/>
    </warp>
    <warp method="spherical" width="640" height="480"/>
    <warp method="bilinear" width="640" height="480" columns="3" rows="3">
      <controlpoint x="0" y="0"/>
    </warp>
    <warp method="perspectivebilinear" width="640" height="480">
      <controlpoint x="0" y="0"/>
      <controlpoint x="1" y="0"/>
      <controlpoint x="0" y="1"/>
      <controlpoint x="1" y="1"/>
    </warp>
  </map>
</profile>`

	warps, err := Read(strings.NewReader(doc))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 3)
	test.That(t, err.Error(), test.ShouldContainSubstring, "warp 1")
	test.That(t, err.Error(), test.ShouldContainSubstring, "warp 3")

	test.That(t, len(warps), test.ShouldEqual, 1)
	w := warps[0]
	test.That(t, w.Brightness(), test.ShouldEqual, 1.0)
	test.That(t, w.TexCoords().X2, test.ShouldEqual, 1.0)
	test.That(t, w.Resolution(), test.ShouldEqual, 36)
	test.That(t, w.Corners(), test.ShouldResemble, [4]geometry.Point2D{{X: 0, Y: 0}, {X: 640, Y: 0}, {X: 0, Y: 480}, {X: 640, Y: 480}})
}

func TestReadMalformed(t *testing.T) {
	_, err := Read(strings.NewReader("<profile><map>"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.xml")
	warps := sampleWarps(t)
	test.That(t, WriteFile(path, warps), test.ShouldBeNil)
	// overwriting replaces the previous profile
	test.That(t, WriteFile(path, warps[:1]), test.ShouldBeNil)

	loaded, err := ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(loaded), test.ShouldEqual, 1)
	test.That(t, loaded[0].GridPoints(), test.ShouldResemble, warps[0].GridPoints())

	data, err := Marshal(warps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, WriteBytes(path, data), test.ShouldBeNil)
	written, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, written, test.ShouldResemble, data)
	loaded, err = ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(loaded), test.ShouldEqual, len(warps))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.xml"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, WriteBytes(filepath.Join(t.TempDir(), "no", "such", "dir.xml"), data), test.ShouldNotBeNil)
}
