// Package settings reads and writes warp calibration profiles.
//
// A profile is an XML document listing every warp with its kind, content
// size, display options and normalized control points:
//
//	<profile>
//	  <map>
//	    <warp method="bilinear" width="1920" height="1080" columns="2" rows="2" ...>
//	      <controlpoint x="0" y="0"/>
//	      ...
//	    </warp>
//	  </map>
//	</profile>
//
// Composite warps nest a perspective warp element holding their four corners.
package settings

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"warpcal/internal/logging"
	"warpcal/internal/mesh"
	"warpcal/internal/warp"
	"warpcal/pkg/geometry"
)

type document struct {
	XMLName xml.Name   `xml:"profile"`
	Map     mapElement `xml:"map"`
}

type mapElement struct {
	Warps []warpElement `xml:"warp"`
}

type warpElement struct {
	Method     string  `xml:"method,attr"`
	ID         string  `xml:"id,attr,omitempty"`
	Width      float64 `xml:"width,attr"`
	Height     float64 `xml:"height,attr"`
	Brightness float64 `xml:"brightness,attr"`
	Columns    int     `xml:"columns,attr"`
	Rows       int     `xml:"rows,attr"`
	Resolution int     `xml:"resolution,attr"`
	Linear     bool    `xml:"linear,attr"`
	Adaptive   bool    `xml:"adaptive,attr"`
	X1         float64 `xml:"x1,attr"`
	Y1         float64 `xml:"y1,attr"`
	X2         float64 `xml:"x2,attr"`
	Y2         float64 `xml:"y2,attr"`

	Points      []pointElement `xml:"controlpoint"`
	Perspective *warpElement   `xml:"warp,omitempty"`
}

type pointElement struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

// UnmarshalXML fills in defaults for attributes missing from older profiles.
func (e *warpElement) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain warpElement
	p := plain{
		Brightness: warp.DefaultBrightness,
		Columns:    warp.DefaultControls,
		Rows:       warp.DefaultControls,
		Resolution: mesh.DefaultResolution,
		X2:         1,
		Y2:         1,
	}
	if err := d.DecodeElement(&p, &start); err != nil {
		return err
	}
	*e = warpElement(p)
	return nil
}

// Read decodes a profile. Warps that fail to load are skipped and their
// errors combined; the valid warps are still returned.
func Read(r io.Reader) ([]*warp.Warp, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding profile")
	}

	var (
		warps []*warp.Warp
		errs  error
	)
	for i := range doc.Map.Warps {
		w, err := doc.Map.Warps[i].toWarp()
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "warp %d", i))
			continue
		}
		warps = append(warps, w)
	}
	return warps, errs
}

// Write encodes warps as a profile.
func Write(out io.Writer, warps []*warp.Warp) error {
	doc := document{}
	for _, w := range warps {
		doc.Map.Warps = append(doc.Map.Warps, fromWarp(w))
	}

	if _, err := io.WriteString(out, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding profile")
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(out, "\n")
	return err
}

// ReadFile loads a profile from path.
func ReadFile(path string) ([]*warp.Warp, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	warps, err := Read(f)
	if err != nil {
		return warps, errors.Wrapf(err, "reading %s", path)
	}
	logging.Named("settings").Infow("profile loaded", "path", path, "warps", len(warps))
	return warps, nil
}

// WriteFile saves a profile to path, replacing it atomically.
func WriteFile(path string, warps []*warp.Warp) error {
	data, err := Marshal(warps)
	if err != nil {
		return err
	}
	return WriteBytes(path, data)
}

// Marshal encodes warps as a profile document.
func Marshal(warps []*warp.Warp) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, warps); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteBytes replaces the file at path with an encoded profile through a
// temporary file in the same directory.
func WriteBytes(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return multierr.Combine(err, tmp.Close(), os.Remove(tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return multierr.Append(err, os.Remove(tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return multierr.Append(err, os.Remove(tmp.Name()))
	}
	logging.Named("settings").Infow("profile saved", "path", path, "bytes", len(data))
	return nil
}

func fromWarp(w *warp.Warp) warpElement {
	cols, rows := w.Controls()
	tex := w.TexCoords()
	e := warpElement{
		Method:     w.Kind().String(),
		ID:         w.ID().String(),
		Width:      w.Size().Width,
		Height:     w.Size().Height,
		Brightness: w.Brightness(),
		Columns:    cols,
		Rows:       rows,
		Resolution: w.Resolution(),
		Linear:     w.IsLinear(),
		Adaptive:   w.IsAdaptive(),
		X1:         tex.X1,
		Y1:         tex.Y1,
		X2:         tex.X2,
		Y2:         tex.Y2,
	}
	for _, p := range w.GridPoints() {
		e.Points = append(e.Points, pointElement{X: p.X, Y: p.Y})
	}
	if nested := w.Perspective(); nested != nil {
		ne := fromWarp(nested)
		ne.ID = ""
		e.Perspective = &ne
	}
	return e
}

func (e *warpElement) toWarp() (*warp.Warp, error) {
	kind := warp.ParseKind(e.Method)
	w, err := warp.New(kind, e.Width, e.Height)
	if err != nil {
		return nil, errors.Wrapf(err, "method %q", e.Method)
	}
	if err := e.apply(w); err != nil {
		return nil, err
	}

	if kind == warp.KindPerspectiveBilinear {
		if e.Perspective == nil {
			return nil, errors.New("composite warp without perspective corners")
		}
		if err := e.Perspective.apply(w.Perspective()); err != nil {
			return nil, errors.Wrap(err, "perspective corners")
		}
	}
	return w, nil
}

// apply copies the element state onto an existing warp.
func (e *warpElement) apply(w *warp.Warp) error {
	if e.ID != "" {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			return errors.Wrapf(err, "id %q", e.ID)
		}
		w.SetID(id)
	}
	pts := make([]geometry.Point2D, len(e.Points))
	for i, p := range e.Points {
		pts[i] = geometry.Point2D{X: p.X, Y: p.Y}
	}
	if err := w.SetGridPoints(e.Columns, e.Rows, pts); err != nil {
		return err
	}
	w.SetBrightness(e.Brightness)
	w.SetResolution(e.Resolution)
	w.SetLinear(e.Linear)
	w.SetAdaptive(e.Adaptive)
	w.SetTexCoords(e.X1, e.Y1, e.X2, e.Y2)
	return nil
}
