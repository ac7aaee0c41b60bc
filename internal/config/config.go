// Package config holds the tunable defaults of the calibration tools.
package config

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"warpcal/internal/editing"
	"warpcal/internal/mesh"
	"warpcal/internal/render"
	"warpcal/internal/warp"
	"warpcal/pkg/colorutil"
)

// FileName is the default configuration file name.
const FileName = "warpcal.toml"

// Config is the TOML configuration file.
type Config struct {
	LogLevel     string
	SettingsPath string

	Content ContentConfig
	Mesh    MeshConfig
	Editing EditingConfig
	Overlay OverlayConfig
}

// ContentConfig sets the size and grid of new warps.
type ContentConfig struct {
	Width    float64
	Height   float64
	Columns  int
	Rows     int
	WarpKind string
}

// MeshConfig controls mesh density.
type MeshConfig struct {
	Resolution      int
	Adaptive        bool
	AdaptiveSpacing float64
	Linear          bool
}

// EditingConfig holds the interactive editing increments.
type EditingConfig struct {
	PickRadius       float64
	Nudge            float64
	LargeNudge       float64
	BrightnessStep   float64
	ResolutionStep   int
	SelectionPulseMs int
}

// OverlayConfig holds the editor overlay colours as "#rrggbb" or
// "#rrggbbaa".
type OverlayConfig struct {
	Point    string
	Selected string
	Corner   string
	Outline  string
	Wire     string
}

// Default returns the built-in configuration.
func Default() *Config {
	steps := editing.DefaultSteps()
	return &Config{
		LogLevel:     "info",
		SettingsPath: "warps.xml",
		Content: ContentConfig{
			Width:    1920,
			Height:   1080,
			Columns:  warp.DefaultControls,
			Rows:     warp.DefaultControls,
			WarpKind: warp.KindBilinear.String(),
		},
		Mesh: MeshConfig{
			Resolution:      mesh.DefaultResolution,
			AdaptiveSpacing: warp.DefaultAdaptiveSpacing,
		},
		Editing: EditingConfig{
			PickRadius:       steps.PickRadius,
			Nudge:            steps.Nudge,
			LargeNudge:       steps.LargeNudge,
			BrightnessStep:   steps.Brightness,
			ResolutionStep:   steps.Resolution,
			SelectionPulseMs: 1000,
		},
		Overlay: OverlayConfig{
			Point:    "#ffffff",
			Selected: "#ffff00",
			Corner:   "#ff00ff",
			Outline:  "#00ffff",
			Wire:     "#009900",
		},
	}
}

// Load reads a configuration file on top of the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return errors.Wrap(err, "encoding config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var err error
	if c.Content.Width <= 0 || c.Content.Height <= 0 {
		err = multierr.Append(err, errors.Errorf("content size %gx%g must be positive", c.Content.Width, c.Content.Height))
	}
	if c.Content.Columns < 2 || c.Content.Rows < 2 {
		err = multierr.Append(err, errors.Errorf("control grid %dx%d must be at least 2x2", c.Content.Columns, c.Content.Rows))
	}
	if warp.ParseKind(c.Content.WarpKind) == warp.KindUnknown {
		err = multierr.Append(err, errors.Errorf("unknown warp kind %q", c.Content.WarpKind))
	}
	if c.Mesh.Resolution < 1 || c.Mesh.Resolution > warp.MaxResolution {
		err = multierr.Append(err, errors.Errorf("mesh resolution %d out of range [1, %d]", c.Mesh.Resolution, warp.MaxResolution))
	}
	if c.Mesh.AdaptiveSpacing <= 0 {
		err = multierr.Append(err, errors.Errorf("adaptive spacing %g must be positive", c.Mesh.AdaptiveSpacing))
	}
	if c.Editing.PickRadius <= 0 {
		err = multierr.Append(err, errors.Errorf("pick radius %g must be positive", c.Editing.PickRadius))
	}
	if c.Editing.Nudge <= 0 || c.Editing.LargeNudge <= 0 {
		err = multierr.Append(err, errors.New("nudge steps must be positive"))
	}
	if c.Editing.BrightnessStep <= 0 || c.Editing.BrightnessStep > 1 {
		err = multierr.Append(err, errors.Errorf("brightness step %g out of range (0, 1]", c.Editing.BrightnessStep))
	}
	if c.Editing.ResolutionStep < 1 {
		err = multierr.Append(err, errors.Errorf("resolution step %d must be positive", c.Editing.ResolutionStep))
	}
	if _, perr := c.Palette(); perr != nil {
		err = multierr.Append(err, perr)
	}
	return err
}

// Palette parses the overlay colours.
func (c *Config) Palette() (render.Palette, error) {
	var (
		p   render.Palette
		err error
	)
	for _, f := range []struct {
		name string
		hex  string
		dst  *color.RGBA
	}{
		{"point", c.Overlay.Point, &p.Point},
		{"selected", c.Overlay.Selected, &p.Selected},
		{"corner", c.Overlay.Corner, &p.Corner},
		{"outline", c.Overlay.Outline, &p.Outline},
		{"wire", c.Overlay.Wire, &p.Wire},
	} {
		v, perr := colorutil.ParseHex(f.hex)
		if perr != nil {
			err = multierr.Append(err, errors.Wrapf(perr, "overlay %s", f.name))
			continue
		}
		*f.dst = v
	}
	return p, err
}

// Steps returns the router increments.
func (c *Config) Steps() editing.Steps {
	return editing.Steps{
		Nudge:      c.Editing.Nudge,
		LargeNudge: c.Editing.LargeNudge,
		Brightness: c.Editing.BrightnessStep,
		Resolution: c.Editing.ResolutionStep,
		PickRadius: c.Editing.PickRadius,
	}
}

// SelectionPulse returns the period of the selected point highlight.
func (c *Config) SelectionPulse() time.Duration {
	return time.Duration(c.Editing.SelectionPulseMs) * time.Millisecond
}

// NewWarp creates a warp with the configured kind, size and mesh options.
func (c *Config) NewWarp() (*warp.Warp, error) {
	return c.NewWarpOfKind(warp.ParseKind(c.Content.WarpKind))
}

// NewWarpOfKind creates a warp of the given kind with the configured size
// and mesh options.
func (c *Config) NewWarpOfKind(kind warp.Kind) (*warp.Warp, error) {
	w, err := warp.New(kind, c.Content.Width, c.Content.Height)
	if err != nil {
		return nil, err
	}
	if kind.HasMesh() {
		if err := w.SetNumControl(c.Content.Columns, c.Content.Rows); err != nil {
			return nil, err
		}
	}
	w.SetResolution(c.Mesh.Resolution)
	w.SetAdaptive(c.Mesh.Adaptive)
	w.SetAdaptiveSpacing(c.Mesh.AdaptiveSpacing)
	w.SetLinear(c.Mesh.Linear)
	return w, nil
}
