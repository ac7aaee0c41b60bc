package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"warpcal/internal/config"
	cimage "warpcal/internal/image"
	"warpcal/internal/logging"
	"warpcal/internal/render"
	"warpcal/internal/settings"
	"warpcal/internal/warp"
	"warpcal/pkg/colorutil"
)

func renderAction(c *cli.Context) error {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return err
	}
	profile := c.String(flagProfile)
	if profile == "" {
		profile = cfg.SettingsPath
	}

	frame, stats, err := renderProfile(profile, c.String(flagContent), c.Int(flagWidth), c.Int(flagHeight))
	if err != nil {
		return err
	}
	if err := writePNG(c.String(flagOut), frame); err != nil {
		return err
	}
	logging.Named("render").Infow("rendered", "out", c.String(flagOut),
		"calls", stats.Calls, "triangles", stats.Triangles, "pixels", stats.Pixels)
	fmt.Fprintf(c.App.Writer, "%s: %dx%d, %d warps\n",
		c.String(flagOut), frame.Bounds().Dx(), frame.Bounds().Dy(), stats.Calls)
	return nil
}

// renderProfile draws content through every warp of profile. Zero width or
// height take the largest warp extent.
func renderProfile(profile, content string, width, height int) (*image.RGBA, render.Stats, error) {
	warps, err := settings.ReadFile(profile)
	if err != nil {
		return nil, render.Stats{}, err
	}
	if len(warps) == 0 {
		return nil, render.Stats{}, errors.Errorf("%s holds no warps", profile)
	}

	var extentW, extentH int
	for _, w := range warps {
		size := w.Size()
		extentW, extentH = max(extentW, int(size.Width)), max(extentH, int(size.Height))
	}
	if width <= 0 {
		width = extentW
	}
	if height <= 0 {
		height = extentH
	}
	if width <= 0 || height <= 0 {
		return nil, render.Stats{}, errors.Errorf("invalid output size %dx%d", width, height)
	}

	var tex image.Image
	if content != "" {
		layer, err := cimage.Load(content)
		if err != nil {
			return nil, render.Stats{}, err
		}
		tex = layer.Image
	} else {
		size := warps[0].Size()
		tex = cimage.TestPattern(int(size.Width), int(size.Height), 16, 9)
	}

	frame := image.NewRGBA(image.Rect(0, 0, width, height))
	r := render.NewRenderer(frame)
	r.Clear(colorutil.Black)
	for _, w := range warps {
		if err := r.DrawWarp(w, tex, warp.TexRect(tex), w.Bounds()); err != nil {
			return nil, render.Stats{}, errors.Wrapf(err, "warp %s", w.ID())
		}
	}
	return frame, r.Stats(), nil
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return errors.Wrapf(png.Encode(f, img), "encoding %s", path)
}

func initAction(c *cli.Context) error {
	cfgPath := c.String(flagConfig)
	cfg := config.Default()
	profile := c.String(flagProfile)
	if profile == "" {
		profile = cfg.SettingsPath
	}
	if err := initFiles(cfg, cfgPath, profile, c.String(flagKind), c.Bool(flagForce)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s and %s\n", cfgPath, profile)
	return nil
}

// initFiles writes cfg to cfgPath and a profile holding one warp of the
// given kind, or of the configured kind when kind is empty.
func initFiles(cfg *config.Config, cfgPath, profile, kind string, force bool) error {
	if kind != "" {
		if warp.ParseKind(kind) == warp.KindUnknown {
			return errors.Errorf("unknown warp kind %q", kind)
		}
		cfg.Content.WarpKind = kind
	}
	if !force {
		for _, path := range []string{cfgPath, profile} {
			if _, err := os.Stat(path); err == nil {
				return errors.Errorf("%s exists, use --%s to overwrite", path, flagForce)
			}
		}
	}

	w, err := cfg.NewWarp()
	if err != nil {
		return err
	}
	cfg.SettingsPath = profile
	if err := cfg.Save(cfgPath); err != nil {
		return err
	}
	return settings.WriteFile(profile, []*warp.Warp{w})
}

func inspectAction(c *cli.Context) error {
	profile := c.Args().First()
	if profile == "" {
		cfg, err := config.Load(c.String(flagConfig))
		if err != nil {
			return err
		}
		profile = cfg.SettingsPath
	}
	warps, err := settings.ReadFile(profile)
	if len(warps) > 0 {
		writeInspect(c.App.Writer, warps)
	}
	return err
}

// writeInspect prints one table row per warp.
func writeInspect(out io.Writer, warps []*warp.Warp) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"#", "ID", "Kind", "Size", "Controls", "Mesh", "Brightness", "Corners"})
	for i, w := range warps {
		size := w.Size()
		controls, mesh := "-", "-"
		if w.Kind().HasMesh() {
			cols, rows := w.Controls()
			controls = fmt.Sprintf("%dx%d", cols, rows)
			mesh = meshMode(w)
		}
		corners := make([]string, 0, 4)
		for _, p := range w.Corners() {
			corners = append(corners, fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y))
		}
		t.AppendRow(table.Row{
			i + 1,
			w.ID().String(),
			w.Kind().String(),
			fmt.Sprintf("%gx%g", size.Width, size.Height),
			controls,
			mesh,
			fmt.Sprintf("%.2f", w.Brightness()),
			strings.Join(corners, " "),
		})
	}
	t.Render()
}

func meshMode(w *warp.Warp) string {
	mode := "curved"
	if w.IsLinear() {
		mode = "linear"
	}
	if w.IsAdaptive() {
		return mode + ", adaptive"
	}
	return fmt.Sprintf("%s, %d", mode, w.Resolution())
}
