// Package project provides calibration session files.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"warpcal/pkg/geometry"
)

// Extension is the file extension of session files.
const Extension = ".warpcal"

// File is a calibration session: the content shown through the warps, the
// warp profile and the projector output size.
type File struct {
	Version     int       `json:"version"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Description string    `json:"description,omitempty"`

	// Paths relative to the session file
	ContentImagePath string `json:"content_image,omitempty"`
	ProfilePath      string `json:"profile,omitempty"`

	ContentWidth  float64 `json:"content_width"`
	ContentHeight float64 `json:"content_height"`
	OutputWidth   int     `json:"output_width"`
	OutputHeight  int     `json:"output_height"`

	Settings SessionSettings `json:"settings"`
}

// SessionSettings holds user preferences for the session.
type SessionSettings struct {
	ShowGrid      bool   `json:"show_grid"`
	ShowMesh      bool   `json:"show_mesh"`
	LastWarpKind  string `json:"last_warp_kind,omitempty"`
	SelectedWarp  int    `json:"selected_warp"`
	OverlayColour string `json:"overlay_colour,omitempty"`
}

// New creates a session for content of the given size, projected at the
// same size.
func New(name string, content geometry.Size) *File {
	now := time.Now()
	return &File{
		Version:       1,
		Name:          name,
		Created:       now,
		Modified:      now,
		ContentWidth:  content.Width,
		ContentHeight: content.Height,
		OutputWidth:   int(content.Width),
		OutputHeight:  int(content.Height),
		Settings: SessionSettings{
			ShowGrid:     true,
			SelectedWarp: -1,
		},
	}
}

// Load loads a session file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parsing session %s", path)
	}
	if f.Version != 1 {
		return nil, errors.Errorf("session %s: unsupported version %d", path, f.Version)
	}
	return &f, nil
}

// Save writes the session to path.
func (f *File) Save(path string) error {
	f.Modified = time.Now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ContentSize returns the content size of the session.
func (f *File) ContentSize() geometry.Size {
	return geometry.NewSize(f.ContentWidth, f.ContentHeight)
}

// SetContentImage records the content image relative to the session file.
func (f *File) SetContentImage(sessionPath, imagePath string) {
	f.ContentImagePath = relative(sessionPath, imagePath)
	f.Modified = time.Now()
}

// SetProfile records the warp profile relative to the session file.
func (f *File) SetProfile(sessionPath, profilePath string) {
	f.ProfilePath = relative(sessionPath, profilePath)
	f.Modified = time.Now()
}

// ContentImage returns the absolute path of the content image, or "".
func (f *File) ContentImage(sessionPath string) string {
	if f.ContentImagePath == "" {
		return ""
	}
	return resolve(sessionPath, f.ContentImagePath)
}

// Profile returns the absolute path of the warp profile. Sessions without
// one use <session>_warps.xml next to the session file.
func (f *File) Profile(sessionPath string) string {
	if f.ProfilePath == "" {
		base := sessionPath[:len(sessionPath)-len(filepath.Ext(sessionPath))]
		return base + "_warps.xml"
	}
	return resolve(sessionPath, f.ProfilePath)
}

func relative(sessionPath, path string) string {
	rel, err := filepath.Rel(filepath.Dir(sessionPath), path)
	if err != nil {
		return path
	}
	return rel
}

func resolve(sessionPath, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(sessionPath), path)
}
