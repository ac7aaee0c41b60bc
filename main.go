// Package main provides the entry point for the warp calibration editor.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/benbjohnson/clock"

	"warpcal/internal/app"
	"warpcal/internal/config"
	"warpcal/internal/logging"
	"warpcal/internal/project"
	"warpcal/internal/version"
	"warpcal/ui/mainwindow"
	"warpcal/ui/prefs"
)

const appID = "io.warpcal.editor"

func main() {
	configPath := flag.String("config", config.FileName, "configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.SetLogger(logger)
	defer func() { _ = logger.Sync() }()
	logger.Infow("starting", "version", version.Version, "commit", version.GitCommit, "config", *configPath)

	a := fyneapp.NewWithID(appID)
	a.Settings().SetTheme(&app.CalibrationTheme{})

	state := app.NewState(cfg, clock.New())
	win := mainwindow.New(a, state, prefs.Load())

	// A session, profile or content image may be given on the command line
	if flag.NArg() > 0 {
		path := flag.Arg(0)
		if err := openPath(state, path); err != nil {
			logger.Errorw("cannot open", "path", path, "error", err)
		}
	} else if _, err := os.Stat(cfg.SettingsPath); err == nil {
		if err := state.LoadSettings(cfg.SettingsPath); err != nil {
			logger.Warnw("cannot load profile", "path", cfg.SettingsPath, "error", err)
		}
	}

	win.ShowAndRun()
}

// openPath opens path according to its extension.
func openPath(state *app.State, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case project.Extension:
		return state.LoadSession(path)
	case ".xml":
		return state.LoadSettings(path)
	default:
		return state.LoadContent(path)
	}
}
