// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"warpcal/internal/app"
	cimage "warpcal/internal/image"
	"warpcal/internal/logging"
	"warpcal/internal/project"
	"warpcal/internal/version"
	"warpcal/internal/warp"
	"warpcal/ui/canvas"
	"warpcal/ui/prefs"
)

const appTitle = "Warp Calibration"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *canvas.WarpCanvas
	statusBar *widget.Label
	editCheck *widget.Check

	watcher *app.SettingsWatcher

	// Menu items that need state tracking
	wireframeItem *fyne.MenuItem
	hudItem       *fyne.MenuItem
	recentMenu    *fyne.Menu
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	win.Resize(fyne.NewSize(
		float32(p.Float(prefs.KeyWindowWidth, 1280)),
		float32(p.Float(prefs.KeyWindowHeight, 760)),
	))
	win.SetCloseIntercept(mw.onClose)
	return mw
}

func (mw *MainWindow) log() *zap.SugaredLogger { return logging.Named("ui") }

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewWarpCanvas(mw.state)
	mw.state.Overlay().Wireframe = mw.prefs.Bool(prefs.KeyWireframe, false)
	mw.canvas.StartPulse()

	mw.statusBar = widget.NewLabel("Ready. Press W on the canvas to edit warps.")

	content := container.NewBorder(
		mw.createToolbar(),                // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.canvas,                         // center
	)
	mw.SetContent(content)
}

// createToolbar creates the toolbar with the edit toggle and warp actions.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.editCheck = widget.NewCheck("Edit", func(on bool) {
		if on != mw.state.Context().EditMode() {
			mw.state.SetEditMode(on)
		}
		mw.focusCanvas()
	})

	kinds := []string{
		warp.KindBilinear.String(),
		warp.KindPerspective.String(),
		warp.KindPerspectiveBilinear.String(),
	}
	kindSelect := widget.NewSelect(kinds, nil)
	kindSelect.SetSelected(mw.state.Config().Content.WarpKind)

	addBtn := widget.NewButton("Add", func() {
		mw.onAddWarp(warp.ParseKind(kindSelect.Selected))
	})
	removeBtn := widget.NewButton("Remove", mw.onRemoveWarp)
	resetBtn := widget.NewButton("Reset", mw.onResetWarp)

	return container.NewHBox(
		mw.editCheck,
		widget.NewSeparator(),
		widget.NewLabel("Warp:"),
		kindSelect,
		addBtn,
		removeBtn,
		resetBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	mw.recentMenu = fyne.NewMenu("Open Recent")
	mw.rebuildRecent()
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = mw.recentMenu

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Session", mw.onNewSession),
		fyne.NewMenuItem("Open Session...", mw.onOpenSession),
		recentItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Session", mw.onSaveSession),
		fyne.NewMenuItem("Save Session As...", mw.onSaveSessionAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Load Content Image...", mw.onLoadContent),
		fyne.NewMenuItem("Load Warp Profile...", mw.onLoadProfile),
		fyne.NewMenuItem("Save Warp Profile", mw.onSaveProfile),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", mw.onClose),
	)

	warpMenu := fyne.NewMenu("Warps",
		fyne.NewMenuItem("Add Bilinear", func() { mw.onAddWarp(warp.KindBilinear) }),
		fyne.NewMenuItem("Add Perspective", func() { mw.onAddWarp(warp.KindPerspective) }),
		fyne.NewMenuItem("Add Perspective Bilinear", func() { mw.onAddWarp(warp.KindPerspectiveBilinear) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Remove Selected", mw.onRemoveWarp),
		fyne.NewMenuItem("Reset Selected", mw.onResetWarp),
	)

	mw.wireframeItem = fyne.NewMenuItem("Show Mesh Wireframe", mw.onToggleWireframe)
	mw.wireframeItem.Checked = mw.state.Overlay().Wireframe
	mw.hudItem = fyne.NewMenuItem("Show Status Overlay", mw.onToggleHUD)
	mw.hudItem.Checked = mw.canvas.HUD

	viewMenu := fyne.NewMenu("View",
		mw.wireframeItem,
		mw.hudItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Toggle Full Screen", func() { mw.SetFullScreen(!mw.FullScreen()) }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("Keyboard Shortcuts", mw.onShortcuts),
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, warpMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventSessionLoaded, func(data interface{}) {
		path, _ := data.(string)
		if path == "" {
			mw.SetTitle(appTitle + " - untitled")
			mw.updateStatus("New session")
			return
		}
		mw.SetTitle(appTitle + " - " + filepath.Base(path))
		mw.updateStatus("Session loaded: " + path)
		mw.prefs.AddRecent(path)
		mw.rebuildRecent()
	})

	mw.state.On(app.EventSessionSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle(appTitle + " - " + filepath.Base(path))
			mw.prefs.AddRecent(path)
			mw.rebuildRecent()
		}
	})

	mw.state.On(app.EventSettingsLoaded, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.updateStatus(fmt.Sprintf("Loaded %d warps from %s", len(mw.state.Warps()), path))
			mw.watch(path)
		}
	})

	mw.state.On(app.EventSettingsSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.updateStatus("Saved " + path)
			mw.watch(path)
			if mw.watcher != nil {
				mw.watcher.ResetBaseline()
			}
		}
	})

	mw.state.On(app.EventContentLoaded, func(data interface{}) {
		if layer, ok := data.(*cimage.Layer); ok {
			mw.updateStatus(fmt.Sprintf("Content %s (%dx%d)", filepath.Base(layer.Path), layer.Width(), layer.Height()))
		}
	})

	mw.state.On(app.EventEditModeChanged, func(data interface{}) {
		if on, ok := data.(bool); ok && mw.editCheck.Checked != on {
			mw.editCheck.SetChecked(on)
		}
	})

	mw.state.On(app.EventModified, func(data interface{}) {
		title := strings.TrimSuffix(mw.Title(), " *")
		if modified, ok := data.(bool); ok && modified {
			title += " *"
		}
		mw.SetTitle(title)
	})
}

// watch follows the profile at path for changes made by other programs.
func (mw *MainWindow) watch(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	if mw.watcher != nil {
		if mw.watcher.Path() == abs {
			return
		}
		if err := mw.watcher.Stop(); err != nil {
			mw.log().Warnw("stopping settings watcher", "error", err)
		}
		mw.watcher = nil
	}

	w, err := app.NewSettingsWatcher(abs)
	if err != nil {
		mw.log().Warnw("cannot watch profile", "path", abs, "error", err)
		return
	}
	w.OnChange(mw.onProfileChanged)
	w.Start()
	mw.watcher = w
}

// onProfileChanged reloads a profile edited outside the editor. Unsaved
// edits are only discarded after confirmation.
func (mw *MainWindow) onProfileChanged(path string) {
	reload := func() {
		if err := mw.state.LoadSettings(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}
	if !mw.state.IsModified() {
		reload()
		return
	}
	dialog.ShowConfirm("Profile Changed",
		filepath.Base(path)+" was changed on disk.\nDiscard unsaved edits and reload it?",
		func(ok bool) {
			if ok {
				reload()
			}
		}, mw.Window)
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) focusCanvas() {
	mw.Canvas().Focus(mw.canvas)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

func (mw *MainWindow) rebuildRecent() {
	items := make([]*fyne.MenuItem, 0, len(mw.prefs.Recent()))
	for _, path := range mw.prefs.Recent() {
		path := path
		items = append(items, fyne.NewMenuItem(path, func() { mw.openSession(path) }))
	}
	if len(items) == 0 {
		none := fyne.NewMenuItem("(none)", nil)
		none.Disabled = true
		items = append(items, none)
	}
	mw.recentMenu.Items = items
	mw.recentMenu.Refresh()
}

// openFile shows a file open dialog filtered to exts.
func (mw *MainWindow) openFile(exts []string, open func(path string)) {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		open(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(exts))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// saveFile shows a file save dialog and forces the extension ext.
func (mw *MainWindow) saveFile(name, ext string, save func(path string)) {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ext {
			path += ext
		}
		mw.saveLastDir(path)
		save(path)
	}, mw.Window)
	fd.SetFileName(name + ext)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// Menu action handlers

func (mw *MainWindow) onNewSession() {
	mw.confirmDiscard(func() {
		mw.state.NewSession()
	})
}

func (mw *MainWindow) onOpenSession() {
	mw.openFile([]string{project.Extension}, mw.openSession)
}

func (mw *MainWindow) openSession(path string) {
	mw.confirmDiscard(func() {
		if err := mw.state.LoadSession(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
}

func (mw *MainWindow) onSaveSession() {
	if mw.state.SessionPath == "" {
		mw.onSaveSessionAs()
		return
	}
	if err := mw.state.SaveSession(mw.state.SessionPath); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSaveSessionAs() {
	mw.saveFile("session", project.Extension, func(path string) {
		if err := mw.state.SaveSession(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
}

func (mw *MainWindow) onLoadContent() {
	mw.openFile(cimage.SupportedFormats(), func(path string) {
		if err := mw.state.LoadContent(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
}

func (mw *MainWindow) onLoadProfile() {
	mw.openFile([]string{".xml"}, func(path string) {
		if err := mw.state.LoadSettings(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
}

func (mw *MainWindow) onSaveProfile() {
	if mw.state.SettingsPath == "" {
		mw.saveFile("warps", ".xml", func(path string) {
			if err := mw.state.SaveSettings(path); err != nil {
				dialog.ShowError(err, mw.Window)
			}
		})
		return
	}
	if err := mw.state.SaveSettings(mw.state.SettingsPath); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onAddWarp(kind warp.Kind) {
	if kind == warp.KindUnknown {
		return
	}
	if _, err := mw.state.AddWarp(kind); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.updateStatus(fmt.Sprintf("Added %s warp (%d total)", kind, len(mw.state.Warps())))
}

func (mw *MainWindow) onRemoveWarp() {
	if !mw.state.RemoveSelected() {
		mw.updateStatus("Select a control point of the warp to remove")
	}
}

func (mw *MainWindow) onResetWarp() {
	if !mw.state.ResetSelected() {
		mw.updateStatus("Select a control point of the warp to reset")
	}
}

func (mw *MainWindow) onToggleWireframe() {
	on := !mw.state.Overlay().Wireframe
	mw.state.Overlay().Wireframe = on
	mw.wireframeItem.Checked = on
	mw.prefs.SetBool(prefs.KeyWireframe, on)
	mw.MainMenu().Refresh()
	mw.canvas.Refresh()
}

func (mw *MainWindow) onToggleHUD() {
	mw.canvas.HUD = !mw.canvas.HUD
	mw.hudItem.Checked = mw.canvas.HUD
	mw.MainMenu().Refresh()
	mw.canvas.Refresh()
}

// confirmDiscard runs next, asking first when there are unsaved edits.
func (mw *MainWindow) confirmDiscard(next func()) {
	if !mw.state.IsModified() {
		next()
		return
	}
	dialog.ShowConfirm("Unsaved Changes", "Discard unsaved warp edits?", func(ok bool) {
		if ok {
			next()
		}
	}, mw.Window)
}

func (mw *MainWindow) onClose() {
	mw.confirmDiscard(func() {
		size := mw.Canvas().Size()
		mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
		mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
		if err := mw.prefs.Save(); err != nil {
			mw.log().Warnw("saving preferences", "path", mw.prefs.Path(), "error", err)
		}
		mw.canvas.StopPulse()
		if mw.watcher != nil {
			_ = mw.watcher.Stop()
		}
		mw.app.Quit()
	})
}

func (mw *MainWindow) onShortcuts() {
	dialog.ShowInformation("Keyboard Shortcuts",
		"W  toggle edit mode      Esc  leave edit mode\n"+
			"Tab / Shift+Tab  next / previous control point\n"+
			"Arrows  nudge point (Shift: large step)\n"+
			"+ / -  brightness      R  reset warp\n"+
			"M  linear / curved mesh      F5  adaptive mesh\n"+
			"F1 / F2  fewer / more columns (Shift: rows)\n"+
			"F3 / F4  mesh resolution\n"+
			"F9 / F10  rotate content      F11 / F12  flip",
		mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s %s\n\nProjector warp calibration.", appTitle, version.String()),
		mw.Window)
}
