// Package app holds the editor state shared by the UI and background
// watchers, and the events it emits.
package app

import (
	"image"
	"os"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"warpcal/internal/config"
	"warpcal/internal/editing"
	cimage "warpcal/internal/image"
	"warpcal/internal/logging"
	"warpcal/internal/project"
	"warpcal/internal/render"
	"warpcal/internal/settings"
	"warpcal/internal/warp"
	"warpcal/pkg/colorutil"
	"warpcal/pkg/geometry"
)

// EventType identifies different application events.
type EventType int

const (
	EventSessionLoaded EventType = iota
	EventSessionSaved
	EventContentLoaded
	EventModified
	EventWarpsChanged
	EventSelectionChanged
	EventEditModeChanged
	EventSettingsLoaded
	EventSettingsSaved
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State holds the warps being edited, the content shown through them and
// the current session.
type State struct {
	mu sync.RWMutex

	cfg *config.Config

	// Session
	SessionPath  string
	Session      *project.File
	SettingsPath string
	Modified     bool

	Content *cimage.Layer

	arena   *warp.Arena
	router  *editing.Router
	overlay *render.Overlay

	// frame rendering, guarded by frameMu
	frameMu  sync.Mutex
	renderer *render.Renderer
	pattern  *image.RGBA

	listeners map[EventType][]EventListener
}

// NewState creates an empty editor state. A nil clock uses the wall clock.
func NewState(cfg *config.Config, clk clock.Clock) *State {
	if cfg == nil {
		cfg = config.Default()
	}
	ctx := editing.NewContext(clk)
	arena := warp.NewArena()
	overlay := render.NewOverlay(ctx, cfg.SelectionPulse())
	if p, err := cfg.Palette(); err == nil {
		overlay.Palette = p
	} else {
		logging.Named("app").Warnw("invalid overlay colours, using defaults", "error", err)
	}
	return &State{
		cfg:          cfg,
		SettingsPath: cfg.SettingsPath,
		Session:      project.New("untitled", geometry.NewSize(cfg.Content.Width, cfg.Content.Height)),
		arena:        arena,
		router:       editing.NewRouter(ctx, arena, cfg.Steps()),
		overlay:      overlay,
		listeners:    make(map[EventType][]EventListener),
	}
}

func (s *State) log() *zap.SugaredLogger { return logging.Named("app") }

// Config returns the configuration the state was created with.
func (s *State) Config() *config.Config { return s.cfg }

// Context returns the editing context.
func (s *State) Context() *editing.Context { return s.router.Context() }

// Overlay returns the control point overlay.
func (s *State) Overlay() *render.Overlay { return s.overlay }

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the warps as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	s.Modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// IsModified reports whether there are unsaved warp edits.
func (s *State) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Modified
}

// ContentSize returns the size new warps are created with.
func (s *State) ContentSize() geometry.Size {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Session.ContentSize()
}

// Warps returns the warps bottom to top.
func (s *State) Warps() []*warp.Warp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.arena.Warps()
}

// Selection returns the position of the selected warp in draw order, the
// warp itself and its selected control point.
func (s *State) Selection() (index int, w *warp.Warp, point int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, w, point, ok := s.arena.Selection()
	if !ok {
		return -1, nil, -1, false
	}
	for i, o := range s.arena.Handles() {
		if o == h {
			index = i
		}
	}
	return index, w, point, true
}

// AddWarp adds a warp of the given kind on top of the others.
func (s *State) AddWarp(kind warp.Kind) (warp.Handle, error) {
	size := s.ContentSize()
	cfg := *s.cfg
	cfg.Content.Width, cfg.Content.Height = size.Width, size.Height
	w, err := cfg.NewWarpOfKind(kind)
	if err != nil {
		return warp.Handle{}, err
	}

	s.mu.Lock()
	h := s.arena.Add(w)
	s.Session.Settings.LastWarpKind = kind.String()
	s.mu.Unlock()

	s.log().Infow("warp added", "kind", kind, "id", w.ID())
	s.changed()
	return h, nil
}

// RemoveSelected deletes the warp holding the selected control point.
func (s *State) RemoveSelected() bool {
	s.mu.Lock()
	h, w, _, ok := s.arena.Selection()
	if ok {
		ok = s.arena.Remove(h) == nil
	}
	s.mu.Unlock()

	if ok {
		s.log().Infow("warp removed", "id", w.ID())
		s.changed()
	}
	return ok
}

// ResetSelected restores the default control points of the selected warp.
func (s *State) ResetSelected() bool {
	s.mu.Lock()
	_, w, _, ok := s.arena.Selection()
	if ok {
		w.Reset()
	}
	s.mu.Unlock()

	if ok {
		s.changed()
	}
	return ok
}

// MouseMove forwards a hover to the router.
func (s *State) MouseMove(e editing.MouseEvent) bool {
	s.mu.Lock()
	consumed := s.router.MouseMove(e)
	s.mu.Unlock()
	if consumed {
		s.Emit(EventSelectionChanged, nil)
	}
	return consumed
}

// MouseDown forwards a press to the router.
func (s *State) MouseDown(e editing.MouseEvent) bool {
	s.mu.Lock()
	before := s.arena.Handles()
	consumed := s.router.MouseDown(e)
	raised := consumed && !slices.Equal(before, s.arena.Handles())
	s.mu.Unlock()
	if raised {
		s.changed()
	}
	return consumed
}

// MouseDrag forwards a drag to the router.
func (s *State) MouseDrag(e editing.MouseEvent) bool {
	s.mu.Lock()
	consumed := s.router.MouseDrag(e)
	s.mu.Unlock()
	if consumed {
		s.changed()
	}
	return consumed
}

// MouseUp forwards a release to the router.
func (s *State) MouseUp(e editing.MouseEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.router.MouseUp(e)
}

// KeyDown forwards a key press to the router and emits the matching event.
func (s *State) KeyDown(e editing.KeyEvent) bool {
	s.mu.Lock()
	consumed := s.router.KeyDown(e)
	s.mu.Unlock()
	if !consumed {
		return false
	}

	switch e.Key {
	case editing.KeyW, editing.KeyEscape:
		s.Emit(EventEditModeChanged, s.Context().EditMode())
	case editing.KeyTab:
		s.Emit(EventSelectionChanged, nil)
	default:
		s.changed()
	}
	return true
}

// KeyUp forwards a key release to the router.
func (s *State) KeyUp(e editing.KeyEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.router.KeyUp(e)
}

// SetEditMode switches edit mode on or off.
func (s *State) SetEditMode(on bool) {
	s.Context().SetEditMode(on)
	s.Emit(EventEditModeChanged, on)
}

// Resize changes the content size of the session and every warp.
func (s *State) Resize(width, height float64) error {
	s.mu.Lock()
	err := s.router.Resize(width, height)
	if err == nil {
		s.Session.ContentWidth, s.Session.ContentHeight = width, height
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *State) changed() {
	s.SetModified(true)
	s.Emit(EventWarpsChanged, nil)
}

// LoadSettings replaces the warps with those of a profile. Warps that fail
// to load are skipped; their errors are returned once the rest are in place.
func (s *State) LoadSettings(path string) error {
	warps, err := settings.ReadFile(path)
	if len(warps) == 0 && err != nil {
		return err
	}
	if err != nil {
		s.log().Warnw("profile partially loaded", "path", path, "error", err)
	}

	s.mu.Lock()
	s.arena.Clear()
	for _, w := range warps {
		s.arena.Add(w)
	}
	s.SettingsPath = path
	s.Modified = false
	s.mu.Unlock()

	s.Emit(EventSettingsLoaded, path)
	s.Emit(EventWarpsChanged, nil)
	return err
}

// SaveSettings writes the warps to a profile.
func (s *State) SaveSettings(path string) error {
	// encoding reads lazily rebuilt transforms, so edits and renders wait
	s.mu.Lock()
	data, err := settings.Marshal(s.arena.Warps())
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := settings.WriteBytes(path, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.SettingsPath = path
	s.Modified = false
	s.mu.Unlock()

	s.Emit(EventSettingsSaved, path)
	s.Emit(EventModified, false)
	return nil
}

// LoadContent loads the image shown through the warps.
func (s *State) LoadContent(path string) error {
	layer, err := cimage.Load(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.Content = layer
	s.mu.Unlock()

	s.Emit(EventContentLoaded, layer)
	return nil
}

// NewSession discards the warps and content and starts an untitled session
// at the configured content size.
func (s *State) NewSession() {
	s.mu.Lock()
	s.SessionPath = ""
	s.Session = project.New("untitled", geometry.NewSize(s.cfg.Content.Width, s.cfg.Content.Height))
	s.SettingsPath = s.cfg.SettingsPath
	s.Content = nil
	s.arena.Clear()
	s.Modified = false
	s.mu.Unlock()

	s.Emit(EventSessionLoaded, "")
	s.Emit(EventWarpsChanged, nil)
}

// LoadSession opens a session file with its content image and profile. A
// session whose profile does not exist yet starts without warps.
func (s *State) LoadSession(path string) error {
	f, err := project.Load(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.SessionPath = path
	s.Session = f
	s.Content = nil
	s.mu.Unlock()

	if img := f.ContentImage(path); img != "" {
		if err := s.LoadContent(img); err != nil {
			return errors.Wrap(err, "session content")
		}
	}
	profile := f.Profile(path)
	if _, err := os.Stat(profile); err == nil {
		if err := s.LoadSettings(profile); err != nil {
			return err
		}
	} else {
		s.mu.Lock()
		s.arena.Clear()
		s.SettingsPath = profile
		s.Modified = false
		s.mu.Unlock()
		s.Emit(EventWarpsChanged, nil)
	}

	s.Emit(EventSessionLoaded, path)
	return nil
}

// SaveSession writes the session file and its profile.
func (s *State) SaveSession(path string) error {
	s.mu.Lock()
	f := s.Session
	if s.Content != nil && s.Content.Path != "" {
		f.SetContentImage(path, s.Content.Path)
	}
	profile := f.Profile(path)
	if f.ProfilePath == "" {
		f.SetProfile(path, profile)
	}
	s.mu.Unlock()

	if err := s.SaveSettings(profile); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return err
	}

	s.mu.Lock()
	s.SessionPath = path
	s.mu.Unlock()

	s.Emit(EventSessionSaved, path)
	return nil
}

// RenderFrame draws the content through every warp into dst, then the edit
// overlay. Without content a test pattern is shown.
func (s *State) RenderFrame(dst *image.RGBA) error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tex image.Image
	if s.Content != nil && s.Content.Visible {
		tex = s.Content.Image
	} else {
		tex = s.testPattern(s.Session.ContentSize())
	}

	if s.renderer == nil || s.renderer.Target() != dst {
		s.renderer = render.NewRenderer(dst)
	}
	r := s.renderer
	r.Clear(colorutil.Black)
	r.Blend = cimage.BlendNormal
	if s.Content != nil {
		r.Blend = s.Content.Blend
	}
	if err := r.DrawArena(s.arena, tex); err != nil {
		return err
	}
	return s.overlay.DrawArena(dst, s.arena)
}

// testPattern returns the calibration chart for the content size, reusing
// the previous one when the size is unchanged.
func (s *State) testPattern(size geometry.Size) *image.RGBA {
	w, h := max(1, int(size.Width)), max(1, int(size.Height))
	if s.pattern == nil || s.pattern.Bounds().Dx() != w || s.pattern.Bounds().Dy() != h {
		s.pattern = cimage.TestPattern(w, h, 16, 9)
	}
	return s.pattern
}
