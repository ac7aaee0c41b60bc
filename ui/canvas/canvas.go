// Package canvas provides the warp editor canvas: the projected frame with
// the edit overlay, driven by mouse and keyboard.
package canvas

import (
	"image"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"warpcal/internal/app"
	"warpcal/internal/editing"
	"warpcal/internal/logging"
	"warpcal/pkg/colorutil"
	"warpcal/pkg/geometry"
)

// pulseInterval is the refresh period while a point is selected in edit mode.
const pulseInterval = 50 * time.Millisecond

// WarpCanvas shows the frame rendered by an app.State, scaled to the widget,
// and forwards pointer and key events to it in frame pixels.
type WarpCanvas struct {
	widget.BaseWidget

	state  *app.State
	raster *fynecanvas.Raster

	// frame buffer, sized to the session content
	mu    sync.Mutex
	frame *image.RGBA

	// HUD draws the status line over the frame.
	HUD bool

	mod     editing.Modifier
	focused bool

	ticker *time.Ticker
	stop   chan struct{}
}

// NewWarpCanvas creates a canvas showing state.
func NewWarpCanvas(state *app.State) *WarpCanvas {
	wc := &WarpCanvas{state: state, HUD: true}

	wc.raster = fynecanvas.NewRaster(wc.draw)
	wc.raster.ScaleMode = fynecanvas.ImageScaleSmooth
	wc.raster.SetMinSize(fyne.NewSize(320, 180))

	for _, ev := range []app.EventType{
		app.EventWarpsChanged,
		app.EventSelectionChanged,
		app.EventEditModeChanged,
		app.EventContentLoaded,
		app.EventSessionLoaded,
		app.EventSettingsLoaded,
	} {
		state.On(ev, func(interface{}) { wc.Refresh() })
	}

	wc.ExtendBaseWidget(wc)
	return wc
}

func (wc *WarpCanvas) log() *zap.SugaredLogger { return logging.Named("canvas") }

// StartPulse refreshes the canvas periodically so the selected point pulses.
func (wc *WarpCanvas) StartPulse() {
	if wc.ticker != nil {
		return
	}
	wc.ticker = time.NewTicker(pulseInterval)
	wc.stop = make(chan struct{})
	go func(t *time.Ticker, stop chan struct{}) {
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if wc.state.Context().EditMode() {
					wc.raster.Refresh()
				}
			}
		}
	}(wc.ticker, wc.stop)
}

// StopPulse stops the pulse refresh.
func (wc *WarpCanvas) StopPulse() {
	if wc.ticker == nil {
		return
	}
	wc.ticker.Stop()
	close(wc.stop)
	wc.ticker = nil
}

// Frame returns the last rendered frame.
func (wc *WarpCanvas) Frame() *image.RGBA {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return wc.frame
}

// Refresh redraws the frame.
func (wc *WarpCanvas) Refresh() {
	wc.raster.Refresh()
}

// draw is the raster generator. The frame is rendered at the session size
// and the raster scales it to the widget.
func (wc *WarpCanvas) draw(w, h int) image.Image {
	size := wc.state.ContentSize()
	fw, fh := max(1, int(size.Width)), max(1, int(size.Height))

	wc.mu.Lock()
	defer wc.mu.Unlock()
	if wc.frame == nil || wc.frame.Bounds().Dx() != fw || wc.frame.Bounds().Dy() != fh {
		wc.frame = image.NewRGBA(image.Rect(0, 0, fw, fh))
	}
	if err := wc.state.RenderFrame(wc.frame); err != nil {
		wc.log().Warnw("render failed", "error", err)
	}
	if wc.HUD && wc.state.Context().EditMode() {
		drawLabel(wc.frame, statusLine(wc.state), 8, 8, colorutil.Yellow, hudScale(fw))
	}
	return wc.frame
}

// toFrame converts a widget position into frame pixels.
func (wc *WarpCanvas) toFrame(pos fyne.Position) geometry.Point2D {
	size := wc.Size()
	content := wc.state.ContentSize()
	if size.Width <= 0 || size.Height <= 0 {
		return geometry.Point2D{X: float64(pos.X), Y: float64(pos.Y)}
	}
	return geometry.Point2D{
		X: float64(pos.X) * content.Width / float64(size.Width),
		Y: float64(pos.Y) * content.Height / float64(size.Height),
	}
}

func (wc *WarpCanvas) mouseEvent(pos fyne.Position) editing.MouseEvent {
	return editing.MouseEvent{Pos: wc.toFrame(pos), Mod: wc.mod}
}

// MouseIn implements desktop.Hoverable.
func (wc *WarpCanvas) MouseIn(ev *desktop.MouseEvent) {
	wc.MouseMoved(ev)
}

// MouseMoved implements desktop.Hoverable.
func (wc *WarpCanvas) MouseMoved(ev *desktop.MouseEvent) {
	wc.mod = modifiers(ev.Modifier)
	wc.state.MouseMove(wc.mouseEvent(ev.Position))
}

// MouseOut implements desktop.Hoverable.
func (wc *WarpCanvas) MouseOut() {}

// MouseDown implements desktop.Mouseable.
func (wc *WarpCanvas) MouseDown(ev *desktop.MouseEvent) {
	wc.requestFocus()
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	wc.mod = modifiers(ev.Modifier)
	wc.state.MouseDown(wc.mouseEvent(ev.Position))
}

// MouseUp implements desktop.Mouseable.
func (wc *WarpCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	wc.state.MouseUp(wc.mouseEvent(ev.Position))
}

// Dragged implements fyne.Draggable.
func (wc *WarpCanvas) Dragged(ev *fyne.DragEvent) {
	wc.state.MouseDrag(wc.mouseEvent(ev.Position))
}

// DragEnd implements fyne.Draggable.
func (wc *WarpCanvas) DragEnd() {
	wc.state.MouseUp(editing.MouseEvent{Pos: wc.state.Context().Mouse(), Mod: wc.mod})
}

// FocusGained implements fyne.Focusable.
func (wc *WarpCanvas) FocusGained() { wc.focused = true }

// FocusLost implements fyne.Focusable.
func (wc *WarpCanvas) FocusLost() {
	wc.focused = false
	wc.mod = 0
}

// TypedRune implements fyne.Focusable.
func (wc *WarpCanvas) TypedRune(r rune) {
	switch r {
	case '+', '=':
		wc.state.KeyDown(editing.KeyEvent{Key: editing.KeyPlus, Mod: wc.mod})
	case '-', '_':
		wc.state.KeyDown(editing.KeyEvent{Key: editing.KeyMinus, Mod: wc.mod})
	}
}

// TypedKey implements fyne.Focusable. Keys are handled in KeyDown.
func (wc *WarpCanvas) TypedKey(*fyne.KeyEvent) {}

// KeyDown implements desktop.Keyable.
func (wc *WarpCanvas) KeyDown(ev *fyne.KeyEvent) {
	if m := modifierKey(ev.Name); m != 0 {
		wc.mod |= m
		return
	}
	key := translateKey(ev.Name)
	if key == editing.KeyUnknown {
		return
	}
	wc.state.KeyDown(editing.KeyEvent{Key: key, Mod: wc.mod})
}

// KeyUp implements desktop.Keyable.
func (wc *WarpCanvas) KeyUp(ev *fyne.KeyEvent) {
	if m := modifierKey(ev.Name); m != 0 {
		wc.mod &^= m
		return
	}
	if key := translateKey(ev.Name); key != editing.KeyUnknown {
		wc.state.KeyUp(editing.KeyEvent{Key: key, Mod: wc.mod})
	}
}

func (wc *WarpCanvas) requestFocus() {
	if wc.focused {
		return
	}
	if c := fyne.CurrentApp().Driver().CanvasForObject(wc); c != nil {
		c.Focus(wc)
	}
}

// CreateRenderer implements fyne.Widget.
func (wc *WarpCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &warpCanvasRenderer{canvas: wc}
}

type warpCanvasRenderer struct {
	canvas *WarpCanvas
}

func (r *warpCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *warpCanvasRenderer) MinSize() fyne.Size {
	return r.canvas.raster.MinSize()
}

func (r *warpCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *warpCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *warpCanvasRenderer) Destroy() {
	r.canvas.StopPulse()
}
