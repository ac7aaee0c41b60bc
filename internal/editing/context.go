// Package editing routes user input to the warps of an arena.
package editing

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"warpcal/pkg/geometry"
)

// Context is the editing state shared between input handling and drawing:
// whether edit mode is on, when a control point was last selected and where
// the mouse is. It is safe for concurrent use.
type Context struct {
	clock      clock.Clock
	editMode   *atomic.Bool
	selectedAt *atomic.Time
	mouse      *atomic.Pointer[geometry.Point2D]
}

// NewContext creates a context with edit mode off. A nil clock uses the
// wall clock.
func NewContext(clk clock.Clock) *Context {
	if clk == nil {
		clk = clock.New()
	}
	return &Context{
		clock:      clk,
		editMode:   atomic.NewBool(false),
		selectedAt: atomic.NewTime(time.Time{}),
		mouse:      atomic.NewPointer(&geometry.Point2D{}),
	}
}

// Clock returns the time source of the context.
func (c *Context) Clock() clock.Clock { return c.clock }

// EditMode reports whether control points are shown and editable.
func (c *Context) EditMode() bool { return c.editMode.Load() }

// SetEditMode turns edit mode on or off.
func (c *Context) SetEditMode(on bool) { c.editMode.Store(on) }

// ToggleEditMode flips edit mode and returns the new state.
func (c *Context) ToggleEditMode() bool {
	return !c.editMode.Toggle()
}

// MarkSelected records that the selection changed now.
func (c *Context) MarkSelected() { c.selectedAt.Store(c.clock.Now()) }

// SelectedAt returns when the selection last changed.
func (c *Context) SelectedAt() time.Time { return c.selectedAt.Load() }

// SinceSelected returns the time elapsed since the selection last changed.
func (c *Context) SinceSelected() time.Duration {
	return c.clock.Since(c.SelectedAt())
}

// Mouse returns the last known mouse position.
func (c *Context) Mouse() geometry.Point2D { return *c.mouse.Load() }

// SetMouse records the mouse position.
func (c *Context) SetMouse(p geometry.Point2D) { c.mouse.Store(&p) }
