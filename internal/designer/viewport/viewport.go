package viewport

import (
	"math"

	"github.com/threadforge/design-backend/internal/designer/presets"
)

const (
	MinScale  = 0.25
	MaxScale  = 4.0
	ZoomStep  = 0.1
	PanMargin = 50.0

	// Assumed viewport dimensions used by the boundary policy. The editor
	// reports real window metrics at mount; these are the fallbacks.
	DefaultViewportWidth  = 1000.0
	DefaultViewportHeight = 800.0
)

// PanSource identifies which gesture is driving a pan. The space-held
// overlay intercepts pointer events while held, so a background drag can
// never start underneath it.
type PanSource int

const (
	SourceNone PanSource = iota
	SourceBackground
	SourceOverlay
)

type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Controller owns zoom level and pan offset for one garment view. It is
// visual-only: nothing here ever mutates the scene.
type Controller struct {
	area           presets.DesignArea
	scale          float64
	pan            Offset
	viewportWidth  float64
	viewportHeight float64

	activeSource PanSource
	spaceHeld    bool
	lastX, lastY float64
}

func NewController(area presets.DesignArea) *Controller {
	return &Controller{
		area:           area,
		scale:          MinScale,
		viewportWidth:  DefaultViewportWidth,
		viewportHeight: DefaultViewportHeight,
	}
}

func (c *Controller) Scale() float64 { return c.scale }
func (c *Controller) Pan() Offset    { return c.pan }

// SetViewportSize updates the assumed viewport metrics and re-clamps the
// current pan against the new boundaries.
func (c *Controller) SetViewportSize(width, height float64) {
	if width > 0 {
		c.viewportWidth = width
	}
	if height > 0 {
		c.viewportHeight = height
	}
	c.clampPan()
}

// SetDesignArea swaps the print-area preset, keeping zoom and re-clamping
// pan against the new footprint.
func (c *Controller) SetDesignArea(area presets.DesignArea) {
	c.area = area
	c.clampPan()
}

func (c *Controller) ZoomIn()  { c.SetZoom(c.scale + ZoomStep) }
func (c *Controller) ZoomOut() { c.SetZoom(c.scale - ZoomStep) }

func (c *Controller) SetZoom(scale float64) {
	// Round to the step grid so repeated stepping stays comparable
	// (2.0 - 0.1 is exactly 1.9, not 1.9000000000000001).
	scale = math.Round(scale*100) / 100
	c.scale = clamp(scale, MinScale, MaxScale)
	c.clampPan()
}

// ZoomToPreset sets an absolute zoom percentage (100 = 1.0).
func (c *Controller) ZoomToPreset(percent float64) {
	c.SetZoom(percent / 100)
}

func (c *Controller) ResetView() {
	c.scale = MinScale
	c.pan = Offset{}
	c.activeSource = SourceNone
}

// SetSpaceHeld toggles the space-overlay gesture mode. Releasing space
// ends an overlay drag that is still active.
func (c *Controller) SetSpaceHeld(held bool) {
	c.spaceHeld = held
	if !held && c.activeSource == SourceOverlay {
		c.EndPan()
	}
}

// StartPan begins a drag gesture. A new gesture replaces an active one
// (both write the same pan offset, last writer wins). Background drags are
// swallowed while the space overlay is intercepting pointer events.
func (c *Controller) StartPan(source PanSource, x, y float64) bool {
	if source == SourceBackground && c.spaceHeld {
		return false
	}
	if source == SourceNone {
		return false
	}
	c.activeSource = source
	c.lastX, c.lastY = x, y
	return true
}

// UpdatePan is a no-op unless a pan gesture is active.
func (c *Controller) UpdatePan(x, y float64) {
	if c.activeSource == SourceNone {
		return
	}
	c.pan.X += x - c.lastX
	c.pan.Y += y - c.lastY
	c.lastX, c.lastY = x, y
	c.clampPan()
}

func (c *Controller) EndPan() {
	c.activeSource = SourceNone
}

func (c *Controller) Panning() bool { return c.activeSource != SourceNone }

// MaxPan returns the symmetric pan limits for the current scale: the
// design area can leave the viewport by at most PanMargin pixels per axis.
func (c *Controller) MaxPan() (maxX, maxY float64) {
	maxX = axisLimit(c.viewportWidth, c.area.WidthPx*c.scale)
	maxY = axisLimit(c.viewportHeight, c.area.HeightPx*c.scale)
	return maxX, maxY
}

func axisLimit(viewport, scaled float64) float64 {
	return math.Abs(viewport-scaled)/2 + PanMargin
}

func (c *Controller) clampPan() {
	maxX, maxY := c.MaxPan()
	c.pan.X = clamp(c.pan.X, -maxX, maxX)
	c.pan.Y = clamp(c.pan.Y, -maxY, maxY)
}

// HandleWheel implements ctrl/cmd-wheel zoom. Returns true when the event
// was consumed and the browser default must be prevented.
func (c *Controller) HandleWheel(deltaY float64, ctrlOrCmd bool) bool {
	if !ctrlOrCmd {
		return false
	}
	if deltaY < 0 {
		c.ZoomIn()
	} else if deltaY > 0 {
		c.ZoomOut()
	}
	return true
}

// HandleKey implements the ctrl/cmd +/-/0 zoom shortcuts. Shortcuts are
// suppressed while focus is inside a text-editing control.
func (c *Controller) HandleKey(key string, ctrlOrCmd, textEditing bool) bool {
	if !ctrlOrCmd || textEditing {
		return false
	}
	switch key {
	case "+", "=":
		c.ZoomIn()
	case "-", "_":
		c.ZoomOut()
	case "0":
		c.ResetView()
	default:
		return false
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
