package validate

import (
	"fmt"

	"github.com/threadforge/design-backend/internal/designer/presets"
	"github.com/threadforge/design-backend/internal/designer/scene"
)

const (
	// MaxSerializedBytes rejects designs too heavy to persist reliably.
	MaxSerializedBytes = 2 * 1024 * 1024
	// MaxObjects bounds the drawable count per view.
	MaxObjects = 50
	// MaxImageEdgePx flags source images likely to hurt editor performance.
	MaxImageEdgePx = 4000
)

// Result is the outcome of a validation pass. Errors block saving;
// warnings are surfaced but never block.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// PrintAreaBounds centers the print area within the canvas. With today's
// presets the print area spans the full canvas, so the inset is zero, but
// the centering math stays in one place for when it does not.
func PrintAreaBounds(area presets.DesignArea) scene.Rect {
	return scene.Rect{
		Left:   0,
		Top:    0,
		Right:  area.WidthPx,
		Bottom: area.HeightPx,
	}
}

// InsidePrintArea reports whether the drawable's bounding box lies fully
// within bounds.
func InsidePrintArea(d *scene.Drawable, bounds scene.Rect) bool {
	return bounds.Contains(d.BoundingBox())
}

// Validate evaluates the scene against the print-area policy.
func Validate(scn scene.Scene, area presets.DesignArea) Result {
	var res Result

	data, err := scn.Serialize()
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("design could not be serialized: %v", err))
	} else if len(data) > MaxSerializedBytes {
		res.Errors = append(res.Errors, fmt.Sprintf("design is too large to save (%d bytes, limit %d)", len(data), MaxSerializedBytes))
	}

	objects := scn.Objects()
	if len(objects) > MaxObjects {
		res.Errors = append(res.Errors, fmt.Sprintf("too many objects (%d, limit %d)", len(objects), MaxObjects))
	}
	if len(objects) == 0 {
		res.Warnings = append(res.Warnings, "design is empty")
	}

	bounds := PrintAreaBounds(area)
	for _, d := range objects {
		if !InsidePrintArea(d, bounds) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("object %s lies outside the print area", d.ID))
		}
		if d.Kind == scene.KindImage && (d.NativeWidth > MaxImageEdgePx || d.NativeHeight > MaxImageEdgePx) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("image %s resolution %dx%d may slow the editor", d.ID, d.NativeWidth, d.NativeHeight))
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// CanAdd is the cheap synchronous guard the orchestrator runs before any
// add. It is deliberately not part of Validate.
func CanAdd(scn scene.Scene) bool {
	return scn.Count() < MaxObjects
}

// AutoFit translates every out-of-bounds drawable by the minimal vector
// that brings its bounding box back inside, clamping each axis
// independently. Returns how many drawables were moved.
func AutoFit(scn scene.Scene, area presets.DesignArea) int {
	bounds := PrintAreaBounds(area)
	moved := 0
	for _, d := range scn.Objects() {
		box := d.BoundingBox()
		dx := fitAxis(box.Left, box.Right, bounds.Left, bounds.Right)
		dy := fitAxis(box.Top, box.Bottom, bounds.Top, bounds.Bottom)
		if dx == 0 && dy == 0 {
			continue
		}
		if err := scn.Apply(d.ID, scene.TranslateUpdate{DX: dx, DY: dy}); err != nil {
			continue
		}
		moved++
	}
	return moved
}

// fitAxis returns the minimal translation along one axis. An object wider
// than the area is pinned to the leading edge.
func fitAxis(lo, hi, boundLo, boundHi float64) float64 {
	if lo < boundLo {
		return boundLo - lo
	}
	if hi > boundHi {
		d := boundHi - hi
		if lo+d < boundLo {
			d = boundLo - lo
		}
		return d
	}
	return 0
}
