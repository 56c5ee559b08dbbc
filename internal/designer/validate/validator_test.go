package validate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/threadforge/design-backend/internal/designer/presets"
	"github.com/threadforge/design-backend/internal/designer/scene"
)

func letterArea(t *testing.T) presets.DesignArea {
	t.Helper()
	area, err := presets.Default().Lookup("letter")
	if err != nil {
		t.Fatalf("letter preset missing: %v", err)
	}
	return area
}

func TestValidateEmptyScene(t *testing.T) {
	area := letterArea(t)
	g := scene.NewGraph(area.WidthPx, area.HeightPx)

	res := Validate(g, area)
	if !res.Valid {
		t.Fatalf("empty scene must be valid (warning only): %+v", res)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "empty") {
		t.Fatalf("expected the empty warning, got %v", res.Warnings)
	}
}

func TestValidateObjectCount(t *testing.T) {
	area := letterArea(t)
	g := scene.NewGraph(area.WidthPx, area.HeightPx)
	for i := 0; i < MaxObjects; i++ {
		g.Add(&scene.Drawable{ID: fmt.Sprintf("o%d", i), Kind: scene.KindShape, Width: 10, Height: 10})
	}

	if res := Validate(g, area); !res.Valid {
		t.Fatalf("%d objects must pass: %v", MaxObjects, res.Errors)
	}
	if CanAdd(g) {
		t.Fatalf("CanAdd must refuse at %d objects", MaxObjects)
	}

	// The guard was bypassed (direct mutation): the validator reports it.
	g.Add(&scene.Drawable{ID: "over", Kind: scene.KindShape, Width: 10, Height: 10})
	res := Validate(g, area)
	if res.Valid {
		t.Fatalf("%d objects must fail validation", MaxObjects+1)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "too many objects") {
		t.Fatalf("expected the count error, got %v", res.Errors)
	}
}

func TestValidateOutOfBoundsWarns(t *testing.T) {
	area := letterArea(t)
	g := scene.NewGraph(area.WidthPx, area.HeightPx)
	g.Add(&scene.Drawable{ID: "in", Kind: scene.KindShape, Left: 10, Top: 10, Width: 50, Height: 50})
	g.Add(&scene.Drawable{ID: "out", Kind: scene.KindShape, Left: -20, Top: 10, Width: 50, Height: 50})

	res := Validate(g, area)
	if !res.Valid {
		t.Fatalf("out-of-bounds must warn, not block: %v", res.Errors)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "out") {
		t.Fatalf("expected one out-of-bounds warning, got %v", res.Warnings)
	}
}

func TestValidateHeavyImageWarns(t *testing.T) {
	area := letterArea(t)
	g := scene.NewGraph(area.WidthPx, area.HeightPx)
	g.Add(&scene.Drawable{ID: "img", Kind: scene.KindImage, Width: 100, Height: 100, NativeWidth: MaxImageEdgePx + 1, NativeHeight: 100})

	res := Validate(g, area)
	if !res.Valid {
		t.Fatalf("heavy image must warn, not block: %v", res.Errors)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "resolution") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the resolution warning, got %v", res.Warnings)
	}
}

func TestValidateSerializedSize(t *testing.T) {
	area := letterArea(t)
	g := scene.NewGraph(area.WidthPx, area.HeightPx)
	g.Add(&scene.Drawable{
		ID:   "big",
		Kind: scene.KindText,
		Text: strings.Repeat("x", MaxSerializedBytes),
	})

	res := Validate(g, area)
	if res.Valid {
		t.Fatalf("oversized design must fail validation")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "too large") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the size error, got %v", res.Errors)
	}
}

func TestAutoFitConverges(t *testing.T) {
	area := letterArea(t)
	g := scene.NewGraph(area.WidthPx, area.HeightPx)
	bounds := PrintAreaBounds(area)

	g.Add(&scene.Drawable{ID: "left", Kind: scene.KindShape, Left: -30, Top: 100, Width: 50, Height: 50})
	g.Add(&scene.Drawable{ID: "corner", Kind: scene.KindShape, Left: area.WidthPx - 10, Top: area.HeightPx - 10, Width: 50, Height: 50})
	g.Add(&scene.Drawable{ID: "scaled", Kind: scene.KindShape, Left: area.WidthPx - 40, Top: 0, Width: 50, Height: 50, ScaleX: 2})
	g.Add(&scene.Drawable{ID: "fine", Kind: scene.KindShape, Left: 100, Top: 100, Width: 50, Height: 50})

	moved := AutoFit(g, area)
	if moved != 3 {
		t.Fatalf("expected 3 moved, got %d", moved)
	}
	for _, d := range g.Objects() {
		if !InsidePrintArea(d, bounds) {
			t.Fatalf("drawable %s still outside after auto-fit: %+v", d.ID, d.BoundingBox())
		}
	}
	if d := g.Object("fine"); d.Left != 100 || d.Top != 100 {
		t.Fatalf("in-bounds drawable was moved: %+v", d)
	}

	// A second pass must find nothing.
	if again := AutoFit(g, area); again != 0 {
		t.Fatalf("auto-fit did not converge: %d moved on second pass", again)
	}
}

func TestAutoFitOversizedPinsLeadingEdge(t *testing.T) {
	area, _ := presets.Default().Lookup("pocket")
	g := scene.NewGraph(area.WidthPx, area.HeightPx)
	g.Add(&scene.Drawable{ID: "huge", Kind: scene.KindImage, Left: 50, Top: 50, Width: area.WidthPx + 200, Height: 10})

	AutoFit(g, area)
	d := g.Object("huge")
	if d.Left != 0 {
		t.Fatalf("oversized drawable must pin to the leading edge, got Left=%v", d.Left)
	}
}

func TestAutoFitMovesLockedDrawables(t *testing.T) {
	area := letterArea(t)
	g := scene.NewGraph(area.WidthPx, area.HeightPx)
	g.Add(&scene.Drawable{ID: "locked", Kind: scene.KindShape, Left: -30, Top: 0, Width: 50, Height: 50, Locked: true})

	if moved := AutoFit(g, area); moved != 1 {
		t.Fatalf("the corrective nudge must apply to locked drawables, moved=%d", moved)
	}
	if d := g.Object("locked"); d.Left != 0 {
		t.Fatalf("locked drawable not nudged: %+v", d)
	}
}
