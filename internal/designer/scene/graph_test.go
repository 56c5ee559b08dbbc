package scene

import (
	"testing"

	"github.com/threadforge/design-backend/internal/pkg/errors"
)

func TestGraphAddRemove(t *testing.T) {
	g := NewGraph(816, 1056)

	var events []EventKind
	g.OnMutation(func(ev MutationEvent) { events = append(events, ev.Kind) })

	d := &Drawable{ID: "a", Kind: KindText, Text: "hello", Width: 200, Height: 40}
	g.Add(d)
	if g.Count() != 1 {
		t.Fatalf("expected 1 object, got %d", g.Count())
	}
	if d.ScaleX != 1 || d.ScaleY != 1 {
		t.Fatalf("expected zero scales normalized to 1, got %v/%v", d.ScaleX, d.ScaleY)
	}
	if g.Object("a") != d {
		t.Fatalf("Object did not return the added drawable")
	}

	if !g.Remove("a") {
		t.Fatalf("Remove reported false for an existing drawable")
	}
	if g.Remove("a") {
		t.Fatalf("Remove reported true for a missing drawable")
	}
	if g.Count() != 0 {
		t.Fatalf("expected empty graph after remove, got %d", g.Count())
	}

	want := []EventKind{EventAdded, EventRemoved}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d (%v)", len(want), len(events), events)
	}
	for i, k := range want {
		if events[i] != k {
			t.Fatalf("event %d: expected %s, got %s", i, k, events[i])
		}
	}
}

func TestGraphHandlersRunInRegistrationOrder(t *testing.T) {
	g := NewGraph(400, 400)
	var order []int
	g.OnMutation(func(MutationEvent) { order = append(order, 1) })
	g.OnMutation(func(MutationEvent) { order = append(order, 2) })

	g.Add(&Drawable{ID: "a", Kind: KindShape})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("handlers ran out of order: %v", order)
	}
}

func TestGraphApplyVariants(t *testing.T) {
	g := NewGraph(816, 1056)
	g.Add(&Drawable{ID: "a", Kind: KindText, Left: 10, Top: 20, Width: 100, Height: 50})

	modified := 0
	g.OnMutation(func(ev MutationEvent) {
		if ev.Kind == EventModified {
			modified++
		}
	})

	if err := g.Apply("a", PositionUpdate{Left: 30, Top: 40}); err != nil {
		t.Fatalf("PositionUpdate: %v", err)
	}
	if err := g.Apply("a", TranslateUpdate{DX: 5, DY: -5}); err != nil {
		t.Fatalf("TranslateUpdate: %v", err)
	}
	if err := g.Apply("a", SizeUpdate{ScaleX: 2}); err != nil {
		t.Fatalf("SizeUpdate: %v", err)
	}
	if err := g.Apply("a", RotationUpdate{Angle: 45}); err != nil {
		t.Fatalf("RotationUpdate: %v", err)
	}
	fill := "#ff0000"
	if err := g.Apply("a", StyleUpdate{Fill: &fill}); err != nil {
		t.Fatalf("StyleUpdate: %v", err)
	}
	if err := g.Apply("a", TextUpdate{Text: "edited"}); err != nil {
		t.Fatalf("TextUpdate: %v", err)
	}

	d := g.Object("a")
	if d.Left != 35 || d.Top != 35 {
		t.Fatalf("position: got %v/%v, want 35/35", d.Left, d.Top)
	}
	if d.ScaleX != 2 || d.ScaleY != 1 {
		t.Fatalf("scale: got %v/%v, want 2/1", d.ScaleX, d.ScaleY)
	}
	if d.Angle != 45 || d.Fill != "#ff0000" || d.Text != "edited" {
		t.Fatalf("style fields not applied: %+v", d)
	}
	if modified != 6 {
		t.Fatalf("expected 6 modified events, got %d", modified)
	}

	if err := g.Apply("missing", TextUpdate{Text: "x"}); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing drawable, got %v", err)
	}
}

func TestLockedDrawableRejectsEdits(t *testing.T) {
	g := NewGraph(400, 400)
	g.Add(&Drawable{ID: "a", Kind: KindShape, Locked: true})

	if err := g.Apply("a", PositionUpdate{Left: 1}); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Fatalf("expected locked rejection, got %v", err)
	}
	// Unlocking and the auto-fit nudge stay allowed.
	if err := g.Apply("a", TranslateUpdate{DX: 1}); err != nil {
		t.Fatalf("TranslateUpdate on locked: %v", err)
	}
	if err := g.Apply("a", LockUpdate{Locked: false}); err != nil {
		t.Fatalf("LockUpdate on locked: %v", err)
	}
	if err := g.Apply("a", PositionUpdate{Left: 2}); err != nil {
		t.Fatalf("edit after unlock: %v", err)
	}
}

func TestGraphRoundTrip(t *testing.T) {
	g := NewGraph(816, 1056)
	g.SetBackground("#fafafa")
	g.Add(&Drawable{ID: "t1", Kind: KindText, Text: "hello", Left: 10, Top: 20, Width: 200, Height: 40, FontFamily: "Arial", FontSize: 24})
	g.Add(&Drawable{ID: "i1", Kind: KindImage, SourceURL: "https://cdn.example/img.png", Width: 300, Height: 300, NativeWidth: 1200, NativeHeight: 900})

	data, err := g.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	g2 := NewGraph(1, 1)
	if err := g2.Load(data); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g2.Width() != 816 || g2.Height() != 1056 {
		t.Fatalf("dimensions did not round-trip: %v x %v", g2.Width(), g2.Height())
	}
	if g2.Background() != "#fafafa" {
		t.Fatalf("background did not round-trip: %q", g2.Background())
	}
	if g2.Count() != 2 {
		t.Fatalf("expected 2 objects, got %d", g2.Count())
	}
	d := g2.Object("t1")
	if d == nil || d.Text != "hello" || d.FontSize != 24 {
		t.Fatalf("text drawable did not round-trip: %+v", d)
	}
	img := g2.Object("i1")
	if img == nil || img.NativeWidth != 1200 {
		t.Fatalf("image drawable did not round-trip: %+v", img)
	}
}

func TestGraphLoadCorruptLeavesContents(t *testing.T) {
	g := NewGraph(400, 400)
	g.Add(&Drawable{ID: "a", Kind: KindShape})

	err := g.Load([]byte("{not json"))
	if !errors.Is(err, errors.ErrScene) {
		t.Fatalf("expected SceneError, got %v", err)
	}
	if g.Count() != 1 || g.Object("a") == nil {
		t.Fatalf("corrupt load must leave contents untouched")
	}
}

func TestBoundingBoxUsesScale(t *testing.T) {
	d := &Drawable{Left: 10, Top: 20, Width: 100, Height: 50, ScaleX: 2, ScaleY: 3}
	box := d.BoundingBox()
	if box.Right != 210 || box.Bottom != 170 {
		t.Fatalf("bounding box: %+v", box)
	}

	unscaled := &Drawable{Left: 0, Top: 0, Width: 100, Height: 50}
	if b := unscaled.BoundingBox(); b.Right != 100 || b.Bottom != 50 {
		t.Fatalf("zero scale must behave as 1: %+v", b)
	}
}
