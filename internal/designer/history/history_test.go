package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/threadforge/design-backend/internal/designer/scene"
	"github.com/threadforge/design-backend/internal/designer/sched"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

func newManager(t *testing.T) (*Manager, *scene.Graph, *sched.Manual) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	m := sched.NewManual()
	g := scene.NewGraph(816, 1056)
	return NewManager(log, g, m), g, m
}

func addObject(g *scene.Graph, id string) {
	g.Add(&scene.Drawable{ID: id, Kind: scene.KindText, Text: id, Width: 100, Height: 40})
}

func TestCaptureDebounces(t *testing.T) {
	h, g, m := newManager(t)
	h.CaptureNow() // baseline

	// A burst of mutations inside the quiet window yields one snapshot.
	for i := 0; i < 5; i++ {
		addObject(g, fmt.Sprintf("o%d", i))
		h.Capture()
	}
	m.Advance(CaptureQuiet)

	if h.Len() != 2 {
		t.Fatalf("expected baseline + 1 snapshot, got %d", h.Len())
	}
	if h.Index() != 1 {
		t.Fatalf("index %d, want 1", h.Index())
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	h, g, m := newManager(t)
	h.CaptureNow()

	addObject(g, "a")
	h.Capture()
	m.Advance(CaptureQuiet)

	addObject(g, "b")
	h.Capture()
	m.Advance(CaptureQuiet)

	if !h.CanUndo() {
		t.Fatalf("expected undo available")
	}
	if !h.Undo() {
		t.Fatalf("undo failed")
	}
	if g.Count() != 1 || g.Object("b") != nil {
		t.Fatalf("undo did not restore previous snapshot: %d objects", g.Count())
	}

	if !h.CanRedo() {
		t.Fatalf("expected redo available")
	}
	if !h.Redo() {
		t.Fatalf("redo failed")
	}
	if g.Count() != 2 || g.Object("b") == nil {
		t.Fatalf("redo did not restore: %d objects", g.Count())
	}
	if h.CanRedo() {
		t.Fatalf("redo past the top must be unavailable")
	}
}

func TestUndoAtBottomIsNoop(t *testing.T) {
	h, _, _ := newManager(t)
	if h.Undo() {
		t.Fatalf("undo on empty stack must report false")
	}
	h.CaptureNow()
	if h.CanUndo() || h.Undo() {
		t.Fatalf("undo with a single snapshot must be unavailable")
	}
}

func TestBranchTruncatesFuture(t *testing.T) {
	h, g, m := newManager(t)
	h.CaptureNow()
	for _, id := range []string{"a", "b", "c"} {
		addObject(g, id)
		h.Capture()
		m.Advance(CaptureQuiet)
	}

	h.Undo()
	h.Undo()
	if h.Index() != 1 || !h.CanRedo() {
		t.Fatalf("setup failed: index %d", h.Index())
	}

	// A new edit from the middle discards the redo branch.
	addObject(g, "d")
	h.Capture()
	m.Advance(CaptureQuiet)

	if h.CanRedo() {
		t.Fatalf("redo must be unavailable after branching")
	}
	if h.Len() != 3 {
		t.Fatalf("stack length %d, want 3 (base, a, a+d)", h.Len())
	}
	h.Undo()
	if g.Object("d") != nil || g.Object("a") == nil {
		t.Fatalf("undo after branch restored the wrong snapshot")
	}
}

func TestDepthBound(t *testing.T) {
	h, g, m := newManager(t)
	h.CaptureNow()

	for i := 0; i < MaxDepth+20; i++ {
		addObject(g, fmt.Sprintf("o%d", i))
		h.Capture()
		m.Advance(CaptureQuiet)
	}

	if h.Len() != MaxDepth {
		t.Fatalf("stack grew to %d, bound is %d", h.Len(), MaxDepth)
	}
	if h.Index() != MaxDepth-1 {
		t.Fatalf("index %d, want %d", h.Index(), MaxDepth-1)
	}

	// The oldest surviving snapshot is no longer the baseline.
	for h.CanUndo() {
		h.Undo()
	}
	if g.Count() == 0 {
		t.Fatalf("eviction must drop the oldest snapshots first")
	}
}

func TestRestoreCancelsPendingCapture(t *testing.T) {
	h, g, m := newManager(t)
	h.CaptureNow()
	addObject(g, "a")
	h.Capture()
	m.Advance(CaptureQuiet)

	// Mutation pending capture, then an undo lands first.
	addObject(g, "b")
	h.Capture()
	h.Undo()
	m.Advance(time.Minute)

	// The stale pre-undo state must not have been pushed.
	if h.Len() != 2 {
		t.Fatalf("stale capture landed: len %d, want 2", h.Len())
	}
	if h.Index() != 0 {
		t.Fatalf("index %d, want 0", h.Index())
	}
}

func TestReset(t *testing.T) {
	h, g, m := newManager(t)
	h.CaptureNow()
	addObject(g, "a")
	h.Capture()
	m.Advance(CaptureQuiet)

	h.Reset()
	if h.Len() != 0 || h.Index() != -1 || h.CanUndo() || h.CanRedo() {
		t.Fatalf("reset left state behind: len %d index %d", h.Len(), h.Index())
	}
}

func TestHandleKey(t *testing.T) {
	h, g, m := newManager(t)
	h.CaptureNow()
	addObject(g, "a")
	h.Capture()
	m.Advance(CaptureQuiet)

	if h.HandleKey("z", false, false) {
		t.Fatalf("bare z must not be consumed")
	}
	if !h.HandleKey("z", true, false) {
		t.Fatalf("ctrl+z must be consumed")
	}
	if g.Count() != 0 {
		t.Fatalf("ctrl+z did not undo")
	}
	if !h.HandleKey("Z", true, true) {
		t.Fatalf("ctrl+shift+z must be consumed")
	}
	if g.Count() != 1 {
		t.Fatalf("ctrl+shift+z did not redo")
	}
	h.HandleKey("z", true, false)
	if !h.HandleKey("y", true, false) {
		t.Fatalf("ctrl+y must be consumed")
	}
	if g.Count() != 1 {
		t.Fatalf("ctrl+y did not redo")
	}
}
