package session

import (
	"context"
	"testing"
	"time"

	"github.com/threadforge/design-backend/internal/designer/history"
	"github.com/threadforge/design-backend/internal/designer/persist"
	"github.com/threadforge/design-backend/internal/designer/scene"
	"github.com/threadforge/design-backend/internal/designer/sched"
	"github.com/threadforge/design-backend/internal/designer/validate"
	"github.com/threadforge/design-backend/internal/pkg/errors"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

type memStore struct {
	saves   int
	records map[string]*persist.DesignRecord
}

func newMemStore() *memStore { return &memStore{records: map[string]*persist.DesignRecord{}} }

func (m *memStore) Save(_ context.Context, rec *persist.DesignRecord) (string, error) {
	m.saves++
	m.records[rec.UserID+"/"+rec.ProductID+"/"+string(rec.View)] = rec
	return "design-1", nil
}

func (m *memStore) Load(_ context.Context, userID, productID string) (*persist.LoadedDesign, error) {
	loaded := &persist.LoadedDesign{}
	found := false
	for _, view := range []scene.View{scene.ViewFront, scene.ViewBack} {
		rec, ok := m.records[userID+"/"+productID+"/"+string(view)]
		if !ok {
			continue
		}
		found = true
		loaded.PrintAreaPreset = rec.PrintAreaPreset
		if view == scene.ViewBack {
			loaded.BackCanvasJSON = rec.CanvasJSON
		} else {
			loaded.FrontCanvasJSON = rec.CanvasJSON
		}
	}
	if !found {
		return nil, errors.ErrNotFound
	}
	return loaded, nil
}

func (m *memStore) Delete(_ context.Context, userID, productID string) error { return nil }

type memBackup struct{ data map[string][]byte }

func newMemBackup() *memBackup { return &memBackup{data: map[string][]byte{}} }

func (m *memBackup) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return v, nil
}

func (m *memBackup) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memBackup) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

type fixture struct {
	s      *Session
	store  *memStore
	backup *memBackup
	clock  *sched.Manual
}

func testVariant() *Variant {
	return &Variant{
		ID:          "v1",
		ProductID:   "7",
		ProductName: "Classic Tee",
		VariantName: "Black",
		Size:        "M",
		PrintOption: "front",
		RetailPrice: 19,
		TotalPrice:  24,
	}
}

func newFixture(t *testing.T, userID string) *fixture {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	f := &fixture{
		store:  newMemStore(),
		backup: newMemBackup(),
		clock:  sched.NewManual(),
	}
	f.s, err = New(Config{
		Log:       log,
		UserID:    userID,
		ProductID: "7",
		View:      scene.ViewFront,
		Store:     f.store,
		Backup:    f.backup,
		Sched:     f.clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

// ready mirrors the mount flow: canvas mounted, variant active, and the
// initial load done (which seeds the history baseline).
func ready(t *testing.T, userID string) *fixture {
	t.Helper()
	f := newFixture(t, userID)
	f.s.MarkReady()
	f.s.SetActiveVariant(testVariant())
	if _, err := f.s.Load(context.Background()); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	return f
}

func TestAddRequiresReadyAndVariant(t *testing.T) {
	f := newFixture(t, "42")

	if _, err := f.s.AddText("hi", 10, 10); !errors.Is(err, errors.ErrPrecondition) {
		t.Fatalf("add before mount must fail: %v", err)
	}

	f.s.MarkReady()
	if _, err := f.s.AddText("hi", 10, 10); !errors.Is(err, errors.ErrPrecondition) {
		t.Fatalf("add without a variant must fail: %v", err)
	}

	f.s.SetActiveVariant(testVariant())
	d, err := f.s.AddText("hi", 10, 10)
	if err != nil {
		t.Fatalf("add after setup: %v", err)
	}
	if d.ID == "" || d.View != scene.ViewFront {
		t.Fatalf("added drawable was not tagged: %+v", d)
	}
	if f.s.State().SelectedObjectID != d.ID {
		t.Fatalf("added drawable was not selected")
	}
}

func TestObjectLimitGuardVersusValidator(t *testing.T) {
	f := ready(t, "42")

	for i := 0; i < validate.MaxObjects; i++ {
		if _, err := f.s.AddShape("rect", float64(i), 0, 10, 10, "#000"); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	// The 51st add is rejected by the synchronous guard.
	if _, err := f.s.AddShape("rect", 0, 0, 10, 10, "#000"); !errors.Is(err, errors.ErrPrecondition) {
		t.Fatalf("51st add must be rejected by the guard: %v", err)
	}

	// Bypassing the session (direct scene mutation) slips past the guard
	// but the validator reports the count error.
	f.s.Scene().Add(&scene.Drawable{ID: "sneak", Kind: scene.KindShape, Width: 10, Height: 10})
	res := f.s.Validate()
	if res.Valid {
		t.Fatalf("validator must flag the bypassed 51st object")
	}
}

func TestMutationsDebounceIntoOneSnapshotAndSave(t *testing.T) {
	f := ready(t, "42")

	for i := 0; i < 5; i++ {
		if _, err := f.s.AddShape("rect", float64(10 * i), 0, 10, 10, "#000"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	// Quiet period: one history snapshot on top of the baseline, then
	// one auto-save.
	f.clock.Advance(history.CaptureQuiet)
	if got := f.s.State().HistoryLen; got != 2 {
		t.Fatalf("history snapshots %d, want baseline + 1", got)
	}
	f.clock.Advance(persist.AutoSaveQuiet)
	if f.store.saves != 1 {
		t.Fatalf("store saves %d, want 1", f.store.saves)
	}
}

func TestUndoRedo(t *testing.T) {
	f := ready(t, "42")

	d1, _ := f.s.AddText("one", 0, 0)
	f.clock.Advance(history.CaptureQuiet)
	d2, _ := f.s.AddText("two", 0, 50)
	f.clock.Advance(history.CaptureQuiet)

	if !f.s.Undo() {
		t.Fatalf("undo failed")
	}
	if f.s.Scene().Object(d2.ID) != nil || f.s.Scene().Object(d1.ID) == nil {
		t.Fatalf("undo restored the wrong snapshot")
	}
	if !f.s.Redo() {
		t.Fatalf("redo failed")
	}
	if f.s.Scene().Object(d2.ID) == nil {
		t.Fatalf("redo did not restore")
	}

	// No stale captures sneak in after the restores settle.
	before := f.s.State().HistoryLen
	f.clock.Advance(time.Minute)
	if got := f.s.State().HistoryLen; got != before {
		t.Fatalf("restore caused a re-capture: %d -> %d", before, got)
	}
}

func TestUndoBeyondOldestIsNoop(t *testing.T) {
	f := ready(t, "42")
	f.s.AddText("one", 0, 0)
	f.clock.Advance(history.CaptureQuiet)

	if !f.s.Undo() {
		t.Fatalf("first undo must work")
	}
	if f.s.Undo() {
		t.Fatalf("undo past the bottom must be a no-op")
	}
	if f.s.Scene().Count() != 0 {
		t.Fatalf("bottom snapshot is the empty baseline")
	}
}

func TestGuestSaveRejectedBeforeIO(t *testing.T) {
	f := ready(t, "")
	f.s.AddText("guest art", 0, 0)

	err := f.s.Save(context.Background())
	if !errors.Is(err, errors.ErrPrecondition) {
		t.Fatalf("guest save must fail the precondition: %v", err)
	}
	if f.store.saves != 0 {
		t.Fatalf("guest save reached the store")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := ready(t, "42")
	d, _ := f.s.AddText("keep me", 30, 40)
	if err := f.s.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A second session for the same user and product rehydrates.
	s2 := mustSession(t, "42", f.store, f.backup)
	st, err := s2.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Source != persist.SourceRemote {
		t.Fatalf("status %+v, want a remote load", st)
	}
	got := s2.Scene().Object(d.ID)
	if got == nil || got.Text != "keep me" {
		t.Fatalf("design did not round-trip: %+v", got)
	}
	// The post-load baseline makes undo a no-op, not a wipe.
	if s2.Undo() {
		t.Fatalf("undo right after load must be unavailable")
	}
}

func mustSession(t *testing.T, userID string, store persist.DesignStore, backup persist.BackupStore) *Session {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	s, err := New(Config{
		Log:       log,
		UserID:    userID,
		ProductID: "7",
		View:      scene.ViewFront,
		Store:     store,
		Backup:    backup,
		Sched:     sched.NewManual(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.MarkReady()
	s.SetActiveVariant(testVariant())
	return s
}

func TestLoadRestoresFromBackup(t *testing.T) {
	// user 42, product 7: nothing saved remotely, but the periodic backup
	// left a snapshot behind.
	f := ready(t, "42")
	f.s.AddText("almost lost", 10, 10)
	if err := f.s.BackupNow(context.Background()); err != nil {
		t.Fatalf("BackupNow: %v", err)
	}

	s2 := mustSession(t, "42", newMemStore(), f.backup)
	st, err := s2.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !st.RestoredFromBackup || st.Message != "restored from backup" {
		t.Fatalf("status %+v, want the backup restore message", st)
	}
	if s2.Scene().Count() != 1 {
		t.Fatalf("backup contents missing")
	}
}

func TestSetPrintAreaResizesAndSaves(t *testing.T) {
	f := ready(t, "42")

	if err := f.s.SetPrintArea("pocket"); err != nil {
		t.Fatalf("SetPrintArea: %v", err)
	}
	if got := f.s.Scene().Width(); got != 400 {
		t.Fatalf("scene width %v, want 400", got)
	}
	if got := f.s.State().DesignArea.Name; got != "pocket" {
		t.Fatalf("state area %q", got)
	}

	f.clock.Advance(persist.AutoSaveQuiet)
	if f.store.saves != 1 {
		t.Fatalf("preset switch must schedule a save: %d", f.store.saves)
	}

	if err := f.s.SetPrintArea("bogus"); err == nil {
		t.Fatalf("unknown preset must be rejected")
	}
}

func TestRemoveSelectedAndClear(t *testing.T) {
	f := ready(t, "42")
	d, _ := f.s.AddShape("circle", 0, 0, 20, 20, "#f00")

	if err := f.s.RemoveSelected(); err != nil {
		t.Fatalf("RemoveSelected: %v", err)
	}
	if f.s.Scene().Object(d.ID) != nil {
		t.Fatalf("selected drawable survived removal")
	}

	// Nothing selected: removing is a quiet no-op.
	if err := f.s.RemoveSelected(); err != nil {
		t.Fatalf("RemoveSelected with no selection: %v", err)
	}

	f.s.AddShape("rect", 0, 0, 20, 20, "#f00")
	f.s.AddShape("rect", 30, 0, 20, 20, "#f00")
	if err := f.s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if f.s.Scene().Count() != 0 {
		t.Fatalf("clear left %d objects", f.s.Scene().Count())
	}
}

func TestAutoFitThroughSession(t *testing.T) {
	f := ready(t, "42")
	d, _ := f.s.AddShape("rect", -40, 10, 50, 50, "#000")

	moved, err := f.s.AutoFit()
	if err != nil {
		t.Fatalf("AutoFit: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved %d, want 1", moved)
	}
	if got := f.s.Scene().Object(d.ID).Left; got != 0 {
		t.Fatalf("drawable not pulled inside: Left=%v", got)
	}
}

func TestHandleKeyDispatch(t *testing.T) {
	f := ready(t, "42")
	f.s.AddText("a", 0, 0)
	f.clock.Advance(history.CaptureQuiet)

	// Zoom wins over history for its keys.
	if !f.s.HandleKey("+", true, false, false) {
		t.Fatalf("+ must be consumed by the viewport")
	}
	if f.s.Viewport().Scale() != 0.35 {
		t.Fatalf("zoom did not step: %v", f.s.Viewport().Scale())
	}

	if !f.s.HandleKey("z", true, false, false) {
		t.Fatalf("ctrl+z must be consumed by history")
	}
	if f.s.Scene().Count() != 0 {
		t.Fatalf("ctrl+z did not undo")
	}

	// Text editing suppresses history shortcuts.
	if f.s.HandleKey("z", true, false, true) {
		t.Fatalf("shortcuts must be suppressed while text editing")
	}
	if f.s.HandleKey("q", true, false, false) {
		t.Fatalf("unbound key must not be consumed")
	}
}

func TestTeardownFlushesPendingWork(t *testing.T) {
	f := ready(t, "42")
	f.s.AddText("late edit", 0, 0)

	// No clock advance: both debounces are still pending at exit.
	res := f.s.Teardown(context.Background())
	if !res.Saved || res.BlockNavigation {
		t.Fatalf("teardown %+v, want a clean save", res)
	}
	if f.store.saves != 1 {
		t.Fatalf("store saves %d, want 1", f.store.saves)
	}
	rec := f.store.records["42/7/front"]
	if rec == nil {
		t.Fatalf("record missing after teardown")
	}
	check := scene.NewGraph(1, 1)
	if err := check.Load(rec.CanvasJSON); err != nil || check.Count() != 1 {
		t.Fatalf("teardown persisted the wrong payload: %v", err)
	}
}
