package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/threadforge/design-backend/internal/designer/history"
	"github.com/threadforge/design-backend/internal/designer/metadata"
	"github.com/threadforge/design-backend/internal/designer/persist"
	"github.com/threadforge/design-backend/internal/designer/presets"
	"github.com/threadforge/design-backend/internal/designer/render"
	"github.com/threadforge/design-backend/internal/designer/scene"
	"github.com/threadforge/design-backend/internal/designer/sched"
	"github.com/threadforge/design-backend/internal/designer/validate"
	"github.com/threadforge/design-backend/internal/designer/viewport"
	"github.com/threadforge/design-backend/internal/pkg/errors"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

// Variant is the garment/size/print-option selection gating the session.
// No drawable may enter the scene while it is absent.
type Variant struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	VariantName string  `json:"variant_name"`
	Size        string  `json:"size"`
	PrintOption string  `json:"print_option"`
	RetailPrice float64 `json:"retail_price"`
	TotalPrice  float64 `json:"total_price"`
}

// State is the per-view working memory snapshot exposed to the UI.
type State struct {
	DesignArea       presets.DesignArea `json:"design_area"`
	Scale            float64            `json:"scale"`
	PanOffset        viewport.Offset    `json:"pan_offset"`
	SelectedObjectID string             `json:"selected_object_id,omitempty"`
	Objects          []*scene.Drawable  `json:"objects"`
	HistoryLen       int                `json:"history_len"`
	HistoryIndex     int                `json:"history_index"`
}

// Config wires a Session.
type Config struct {
	Log       *logger.Logger
	UserID    string // empty for guests
	ProductID string
	View      scene.View
	Presets   *presets.Table
	Preset    string // initial print-area preset name
	Store     persist.DesignStore
	Blobs     persist.BlobStore
	Backup    persist.BackupStore
	Renderer  *render.Renderer
	Sched     sched.Scheduler
	OnStatus  func(persist.Status)
}

// Session orchestrates one garment view's editor: it exclusively owns the
// scene and the active variant, and wires the tracker, history, viewport
// and persistence coordinator onto the scene's mutation events.
type Session struct {
	mu  sync.Mutex
	log *logger.Logger

	userID    string
	productID string
	view      scene.View

	presetTable *presets.Table
	area        presets.DesignArea
	presetName  string

	scn     scene.Scene
	vp      *viewport.Controller
	tracker *metadata.Tracker
	hist    *history.Manager
	coord   *persist.Coordinator

	variant  *Variant
	selected string
	ready    bool
}

func New(cfg Config) (*Session, error) {
	if cfg.ProductID == "" {
		return nil, fmt.Errorf("%w: product id required", errors.ErrInvalidArgument)
	}
	if cfg.View == "" {
		cfg.View = scene.ViewFront
	}
	if cfg.Sched == nil {
		cfg.Sched = sched.Wall{}
	}
	if cfg.Presets == nil {
		cfg.Presets = presets.Default()
	}
	if cfg.Preset == "" {
		cfg.Preset = "letter"
	}
	area, err := cfg.Presets.Lookup(cfg.Preset)
	if err != nil {
		return nil, err
	}

	log := cfg.Log.With("component", "DesignSession", "product_id", cfg.ProductID, "view", string(cfg.View))
	scn := scene.NewGraph(area.WidthPx, area.HeightPx)

	s := &Session{
		log:         log,
		userID:      cfg.UserID,
		productID:   cfg.ProductID,
		view:        cfg.View,
		presetTable: cfg.Presets,
		area:        area,
		presetName:  cfg.Preset,
		scn:         scn,
		vp:          viewport.NewController(area),
		tracker:     metadata.NewTracker(cfg.View, cfg.Sched),
		hist:        history.NewManager(cfg.Log, scn, cfg.Sched),
	}
	s.coord = persist.NewCoordinator(persist.Config{
		Log:      cfg.Log,
		Scene:    scn,
		Area:     s.currentArea,
		Context:  s.saveContext,
		Keys:     s.keys,
		Store:    cfg.Store,
		Blobs:    cfg.Blobs,
		Backup:   cfg.Backup,
		Renderer: cfg.Renderer,
		Sched:    cfg.Sched,
		OnStatus: cfg.OnStatus,
	})
	scn.OnMutation(s.onMutation)
	return s, nil
}

func (s *Session) currentArea() presets.DesignArea {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.area
}

func (s *Session) keys() (string, string, scene.View) {
	return s.userID, s.productID, s.view
}

func (s *Session) saveContext() (*persist.SaveContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return nil, errors.PreconditionError("sign in to save your design")
	}
	if s.variant == nil {
		return nil, errors.PreconditionError("select a size and print option first")
	}
	return &persist.SaveContext{
		UserID:               s.userID,
		ProductID:            s.productID,
		View:                 s.view,
		PrintAreaPreset:      s.presetName,
		SizeSelection:        s.variant.Size,
		PrintOptionSelection: s.variant.PrintOption,
	}, nil
}

// onMutation runs synchronously after every scene mutation: tag/touch
// metadata, then schedule the debounced history snapshot and auto-save.
// Restores re-enter here via the loaded event and must not re-capture.
func (s *Session) onMutation(ev scene.MutationEvent) {
	switch ev.Kind {
	case scene.EventAdded:
		s.tracker.Tag(ev.Target)
	case scene.EventLoaded:
		// Covers JSON-rehydrated drawables that were never tagged.
		s.tracker.TagAll(s.scn)
		return
	case scene.EventModified:
		s.tracker.Touch(ev.Target)
	}
	if s.hist.Restoring() {
		return
	}
	s.hist.Capture()
	s.coord.TriggerAutoSave()
}

// MarkReady signals the canvas element has mounted. Scene-mutating calls
// are rejected until then.
func (s *Session) MarkReady() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// gate enforces the mutation preconditions: canvas mounted, variant
// selected, and (for adds) the object-count guard.
func (s *Session) gate(counting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return errors.PreconditionError("canvas is not ready yet")
	}
	if s.variant == nil {
		return errors.PreconditionError("select a size and print option first")
	}
	if counting && !validate.CanAdd(s.scn) {
		return errors.PreconditionError(fmt.Sprintf("design is limited to %d objects", validate.MaxObjects))
	}
	return nil
}

func (s *Session) SetActiveVariant(v *Variant) {
	s.mu.Lock()
	s.variant = v
	s.mu.Unlock()
}

func (s *Session) ActiveVariant() *Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variant
}

// AddText places a text drawable at canvas coordinates.
func (s *Session) AddText(text string, left, top float64) (*scene.Drawable, error) {
	if err := s.gate(true); err != nil {
		return nil, err
	}
	d := &scene.Drawable{
		Kind:       scene.KindText,
		Left:       left,
		Top:        top,
		Width:      200,
		Height:     40,
		Text:       text,
		FontFamily: "Arial",
		FontSize:   24,
		Fill:       "#000000",
	}
	s.scn.Add(d)
	s.setSelected(d.ID)
	return d, nil
}

// AddImage places an image drawable. Native resolution is recorded for
// the validator's performance warning.
func (s *Session) AddImage(sourceURL string, left, top, width, height float64, nativeW, nativeH int) (*scene.Drawable, error) {
	if err := s.gate(true); err != nil {
		return nil, err
	}
	d := &scene.Drawable{
		Kind:         scene.KindImage,
		Left:         left,
		Top:          top,
		Width:        width,
		Height:       height,
		SourceURL:    sourceURL,
		NativeWidth:  nativeW,
		NativeHeight: nativeH,
	}
	s.scn.Add(d)
	s.setSelected(d.ID)
	return d, nil
}

// AddShape places a rect or circle drawable.
func (s *Session) AddShape(shape string, left, top, width, height float64, fill string) (*scene.Drawable, error) {
	if err := s.gate(true); err != nil {
		return nil, err
	}
	d := &scene.Drawable{
		Kind:   scene.KindShape,
		Left:   left,
		Top:    top,
		Width:  width,
		Height: height,
		Shape:  shape,
		Fill:   fill,
	}
	s.scn.Add(d)
	s.setSelected(d.ID)
	return d, nil
}

// ApplyUpdate routes a typed property update to a drawable.
func (s *Session) ApplyUpdate(id string, u scene.Update) error {
	if err := s.gate(false); err != nil {
		return err
	}
	return s.scn.Apply(id, u)
}

func (s *Session) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || s.scn.Object(id) != nil {
		s.selected = id
	}
}

func (s *Session) setSelected(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
}

// RemoveSelected deletes the selected drawable, if any.
func (s *Session) RemoveSelected() error {
	if err := s.gate(false); err != nil {
		return err
	}
	s.mu.Lock()
	id := s.selected
	s.selected = ""
	s.mu.Unlock()
	if id == "" {
		return nil
	}
	if !s.scn.Remove(id) {
		return fmt.Errorf("%w: drawable %s", errors.ErrNotFound, id)
	}
	return nil
}

// Clear empties the scene.
func (s *Session) Clear() error {
	if err := s.gate(false); err != nil {
		return err
	}
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
	s.scn.Clear()
	return nil
}

// SetPrintArea switches presets, resizing the live scene in place.
func (s *Session) SetPrintArea(name string) error {
	area, err := s.presetTable.Lookup(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.area = area
	s.presetName = name
	s.mu.Unlock()
	s.scn.Resize(area.WidthPx, area.HeightPx)
	s.vp.SetDesignArea(area)
	// Resize emits no drawable event; snapshot and save explicitly.
	s.hist.Capture()
	s.coord.TriggerAutoSave()
	return nil
}

// Validate runs the print-area policy against the current scene.
func (s *Session) Validate() validate.Result {
	return validate.Validate(s.scn, s.currentArea())
}

// AutoFit pulls out-of-bounds drawables back inside the print area.
func (s *Session) AutoFit() (int, error) {
	if err := s.gate(false); err != nil {
		return 0, err
	}
	return validate.AutoFit(s.scn, s.currentArea()), nil
}

// Save runs the full save protocol synchronously.
func (s *Session) Save(ctx context.Context) error { return s.coord.Save(ctx) }

// Load rehydrates the scene through the tiered fallback chain, then seeds
// the history baseline.
func (s *Session) Load(ctx context.Context) (persist.Status, error) {
	s.hist.Reset()
	st, err := s.coord.Load(ctx)
	if err == nil {
		s.hist.CaptureNow()
	}
	return st, err
}

func (s *Session) Undo() bool { return s.hist.Undo() }
func (s *Session) Redo() bool { return s.hist.Redo() }

// HandleKey dispatches the editor shortcuts: viewport zoom first, then
// undo/redo.
func (s *Session) HandleKey(key string, ctrlOrCmd, shift, textEditing bool) bool {
	if s.vp.HandleKey(key, ctrlOrCmd, textEditing) {
		return true
	}
	if textEditing {
		return false
	}
	return s.hist.HandleKey(key, ctrlOrCmd, shift)
}

// Viewport exposes the zoom/pan controller.
func (s *Session) Viewport() *viewport.Controller { return s.vp }

// Scene exposes the live scene read-only; mutations go through the
// session's gated operations.
func (s *Session) Scene() scene.Scene { return s.scn }

// Status returns the save/load indicator state.
func (s *Session) Status() persist.Status { return s.coord.Status() }

// State snapshots the working memory for UI display.
func (s *Session) State() State {
	s.mu.Lock()
	area := s.area
	selected := s.selected
	s.mu.Unlock()
	return State{
		DesignArea:       area,
		Scale:            s.vp.Scale(),
		PanOffset:        s.vp.Pan(),
		SelectedObjectID: selected,
		Objects:          s.scn.Objects(),
		HistoryLen:       s.hist.Len(),
		HistoryIndex:     s.hist.Index(),
	}
}

// Run drives the periodic local backup until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	return s.coord.RunPeriodicBackup(ctx)
}

// Teardown flushes pending work on session exit and reports whether the
// UI should block navigation.
func (s *Session) Teardown(ctx context.Context) persist.TeardownResult {
	s.hist.Flush()
	return s.coord.Teardown(ctx)
}
