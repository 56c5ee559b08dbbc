package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/threadforge/design-backend/internal/designer/presets"
	"github.com/threadforge/design-backend/internal/designer/render"
	"github.com/threadforge/design-backend/internal/designer/scene"
	"github.com/threadforge/design-backend/internal/designer/sched"
	"github.com/threadforge/design-backend/internal/designer/validate"
	"github.com/threadforge/design-backend/internal/pkg/errors"
	"github.com/threadforge/design-backend/internal/pkg/httpx"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

type SaveState string

const (
	SaveIdle   SaveState = "idle"
	Saving     SaveState = "saving"
	Saved      SaveState = "saved"
	SaveFailed SaveState = "save-error"
)

type LoadState string

const (
	LoadIdle   LoadState = "idle"
	Loading    LoadState = "loading"
	Loaded     LoadState = "loaded"
	LoadFailed LoadState = "load-error"
)

// LoadSource reports which persistence tier produced the loaded scene.
type LoadSource string

const (
	SourceRemote LoadSource = "remote"
	SourceBackup LoadSource = "backup"
	SourceFresh  LoadSource = "fresh"
)

const (
	// AutoSaveQuiet coalesces rapid scene mutations into one save.
	AutoSaveQuiet = 2 * time.Second
	// BackupInterval is the periodic local-backup cadence.
	BackupInterval = 10 * time.Second

	// Display windows before the status indicator returns to idle.
	savedWindow     = 3 * time.Second
	saveErrorWindow = 5 * time.Second
	loadedWindow    = 100 * time.Millisecond
	loadErrorWindow = 3 * time.Second

	// Retry budget for the final persistence call only.
	maxSaveRetries   = 2
	saveRetryBackoff = 500 * time.Millisecond
)

// Status is the user-visible save/load indicator state.
type Status struct {
	Save               SaveState  `json:"save"`
	Load               LoadState  `json:"load"`
	Message            string     `json:"message,omitempty"`
	RestoredFromBackup bool       `json:"restored_from_backup,omitempty"`
	Warnings           []string   `json:"warnings,omitempty"`
	Source             LoadSource `json:"source,omitempty"`
}

// Config wires a Coordinator. Context supplies the principal and active
// variant at save time and must reject with a PreconditionError when
// either is missing.
type Config struct {
	Log   *logger.Logger
	Scene scene.Scene
	Area  func() presets.DesignArea
	// Context gates saves: it must reject with a PreconditionError when
	// the principal or the active variant is missing.
	Context func() (*SaveContext, error)
	// Keys identifies the session for load and backup. Guests load and
	// back up locally; only saving demands the full save context.
	Keys func() (userID, productID string, view scene.View)
	Store    DesignStore
	Blobs    BlobStore
	Backup   BackupStore
	Renderer *render.Renderer
	Sched    sched.Scheduler
	OnStatus func(Status)

	// Sleep is the retry backoff sleeper; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Coordinator owns the save/load protocol for one design session: the
// tiered fallback chain, the debounced auto-save, the periodic local
// backup, and the reentrancy guard that keeps a load in flight from being
// clobbered by a stale auto-save.
type Coordinator struct {
	mu  sync.Mutex
	cfg Config
	log *logger.Logger

	saveState SaveState
	loadState LoadState
	status    Status

	loading bool // reentrancy guard checked before scheduling auto-saves

	autoSave  *sched.Debouncer
	saveTimer sched.Timer
	loadTimer sched.Timer
	savedAt   time.Time
}

func NewCoordinator(cfg Config) *Coordinator {
	c := &Coordinator{
		cfg:       cfg,
		log:       cfg.Log.With("component", "PersistenceCoordinator"),
		saveState: SaveIdle,
		loadState: LoadIdle,
	}
	if c.cfg.Sleep == nil {
		c.cfg.Sleep = time.Sleep
	}
	c.autoSave = sched.NewDebouncer(cfg.Sched, AutoSaveQuiet, c.autoSaveFire)
	c.status = Status{Save: SaveIdle, Load: LoadIdle}
	return c
}

// TriggerAutoSave schedules a debounced save. Suppressed while a load is
// in flight so a load-in-progress is never overwritten by a stale save.
func (c *Coordinator) TriggerAutoSave() {
	c.mu.Lock()
	suppressed := c.loading
	c.mu.Unlock()
	if suppressed {
		return
	}
	c.autoSave.Trigger()
}

func (c *Coordinator) autoSaveFire() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Save(ctx); err != nil {
		c.log.Debug("Auto-save did not complete", "error", err)
	}
}

// Status returns the current indicator state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SaveStateNow reports the save machine state.
func (c *Coordinator) SaveStateNow() SaveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveState
}

// Save runs the full save protocol. Preconditions are checked before any
// I/O; validation errors abort with no partial save; warnings are
// surfaced but do not block. Only the final store upsert is retried.
func (c *Coordinator) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.saveState == Saving {
		// A save is already in flight; coalesce.
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	sctx, err := c.cfg.Context()
	if err != nil {
		return err
	}

	res := validate.Validate(c.cfg.Scene, c.cfg.Area())
	if !res.Valid {
		verr := &errors.ValidationError{Errors: res.Errors, Warnings: res.Warnings}
		c.setSaveState(SaveFailed, Status{Message: verr.Error(), Warnings: res.Warnings})
		return verr
	}

	c.setSaveState(Saving, Status{Warnings: res.Warnings})

	thumbURL, err := c.uploadThumbnail(ctx, sctx)
	if err != nil {
		c.setSaveState(SaveFailed, Status{Message: "thumbnail upload failed"})
		return errors.PersistenceError("thumbnail upload", err)
	}

	canvasJSON, err := c.cfg.Scene.Serialize()
	if err != nil {
		c.setSaveState(SaveFailed, Status{Message: "design could not be serialized"})
		return errors.SceneError(err)
	}

	rec := &DesignRecord{
		UserID:               sctx.UserID,
		ProductID:            sctx.ProductID,
		View:                 sctx.View,
		SizeSelection:        sctx.SizeSelection,
		PrintOptionSelection: sctx.PrintOptionSelection,
		PrintAreaPreset:      sctx.PrintAreaPreset,
		CanvasJSON:           canvasJSON,
		ThumbnailURL:         thumbURL,
		SavedAt:              c.cfg.Sched.Now(),
	}

	if err := c.saveWithRetry(ctx, rec); err != nil {
		c.setSaveState(SaveFailed, Status{Message: "save failed"})
		return errors.PersistenceError("design save", err)
	}

	c.mu.Lock()
	c.savedAt = rec.SavedAt
	c.mu.Unlock()
	c.setSaveState(Saved, Status{Warnings: res.Warnings})
	return nil
}

func (c *Coordinator) uploadThumbnail(ctx context.Context, sctx *SaveContext) (string, error) {
	if c.cfg.Renderer == nil || c.cfg.Blobs == nil {
		return "", nil
	}
	png, err := c.cfg.Renderer.Thumbnail(c.cfg.Scene, render.DefaultMaxEdge)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("design_thumb/%s/%s/%s_%d.png", sctx.UserID, sctx.ProductID, sctx.View, c.cfg.Sched.Now().UnixNano())
	return c.cfg.Blobs.UploadThumbnail(ctx, key, png)
}

// saveWithRetry retries the store upsert with exponential backoff and
// jitter. Thumbnail upload deliberately gets no retry.
func (c *Coordinator) saveWithRetry(ctx context.Context, rec *DesignRecord) error {
	backoff := saveRetryBackoff
	var lastErr error
	for attempt := 0; attempt <= maxSaveRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt > 0 {
			c.log.Warn("Design save retrying",
				"attempt", attempt,
				"max_retries", maxSaveRetries,
				"error", lastErr.Error(),
			)
			c.cfg.Sleep(httpx.JitterSleep(backoff))
			backoff *= 2
		}
		_, err := c.cfg.Store.Save(ctx, rec)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// Load walks the fallback chain: remote store, then local backup, then a
// fresh canvas. All three outcomes end in Loaded; only a non-404 remote
// failure with no usable backup reports LoadFailed.
func (c *Coordinator) Load(ctx context.Context) (Status, error) {
	userID, productID, view := c.cfg.Keys()
	if productID == "" {
		return c.Status(), errors.PreconditionError("no product selected")
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return c.Status(), errors.PreconditionError("a load is already in flight")
	}
	c.loading = true
	c.mu.Unlock()
	// Cancel any save already debouncing; its snapshot predates the load.
	c.autoSave.Stop()
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	c.setLoadState(Loading, Status{})

	remote, remoteErr := c.cfg.Store.Load(ctx, userID, productID)
	if remoteErr == nil {
		data := remote.For(view)
		if len(data) == 0 {
			return c.finishFresh()
		}
		if err := c.cfg.Scene.Load(data); err != nil {
			c.log.Warn("Remote design is corrupt, falling back to backup", "error", err)
			return c.loadFromBackup(ctx, userID, productID, view, nil)
		}
		st := Status{Message: "design loaded", Source: SourceRemote}
		c.setLoadState(Loaded, st)
		return c.Status(), nil
	}

	if errors.Is(remoteErr, errors.ErrNotFound) {
		// 404: expected first-visit path.
		return c.loadFromBackup(ctx, userID, productID, view, nil)
	}

	c.log.Warn("Remote design load failed, trying local backup", "error", remoteErr)
	return c.loadFromBackup(ctx, userID, productID, view, remoteErr)
}

// loadFromBackup is tier two. hardErr carries a non-404 remote failure:
// with it set, a backup miss becomes a load error instead of a fresh
// canvas.
func (c *Coordinator) loadFromBackup(ctx context.Context, userID, productID string, view scene.View, hardErr error) (Status, error) {
	key := BackupKey(userID, productID, view)
	data, err := c.cfg.Backup.Get(ctx, key)
	if err == nil && len(data) > 0 {
		if loadErr := c.cfg.Scene.Load(data); loadErr == nil {
			st := Status{Message: "restored from backup", RestoredFromBackup: true, Source: SourceBackup}
			c.setLoadState(Loaded, st)
			return c.Status(), nil
		}
		c.log.Warn("Local backup is corrupt, discarding", "key", key)
		_ = c.cfg.Backup.Delete(ctx, key)
	}

	if hardErr != nil {
		c.setLoadState(LoadFailed, Status{Message: "design could not be loaded"})
		return c.Status(), errors.PersistenceError("design load", hardErr)
	}
	return c.finishFresh()
}

func (c *Coordinator) finishFresh() (Status, error) {
	c.cfg.Scene.Clear()
	st := Status{Message: "ready to design", Source: SourceFresh}
	c.setLoadState(Loaded, st)
	return c.Status(), nil
}

// BackupNow serializes the live scene into the local backup key. Runs on
// the periodic cadence and is also safe to call directly.
func (c *Coordinator) BackupNow(ctx context.Context) error {
	userID, productID, view := c.cfg.Keys()
	if productID == "" {
		return errors.PreconditionError("no product selected")
	}
	data, err := c.cfg.Scene.Serialize()
	if err != nil {
		return errors.SceneError(err)
	}
	return c.cfg.Backup.Set(ctx, BackupKey(userID, productID, view), data)
}

// RunPeriodicBackup writes a local backup every BackupInterval until ctx
// is done. Independent of the debounced auto-save and of save health.
func (c *Coordinator) RunPeriodicBackup(ctx context.Context) error {
	ticker := time.NewTicker(BackupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.BackupNow(ctx); err != nil {
				c.log.Debug("Periodic backup skipped", "error", err)
			}
		}
	}
}

// TeardownResult reports what session teardown should do.
type TeardownResult struct {
	Saved bool
	// BlockNavigation asks the UI to prompt before leaving: a save is in
	// flight or known to have failed.
	BlockNavigation bool
}

// Teardown attempts a best-effort synchronous save on session exit.
func (c *Coordinator) Teardown(ctx context.Context) TeardownResult {
	c.mu.Lock()
	state := c.saveState
	c.mu.Unlock()

	switch state {
	case Saving, SaveFailed:
		return TeardownResult{BlockNavigation: true}
	}
	c.autoSave.Stop()
	if err := c.Save(ctx); err != nil {
		c.log.Warn("Exit-time save failed", "error", err)
		return TeardownResult{BlockNavigation: c.SaveStateNow() == SaveFailed}
	}
	return TeardownResult{Saved: true}
}

// AutoSavePending reports whether a debounced save is scheduled.
func (c *Coordinator) AutoSavePending() bool { return c.autoSave.Pending() }

func (c *Coordinator) setSaveState(s SaveState, st Status) {
	c.mu.Lock()
	c.saveState = s
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	c.status.Save = s
	c.status.Message = st.Message
	c.status.Warnings = st.Warnings
	var window time.Duration
	switch s {
	case Saved:
		window = savedWindow
	case SaveFailed:
		window = saveErrorWindow
	}
	if window > 0 {
		c.saveTimer = c.cfg.Sched.AfterFunc(window, func() {
			c.mu.Lock()
			if c.saveState == s {
				c.saveState = SaveIdle
				c.status.Save = SaveIdle
			}
			cb := c.cfg.OnStatus
			snapshot := c.status
			c.mu.Unlock()
			if cb != nil {
				cb(snapshot)
			}
		})
	}
	cb := c.cfg.OnStatus
	snapshot := c.status
	c.mu.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

func (c *Coordinator) setLoadState(s LoadState, st Status) {
	c.mu.Lock()
	c.loadState = s
	if c.loadTimer != nil {
		c.loadTimer.Stop()
		c.loadTimer = nil
	}
	c.status.Load = s
	if st.Message != "" {
		c.status.Message = st.Message
	}
	c.status.RestoredFromBackup = st.RestoredFromBackup
	if st.Source != "" {
		c.status.Source = st.Source
	}
	var window time.Duration
	switch s {
	case Loaded:
		window = loadedWindow
	case LoadFailed:
		window = loadErrorWindow
	}
	if window > 0 {
		c.loadTimer = c.cfg.Sched.AfterFunc(window, func() {
			c.mu.Lock()
			if c.loadState == s {
				c.loadState = LoadIdle
				c.status.Load = LoadIdle
			}
			cb := c.cfg.OnStatus
			snapshot := c.status
			c.mu.Unlock()
			if cb != nil {
				cb(snapshot)
			}
		})
	}
	cb := c.cfg.OnStatus
	snapshot := c.status
	c.mu.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}
