package history

import (
	"strings"
	"time"

	"github.com/threadforge/design-backend/internal/designer/scene"
	"github.com/threadforge/design-backend/internal/designer/sched"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

const (
	// MaxDepth bounds the snapshot ring; pushing beyond it evicts the
	// oldest entry and shifts indices down by one.
	MaxDepth = 50
	// CaptureQuiet is the debounce window for snapshot capture.
	CaptureQuiet = 300 * time.Millisecond
)

// Manager owns the undo/redo stack for one scene. Invariant after any
// capture: 0 <= index < len(stack) <= MaxDepth.
type Manager struct {
	log   *logger.Logger
	scn   scene.Scene
	deb   *sched.Debouncer
	stack [][]byte
	index int

	restoring bool
}

func NewManager(log *logger.Logger, scn scene.Scene, s sched.Scheduler) *Manager {
	m := &Manager{
		log:   log.With("component", "HistoryManager"),
		scn:   scn,
		index: -1,
	}
	m.deb = sched.NewDebouncer(s, CaptureQuiet, m.CaptureNow)
	return m
}

// Capture schedules a debounced snapshot. A burst of mutations within the
// quiet window produces exactly one snapshot. Ignored while a restore is
// applying, otherwise the restore's own load event would corrupt the stack.
func (m *Manager) Capture() {
	if m.restoring {
		return
	}
	m.deb.Trigger()
}

// CaptureNow serializes immediately, bypassing the debounce. Used for the
// baseline snapshot right after a load.
func (m *Manager) CaptureNow() {
	data, err := m.scn.Serialize()
	if err != nil {
		m.log.Warn("History snapshot failed", "error", err)
		return
	}
	// A redone-then-abandoned future is discarded before pushing.
	if m.index >= 0 && m.index+1 < len(m.stack) {
		m.stack = m.stack[:m.index+1]
	}
	m.stack = append(m.stack, data)
	m.index++
	if len(m.stack) > MaxDepth {
		m.stack = m.stack[1:]
		m.index--
	}
}

func (m *Manager) CanUndo() bool { return m.index > 0 }
func (m *Manager) CanRedo() bool { return m.index >= 0 && m.index < len(m.stack)-1 }

// Undo steps back one snapshot and restores it into the live scene.
// No-op at the bottom of the stack or while another restore is applying.
func (m *Manager) Undo() bool {
	if !m.CanUndo() || m.restoring {
		return false
	}
	return m.restore(m.index - 1)
}

// Redo steps forward one snapshot.
func (m *Manager) Redo() bool {
	if !m.CanRedo() || m.restoring {
		return false
	}
	return m.restore(m.index + 1)
}

func (m *Manager) restore(idx int) bool {
	// Cancel any pending capture so the pre-restore scene state cannot
	// land on the stack after the index already moved.
	m.deb.Stop()
	m.restoring = true
	defer func() { m.restoring = false }()

	if err := m.scn.Load(m.stack[idx]); err != nil {
		m.log.Error("History restore failed", "index", idx, "error", err)
		return false
	}
	m.index = idx
	return true
}

// Restoring reports whether a restore is currently applying; the
// orchestrator's mutation handler checks it to suppress re-capture.
func (m *Manager) Restoring() bool { return m.restoring }

// Len and Index are read-only views for UI display.
func (m *Manager) Len() int   { return len(m.stack) }
func (m *Manager) Index() int { return m.index }

// Reset drops all snapshots, e.g. when a different design is loaded.
func (m *Manager) Reset() {
	m.deb.Stop()
	m.stack = nil
	m.index = -1
}

// Flush forces a pending debounced capture to fire immediately.
func (m *Manager) Flush() { m.deb.Flush() }

// HandleKey maps the editor shortcuts: ctrl/cmd+Z undoes (shift redoes),
// ctrl/cmd+Y redoes. Returns true when the key was consumed.
func (m *Manager) HandleKey(key string, ctrlOrCmd, shift bool) bool {
	if !ctrlOrCmd {
		return false
	}
	switch strings.ToLower(key) {
	case "z":
		if shift {
			m.Redo()
		} else {
			m.Undo()
		}
	case "y":
		m.Redo()
	default:
		return false
	}
	return true
}
