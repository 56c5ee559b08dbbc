package metadata

import (
	"github.com/google/uuid"

	"github.com/threadforge/design-backend/internal/designer/scene"
	"github.com/threadforge/design-backend/internal/designer/sched"
)

// Tracker assigns stable identity and provenance to drawables. It never
// touches visual or geometric properties.
type Tracker struct {
	view  scene.View
	sched sched.Scheduler
}

func NewTracker(view scene.View, s sched.Scheduler) *Tracker {
	return &Tracker{view: view, sched: s}
}

func (t *Tracker) View() scene.View { return t.view }

// Tag lazily assigns identity the first time a drawable is observed.
// Idempotent: rehydrated drawables that already carry an ID are left
// untouched, so it is safe to call on every added/loaded event.
func (t *Tracker) Tag(d *scene.Drawable) {
	if d == nil || d.ID != "" {
		return
	}
	now := t.sched.Now()
	d.ID = uuid.NewString()
	d.View = t.view
	d.CreatedAt = now
	d.ModifiedAt = now
}

// TagAll tags every untagged drawable in the scene. Used after a bulk
// load so the invariant "every drawable has a non-nil id after the first
// mutation event" holds for deserialized content too.
func (t *Tracker) TagAll(s scene.Scene) {
	for _, d := range s.Objects() {
		t.Tag(d)
	}
}

// Touch bumps ModifiedAt on a completed mutation (move, scale, rotate,
// property edit, text edit). CreatedAt and ID are never rewritten.
func (t *Tracker) Touch(d *scene.Drawable) {
	if d == nil {
		return
	}
	d.ModifiedAt = t.sched.Now()
}
