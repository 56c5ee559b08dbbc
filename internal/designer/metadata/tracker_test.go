package metadata

import (
	"testing"
	"time"

	"github.com/threadforge/design-backend/internal/designer/scene"
	"github.com/threadforge/design-backend/internal/designer/sched"
)

func TestTagAssignsIdentityOnce(t *testing.T) {
	m := sched.NewManual()
	tr := NewTracker(scene.ViewFront, m)

	d := &scene.Drawable{Kind: scene.KindText}
	tr.Tag(d)
	if d.ID == "" {
		t.Fatalf("tag did not assign an id")
	}
	if d.View != scene.ViewFront {
		t.Fatalf("tag did not assign the view: %q", d.View)
	}
	if d.CreatedAt.IsZero() || !d.CreatedAt.Equal(d.ModifiedAt) {
		t.Fatalf("fresh tag must set created == modified: %v / %v", d.CreatedAt, d.ModifiedAt)
	}

	// Idempotent: a rehydrated drawable keeps its identity.
	id, created := d.ID, d.CreatedAt
	m.Advance(time.Hour)
	tr.Tag(d)
	if d.ID != id || !d.CreatedAt.Equal(created) {
		t.Fatalf("re-tag rewrote identity: %s/%v", d.ID, d.CreatedAt)
	}
}

func TestTagAllCoversUntaggedOnly(t *testing.T) {
	m := sched.NewManual()
	tr := NewTracker(scene.ViewBack, m)
	g := scene.NewGraph(400, 400)
	g.Add(&scene.Drawable{ID: "existing", Kind: scene.KindShape})
	g.Add(&scene.Drawable{Kind: scene.KindText})

	tr.TagAll(g)

	if g.Object("existing") == nil {
		t.Fatalf("existing id was rewritten")
	}
	for _, d := range g.Objects() {
		if d.ID == "" {
			t.Fatalf("untagged drawable survived TagAll")
		}
	}
}

func TestTouchBumpsModifiedOnly(t *testing.T) {
	m := sched.NewManual()
	tr := NewTracker(scene.ViewFront, m)

	d := &scene.Drawable{Kind: scene.KindText}
	tr.Tag(d)
	created := d.CreatedAt

	m.Advance(5 * time.Minute)
	tr.Touch(d)

	if !d.CreatedAt.Equal(created) {
		t.Fatalf("touch rewrote CreatedAt")
	}
	if got := d.ModifiedAt.Sub(created); got != 5*time.Minute {
		t.Fatalf("ModifiedAt moved by %v, want 5m", got)
	}
}
