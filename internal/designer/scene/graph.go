package scene

import (
	"encoding/json"
	"fmt"

	"github.com/threadforge/design-backend/internal/pkg/errors"
)

const documentVersion = 1

// document is the durable JSON form of a whole scene. It must stay
// round-trippable: Load(Serialize()) reproduces an equivalent graph,
// tracked identities included.
type document struct {
	Version    int         `json:"version"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Background string      `json:"background,omitempty"`
	Objects    []*Drawable `json:"objects"`
}

// Graph is the in-memory scene implementation backing the engine. It keeps
// drawables in z-order and delivers mutation events synchronously, in
// registration order, after each mutation has been applied.
type Graph struct {
	width      float64
	height     float64
	background string
	objects    []*Drawable
	handlers   []func(MutationEvent)
}

func NewGraph(width, height float64) *Graph {
	return &Graph{width: width, height: height, background: "#ffffff"}
}

func (g *Graph) Width() float64             { return g.width }
func (g *Graph) Height() float64            { return g.height }
func (g *Graph) Background() string         { return g.background }
func (g *Graph) SetBackground(color string) { g.background = color }
func (g *Graph) Count() int                 { return len(g.objects) }

// Resize changes the canvas dimensions in place. Drawables keep their
// positions; the validator decides whether they still fit.
func (g *Graph) Resize(width, height float64) {
	g.width = width
	g.height = height
}

func (g *Graph) Add(d *Drawable) {
	if d == nil {
		return
	}
	if d.ScaleX == 0 {
		d.ScaleX = 1
	}
	if d.ScaleY == 0 {
		d.ScaleY = 1
	}
	g.objects = append(g.objects, d)
	g.emit(MutationEvent{Kind: EventAdded, Target: d})
}

func (g *Graph) Remove(id string) bool {
	for i, d := range g.objects {
		if d.ID == id {
			g.objects = append(g.objects[:i], g.objects[i+1:]...)
			g.emit(MutationEvent{Kind: EventRemoved, Target: d})
			return true
		}
	}
	return false
}

func (g *Graph) Object(id string) *Drawable {
	for _, d := range g.objects {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Objects returns the live drawables in z-order. Callers must treat the
// slice as read-only; mutations go through Apply.
func (g *Graph) Objects() []*Drawable {
	out := make([]*Drawable, len(g.objects))
	copy(out, g.objects)
	return out
}

func (g *Graph) Clear() {
	if len(g.objects) == 0 {
		return
	}
	g.objects = nil
	g.emit(MutationEvent{Kind: EventCleared})
}

func (g *Graph) Apply(id string, u Update) error {
	d := g.Object(id)
	if d == nil {
		return fmt.Errorf("%w: drawable %s", errors.ErrNotFound, id)
	}
	if err := applyUpdate(d, u); err != nil {
		return err
	}
	g.emit(MutationEvent{Kind: EventModified, Target: d})
	return nil
}

func (g *Graph) Serialize() ([]byte, error) {
	doc := document{
		Version:    documentVersion,
		Width:      g.width,
		Height:     g.height,
		Background: g.background,
		Objects:    g.objects,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize scene: %w", err)
	}
	return data, nil
}

// Load replaces the whole graph with the serialized document. A decode
// failure leaves the current contents untouched and reports a SceneError
// so the persistence fallback chain can move on.
func (g *Graph) Load(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.SceneError(err)
	}
	if doc.Version > documentVersion {
		return errors.SceneError(fmt.Errorf("unsupported scene version %d", doc.Version))
	}
	if doc.Width > 0 {
		g.width = doc.Width
	}
	if doc.Height > 0 {
		g.height = doc.Height
	}
	if doc.Background != "" {
		g.background = doc.Background
	}
	g.objects = doc.Objects
	for _, d := range g.objects {
		if d.ScaleX == 0 {
			d.ScaleX = 1
		}
		if d.ScaleY == 0 {
			d.ScaleY = 1
		}
	}
	g.emit(MutationEvent{Kind: EventLoaded})
	return nil
}

func (g *Graph) OnMutation(fn func(MutationEvent)) {
	if fn != nil {
		g.handlers = append(g.handlers, fn)
	}
}

func (g *Graph) emit(ev MutationEvent) {
	for _, fn := range g.handlers {
		fn(ev)
	}
}
