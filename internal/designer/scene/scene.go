package scene

import "time"

// Kind discriminates the drawable types a design can contain.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindShape Kind = "shape"
)

// View names the garment side a scene belongs to.
type View string

const (
	ViewFront View = "front"
	ViewBack  View = "back"
)

// Rect is an axis-aligned box in canvas pixel coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Contains reports whether inner lies fully within r.
func (r Rect) Contains(inner Rect) bool {
	return inner.Left >= r.Left && inner.Top >= r.Top &&
		inner.Right <= r.Right && inner.Bottom <= r.Bottom
}

// Drawable is one placed element. Identity and provenance fields are
// assigned by the metadata tracker, never by the scene itself, and they
// round-trip through serialization.
type Drawable struct {
	ID         string    `json:"id,omitempty"`
	View       View      `json:"view,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
	Locked     bool      `json:"locked,omitempty"`

	Kind   Kind    `json:"kind"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	ScaleX float64 `json:"scale_x"`
	ScaleY float64 `json:"scale_y"`
	Angle  float64 `json:"angle,omitempty"`

	Fill       string  `json:"fill,omitempty"`
	Text       string  `json:"text,omitempty"`
	FontFamily string  `json:"font_family,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"`

	SourceURL    string `json:"source_url,omitempty"`
	NativeWidth  int    `json:"native_width,omitempty"`
	NativeHeight int    `json:"native_height,omitempty"`

	Shape string `json:"shape,omitempty"`
}

// BoundingBox returns the scaled axis-aligned footprint. Rotation is
// intentionally ignored: print-area policy is evaluated on the unrotated
// scaled box, matching how the editor presents selection handles.
func (d *Drawable) BoundingBox() Rect {
	sx, sy := d.ScaleX, d.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return Rect{
		Left:   d.Left,
		Top:    d.Top,
		Right:  d.Left + d.Width*sx,
		Bottom: d.Top + d.Height*sy,
	}
}

// EventKind classifies scene mutations.
type EventKind string

const (
	EventAdded    EventKind = "added"
	EventModified EventKind = "modified"
	EventRemoved  EventKind = "removed"
	EventCleared  EventKind = "cleared"
	EventLoaded   EventKind = "loaded"
)

// MutationEvent is delivered synchronously to every registered handler
// after the mutation has been applied. Target is nil for cleared/loaded.
type MutationEvent struct {
	Kind   EventKind
	Target *Drawable
}

// Scene is the capability contract the session engine depends on. The
// concrete graph implementation stays behind this interface so the engine
// is portable across rendering back-ends and testable without one.
type Scene interface {
	Add(d *Drawable)
	Remove(id string) bool
	Object(id string) *Drawable
	Objects() []*Drawable
	Count() int
	Clear()

	Width() float64
	Height() float64
	Resize(width, height float64)
	Background() string
	SetBackground(color string)

	Apply(id string, u Update) error
	Serialize() ([]byte, error)
	Load(data []byte) error

	OnMutation(fn func(MutationEvent))
}
