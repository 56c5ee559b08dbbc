package scene

import (
	"fmt"

	"github.com/threadforge/design-backend/internal/pkg/errors"
)

// Update is a closed set of property-update variants. Every variant is
// applied through Scene.Apply, which fires exactly one modified event.
type Update interface {
	apply(d *Drawable)
}

// PositionUpdate moves a drawable to an absolute canvas position.
type PositionUpdate struct {
	Left float64
	Top  float64
}

func (u PositionUpdate) apply(d *Drawable) {
	d.Left = u.Left
	d.Top = u.Top
}

// TranslateUpdate shifts a drawable by a delta.
type TranslateUpdate struct {
	DX float64
	DY float64
}

func (u TranslateUpdate) apply(d *Drawable) {
	d.Left += u.DX
	d.Top += u.DY
}

// SizeUpdate changes the scale factors; zero fields leave the axis alone.
type SizeUpdate struct {
	ScaleX float64
	ScaleY float64
}

func (u SizeUpdate) apply(d *Drawable) {
	if u.ScaleX != 0 {
		d.ScaleX = u.ScaleX
	}
	if u.ScaleY != 0 {
		d.ScaleY = u.ScaleY
	}
}

// RotationUpdate sets the rotation angle in degrees.
type RotationUpdate struct {
	Angle float64
}

func (u RotationUpdate) apply(d *Drawable) { d.Angle = u.Angle }

// StyleUpdate changes styling; nil fields are left untouched.
type StyleUpdate struct {
	Fill       *string
	FontFamily *string
	FontSize   *float64
}

func (u StyleUpdate) apply(d *Drawable) {
	if u.Fill != nil {
		d.Fill = *u.Fill
	}
	if u.FontFamily != nil {
		d.FontFamily = *u.FontFamily
	}
	if u.FontSize != nil {
		d.FontSize = *u.FontSize
	}
}

// TextUpdate replaces the text content of a text drawable.
type TextUpdate struct {
	Text string
}

func (u TextUpdate) apply(d *Drawable) { d.Text = u.Text }

// LockUpdate toggles the locked flag.
type LockUpdate struct {
	Locked bool
}

func (u LockUpdate) apply(d *Drawable) { d.Locked = u.Locked }

func applyUpdate(d *Drawable, u Update) error {
	if d == nil {
		return errors.ErrNotFound
	}
	if u == nil {
		return fmt.Errorf("%w: nil update", errors.ErrInvalidArgument)
	}
	if d.Locked {
		// TranslateUpdate stays allowed: it is the corrective nudge
		// auto-fit applies, not a user edit.
		switch u.(type) {
		case LockUpdate, TranslateUpdate:
		default:
			return fmt.Errorf("%w: drawable %s is locked", errors.ErrInvalidArgument, d.ID)
		}
	}
	u.apply(d)
	return nil
}
