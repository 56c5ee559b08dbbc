package render

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/threadforge/design-backend/internal/designer/scene"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

// DefaultMaxEdge is the longest thumbnail edge the storefront cards use.
const DefaultMaxEdge = 480

// Renderer rasterizes a scene into a PNG thumbnail for the saved-design
// card. It draws text with a configured TTF face and images as framed
// placeholders; the thumbnail is a preview, not print output.
type Renderer struct {
	log    *logger.Logger
	parsed *truetype.Font
	faces  map[float64]font.Face
}

func NewRenderer(log *logger.Logger, fontPath string) (*Renderer, error) {
	r := &Renderer{
		log:   log.With("component", "ThumbnailRenderer"),
		faces: map[float64]font.Face{},
	}
	if strings.TrimSpace(fontPath) != "" {
		raw, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("read thumbnail font: %w", err)
		}
		parsed, err := truetype.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse thumbnail font: %w", err)
		}
		r.parsed = parsed
	}
	return r, nil
}

func (r *Renderer) face(size float64) font.Face {
	if r.parsed == nil {
		return nil
	}
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(r.parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	r.faces[size] = f
	return f
}

// Thumbnail renders the scene at canvas resolution and downsamples to
// maxEdge on the longest side.
func (r *Renderer) Thumbnail(scn scene.Scene, maxEdge int) ([]byte, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	w := int(scn.Width())
	h := int(scn.Height())
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("scene has no canvas dimensions")
	}

	dc := gg.NewContext(w, h)
	bg := scn.Background()
	if bg == "" {
		bg = "#ffffff"
	}
	dc.SetHexColor(bg)
	dc.Clear()

	for _, d := range scn.Objects() {
		r.drawObject(dc, d)
	}

	// Render at full canvas resolution, then CatmullRom into the
	// target box.
	tw, th := fitEdge(w, h, maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), dc.Image(), dc.Image().Bounds(), draw.Over, nil)

	out := gg.NewContext(tw, th)
	out.DrawImage(dst, 0, 0)

	var buf bytes.Buffer
	if err := out.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode thumbnail png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawObject(dc *gg.Context, d *scene.Drawable) {
	box := d.BoundingBox()
	dc.Push()
	defer dc.Pop()

	if d.Angle != 0 {
		cx := box.Left + box.Width()/2
		cy := box.Top + box.Height()/2
		dc.RotateAbout(gg.Radians(d.Angle), cx, cy)
	}

	switch d.Kind {
	case scene.KindShape:
		dc.SetHexColor(fillOr(d.Fill, "#333333"))
		if d.Shape == "circle" {
			dc.DrawEllipse(box.Left+box.Width()/2, box.Top+box.Height()/2, box.Width()/2, box.Height()/2)
		} else {
			dc.DrawRectangle(box.Left, box.Top, box.Width(), box.Height())
		}
		dc.Fill()
	case scene.KindText:
		r.drawText(dc, d, box)
	case scene.KindImage:
		// Remote sources are not fetched at thumbnail time; a framed
		// placeholder keeps layout recognizable.
		dc.SetHexColor("#e8e8e8")
		dc.DrawRectangle(box.Left, box.Top, box.Width(), box.Height())
		dc.Fill()
		dc.SetHexColor("#b0b0b0")
		dc.SetLineWidth(2)
		dc.DrawRectangle(box.Left, box.Top, box.Width(), box.Height())
		dc.Stroke()
	}
}

func (r *Renderer) drawText(dc *gg.Context, d *scene.Drawable, box scene.Rect) {
	size := d.FontSize
	if size <= 0 {
		size = 24
	}
	sy := d.ScaleY
	if sy == 0 {
		sy = 1
	}
	face := r.face(size * sy)
	dc.SetHexColor(fillOr(d.Fill, "#000000"))
	if face == nil {
		// No font configured: block placeholder at the text footprint.
		dc.DrawRectangle(box.Left, box.Top, box.Width(), box.Height())
		dc.Fill()
		return
	}
	dc.SetFontFace(face)
	dc.DrawStringAnchored(d.Text, box.Left+box.Width()/2, box.Top+box.Height()/2, 0.5, 0.5)
}

func fitEdge(w, h, maxEdge int) (int, int) {
	long := w
	if h > long {
		long = h
	}
	if long <= maxEdge {
		return w, h
	}
	f := float64(maxEdge) / float64(long)
	tw := int(float64(w) * f)
	th := int(float64(h) * f)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

func fillOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
