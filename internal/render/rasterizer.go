// Package render replays scene documents onto an off-screen surface and
// encodes the export region to PNG. Rendering is deterministic: the same
// document and the same asset bytes always produce byte-identical output.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/gogpu/gg"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"poster-server/internal/models"
	"poster-server/internal/scene"
)

// fabric's default line height for text blocks that do not carry their own.
const defaultLineHeight = 1.16

// Renderer rasterizes scene documents. It is stateless across renders; every
// call allocates its own surface, so concurrent renders never share pixels.
type Renderer struct {
	assets *AssetLoader
	fonts  *FontLibrary
	logger *zap.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(assets *AssetLoader, fonts *FontLibrary, logger *zap.Logger) *Renderer {
	return &Renderer{
		assets: assets,
		fonts:  fonts,
		logger: logger.Named("Renderer"),
	}
}

// Render replays doc onto a doc.Width×doc.Height surface and returns the PNG
// encoding of the clip sub-region. The transform stored in the document is
// ignored; it reflects the last editing viewport, not the export frame.
// Errors are all-or-nothing: no partial image is ever returned.
func (r *Renderer) Render(ctx context.Context, doc *scene.Document, clip scene.Rect) ([]byte, error) {
	if doc.Empty() {
		return nil, models.ErrEmptyDocument
	}
	if doc.Width <= 0 || doc.Height <= 0 {
		return nil, fmt.Errorf("%w: non-positive canvas dimensions %dx%d",
			models.ErrMalformedDocument, doc.Width, doc.Height)
	}

	dc := gg.NewContext(doc.Width, doc.Height)
	dc.Identity()

	if col, ok := ParseColor(doc.Background); ok {
		dc.SetRGBA(col.R, col.G, col.B, col.A)
		dc.DrawRectangle(0, 0, float64(doc.Width), float64(doc.Height))
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("paint background: %w", err)
		}
	}

	for i := range doc.Objects {
		obj := &doc.Objects[i]
		if obj.Name == scene.ClipName {
			continue
		}
		if err := r.drawObject(ctx, dc, obj); err != nil {
			return nil, err
		}
	}

	return encodeRegion(dc.Image(), clip)
}

func (r *Renderer) drawObject(ctx context.Context, dc *gg.Context, obj *scene.Object) error {
	if obj.Opacity <= 0 {
		return nil
	}

	dc.Push()
	defer dc.Pop()
	applyTransform(dc, obj)

	switch obj.Type {
	case scene.TypeRect:
		return r.drawRect(dc, obj)
	case scene.TypeCircle:
		return r.drawCircle(dc, obj)
	case scene.TypeTriangle:
		return r.drawTriangle(dc, obj)
	case scene.TypeTextbox:
		r.drawTextbox(dc, obj)
		return nil
	case scene.TypeImage:
		return r.drawImage(ctx, dc, obj)
	case scene.TypeGroup:
		return r.drawGroup(ctx, dc, obj)
	default:
		r.logger.Debug("Skipping object of unknown type", zap.String("type", obj.Type))
		return nil
	}
}

// applyTransform establishes the object's local coordinate space: translate
// to its position, then rotate, skew and scale about that origin. Flips
// mirror about the object's own box.
func applyTransform(dc *gg.Context, obj *scene.Object) {
	dc.Translate(obj.Left, obj.Top)
	if obj.Angle != 0 {
		dc.Rotate(obj.Angle * math.Pi / 180)
	}
	if obj.SkewX != 0 || obj.SkewY != 0 {
		dc.Shear(math.Tan(obj.SkewX*math.Pi/180), math.Tan(obj.SkewY*math.Pi/180))
	}
	dc.Scale(obj.ScaleX, obj.ScaleY)
	if obj.FlipX {
		dc.Translate(obj.Width, 0)
		dc.Scale(-1, 1)
	}
	if obj.FlipY {
		dc.Translate(0, obj.Height)
		dc.Scale(1, -1)
	}
}

func (r *Renderer) setFill(dc *gg.Context, obj *scene.Object) bool {
	col, ok := ParseColor(obj.Fill)
	if !ok {
		return false
	}
	dc.SetRGBA(col.R, col.G, col.B, col.A*obj.Opacity)
	return true
}

func (r *Renderer) drawRect(dc *gg.Context, obj *scene.Object) error {
	if !r.setFill(dc, obj) {
		return nil
	}
	if obj.Rect != nil && (obj.Rect.RX > 0 || obj.Rect.RY > 0) {
		radius := math.Max(obj.Rect.RX, obj.Rect.RY)
		dc.DrawRoundedRectangle(0, 0, obj.Width, obj.Height, radius)
	} else {
		dc.DrawRectangle(0, 0, obj.Width, obj.Height)
	}
	return dc.Fill()
}

func (r *Renderer) drawCircle(dc *gg.Context, obj *scene.Object) error {
	if !r.setFill(dc, obj) {
		return nil
	}
	radius := obj.Width / 2
	if obj.Circle != nil && obj.Circle.Radius > 0 {
		radius = obj.Circle.Radius
	}
	dc.DrawCircle(radius, radius, radius)
	return dc.Fill()
}

func (r *Renderer) drawTriangle(dc *gg.Context, obj *scene.Object) error {
	if !r.setFill(dc, obj) {
		return nil
	}
	dc.MoveTo(obj.Width/2, 0)
	dc.LineTo(obj.Width, obj.Height)
	dc.LineTo(0, obj.Height)
	dc.ClosePath()
	return dc.Fill()
}

func (r *Renderer) drawTextbox(dc *gg.Context, obj *scene.Object) {
	props := obj.Text
	if props == nil || props.Text == "" {
		return
	}
	if !r.setFill(dc, obj) {
		dc.SetRGBA(0, 0, 0, obj.Opacity)
	}

	size := props.FontSize
	if size <= 0 {
		size = 16
	}
	dc.SetFont(r.fonts.Face(props.FontWeight, size))

	lineHeight := props.LineHeight
	if lineHeight <= 0 {
		lineHeight = defaultLineHeight
	}

	y := size // first baseline sits one em below the box top
	for _, line := range wrapText(dc, props.Text, obj.Width) {
		var x float64
		lineWidth, _ := dc.MeasureString(line)
		switch props.TextAlign {
		case "center":
			x = (obj.Width - lineWidth) / 2
		case "right":
			x = obj.Width - lineWidth
		}
		dc.DrawString(line, x, y)
		y += size * lineHeight
	}
}

func (r *Renderer) drawImage(ctx context.Context, dc *gg.Context, obj *scene.Object) error {
	if obj.Image == nil || obj.Image.Src == "" {
		return nil
	}
	img, err := r.assets.Load(ctx, obj.Image.Src)
	if err != nil {
		return err
	}
	dc.DrawImageEx(img, gg.DrawImageOptions{
		DstWidth:      obj.Width,
		DstHeight:     obj.Height,
		Interpolation: gg.InterpBilinear,
		Opacity:       obj.Opacity,
		BlendMode:     gg.BlendNormal,
	})
	return nil
}

// drawGroup replays the group's children under its transform. Child
// coordinates are relative to the group center.
func (r *Renderer) drawGroup(ctx context.Context, dc *gg.Context, obj *scene.Object) error {
	dc.Translate(obj.Width/2, obj.Height/2)
	for i := range obj.Objects {
		if err := r.drawObject(ctx, dc, &obj.Objects[i]); err != nil {
			return err
		}
	}
	return nil
}

// wrapText splits text on explicit newlines, then greedily packs words into
// lines no wider than maxWidth. A single word wider than the box gets its own
// line rather than being broken mid-word.
func wrapText(dc *gg.Context, s string, maxWidth float64) []string {
	var lines []string
	for _, paragraph := range splitLines(s) {
		words := splitWords(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if w, _ := dc.MeasureString(candidate); w > maxWidth && maxWidth > 0 {
				lines = append(lines, current)
				current = word
				continue
			}
			current = candidate
		}
		lines = append(lines, current)
	}
	return lines
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func splitWords(s string) []string {
	var out []string
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// encodeRegion crops the clip rectangle out of the painted surface and
// encodes it. Only the crop is encoded, never the full canvas.
func encodeRegion(src image.Image, clip scene.Rect) ([]byte, error) {
	width := int(math.Round(clip.Width))
	height := int(math.Round(clip.Height))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty clip region", models.ErrInvalidClip)
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	offset := image.Pt(int(math.Round(clip.Left)), int(math.Round(clip.Top)))
	xdraw.Draw(out, out.Bounds(), src, offset, xdraw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}
