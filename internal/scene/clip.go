package scene

import (
	"fmt"
	"math"

	"poster-server/internal/models"
)

// angleEpsilon absorbs float noise the editor leaves on nominally unrotated
// objects; anything larger is a real rotation and is rejected.
const angleEpsilon = 1e-9

// ResolveClip computes the export rectangle of a document.
//
// A top-level ExportRegion wins when present. Otherwise the first object in
// paint order named "clip" declares the rectangle; its scale is folded into
// the resolved extent. Rotated or skewed clip objects are rejected with
// ErrInvalidClip: projecting them to an axis-aligned box would make export
// bounds approximate, and export bounds must be exact.
func ResolveClip(doc *Document) (Rect, error) {
	if doc.ExportRegion != nil {
		if err := validateRect(*doc.ExportRegion); err != nil {
			return Rect{}, err
		}
		return *doc.ExportRegion, nil
	}

	for i := range doc.Objects {
		obj := &doc.Objects[i]
		if obj.Name != ClipName {
			continue
		}
		if !axisAligned(obj) {
			return Rect{}, fmt.Errorf("%w: clip object is rotated or skewed", models.ErrInvalidClip)
		}
		resolved := Rect{
			Left:   obj.Left,
			Top:    obj.Top,
			Width:  obj.Width * math.Abs(obj.ScaleX),
			Height: obj.Height * math.Abs(obj.ScaleY),
		}
		if err := validateRect(resolved); err != nil {
			return Rect{}, err
		}
		return resolved, nil
	}

	return Rect{}, models.ErrClipNotFound
}

func axisAligned(obj *Object) bool {
	angle := math.Mod(obj.Angle, 360)
	if angle < 0 {
		angle += 360
	}
	if angle > angleEpsilon && math.Abs(angle-360) > angleEpsilon {
		return false
	}
	return obj.SkewX == 0 && obj.SkewY == 0
}

func validateRect(r Rect) error {
	for _, v := range []float64{r.Left, r.Top, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite clip bounds", models.ErrInvalidClip)
		}
	}
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("%w: negative clip extent", models.ErrInvalidClip)
	}
	return nil
}
