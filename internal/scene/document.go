// Package scene implements the serialized canvas document format shared by
// the interactive editor and the headless renderer. Both consumers must
// reconstruct a pixel-identical scene from the same bytes, so parsing keeps
// unknown fields opaquely and serialization re-emits them.
package scene

import (
	"encoding/json"
	"fmt"

	"poster-server/internal/models"
)

// Rect is an axis-aligned rectangle in document pixel space.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document is a parsed scene document: canvas-level metadata plus the ordered
// object list. Slice order is paint order (later entries paint on top).
type Document struct {
	Version    string
	Width      int
	Height     int
	Background string

	// ViewportTransform captures the pan/zoom of the editing session. It is
	// six affine coefficients when present. The renderer must ignore it.
	ViewportTransform []float64

	// ExportRegion, when set, declares the export crop rectangle directly.
	// Documents from older editors declare it through an object named "clip"
	// instead; ResolveClip handles both.
	ExportRegion *Rect

	Objects []Object

	hasObjects bool
	extra      map[string]json.RawMessage
}

// Empty reports whether the document carries no object list at all. An empty
// document is a valid blank canvas for editing but cannot be rendered.
func (d *Document) Empty() bool {
	return !d.hasObjects
}

// Parse decodes a serialized scene document. A payload that is not
// well-formed JSON fails with ErrMalformedDocument. A well-formed payload
// without an "objects" key parses as an empty canvas.
func Parse(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedDocument, err)
	}

	doc := &Document{}
	for key, value := range raw {
		var err error
		switch key {
		case "version":
			err = json.Unmarshal(value, &doc.Version)
		case "width":
			err = json.Unmarshal(value, &doc.Width)
		case "height":
			err = json.Unmarshal(value, &doc.Height)
		case "background":
			err = json.Unmarshal(value, &doc.Background)
		case "viewportTransform":
			err = json.Unmarshal(value, &doc.ViewportTransform)
		case "exportRegion":
			doc.ExportRegion = &Rect{}
			err = json.Unmarshal(value, doc.ExportRegion)
		case "objects":
			doc.hasObjects = true
			err = json.Unmarshal(value, &doc.Objects)
		default:
			if doc.extra == nil {
				doc.extra = make(map[string]json.RawMessage)
			}
			doc.extra[key] = value
		}
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", models.ErrMalformedDocument, key, err)
		}
	}
	return doc, nil
}

// Marshal serializes the document. All fields the renderer consumes survive a
// Parse/Marshal round trip, and fields this package does not understand are
// re-emitted untouched.
func (d *Document) Marshal() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.extra)+7)
	for key, value := range d.extra {
		out[key] = value
	}

	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal field %q: %w", key, err)
		}
		out[key] = b
		return nil
	}

	if d.Version != "" {
		if err := put("version", d.Version); err != nil {
			return nil, err
		}
	}
	if d.Width != 0 {
		if err := put("width", d.Width); err != nil {
			return nil, err
		}
	}
	if d.Height != 0 {
		if err := put("height", d.Height); err != nil {
			return nil, err
		}
	}
	if d.Background != "" {
		if err := put("background", d.Background); err != nil {
			return nil, err
		}
	}
	if d.ViewportTransform != nil {
		if err := put("viewportTransform", d.ViewportTransform); err != nil {
			return nil, err
		}
	}
	if d.ExportRegion != nil {
		if err := put("exportRegion", d.ExportRegion); err != nil {
			return nil, err
		}
	}
	if d.hasObjects {
		objects := d.Objects
		if objects == nil {
			objects = []Object{}
		}
		if err := put("objects", objects); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

// SetObjects replaces the object list, marking the document as non-empty.
func (d *Document) SetObjects(objects []Object) {
	d.Objects = objects
	d.hasObjects = true
}
