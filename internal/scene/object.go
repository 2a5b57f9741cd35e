package scene

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Object node types understood by the renderer. Any other type string still
// round-trips; the renderer skips what it cannot draw.
const (
	TypeRect     = "rect"
	TypeCircle   = "circle"
	TypeTriangle = "triangle"
	TypeTextbox  = "textbox"
	TypeImage    = "image"
	TypeGroup    = "group"
)

// ClipName is the reserved object name that marks the export crop rectangle
// in documents produced by editors without a top-level exportRegion.
const ClipName = "clip"

// Object is one drawable node. Geometry fields are common to every type; the
// type-specific payload lives in exactly one of Rect, Circle, Text, Image or
// Objects depending on Type (tagged union with owned children, no sharing).
type Object struct {
	Type string
	Name string

	Left   float64
	Top    float64
	Width  float64
	Height float64
	ScaleX float64
	ScaleY float64
	Angle  float64
	SkewX  float64
	SkewY  float64
	FlipX  bool
	FlipY  bool

	Opacity float64
	Fill    string

	Rect   *RectProps
	Circle *CircleProps
	Text   *TextProps
	Image  *ImageProps

	// Objects holds group children in paint order. Child coordinates are
	// relative to the group center.
	Objects []Object

	extra map[string]json.RawMessage
}

// RectProps holds rectangle corner rounding.
type RectProps struct {
	RX float64
	RY float64
}

// CircleProps holds the circle radius. Left/Top remain the corner of the
// bounding box, matching the editor's coordinate convention.
type CircleProps struct {
	Radius float64
}

// TextProps holds the drawable subset of a text block.
type TextProps struct {
	Text       string
	FontSize   float64
	FontFamily string
	FontWeight string
	TextAlign  string
	LineHeight float64
}

// ImageProps references the bitmap painted by an image node. Src is either a
// URL or a data URI with embedded bytes.
type ImageProps struct {
	Src         string
	CrossOrigin string
}

// UnmarshalJSON decodes an object node, keeping unknown fields for lossless
// re-serialization. Geometry defaults follow the editor: scale 1, opacity 1.
func (o *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	o.ScaleX = 1
	o.ScaleY = 1
	o.Opacity = 1

	for key, value := range raw {
		var err error
		switch key {
		case "type":
			err = json.Unmarshal(value, &o.Type)
		case "name":
			err = json.Unmarshal(value, &o.Name)
		case "left":
			err = json.Unmarshal(value, &o.Left)
		case "top":
			err = json.Unmarshal(value, &o.Top)
		case "width":
			err = json.Unmarshal(value, &o.Width)
		case "height":
			err = json.Unmarshal(value, &o.Height)
		case "scaleX":
			err = json.Unmarshal(value, &o.ScaleX)
		case "scaleY":
			err = json.Unmarshal(value, &o.ScaleY)
		case "angle":
			err = json.Unmarshal(value, &o.Angle)
		case "skewX":
			err = json.Unmarshal(value, &o.SkewX)
		case "skewY":
			err = json.Unmarshal(value, &o.SkewY)
		case "flipX":
			err = json.Unmarshal(value, &o.FlipX)
		case "flipY":
			err = json.Unmarshal(value, &o.FlipY)
		case "opacity":
			err = json.Unmarshal(value, &o.Opacity)
		case "fill":
			// Gradient and pattern fills are objects; keep those opaque.
			var s string
			if json.Unmarshal(value, &s) == nil {
				o.Fill = s
			} else {
				o.keepExtra(key, value)
			}
		case "rx":
			err = json.Unmarshal(value, &o.rectProps().RX)
		case "ry":
			err = json.Unmarshal(value, &o.rectProps().RY)
		case "radius":
			err = json.Unmarshal(value, &o.circleProps().Radius)
		case "text":
			err = json.Unmarshal(value, &o.textProps().Text)
		case "fontSize":
			err = json.Unmarshal(value, &o.textProps().FontSize)
		case "fontFamily":
			err = json.Unmarshal(value, &o.textProps().FontFamily)
		case "fontWeight":
			o.textProps().FontWeight = flexibleString(value)
		case "textAlign":
			err = json.Unmarshal(value, &o.textProps().TextAlign)
		case "lineHeight":
			err = json.Unmarshal(value, &o.textProps().LineHeight)
		case "src":
			err = json.Unmarshal(value, &o.imageProps().Src)
		case "crossOrigin":
			var s string
			if json.Unmarshal(value, &s) == nil {
				o.imageProps().CrossOrigin = s
			} else {
				o.keepExtra(key, value)
			}
		case "objects":
			err = json.Unmarshal(value, &o.Objects)
		default:
			o.keepExtra(key, value)
		}
		if err != nil {
			return fmt.Errorf("object field %q: %w", key, err)
		}
	}
	return nil
}

// MarshalJSON re-emits the node, including fields this package did not decode.
func (o Object) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(o.extra)+16)
	for key, value := range o.extra {
		out[key] = value
	}

	put := func(key string, v any) {
		b, _ := json.Marshal(v)
		out[key] = b
	}

	put("type", o.Type)
	if o.Name != "" {
		put("name", o.Name)
	}
	put("left", o.Left)
	put("top", o.Top)
	put("width", o.Width)
	put("height", o.Height)
	put("scaleX", o.ScaleX)
	put("scaleY", o.ScaleY)
	put("angle", o.Angle)
	put("skewX", o.SkewX)
	put("skewY", o.SkewY)
	put("flipX", o.FlipX)
	put("flipY", o.FlipY)
	put("opacity", o.Opacity)
	if o.Fill != "" {
		put("fill", o.Fill)
	}
	if o.Rect != nil {
		put("rx", o.Rect.RX)
		put("ry", o.Rect.RY)
	}
	if o.Circle != nil {
		put("radius", o.Circle.Radius)
	}
	if o.Text != nil {
		put("text", o.Text.Text)
		put("fontSize", o.Text.FontSize)
		if o.Text.FontFamily != "" {
			put("fontFamily", o.Text.FontFamily)
		}
		if o.Text.FontWeight != "" {
			put("fontWeight", o.Text.FontWeight)
		}
		if o.Text.TextAlign != "" {
			put("textAlign", o.Text.TextAlign)
		}
		if o.Text.LineHeight != 0 {
			put("lineHeight", o.Text.LineHeight)
		}
	}
	if o.Image != nil {
		put("src", o.Image.Src)
		if o.Image.CrossOrigin != "" {
			put("crossOrigin", o.Image.CrossOrigin)
		}
	}
	if o.Objects != nil {
		put("objects", o.Objects)
	}

	return json.Marshal(out)
}

func (o *Object) keepExtra(key string, value json.RawMessage) {
	if o.extra == nil {
		o.extra = make(map[string]json.RawMessage)
	}
	o.extra[key] = value
}

func (o *Object) rectProps() *RectProps {
	if o.Rect == nil {
		o.Rect = &RectProps{}
	}
	return o.Rect
}

func (o *Object) circleProps() *CircleProps {
	if o.Circle == nil {
		o.Circle = &CircleProps{}
	}
	return o.Circle
}

func (o *Object) textProps() *TextProps {
	if o.Text == nil {
		o.Text = &TextProps{}
	}
	return o.Text
}

func (o *Object) imageProps() *ImageProps {
	if o.Image == nil {
		o.Image = &ImageProps{}
	}
	return o.Image
}

// flexibleString reads a JSON value that editors emit as either a string or a
// number (fontWeight: "bold" vs fontWeight: 700).
func flexibleString(value json.RawMessage) string {
	var s string
	if json.Unmarshal(value, &s) == nil {
		return s
	}
	var n float64
	if json.Unmarshal(value, &n) == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}
