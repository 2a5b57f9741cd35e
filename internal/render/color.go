package render

import (
	"strconv"
	"strings"

	"github.com/gogpu/gg"
	"golang.org/x/image/colornames"
)

// ParseColor interprets the color strings editors put in documents: hex in
// short and long form, rgb()/rgba() and CSS color names. Reports false for
// anything it cannot interpret (gradients, patterns, empty strings).
func ParseColor(s string) (gg.RGBA, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "transparent" {
		return gg.RGBA{}, false
	}

	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	if strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba(") {
		return parseRGBFunc(s)
	}
	if c, ok := colornames.Map[s]; ok {
		return gg.RGBA{
			R: float64(c.R) / 255,
			G: float64(c.G) / 255,
			B: float64(c.B) / 255,
			A: 1,
		}, true
	}
	return gg.RGBA{}, false
}

func parseHex(hex string) (gg.RGBA, bool) {
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 4:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	case 6, 8:
	default:
		return gg.RGBA{}, false
	}

	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return gg.RGBA{}, false
	}
	if len(hex) == 6 {
		return gg.RGBA{
			R: float64(v>>16&0xff) / 255,
			G: float64(v>>8&0xff) / 255,
			B: float64(v&0xff) / 255,
			A: 1,
		}, true
	}
	return gg.RGBA{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, true
}

func parseRGBFunc(s string) (gg.RGBA, bool) {
	open := strings.IndexByte(s, '(')
	close := strings.IndexByte(s, ')')
	if open < 0 || close < open {
		return gg.RGBA{}, false
	}
	parts := strings.Split(s[open+1:close], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return gg.RGBA{}, false
	}

	var channels [4]float64
	channels[3] = 1
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return gg.RGBA{}, false
		}
		if i < 3 {
			channels[i] = clamp01(v / 255)
		} else {
			channels[3] = clamp01(v)
		}
	}
	return gg.RGBA{R: channels[0], G: channels[1], B: channels[2], A: channels[3]}, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
