package render

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/gogpu/gg/text"
)

// FontLibrary hands out text faces for the rasterizer. Every document font
// family maps onto the embedded Latin Modern faces so that rendering never
// depends on fonts installed on the host: a render of the same document must
// produce the same bytes on any machine.
type FontLibrary struct {
	regular *text.FontSource
	bold    *text.FontSource

	mu    sync.Mutex
	faces map[faceKey]text.Face
}

type faceKey struct {
	bold bool
	size float64
}

// NewFontLibrary parses the embedded fonts.
func NewFontLibrary() (*FontLibrary, error) {
	regular, err := text.NewFontSource(lmroman10regular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded regular font: %w", err)
	}
	bold, err := text.NewFontSource(lmroman10bold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded bold font: %w", err)
	}
	return &FontLibrary{
		regular: regular,
		bold:    bold,
		faces:   make(map[faceKey]text.Face),
	}, nil
}

// Face returns a cached face for the given weight and pixel size.
// Weight accepts CSS-style values: "bold" or a numeric string; 600 and up
// selects the bold face.
func (l *FontLibrary) Face(weight string, size float64) text.Face {
	if size <= 0 {
		size = 16
	}
	key := faceKey{bold: isBold(weight), size: size}

	l.mu.Lock()
	defer l.mu.Unlock()
	if face, ok := l.faces[key]; ok {
		return face
	}

	source := l.regular
	if key.bold {
		source = l.bold
	}
	face := source.Face(size)
	l.faces[key] = face
	return face
}

func isBold(weight string) bool {
	if weight == "bold" || weight == "bolder" {
		return true
	}
	if n, err := strconv.Atoi(weight); err == nil {
		return n >= 600
	}
	return false
}
