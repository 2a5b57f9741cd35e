package scene_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poster-server/internal/models"
	"poster-server/internal/scene"
)

func mustParse(t *testing.T, input string) *scene.Document {
	t.Helper()
	doc, err := scene.Parse([]byte(input))
	require.NoError(t, err)
	return doc
}

func TestResolveClip(t *testing.T) {
	doc := mustParse(t, `{"objects": [
		{"type": "rect", "left": 0, "top": 0, "width": 900, "height": 1200, "fill": "#fff"},
		{"type": "rect", "name": "clip", "left": 100, "top": 50, "width": 400, "height": 600}
	]}`)

	rect, err := scene.ResolveClip(doc)
	require.NoError(t, err)
	assert.Equal(t, scene.Rect{Left: 100, Top: 50, Width: 400, Height: 600}, rect)
}

func TestResolveClipNotFound(t *testing.T) {
	doc := mustParse(t, `{"objects": [
		{"type": "rect", "left": 0, "top": 0, "width": 10, "height": 10}
	]}`)

	_, err := scene.ResolveClip(doc)
	assert.ErrorIs(t, err, models.ErrClipNotFound)
}

func TestResolveClipFirstWins(t *testing.T) {
	doc := mustParse(t, `{"objects": [
		{"type": "rect", "name": "clip", "left": 1, "top": 2, "width": 3, "height": 4},
		{"type": "rect", "name": "clip", "left": 9, "top": 9, "width": 9, "height": 9}
	]}`)

	rect, err := scene.ResolveClip(doc)
	require.NoError(t, err)
	assert.Equal(t, scene.Rect{Left: 1, Top: 2, Width: 3, Height: 4}, rect)
}

func TestResolveClipScaleFolded(t *testing.T) {
	doc := mustParse(t, `{"objects": [
		{"type": "rect", "name": "clip", "left": 10, "top": 10, "width": 100, "height": 50, "scaleX": 2, "scaleY": 3}
	]}`)

	rect, err := scene.ResolveClip(doc)
	require.NoError(t, err)
	assert.Equal(t, scene.Rect{Left: 10, Top: 10, Width: 200, Height: 150}, rect)
}

func TestResolveClipRotatedRejected(t *testing.T) {
	doc := mustParse(t, `{"objects": [
		{"type": "rect", "name": "clip", "left": 0, "top": 0, "width": 10, "height": 10, "angle": 15}
	]}`)

	_, err := scene.ResolveClip(doc)
	assert.ErrorIs(t, err, models.ErrInvalidClip)
}

func TestResolveClipFullTurnAccepted(t *testing.T) {
	doc := mustParse(t, `{"objects": [
		{"type": "rect", "name": "clip", "left": 0, "top": 0, "width": 10, "height": 10, "angle": 360}
	]}`)

	_, err := scene.ResolveClip(doc)
	assert.NoError(t, err)
}

func TestResolveClipExportRegionWins(t *testing.T) {
	doc := mustParse(t, `{
		"exportRegion": {"left": 5, "top": 6, "width": 7, "height": 8},
		"objects": [
			{"type": "rect", "name": "clip", "left": 100, "top": 50, "width": 400, "height": 600}
		]
	}`)

	rect, err := scene.ResolveClip(doc)
	require.NoError(t, err)
	assert.Equal(t, scene.Rect{Left: 5, Top: 6, Width: 7, Height: 8}, rect)
}

func TestResolveClipEmptyDocument(t *testing.T) {
	doc := mustParse(t, `{"version": "5.3.0"}`)

	_, err := scene.ResolveClip(doc)
	assert.ErrorIs(t, err, models.ErrClipNotFound)
}
