package handler

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poster-server/internal/models"
)

const testClippedDoc = `{
	"width": 832,
	"height": 1152,
	"background": "#ffffff",
	"objects": [
		{"type": "rect", "name": "clip", "left": 100, "top": 50, "width": 400, "height": 600},
		{"type": "rect", "left": 150, "top": 100, "width": 200, "height": 200, "fill": "#ff0000"}
	]
}`

func TestRenderProjectEndpoint(t *testing.T) {
	env, err := newTestEnv(&models.Project{ID: "p1", JSON: testClippedDoc, UpdatedAt: time.Now()})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/render/p1", nil)
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, strconv.Itoa(w.Body.Len()), w.Header().Get("Content-Length"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestRenderProjectEndpointNotFound(t *testing.T) {
	env, err := newTestEnv()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/render/ghost", nil)
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "Not found"}`, w.Body.String())
}

func TestRenderDocumentEndpoint(t *testing.T) {
	env, err := newTestEnv()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/renderJSON/json", strings.NewReader(testClippedDoc))
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestRenderDocumentEndpointOverflow(t *testing.T) {
	env, err := newTestEnv()
	require.NoError(t, err)

	// 51 KiB of body; rejected before any JSON parsing happens.
	body := bytes.Repeat([]byte("x"), 51*1024)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/renderJSON/json", bytes.NewReader(body))
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "overflow :(", w.Body.String())
}

func TestRenderDocumentEndpointUnderLimit(t *testing.T) {
	env, err := newTestEnv()
	require.NoError(t, err)

	// Pad a valid document to ~49 KiB with an ignored field; this must pass
	// the limit check and render normally.
	padding := strings.Repeat("p", 49*1024-len(testClippedDoc)-20)
	doc := testClippedDoc[:len(testClippedDoc)-1] + `,"pad":"` + padding + `"}`
	require.Less(t, len(doc), 50*1024)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/renderJSON/json", strings.NewReader(doc))
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRenderDocumentEndpointMalformed(t *testing.T) {
	env, err := newTestEnv()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/renderJSON/json", strings.NewReader(`{"objects": [`))
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGeneratedImagesEndpointSynthesizesFallback(t *testing.T) {
	env, err := newTestEnv(&models.Project{ID: "p1", JSON: `{"objects":[]}`, UpdatedAt: time.Now()})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/renderJSON/p1", nil)
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []struct {
			ProjectID string          `json:"projectid"`
			Status    string          `json:"status"`
			Title     *string         `json:"title"`
			Image     json.RawMessage `json:"image"`
			CreatedAt *string         `json:"createdat"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "p1", body.Data[0].ProjectID)
	assert.Empty(t, body.Data[0].Status)
	assert.Nil(t, body.Data[0].Title)
	assert.Nil(t, body.Data[0].CreatedAt)
	assert.JSONEq(t, `{"objects":[]}`, string(body.Data[0].Image))
}

func TestGeneratedImagesEndpointFreshRecords(t *testing.T) {
	watermark := time.Now()
	env, err := newTestEnv(&models.Project{ID: "p1", JSON: `{"objects":[]}`, UpdatedAt: watermark})
	require.NoError(t, err)

	fresh := watermark.Add(time.Second)
	title := "Fresh variant"
	env.images.records = append(env.images.records, &models.GeneratedImage{
		ID:        "g1",
		ProjectID: "p1",
		Status:    "completed",
		Title:     &title,
		Image:     json.RawMessage(`{"objects":[]}`),
		CreatedAt: &fresh,
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/renderJSON/p1", nil)
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.GeneratedImage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "g1", body.Data[0].ID)
	assert.NotNil(t, body.Data[0].CreatedAt)
}
