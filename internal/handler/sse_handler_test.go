package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poster-server/internal/live"
	"poster-server/internal/models"
)

func TestUpdateEndpointWithoutSubscriber(t *testing.T) {
	env, err := newTestEnv()
	require.NoError(t, err)

	body := `{"projectId":"p1","title":"Night","status":"completed","image":{"objects":[]}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/update", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)

	// Nobody listening is still success; the record lands in the history.
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "Done"}`, w.Body.String())
	assert.Equal(t, 1, env.images.count())
}

func TestUpdateEndpointDeliversToSubscriber(t *testing.T) {
	env, err := newTestEnv()
	require.NoError(t, err)
	sub := env.registry.Subscribe("p1")

	body := `{"projectId":"p1","title":"Night","status":"completed","image":{"objects":[]}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/update", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	select {
	case event := <-sub.C:
		assert.Equal(t, "Night", event.Title)
		assert.Equal(t, "completed", event.Status)
		assert.JSONEq(t, `{"objects":[]}`, string(event.Image))
	case <-time.After(time.Second):
		t.Fatal("no event delivered to subscriber")
	}
}

func TestUpdateEndpointRequiresProjectID(t *testing.T) {
	env, err := newTestEnv()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/update", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// readSSEEvent scans the stream until one full event (event: + data: lines)
// has been read.
func readSSEEvent(t *testing.T, scanner *bufio.Scanner) (name, data string) {
	t.Helper()
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && name != "":
			return name, data
		}
	}
	t.Fatal("stream ended before a full event was read")
	return "", ""
}

func TestSSEStream(t *testing.T) {
	env, err := newTestEnv(&models.Project{ID: "p1", JSON: `{"objects":[]}`})
	require.NoError(t, err)

	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/sse/p1", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	// Wait for the subscription to land before publishing.
	require.Eventually(t, func() bool { return env.registry.Len() == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, env.registry.Publish("p1", live.Event{
		Title:  "Night",
		Status: "completed",
		Image:  []byte(`{"objects":[]}`),
	}))

	// Keep-alives may interleave with the update; the test env ticks them
	// every 20ms.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	var sawUpdate, sawKeepAlive bool
	for i := 0; i < 10 && !(sawUpdate && sawKeepAlive); i++ {
		name, data := readSSEEvent(t, scanner)
		switch name {
		case "update":
			sawUpdate = true
			assert.Contains(t, data, `"completed"`)
		case "keep-alive":
			sawKeepAlive = true
			assert.Equal(t, "ping", data)
		}
	}
	assert.True(t, sawUpdate, "update event never arrived")
	assert.True(t, sawKeepAlive, "keep-alive never arrived")

	cancel()
	require.Eventually(t, func() bool { return env.registry.Len() == 0 }, time.Second, 5*time.Millisecond)
}
