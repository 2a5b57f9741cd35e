package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poster-server/internal/live"
	"poster-server/internal/models"
	"poster-server/internal/service"
)

// LiveHandler owns the SSE subscription endpoint and the update ingress the
// AI pipeline posts finished designs to.
type LiveHandler struct {
	registry          *live.Registry
	images            *service.ImageService
	keepAliveInterval time.Duration
	logger            *zap.Logger
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(
	registry *live.Registry,
	images *service.ImageService,
	keepAliveInterval time.Duration,
	logger *zap.Logger,
) *LiveHandler {
	if keepAliveInterval <= 0 {
		keepAliveInterval = 30 * time.Second
	}
	return &LiveHandler{
		registry:          registry,
		images:            images,
		keepAliveInterval: keepAliveInterval,
		logger:            logger.Named("LiveHandler"),
	}
}

// RegisterRoutes attaches the live endpoints. The SSE endpoint is public
// (EventSource cannot set an Authorization header); the update endpoint is
// called by the pipeline, not browsers.
func (h *LiveHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sse/:id", h.stream)
	rg.POST("/update", h.update)
}

// stream handles GET /sse/:id: a one-subscriber-per-project event stream.
// Emits "update" events with the design payload and "keep-alive" events to
// defeat idle-connection timeouts along the path.
func (h *LiveHandler) stream(c *gin.Context) {
	projectID := c.Param("id")

	sub := h.registry.Subscribe(projectID)
	defer h.registry.Unsubscribe(projectID, sub)

	sseConnectionsActive.Inc()
	defer sseConnectionsActive.Dec()
	h.logger.Debug("SSE stream opened", zap.String("project_id", projectID))

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	keepAlive := time.NewTicker(h.keepAliveInterval)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.C:
			if !ok {
				// Replaced by a newer subscriber for this project.
				return false
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("Failed to encode live event", zap.Error(err))
				return true
			}
			c.Render(http.StatusOK, sse.Event{
				Event: "update",
				Data:  string(payload),
			})
			return true
		case <-keepAlive.C:
			c.Render(http.StatusOK, sse.Event{
				Event: "keep-alive",
				Data:  "ping",
			})
			return true
		case <-c.Request.Context().Done():
			h.logger.Debug("SSE stream closed", zap.String("project_id", projectID))
			return false
		}
	})
}

type updateBody struct {
	ProjectID string          `json:"projectId" binding:"required"`
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Image     json.RawMessage `json:"image"`
}

// update handles POST /update: record the design in the history and push it
// to the watching editor tab. Responds 200 Done regardless of whether anyone
// is subscribed; the pipeline does not care about editor connectivity.
func (h *LiveHandler) update(c *gin.Context) {
	var body updateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId is required"})
		return
	}

	record := &models.GeneratedImage{
		ProjectID: body.ProjectID,
		Status:    body.Status,
		Image:     body.Image,
	}
	if body.Title != "" {
		record.Title = &body.Title
	}
	if err := h.images.Record(c.Request.Context(), record); err != nil {
		respondError(c, h.logger, err)
		return
	}

	delivered := h.registry.Publish(body.ProjectID, live.Event{
		Title:  body.Title,
		Status: body.Status,
		Image:  body.Image,
	})
	updatesPublishedTotal.WithLabelValues(boolLabel(delivered)).Inc()
	h.logger.Debug("Update published",
		zap.String("project_id", body.ProjectID),
		zap.Bool("delivered", delivered),
	)

	c.JSON(http.StatusOK, gin.H{"message": "Done"})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
