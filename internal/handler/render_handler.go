package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poster-server/internal/models"
	"poster-server/internal/service"
)

// RenderHandler serves PNG exports of stored projects and ad-hoc documents.
type RenderHandler struct {
	renders      *service.RenderService
	images       *service.ImageService
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewRenderHandler creates a new RenderHandler.
func NewRenderHandler(
	renders *service.RenderService,
	images *service.ImageService,
	maxBodyBytes int64,
	logger *zap.Logger,
) *RenderHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 50 * 1024
	}
	return &RenderHandler{
		renders:      renders,
		images:       images,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.Named("RenderHandler"),
	}
}

// RegisterRoutes attaches the render endpoints to the router group. All of
// them are public: image URLs are pasted into chats and previews.
func (h *RenderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/render/:id", h.renderProject)
	rg.POST("/renderJSON/json", h.renderDocument)
	rg.GET("/renderJSON/:id", h.listGeneratedImages)
}

// renderProject handles GET /render/:id.
func (h *RenderHandler) renderProject(c *gin.Context) {
	id := c.Param("id")

	png, err := h.renders.RenderProject(c.Request.Context(), id)
	if err != nil {
		rendersTotal.WithLabelValues("project", "error").Inc()
		respondError(c, h.logger, err)
		return
	}
	rendersTotal.WithLabelValues("project", "ok").Inc()

	c.Header("Content-Length", strconv.Itoa(len(png)))
	c.Data(http.StatusOK, "image/png", png)
}

// renderDocument handles POST /renderJSON/json: renders the posted document
// without persisting anything. The body limit is enforced before any parsing
// so oversized payloads cost nothing.
func (h *RenderHandler) renderDocument(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			rendersTotal.WithLabelValues("adhoc", "overflow").Inc()
			c.String(http.StatusRequestEntityTooLarge, "overflow :(")
			return
		}
		respondError(c, h.logger, err)
		return
	}

	png, err := h.renders.RenderDocument(c.Request.Context(), body)
	if err != nil {
		rendersTotal.WithLabelValues("adhoc", "error").Inc()
		respondError(c, h.logger, err)
		return
	}
	rendersTotal.WithLabelValues("adhoc", "ok").Inc()

	c.Header("Content-Length", strconv.Itoa(len(png)))
	c.Data(http.StatusOK, "image/png", png)
}

// listGeneratedImages handles GET /renderJSON/:id: the generated-image
// history newer than the project's last save, or the live document as a
// synthesized record when nothing newer exists.
func (h *RenderHandler) listGeneratedImages(c *gin.Context) {
	id := c.Param("id")

	records, err := h.images.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

// FullHistoryHandler serves the unfiltered image history.
type FullHistoryHandler struct {
	images *service.ImageService
	logger *zap.Logger
}

// NewFullHistoryHandler creates a new FullHistoryHandler.
func NewFullHistoryHandler(images *service.ImageService, logger *zap.Logger) *FullHistoryHandler {
	return &FullHistoryHandler{
		images: images,
		logger: logger.Named("FullHistoryHandler"),
	}
}

// RegisterRoutes attaches the image history endpoint; requires auth.
func (h *FullHistoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/images/:id", h.listAll)
}

func (h *FullHistoryHandler) listAll(c *gin.Context) {
	records, err := h.images.FullHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if records == nil {
		records = []*models.GeneratedImage{}
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}
