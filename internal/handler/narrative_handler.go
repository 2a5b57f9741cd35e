package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poster-server/internal/models"
	"poster-server/internal/service"
)

// NarrativeHandler serves the creative-brief slots of a project.
type NarrativeHandler struct {
	narratives *service.NarrativeService
	logger     *zap.Logger
}

// NewNarrativeHandler creates a new NarrativeHandler.
func NewNarrativeHandler(narratives *service.NarrativeService, logger *zap.Logger) *NarrativeHandler {
	return &NarrativeHandler{
		narratives: narratives,
		logger:     logger.Named("NarrativeHandler"),
	}
}

// RegisterRoutes attaches the narrative endpoints; all require auth.
func (h *NarrativeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/narratives/:id", h.get)
	rg.PATCH("/narratives/:id", h.update)
	rg.POST("/narratives", h.create)
}

func (h *NarrativeHandler) get(c *gin.Context) {
	narrative, err := h.narratives.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": narrative})
}

// narrativeBody requires all four slots: a partial update would silently
// blank the missing ones, so the client must always send the full set.
type narrativeBody struct {
	Narrative0 *string `json:"narrative_0" binding:"required"`
	Narrative1 *string `json:"narrative_1" binding:"required"`
	Narrative2 *string `json:"narrative_2" binding:"required"`
	Narrative3 *string `json:"narrative_3" binding:"required"`
}

func (h *NarrativeHandler) update(c *gin.Context) {
	var body narrativeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all four narratives are required"})
		return
	}

	narrative := &models.Narrative{
		ProjectID:  c.Param("id"),
		Narrative0: *body.Narrative0,
		Narrative1: *body.Narrative1,
		Narrative2: *body.Narrative2,
		Narrative3: *body.Narrative3,
	}
	if err := h.narratives.Update(c.Request.Context(), narrative); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": narrative})
}

type createNarrativeBody struct {
	ProjectID  string `json:"projectId" binding:"required"`
	Narrative0 string `json:"narrative_0"`
	Narrative1 string `json:"narrative_1"`
	Narrative2 string `json:"narrative_2"`
	Narrative3 string `json:"narrative_3"`
}

func (h *NarrativeHandler) create(c *gin.Context) {
	var body createNarrativeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId is required"})
		return
	}

	narrative := &models.Narrative{
		ProjectID:  body.ProjectID,
		Narrative0: body.Narrative0,
		Narrative1: body.Narrative1,
		Narrative2: body.Narrative2,
		Narrative3: body.Narrative3,
	}
	if err := h.narratives.Create(c.Request.Context(), narrative); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": narrative})
}
