package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poster-server/internal/models"
	"poster-server/internal/service"
)

// ProjectHandler serves project CRUD and the debounced document autosave.
type ProjectHandler struct {
	projects *service.ProjectService
	logger   *zap.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		logger:   logger.Named("ProjectHandler"),
	}
}

// RegisterRoutes attaches the project endpoints; all require auth.
func (h *ProjectHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/projects", h.list)
	rg.GET("/projects/:id", h.get)
	rg.POST("/projects", h.create)
	rg.PATCH("/projects/:id", h.saveDocument)
	rg.PATCH("/projects/:id/name", h.rename)
}

func (h *ProjectHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	projects, err := h.projects.List(c.Request.Context(), userIDFromContext(c), limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	c.JSON(http.StatusOK, gin.H{"data": projects})
}

func (h *ProjectHandler) get(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

type createProjectBody struct {
	Name   string `json:"name" binding:"required"`
	JSON   string `json:"json"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (h *ProjectHandler) create(c *gin.Context) {
	var body createProjectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	project := &models.Project{
		UserID: userIDFromContext(c),
		Name:   body.Name,
		JSON:   body.JSON,
		Width:  body.Width,
		Height: body.Height,
	}
	if err := h.projects.Create(c.Request.Context(), project); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

type saveDocumentBody struct {
	JSON   string `json:"json" binding:"required"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// saveDocument handles PATCH /projects/:id: the editor autosave. The write
// is debounced server-side, so the 200 means accepted, not yet persisted.
func (h *ProjectHandler) saveDocument(c *gin.Context) {
	var body saveDocumentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "json is required"})
		return
	}

	err := h.projects.SaveDocument(c.Request.Context(), c.Param("id"), body.JSON, body.Width, body.Height)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Done"})
}

type renameBody struct {
	Name string `json:"name" binding:"required"`
}

func (h *ProjectHandler) rename(c *gin.Context) {
	var body renameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := h.projects.Rename(c.Request.Context(), c.Param("id"), body.Name); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Done"})
}
