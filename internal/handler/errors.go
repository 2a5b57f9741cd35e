package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poster-server/internal/models"
)

// respondError maps service errors to HTTP responses in one place. Render
// failures caused by a bad document are the client's fault; everything
// unexpected is a 500 with the detail kept in the log, not the body.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, models.ErrPayloadTooLarge):
		c.String(http.StatusRequestEntityTooLarge, "overflow :(")
	case errors.Is(err, models.ErrMalformedDocument),
		errors.Is(err, models.ErrEmptyDocument),
		errors.Is(err, models.ErrClipNotFound),
		errors.Is(err, models.ErrInvalidClip),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("Unhandled error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
