package handlers

import (
	"net/http"

	"ctfhub/internal/apperrors"
	"ctfhub/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps a domain error to its HTTP status. Internal errors are
// logged and replaced with the generic message; everything else is
// user-correctable and surfaced as-is.
func respondError(c *gin.Context, err error, internalMsg string) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error(internalMsg,
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("url", c.Request.URL.String()),
		)
		c.JSON(status, gin.H{"error": internalMsg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
