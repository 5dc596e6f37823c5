package handlers

import (
	"fmt"
	"net/http"

	"ctfhub/internal/apperrors"
	"ctfhub/internal/middlewares"
	"ctfhub/internal/models"
	"ctfhub/internal/repositories"
	"ctfhub/internal/utils"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	userRepo repositories.UserRepository
}

func NewSettingsHandler(userRepo repositories.UserRepository) *SettingsHandler {
	return &SettingsHandler{userRepo: userRepo}
}

func (h *SettingsHandler) GetAccount(c *gin.Context) {
	userID, ok := middlewares.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}

	info, err := h.userRepo.GetAccountInfo(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve account")
		return
	}

	c.JSON(http.StatusOK, info)
}

// UpdateSettings changes username, email and password in one request.
// Fields left empty are untouched. A password change requires the current
// password to verify.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, ok := middlewares.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}

	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to update settings")
		return
	}

	updated := false

	if req.Username != "" && req.Username != user.Username {
		if err := h.userRepo.UpdateUsername(c.Request.Context(), userID, req.Username); err != nil {
			respondError(c, err, "Failed to update settings")
			return
		}
		updated = true
	}

	if req.Email != "" && req.Email != user.Email {
		if err := h.userRepo.UpdateEmail(c.Request.Context(), userID, req.Email); err != nil {
			respondError(c, err, "Failed to update settings")
			return
		}
		updated = true
	}

	if req.NewPassword != "" {
		if !utils.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
			respondError(c, fmt.Errorf("current password is incorrect: %w", apperrors.ErrValidation), "")
			return
		}
		hash, err := utils.HashPassword(req.NewPassword)
		if err != nil {
			respondError(c, err, "Failed to update settings")
			return
		}
		if err := h.userRepo.UpdatePassword(c.Request.Context(), userID, hash); err != nil {
			respondError(c, err, "Failed to update settings")
			return
		}
		updated = true
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *SettingsHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	router.GET("/account", auth, h.GetAccount)
	router.PUT("/settings", auth, h.UpdateSettings)
}
