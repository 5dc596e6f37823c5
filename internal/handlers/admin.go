package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"ctfhub/internal/apperrors"
	"ctfhub/internal/logger"
	"ctfhub/internal/middlewares"
	"ctfhub/internal/models"
	"ctfhub/internal/repositories"
	"ctfhub/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes the moderation surface: statistics, user management,
// submission review and post moderation. Every route requires the admin
// capability, enforced by the middleware chain in RegisterRoutes.
type AdminHandler struct {
	userRepo       repositories.UserRepository
	challengeRepo  repositories.ChallengeRepository
	submissionRepo repositories.SubmissionRepository
	communityRepo  repositories.CommunityRepository
	statsRepo      repositories.StatsRepository
	cache          services.Cache
}

func NewAdminHandler(
	userRepo repositories.UserRepository,
	challengeRepo repositories.ChallengeRepository,
	submissionRepo repositories.SubmissionRepository,
	communityRepo repositories.CommunityRepository,
	statsRepo repositories.StatsRepository,
	cache services.Cache,
) *AdminHandler {
	return &AdminHandler{
		userRepo:       userRepo,
		challengeRepo:  challengeRepo,
		submissionRepo: submissionRepo,
		communityRepo:  communityRepo,
		statsRepo:      statsRepo,
		cache:          cache,
	}
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.statsRepo.GetAdminStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ------------------------------------------------------------------
// User management
// ------------------------------------------------------------------

func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.userRepo.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *AdminHandler) PromoteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.userRepo.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to promote user")
		return
	}
	if user.IsAdmin {
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s is already an admin", user.Username)})
		return
	}

	if err := h.userRepo.SetAdmin(c.Request.Context(), id, true); err != nil {
		respondError(c, err, "Failed to promote user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s promoted to admin", user.Username)})
}

func (h *AdminHandler) DemoteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	// Admins cannot demote themselves; a platform must not be able to lock
	// out its last administrator by accident.
	if callerID, _ := middlewares.CurrentUserID(c); callerID == id {
		respondError(c, fmt.Errorf("you cannot demote yourself: %w", apperrors.ErrForbidden), "")
		return
	}

	user, err := h.userRepo.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to demote user")
		return
	}

	if err := h.userRepo.SetAdmin(c.Request.Context(), id, false); err != nil {
		respondError(c, err, "Failed to demote user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s demoted to regular user", user.Username)})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if callerID, _ := middlewares.CurrentUserID(c); callerID == id {
		respondError(c, fmt.Errorf("you cannot delete your own account: %w", apperrors.ErrForbidden), "")
		return
	}

	user, err := h.userRepo.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to delete user")
		return
	}

	if err := h.userRepo.DeleteUserCascade(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete user")
		return
	}

	h.invalidateScoreboard(c)
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User %s deleted", user.Username)})
}

// ------------------------------------------------------------------
// Submission review
// ------------------------------------------------------------------

func (h *AdminHandler) GetSubmissions(c *gin.Context) {
	review := models.SubmissionReview{}
	var err error

	ctx := c.Request.Context()
	if review.Pending, err = h.submissionRepo.ListByStatus(ctx, models.StatusPending); err != nil {
		respondError(c, err, "Failed to retrieve submissions")
		return
	}
	if review.Approved, err = h.submissionRepo.ListByStatus(ctx, models.StatusApproved); err != nil {
		respondError(c, err, "Failed to retrieve submissions")
		return
	}
	if review.Rejected, err = h.submissionRepo.ListByStatus(ctx, models.StatusRejected); err != nil {
		respondError(c, err, "Failed to retrieve submissions")
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *AdminHandler) ApproveSubmission(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	challenge, alreadyApproved, err := h.submissionRepo.ApproveSubmission(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to approve submission")
		return
	}
	if alreadyApproved {
		c.JSON(http.StatusOK, gin.H{"status": "already_approved"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    models.StatusApproved,
		"challenge": challenge,
	})
}

func (h *AdminHandler) RejectSubmission(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	alreadyRejected, err := h.submissionRepo.RejectSubmission(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to reject submission")
		return
	}
	if alreadyRejected {
		c.JSON(http.StatusOK, gin.H{"status": "already_rejected"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.StatusRejected})
}

// ------------------------------------------------------------------
// Challenge & post moderation
// ------------------------------------------------------------------

func (h *AdminHandler) DeleteChallenge(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}

	if err := h.challengeRepo.DeleteChallengeCascade(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete challenge")
		return
	}

	h.invalidateScoreboard(c)
	c.JSON(http.StatusOK, gin.H{"message": "Challenge deleted"})
}

func (h *AdminHandler) GetPosts(c *gin.Context) {
	posts, err := h.communityRepo.ListPosts(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *AdminHandler) EditPost(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var req models.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.communityRepo.UpdatePost(c.Request.Context(), id, req.Title, req.Content); err != nil {
		respondError(c, err, "Failed to update post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post updated"})
}

func (h *AdminHandler) DeletePost(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	if err := h.communityRepo.DeletePostCascade(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (h *AdminHandler) invalidateScoreboard(c *gin.Context) {
	if err := h.cache.Delete(c.Request.Context(), scoreboardCacheKey); err != nil {
		logger.Log.Warn("Failed to invalidate scoreboard cache", zap.Error(err))
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.Engine, auth, admin gin.HandlerFunc) {
	adminGroup := router.Group("/admin", auth, admin)
	{
		adminGroup.GET("/stats", h.GetStats)

		adminGroup.GET("/users", h.GetUsers)
		adminGroup.POST("/users/:id/promote", h.PromoteUser)
		adminGroup.POST("/users/:id/demote", h.DemoteUser)
		adminGroup.DELETE("/users/:id", h.DeleteUser)

		adminGroup.GET("/submissions", h.GetSubmissions)
		adminGroup.POST("/submissions/:id/approve", h.ApproveSubmission)
		adminGroup.POST("/submissions/:id/reject", h.RejectSubmission)

		adminGroup.DELETE("/challenges/:id", h.DeleteChallenge)

		adminGroup.GET("/posts", h.GetPosts)
		adminGroup.PUT("/posts/:id", h.EditPost)
		adminGroup.DELETE("/posts/:id", h.DeletePost)
	}
}
