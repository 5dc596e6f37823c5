package handlers

import (
	"net/http"

	"ctfhub/internal/middlewares"
	"ctfhub/internal/models"
	"ctfhub/internal/repositories"

	"github.com/gin-gonic/gin"
)

type SubmissionHandler struct {
	submissionRepo repositories.SubmissionRepository
}

func NewSubmissionHandler(submissionRepo repositories.SubmissionRepository) *SubmissionHandler {
	return &SubmissionHandler{submissionRepo: submissionRepo}
}

// CreateSubmission files a user-authored challenge proposal for admin review.
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	userID, ok := middlewares.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}

	var req models.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.submissionRepo.CreateSubmission(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, "Failed to create submission")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Challenge submitted for review",
		"submission_id": submission.ID,
	})
}

func (h *SubmissionHandler) GetMySubmissions(c *gin.Context) {
	userID, ok := middlewares.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}

	submissions, err := h.submissionRepo.ListByAuthor(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve submissions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": submissions,
		"count":       len(submissions),
	})
}

func (h *SubmissionHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	submissionGroup := router.Group("/submissions", auth)
	{
		submissionGroup.POST("", h.CreateSubmission)
		submissionGroup.GET("/mine", h.GetMySubmissions)
	}
}
