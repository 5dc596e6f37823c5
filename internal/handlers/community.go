package handlers

import (
	"net/http"
	"strconv"

	"ctfhub/internal/middlewares"
	"ctfhub/internal/models"
	"ctfhub/internal/repositories"

	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	communityRepo repositories.CommunityRepository
}

func NewCommunityHandler(communityRepo repositories.CommunityRepository) *CommunityHandler {
	return &CommunityHandler{communityRepo: communityRepo}
}

func (h *CommunityHandler) GetPosts(c *gin.Context) {
	posts, err := h.communityRepo.ListPosts(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *CommunityHandler) CreatePost(c *gin.Context) {
	userID, ok := middlewares.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
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

	post, err := h.communityRepo.CreatePost(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, "Failed to create post")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"post_id": post.ID})
}

func (h *CommunityHandler) GetPost(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	post, err := h.communityRepo.GetPost(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to retrieve post")
		return
	}

	comments, err := h.communityRepo.ListComments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to retrieve post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post, "comments": comments})
}

func (h *CommunityHandler) AddComment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	userID, ok := middlewares.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}

	var req models.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The post must exist before we attach a comment to it.
	if _, err := h.communityRepo.GetPost(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to add comment")
		return
	}

	comment, err := h.communityRepo.AddComment(c.Request.Context(), userID, id, req.Content)
	if err != nil {
		respondError(c, err, "Failed to add comment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"comment_id": comment.ID})
}

func (h *CommunityHandler) UpvotePost(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	if err := h.communityRepo.UpvotePost(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to upvote post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *CommunityHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	communityGroup := router.Group("/community", auth)
	{
		communityGroup.GET("", h.GetPosts)
		communityGroup.POST("", h.CreatePost)
		communityGroup.GET("/:id", h.GetPost)
		communityGroup.POST("/:id/comments", h.AddComment)
		communityGroup.POST("/:id/upvote", h.UpvotePost)
	}
}
