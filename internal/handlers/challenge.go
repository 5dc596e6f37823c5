package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ctfhub/internal/apperrors"
	"ctfhub/internal/logger"
	"ctfhub/internal/middlewares"
	"ctfhub/internal/models"
	"ctfhub/internal/repositories"
	"ctfhub/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	scoreboardCacheKey = "scoreboard"
	scoreboardCacheTTL = 30 * time.Second
	solveFeedSize      = 20
)

type ChallengeHandler struct {
	challengeRepo repositories.ChallengeRepository
	cache         services.Cache
	solveFeed     services.SolveFeed
}

func NewChallengeHandler(challengeRepo repositories.ChallengeRepository, cache services.Cache, solveFeed services.SolveFeed) *ChallengeHandler {
	return &ChallengeHandler{
		challengeRepo: challengeRepo,
		cache:         cache,
		solveFeed:     solveFeed,
	}
}

// GetChallenges lists challenges, newest first, honoring the category,
// source and search filters. Each item carries the solve count and whether
// the caller has already solved it.
func (h *ChallengeHandler) GetChallenges(c *gin.Context) {
	filter := models.ChallengeFilter{
		Category: c.Query("category"),
		Source:   c.Query("source"),
		Search:   c.Query("q"),
	}
	if err := filter.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	challenges, err := h.challengeRepo.ListChallenges(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to retrieve challenges")
		return
	}

	if userID, ok := middlewares.CurrentUserID(c); ok {
		solved, err := h.challengeRepo.GetSolvedChallengeIDs(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err, "Failed to retrieve challenges")
			return
		}
		for i := range challenges {
			challenges[i].IsSolved = solved[challenges[i].ID]
		}
	}

	c.JSON(http.StatusOK, gin.H{"challenges": challenges})
}

func (h *ChallengeHandler) GetChallengeByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}

	detail, err := h.challengeRepo.GetChallengeDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to retrieve challenge details")
		return
	}

	if userID, ok := middlewares.CurrentUserID(c); ok {
		solved, err := h.challengeRepo.HasSolved(c.Request.Context(), userID, id)
		if err != nil {
			respondError(c, err, "Failed to retrieve challenge details")
			return
		}
		detail.AlreadySolved = solved
	}

	c.JSON(http.StatusOK, detail)
}

// SubmitFlag checks a candidate flag against the stored one with an exact,
// case-sensitive comparison. A correct flag records the solve exactly once
// per user; repeated or concurrent submissions report already_solved.
func (h *ChallengeHandler) SubmitFlag(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}

	userID, ok := middlewares.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}

	var req models.FlagSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	challenge, err := h.challengeRepo.GetChallenge(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to process flag submission")
		return
	}

	alreadySolved, err := h.challengeRepo.HasSolved(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err, "Failed to process flag submission")
		return
	}
	if alreadySolved {
		c.JSON(http.StatusOK, gin.H{"status": models.FlagResultAlreadySolved})
		return
	}

	if strings.TrimSpace(req.Flag) != challenge.Flag {
		c.JSON(http.StatusOK, gin.H{"status": models.FlagResultIncorrect})
		return
	}

	if err := h.challengeRepo.InsertSolve(c.Request.Context(), userID, id); err != nil {
		// A concurrent duplicate submission loses the insert race; that is
		// the same outcome as having solved the challenge before.
		if errors.Is(err, apperrors.ErrConflict) {
			c.JSON(http.StatusOK, gin.H{"status": models.FlagResultAlreadySolved})
			return
		}
		respondError(c, err, "Failed to record solve")
		return
	}

	h.publishSolve(c, challenge)

	if err := h.cache.Delete(c.Request.Context(), scoreboardCacheKey); err != nil {
		logger.Log.Warn("Failed to invalidate scoreboard cache", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"status": models.FlagResultCorrect,
		"points": challenge.Points,
	})
}

// publishSolve appends the solve to the live feed. Feed delivery is
// best-effort and never fails the submission itself.
func (h *ChallengeHandler) publishSolve(c *gin.Context, challenge *models.Challenge) {
	entry := models.SolveFeedEntry{
		Username:       middlewares.CurrentUsername(c),
		ChallengeTitle: challenge.Title,
		Points:         challenge.Points,
		SolvedAt:       time.Now(),
	}
	if err := h.solveFeed.Publish(c.Request.Context(), entry); err != nil {
		logger.Log.Warn("Failed to publish solve feed entry",
			zap.Int("challenge_id", challenge.ID),
			zap.Error(err))
	}
}

// GetScoreboard serves the ranked user list from a short-lived cache backed
// by a single store-side aggregation.
func (h *ChallengeHandler) GetScoreboard(c *gin.Context) {
	var entries []models.ScoreboardEntry
	if err := h.cache.Get(c.Request.Context(), scoreboardCacheKey, &entries); err == nil {
		c.JSON(http.StatusOK, gin.H{"scoreboard": entries})
		return
	}

	entries, err := h.challengeRepo.Scoreboard(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve scoreboard")
		return
	}

	if err := h.cache.Set(c.Request.Context(), scoreboardCacheKey, entries, scoreboardCacheTTL); err != nil {
		logger.Log.Warn("Failed to cache scoreboard", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"scoreboard": entries})
}

func (h *ChallengeHandler) GetRecentSolves(c *gin.Context) {
	entries, err := h.solveFeed.Recent(c.Request.Context(), solveFeedSize)
	if err != nil {
		respondError(c, err, "Failed to retrieve recent solves")
		return
	}
	c.JSON(http.StatusOK, gin.H{"solves": entries})
}

func (h *ChallengeHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	challengeGroup := router.Group("/challenges", auth)
	{
		challengeGroup.GET("", h.GetChallenges)
		challengeGroup.GET("/:id", h.GetChallengeByID)
		challengeGroup.POST("/:id/submit", h.SubmitFlag)
	}
	router.GET("/scoreboard", auth, h.GetScoreboard)
	router.GET("/solves/recent", auth, h.GetRecentSolves)
}
