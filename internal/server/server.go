package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"ctfhub/configs"
	"ctfhub/internal/apperrors"
	"ctfhub/internal/dbs"
	"ctfhub/internal/handlers"
	"ctfhub/internal/logger"
	"ctfhub/internal/middlewares"
	"ctfhub/internal/models"
	"ctfhub/internal/repositories"
	"ctfhub/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const solveFeedStream = "solve_feed"

func StartGinServer() {
	logger.InitLogger()
	defer logger.SyncLogger()

	config := configs.LoadConfig()
	if config.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	db, err := dbs.Init(config)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := dbs.InitRedis(ctx, config.RedisAddr); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer dbs.CloseRedis()

	cache := services.NewRedisCache(dbs.RedisClient)
	tokenService := services.NewTokenService(config.JWTSecret)
	solveFeed := services.NewSolveFeed(dbs.RedisClient, solveFeedStream, 1000)

	userRepo := repositories.NewUserRepository(db, cache)
	challengeRepo := repositories.NewChallengeRepository(db)
	submissionRepo := repositories.NewSubmissionRepository(db)
	communityRepo := repositories.NewCommunityRepository(db)
	statsRepo := repositories.NewStatsRepository(db)

	if err := seedAdminUser(ctx, userRepo, config); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	router := gin.New()
	router.Use(middlewares.ErrorHandlerMiddleware())

	// Session cookies require credentialed CORS, so the frontend origin must
	// be listed explicitly rather than wildcarded.
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	auth := middlewares.AuthMiddleware(tokenService)
	admin := middlewares.AdminMiddleware(userRepo)

	handlers.NewAuthHandler(userRepo, tokenService).RegisterRoutes(router)
	handlers.NewChallengeHandler(challengeRepo, cache, solveFeed).RegisterRoutes(router, auth)
	handlers.NewSubmissionHandler(submissionRepo).RegisterRoutes(router, auth)
	handlers.NewCommunityHandler(communityRepo).RegisterRoutes(router, auth)
	handlers.NewSettingsHandler(userRepo).RegisterRoutes(router, auth)
	handlers.NewAdminHandler(userRepo, challengeRepo, submissionRepo, communityRepo, statsRepo, cache).
		RegisterRoutes(router, auth, admin)

	port := ":" + config.ServerPort
	log.Printf("Starting server on port %s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// seedAdminUser creates the initial administrator account on first boot so
// the review and moderation surfaces are reachable out of the box.
func seedAdminUser(ctx context.Context, userRepo repositories.UserRepository, config *configs.Config) error {
	_, err := userRepo.GetUserByUsername(ctx, config.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	if config.AdminPassword == "" {
		logger.Log.Warn("ADMIN_PASSWORD not set, skipping admin account creation")
		return nil
	}

	user, err := userRepo.CreateUser(ctx, &models.RegisterRequest{
		Username: config.AdminUsername,
		Email:    config.AdminEmail,
		Password: config.AdminPassword,
	})
	if err != nil {
		return err
	}
	if err := userRepo.SetAdmin(ctx, user.ID, true); err != nil {
		return err
	}

	logger.Log.Info("Admin account created", zap.String("username", config.AdminUsername))
	return nil
}
