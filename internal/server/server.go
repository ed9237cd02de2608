package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"locki.app/backend/internal/config"
	"locki.app/backend/internal/middleware"
	"locki.app/backend/internal/scheduler"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/metrics"
	"locki.app/backend/pkg/pubsub"
	"locki.app/backend/pkg/storage"

	achievementHttp "locki.app/backend/internal/modules/achievement/delivery/http"
	achievementRepo "locki.app/backend/internal/modules/achievement/repository"
	achievementService "locki.app/backend/internal/modules/achievement/service"

	buddyHttp "locki.app/backend/internal/modules/buddy/delivery/http"
	buddyRepo "locki.app/backend/internal/modules/buddy/repository"
	buddyService "locki.app/backend/internal/modules/buddy/service"

	engagementHttp "locki.app/backend/internal/modules/engagement/delivery/http"
	engagementRepo "locki.app/backend/internal/modules/engagement/repository"
	engagementService "locki.app/backend/internal/modules/engagement/service"

	feedHttp "locki.app/backend/internal/modules/feed/delivery/http"
	feedService "locki.app/backend/internal/modules/feed/service"

	identityHttp "locki.app/backend/internal/modules/identity/delivery/http"
	"locki.app/backend/internal/modules/identity/provider"
	userRepo "locki.app/backend/internal/modules/identity/repository"
	identityService "locki.app/backend/internal/modules/identity/service"

	leaderboardHttp "locki.app/backend/internal/modules/leaderboard/delivery/http"
	leaderboardRepo "locki.app/backend/internal/modules/leaderboard/repository"
	leaderboardService "locki.app/backend/internal/modules/leaderboard/service"

	messagingHttp "locki.app/backend/internal/modules/messaging/delivery/http"
	messagingRepo "locki.app/backend/internal/modules/messaging/repository"
	messagingService "locki.app/backend/internal/modules/messaging/service"

	notiHttp "locki.app/backend/internal/modules/notification/delivery/http"
	notifRepo "locki.app/backend/internal/modules/notification/repository"
	notifService "locki.app/backend/internal/modules/notification/service"

	postHttp "locki.app/backend/internal/modules/post/delivery/http"
	postRepo "locki.app/backend/internal/modules/post/repository"
	postService "locki.app/backend/internal/modules/post/service"

	profileHttp "locki.app/backend/internal/modules/profile/delivery/http"
	settingsRepo "locki.app/backend/internal/modules/profile/repository"
	profileService "locki.app/backend/internal/modules/profile/service"

	searchHttp "locki.app/backend/internal/modules/search/delivery/http"
	"locki.app/backend/internal/modules/search/indexer"
	searchRepo "locki.app/backend/internal/modules/search/repository"
	searchService "locki.app/backend/internal/modules/search/service"

	statHttp "locki.app/backend/internal/modules/stat/delivery/http"
	statRepo "locki.app/backend/internal/modules/stat/repository"
	statService "locki.app/backend/internal/modules/stat/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	httpServer  *http.Server
	jobs        *scheduler.Scheduler
	db          *gorm.DB
	redisClient *redis.Client
}

// NewServer wires every module. redisClient may be nil; rate limiting, token revocation
// and live streams then degrade as each service documents.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	broker := pubsub.NewBroker(redisClient)
	fileStorage := newFileStorage(cfg)
	searchIndexer := newSearchIndexer(cfg)

	// Identity
	userRepository := userRepo.NewUserRepository(db)
	authSvc := identityService.NewAuthService(
		userRepository,
		redisClient,
		identityService.Config{
			Secret:      cfg.JWTSecret,
			TokenTTL:    cfg.JWTTTL,
			ResetTTL:    cfg.ResetTTL,
			SettleDelay: cfg.SettleDelay,
		},
		newFirebaseVerifier(cfg),
		newGoogleProvider(cfg),
		searchIndexer,
	)
	authHandler := identityHttp.NewAuthHandler(authSvc, cfg.FrontendURL)

	// Ledger
	statRepository := statRepo.NewStatRepository(db)
	statSvc := statService.NewStatService(statRepository)
	statHandler := statHttp.NewStatHandler(statSvc)

	jobs := scheduler.New(0)
	if err := jobs.Register(statService.StreakJob{Service: statSvc}); err != nil {
		logger.Error().Err(err).Msg("failed to register streak job")
	}

	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboardRepo.NewLeaderboardRepository(db))
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(leaderboardSvc)

	// Notifications
	notificationSvc := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), redisClient, broker)
	checkOrigin := originChecker(cfg.AllowedOrigins)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, checkOrigin)

	achievementSvc := achievementService.NewAchievementService(achievementRepo.NewAchievementRepository(db), statRepository, notificationSvc)
	achievementHandler := achievementHttp.NewAchievementHandler(achievementSvc)

	// Social graph
	buddyRepository := buddyRepo.NewBuddyRepository(db)
	buddySvc := buddyService.NewBuddyService(buddyRepository, userRepository, notificationSvc, achievementSvc)
	buddyHandler := buddyHttp.NewBuddyHandler(buddySvc)

	// Posts, feed and engagement
	postRepository := postRepo.NewPostRepository(db)
	postSvc := postService.NewPostService(
		postRepository,
		userRepository,
		buddyRepository,
		fileStorage,
		redisClient,
		searchIndexer,
		achievementSvc,
		postService.Config{RateLimit: cfg.RateLimitPost},
	)
	postHandler := postHttp.NewPostHandler(postSvc)

	feedHandler := feedHttp.NewFeedHandler(feedService.NewFeedService(postRepository, buddySvc))

	engagementSvc := engagementService.NewEngagementService(
		engagementRepo.NewEngagementRepository(db),
		userRepository,
		notificationSvc,
		achievementSvc,
		redisClient,
		engagementService.Config{CommentRateLimit: cfg.RateLimitComment},
	)
	engagementHandler := engagementHttp.NewEngagementHandler(engagementSvc)

	// Messaging
	messagingSvc := messagingService.NewMessagingService(messagingRepo.NewConversationRepository(db), userRepository, notificationSvc, broker)
	messagingHandler := messagingHttp.NewMessagingHandler(messagingSvc, checkOrigin)

	// Profiles and search
	profileSvc := profileService.NewProfileService(
		userRepository,
		settingsRepo.NewSettingsRepository(db),
		buddyRepository,
		statSvc,
		fileStorage,
		searchIndexer,
	)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	searchHandler := searchHttp.NewSearchHandler(searchService.NewSearchService(searchRepo.NewSearchRepository(db), postRepository))

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.SignUp)
		auth.POST("/signin", authHandler.SignIn)
		auth.POST("/firebase", authHandler.SignInWithFirebase)
		auth.GET("/google/login", authHandler.GoogleLogin)
		auth.GET("/google/callback", authHandler.GoogleCallback)
		auth.POST("/password/reset", authHandler.ResetPassword)
		auth.POST("/password/reset/confirm", authHandler.ConfirmPasswordReset)
		auth.GET("/username/check", authHandler.CheckUsername)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Account
		protected.POST("/auth/signout", authHandler.SignOut)
		protected.POST("/auth/reauthenticate", authHandler.Reauthenticate)
		protected.PUT("/auth/password", authHandler.UpdatePassword)
		protected.PUT("/auth/email", authHandler.UpdateEmail)
		protected.PUT("/auth/username", authHandler.UpdateUsername)
		protected.DELETE("/auth/account", authHandler.DeactivateAccount)

		// Profile routes
		protected.GET("/profiles/:username", profileHandler.GetProfileByUsername)
		protected.GET("/profile/me", profileHandler.GetCurrentProfile)
		protected.PUT("/profile", profileHandler.UpdateProfile)
		protected.GET("/settings", profileHandler.GetSettings)
		protected.PUT("/settings", profileHandler.UpdateSettings)

		// Post routes
		protected.POST("/posts", postHandler.CreatePost)
		protected.GET("/posts/:id", postHandler.GetPost)
		protected.DELETE("/posts/:id", postHandler.DeletePost)
		protected.GET("/users/:id/posts", postHandler.GetUserPosts)
		protected.GET("/feed", feedHandler.GetFeed)

		// Engagement routes
		protected.POST("/posts/:id/like", engagementHandler.LikePost)
		protected.DELETE("/posts/:id/like", engagementHandler.UnlikePost)
		protected.POST("/posts/:id/like/toggle", engagementHandler.ToggleLike)
		protected.GET("/posts/:id/like", engagementHandler.GetLikeStatus)
		protected.POST("/posts/:id/comments", engagementHandler.AddComment)
		protected.GET("/posts/:id/comments", engagementHandler.GetComments)
		protected.DELETE("/comments/:id", engagementHandler.DeleteComment)

		// Buddy routes
		protected.GET("/buddies", buddyHandler.GetBuddies)
		protected.GET("/buddies/requests", buddyHandler.GetPendingRequests)
		protected.POST("/buddies/requests", buddyHandler.SendRequest)
		protected.POST("/buddies/requests/:id/accept", buddyHandler.AcceptRequest)
		protected.POST("/buddies/requests/:id/decline", buddyHandler.DeclineRequest)
		protected.DELETE("/buddies/:id", buddyHandler.RemoveBuddy)
		protected.GET("/buddies/:id/status", buddyHandler.GetStatus)

		// Conversation routes
		protected.POST("/conversations", messagingHandler.StartConversation)
		protected.GET("/conversations", messagingHandler.GetConversations)
		protected.POST("/conversations/:id/messages", messagingHandler.SendMessage)
		protected.GET("/conversations/:id/messages", messagingHandler.GetMessages)
		protected.PUT("/conversations/:id/read", messagingHandler.MarkRead)
		protected.GET("/conversations/:id/ws", messagingHandler.HandleWebSocket)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", notificationHandler.Delete)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		// Ledger routes
		protected.GET("/users/count", statHandler.GetTotalUsers)
		protected.GET("/stats/me", statHandler.GetMyStats)
		protected.GET("/users/:id/stats", statHandler.GetUserStats)
		protected.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		protected.GET("/leaderboard/me", leaderboardHandler.GetMyRank)
		protected.GET("/achievements/me", achievementHandler.GetMyAchievements)
		protected.GET("/users/:id/achievements", achievementHandler.GetUserAchievements)

		// Search routes
		protected.GET("/search", searchHandler.Search)
		protected.GET("/search/history", searchHandler.GetHistory)
	}

	return &Server{
		engine:      router,
		jobs:        jobs,
		db:          db,
		redisClient: redisClient,
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the background jobs and blocks serving addr until Shutdown is called.
func (s *Server) Run(addr string) error {
	s.jobs.Start()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.jobs.Stop(ctx)
	return err
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

// originChecker accepts websocket upgrades from the CORS origins and from clients that
// send no Origin header at all (mobile apps).
func originChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}

func newFileStorage(cfg *config.Config) storage.BlobStorage {
	fileStorage, err := storage.NewCloudinaryStorage(cfg.Cloudinary)
	if err != nil {
		logger.Warn().Err(err).Msg("image uploads disabled")
		return nil
	}
	return fileStorage
}

func newSearchIndexer(cfg *config.Config) indexer.Indexer {
	host := cfg.MeiliSearchHost
	if host == "" {
		logger.Info().Msg("MEILISEARCH_HOST not set, search indexing disabled")
		return nil
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}
	return indexer.NewMeiliIndexer(meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey)))
}

func newFirebaseVerifier(cfg *config.Config) provider.TokenVerifier {
	if cfg.FirebaseCredentialsFile == "" && cfg.FirebaseCredentialsJSON == "" {
		return nil
	}
	verifier, err := provider.NewFirebaseVerifier(context.Background(), cfg.FirebaseCredentialsFile, cfg.FirebaseCredentialsJSON)
	if err != nil {
		logger.Warn().Err(err).Msg("firebase sign-in disabled")
		return nil
	}
	return verifier
}

func newGoogleProvider(cfg *config.Config) *provider.GoogleProvider {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil
	}
	return provider.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
}
