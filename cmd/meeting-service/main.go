package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	intDatabase "teamhub-backend/internal/database"
	"teamhub-backend/internal/events"
	"teamhub-backend/internal/gateway"
	meetingHandler "teamhub-backend/internal/handler/http/meeting"
	wsHandler "teamhub-backend/internal/handler/ws"
	"teamhub-backend/internal/middleware"
	"teamhub-backend/internal/repository/cockroach"
	redisRepo "teamhub-backend/internal/repository/redis"
	meetingService "teamhub-backend/internal/service/meeting"
	"teamhub-backend/internal/service/videoserver"
	pkgDatabase "teamhub-backend/pkg/database"
	"teamhub-backend/pkg/env"
	"teamhub-backend/pkg/jwt"
	"teamhub-backend/pkg/logger"
	"teamhub-backend/pkg/metrics"
)

func main() {
	ctx := context.Background()

	logger.InitDefault()
	defer logger.Log.Sync()
	log := logger.Log

	// 1. Setup JWT Manager
	jwtSecret := env.GetStringFromFile("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters")
	}

	jwtManager := jwt.NewManager(jwtSecret, 15*time.Minute)

	// 2. Connect to CockroachDB with exponential backoff retry
	dbConfig := &pkgDatabase.CockroachConfig{
		Host:     env.GetString("DB_HOST", "localhost"),
		Port:     env.GetInt("DB_PORT", 26257),
		User:     env.GetString("DB_USER", "root"),
		Password: env.GetStringFromFile("DB_PASSWORD", ""),
		Database: env.GetString("DB_NAME", "teamhub"),
		SSLMode:  env.GetString("DB_SSLMODE", "disable"),
	}

	db, err := connectCockroach(ctx, dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to CockroachDB", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to CockroachDB")

	meetingRepo := cockroach.NewMeetingRepository(db.Pool)
	roomRepo := cockroach.NewRoomRepository(db.Pool)

	// 3. Connect to Redis
	redisConfig := &intDatabase.RedisConfig{
		Host:     env.GetString("REDIS_HOST", "localhost"),
		Port:     env.GetInt("REDIS_PORT", 6379),
		Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
		DB:       0,
		PoolSize: 10,
		Timeout:  5 * time.Second,
	}

	redisDB, err := intDatabase.NewRedisDB(redisConfig, log)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisDB.Close()
	log.Info("connected to Redis")

	redisDB.StartHealthCheck(ctx, 10*time.Second)

	meetingResourcesRepo := redisRepo.NewMeetingResourcesRepository(redisDB.Client)
	participantResourcesRepo := redisRepo.NewParticipantResourcesRepository(redisDB.Client)

	appMetrics := metrics.NewMetrics("meeting-service")

	// 4. Video server gateway client
	videoserverURL := env.GetString("VIDEOSERVER_URL", "http://localhost:8088/janus")
	videoserverSecret := env.GetStringFromFile("VIDEOSERVER_API_SECRET", "")
	videoserverTimeout := env.GetDuration("VIDEOSERVER_TIMEOUT", 10*time.Second)

	gatewayClient := gateway.NewClient(videoserverTimeout, appMetrics, log)
	gatewaySvc := gateway.NewService(gatewayClient, videoserverURL, videoserverSecret, log)

	// 5. Services
	rtcSvc := videoserver.NewService(gatewaySvc, meetingResourcesRepo, participantResourcesRepo, log)

	publisher := events.NewRedisPublisher(redisDB.Client, log)

	meetingSvc := meetingService.NewService(meetingRepo, roomRepo, rtcSvc, publisher, appMetrics, log)

	// 6. Handlers
	meetingHdlr := meetingHandler.NewHandler(meetingSvc)
	eventHub := wsHandler.NewEventHub(redisDB.Client, appMetrics, log)

	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 7. Setup Gin Router
	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.SetTrustedProxies(nil)

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "meeting-service",
			"time":    time.Now().UTC(),
		})
	})

	// Metrics endpoint (for Prometheus scraping)
	router.GET("/metrics", middleware.MetricsHandler())

	// Meeting routes (all require authentication)
	rooms := router.Group("/v1/rooms")
	rooms.Use(middleware.AuthMiddleware(jwtManager))
	{
		rooms.PUT("/:id/meeting/join", meetingHdlr.JoinRoomMeeting)
	}

	meetings := router.Group("/v1/meetings")
	meetings.Use(middleware.AuthMiddleware(jwtManager))
	{
		meetings.GET("/events", eventHub.ServeWS)

		meetings.GET("/:id", meetingHdlr.GetMeeting)
		meetings.DELETE("/:id", meetingHdlr.DeleteMeeting)
		meetings.PUT("/:id/join", meetingHdlr.JoinMeeting)
		meetings.DELETE("/:id/leave", meetingHdlr.LeaveMeeting)
		meetings.PUT("/:id/media/:kind", meetingHdlr.UpdateMediaStream)
		meetings.PUT("/:id/audio/offer", meetingHdlr.OfferAudioStream)
		meetings.PUT("/:id/media/answer", meetingHdlr.AnswerMediaStream)
		meetings.PUT("/:id/subscriptions", meetingHdlr.UpdateSubscriptions)
	}

	// 8. Start server
	port := env.GetString("PORT", "8084")
	addr := fmt.Sprintf(":%s", port)

	log.Info("meeting service starting",
		zap.String("port", port),
		zap.String("videoserver_url", videoserverURL),
	)
	if err := router.Run(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

// connectCockroach retries the initial connection with exponential backoff
func connectCockroach(ctx context.Context, cfg *pkgDatabase.CockroachConfig, log *zap.Logger) (*pkgDatabase.CockroachDB, error) {
	maxRetries := 5
	baseDelay := 1 * time.Second
	maxDelay := 30 * time.Second

	db, err := pkgDatabase.NewCockroachDB(ctx, cfg)
	if err == nil {
		return db, nil
	}

	for attempt := 2; attempt <= maxRetries; attempt++ {
		delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
		if delay > maxDelay {
			delay = maxDelay
		}
		log.Warn("CockroachDB connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)

		db, err = pkgDatabase.NewCockroachDB(ctx, cfg)
		if err == nil {
			return db, nil
		}
	}

	return nil, err
}
