package main

import (
	"context"
	"fmt"
	"log"
	"marketReco/app/echo-server/router"
	"marketReco/business/recommend"
	"marketReco/internal/repository/catalog"
	"marketReco/internal/repository/notification"
	psqlRepo "marketReco/internal/repository/postgres"
	redisRepo "marketReco/internal/repository/redis"
	"marketReco/internal/rest"
	"marketReco/pkg/auth"
	"marketReco/pkg/config"
	"marketReco/pkg/database"
	redisdb "marketReco/pkg/database/redis"
	"marketReco/pkg/logger"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting MarketReco", "version", cfg.App.Version)

	auth.Init(cfg.JWT.SecretKey)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}

	// Init notification providers
	mailjetEmail := notification.NewMailjetRepository(
		notification.MailjetConfig{
			MailjetBaseURL:           cfg.Mailjet.MailjetBaseUrl,
			MailjetBasicAuthUsername: cfg.Mailjet.MailjetBasicAuthUsername,
			MailjetBasicAuthPassword: cfg.Mailjet.MailjetBasicAuthPassword,
			MailjetSenderEmail:       cfg.Mailjet.MailjetSenderEmail,
			MailjetSenderName:        cfg.Mailjet.MailjetSenderName,
		},
	)

	pushRepo := notification.NewPushRepository(
		notification.PushConfig{
			PushBaseURL: cfg.Push.PushBaseUrl,
			PushAPIKey:  cfg.Push.PushAPIKey,
		},
	)

	// Init repo
	userRepo := psqlRepo.NewUserRepository(db)
	ordersRepo := psqlRepo.NewOrdersRepository(db)
	productsRepo := psqlRepo.NewProductRepository(db)
	behaviorRepo := psqlRepo.NewBehaviorRepository(db)
	viewRepo := psqlRepo.NewProductViewRepository(db)
	favoriteRepo := psqlRepo.NewFavoriteRepository(db)
	recoRepo := psqlRepo.NewRecommendationRepository(db)
	notifLogRepo := psqlRepo.NewNotificationLogRepository(db)

	productCache := redisRepo.NewProductCache(redisClient, time.Duration(cfg.Reco.CacheTTLSeconds)*time.Second)
	cachedCatalog := catalog.NewCachedCatalog(productsRepo, productCache)

	// Init pipeline
	runner := recommend.NewRunner(
		recommend.NewIngestionStage(ordersRepo, behaviorRepo, viewRepo, favoriteRepo),
		recommend.NewFeatureStage(cachedCatalog),
		recommend.NewStrategyStage(cachedCatalog),
		recommend.NewRankingStage(cachedCatalog),
		recommend.NewPersistenceStage(recoRepo),
		recommend.NewNotificationStage(notifLogRepo, userRepo, mailjetEmail, pushRepo),
	)

	scheduler := recommend.NewScheduler(runner, cfg.Reco)
	if err := scheduler.StartCron(); err != nil {
		logger.Fatal("Failed to register schedules", "error", err)
	}

	// Init handler
	recoHandler := rest.NewRecommendationHandler(scheduler, recoRepo, cfg.Reco.Strategy)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Setup routes
	api := e.Group("/api/v1")
	router.SetRecommendationRoutes(api, recoHandler)
	router.SetRecommendationAdminRoutes(api, recoHandler)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := scheduler.StopCron(ctx); err != nil {
		logger.Error("Scheduler shutdown error", "error", err)
	}

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if err := redisdb.CloseRedisClient(redisClient); err != nil {
		logger.Error("Redis shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
