package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"poster-server/internal/config"
	"poster-server/internal/handler"
	"poster-server/internal/live"
	"poster-server/internal/messaging"
	"poster-server/internal/render"
	"poster-server/internal/repository"
	"poster-server/internal/service"
	"poster-server/migrations"
	"poster-server/pkg/database"
	"poster-server/pkg/logger"
	"poster-server/pkg/migration"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized successfully", zap.String("logLevel", cfg.LogLevel))

	// --- External Connections ---
	db, err := database.NewWithRetry(context.Background(), cfg.DatabaseDSN(), 20, 3*time.Second, log)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()
	pgPool := db.Pool

	// --- Migrations ---
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), time.Minute)
	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: migrations.Path,
		MigrationsFS:   migrations.FS,
	}, pgPool, log)
	if err := migrator.Up(migrateCtx); err != nil {
		migrateCancel()
		zap.L().Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrateCancel()

	// --- Fonts ---
	fonts, err := render.NewFontLibrary()
	if err != nil {
		zap.L().Fatal("Failed to load embedded fonts", zap.Error(err))
	}

	// --- Optional Redis render cache ---
	var renderCache repository.RenderCache = repository.NoopRenderCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		zap.L().Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
		renderCache = repository.NewRedisRenderCache(redisClient, cfg.RenderCacheTTL, log)
	} else {
		zap.L().Info("REDIS_ADDR not set, render caching disabled")
	}

	// --- Dependency Injection ---
	projectRepo := repository.NewPgProjectRepository(pgPool, log)
	imageRepo := repository.NewPgGeneratedImageRepository(pgPool, log)
	narrativeRepo := repository.NewPgNarrativeRepository(pgPool, log)

	assets := render.NewAssetLoader(cfg.AssetTimeout, cfg.AssetMaxBytes, log)
	renderer := render.NewRenderer(assets, fonts, log)
	registry := live.NewRegistry(log)

	renderSvc := service.NewRenderService(projectRepo, renderCache, renderer,
		cfg.RenderDefaultWidth, cfg.RenderDefaultHeight, log)
	imageSvc := service.NewImageService(projectRepo, imageRepo, log)
	narrativeSvc := service.NewNarrativeService(narrativeRepo, log)
	projectSvc := service.NewProjectService(projectRepo, service.NewDebouncer(cfg.AutosaveWindow), log)

	// --- Optional RabbitMQ update consumer ---
	var consumer *messaging.Consumer
	if cfg.RabbitMQURL != "" {
		mqConn, err := connectRabbitMQ(cfg.RabbitMQURL, log)
		if err != nil {
			zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()
		zap.L().Info("Connected to RabbitMQ")
		consumer = messaging.NewConsumer(mqConn, registry, imageSvc, cfg.UpdateQueueName, log)
	} else {
		zap.L().Info("RABBITMQ_URL not set, update queue consumer disabled")
	}

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(handler.ZapLoggingMiddleware(log))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	allowedOrigins := cfg.GetAllowedOrigins()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	// Register Application Routes
	api := router.Group("/api")
	handler.NewRenderHandler(renderSvc, imageSvc, cfg.RenderMaxBodyBytes, log).RegisterRoutes(api)
	handler.NewLiveHandler(registry, imageSvc, cfg.KeepAliveInterval, log).RegisterRoutes(api)

	authed := api.Group("")
	authed.Use(handler.AuthMiddleware(cfg.JWTSecret, log))
	handler.NewNarrativeHandler(narrativeSvc, log).RegisterRoutes(authed)
	handler.NewProjectHandler(projectSvc, log).RegisterRoutes(authed)
	handler.NewFullHistoryHandler(imageSvc, log).RegisterRoutes(authed)

	// Prometheus middleware goes on after the routes are known.
	p.Use(router)

	// --- Start Background Workers ---
	if consumer != nil {
		go func() {
			zap.L().Info("Starting update queue consumer...")
			if err := consumer.StartConsuming(); err != nil {
				zap.L().Error("Update queue consumer stopped with error", zap.Error(err))
			} else {
				zap.L().Info("Update queue consumer stopped gracefully")
			}
		}()
	}

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams outlive any write deadline
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	if consumer != nil {
		consumer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	// Push any debounced saves through before the pool closes.
	projectSvc.Flush()

	zap.L().Info("Server exiting")
}

// connectRabbitMQ dials RabbitMQ with retry logic.
func connectRabbitMQ(url string, log *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 10
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		log.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("unable to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}
