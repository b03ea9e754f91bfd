package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/reelcraft/api/internal/cleanup"
	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/config"
	"github.com/reelcraft/api/internal/handler"
	"github.com/reelcraft/api/internal/job"
	"github.com/reelcraft/api/internal/media"
	"github.com/reelcraft/api/internal/middleware"
	"github.com/reelcraft/api/internal/service"
	"github.com/reelcraft/api/internal/store"
	ws "github.com/reelcraft/api/internal/websocket"
	"github.com/reelcraft/api/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer appLog.Sync()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLog.Warn("redis not available, rate limiting disabled", "error", err)
	}

	// Open database
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		appLog.Fatal("failed to open database", "error", err)
	}
	jobStore := store.NewJobStore(db)
	videoStore := store.NewVideoStore(db)

	// Initialize validator
	validate := validator.New()

	// Initialize external clients
	firecrawlClient := client.NewFirecrawlClient(&cfg.Firecrawl)
	geminiClient := client.NewGeminiClient(&cfg.Gemini)
	pexelsClient := client.NewPexelsClient(&cfg.Pexels)

	// Initialize R2 client (optional - continues if not configured)
	var storageClient client.StorageClient
	var r2Client *client.R2Client
	if cfg.R2.Enabled {
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			appLog.Warn("R2 client not initialized, storing videos locally", "error", err)
		} else {
			storageClient = r2Client
		}
	} else {
		appLog.Info("cloud storage not enabled, storing videos locally")
	}

	// Initialize media toolchain
	runner := media.NewRunner()
	prober := media.NewFFProber(cfg.Media.FFprobeBin, runner)
	compositor := media.NewCompositor(&cfg.Media, cfg.Assets.TextDir, runner, prober, appLog)

	// Initialize services
	scriptService := service.NewScriptService(firecrawlClient, geminiClient, appLog)
	voiceService := service.NewVoiceService(geminiClient, prober, runner, cfg.Media.FFmpegBin, cfg.Assets.AudioDir, appLog)
	assetService := service.NewAssetService(pexelsClient, geminiClient, cfg.Assets.ImageDir, cfg.Assets.VideoDir, cfg.Pexels.CandidateCount, cfg.Pexels.AIFiltering, appLog)
	assembler := service.NewAssembler(voiceService, cfg.Assets.OutputDir, cfg.Media.TextSceneDuration, cfg.Media.BackgroundScore, appLog)
	videoService := service.NewVideoService(videoStore, storageClient, appLog)
	cleaner := cleanup.New(&cfg.Assets, appLog)

	// Initialize orchestration
	manager := job.NewManager(jobStore, appLog)
	pipeline := job.NewPipeline(
		manager,
		scriptService,
		voiceService,
		assetService,
		assembler,
		compositor,
		jobStore,
		videoStore,
		storageClient,
		cleaner,
		appLog,
	)

	// Initialize WebSocket hub
	hub := ws.NewHub(manager, appLog)
	go hub.Run()

	// Periodic sweep of temp files left behind by crashed generations
	go func() {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			cleaner.SweepOld(7 * 24 * time.Hour)
		}
	}()

	// Initialize handlers
	generateHandler := handler.NewGenerateHandler(pipeline, validate)
	jobHandler := handler.NewJobHandler(manager)
	videoHandler := handler.NewVideoHandler(videoService)
	healthHandler := handler.NewHealthHandler(map[string]handler.Configured{
		"firecrawl": firecrawlClient,
		"gemini":    geminiClient,
		"pexels":    pexelsClient,
		"r2":        r2Client,
	})

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}\n"
	}
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", healthHandler.Health)

	// API routes
	api := app.Group("/api")

	api.Post("/generate-video", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), generateHandler.Generate)

	api.Get("/jobs", jobHandler.List)
	api.Get("/jobs/:jobId", jobHandler.Status)
	api.Post("/jobs/:jobId/cancel", jobHandler.Cancel)

	api.Get("/videos", videoHandler.List)
	api.Get("/videos/:id", videoHandler.Get)
	api.Get("/videos/:id/file", videoHandler.ServeFile)
	api.Delete("/videos/:id", videoHandler.Delete)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		appLog.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			appLog.Error("server shutdown error", "error", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	appLog.Info("server starting", "addr", addr)
	if err := app.Listen(addr); err != nil {
		appLog.Fatal("server error", "error", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
