// backend/cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/digitalkrishi/backend/internal/ai"
	"github.com/digitalkrishi/backend/internal/api"
	"github.com/digitalkrishi/backend/internal/api/handlers"
	"github.com/digitalkrishi/backend/internal/config"
	"github.com/digitalkrishi/backend/internal/database"
	"github.com/digitalkrishi/backend/internal/health"
	"github.com/digitalkrishi/backend/internal/knowledge"
	"github.com/digitalkrishi/backend/internal/n8n"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/digitalkrishi/backend/internal/services"
	"github.com/digitalkrishi/backend/internal/vector"
	"github.com/digitalkrishi/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const defaultRateLimit = 120 // requests per minute per IP

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("Starting Digital Krishi Officer backend...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ValidateOpenAI(); err != nil {
		logger.WithError(err).Fatal("OpenAI configuration validation failed")
	}
	if err := cfg.ValidateQdrant(); err != nil {
		logger.WithError(err).Fatal("Qdrant configuration validation failed")
	}
	if err := cfg.ValidateN8N(); err != nil {
		logger.WithError(err).Fatal("n8n configuration validation failed")
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Postgres + Redis
	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		logger.WithError(err).Fatal("Database migration failed")
	}

	cache := database.NewCache(dbManager.Redis, logger)
	repoManager := repository.NewRepositoryManager(dbManager.DB)

	// Vector store
	vectorClient, err := vector.NewClient(vector.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Qdrant")
	}
	defer vectorClient.Close()

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := vectorClient.EnsureCollection(startupCtx); err != nil {
		startupCancel()
		logger.WithError(err).Fatal("Failed to ensure Qdrant collection")
	}
	startupCancel()

	// AI generation + embeddings
	aiService, err := ai.NewService(ai.Config{
		APIKey:         cfg.OpenAI.APIKey,
		ChatModel:      cfg.OpenAI.ChatModel,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize AI service")
	}

	vectorIndex := vector.NewIndex(vectorClient, aiService, logger)

	// Workflow engine
	n8nClient := n8n.NewClient(cfg.N8N.WebhookBaseURL, cfg.N8N.APIKey, logger)

	// Services
	knowledgeService := knowledge.NewService(vectorIndex, vectorIndex, aiService, repoManager.QA, logger)
	locationService := services.NewLocationService(repoManager, cache, logger)
	chatService := services.NewChatService(aiService, n8nClient, cfg.Features.AIEnhancement, repoManager, logger)
	communityService := services.NewCommunityService(repoManager, n8nClient, cfg.Features.ContentModeration, logger)
	analysisService := services.NewAnalysisService(repoManager, n8nClient, n8nClient, logger)

	// Health monitoring
	healthChecker := health.NewHealthChecker(dbManager, repoManager.SystemHealth, vectorClient, n8nClient, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go healthChecker.PeriodicHealthCheck(ctx, time.Minute)

	router := api.NewRouter(api.Handlers{
		Location:  handlers.NewLocationHandler(locationService, repoManager, logger),
		Knowledge: handlers.NewKnowledgeHandler(knowledgeService, repoManager, cache, logger),
		Chat:      handlers.NewChatHandler(chatService, logger),
		Community: handlers.NewCommunityHandler(communityService, logger),
		Analysis:  handlers.NewAnalysisHandler(analysisService, logger),
		Webhook:   handlers.NewWebhookHandler(analysisService, logger),
		Health:    handlers.NewHealthHandler(healthChecker, logger),
	}, defaultRateLimit)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}

	logger.Info("Server stopped")
}
