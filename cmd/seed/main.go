// backend/cmd/seed/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/digitalkrishi/backend/internal/ai"
	"github.com/digitalkrishi/backend/internal/config"
	"github.com/digitalkrishi/backend/internal/database"
	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/digitalkrishi/backend/internal/vector"
	"github.com/digitalkrishi/backend/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// SeedEntry is one knowledge-base record in the input file.
type SeedEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	CropType string `json:"crop_type"`
	Category string `json:"category"`
	Language string `json:"language"`
}

// KnowledgeSeeder loads QA entries into Postgres and the vector index.
type KnowledgeSeeder struct {
	repoManager *repository.RepositoryManager
	index       *vector.Index
	logger      *logrus.Logger
	errors      []error
}

const indexBatchSize = 20

var (
	inputFile  = flag.String("file", "seed/knowledge.json", "JSON file with QA entries")
	dryRun     = flag.Bool("dry-run", false, "Parse and validate only, write nothing")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	entryLimit = flag.Int("limit", 0, "Limit number of entries to load (0 = all)")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	logger.Info("Starting knowledge base seeder...")

	entries, err := loadEntries(*inputFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load seed file")
	}

	if *entryLimit > 0 && *entryLimit < len(entries) {
		entries = entries[:*entryLimit]
		logger.WithField("limit", *entryLimit).Info("Limited entries to load")
	}

	logger.WithField("total_entries", len(entries)).Info("Seed file parsed")

	if *dryRun {
		for i, entry := range entries {
			logger.WithFields(logrus.Fields{
				"index":     i,
				"question":  truncate(entry.Question, 60),
				"crop_type": entry.CropType,
				"language":  entry.Language,
			}).Info("DRY RUN: Would load entry")
		}
		logger.Info("Dry run completed")
		return
	}

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

	ctx := context.Background()
	if err := vectorClient.EnsureCollection(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to ensure Qdrant collection")
	}

	aiService, err := ai.NewService(ai.Config{
		APIKey:         cfg.OpenAI.APIKey,
		ChatModel:      cfg.OpenAI.ChatModel,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize AI service")
	}

	seeder := &KnowledgeSeeder{
		repoManager: repository.NewRepositoryManager(dbManager.DB),
		index:       vector.NewIndex(vectorClient, aiService, logger),
		logger:      logger,
	}

	if err := seeder.Seed(ctx, entries); err != nil {
		logger.WithError(err).Fatal("Seeding failed")
	}

	logger.Info("Knowledge base seeding completed successfully!")
}

func loadEntries(path string) ([]SeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries []SeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i, entry := range entries {
		if entry.Question == "" || entry.Answer == "" {
			return nil, fmt.Errorf("entry %d: question and answer are required", i)
		}
	}
	return entries, nil
}

// Seed writes all entries, indexing in batches so one slow embedding call
// does not stall the whole run.
func (s *KnowledgeSeeder) Seed(ctx context.Context, entries []SeedEntry) error {
	var pending []*models.QAEntry

	for i, seed := range entries {
		entry := &models.QAEntry{
			Question: seed.Question,
			Answer:   seed.Answer,
			CropType: seed.CropType,
			Category: seed.Category,
			Language: seed.Language,
		}
		if entry.Language == "" {
			entry.Language = "malayalam"
		}
		if entry.Category == "" {
			entry.Category = "general"
		}

		if err := s.repoManager.QA.Create(entry); err != nil {
			s.logger.WithError(err).WithField("index", i).Error("Failed to insert entry")
			s.errors = append(s.errors, fmt.Errorf("entry %d: %w", i, err))
			continue
		}

		pending = append(pending, entry)
		if len(pending) >= indexBatchSize {
			s.indexBatch(ctx, pending)
			pending = pending[:0]

			s.logger.WithFields(logrus.Fields{
				"progress": fmt.Sprintf("%d/%d", i+1, len(entries)),
			}).Info("Batch indexed")
		}
	}

	if len(pending) > 0 {
		s.indexBatch(ctx, pending)
	}

	s.logger.WithFields(logrus.Fields{
		"loaded": len(entries) - len(s.errors),
		"errors": len(s.errors),
	}).Info("Seeding finished")

	if len(s.errors) > 0 {
		for _, err := range s.errors {
			s.logger.WithError(err).Warn("Seeding error")
		}
	}

	return nil
}

func (s *KnowledgeSeeder) indexBatch(ctx context.Context, batch []*models.QAEntry) {
	for _, entry := range batch {
		indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := s.index.IndexQA(indexCtx, entry); err != nil {
			s.logger.WithError(err).WithField("qa_id", entry.ID).Error("Failed to index entry")
			s.errors = append(s.errors, fmt.Errorf("index %s: %w", entry.ID, err))
		}
		cancel()
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
