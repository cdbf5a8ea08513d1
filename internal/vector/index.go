package vector

import (
	"context"
	"fmt"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Embedder turns text into a dense vector. Satisfied by ai.Service.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Index owns the QA point lifecycle: it embeds entries and keeps the Qdrant
// collection in sync with the primary store.
type Index struct {
	client   *Client
	embedder Embedder
	logger   *logrus.Logger
}

func NewIndex(client *Client, embedder Embedder, logger *logrus.Logger) *Index {
	return &Index{
		client:   client,
		embedder: embedder,
		logger:   logger,
	}
}

// searchText combines question and answer into the text that gets embedded.
func searchText(question, answer string) string {
	return fmt.Sprintf("Question: %s\nAnswer: %s", question, answer)
}

// IndexQA embeds a QA entry and upserts it into the collection.
func (i *Index) IndexQA(ctx context.Context, entry *models.QAEntry) error {
	text := searchText(entry.Question, entry.Answer)

	embedding, err := i.embedder.EmbedText(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed qa %s: %w", entry.ID, err)
	}

	payload := map[string]any{
		"qa_id":    entry.ID.String(),
		"question": entry.Question,
		"answer":   entry.Answer,
		"language": entry.Language,
	}
	if entry.CropType != "" {
		payload["crop_type"] = entry.CropType
	}
	if entry.Category != "" {
		payload["category"] = entry.Category
	}

	return i.client.Upsert(ctx, entry.ID, embedding, payload)
}

// ReindexQA replaces all points for an updated entry.
func (i *Index) ReindexQA(ctx context.Context, entry *models.QAEntry) error {
	if err := i.client.Remove(ctx, entry.ID); err != nil {
		return err
	}
	return i.IndexQA(ctx, entry)
}

// RemoveQA drops all points for a deleted entry.
func (i *Index) RemoveQA(ctx context.Context, qaID uuid.UUID) error {
	return i.client.Remove(ctx, qaID)
}

// SearchSimilar embeds the query text and returns matches above the
// similarity threshold, nearest first.
func (i *Index) SearchSimilar(ctx context.Context, query string, f Filters, limit int, threshold float64) ([]Match, error) {
	embedding, err := i.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := i.client.Search(ctx, embedding, f, limit, threshold)
	if err != nil {
		return nil, err
	}

	i.logger.WithFields(logrus.Fields{
		"query":   query,
		"matches": len(matches),
	}).Debug("Similarity search completed")

	return matches, nil
}
