package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
)

// Client wraps the Qdrant Go client with the knowledge-base operations this
// backend needs.
type Client struct {
	client     *qdrant.Client
	collection string
	config     Config
	logger     *logrus.Logger
}

// NewClient creates a new Qdrant client wrapper.
func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Client{
		client:     client,
		collection: cfg.Collection,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck verifies the Qdrant server is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if _, err := c.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// EnsureCollection creates the QA embedding collection if it does not exist.
func (c *Client) EnsureCollection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	exists, err := c.client.CollectionExists(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     EmbeddingDim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	c.logger.WithField("collection", c.collection).Info("Created Qdrant collection")
	return nil
}

// Upsert inserts one QA embedding point. The point ID is random; the payload
// carries the qa_id back-reference into the primary store.
func (c *Client) Upsert(ctx context.Context, qaID uuid.UUID, embedding []float32, payload map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(uuid.NewString()),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(payload),
	}

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point for qa %s: %w", qaID, err)
	}

	return nil
}

// Remove deletes all points referencing the given QA entry.
func (c *Client) Remove(ctx context.Context, qaID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{keywordCondition("qa_id", qaID.String())},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points for qa %s: %w", qaID, err)
	}

	return nil
}

// Search runs a dense similarity query constrained by the payload filters and
// score threshold, nearest first.
func (c *Client) Search(ctx context.Context, embedding []float32, f Filters, limit int, threshold float64) ([]Match, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if limit < 1 {
		limit = 10
	}

	queryPoints := &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQueryDense(embedding),
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(float32(threshold)),
		WithPayload:    qdrant.NewWithPayload(true),
	}

	if filter := buildFilter(f); filter != nil {
		queryPoints.Filter = filter
	}

	points, err := c.client.Query(ctx, queryPoints)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	return scoredPointsToMatches(points), nil
}

// buildFilter builds a Qdrant must-filter from the payload filters.
func buildFilter(f Filters) *qdrant.Filter {
	var conditions []*qdrant.Condition

	if f.CropType != "" {
		conditions = append(conditions, keywordCondition("crop_type", f.CropType))
	}
	if f.Category != "" {
		conditions = append(conditions, keywordCondition("category", f.Category))
	}
	if f.Language != "" {
		conditions = append(conditions, keywordCondition("language", f.Language))
	}

	if len(conditions) == 0 {
		return nil
	}

	return &qdrant.Filter{Must: conditions}
}

func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{
						Keyword: value,
					},
				},
			},
		},
	}
}

// scoredPointsToMatches converts Qdrant scored points to Matches, skipping
// points whose qa_id payload is missing or malformed.
func scoredPointsToMatches(points []*qdrant.ScoredPoint) []Match {
	matches := make([]Match, 0, len(points))

	for _, p := range points {
		payload := p.GetPayload()
		qaID, err := uuid.Parse(payload["qa_id"].GetStringValue())
		if err != nil {
			continue
		}

		matches = append(matches, Match{
			QAID:     qaID,
			Question: payload["question"].GetStringValue(),
			Answer:   payload["answer"].GetStringValue(),
			Score:    float64(p.GetScore()),
		})
	}

	return matches
}
