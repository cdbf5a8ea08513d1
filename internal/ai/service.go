package ai

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config holds OpenAI connection settings.
type Config struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
}

// Answer is a generated advisory response with the model's confidence mapped
// to a trust score.
type Answer struct {
	Text            string
	Confidence      float64
	TrustScore      float64
	Tips            []string
	Recommendations []string
}

// Service wraps the LLM and embedding clients behind the two operations the
// backend needs: answer generation and text embedding.
type Service struct {
	llm      *openai.LLM
	embedder embeddings.Embedder
	logger   *logrus.Logger
}

func NewService(cfg Config, logger *logrus.Logger) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.ChatModel),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &Service{
		llm:      llm,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// GenerateAnswer asks the model a farming question with optional user context
// and the caller's preferred language.
func (s *Service) GenerateAnswer(ctx context.Context, question, userContext, language string) (*Answer, error) {
	prompt := question
	if userContext != "" {
		prompt = fmt.Sprintf("Context: %s\n\nQuestion: %s", userContext, question)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt(language)),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := s.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(500),
	)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	content := resp.Choices[0].Content

	// The chat API does not self-report confidence for plain text answers;
	// text responses carry the same baseline the original service used.
	confidence := defaultTextConfidence

	answer := &Answer{
		Text:            content,
		Confidence:      confidence,
		TrustScore:      trustScore(confidence),
		Tips:            extractTips(content),
		Recommendations: extractRecommendations(content),
	}

	s.logger.WithFields(logrus.Fields{
		"language":    language,
		"trust_score": answer.TrustScore,
		"length":      len(content),
	}).Debug("Generated AI answer")

	return answer, nil
}

// EmbedText generates a dense vector for the given text. Satisfies
// vector.Embedder.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	return vectors[0], nil
}

// FallbackAnswer returns the localized apology used when generation fails.
// Chat is fail-open: the user gets a reply either way, with trust 0.
func (s *Service) FallbackAnswer(language string) *Answer {
	return &Answer{
		Text:       errorMessage(language),
		Confidence: 0,
		TrustScore: 0,
	}
}
