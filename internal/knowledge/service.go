package knowledge

import (
	"context"
	"strings"

	"github.com/digitalkrishi/backend/internal/ai"
	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/vector"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultThreshold is the minimum similarity for semantic matches.
	DefaultThreshold = 0.6

	// DefaultLimit caps search results when the caller does not supply one.
	DefaultLimit = 10

	// fallbackScore is assigned to keyword hits, which carry no genuine
	// semantic score.
	fallbackScore = 0.5

	// askSearchThreshold is the stricter threshold used before invoking the
	// generator.
	askSearchThreshold = 0.8

	// askReuseThreshold is the similarity above which a stored answer is
	// served instead of generating a new one.
	askReuseThreshold = 0.9

	// askSaveConfidence is the generator confidence above which a new answer
	// is written back to the knowledge base.
	askSaveConfidence = 0.8
)

// SimilaritySearcher is the embedding-similarity collaborator. Satisfied by
// *vector.Index.
type SimilaritySearcher interface {
	SearchSimilar(ctx context.Context, query string, f vector.Filters, limit int, threshold float64) ([]vector.Match, error)
}

// Indexer keeps the vector collaborator in sync with the primary store.
// Satisfied by *vector.Index.
type Indexer interface {
	IndexQA(ctx context.Context, entry *models.QAEntry) error
	ReindexQA(ctx context.Context, entry *models.QAEntry) error
	RemoveQA(ctx context.Context, qaID uuid.UUID) error
}

// AnswerGenerator is the AI-generation collaborator. Satisfied by *ai.Service.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, userContext, language string) (*ai.Answer, error)
}

// SearchParams controls one hybrid search invocation. The caller validates
// the query (minimum 3 characters) before calling.
type SearchParams struct {
	Query           string
	Filters         models.KnowledgeFilters
	Limit           int
	Threshold       float64
	UseVectorSearch bool
}

// AskResult is the outcome of the AI-assisted answer operation.
type AskResult struct {
	Answer          string
	Source          string // 'knowledge_base' or 'ai_generated'
	SimilarityScore float64
	TrustScore      float64
	QAID            *uuid.UUID
	SimilarEntries  []vector.Match
}

// Service combines semantic and keyword retrieval over the knowledge
// repository.
type Service struct {
	searcher  SimilaritySearcher
	indexer   Indexer
	generator AnswerGenerator
	repo      models.QARepository
	logger    *logrus.Logger
}

func NewService(
	searcher SimilaritySearcher,
	indexer Indexer,
	generator AnswerGenerator,
	repo models.QARepository,
	logger *logrus.Logger,
) *Service {
	return &Service{
		searcher:  searcher,
		indexer:   indexer,
		generator: generator,
		repo:      repo,
		logger:    logger,
	}
}

// Search returns ranked QA entries: confirmed semantic matches first, then
// keyword-fallback hits when semantic results are sparse. The result never
// contains duplicate identifiers and every entry carries a similarity score.
func (s *Service) Search(ctx context.Context, params SearchParams) ([]models.QASearchResult, error) {
	if params.Limit < 1 {
		params.Limit = DefaultLimit
	}
	if params.Threshold <= 0 {
		params.Threshold = DefaultThreshold
	}

	var results []models.QASearchResult

	if params.UseVectorSearch {
		results = s.semanticResults(ctx, params)
	}

	// Backfill with keyword matches when the semantic path came up short.
	// With vector search disabled the fallback always runs.
	if !params.UseVectorSearch || len(results) < params.Limit/2 {
		results = s.appendKeywordResults(results, params)
	}

	if len(results) > params.Limit {
		results = results[:params.Limit]
	}

	return results, nil
}

// semanticResults runs the embedding search and confirms each hit against the
// primary store. Collaborator failure degrades to an empty slice so the
// keyword path can take over.
func (s *Service) semanticResults(ctx context.Context, params SearchParams) []models.QASearchResult {
	matches, err := s.searcher.SearchSimilar(
		ctx,
		params.Query,
		vector.Filters{
			CropType: params.Filters.CropType,
			Category: params.Filters.Category,
			Language: params.Filters.Language,
		},
		params.Limit,
		params.Threshold,
	)
	if err != nil {
		s.logger.WithError(err).Warn("Vector search unavailable, falling back to keyword search")
		return nil
	}

	results := make([]models.QASearchResult, 0, len(matches))
	for _, match := range matches {
		// Re-fetch the authoritative record; the index may be stale.
		entry, err := s.repo.GetByID(match.QAID)
		if err != nil {
			s.logger.WithField("qa_id", match.QAID).Debug("Dropping stale vector match")
			continue
		}

		results = append(results, models.QASearchResult{
			QAEntry:         *entry,
			SimilarityScore: match.Score,
		})
	}

	return results
}

// appendKeywordResults merges keyword hits into the semantic results,
// deduplicating by identifier and assigning the default score.
func (s *Service) appendKeywordResults(results []models.QASearchResult, params SearchParams) []models.QASearchResult {
	remaining := params.Limit - len(results)
	if remaining < 1 {
		return results
	}

	entries, err := s.repo.SearchByKeywords(Tokenize(params.Query), params.Filters, params.Limit)
	if err != nil {
		s.logger.WithError(err).Warn("Keyword search failed")
		return results
	}

	seen := make(map[uuid.UUID]bool, len(results))
	for _, r := range results {
		seen[r.ID] = true
	}

	for _, entry := range entries {
		if seen[entry.ID] {
			continue
		}
		results = append(results, models.QASearchResult{
			QAEntry:         entry,
			SimilarityScore: fallbackScore,
		})
		seen[entry.ID] = true
	}

	return results
}

// Tokenize lower-cases and splits a query on whitespace. Keyword matching
// requires every token to appear as a substring of the question or answer.
func Tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Ask answers a question, preferring a sufficiently similar stored answer
// over a fresh generation. High-confidence generated answers are written back
// to the knowledge base and indexed for future reuse.
func (s *Service) Ask(ctx context.Context, question string, filters models.KnowledgeFilters, userContext string) (*AskResult, error) {
	similar, err := s.searcher.SearchSimilar(
		ctx,
		question,
		vector.Filters{
			CropType: filters.CropType,
			Language: filters.Language,
		},
		3,
		askSearchThreshold,
	)
	if err != nil {
		s.logger.WithError(err).Warn("Vector search unavailable for ask, generating fresh answer")
		similar = nil
	}

	if len(similar) > 0 && similar[0].Score > askReuseThreshold {
		best := similar[0]
		if entry, err := s.repo.GetByID(best.QAID); err == nil {
			return &AskResult{
				Answer:          entry.Answer,
				Source:          "knowledge_base",
				SimilarityScore: best.Score,
				QAID:            &entry.ID,
				SimilarEntries:  similar,
			}, nil
		}
		// Stale hit, fall through to generation.
		s.logger.WithField("qa_id", best.QAID).Debug("Best match no longer in primary store")
	}

	language := filters.Language
	if language == "" {
		language = "malayalam"
	}

	answer, err := s.generator.GenerateAnswer(ctx, question, userContext, language)
	if err != nil {
		return nil, err
	}

	result := &AskResult{
		Answer:         answer.Text,
		Source:         "ai_generated",
		TrustScore:     answer.TrustScore,
		SimilarEntries: trimMatches(similar, 2),
	}

	if answer.Confidence > askSaveConfidence {
		entry := &models.QAEntry{
			Question: question,
			Answer:   answer.Text,
			CropType: filters.CropType,
			Category: "ai_generated",
			Language: language,
		}
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}

		if err := s.repo.Create(entry); err != nil {
			s.logger.WithError(err).Warn("Failed to save generated answer to knowledge base")
			return result, nil
		}

		if err := s.indexer.IndexQA(ctx, entry); err != nil {
			s.logger.WithError(err).Warn("Failed to index generated answer")
		}
		result.QAID = &entry.ID
	}

	return result, nil
}

func trimMatches(matches []vector.Match, max int) []vector.Match {
	if len(matches) > max {
		return matches[:max]
	}
	return matches
}

// CreateEntry persists a QA entry and indexes it. Index failure does not roll
// back the row; the entry is still reachable through the keyword path.
func (s *Service) CreateEntry(ctx context.Context, entry *models.QAEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Language == "" {
		entry.Language = "malayalam"
	}

	if err := s.repo.Create(entry); err != nil {
		return err
	}

	if err := s.indexer.IndexQA(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("qa_id", entry.ID).Warn("Failed to index knowledge entry")
	}
	return nil
}

// UpdateEntry persists changes and reindexes the entry.
func (s *Service) UpdateEntry(ctx context.Context, entry *models.QAEntry) error {
	if err := s.repo.Update(entry); err != nil {
		return err
	}

	if err := s.indexer.ReindexQA(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("qa_id", entry.ID).Warn("Failed to reindex knowledge entry")
	}
	return nil
}

// DeleteEntry removes an entry from the primary store and the index.
func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	if err := s.indexer.RemoveQA(ctx, id); err != nil {
		s.logger.WithError(err).WithField("qa_id", id).Warn("Failed to remove entry from index")
	}
	return nil
}
