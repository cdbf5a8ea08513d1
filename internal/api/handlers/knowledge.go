package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/digitalkrishi/backend/internal/database"
	"github.com/digitalkrishi/backend/internal/knowledge"
	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/digitalkrishi/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	minQueryLength    = 3
	minAskLength      = 10
	maxKnowledgeLimit = 50
)

type KnowledgeHandler struct {
	knowledgeService *knowledge.Service
	repoManager      *repository.RepositoryManager
	cache            *database.Cache
	logger           *logrus.Logger
}

func NewKnowledgeHandler(
	knowledgeService *knowledge.Service,
	repoManager *repository.RepositoryManager,
	cache *database.Cache,
	logger *logrus.Logger,
) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledgeService: knowledgeService,
		repoManager:      repoManager,
		cache:            cache,
		logger:           logger,
	}
}

// HandleCreate adds a QA entry to the knowledge base and indexes it.
func (h *KnowledgeHandler) HandleCreate(c *gin.Context) {
	var req models.QACreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	entry := &models.QAEntry{
		Question: req.Question,
		Answer:   req.Answer,
		CropType: req.CropType,
		Category: req.Category,
		Language: req.Language,
	}

	if err := h.knowledgeService.CreateEntry(c.Request.Context(), entry); err != nil {
		h.logger.WithError(err).Error("Failed to create knowledge entry")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create entry", err)
		return
	}

	go h.invalidateSearchCache()

	utils.SuccessResponse(c, http.StatusCreated, "Entry created", entry)
}

// HandleSearch runs the hybrid knowledge search.
func (h *KnowledgeHandler) HandleSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if len(query) < minQueryLength {
		utils.ErrorResponse(c, http.StatusBadRequest,
			fmt.Sprintf("Query must be at least %d characters", minQueryLength), nil)
		return
	}

	params := knowledge.SearchParams{
		Query: query,
		Filters: models.KnowledgeFilters{
			CropType: c.Query("crop_type"),
			Category: c.Query("category"),
			Language: c.Query("language"),
		},
		Limit:           parseIntQuery(c, "limit", knowledge.DefaultLimit, 1, maxKnowledgeLimit),
		UseVectorSearch: c.DefaultQuery("use_vector_search", "true") != "false",
	}

	if raw := c.Query("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil || threshold <= 0 || threshold > 1 {
			utils.ErrorResponse(c, http.StatusBadRequest, "Threshold must be in (0, 1]", nil)
			return
		}
		params.Threshold = threshold
	}

	cacheKey := h.searchCacheKey(params)
	if cached, err := h.cache.GetCachedKnowledgeSearch(c.Request.Context(), cacheKey); err == nil {
		h.logger.Debug("Knowledge search served from cache")
		utils.SuccessResponse(c, http.StatusOK, "Search completed", gin.H{
			"results": cached,
			"count":   len(cached),
		})
		return
	}

	results, err := h.knowledgeService.Search(c.Request.Context(), params)
	if err != nil {
		h.logger.WithError(err).Error("Knowledge search failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Search failed", err)
		return
	}

	if err := h.cache.CacheKnowledgeSearch(c.Request.Context(), cacheKey, results, database.DefaultExpiration); err != nil {
		h.logger.WithError(err).Warn("Failed to cache search results")
	}

	utils.SuccessResponse(c, http.StatusOK, "Search completed", gin.H{
		"results": results,
		"count":   len(results),
	})
}

func (h *KnowledgeHandler) searchCacheKey(params knowledge.SearchParams) string {
	raw := fmt.Sprintf("%s:%s:%s:%s:%d:%.2f:%t",
		strings.ToLower(params.Query),
		params.Filters.CropType, params.Filters.Category, params.Filters.Language,
		params.Limit, params.Threshold, params.UseVectorSearch)
	return utils.MD5Hash(raw)
}

func (h *KnowledgeHandler) invalidateSearchCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.cache.InvalidateKnowledgeCache(ctx); err != nil {
		h.logger.WithError(err).Warn("Failed to invalidate knowledge cache")
	}
}

// HandleAsk answers a question from the knowledge base or the AI generator.
func (h *KnowledgeHandler) HandleAsk(c *gin.Context) {
	var req struct {
		Question string `json:"question" binding:"required"`
		CropType string `json:"crop_type"`
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	question := strings.TrimSpace(req.Question)
	if len(question) < minAskLength {
		utils.ErrorResponse(c, http.StatusBadRequest,
			fmt.Sprintf("Question must be at least %d characters", minAskLength), nil)
		return
	}

	filters := models.KnowledgeFilters{
		CropType: req.CropType,
		Language: req.Language,
	}

	result, err := h.knowledgeService.Ask(c.Request.Context(), question, filters, "")
	if err != nil {
		h.logger.WithError(err).Error("Failed to answer question")
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "AI service unavailable", err)
		return
	}

	response := models.AskAIResponse{
		Answer:          result.Answer,
		Source:          result.Source,
		SimilarityScore: result.SimilarityScore,
		TrustScore:      result.TrustScore,
		QAID:            result.QAID,
		SimilarEntries:  result.SimilarEntries,
	}

	utils.SuccessResponse(c, http.StatusOK, "Question answered", response)
}

// HandleList lists knowledge entries, newest first.
func (h *KnowledgeHandler) HandleList(c *gin.Context) {
	filters := models.KnowledgeFilters{
		CropType: c.Query("crop_type"),
		Category: c.Query("category"),
		Language: c.Query("language"),
	}
	offset := parseIntQuery(c, "offset", 0, 0, 10000)
	limit := parseIntQuery(c, "limit", 20, 1, maxKnowledgeLimit)

	entries, err := h.repoManager.QA.List(filters, offset, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Entries retrieved", entries)
}

// HandlePopular lists the best-voted entries.
func (h *KnowledgeHandler) HandlePopular(c *gin.Context) {
	filters := models.KnowledgeFilters{
		CropType: c.Query("crop_type"),
		Language: c.Query("language"),
	}
	limit := parseIntQuery(c, "limit", 10, 1, maxKnowledgeLimit)

	entries, err := h.repoManager.QA.Popular(filters, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list popular entries", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Popular entries retrieved", entries)
}

// HandleGet returns one entry.
func (h *KnowledgeHandler) HandleGet(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.repoManager.QA.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Entry not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get entry", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Entry retrieved", entry)
}

// HandleUpdate updates an entry and reindexes it.
func (h *KnowledgeHandler) HandleUpdate(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.repoManager.QA.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Entry not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get entry", err)
		return
	}

	var req models.QACreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	entry.Question = req.Question
	entry.Answer = req.Answer
	entry.CropType = req.CropType
	entry.Category = req.Category
	if req.Language != "" {
		entry.Language = req.Language
	}

	if err := h.knowledgeService.UpdateEntry(c.Request.Context(), entry); err != nil {
		h.logger.WithError(err).Error("Failed to update knowledge entry")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update entry", err)
		return
	}

	go h.invalidateSearchCache()

	utils.SuccessResponse(c, http.StatusOK, "Entry updated", entry)
}

// HandleDelete removes an entry from the store and the index.
func (h *KnowledgeHandler) HandleDelete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.knowledgeService.DeleteEntry(c.Request.Context(), id); err != nil {
		h.logger.WithError(err).Error("Failed to delete knowledge entry")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete entry", err)
		return
	}

	go h.invalidateSearchCache()

	utils.SuccessResponse(c, http.StatusOK, "Entry deleted", nil)
}

// HandleVote records an upvote or downvote.
func (h *KnowledgeHandler) HandleVote(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		VoteType string `json:"vote_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if req.VoteType != "upvote" && req.VoteType != "downvote" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Vote type must be 'upvote' or 'downvote'", nil)
		return
	}

	entry, err := h.repoManager.QA.Vote(id, req.VoteType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Entry not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to record vote", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vote recorded", models.VoteResponse{
		Message:   "Vote recorded",
		Upvotes:   entry.Upvotes,
		Downvotes: entry.Downvotes,
	})
}

// HandleCategories lists categories with entry counts.
func (h *KnowledgeHandler) HandleCategories(c *gin.Context) {
	categories, err := h.repoManager.QA.Categories()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list categories", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Categories retrieved", categories)
}

// HandleCropTypes lists crop types with entry counts.
func (h *KnowledgeHandler) HandleCropTypes(c *gin.Context) {
	cropTypes, err := h.repoManager.QA.CropTypes()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list crop types", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Crop types retrieved", cropTypes)
}
