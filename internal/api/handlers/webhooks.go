package handlers

import (
	"net/http"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/services"
	"github.com/digitalkrishi/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Workflow callbacks identify themselves with this header. Requests without
// the expected source are rejected before any parsing.
const workflowSourceHeader = "X-Workflow-Source"

const (
	imageAnalysisSource = "n8n-image-analysis"
	batchAnalysisSource = "n8n-batch-analysis"
)

// WebhookHandler receives workflow engine callbacks.
type WebhookHandler struct {
	analysisService *services.AnalysisService
	logger          *logrus.Logger
}

func NewWebhookHandler(analysisService *services.AnalysisService, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		analysisService: analysisService,
		logger:          logger,
	}
}

func (h *WebhookHandler) checkSource(c *gin.Context, expected string) bool {
	source := c.GetHeader(workflowSourceHeader)
	if source != expected {
		h.logger.WithField("source", source).Warn("Webhook with invalid workflow source")
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid workflow source", nil)
		return false
	}
	return true
}

// HandleAnalysisResult stores a completed single-image analysis.
func (h *WebhookHandler) HandleAnalysisResult(c *gin.Context) {
	if !h.checkSource(c, imageAnalysisSource) {
		return
	}

	var payload models.AnalysisResultPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid payload format", err)
		return
	}

	analysis, err := h.analysisService.SaveResult(c.Request.Context(), payload)
	if err != nil {
		h.logger.WithError(err).Error("Failed to save analysis result")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to save analysis", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Analysis saved", gin.H{
		"analysis_id": analysis.ID,
	})
}

// HandleBatchComplete stores the individual results of a completed batch.
func (h *WebhookHandler) HandleBatchComplete(c *gin.Context) {
	if !h.checkSource(c, batchAnalysisSource) {
		return
	}

	var payload models.BatchResultPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid payload format", err)
		return
	}

	saved, err := h.analysisService.SaveBatchResults(c.Request.Context(), payload)
	if err != nil {
		h.logger.WithError(err).Error("Failed to save batch results")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to save batch results", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Batch results saved", gin.H{
		"batch_id":        payload.BatchID,
		"processed_count": len(saved),
		"analysis_ids":    saved,
	})
}
