package handlers

import (
	"errors"
	"net/http"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/services"
	"github.com/digitalkrishi/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AnalysisHandler struct {
	analysisService *services.AnalysisService
	logger          *logrus.Logger
}

func NewAnalysisHandler(analysisService *services.AnalysisService, logger *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		logger:          logger,
	}
}

// HandleTrigger dispatches a single image to the analysis workflow.
func (h *AnalysisHandler) HandleTrigger(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.AnalysisTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	resp, err := h.analysisService.Trigger(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAnalysisRequest) {
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.logger.WithError(err).Error("Failed to trigger image analysis")
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Analysis workflow unavailable", err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Analysis started", resp)
}

// HandleTriggerBatch dispatches a batch of images to the analysis workflow.
func (h *AnalysisHandler) HandleTriggerBatch(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.BatchAnalysisTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	resp, err := h.analysisService.TriggerBatch(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAnalysisRequest) {
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.logger.WithError(err).Error("Failed to trigger batch analysis")
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Analysis workflow unavailable", err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Batch analysis started", resp)
}

// HandleHistory returns the caller's analysis history, newest first.
func (h *AnalysisHandler) HandleHistory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	offset := parseIntQuery(c, "offset", 0, 0, 10000)
	limit := parseIntQuery(c, "limit", 20, 1, 100)

	analyses, err := h.analysisService.History(userID, c.Query("analysis_type"), offset, limit)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAnalysisRequest) {
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get analysis history", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "History retrieved", analyses)
}

// HandleGet returns one of the caller's analyses.
func (h *AnalysisHandler) HandleGet(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	analysis, err := h.analysisService.Get(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Analysis not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get analysis", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Analysis retrieved", analysis)
}

// HandleDelete removes one of the caller's analyses.
func (h *AnalysisHandler) HandleDelete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.analysisService.Delete(id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Analysis not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete analysis", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Analysis deleted", nil)
}
