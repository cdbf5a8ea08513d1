package handlers

import (
	"net/http"
	"time"

	"github.com/digitalkrishi/backend/internal/health"
	"github.com/digitalkrishi/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type HealthHandler struct {
	checker *health.HealthChecker
	logger  *logrus.Logger
}

func NewHealthHandler(checker *health.HealthChecker, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger,
	}
}

// HandleHealth is a cheap liveness probe.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "digitalkrishi-backend",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleDetailedHealth reports per-dependency status. The cached snapshot
// from the periodic checker is preferred; a cache miss probes live.
func (h *HealthHandler) HandleDetailedHealth(c *gin.Context) {
	overall, err := h.checker.CheckCached(c.Request.Context())
	if err != nil {
		h.logger.Debug("No cached health snapshot, probing live")
		live := h.checker.CheckAll(c.Request.Context())
		overall = &live
	}

	status := http.StatusOK
	if overall.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	utils.SuccessResponse(c, status, "Health check completed", overall)
}
