package health

import (
	"context"
	"time"

	"github.com/digitalkrishi/backend/internal/database"
	"github.com/digitalkrishi/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Prober is a collaborator that can report its own reachability. Satisfied by
// *vector.Client and *n8n.Client.
type Prober interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker manages health checks for all services
type HealthChecker struct {
	dbManager   *database.Manager
	cache       *database.Cache
	healthRepo  models.SystemHealthRepository
	vectorProbe Prober
	n8nProbe    Prober
	logger      *logrus.Logger
}

func NewHealthChecker(
	dbManager *database.Manager,
	healthRepo models.SystemHealthRepository,
	vectorProbe Prober,
	n8nProbe Prober,
	logger *logrus.Logger,
) *HealthChecker {
	return &HealthChecker{
		dbManager:   dbManager,
		cache:       database.NewCache(dbManager.Redis, logger),
		healthRepo:  healthRepo,
		vectorProbe: vectorProbe,
		n8nProbe:    n8nProbe,
		logger:      logger,
	}
}

// ServiceHealth represents the health status of a single service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

// checkService times one probe and records the outcome.
func (h *HealthChecker) checkService(name string, probe func() error) ServiceHealth {
	start := time.Now()
	err := probe()
	responseTime := int(time.Since(start).Milliseconds())

	status := "healthy"
	errorMsg := ""
	if err != nil {
		status = "unhealthy"
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", name).Error("Health check failed")
	}

	if err := h.healthRepo.UpdateServiceHealth(name, status, responseTime, errorMsg); err != nil {
		h.logger.WithError(err).WithField("service", name).Warn("Failed to record health status")
	}

	return ServiceHealth{
		Name:         name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

func (h *HealthChecker) CheckPostgreSQL() ServiceHealth {
	return h.checkService("postgresql", h.dbManager.PingDatabase)
}

func (h *HealthChecker) CheckRedis() ServiceHealth {
	return h.checkService("redis", h.dbManager.PingRedis)
}

func (h *HealthChecker) CheckVectorStore(ctx context.Context) ServiceHealth {
	return h.checkService("qdrant", func() error {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return h.vectorProbe.HealthCheck(probeCtx)
	})
}

func (h *HealthChecker) CheckWorkflowEngine(ctx context.Context) ServiceHealth {
	return h.checkService("n8n", func() error {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return h.n8nProbe.HealthCheck(probeCtx)
	})
}

// CheckAll performs health checks on all services
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := []ServiceHealth{
		h.CheckPostgreSQL(),
		h.CheckRedis(),
		h.CheckVectorStore(ctx),
		h.CheckWorkflowEngine(ctx),
	}

	overallStatus := "healthy"
	for _, service := range services {
		if service.Status == "unhealthy" {
			overallStatus = "unhealthy"
			break
		}
		if service.Status == "degraded" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	return OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   h.getUptime(),
	}
}

// CheckCached returns the cached health snapshot if one exists.
func (h *HealthChecker) CheckCached(ctx context.Context) (*OverallHealth, error) {
	cachedHealth, err := h.cache.GetCachedSystemHealth(ctx)
	if err != nil {
		return nil, err
	}

	services := make([]ServiceHealth, len(cachedHealth))
	overallStatus := "healthy"

	for i, health := range cachedHealth {
		services[i] = ServiceHealth{
			Name:         health.ServiceName,
			Status:       health.Status,
			ResponseTime: health.ResponseTimeMs,
			Error:        health.ErrorMessage,
			LastChecked:  health.CheckedAt.Format(time.RFC3339),
		}

		if health.Status == "unhealthy" {
			overallStatus = "unhealthy"
		} else if health.Status == "degraded" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	return &OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   h.getUptime(),
	}, nil
}

var startTime = time.Now()

func (h *HealthChecker) getUptime() string {
	return time.Since(startTime).String()
}

// PeriodicHealthCheck runs health checks on an interval and caches the
// snapshot so handlers can answer without probing every dependency.
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := h.CheckAll(ctx)

			cacheCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			healthModels := make([]models.SystemHealth, len(health.Services))
			for i, service := range health.Services {
				checkedAt, _ := time.Parse(time.RFC3339, service.LastChecked)
				healthModels[i] = models.SystemHealth{
					ServiceName:    service.Name,
					Status:         service.Status,
					ResponseTimeMs: service.ResponseTime,
					ErrorMessage:   service.Error,
					CheckedAt:      checkedAt,
				}
			}

			if err := h.cache.CacheSystemHealth(cacheCtx, healthModels, 2*interval); err != nil {
				h.logger.WithError(err).Error("Failed to cache health status")
			}
			cancel()

			h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
		}
	}
}
