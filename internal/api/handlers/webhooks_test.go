package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/digitalkrishi/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingAnalysisRepo struct {
	created []*models.ImageAnalysis
}

func (r *recordingAnalysisRepo) Create(analysis *models.ImageAnalysis) error {
	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	r.created = append(r.created, analysis)
	return nil
}

func (r *recordingAnalysisRepo) GetByID(uuid.UUID, uuid.UUID) (*models.ImageAnalysis, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *recordingAnalysisRepo) History(uuid.UUID, string, int, int) ([]models.ImageAnalysis, error) {
	return nil, nil
}

func (r *recordingAnalysisRepo) Delete(uuid.UUID, uuid.UUID) error {
	return gorm.ErrRecordNotFound
}

func newWebhookRouter(t *testing.T) (*gin.Engine, *recordingAnalysisRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	repo := &recordingAnalysisRepo{}
	svc := services.NewAnalysisService(&repository.RepositoryManager{ImageAnalysis: repo}, nil, nil, logger)
	h := NewWebhookHandler(svc, logger)

	router := gin.New()
	router.POST("/webhooks/image-analysis", h.HandleAnalysisResult)
	router.POST("/webhooks/batch-complete", h.HandleBatchComplete)
	return router, repo
}

func postWebhook(router *gin.Engine, path, source string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if source != "" {
		req.Header.Set("X-Workflow-Source", source)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func analysisCallback() models.AnalysisResultPayload {
	return models.AnalysisResultPayload{
		UserID:          uuid.NewString(),
		ImagePath:       "/uploads/leaf.jpg",
		AnalysisType:    "disease",
		Results:         json.RawMessage(`{"disease":"leaf spot"}`),
		ConfidenceScore: 0.9,
	}
}

func TestAnalysisWebhookRejectsUnknownSource(t *testing.T) {
	router, repo := newWebhookRouter(t)

	w := postWebhook(router, "/webhooks/image-analysis", "somewhere-else", analysisCallback())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, repo.created)
}

func TestAnalysisWebhookRequiresSourceHeader(t *testing.T) {
	router, repo := newWebhookRouter(t)

	w := postWebhook(router, "/webhooks/image-analysis", "", analysisCallback())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, repo.created)
}

func TestAnalysisWebhookPersistsResult(t *testing.T) {
	router, repo := newWebhookRouter(t)

	w := postWebhook(router, "/webhooks/image-analysis", "n8n-image-analysis", analysisCallback())

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "disease", repo.created[0].AnalysisType)
}

func TestAnalysisWebhookRejectsIncompletePayload(t *testing.T) {
	router, repo := newWebhookRouter(t)

	w := postWebhook(router, "/webhooks/image-analysis", "n8n-image-analysis", gin.H{
		"user_id": uuid.NewString(),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.created)
}

func TestBatchWebhookPersistsAllResults(t *testing.T) {
	router, repo := newWebhookRouter(t)

	w := postWebhook(router, "/webhooks/batch-complete", "n8n-batch-analysis", models.BatchResultPayload{
		BatchID:           "batch_test",
		IndividualResults: []models.AnalysisResultPayload{analysisCallback(), analysisCallback()},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, repo.created, 2)
}

func TestBatchWebhookChecksSource(t *testing.T) {
	router, repo := newWebhookRouter(t)

	w := postWebhook(router, "/webhooks/batch-complete", "n8n-image-analysis", models.BatchResultPayload{
		IndividualResults: []models.AnalysisResultPayload{analysisCallback()},
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, repo.created)
}
