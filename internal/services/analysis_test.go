package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/n8n"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type stubAnalysisTrigger struct {
	lastImage n8n.ImageAnalysisRequest
	lastBatch []n8n.BatchImage
	err       error
	calls     int
}

func (s *stubAnalysisTrigger) TriggerImageAnalysis(_ context.Context, req n8n.ImageAnalysisRequest) (*n8n.AnalysisResponse, error) {
	s.calls++
	s.lastImage = req
	if s.err != nil {
		return nil, s.err
	}
	return &n8n.AnalysisResponse{Status: "started"}, nil
}

func (s *stubAnalysisTrigger) TriggerBatchAnalysis(_ context.Context, _ uuid.UUID, _ string, images []n8n.BatchImage) (*n8n.AnalysisResponse, error) {
	s.calls++
	s.lastBatch = images
	if s.err != nil {
		return nil, s.err
	}
	return &n8n.AnalysisResponse{Status: "started"}, nil
}

type stubNotifier struct {
	sent []n8n.NotificationRequest
	err  error
}

func (s *stubNotifier) SendNotification(_ context.Context, req n8n.NotificationRequest) (*n8n.NotificationResponse, error) {
	s.sent = append(s.sent, req)
	if s.err != nil {
		return nil, s.err
	}
	return &n8n.NotificationResponse{Status: "queued"}, nil
}

type stubImageAnalysisRepo struct {
	created []*models.ImageAnalysis
	err     error
}

func (r *stubImageAnalysisRepo) Create(analysis *models.ImageAnalysis) error {
	if r.err != nil {
		return r.err
	}
	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	r.created = append(r.created, analysis)
	return nil
}

func (r *stubImageAnalysisRepo) GetByID(id, userID uuid.UUID) (*models.ImageAnalysis, error) {
	for _, a := range r.created {
		if a.ID == id && a.UserID == userID {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubImageAnalysisRepo) History(userID uuid.UUID, analysisType string, _, _ int) ([]models.ImageAnalysis, error) {
	var out []models.ImageAnalysis
	for _, a := range r.created {
		if a.UserID == userID && (analysisType == "" || a.AnalysisType == analysisType) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *stubImageAnalysisRepo) Delete(id, userID uuid.UUID) error {
	for i, a := range r.created {
		if a.ID == id && a.UserID == userID {
			r.created = append(r.created[:i], r.created[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type stubUserRepo struct {
	user    *models.User
	profile *models.UserProfile
}

func (r *stubUserRepo) GetByID(id uuid.UUID) (*models.User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return r.user, nil
}

func (r *stubUserRepo) GetProfile(userID uuid.UUID) (*models.UserProfile, error) {
	if r.profile == nil || r.profile.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.profile, nil
}

func newAnalysisFixture(trigger *stubAnalysisTrigger, notifier *stubNotifier, users *stubUserRepo) (*AnalysisService, *stubImageAnalysisRepo) {
	analyses := &stubImageAnalysisRepo{}
	repoManager := &repository.RepositoryManager{
		ImageAnalysis: analyses,
		User:          users,
	}
	return NewAnalysisService(repoManager, trigger, notifier, newTestLogger()), analyses
}

func resultPayload(userID uuid.UUID) models.AnalysisResultPayload {
	return models.AnalysisResultPayload{
		UserID:          userID.String(),
		ImagePath:       "/uploads/leaf.jpg",
		AnalysisType:    "disease",
		Results:         json.RawMessage(`{"disease":"leaf spot"}`),
		ConfidenceScore: 0.91,
		Recommendations: []string{"Remove affected leaves", "Spray Bordeaux mixture"},
	}
}

func TestTriggerAnalysisIncludesUserCoordinates(t *testing.T) {
	lat, lon := 9.9312, 76.2673
	userID := uuid.New()
	users := &stubUserRepo{user: &models.User{
		BaseModel: models.BaseModel{ID: userID},
		Latitude:  &lat,
		Longitude: &lon,
	}}
	trigger := &stubAnalysisTrigger{}
	svc, _ := newAnalysisFixture(trigger, &stubNotifier{}, users)

	_, err := svc.Trigger(context.Background(), userID, models.AnalysisTriggerRequest{
		ImagePath:    "/uploads/leaf.jpg",
		Filename:     "leaf.jpg",
		AnalysisType: "disease",
	})

	require.NoError(t, err)
	require.NotNil(t, trigger.lastImage.UserLatitude)
	assert.Equal(t, lat, *trigger.lastImage.UserLatitude)
	assert.Equal(t, userID.String(), trigger.lastImage.UserID)
}

func TestTriggerAnalysisRejectsUnknownType(t *testing.T) {
	trigger := &stubAnalysisTrigger{}
	svc, _ := newAnalysisFixture(trigger, &stubNotifier{}, &stubUserRepo{})

	_, err := svc.Trigger(context.Background(), uuid.New(), models.AnalysisTriggerRequest{
		ImagePath:    "/uploads/leaf.jpg",
		Filename:     "leaf.jpg",
		AnalysisType: "weather",
	})

	assert.ErrorIs(t, err, ErrInvalidAnalysisRequest)
	assert.Zero(t, trigger.calls)
}

func TestTriggerBatchRejectsOversizedBatch(t *testing.T) {
	trigger := &stubAnalysisTrigger{}
	svc, _ := newAnalysisFixture(trigger, &stubNotifier{}, &stubUserRepo{})

	images := make([]models.BatchImageInput, n8n.MaxBatchImages+1)
	for i := range images {
		images[i] = models.BatchImageInput{ImagePath: "/uploads/x.jpg"}
	}

	_, err := svc.TriggerBatch(context.Background(), uuid.New(), models.BatchAnalysisTriggerRequest{
		AnalysisType: "crop",
		Images:       images,
	})

	assert.ErrorIs(t, err, ErrInvalidAnalysisRequest)
	assert.Zero(t, trigger.calls)
}

func TestSaveResultPersistsAndNotifies(t *testing.T) {
	notifier := &stubNotifier{}
	svc, analyses := newAnalysisFixture(&stubAnalysisTrigger{}, notifier, &stubUserRepo{})
	userID := uuid.New()

	analysis, err := svc.SaveResult(context.Background(), resultPayload(userID))

	require.NoError(t, err)
	require.Len(t, analyses.created, 1)
	assert.Equal(t, userID, analysis.UserID)
	assert.Equal(t, `{"disease":"leaf spot"}`, analysis.Results)
	assert.Equal(t, "Remove affected leaves\nSpray Bordeaux mixture", analysis.Recommendations)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "crop_analysis_complete", notifier.sent[0].NotificationType)
	assert.Equal(t, userID.String(), notifier.sent[0].UserID)
}

func TestSaveResultNotificationFailureIsNotFatal(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("notification workflow down")}
	svc, analyses := newAnalysisFixture(&stubAnalysisTrigger{}, notifier, &stubUserRepo{})

	_, err := svc.SaveResult(context.Background(), resultPayload(uuid.New()))

	require.NoError(t, err)
	require.Len(t, analyses.created, 1)
}

func TestSaveResultRejectsBadUserID(t *testing.T) {
	svc, analyses := newAnalysisFixture(&stubAnalysisTrigger{}, &stubNotifier{}, &stubUserRepo{})

	payload := resultPayload(uuid.New())
	payload.UserID = "not-a-uuid"

	_, err := svc.SaveResult(context.Background(), payload)

	assert.Error(t, err)
	assert.Empty(t, analyses.created)
}

func TestSaveBatchResultsSkipsMalformedEntries(t *testing.T) {
	svc, analyses := newAnalysisFixture(&stubAnalysisTrigger{}, &stubNotifier{}, &stubUserRepo{})
	userID := uuid.New()

	bad := resultPayload(userID)
	bad.AnalysisType = "weather"

	saved, err := svc.SaveBatchResults(context.Background(), models.BatchResultPayload{
		BatchID:           "batch_test",
		IndividualResults: []models.AnalysisResultPayload{resultPayload(userID), bad, resultPayload(userID)},
	})

	require.NoError(t, err)
	assert.Len(t, saved, 2)
	assert.Len(t, analyses.created, 2)
}

func TestSaveBatchResultsAllMalformed(t *testing.T) {
	svc, _ := newAnalysisFixture(&stubAnalysisTrigger{}, &stubNotifier{}, &stubUserRepo{})

	bad := resultPayload(uuid.New())
	bad.UserID = "nope"

	_, err := svc.SaveBatchResults(context.Background(), models.BatchResultPayload{
		BatchID:           "batch_test",
		IndividualResults: []models.AnalysisResultPayload{bad},
	})

	assert.Error(t, err)
}

func TestHistoryFiltersByType(t *testing.T) {
	svc, _ := newAnalysisFixture(&stubAnalysisTrigger{}, &stubNotifier{}, &stubUserRepo{})
	userID := uuid.New()

	pest := resultPayload(userID)
	pest.AnalysisType = "pest"
	_, err := svc.SaveResult(context.Background(), resultPayload(userID))
	require.NoError(t, err)
	_, err = svc.SaveResult(context.Background(), pest)
	require.NoError(t, err)

	history, err := svc.History(userID, "pest", 0, 20)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "pest", history[0].AnalysisType)

	_, err = svc.History(userID, "weather", 0, 20)
	assert.ErrorIs(t, err, ErrInvalidAnalysisRequest)
}
