package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/n8n"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrInvalidAnalysisRequest marks caller mistakes a 4xx should report, as
// opposed to workflow engine failures.
var ErrInvalidAnalysisRequest = fmt.Errorf("invalid analysis request")

// AnalysisTrigger starts image analysis workflows. Satisfied by *n8n.Client.
type AnalysisTrigger interface {
	TriggerImageAnalysis(ctx context.Context, req n8n.ImageAnalysisRequest) (*n8n.AnalysisResponse, error)
	TriggerBatchAnalysis(ctx context.Context, userID uuid.UUID, analysisType string, images []n8n.BatchImage) (*n8n.AnalysisResponse, error)
}

// Notifier delivers user notifications. Satisfied by *n8n.Client.
type Notifier interface {
	SendNotification(ctx context.Context, req n8n.NotificationRequest) (*n8n.NotificationResponse, error)
}

// AnalysisService dispatches image analysis to the workflow engine and stores
// the results its callbacks deliver.
type AnalysisService struct {
	repoManager *repository.RepositoryManager
	trigger     AnalysisTrigger
	notifier    Notifier
	logger      *logrus.Logger
}

func NewAnalysisService(
	repoManager *repository.RepositoryManager,
	trigger AnalysisTrigger,
	notifier Notifier,
	logger *logrus.Logger,
) *AnalysisService {
	return &AnalysisService{
		repoManager: repoManager,
		trigger:     trigger,
		notifier:    notifier,
		logger:      logger,
	}
}

// Trigger starts the analysis workflow for one image. The user's stored
// coordinates ride along so the workflow can apply local context.
func (s *AnalysisService) Trigger(ctx context.Context, userID uuid.UUID, req models.AnalysisTriggerRequest) (*n8n.AnalysisResponse, error) {
	if !n8n.ValidAnalysisType(req.AnalysisType) {
		return nil, fmt.Errorf("%w: unknown analysis type %q", ErrInvalidAnalysisRequest, req.AnalysisType)
	}

	workflowReq := n8n.ImageAnalysisRequest{
		UserID:       userID.String(),
		ImagePath:    req.ImagePath,
		AnalysisType: req.AnalysisType,
		Filename:     req.Filename,
	}

	if user, err := s.repoManager.User.GetByID(userID); err == nil {
		workflowReq.UserLatitude = user.Latitude
		workflowReq.UserLongitude = user.Longitude
	} else {
		s.logger.WithField("user_id", userID).Debug("No user record for analysis context")
	}

	return s.trigger.TriggerImageAnalysis(ctx, workflowReq)
}

// TriggerBatch starts the batch analysis workflow.
func (s *AnalysisService) TriggerBatch(ctx context.Context, userID uuid.UUID, req models.BatchAnalysisTriggerRequest) (*n8n.AnalysisResponse, error) {
	if !n8n.ValidAnalysisType(req.AnalysisType) {
		return nil, fmt.Errorf("%w: unknown analysis type %q", ErrInvalidAnalysisRequest, req.AnalysisType)
	}
	if len(req.Images) == 0 {
		return nil, fmt.Errorf("%w: batch requires at least one image", ErrInvalidAnalysisRequest)
	}
	if len(req.Images) > n8n.MaxBatchImages {
		return nil, fmt.Errorf("%w: batch limited to %d images, got %d", ErrInvalidAnalysisRequest, n8n.MaxBatchImages, len(req.Images))
	}

	images := make([]n8n.BatchImage, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, n8n.BatchImage{ImagePath: img.ImagePath, Filename: img.Filename})
	}

	return s.trigger.TriggerBatchAnalysis(ctx, userID, req.AnalysisType, images)
}

// SaveResult persists a completed analysis delivered by the workflow engine
// and notifies the farmer. Notification failure is logged, never surfaced.
func (s *AnalysisService) SaveResult(ctx context.Context, payload models.AnalysisResultPayload) (*models.ImageAnalysis, error) {
	analysis, err := s.saveOne(payload)
	if err != nil {
		return nil, err
	}

	s.notifyComplete(ctx, payload)
	return analysis, nil
}

// SaveBatchResults persists the individual results of a completed batch.
// Malformed entries are skipped with a warning so one bad row does not lose
// the rest of the batch.
func (s *AnalysisService) SaveBatchResults(ctx context.Context, payload models.BatchResultPayload) ([]uuid.UUID, error) {
	if len(payload.IndividualResults) == 0 {
		return nil, fmt.Errorf("batch result carries no individual results")
	}

	saved := make([]uuid.UUID, 0, len(payload.IndividualResults))
	for i, result := range payload.IndividualResults {
		analysis, err := s.saveOne(result)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"batch_id": payload.BatchID,
				"index":    i,
			}).Warn("Skipping malformed batch analysis result")
			continue
		}
		saved = append(saved, analysis.ID)
	}

	if len(saved) == 0 {
		return nil, fmt.Errorf("no valid results in batch %s", payload.BatchID)
	}

	if len(payload.IndividualResults) > 0 {
		s.notifyComplete(ctx, payload.IndividualResults[0])
	}
	return saved, nil
}

func (s *AnalysisService) saveOne(payload models.AnalysisResultPayload) (*models.ImageAnalysis, error) {
	if !n8n.ValidAnalysisType(payload.AnalysisType) {
		return nil, fmt.Errorf("invalid analysis type: %s", payload.AnalysisType)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", payload.UserID, err)
	}

	analysis := &models.ImageAnalysis{
		UserID:          userID,
		ImagePath:       payload.ImagePath,
		AnalysisType:    payload.AnalysisType,
		Results:         string(payload.Results),
		ConfidenceScore: payload.ConfidenceScore,
		Recommendations: strings.Join(payload.Recommendations, "\n"),
	}

	if err := s.repoManager.ImageAnalysis.Create(analysis); err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}
	return analysis, nil
}

func (s *AnalysisService) notifyComplete(ctx context.Context, payload models.AnalysisResultPayload) {
	if s.notifier == nil {
		return
	}

	_, err := s.notifier.SendNotification(ctx, n8n.NotificationRequest{
		UserID:           payload.UserID,
		NotificationType: "crop_analysis_complete",
		Message:          fmt.Sprintf("Your %s analysis is ready", payload.AnalysisType),
		Priority:         "medium",
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", payload.UserID).Warn("Failed to send analysis notification")
	}
}

// History returns the user's analyses, newest first, optionally scoped to one
// analysis type.
func (s *AnalysisService) History(userID uuid.UUID, analysisType string, offset, limit int) ([]models.ImageAnalysis, error) {
	if analysisType != "" && !n8n.ValidAnalysisType(analysisType) {
		return nil, fmt.Errorf("%w: unknown analysis type %q", ErrInvalidAnalysisRequest, analysisType)
	}
	return s.repoManager.ImageAnalysis.History(userID, analysisType, offset, limit)
}

// Get returns one of the user's analyses.
func (s *AnalysisService) Get(id, userID uuid.UUID) (*models.ImageAnalysis, error) {
	return s.repoManager.ImageAnalysis.GetByID(id, userID)
}

// Delete removes one of the user's analyses.
func (s *AnalysisService) Delete(id, userID uuid.UUID) error {
	return s.repoManager.ImageAnalysis.Delete(id, userID)
}
