package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalkrishi/backend/internal/ai"
	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/n8n"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Generator produces advisory answers. Satisfied by *ai.Service.
type Generator interface {
	GenerateAnswer(ctx context.Context, question, userContext, language string) (*ai.Answer, error)
	FallbackAnswer(language string) *ai.Answer
}

// Enhancer runs a chat message through the workflow engine's enrichment
// pipeline. Satisfied by *n8n.Client.
type Enhancer interface {
	EnhanceChat(ctx context.Context, req n8n.ChatEnhancementRequest) (*n8n.ChatEnhancementResponse, error)
}

// enhancedTrustScore is assumed when the workflow engine omits one.
const enhancedTrustScore = 0.8

// ChatService handles one-on-one advisory conversations.
type ChatService struct {
	generator         Generator
	enhancer          Enhancer
	enhancementActive bool
	repoManager       *repository.RepositoryManager
	logger            *logrus.Logger
}

func NewChatService(
	generator Generator,
	enhancer Enhancer,
	enhancementActive bool,
	repoManager *repository.RepositoryManager,
	logger *logrus.Logger,
) *ChatService {
	return &ChatService{
		generator:         generator,
		enhancer:          enhancer,
		enhancementActive: enhancementActive,
		repoManager:       repoManager,
		logger:            logger,
	}
}

// SendMessage answers a farmer's message and persists the exchange. The
// workflow engine's enrichment pipeline is tried first when enabled, then
// direct generation. AI failure degrades to a localized fallback, so the
// farmer always gets a reply and the exchange is still recorded.
func (s *ChatService) SendMessage(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.ChatMessage, error) {
	userContext, language := s.buildUserContext(userID)

	answer := s.enhancedAnswer(ctx, userID, req, language)
	if answer == nil {
		var err error
		answer, err = s.generator.GenerateAnswer(ctx, req.Message, userContext, language)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("AI generation failed, using fallback answer")
			answer = s.generator.FallbackAnswer(language)
		}
	}

	message := &models.ChatMessage{
		UserID:      userID,
		Message:     req.Message,
		MessageType: req.MessageType,
		Response:    answer.Text,
		TrustScore:  answer.TrustScore,
	}

	if err := s.repoManager.ChatMessage.Create(message); err != nil {
		return nil, fmt.Errorf("failed to save chat message: %w", err)
	}

	return message, nil
}

// enhancedAnswer asks the workflow engine to answer the message. Returns nil
// when enhancement is disabled, fails, or yields nothing, and the caller falls
// back to direct generation.
func (s *ChatService) enhancedAnswer(ctx context.Context, userID uuid.UUID, req models.ChatRequest, language string) *ai.Answer {
	if !s.enhancementActive || s.enhancer == nil {
		return nil
	}

	resp, err := s.enhancer.EnhanceChat(ctx, n8n.ChatEnhancementRequest{
		UserID:            userID.String(),
		Message:           req.Message,
		MessageType:       req.MessageType,
		PreferredLanguage: language,
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Chat enhancement failed, generating directly")
		return nil
	}
	if resp.Enhanced == "" {
		return nil
	}

	trust := resp.TrustScore
	if trust == 0 {
		trust = enhancedTrustScore
	}
	return &ai.Answer{Text: resp.Enhanced, TrustScore: trust}
}

// buildUserContext assembles prompt context from the farmer's profile. A
// missing profile is normal for new users.
func (s *ChatService) buildUserContext(userID uuid.UUID) (string, string) {
	language := "malayalam"

	profile, err := s.repoManager.User.GetProfile(userID)
	if err != nil {
		s.logger.WithField("user_id", userID).Debug("No profile found for chat context")
		return "", language
	}

	if profile.PreferredLanguage != "" {
		language = profile.PreferredLanguage
	}

	var parts []string
	if len(profile.CropsGrown) > 0 {
		parts = append(parts, fmt.Sprintf("Crops grown: %s", strings.Join(profile.CropsGrown, ", ")))
	}
	if profile.FarmSize > 0 {
		parts = append(parts, fmt.Sprintf("Farm size: %.1f acres", profile.FarmSize))
	}
	if profile.FarmingExperience > 0 {
		parts = append(parts, fmt.Sprintf("Farming experience: %d years", profile.FarmingExperience))
	}

	return strings.Join(parts, ". "), language
}

// History returns the user's chat messages, newest first.
func (s *ChatService) History(userID uuid.UUID, offset, limit int) ([]models.ChatMessage, error) {
	return s.repoManager.ChatMessage.History(userID, offset, limit)
}

// GetMessage returns one of the user's messages.
func (s *ChatService) GetMessage(id, userID uuid.UUID) (*models.ChatMessage, error) {
	return s.repoManager.ChatMessage.GetByID(id, userID)
}

// DeleteMessage removes one of the user's messages.
func (s *ChatService) DeleteMessage(id, userID uuid.UUID) error {
	return s.repoManager.ChatMessage.Delete(id, userID)
}

// ClearHistory removes all of the user's messages.
func (s *ChatService) ClearHistory(userID uuid.UUID) error {
	return s.repoManager.ChatMessage.ClearHistory(userID)
}
