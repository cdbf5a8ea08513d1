package services

import (
	"context"
	"fmt"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/n8n"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrMessageRejected is returned when moderation rejects a message.
var ErrMessageRejected = fmt.Errorf("message rejected by content moderation")

// Moderator screens user content. Satisfied by *n8n.Client.
type Moderator interface {
	ModerateContent(ctx context.Context, userID uuid.UUID, content, contentType, groupID string) (*n8n.ModerationResult, error)
}

// CommunityService manages discussion groups and their messages.
type CommunityService struct {
	repoManager      *repository.RepositoryManager
	moderator        Moderator
	moderationActive bool
	logger           *logrus.Logger
}

func NewCommunityService(
	repoManager *repository.RepositoryManager,
	moderator Moderator,
	moderationActive bool,
	logger *logrus.Logger,
) *CommunityService {
	return &CommunityService{
		repoManager:      repoManager,
		moderator:        moderator,
		moderationActive: moderationActive,
		logger:           logger,
	}
}

// CreateGroup creates a new discussion group.
func (s *CommunityService) CreateGroup(req models.GroupCreateRequest) (*models.GroupChat, error) {
	group := &models.GroupChat{
		Name:        req.Name,
		Description: req.Description,
		CropType:    req.CropType,
		Location:    req.Location,
		IsActive:    true,
	}

	if err := s.repoManager.GroupChat.Create(group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return group, nil
}

// GetGroup returns a group by id. Deactivated groups are not served.
func (s *CommunityService) GetGroup(id uuid.UUID) (*models.GroupChat, error) {
	group, err := s.repoManager.GroupChat.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !group.IsActive {
		return nil, fmt.Errorf("group %s is no longer active", id)
	}
	return group, nil
}

// ListGroups lists active groups, optionally scoped by crop type or location.
func (s *CommunityService) ListGroups(cropType, location string, offset, limit int) ([]models.GroupChat, error) {
	return s.repoManager.GroupChat.List(cropType, location, true, offset, limit)
}

// UpdateGroup applies the non-nil fields of req to an active group.
func (s *CommunityService) UpdateGroup(id uuid.UUID, req models.GroupUpdateRequest) (*models.GroupChat, error) {
	group, err := s.GetGroup(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}
	if req.CropType != nil {
		group.CropType = *req.CropType
	}
	if req.Location != nil {
		group.Location = *req.Location
	}

	if err := s.repoManager.GroupChat.Update(group); err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	return group, nil
}

// DeleteGroup soft-deletes a group. Its messages remain in the database.
func (s *CommunityService) DeleteGroup(id uuid.UUID) error {
	return s.repoManager.GroupChat.Deactivate(id)
}

// PostMessage moderates and posts a message to a group. Moderation is
// fail-open: if the moderation workflow is down, the message is allowed and
// the failure logged.
func (s *CommunityService) PostMessage(ctx context.Context, groupID, userID uuid.UUID, req models.GroupMessageRequest) (*models.GroupMessage, error) {
	group, err := s.GetGroup(groupID)
	if err != nil {
		return nil, err
	}

	if s.moderationActive {
		result, err := s.moderator.ModerateContent(ctx, userID, req.Message, "group_message", groupID.String())
		switch {
		case err != nil:
			s.logger.WithError(err).Warn("Content moderation unavailable, allowing message")
		case !result.Allowed():
			s.logger.WithFields(logrus.Fields{
				"user_id":  userID,
				"group_id": groupID,
				"reason":   result.Reason,
			}).Info("Message rejected by moderation")
			return nil, ErrMessageRejected
		case result.Action == "review":
			s.logger.WithFields(logrus.Fields{
				"user_id":  userID,
				"group_id": groupID,
				"reason":   result.Reason,
			}).Warn("Message flagged for review")
		}
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = "text"
	}

	message := &models.GroupMessage{
		GroupID:     group.ID,
		UserID:      userID,
		Message:     req.Message,
		MessageType: messageType,
	}

	if err := s.repoManager.GroupMessage.Create(message); err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	return message, nil
}

// ListMessages returns a group's messages, newest first.
func (s *CommunityService) ListMessages(groupID uuid.UUID, offset, limit int) ([]models.GroupMessage, error) {
	if _, err := s.GetGroup(groupID); err != nil {
		return nil, err
	}
	return s.repoManager.GroupMessage.ListByGroup(groupID, offset, limit)
}
