package services

import (
	"context"
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

type stubModerator struct {
	result *n8n.ModerationResult
	err    error
	calls  int
}

func (s *stubModerator) ModerateContent(_ context.Context, _ uuid.UUID, _, _, _ string) (*n8n.ModerationResult, error) {
	s.calls++
	return s.result, s.err
}

type stubGroupRepo struct {
	groups map[uuid.UUID]models.GroupChat
}

func (r *stubGroupRepo) Create(group *models.GroupChat) error {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	r.groups[group.ID] = *group
	return nil
}

func (r *stubGroupRepo) GetByID(id uuid.UUID) (*models.GroupChat, error) {
	group, ok := r.groups[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &group, nil
}

func (r *stubGroupRepo) List(string, string, bool, int, int) ([]models.GroupChat, error) {
	return nil, nil
}

func (r *stubGroupRepo) Update(group *models.GroupChat) error {
	r.groups[group.ID] = *group
	return nil
}

func (r *stubGroupRepo) Deactivate(id uuid.UUID) error {
	group, ok := r.groups[id]
	if !ok || !group.IsActive {
		return gorm.ErrRecordNotFound
	}
	group.IsActive = false
	r.groups[id] = group
	return nil
}

type stubGroupMessageRepo struct {
	created []*models.GroupMessage
}

func (r *stubGroupMessageRepo) Create(message *models.GroupMessage) error {
	r.created = append(r.created, message)
	return nil
}

func (r *stubGroupMessageRepo) ListByGroup(uuid.UUID, int, int) ([]models.GroupMessage, error) {
	return nil, nil
}

func newCommunityFixture(moderator Moderator, moderationActive bool) (*CommunityService, *stubGroupRepo, *stubGroupMessageRepo) {
	groups := &stubGroupRepo{groups: make(map[uuid.UUID]models.GroupChat)}
	messages := &stubGroupMessageRepo{}
	repoManager := &repository.RepositoryManager{
		GroupChat:    groups,
		GroupMessage: messages,
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewCommunityService(repoManager, moderator, moderationActive, logger), groups, messages
}

func activeGroup(groups *stubGroupRepo) uuid.UUID {
	group := &models.GroupChat{Name: "Paddy farmers", IsActive: true}
	groups.Create(group)
	return group.ID
}

func TestPostMessageAllowed(t *testing.T) {
	moderator := &stubModerator{result: &n8n.ModerationResult{Action: "allow"}}
	svc, groups, messages := newCommunityFixture(moderator, true)
	groupID := activeGroup(groups)

	message, err := svc.PostMessage(context.Background(), groupID, uuid.New(), models.GroupMessageRequest{
		Message: "Any tips for transplanting season?",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, moderator.calls)
	assert.Equal(t, "text", message.MessageType)
	require.Len(t, messages.created, 1)
}

func TestPostMessageRejected(t *testing.T) {
	moderator := &stubModerator{result: &n8n.ModerationResult{Action: "reject", Reason: "spam"}}
	svc, groups, messages := newCommunityFixture(moderator, true)
	groupID := activeGroup(groups)

	_, err := svc.PostMessage(context.Background(), groupID, uuid.New(), models.GroupMessageRequest{
		Message: "miracle growth formula, click here",
	})

	assert.ErrorIs(t, err, ErrMessageRejected)
	assert.Empty(t, messages.created)
}

func TestPostMessageModerationFailOpen(t *testing.T) {
	moderator := &stubModerator{err: errors.New("workflow engine down")}
	svc, groups, messages := newCommunityFixture(moderator, true)
	groupID := activeGroup(groups)

	_, err := svc.PostMessage(context.Background(), groupID, uuid.New(), models.GroupMessageRequest{
		Message: "How much urea per acre for paddy?",
	})

	require.NoError(t, err)
	require.Len(t, messages.created, 1)
}

func TestPostMessageModerationDisabled(t *testing.T) {
	moderator := &stubModerator{result: &n8n.ModerationResult{Action: "reject"}}
	svc, groups, messages := newCommunityFixture(moderator, false)
	groupID := activeGroup(groups)

	_, err := svc.PostMessage(context.Background(), groupID, uuid.New(), models.GroupMessageRequest{
		Message: "hello",
	})

	require.NoError(t, err)
	assert.Zero(t, moderator.calls)
	require.Len(t, messages.created, 1)
}

func TestPostMessageToInactiveGroup(t *testing.T) {
	moderator := &stubModerator{result: &n8n.ModerationResult{Action: "allow"}}
	svc, groups, _ := newCommunityFixture(moderator, true)
	groupID := activeGroup(groups)
	require.NoError(t, svc.DeleteGroup(groupID))

	_, err := svc.PostMessage(context.Background(), groupID, uuid.New(), models.GroupMessageRequest{
		Message: "anyone here?",
	})

	assert.Error(t, err)
}

func TestUpdateGroupPartial(t *testing.T) {
	moderator := &stubModerator{}
	svc, groups, _ := newCommunityFixture(moderator, false)
	groupID := activeGroup(groups)

	desc := "Transplanting and pest control"
	updated, err := svc.UpdateGroup(groupID, models.GroupUpdateRequest{Description: &desc})

	require.NoError(t, err)
	assert.Equal(t, "Paddy farmers", updated.Name)
	assert.Equal(t, desc, updated.Description)
}

func TestDeleteGroupIsSoft(t *testing.T) {
	moderator := &stubModerator{}
	svc, groups, _ := newCommunityFixture(moderator, false)
	groupID := activeGroup(groups)

	require.NoError(t, svc.DeleteGroup(groupID))

	// Row still exists, just deactivated.
	stored, err := groups.GetByID(groupID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	_, err = svc.GetGroup(groupID)
	assert.Error(t, err)
}
