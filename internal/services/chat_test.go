package services

import (
	"context"
	"errors"
	"testing"

	"github.com/digitalkrishi/backend/internal/ai"
	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/n8n"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubChatGenerator struct {
	answer *ai.Answer
	err    error
	calls  int
}

func (s *stubChatGenerator) GenerateAnswer(_ context.Context, _, _, _ string) (*ai.Answer, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

func (s *stubChatGenerator) FallbackAnswer(_ string) *ai.Answer {
	return &ai.Answer{Text: "fallback", TrustScore: 0}
}

type stubEnhancer struct {
	resp  *n8n.ChatEnhancementResponse
	err   error
	calls int
}

func (s *stubEnhancer) EnhanceChat(_ context.Context, _ n8n.ChatEnhancementRequest) (*n8n.ChatEnhancementResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubChatRepo struct {
	created []*models.ChatMessage
}

func (r *stubChatRepo) Create(message *models.ChatMessage) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	r.created = append(r.created, message)
	return nil
}

func (r *stubChatRepo) GetByID(id, userID uuid.UUID) (*models.ChatMessage, error) {
	for _, m := range r.created {
		if m.ID == id && m.UserID == userID {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubChatRepo) History(userID uuid.UUID, _, _ int) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	for _, m := range r.created {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *stubChatRepo) Delete(id, userID uuid.UUID) error {
	for i, m := range r.created {
		if m.ID == id && m.UserID == userID {
			r.created = append(r.created[:i], r.created[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubChatRepo) ClearHistory(userID uuid.UUID) error {
	kept := r.created[:0]
	for _, m := range r.created {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	r.created = kept
	return nil
}

func newChatFixture(generator *stubChatGenerator, enhancer *stubEnhancer, enhancementActive bool) (*ChatService, *stubChatRepo) {
	messages := &stubChatRepo{}
	repoManager := &repository.RepositoryManager{
		ChatMessage: messages,
		User:        &stubUserRepo{},
	}
	return NewChatService(generator, enhancer, enhancementActive, repoManager, newTestLogger()), messages
}

func chatRequest() models.ChatRequest {
	return models.ChatRequest{Message: "How do I treat stem borer in paddy?", MessageType: "text"}
}

func TestSendMessageUsesEnhancedResponse(t *testing.T) {
	generator := &stubChatGenerator{answer: &ai.Answer{Text: "direct", TrustScore: 0.7}}
	enhancer := &stubEnhancer{resp: &n8n.ChatEnhancementResponse{
		Status:     "success",
		Enhanced:   "enriched advisory",
		TrustScore: 0.85,
	}}
	svc, messages := newChatFixture(generator, enhancer, true)

	message, err := svc.SendMessage(context.Background(), uuid.New(), chatRequest())

	require.NoError(t, err)
	assert.Equal(t, "enriched advisory", message.Response)
	assert.Equal(t, 0.85, message.TrustScore)
	assert.Zero(t, generator.calls)
	require.Len(t, messages.created, 1)
}

func TestSendMessageEnhancedDefaultTrustScore(t *testing.T) {
	generator := &stubChatGenerator{answer: &ai.Answer{Text: "direct", TrustScore: 0.7}}
	enhancer := &stubEnhancer{resp: &n8n.ChatEnhancementResponse{Status: "success", Enhanced: "enriched"}}
	svc, _ := newChatFixture(generator, enhancer, true)

	message, err := svc.SendMessage(context.Background(), uuid.New(), chatRequest())

	require.NoError(t, err)
	assert.Equal(t, enhancedTrustScore, message.TrustScore)
}

func TestSendMessageSkipsEnhancerWhenDisabled(t *testing.T) {
	generator := &stubChatGenerator{answer: &ai.Answer{Text: "direct", TrustScore: 0.7}}
	enhancer := &stubEnhancer{resp: &n8n.ChatEnhancementResponse{Enhanced: "enriched"}}
	svc, _ := newChatFixture(generator, enhancer, false)

	message, err := svc.SendMessage(context.Background(), uuid.New(), chatRequest())

	require.NoError(t, err)
	assert.Zero(t, enhancer.calls)
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, "direct", message.Response)
}

func TestSendMessageFallsBackWhenEnhancerFails(t *testing.T) {
	generator := &stubChatGenerator{answer: &ai.Answer{Text: "direct", TrustScore: 0.7}}
	enhancer := &stubEnhancer{err: errors.New("workflow engine down")}
	svc, _ := newChatFixture(generator, enhancer, true)

	message, err := svc.SendMessage(context.Background(), uuid.New(), chatRequest())

	require.NoError(t, err)
	assert.Equal(t, 1, enhancer.calls)
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, "direct", message.Response)
}

func TestSendMessageFallbackWhenEverythingFails(t *testing.T) {
	generator := &stubChatGenerator{err: errors.New("llm unavailable")}
	enhancer := &stubEnhancer{err: errors.New("workflow engine down")}
	svc, messages := newChatFixture(generator, enhancer, true)

	message, err := svc.SendMessage(context.Background(), uuid.New(), chatRequest())

	require.NoError(t, err)
	assert.Equal(t, "fallback", message.Response)
	assert.Zero(t, message.TrustScore)
	require.Len(t, messages.created, 1)
}
