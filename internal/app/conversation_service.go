package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumerag/internal/model"
)

// ConversationService manages conversation records and their message
// histories. Messages are persisted asynchronously through the publisher; the
// history cache is invalidated on every append and repopulated on read once
// the worker has caught up.
type ConversationService struct {
	convs        ConversationStore
	messages     MessageStore
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
}

func NewConversationService(
	convs ConversationStore,
	messages MessageStore,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
) *ConversationService {
	return &ConversationService{
		convs:        convs,
		messages:     messages,
		publisher:    publisher,
		historyCache: historyCache,
	}
}

type CreateConversationInput struct {
	OwnerID    uint
	DocumentID string
	Name       string
}

func (s *ConversationService) Create(input CreateConversationInput) (*model.Conversation, error) {
	if input.OwnerID == 0 || input.DocumentID == "" {
		return nil, ErrInvalidInput
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "New Conversation"
	}

	conv := &model.Conversation{
		OwnerID:        input.OwnerID,
		ConversationID: uuid.NewString(),
		DocumentID:     input.DocumentID,
		Name:           name,
		LastActivityAt: time.Now(),
	}
	if err := s.convs.Create(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) List(ownerID uint) ([]model.Conversation, error) {
	if ownerID == 0 {
		return nil, ErrInvalidInput
	}
	return s.convs.ListByOwnerID(ownerID)
}

func (s *ConversationService) Get(ownerID uint, conversationID string) (*model.Conversation, error) {
	if ownerID == 0 || conversationID == "" {
		return nil, ErrInvalidInput
	}
	conv, err := s.convs.GetByOwnerAndConversationID(ownerID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// GetHistory reads the message list through the cache. A dirty marker means a
// recent append may not have been persisted yet, so the database is
// authoritative and the cache is left alone.
func (s *ConversationService) GetHistory(ownerID uint, conversationID string, limit int) ([]model.ConversationMessage, error) {
	if _, err := s.Get(ownerID, conversationID); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return trimHistory(cached, limit), nil
			}
		}
	}

	messages, err := s.messages.ListByConversationID(conversationID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, conversationID, messages)
		}
	}
	return messages, nil
}

// AppendExchange enqueues a question and its answer for persistence. The
// cache is marked dirty first so readers fall through to the database until
// the worker clears the marker.
func (s *ConversationService) AppendExchange(ctx context.Context, ownerID uint, conversationID, question, answer string) error {
	conv, err := s.Get(ownerID, conversationID)
	if err != nil {
		return err
	}
	if s.publisher == nil {
		return ErrMessageEnqueue
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, conversationID)
		_ = s.historyCache.DeleteHistory(ctx, conversationID)
	}

	now := time.Now()
	userMsg := model.ConversationMessage{
		ConversationID: conv.ConversationID,
		OwnerID:        ownerID,
		FromSystem:     false,
		Content:        question,
		CreatedAt:      now,
	}
	if err := s.publisher.Publish(ctx, userMsg); err != nil {
		return ErrMessageEnqueue
	}

	systemMsg := model.ConversationMessage{
		ConversationID: conv.ConversationID,
		OwnerID:        ownerID,
		FromSystem:     true,
		Content:        answer,
		CreatedAt:      now,
	}
	if err := s.publisher.Publish(ctx, systemMsg); err != nil {
		return ErrMessageEnqueue
	}
	return nil
}

func (s *ConversationService) Delete(ownerID uint, conversationID string) error {
	if _, err := s.Get(ownerID, conversationID); err != nil {
		return err
	}
	if err := s.messages.DeleteByConversationID(conversationID); err != nil {
		return err
	}
	if err := s.convs.DeleteByOwnerAndConversationID(ownerID, conversationID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), conversationID)
	}
	return nil
}

func trimHistory(messages []model.ConversationMessage, limit int) []model.ConversationMessage {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
