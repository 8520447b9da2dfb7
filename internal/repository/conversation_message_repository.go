package repository

import (
	"fmt"

	"gorm.io/gorm"

	"resumerag/internal/model"
)

type ConversationMessageRepository struct {
	db *gorm.DB
}

func NewConversationMessageRepository(db *gorm.DB) *ConversationMessageRepository {
	return &ConversationMessageRepository{db: db}
}

func (r *ConversationMessageRepository) Create(msg *model.ConversationMessage) error {
	if err := r.db.Create(msg).Error; err != nil {
		return fmt.Errorf("create conversation message failed: %w", err)
	}
	return nil
}

// ListByConversationID returns the ordered message list, oldest first.
func (r *ConversationMessageRepository) ListByConversationID(conversationID string, limit int) ([]model.ConversationMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var messages []model.ConversationMessage
	if err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list conversation messages failed: %w", err)
	}
	return messages, nil
}

func (r *ConversationMessageRepository) DeleteByConversationID(conversationID string) error {
	if err := r.db.Where("conversation_id = ?", conversationID).Delete(&model.ConversationMessage{}).Error; err != nil {
		return fmt.Errorf("delete conversation messages failed: %w", err)
	}
	return nil
}

func (r *ConversationMessageRepository) DeleteByOwnerID(ownerID uint) error {
	if err := r.db.Where("owner_id = ?", ownerID).Delete(&model.ConversationMessage{}).Error; err != nil {
		return fmt.Errorf("delete conversation messages by owner failed: %w", err)
	}
	return nil
}
