package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"resumerag/internal/model"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(conv *model.Conversation) error {
	if err := r.db.Create(conv).Error; err != nil {
		return fmt.Errorf("create conversation failed: %w", err)
	}
	return nil
}

// GetByOwnerAndConversationID returns the conversation, or nil when absent.
func (r *ConversationRepository) GetByOwnerAndConversationID(ownerID uint, conversationID string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.Where("owner_id = ? AND conversation_id = ?", ownerID, conversationID).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation failed: %w", err)
	}
	return &conv, nil
}

// ListByOwnerID lists an owner's conversations by recency of activity.
func (r *ConversationRepository) ListByOwnerID(ownerID uint) ([]model.Conversation, error) {
	var list []model.Conversation
	if err := r.db.Where("owner_id = ?", ownerID).Order("last_activity_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list conversations failed: %w", err)
	}
	return list, nil
}

// TouchActivity bumps the message counter and last-activity timestamp after a
// message has been appended.
func (r *ConversationRepository) TouchActivity(conversationID string, at time.Time) error {
	err := r.db.Model(&model.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]interface{}{
			"message_count":    gorm.Expr("message_count + 1"),
			"last_activity_at": at,
		}).Error
	if err != nil {
		return fmt.Errorf("touch conversation activity failed: %w", err)
	}
	return nil
}

func (r *ConversationRepository) DeleteByOwnerAndConversationID(ownerID uint, conversationID string) error {
	if err := r.db.Where("owner_id = ? AND conversation_id = ?", ownerID, conversationID).Delete(&model.Conversation{}).Error; err != nil {
		return fmt.Errorf("delete conversation failed: %w", err)
	}
	return nil
}

// DeleteByOwnerID removes every conversation for the owner; used by the
// delete-all cascade.
func (r *ConversationRepository) DeleteByOwnerID(ownerID uint) error {
	if err := r.db.Where("owner_id = ?", ownerID).Delete(&model.Conversation{}).Error; err != nil {
		return fmt.Errorf("delete conversations by owner failed: %w", err)
	}
	return nil
}
