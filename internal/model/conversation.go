package model

import "time"

// Conversation groups the question/answer exchange about one document.
// Deleting a document does not remove conversations referencing it; only the
// delete-all cascade does.
type Conversation struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OwnerID        uint      `gorm:"not null;index" json:"owner_id"`
	ConversationID string    `gorm:"size:64;not null;uniqueIndex" json:"conversation_id"`
	DocumentID     string    `gorm:"size:64;index" json:"document_id"`
	Name           string    `gorm:"size:256;not null" json:"name"`
	MessageCount   int       `gorm:"not null" json:"message_count"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationMessage is one entry in a conversation's ordered message list.
// FromSystem marks assistant-generated messages.
type ConversationMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"size:64;not null;index" json:"conversation_id"`
	OwnerID        uint      `gorm:"not null;index" json:"owner_id"`
	FromSystem     bool      `gorm:"not null" json:"from_system"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
