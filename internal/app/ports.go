package app

import (
	"context"
	"errors"
	"regexp"
	"time"

	"resumerag/internal/model"
)

// documentIDPattern constrains caller-supplied document IDs to filesystem-safe
// names; the snapshot path embeds the ID verbatim, so separators and other
// special characters must never reach the store.
var documentIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

func validDocumentID(id string) bool {
	return documentIDPattern.MatchString(id)
}

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrDocumentLimitExceeded = errors.New("document limit exceeded")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrMessageEnqueue        = errors.New("message enqueue failed")
)

// Embedder turns texts into embedding vectors, one provider call per text.
// Implementations retry transient provider failures internally; an error here
// means retries were exhausted.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedEach(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from a persona plus a composed prompt. An empty
// answer with a nil error means the provider returned no content.
type Generator interface {
	Generate(ctx context.Context, persona, prompt string) (string, error)
}

// DocumentStore is the metadata store for document records.
type DocumentStore interface {
	Create(doc *model.Document) error
	Update(doc *model.Document) error
	GetByOwnerAndDocumentID(ownerID uint, documentID string) (*model.Document, error)
	ListByOwnerID(ownerID uint) ([]model.Document, error)
	CountByOwnerID(ownerID uint) (int64, error)
	DeleteByOwnerAndDocumentID(ownerID uint, documentID string) error
}

// ConversationStore is the metadata store for conversation records.
type ConversationStore interface {
	Create(conv *model.Conversation) error
	GetByOwnerAndConversationID(ownerID uint, conversationID string) (*model.Conversation, error)
	ListByOwnerID(ownerID uint) ([]model.Conversation, error)
	TouchActivity(conversationID string, at time.Time) error
	DeleteByOwnerAndConversationID(ownerID uint, conversationID string) error
	DeleteByOwnerID(ownerID uint) error
}

// MessageStore persists the ordered message list of a conversation.
type MessageStore interface {
	Create(msg *model.ConversationMessage) error
	ListByConversationID(conversationID string, limit int) ([]model.ConversationMessage, error)
	DeleteByConversationID(conversationID string) error
	DeleteByOwnerID(ownerID uint) error
}

// AsyncMessagePublisher enqueues a conversation message for background
// persistence.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.ConversationMessage) error
}

// HistoryCache is the read-through cache for conversation histories.
type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.ConversationMessage, bool, error)
	SetHistory(ctx context.Context, conversationID string, messages []model.ConversationMessage) error
	DeleteHistory(ctx context.Context, conversationID string) error
	MarkDirty(ctx context.Context, conversationID string) error
	IsDirty(ctx context.Context, conversationID string) (bool, error)
}
