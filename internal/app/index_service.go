package app

import (
	"context"
	"fmt"
	"strings"

	"resumerag/internal/chunker"
	"resumerag/internal/model"
	"resumerag/internal/vectorstore"
)

const DefaultMaxDocuments = 3

// IndexService owns the chunk-embed-store pipeline. A document is indexed as
// a whole: its collection is built off to the side and only swapped in once
// every chunk has been embedded, so a mid-flight provider failure leaves the
// previous index intact.
type IndexService struct {
	docs         DocumentStore
	convs        ConversationStore
	messages     MessageStore
	vectors      *vectorstore.Store
	embedder     Embedder
	splitter     *chunker.Chunker
	maxDocuments int
}

func NewIndexService(
	docs DocumentStore,
	convs ConversationStore,
	messages MessageStore,
	vectors *vectorstore.Store,
	embedder Embedder,
	splitter *chunker.Chunker,
	maxDocuments int,
) *IndexService {
	if maxDocuments <= 0 {
		maxDocuments = DefaultMaxDocuments
	}
	return &IndexService{
		docs:         docs,
		convs:        convs,
		messages:     messages,
		vectors:      vectors,
		embedder:     embedder,
		splitter:     splitter,
		maxDocuments: maxDocuments,
	}
}

type IndexInput struct {
	OwnerID    uint
	DocumentID string
	Name       string
	Content    string
}

type IndexResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
	TextLength int    `json:"text_length"`
}

// Index chunks the content, embeds every chunk, and replaces the document's
// collection wholesale. Re-indexing an existing document ID is always
// allowed; a new document ID is rejected once the owner holds maxDocuments.
func (s *IndexService) Index(ctx context.Context, in IndexInput) (*IndexResult, error) {
	content := strings.TrimSpace(in.Content)
	if !validDocumentID(in.DocumentID) || content == "" {
		return nil, ErrInvalidInput
	}

	existing, err := s.docs.GetByOwnerAndDocumentID(in.OwnerID, in.DocumentID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		count, err := s.docs.CountByOwnerID(in.OwnerID)
		if err != nil {
			return nil, err
		}
		if count >= int64(s.maxDocuments) {
			return nil, ErrDocumentLimitExceeded
		}
	}

	chunks := s.splitter.Split(content)
	key := vectorstore.Key{OwnerID: in.OwnerID, DocumentID: in.DocumentID}

	vecs, err := s.embedder.EmbedEach(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	ids := make([]string, len(chunks))
	metas := make([]vectorstore.ChunkMeta, len(chunks))
	for i, chunk := range chunks {
		ids[i] = fmt.Sprintf("%s_%d", key.Namespace(), i)
		metas[i] = vectorstore.ChunkMeta{Ordinal: i, Length: len([]rune(chunk))}
	}

	if err := s.vectors.Rebuild(key, ids, chunks, vecs, metas); err != nil {
		return nil, fmt.Errorf("store collection: %w", err)
	}

	if existing == nil {
		doc := &model.Document{
			OwnerID:    in.OwnerID,
			DocumentID: in.DocumentID,
			Name:       in.Name,
			Content:    content,
			ChunkCount: len(chunks),
			TextLength: len([]rune(content)),
		}
		if err := s.docs.Create(doc); err != nil {
			return nil, err
		}
	} else {
		existing.Name = in.Name
		existing.Content = content
		existing.ChunkCount = len(chunks)
		existing.TextLength = len([]rune(content))
		if err := s.docs.Update(existing); err != nil {
			return nil, err
		}
	}

	return &IndexResult{
		DocumentID: in.DocumentID,
		ChunkCount: len(chunks),
		TextLength: len([]rune(content)),
	}, nil
}

func (s *IndexService) ListDocuments(ownerID uint) ([]model.Document, error) {
	return s.docs.ListByOwnerID(ownerID)
}

// Delete removes a document's collection and its metadata record. Deleting a
// document that was never indexed is a no-op.
func (s *IndexService) Delete(ctx context.Context, ownerID uint, documentID string) error {
	if !validDocumentID(documentID) {
		return ErrInvalidInput
	}
	key := vectorstore.Key{OwnerID: ownerID, DocumentID: documentID}
	if err := s.vectors.Delete(key); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return s.docs.DeleteByOwnerAndDocumentID(ownerID, documentID)
}

// DeleteAll wipes every document the owner holds, then their conversations
// and messages. Collections go first so a partial failure never leaves a
// searchable index without a record.
func (s *IndexService) DeleteAll(ctx context.Context, ownerID uint) error {
	docs, err := s.docs.ListByOwnerID(ownerID)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		key := vectorstore.Key{OwnerID: ownerID, DocumentID: doc.DocumentID}
		if err := s.vectors.Delete(key); err != nil {
			return fmt.Errorf("delete collection %s: %w", key.Namespace(), err)
		}
		if err := s.docs.DeleteByOwnerAndDocumentID(ownerID, doc.DocumentID); err != nil {
			return err
		}
	}
	if err := s.messages.DeleteByOwnerID(ownerID); err != nil {
		return err
	}
	return s.convs.DeleteByOwnerID(ownerID)
}
