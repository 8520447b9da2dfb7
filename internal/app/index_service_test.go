package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumerag/internal/chunker"
	"resumerag/internal/model"
	"resumerag/internal/vectorstore"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
	failAt  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failAt > 0 && f.calls >= f.failAt {
		return nil, errors.New("provider unavailable")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedEach(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

type fakeDocs struct {
	nextID uint
	docs   map[string]*model.Document
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: map[string]*model.Document{}}
}

func docKey(ownerID uint, documentID string) string {
	return fmt.Sprintf("%d|%s", ownerID, documentID)
}

func (f *fakeDocs) Create(doc *model.Document) error {
	f.nextID++
	doc.ID = f.nextID
	copied := *doc
	f.docs[docKey(doc.OwnerID, doc.DocumentID)] = &copied
	return nil
}

func (f *fakeDocs) Update(doc *model.Document) error {
	copied := *doc
	f.docs[docKey(doc.OwnerID, doc.DocumentID)] = &copied
	return nil
}

func (f *fakeDocs) GetByOwnerAndDocumentID(ownerID uint, documentID string) (*model.Document, error) {
	doc, ok := f.docs[docKey(ownerID, documentID)]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocs) ListByOwnerID(ownerID uint) ([]model.Document, error) {
	var list []model.Document
	for _, doc := range f.docs {
		if doc.OwnerID == ownerID {
			list = append(list, *doc)
		}
	}
	return list, nil
}

func (f *fakeDocs) CountByOwnerID(ownerID uint) (int64, error) {
	list, _ := f.ListByOwnerID(ownerID)
	return int64(len(list)), nil
}

func (f *fakeDocs) DeleteByOwnerAndDocumentID(ownerID uint, documentID string) error {
	delete(f.docs, docKey(ownerID, documentID))
	return nil
}

type fakeConvs struct {
	convs []model.Conversation
}

func (f *fakeConvs) Create(conv *model.Conversation) error {
	f.convs = append(f.convs, *conv)
	return nil
}

func (f *fakeConvs) GetByOwnerAndConversationID(ownerID uint, conversationID string) (*model.Conversation, error) {
	for i := range f.convs {
		if f.convs[i].OwnerID == ownerID && f.convs[i].ConversationID == conversationID {
			copied := f.convs[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeConvs) ListByOwnerID(ownerID uint) ([]model.Conversation, error) {
	var list []model.Conversation
	for _, c := range f.convs {
		if c.OwnerID == ownerID {
			list = append(list, c)
		}
	}
	return list, nil
}

func (f *fakeConvs) TouchActivity(conversationID string, at time.Time) error { return nil }

func (f *fakeConvs) DeleteByOwnerAndConversationID(ownerID uint, conversationID string) error {
	kept := f.convs[:0]
	for _, c := range f.convs {
		if !(c.OwnerID == ownerID && c.ConversationID == conversationID) {
			kept = append(kept, c)
		}
	}
	f.convs = kept
	return nil
}

func (f *fakeConvs) DeleteByOwnerID(ownerID uint) error {
	kept := f.convs[:0]
	for _, c := range f.convs {
		if c.OwnerID != ownerID {
			kept = append(kept, c)
		}
	}
	f.convs = kept
	return nil
}

type fakeMessages struct {
	messages []model.ConversationMessage
}

func (f *fakeMessages) Create(msg *model.ConversationMessage) error {
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessages) ListByConversationID(conversationID string, limit int) ([]model.ConversationMessage, error) {
	var list []model.ConversationMessage
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			list = append(list, m)
		}
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (f *fakeMessages) DeleteByConversationID(conversationID string) error {
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.ConversationID != conversationID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func (f *fakeMessages) DeleteByOwnerID(ownerID uint) error {
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.OwnerID != ownerID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func newIndexHarness(t *testing.T, embedder Embedder) (*IndexService, *fakeDocs, *fakeConvs, *fakeMessages, *vectorstore.Store) {
	t.Helper()
	vectors, err := vectorstore.New(t.TempDir())
	require.NoError(t, err)
	docs := newFakeDocs()
	convs := &fakeConvs{}
	messages := &fakeMessages{}
	svc := NewIndexService(docs, convs, messages, vectors, embedder, chunker.New(), 3)
	return svc, docs, convs, messages, vectors
}

func TestIndexCreatesDocumentAndCollection(t *testing.T) {
	svc, docs, _, _, vectors := newIndexHarness(t, &fakeEmbedder{})

	result, err := svc.Index(context.Background(), IndexInput{
		OwnerID:    7,
		DocumentID: "resume-1",
		Name:       "resume.pdf",
		Content:    "Python, Go, 5 years backend experience.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunkCount)

	coll, err := vectors.Load(vectorstore.Key{OwnerID: 7, DocumentID: "resume-1"})
	require.NoError(t, err)
	require.Equal(t, 1, coll.Len())
	assert.Equal(t, "Python, Go, 5 years backend experience.", coll.Texts[0])
	assert.Equal(t, 0, coll.Metadata[0].Ordinal)

	doc, err := docs.GetByOwnerAndDocumentID(7, "resume-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 1, doc.ChunkCount)
}

func TestIndexRejectsEmptyContent(t *testing.T) {
	svc, _, _, _, _ := newIndexHarness(t, &fakeEmbedder{})

	_, err := svc.Index(context.Background(), IndexInput{OwnerID: 1, DocumentID: "d", Content: "   \n "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Index(context.Background(), IndexInput{OwnerID: 1, Content: "something"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIndexRejectsUnsafeDocumentID(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc, _, _, _, _ := newIndexHarness(t, embedder)

	for _, id := range []string{
		"a/b",
		"/../../victim",
		"with space",
		`back\slash`,
		strings.Repeat("x", 65),
	} {
		_, err := svc.Index(context.Background(), IndexInput{OwnerID: 1, DocumentID: id, Content: "resume"})
		assert.ErrorIs(t, err, ErrInvalidInput, "id %q", id)
	}
	assert.Zero(t, embedder.calls, "rejection happens before any embedding")
}

func TestDeleteRejectsPathTraversalDocumentID(t *testing.T) {
	root := t.TempDir()
	vectors, err := vectorstore.New(filepath.Join(root, "snapshots"))
	require.NoError(t, err)

	// a file outside the snapshot dir that a traversal ID would resolve to
	victim := filepath.Join(root, "victim.json")
	require.NoError(t, os.WriteFile(victim, []byte("{}"), 0o644))

	svc := NewIndexService(newFakeDocs(), &fakeConvs{}, &fakeMessages{}, vectors, &fakeEmbedder{}, chunker.New(), 3)
	err = svc.Delete(context.Background(), 1, "/../../victim")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, statErr := os.Stat(victim)
	assert.NoError(t, statErr, "file outside the snapshot dir must survive")
}

func TestIndexEnforcesDocumentLimit(t *testing.T) {
	svc, _, _, _, _ := newIndexHarness(t, &fakeEmbedder{})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := svc.Index(ctx, IndexInput{
			OwnerID:    1,
			DocumentID: fmt.Sprintf("doc-%d", i),
			Content:    fmt.Sprintf("resume number %d", i),
		})
		require.NoError(t, err)
	}

	_, err := svc.Index(ctx, IndexInput{OwnerID: 1, DocumentID: "doc-4", Content: "one too many"})
	assert.ErrorIs(t, err, ErrDocumentLimitExceeded)

	// re-indexing an existing ID is not a new document
	_, err = svc.Index(ctx, IndexInput{OwnerID: 1, DocumentID: "doc-2", Content: "updated resume"})
	assert.NoError(t, err)

	// other owners have their own budget
	_, err = svc.Index(ctx, IndexInput{OwnerID: 2, DocumentID: "doc-1", Content: "different owner"})
	assert.NoError(t, err)

	// deleting one document frees a slot for a new ID
	require.NoError(t, svc.Delete(ctx, 1, "doc-1"))
	_, err = svc.Index(ctx, IndexInput{OwnerID: 1, DocumentID: "doc-4", Content: "fits again"})
	assert.NoError(t, err)
}

func TestIndexFailureKeepsPreviousCollection(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc, docs, _, _, vectors := newIndexHarness(t, embedder)
	ctx := context.Background()
	key := vectorstore.Key{OwnerID: 3, DocumentID: "resume"}

	_, err := svc.Index(ctx, IndexInput{OwnerID: 3, DocumentID: "resume", Content: "original resume text"})
	require.NoError(t, err)

	// long enough to split into several chunks so the failure hits mid-pipeline
	long := strings.Repeat("Led a team of engineers shipping search infrastructure. ", 50)
	embedder.failAt = embedder.calls + 2
	_, err = svc.Index(ctx, IndexInput{OwnerID: 3, DocumentID: "resume", Content: long})
	require.Error(t, err)

	coll, err := vectors.Load(key)
	require.NoError(t, err)
	require.Equal(t, 1, coll.Len())
	assert.Equal(t, "original resume text", coll.Texts[0])

	doc, err := docs.GetByOwnerAndDocumentID(3, "resume")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "original resume text", doc.Content)
}

func TestReindexReplacesCollection(t *testing.T) {
	svc, _, _, _, vectors := newIndexHarness(t, &fakeEmbedder{})
	ctx := context.Background()

	_, err := svc.Index(ctx, IndexInput{OwnerID: 1, DocumentID: "d", Content: "first version"})
	require.NoError(t, err)
	_, err = svc.Index(ctx, IndexInput{OwnerID: 1, DocumentID: "d", Content: "second version"})
	require.NoError(t, err)

	coll, err := vectors.Load(vectorstore.Key{OwnerID: 1, DocumentID: "d"})
	require.NoError(t, err)
	require.Equal(t, 1, coll.Len())
	assert.Equal(t, "second version", coll.Texts[0])
}

func TestDeleteRemovesDocument(t *testing.T) {
	svc, docs, _, _, vectors := newIndexHarness(t, &fakeEmbedder{})
	ctx := context.Background()

	_, err := svc.Index(ctx, IndexInput{OwnerID: 1, DocumentID: "d", Content: "resume text"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, "d"))

	coll, err := vectors.Load(vectorstore.Key{OwnerID: 1, DocumentID: "d"})
	require.NoError(t, err)
	assert.Equal(t, 0, coll.Len())

	doc, err := docs.GetByOwnerAndDocumentID(1, "d")
	require.NoError(t, err)
	assert.Nil(t, doc)

	// deleting again is a no-op
	assert.NoError(t, svc.Delete(ctx, 1, "d"))
}

func TestDeleteAllCascades(t *testing.T) {
	svc, docs, convs, messages, vectors := newIndexHarness(t, &fakeEmbedder{})
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := svc.Index(ctx, IndexInput{OwnerID: 1, DocumentID: id, Content: "resume " + id})
		require.NoError(t, err)
	}
	_, err := svc.Index(ctx, IndexInput{OwnerID: 2, DocumentID: "a", Content: "other owner"})
	require.NoError(t, err)

	require.NoError(t, convs.Create(&model.Conversation{OwnerID: 1, ConversationID: "c1", DocumentID: "a"}))
	require.NoError(t, convs.Create(&model.Conversation{OwnerID: 2, ConversationID: "c2", DocumentID: "a"}))
	require.NoError(t, messages.Create(&model.ConversationMessage{OwnerID: 1, ConversationID: "c1", Content: "hi"}))

	require.NoError(t, svc.DeleteAll(ctx, 1))

	list, err := docs.ListByOwnerID(1)
	require.NoError(t, err)
	assert.Empty(t, list)

	coll, err := vectors.Load(vectorstore.Key{OwnerID: 1, DocumentID: "a"})
	require.NoError(t, err)
	assert.Equal(t, 0, coll.Len())

	remaining, err := convs.ListByOwnerID(1)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	gone, err := messages.ListByConversationID("c1", 0)
	require.NoError(t, err)
	assert.Empty(t, gone)

	// owner 2 untouched
	otherDocs, err := docs.ListByOwnerID(2)
	require.NoError(t, err)
	assert.Len(t, otherDocs, 1)
	otherConvs, err := convs.ListByOwnerID(2)
	require.NoError(t, err)
	assert.Len(t, otherConvs, 1)
}
