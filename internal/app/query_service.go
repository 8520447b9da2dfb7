package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"resumerag/internal/vectorstore"
)

const DefaultTopK = 3

const assistantPersona = "You are a professional assistant who answers questions about a candidate's resume. " +
	"Ground every answer in the resume excerpts you are given and keep it concise and helpful. " +
	"Do not volunteer analysis or criticism of the resume unless the question asks for it. " +
	"Close each answer with one short follow-up question."

// QueryService answers questions over an indexed document. It never calls the
// generation provider for a document with no indexed chunks; that case is
// reported through the Indexed flag instead.
type QueryService struct {
	vectors  *vectorstore.Store
	embedder Embedder
	gen      Generator
	topK     int
}

func NewQueryService(vectors *vectorstore.Store, embedder Embedder, gen Generator, topK int) *QueryService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &QueryService{vectors: vectors, embedder: embedder, gen: gen, topK: topK}
}

type HistoryMessage struct {
	Content    string
	FromSystem bool
}

type Match struct {
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

type QueryResult struct {
	Answer     string  `json:"answer"`
	Indexed    bool    `json:"indexed"`
	Matches    []Match `json:"matches,omitempty"`
	Confidence float32 `json:"confidence"`
}

// Query embeds the question, ranks the document's chunks by cosine
// similarity, and asks the generator over the top matches. Confidence is the
// best similarity score.
func (s *QueryService) Query(ctx context.Context, ownerID uint, documentID, question string, history []HistoryMessage) (*QueryResult, error) {
	question = strings.TrimSpace(question)
	if !validDocumentID(documentID) || question == "" {
		return nil, ErrInvalidInput
	}

	key := vectorstore.Key{OwnerID: ownerID, DocumentID: documentID}
	coll, err := s.vectors.Load(key)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	if coll.Len() == 0 {
		return &QueryResult{Indexed: false}, nil
	}

	qvec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	matches := rank(coll, qvec, s.topK)

	contexts := make([]string, len(matches))
	for i, m := range matches {
		contexts[i] = m.Text
	}
	prompt := buildPrompt(strings.Join(contexts, "\n\n"), history, question)

	answer, err := s.gen.Generate(ctx, assistantPersona, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	var confidence float32
	if len(matches) > 0 {
		confidence = matches[0].Score
	}
	return &QueryResult{
		Answer:     answer,
		Indexed:    true,
		Matches:    matches,
		Confidence: confidence,
	}, nil
}

// rank scores every chunk against the query vector and keeps the top k.
// Sorting is stable so equal scores fall back to chunk order.
func rank(coll *vectorstore.Collection, query []float32, k int) []Match {
	matches := make([]Match, coll.Len())
	for i := range coll.Vectors {
		matches[i] = Match{Text: coll.Texts[i], Score: cosineSimilarity(query, coll.Vectors[i])}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// cosineSimilarity is zero for mismatched lengths and for zero-magnitude
// vectors rather than dividing by zero.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func buildPrompt(context string, history []HistoryMessage, question string) string {
	var sb strings.Builder
	sb.WriteString("Resume excerpts:\n")
	sb.WriteString(context)
	sb.WriteString("\n\n")
	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, msg := range history {
			if msg.FromSystem {
				sb.WriteString("Assistant: ")
			} else {
				sb.WriteString("User: ")
			}
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}
