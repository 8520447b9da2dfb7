package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"resumerag/internal/app"
	"resumerag/internal/pkg/pdfextract"
	"resumerag/internal/transport/http/response"
)

const maxPDFSize = 10 << 20 // 10 MB

// ResumeHandler exposes document indexing, querying, and deletion.
type ResumeHandler struct {
	indexService  *app.IndexService
	queryService  *app.QueryService
	conversations *app.ConversationService
}

type IndexDocumentRequest struct {
	DocumentID string `json:"document_id" binding:"required,max=64"`
	Name       string `json:"name" binding:"max=256"`
	Content    string `json:"content" binding:"required"`
}

type QueryRequest struct {
	DocumentID     string `json:"document_id" binding:"required,max=64"`
	Question       string `json:"question" binding:"required"`
	ConversationID string `json:"conversation_id" binding:"max=64"`
}

func NewResumeHandler(indexService *app.IndexService, queryService *app.QueryService, conversations *app.ConversationService) *ResumeHandler {
	return &ResumeHandler{
		indexService:  indexService,
		queryService:  queryService,
		conversations: conversations,
	}
}

func (h *ResumeHandler) IndexDocument(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req IndexDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.indexService.Index(c.Request.Context(), app.IndexInput{
		OwnerID:    userID,
		DocumentID: req.DocumentID,
		Name:       req.Name,
		Content:    req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentLimitExceeded):
			response.Error(c, http.StatusBadRequest, response.CodeDocumentLimit, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "index failed: "+err.Error())
		}
		return
	}

	response.OK(c, result)
}

// UploadPDF accepts a multipart form with "file" (PDF), "document_id", and
// optional "name", extracts the text and indexes it.
func (h *ResumeHandler) UploadPDF(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	documentID := strings.TrimSpace(c.PostForm("document_id"))
	if documentID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing document_id")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxPDFSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	text, err := pdfextract.ExtractText(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text from PDF: "+err.Error())
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "PDF contains no extractable text")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
		if name == "" {
			name = "Untitled"
		}
	}

	result, err := h.indexService.Index(c.Request.Context(), app.IndexInput{
		OwnerID:    userID,
		DocumentID: documentID,
		Name:       name,
		Content:    text,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentLimitExceeded):
			response.Error(c, http.StatusBadRequest, response.CodeDocumentLimit, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "index failed: "+err.Error())
		}
		return
	}

	response.OK(c, result)
}

func (h *ResumeHandler) ListDocuments(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.indexService.ListDocuments(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *ResumeHandler) DeleteDocument(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	documentID := strings.TrimSpace(c.Param("id"))
	if documentID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	if err := h.indexService.Delete(c.Request.Context(), userID, documentID); err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_document_id": documentID})
}

func (h *ResumeHandler) DeleteAllDocuments(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if err := h.indexService.DeleteAll(c.Request.Context(), userID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete all documents failed")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

func (h *ResumeHandler) Query(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	var history []app.HistoryMessage
	if req.ConversationID != "" {
		messages, err := h.conversations.GetHistory(userID, req.ConversationID, 20)
		if err != nil {
			if errors.Is(err, app.ErrConversationNotFound) {
				response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
			} else {
				response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load conversation history failed")
			}
			return
		}
		history = make([]app.HistoryMessage, 0, len(messages))
		for _, msg := range messages {
			history = append(history, app.HistoryMessage{Content: msg.Content, FromSystem: msg.FromSystem})
		}
	}

	result, err := h.queryService.Query(c.Request.Context(), userID, req.DocumentID, req.Question, history)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "query failed")
		}
		return
	}

	if !result.Indexed {
		response.OK(c, gin.H{
			"indexed": false,
			"message": "document is not indexed yet, please index it first",
		})
		return
	}

	if req.ConversationID != "" {
		if err := h.conversations.AppendExchange(c.Request.Context(), userID, req.ConversationID, req.Question, result.Answer); err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "record conversation failed")
			return
		}
	}

	response.OK(c, result)
}
