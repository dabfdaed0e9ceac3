package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kbqa/internal/ai"
	"kbqa/internal/app"
	"kbqa/internal/document"
	"kbqa/internal/model"
	"kbqa/internal/transport/http/response"
	"kbqa/internal/vectorindex"
)

type RAGHandler struct {
	ragService     *app.RAGService
	maxUploadBytes int64
	logger         *zap.Logger
}

type AskRequest struct {
	Query     string `form:"query" json:"query"`
	SessionID string `form:"session_id" json:"session_id"`
}

type HistoryResponse struct {
	SessionID string       `json:"session_id"`
	Turns     []model.Turn `json:"turns"`
}

func NewRAGHandler(ragService *app.RAGService, maxUploadBytes int64, logger *zap.Logger) *RAGHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAGHandler{ragService: ragService, maxUploadBytes: maxUploadBytes, logger: logger}
}

func (h *RAGHandler) Root(c *gin.Context) {
	ready, err := h.ragService.KnowledgeBaseReady()
	if err != nil {
		h.logger.Warn("knowledge base check failed", zap.Error(err))
	}
	response.OK(c, gin.H{
		"message":              "Knowledge base QA assistant is running",
		"functions":            []string{"upload", "qa", "files"},
		"knowledge_base_ready": ready,
	})
}

func (h *RAGHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	file, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		response.Error(c, http.StatusBadRequest, "missing file")
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer f.Close()

	result, err := h.ragService.Ingest(c.Request.Context(), app.IngestInput{
		Filename: file.Filename,
		Body:     f,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.ragService.Ask(c.Request.Context(), app.AskInput{
		Query:     req.Query,
		SessionID: req.SessionID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) ListFiles(c *gin.Context) {
	files, err := h.ragService.ListFiles()
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"files": files})
}

func (h *RAGHandler) History(c *gin.Context) {
	sessionID := c.Param("id")
	turns, err := h.ragService.History(c.Request.Context(), sessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, HistoryResponse{SessionID: sessionID, Turns: turns})
}

func (h *RAGHandler) writeError(c *gin.Context, err error) {
	var loadErr *document.LoadError
	switch {
	case errors.Is(err, app.ErrNoKnowledgeBase):
		response.Notice(c, err.Error())
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrNoContent), errors.As(err, &loadErr):
		response.Error(c, http.StatusBadRequest, err.Error())
	case tooLarge(err):
		response.Error(c, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, ai.ErrEmbeddingService):
		response.Error(c, http.StatusBadGateway, "embedding service unavailable, please retry: "+err.Error())
	case errors.Is(err, ai.ErrGeneration):
		response.Error(c, http.StatusBadGateway, "answer generation failed, please retry: "+err.Error())
	case errors.Is(err, vectorindex.ErrIndexLoad):
		h.logger.Error("index load failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "knowledge base index could not be loaded")
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// multipart parsing does not always wrap the reader error
	return strings.Contains(err.Error(), "request body too large")
}
