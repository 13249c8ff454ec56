package handler

import (
	"log/slog"

	"github.com/edocument-exchange/internal/api_gateway/service"
	"github.com/gin-gonic/gin"
)

// DocumentHandler serves documents and the files exchanged with the authorities
type DocumentHandler struct {
	documentService service.DocumentService
	logger          *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(logger *slog.Logger, documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

func (h *DocumentHandler) GetByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid document ID")
		return
	}

	doc, err := h.documentService.GetDocumentByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get document", "document_id", id, "error", err)
		RespondInternalError(c)
		return
	}
	if doc == nil {
		RespondNotFound(c, "Document not found")
		return
	}

	RespondOK(c, doc)
}

// GetByRecordID lists a record's documents, oldest first
func (h *DocumentHandler) GetByRecordID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid record ID")
		return
	}

	docs, err := h.documentService.GetDocumentsByRecord(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get documents", "record_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, docs)
}

func (h *DocumentHandler) GetByFlowID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid flow ID")
		return
	}

	docs, err := h.documentService.GetDocumentsByFlow(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get documents", "flow_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, docs)
}

// Attachments lists the files of a document without their content
func (h *DocumentHandler) Attachments(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid document ID")
		return
	}

	files, err := h.documentService.GetAttachments(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get attachments", "document_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, files)
}

// Download streams the exact bytes of an attachment
func (h *DocumentHandler) Download(c *gin.Context) {
	id := c.Param("id")

	a, err := h.documentService.GetAttachment(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get attachment", "attachment_id", id, "error", err)
		RespondInternalError(c)
		return
	}
	if a == nil {
		RespondNotFound(c, "Attachment not found")
		return
	}

	RespondFile(c, a.Name, a.MimeType, a.Content)
}
