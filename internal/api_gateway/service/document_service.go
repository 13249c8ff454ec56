package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/edocument-exchange/internal/domain/attachment"
	"github.com/edocument-exchange/internal/domain/edocument"
)

// DocumentServiceImpl implements the DocumentService interface
type DocumentServiceImpl struct {
	documentRepo   edocument.Repository
	attachmentRepo attachment.Repository
	logger         *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(logger *slog.Logger, documentRepo edocument.Repository, attachmentRepo attachment.Repository) DocumentService {
	return &DocumentServiceImpl{
		documentRepo:   documentRepo,
		attachmentRepo: attachmentRepo,
		logger:         logger,
	}
}

// GetDocumentByID retrieves a document by its ID. Returns nil if not found
func (s *DocumentServiceImpl) GetDocumentByID(ctx context.Context, id int64) (*edocument.EDocument, error) {
	doc, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		var errNotFound edocument.ErrDocumentNotFound
		if errors.As(err, &errNotFound) {
			s.logger.Info("Document not found", "document_id", id)
			return nil, nil
		}
		s.logger.Error("Failed to get document by ID", "document_id", id, "error", err)
		return nil, err
	}
	return doc, nil
}

func (s *DocumentServiceImpl) GetDocumentsByRecord(ctx context.Context, recordID int64) ([]*edocument.EDocument, error) {
	return s.documentRepo.ListByRecord(ctx, recordID)
}

func (s *DocumentServiceImpl) GetDocumentsByFlow(ctx context.Context, flowID int64) ([]*edocument.EDocument, error) {
	return s.documentRepo.ListByFlow(ctx, flowID)
}

func (s *DocumentServiceImpl) GetAttachments(ctx context.Context, documentID int64) ([]*attachment.Attachment, error) {
	return s.attachmentRepo.ListByDocument(ctx, documentID)
}

// GetAttachment retrieves an attachment with its content. Returns nil if not found
func (s *DocumentServiceImpl) GetAttachment(ctx context.Context, id string) (*attachment.Attachment, error) {
	a, err := s.attachmentRepo.Get(ctx, id)
	if err != nil {
		var errNotFound attachment.ErrAttachmentNotFound
		if errors.As(err, &errNotFound) {
			s.logger.Info("Attachment not found", "attachment_id", id)
			return nil, nil
		}
		s.logger.Error("Failed to get attachment", "attachment_id", id, "error", err)
		return nil, err
	}
	return a, nil
}
