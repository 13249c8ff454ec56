package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/domain/record"
)

// RecordServiceImpl implements the RecordService interface
type RecordServiceImpl struct {
	recordRepo record.Repository
	noteRepo   note.Repository
	qrisRepo   qris.Repository
	logger     *slog.Logger
	now        func() time.Time
}

// NewRecordService creates a new record service
func NewRecordService(logger *slog.Logger, recordRepo record.Repository, noteRepo note.Repository, qrisRepo qris.Repository) RecordService {
	return &RecordServiceImpl{
		recordRepo: recordRepo,
		noteRepo:   noteRepo,
		qrisRepo:   qrisRepo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *RecordServiceImpl) SaveRecord(ctx context.Context, rec *record.SourceRecord) error {
	rec.UpdatedAt = s.now()
	if err := s.recordRepo.Upsert(ctx, rec); err != nil {
		s.logger.Warn("Failed to save record", "record_id", rec.ID, "error", err)
		return err
	}
	return nil
}

// CorrectRecord only accepts stock records. Invoices are amended through credit notes.
func (s *RecordServiceImpl) CorrectRecord(ctx context.Context, rec *record.SourceRecord) error {
	if !rec.Type.IsStock() {
		return record.ErrImmutable{ID: rec.ID}
	}
	rec.UpdatedAt = s.now()
	return s.recordRepo.Correct(ctx, rec)
}

// GetRecordByID retrieves a record by its ID. Returns nil if not found
func (s *RecordServiceImpl) GetRecordByID(ctx context.Context, id int64) (*record.SourceRecord, error) {
	rec, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		var errNotFound record.ErrRecordNotFound
		if errors.As(err, &errNotFound) {
			s.logger.Info("Record not found", "record_id", id)
			return nil, nil
		}
		s.logger.Error("Failed to get record by ID", "record_id", id, "error", err)
		return nil, err
	}
	return rec, nil
}

func (s *RecordServiceImpl) GetNotes(ctx context.Context, recordID int64, limit int) ([]*note.Note, error) {
	return s.noteRepo.ListByRecord(ctx, recordID, limit)
}

func (s *RecordServiceImpl) GetQRCodes(ctx context.Context, recordID int64) ([]*qris.Transaction, error) {
	return s.qrisRepo.ListByRecord(ctx, recordID)
}
