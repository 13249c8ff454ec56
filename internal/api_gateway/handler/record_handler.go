package handler

import (
	"errors"
	"log/slog"

	"github.com/edocument-exchange/internal/api_gateway/service"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/gin-gonic/gin"
)

// RecordHandler handles HTTP requests for the records the host hands over
type RecordHandler struct {
	recordService service.RecordService
	logger        *slog.Logger
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(logger *slog.Logger, recordService service.RecordService) *RecordHandler {
	return &RecordHandler{
		recordService: recordService,
		logger:        logger,
	}
}

// bindRecord reads the record body; the path id wins over the body's.
func (h *RecordHandler) bindRecord(c *gin.Context) (*record.SourceRecord, bool) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid record ID")
		return nil, false
	}

	var rec record.SourceRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return nil, false
	}
	if rec.CompanyID <= 0 || rec.Type == "" || rec.State == "" {
		RespondBadRequest(c, "company_id, type and state are required")
		return nil, false
	}
	rec.ID = id
	return &rec, true
}

// Save stores a record, returning 409 when a posted record would be overwritten
func (h *RecordHandler) Save(c *gin.Context) {
	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}

	if err := h.recordService.SaveRecord(c.Request.Context(), rec); err != nil {
		var immutable record.ErrImmutable
		if errors.As(err, &immutable) {
			RespondConflict(c, "Posted records cannot be modified; issue a credit note")
			return
		}
		h.logger.Error("Failed to save record", "record_id", rec.ID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, rec)
}

// Correct replaces the content of a posted shipment or batch ahead of an amendment
func (h *RecordHandler) Correct(c *gin.Context) {
	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}

	if err := h.recordService.CorrectRecord(c.Request.Context(), rec); err != nil {
		var immutable record.ErrImmutable
		if errors.As(err, &immutable) {
			RespondConflict(c, "Only shipments and batches can be corrected")
			return
		}
		h.logger.Error("Failed to correct record", "record_id", rec.ID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, rec)
}

func (h *RecordHandler) GetByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid record ID")
		return
	}

	rec, err := h.recordService.GetRecordByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get record", "record_id", id, "error", err)
		RespondInternalError(c)
		return
	}
	if rec == nil {
		RespondNotFound(c, "Record not found")
		return
	}

	RespondOK(c, rec)
}

// Notes returns the record's log, newest first
func (h *RecordHandler) Notes(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid record ID")
		return
	}

	var query NotesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid limit")
		return
	}

	notes, err := h.recordService.GetNotes(c.Request.Context(), id, query.Limit)
	if err != nil {
		h.logger.Error("Failed to get notes", "record_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, notes)
}

func (h *RecordHandler) QRCodes(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid record ID")
		return
	}

	codes, err := h.recordService.GetQRCodes(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get QR codes", "record_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, codes)
}
