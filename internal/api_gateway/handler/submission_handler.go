package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/api_gateway/middleware"
	"github.com/edocument-exchange/internal/api_gateway/service"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SubmissionHandler queues submission requests for the processor
type SubmissionHandler struct {
	submissionService service.SubmissionService
	recordService     service.RecordService
	flowService       service.FlowService
	logger            *slog.Logger
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(
	logger *slog.Logger,
	submissionService service.SubmissionService,
	recordService service.RecordService,
	flowService service.FlowService,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		recordService:     recordService,
		flowService:       flowService,
		logger:            logger,
	}
}

// SubmitRecord queues a send, amend, cancel or QR request for a single record
func (h *SubmissionHandler) SubmitRecord(c *gin.Context) {
	recordID, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid record ID")
		return
	}

	var req SubmissionRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rec, err := h.recordService.GetRecordByID(c.Request.Context(), recordID)
	if err != nil {
		h.logger.Error("Failed to get record", "record_id", recordID, "error", err)
		RespondInternalError(c)
		return
	}
	if rec == nil {
		RespondNotFound(c, "Record not found")
		return
	}

	h.queue(c, &shared.SubmissionRequest{
		RequestID: uuid.New(),
		RecordID:  recordID,
		Profile:   shared.Profile(req.Profile),
		Action:    shared.Action(req.Action),
	})
}

// SubmitFlow queues a request for an aggregation flow. The profile defaults to the flow's own.
func (h *SubmissionHandler) SubmitFlow(c *gin.Context) {
	flowID, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid flow ID")
		return
	}

	var req SubmissionRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	f, err := h.flowService.GetFlowByID(c.Request.Context(), flowID)
	if err != nil {
		h.logger.Error("Failed to get flow", "flow_id", flowID, "error", err)
		RespondInternalError(c)
		return
	}
	if f == nil {
		RespondNotFound(c, "Flow not found")
		return
	}

	profile := shared.Profile(req.Profile)
	if profile == "" {
		profile = f.Profile
	}

	h.queue(c, &shared.SubmissionRequest{
		RequestID: uuid.New(),
		FlowID:    flowID,
		Profile:   profile,
		Action:    shared.Action(req.Action),
	})
}

func (h *SubmissionHandler) queue(c *gin.Context, request *shared.SubmissionRequest) {
	request.CorrelationID = middleware.GetCorrelationID(c)
	request.Timestamp = time.Now()

	requestID, err := h.submissionService.RequestSubmission(c.Request.Context(), request)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidProfile) || errors.Is(err, shared.ErrInvalidAction) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to queue submission", "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, SubmissionResponse{
		RequestID: requestID,
		Status:    "QUEUED",
	})
}
