package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/api_gateway/service"
	"github.com/edocument-exchange/internal/domain/company"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// FlowHandler handles HTTP requests for aggregation flows
type FlowHandler struct {
	flowService service.FlowService
	logger      *slog.Logger
}

// NewFlowHandler creates a new flow handler
func NewFlowHandler(logger *slog.Logger, flowService service.FlowService) *FlowHandler {
	return &FlowHandler{
		flowService: flowService,
		logger:      logger,
	}
}

func (h *FlowHandler) GetByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid flow ID")
		return
	}

	f, err := h.flowService.GetFlowByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get flow", "flow_id", id, "error", err)
		RespondInternalError(c)
		return
	}
	if f == nil {
		RespondNotFound(c, "Flow not found")
		return
	}

	RespondOK(c, f)
}

// List returns the flows of a company and profile overlapping [start, end]
func (h *FlowHandler) List(c *gin.Context) {
	var query FlowQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Error("Invalid flow query", "error", err)
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	profile := shared.Profile(query.Profile)
	if !profile.IsAggregated() {
		RespondBadRequest(c, "Profile does not aggregate records")
		return
	}
	start, err := parseDay(query.Start)
	if err != nil {
		RespondBadRequest(c, "start must be YYYY-MM-DD")
		return
	}
	end, err := parseDay(query.End)
	if err != nil || end.Before(start) {
		RespondBadRequest(c, "end must be a YYYY-MM-DD date not before start")
		return
	}

	flows, err := h.flowService.GetFlowsByPeriod(c.Request.Context(), query.CompanyID, profile, flow.Kind(query.Kind), start, end)
	if err != nil {
		h.logger.Error("Failed to list flows", "company_id", query.CompanyID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, flows)
}

// Synchronize regroups a company's records into flows for the period containing the given day
func (h *FlowHandler) Synchronize(c *gin.Context) {
	companyID, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid company ID")
		return
	}

	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	at := time.Now().UTC()
	if req.At != "" {
		if at, err = parseDay(req.At); err != nil {
			RespondBadRequest(c, "at must be YYYY-MM-DD")
			return
		}
	}

	result, err := h.flowService.Synchronize(c.Request.Context(), companyID, shared.Profile(req.Profile), at)
	if err != nil {
		var invalid company.ErrInvalidSettings
		switch {
		case errors.Is(err, shared.ErrInvalidProfile):
			RespondBadRequest(c, "Profile does not aggregate records")
		case errors.As(err, &invalid), shared.IsKind(err, shared.KindConfiguration):
			RespondBadRequest(c, shared.Message(err))
		default:
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, SyncResponse{
		Created: result.Created,
		Updated: result.Updated,
		Deleted: result.Deleted,
		Skipped: result.Skipped,
	})
}
