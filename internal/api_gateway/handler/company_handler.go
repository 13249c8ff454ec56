package handler

import (
	"errors"
	"log/slog"

	"github.com/edocument-exchange/internal/api_gateway/service"
	"github.com/edocument-exchange/internal/domain/company"
	"github.com/gin-gonic/gin"
)

// CompanyHandler handles HTTP requests for company reporting settings
type CompanyHandler struct {
	companyService service.CompanyService
	logger         *slog.Logger
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(logger *slog.Logger, companyService service.CompanyService) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
		logger:         logger,
	}
}

func (h *CompanyHandler) GetSettings(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid company ID")
		return
	}

	settings, err := h.companyService.GetSettings(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get company settings", "company_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, settings)
}

func (h *CompanyHandler) SaveSettings(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		RespondBadRequest(c, "Invalid company ID")
		return
	}

	settings := company.Defaults(id)
	if err := c.ShouldBindJSON(settings); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	settings.CompanyID = id

	if err := h.companyService.SaveSettings(c.Request.Context(), settings); err != nil {
		var invalid company.ErrInvalidSettings
		if errors.As(err, &invalid) {
			RespondBadRequest(c, invalid.Reason)
			return
		}
		h.logger.Error("Failed to save company settings", "company_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, settings)
}
