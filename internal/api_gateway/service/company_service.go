package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/company"
)

// CompanyServiceImpl implements the CompanyService interface
type CompanyServiceImpl struct {
	companyRepo company.Repository
	logger      *slog.Logger
}

// NewCompanyService creates a new company service
func NewCompanyService(logger *slog.Logger, companyRepo company.Repository) CompanyService {
	return &CompanyServiceImpl{
		companyRepo: companyRepo,
		logger:      logger,
	}
}

func (s *CompanyServiceImpl) GetSettings(ctx context.Context, companyID int64) (*company.Settings, error) {
	return s.companyRepo.Get(ctx, companyID)
}

// SaveSettings validates and stores the settings. Returns company.ErrInvalidSettings on rejection
func (s *CompanyServiceImpl) SaveSettings(ctx context.Context, settings *company.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now().UTC()
	if err := s.companyRepo.Save(ctx, settings); err != nil {
		s.logger.Error("Failed to save company settings", "company_id", settings.CompanyID, "error", err)
		return err
	}
	return nil
}
