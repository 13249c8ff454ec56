package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/company"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// CompanyRepository implements the company.Repository interface for PostgreSQL
type CompanyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCompanyRepository creates a new PostgreSQL company settings repository
func NewCompanyRepository(logger *slog.Logger, db *persistence.PostgresDB) company.Repository {
	return &CompanyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CompanyRepository) WithTx(tx pgx.Tx) company.Repository {
	return &CompanyRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *CompanyRepository) Get(ctx context.Context, companyID int64) (*company.Settings, error) {
	var (
		raw       []byte
		updatedAt time.Time
	)
	err := r.querier.QueryRow(ctx,
		`SELECT settings, updated_at FROM company_settings WHERE company_id = $1`, companyID).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return company.Defaults(companyID), nil
		}
		r.logger.Error("Failed to get company settings", "company_id", companyID, "error", err)
		return nil, fmt.Errorf("failed to get company settings: %w", err)
	}

	s := company.Defaults(companyID)
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("failed to decode company settings: %w", err)
	}
	s.CompanyID = companyID
	s.UpdatedAt = updatedAt
	return s, nil
}

func (r *CompanyRepository) Save(ctx context.Context, s *company.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode company settings: %w", err)
	}
	query := `
		INSERT INTO company_settings (company_id, settings, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.querier.Exec(ctx, query, s.CompanyID, raw, s.UpdatedAt); err != nil {
		r.logger.Error("Failed to save company settings", "company_id", s.CompanyID, "error", err)
		return fmt.Errorf("failed to save company settings: %w", err)
	}
	return nil
}
