package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/domain/credential"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// CredentialRepository implements the credential.Repository interface for PostgreSQL
type CredentialRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCredentialRepository creates a new PostgreSQL credential repository
func NewCredentialRepository(logger *slog.Logger, db *persistence.PostgresDB) credential.Repository {
	return &CredentialRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CredentialRepository) WithTx(tx pgx.Tx) credential.Repository {
	return &CredentialRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *CredentialRepository) Get(ctx context.Context, companyID int64, provider credential.Provider) (*credential.Token, error) {
	query := `
		SELECT company_id, provider, client_id, client_secret, access_token, refresh_token, access_expiry, refresh_expiry, updated_at
		FROM company_credentials
		WHERE company_id = $1 AND provider = $2
	`
	var t credential.Token
	err := r.querier.QueryRow(ctx, query, companyID, provider).Scan(
		&t.CompanyID,
		&t.Provider,
		&t.ClientID,
		&t.ClientSecret,
		&t.AccessToken,
		&t.RefreshToken,
		&t.AccessExpiry,
		&t.RefreshExpiry,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credential.ErrTokenNotFound{CompanyID: companyID, Provider: provider}
		}
		r.logger.Error("Failed to get credentials", "company_id", companyID, "provider", provider, "error", err)
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return &t, nil
}

func (r *CredentialRepository) Save(ctx context.Context, t *credential.Token) error {
	query := `
		INSERT INTO company_credentials (company_id, provider, client_id, client_secret, access_token, refresh_token,
			access_expiry, refresh_expiry, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (company_id, provider) DO UPDATE
		SET client_id = EXCLUDED.client_id, client_secret = EXCLUDED.client_secret,
			access_token = EXCLUDED.access_token, refresh_token = EXCLUDED.refresh_token,
			access_expiry = EXCLUDED.access_expiry, refresh_expiry = EXCLUDED.refresh_expiry,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.querier.Exec(ctx, query,
		t.CompanyID,
		t.Provider,
		t.ClientID,
		t.ClientSecret,
		t.AccessToken,
		t.RefreshToken,
		t.AccessExpiry,
		t.RefreshExpiry,
		t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save credentials", "company_id", t.CompanyID, "provider", t.Provider, "error", err)
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// LockCompany serializes token refreshes of a company until the transaction ends.
// It must run inside a transaction.
func (r *CredentialRepository) LockCompany(ctx context.Context, companyID int64) error {
	if _, err := r.querier.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, companyID); err != nil {
		r.logger.Error("Failed to lock company credentials", "company_id", companyID, "error", err)
		return fmt.Errorf("failed to lock company credentials: %w", err)
	}
	return nil
}
