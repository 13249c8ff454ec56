// Package credential stores per-company upstream OAuth tokens.
package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type Provider string

const (
	ProviderANAF     Provider = "anaf"
	ProviderJoFotara Provider = "jofotara" // client id and secret key, no OAuth flow
	ProviderJPK      Provider = "jpk"
)

// Token holds the OAuth state of a company for one provider.
type Token struct {
	CompanyID     int64     `json:"company_id"`
	Provider      Provider  `json:"provider"`
	ClientID      string    `json:"client_id"`
	ClientSecret  string    `json:"-"`
	AccessToken   string    `json:"-"`
	RefreshToken  string    `json:"-"`
	AccessExpiry  time.Time `json:"access_expiry"`
	RefreshExpiry time.Time `json:"refresh_expiry"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AccessValid reports whether the access token can be used at now, with a safety margin.
func (t *Token) AccessValid(now time.Time, margin time.Duration) bool {
	return t.AccessToken != "" && now.Add(margin).Before(t.AccessExpiry)
}

// RefreshValid reports whether the refresh token is still accepted upstream.
func (t *Token) RefreshValid(now time.Time) bool {
	return t.RefreshToken != "" && now.Before(t.RefreshExpiry)
}

// Repository defines credential persistence operations
type Repository interface {
	Get(ctx context.Context, companyID int64, provider Provider) (*Token, error)
	Save(ctx context.Context, token *Token) error

	// LockCompany takes a transaction scoped advisory lock serializing token refresh
	LockCompany(ctx context.Context, companyID int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTokenNotFound indicates a company without credentials for a provider
type ErrTokenNotFound struct {
	CompanyID int64
	Provider  Provider
}

func (e ErrTokenNotFound) Error() string {
	return fmt.Sprintf("%s token not found for company %d", e.Provider, e.CompanyID)
}
