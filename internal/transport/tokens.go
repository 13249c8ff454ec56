package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/credential"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"golang.org/x/oauth2"
)

const (
	// accessMargin renews access tokens a little before they expire.
	accessMargin = 5 * time.Minute
	// refreshLifetime is how long ANAF accepts a refresh token after issuing it.
	refreshLifetime = 365 * 24 * time.Hour
)

// TokenSource hands out a usable access token for a company.
type TokenSource interface {
	AccessToken(ctx context.Context, companyID int64) (string, error)
}

// CredentialTokens reads company tokens from the credential store and refreshes them
// through the OAuth2 token endpoint. Refreshes of one company are serialized by an
// advisory lock held for the transaction that saves the new pair.
type CredentialTokens struct {
	uow      persistence.UnitOfWork
	repo     credential.Repository
	provider credential.Provider
	tokenURL string
	client   *Client
	logger   *slog.Logger
	now      func() time.Time
}

func NewCredentialTokens(
	logger *slog.Logger,
	uow persistence.UnitOfWork,
	repo credential.Repository,
	provider credential.Provider,
	tokenURL string,
	client *Client,
) *CredentialTokens {
	return &CredentialTokens{
		uow:      uow,
		repo:     repo,
		provider: provider,
		tokenURL: tokenURL,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *CredentialTokens) AccessToken(ctx context.Context, companyID int64) (string, error) {
	var access string
	err := s.uow.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.repo.WithTx(tx)
		if err := repo.LockCompany(ctx, companyID); err != nil {
			return err
		}
		token, err := repo.Get(ctx, companyID, s.provider)
		if err != nil {
			var missing credential.ErrTokenNotFound
			if errors.As(err, &missing) {
				return shared.NewError(shared.KindConfiguration, missing.Error(), nil)
			}
			return err
		}

		now := s.now()
		if token.AccessValid(now, accessMargin) {
			access = token.AccessToken
			return nil
		}
		if !token.RefreshValid(now) {
			return shared.NewError(shared.KindAuth, "the refresh token has expired, the company must authenticate again", nil)
		}

		refreshed, err := s.refresh(ctx, token)
		if err != nil {
			return err
		}
		token.AccessToken = refreshed.AccessToken
		token.AccessExpiry = refreshed.Expiry
		if refreshed.RefreshToken != "" && refreshed.RefreshToken != token.RefreshToken {
			token.RefreshToken = refreshed.RefreshToken
			token.RefreshExpiry = now.Add(refreshLifetime)
		}
		token.UpdatedAt = now
		if err := repo.Save(ctx, token); err != nil {
			return err
		}
		s.logger.Info("Access token refreshed", "company_id", companyID, "provider", s.provider, "expiry", token.AccessExpiry)
		access = token.AccessToken
		return nil
	})
	if err != nil {
		return "", err
	}
	return access, nil
}

func (s *CredentialTokens) refresh(ctx context.Context, token *credential.Token) (*oauth2.Token, error) {
	cfg := &oauth2.Config{
		ClientID:     token.ClientID,
		ClientSecret: token.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: s.tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
	if hc := s.client.HTTPClient(); hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	}
	expired := &oauth2.Token{RefreshToken: token.RefreshToken, Expiry: time.Unix(1, 0)}

	fresh, err := cfg.TokenSource(ctx, expired).Token()
	if err != nil {
		s.logger.Error("Failed to refresh access token", "company_id", token.CompanyID, "error", err)
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) && retrieve.Response != nil && retrieve.Response.StatusCode < 500 {
			return nil, shared.NewError(shared.KindAuth, "the token endpoint refused the refresh token", err)
		}
		return nil, shared.NewError(shared.KindTransport, "failed to refresh the access token", err)
	}
	return fresh, nil
}
