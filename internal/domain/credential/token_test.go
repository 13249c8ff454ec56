package credential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToken_Validity(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := &Token{
		AccessToken:   "a",
		RefreshToken:  "r",
		AccessExpiry:  now.Add(10 * time.Minute),
		RefreshExpiry: now.Add(24 * time.Hour),
	}
	assert.True(t, tok.AccessValid(now, time.Minute))
	assert.False(t, tok.AccessValid(now, 15*time.Minute))
	assert.True(t, tok.RefreshValid(now))
	assert.False(t, tok.RefreshValid(now.Add(48*time.Hour)))
	assert.False(t, (&Token{}).AccessValid(now, 0))
	assert.EqualError(t, ErrTokenNotFound{CompanyID: 4, Provider: ProviderANAF}, "anaf token not found for company 4")
}
