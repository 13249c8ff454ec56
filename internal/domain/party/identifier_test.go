package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifiers(t *testing.T) {
	tests := []struct {
		name    string
		id      Identifier
		raw     string
		wantErr error
	}{
		{"siren ok", SIREN{}, "552 120 222", nil},
		{"siren checksum", SIREN{}, "552120223", ErrInvalidChecksum},
		{"siren length", SIREN{}, "55212022", ErrInvalidLength},
		{"siret ok", SIRET{}, "552 120 222 00005", nil},
		{"siret checksum", SIRET{}, "55212022200014", ErrInvalidChecksum},
		{"abn ok", ABN{}, "53 004 085 616", nil},
		{"abn checksum", ABN{}, "53004085617", ErrInvalidChecksum},
		{"abn letters", ABN{}, "5300408561A", ErrInvalidFormat},
		{"nip ok", NIP{}, "PL526-104-08-28", nil},
		{"nip checksum", NIP{}, "5261040827", ErrInvalidChecksum},
		{"cif ok", CIF{}, "RO18547290", nil},
		{"cif checksum", CIF{}, "18547291", ErrInvalidChecksum},
		{"cif too long", CIF{}, "12345678901", ErrInvalidLength},
		{"npwp 15", NPWP{}, "01.234.567.8-901.234", nil},
		{"npwp 16", NPWP{}, "0123456789012345", nil},
		{"npwp short", NPWP{}, "0123456789", ErrInvalidLength},
		{"vat ok", VAT{}, "fr 40 303265045", nil},
		{"vat no prefix", VAT{}, "303265045", ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate(tt.raw)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSchemeIDsAndCanonical(t *testing.T) {
	assert.Equal(t, "0002", SIREN{}.SchemeID())
	assert.Equal(t, "0009", SIRET{}.SchemeID())
	assert.Equal(t, "0151", ABN{}.SchemeID())
	assert.Equal(t, "18547290", CIF{}.Canonical("ro 18547290"))
	assert.Equal(t, "552120222", SIRENFromSIRET("55212022200005"))
	assert.Equal(t, "", SIRENFromSIRET("5521"))
}

func TestCheck(t *testing.T) {
	assert.Empty(t, Check(ABN{}, "ABN", "53004085616"))
	assert.Equal(t, `ABN "123" is not valid: invalid length`, Check(ABN{}, "ABN", "123"))
}
