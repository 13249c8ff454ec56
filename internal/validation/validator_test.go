package validation

import (
	"testing"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/record/recordtest"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewOf(t *testing.T, rec *record.SourceRecord, profile shared.Profile) *adapter.View {
	t.Helper()
	v, err := adapter.Extract(rec, profile)
	require.NoError(t, err)
	return v
}

func TestValidate_BucharestSector(t *testing.T) {
	tests := []struct {
		name    string
		city    string
		wantErr bool
	}{
		{"sector with space", "Sector 3", false},
		{"sector upper", "SECTOR6", false},
		{"sector out of range", "Sector 7", true},
		{"plain city", "Bucuresti", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(viewOf(t, recordtest.ROInvoice(tt.city), shared.ProfileROCIUS))
			if !tt.wantErr {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "city name must be SECTORX where X∈1..6")
		})
	}
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	rec := recordtest.ROInvoice("Sector 7")
	rec.Partner.Street = ""
	rec.Company.VAT = "RO18547291"
	rec.Type = record.TypeOutRefund

	errs := Validate(viewOf(t, rec, shared.ProfileROCIUS))
	assert.Len(t, errs, 4)
	assert.Contains(t, errs, "a refund must reference the original invoice")
	assert.Contains(t, errs, "customer street is missing")
}

func TestValidate_ReceiptAlreadySent(t *testing.T) {
	rec := recordtest.ROInvoice("Sector 1")
	rec.Type = record.TypeReceipt
	rec.EDIState = record.EDIStateSent
	assert.Contains(t, Validate(viewOf(t, rec, shared.ProfileROCIUS)), "this receipt has already been sent to ANAF")
}

func TestValidate_FrenchInvoice(t *testing.T) {
	assert.Empty(t, Validate(viewOf(t, recordtest.FRInvoice(), shared.ProfileFRCIUS)))

	rec := recordtest.FRInvoice()
	rec.Company.CompanyRegistry = "55212022200014"
	rec.Partner.Zip = "6900"
	errs := Validate(viewOf(t, rec, shared.ProfileFRCIUS))
	assert.Len(t, errs, 2)
}

func TestValidate_JordanPrecisionAndCurrency(t *testing.T) {
	assert.Empty(t, Validate(viewOf(t, recordtest.JOInvoice(), shared.ProfileJOUBL)))

	rec := recordtest.JOInvoice()
	rec.Currency = "USD"
	rec.Lines[0].PriceUnit = recordtest.D("1.1234567891")
	errs := Validate(viewOf(t, rec, shared.ProfileJOUBL))
	assert.Equal(t, []string{
		"line 1: unit price 1.1234567891 has more than 9 decimals",
		"JoFotara invoices must be issued in JOD, not USD",
	}, errs)
}

func TestValidate_PrecisionSkipsRoundingLines(t *testing.T) {
	rec := recordtest.FRInvoice()
	rec.Lines = append(rec.Lines, record.Line{
		Name: "Rounding", Quantity: recordtest.D("1"), PriceUnit: recordtest.D("0.004"), Kind: record.LineRounding,
	})
	assert.Empty(t, Validate(viewOf(t, rec, shared.ProfileFRCIUS)))
}

func TestValidate_Australia(t *testing.T) {
	rec := recordtest.AUBill(1, "53004085616", "909.09", "10")
	assert.Empty(t, Validate(viewOf(t, rec, shared.ProfileAUTPAR)))

	rec.Partner.VAT = "53004085617"
	rec.Partner.StateCode = "XYZ"
	rec.Partner.CountryCode = "NZ"
	errs := Validate(viewOf(t, rec, shared.ProfileAUTPAR))
	assert.Len(t, errs, 3)
	assert.Contains(t, errs, "payee is overseas so its postcode must be 9999")
}

func TestValidate_ETransport(t *testing.T) {
	assert.Empty(t, Validate(viewOf(t, recordtest.Picking(1), shared.ProfileROETransport)))

	rec := recordtest.Picking(2)
	ext := rec.Extensions.ROTransport
	ext.Trailer1 = "B123ABC"
	ext.Scope = "201"
	ext.Carrier.City = ""
	ext.Carrier.Street = ""
	ext.End = record.Location{Type: record.LocationCustoms}
	rec.Lines[0].TariffCode = ""

	errs := Validate(viewOf(t, rec, shared.ProfileROETransport))
	assert.Equal(t, []string{
		"The delivery carrier partner is missing following fields: City, Street",
		"Operation scope 201 is not allowed for operation type 20.",
		"Vehicle number and trailer number fields must be unique.",
		"Product Steel beams is missing the intrastat code value.",
		"Location type customs is not allowed under 'End Location' for operation type 20",
	}, errs)
}

func TestValidate_ETransportMissingOperationStopsEarly(t *testing.T) {
	rec := recordtest.Picking(3)
	rec.Extensions.ROTransport.OperationType = ""
	rec.Extensions.ROTransport.VehicleNumber = ""
	assert.Equal(t, []string{"Operation type is missing."}, Validate(viewOf(t, rec, shared.ProfileROETransport)))
}

func TestValidate_ETransportLocationAddress(t *testing.T) {
	rec := recordtest.Picking(4)
	rec.Extensions.ROTransport.Start.Address.Zip = ""
	rec.Extensions.ROTransport.Start.Address.Street = ""
	errs := Validate(viewOf(t, rec, shared.ProfileROETransport))
	assert.Equal(t, []string{"'Start Location' is missing following fields: Street, Postal Code"}, errs)
}
