package adapter

import (
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
)

// extensionExtractor copies profile data into the view and reports missing mandatory fields.
type extensionExtractor func(rec *record.SourceRecord, view *View) []string

var extractors = map[shared.Profile]extensionExtractor{
	shared.ProfileFRCIUS:       extractFR,
	shared.ProfileROETransport: extractROTransport,
	shared.ProfileIDQRIS:       extractQRIS,
	shared.ProfileJOUBL:        extractJO,
}

var euCountries = map[string]bool{
	"AT": true, "BE": true, "BG": true, "CY": true, "CZ": true, "DE": true, "DK": true,
	"EE": true, "ES": true, "FI": true, "FR": true, "GR": true, "HR": true, "HU": true,
	"IE": true, "IT": true, "LT": true, "LU": true, "LV": true, "MT": true, "NL": true,
	"PL": true, "PT": true, "RO": true, "SE": true, "SI": true, "SK": true,
}

// IsEU reports whether country is an EU member state.
func IsEU(country string) bool {
	return euCountries[country]
}

// DeriveBillingMode returns the French billing mode of rec, e.g. B1 or S4.
func DeriveBillingMode(rec *record.SourceRecord) string {
	if fr := rec.Extensions.FR; fr != nil && fr.BillingMode != "" {
		return fr.BillingMode
	}
	prefix := "B"
	if rec.Partner.IsPublicSector {
		prefix = "S"
	}
	customer, company := rec.Partner.CountryCode, rec.Company.CountryCode
	switch {
	case !euCountries[customer]:
		return prefix + "4"
	case customer != company:
		return prefix + "2"
	default:
		return prefix + "1"
	}
}

func extractFR(rec *record.SourceRecord, view *View) []string {
	view.BillingMode = DeriveBillingMode(rec)
	if view.Extensions.FR == nil {
		view.Extensions.FR = &record.FRExtension{}
	}
	return nil
}

func extractROTransport(rec *record.SourceRecord, view *View) []string {
	if rec.Extensions.ROTransport == nil {
		return []string{"extensions.ro_transport"}
	}
	return nil
}

func extractQRIS(rec *record.SourceRecord, view *View) []string {
	ext := rec.Extensions.QRIS
	if ext == nil {
		view.Extensions.QRIS = &record.QRISExtension{Originator: "invoice"}
	}
	return nil
}

func extractJO(rec *record.SourceRecord, view *View) []string {
	if rec.Extensions.JO == nil {
		view.Extensions.JO = &record.JOExtension{SupplyType: "income"}
	}
	return nil
}
