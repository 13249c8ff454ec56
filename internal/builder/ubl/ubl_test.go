package ubl

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/record/recordtest"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var buildTime = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func build(t *testing.T, rec *record.SourceRecord, profile shared.Profile) string {
	t.Helper()
	view, err := adapter.Extract(rec, profile)
	require.NoError(t, err)
	p, err := ForProfile(profile)
	require.NoError(t, err)
	out, err := Build(p, view, buildTime)
	require.NoError(t, err)
	return string(out)
}

func TestProfiles_ParentChain(t *testing.T) {
	assert.Same(t, BIS3, RO.Parent)
	assert.Same(t, UBL21, BIS3.Parent)
	assert.Same(t, UBL21, FR.Parent)
	assert.Same(t, UBL21, JO.Parent)
	assert.Nil(t, UBL21.Parent)

	_, err := ForProfile(shared.ProfileAUTPAR)
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindConfiguration))
}

func TestBuild_FrenchDomesticInvoice(t *testing.T) {
	xml := build(t, recordtest.FRInvoice(), shared.ProfileFRCIUS)

	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, xml, `<cbc:CustomizationID>urn:cen.eu:en16931:2017</cbc:CustomizationID>`)
	assert.Contains(t, xml, `<cbc:ProfileID>B1</cbc:ProfileID>`)
	assert.Contains(t, xml, `<cbc:Note>#PMT#En cas de retard de paiement`)
	assert.Equal(t, 3, strings.Count(xml, "<cbc:Note>"))
	assert.Contains(t, xml, `<cbc:EndpointID schemeID="0009">55212022200005</cbc:EndpointID>`)
	assert.Contains(t, xml, `<cbc:CompanyID schemeID="0002">552120222</cbc:CompanyID>`)
	assert.Contains(t, xml, `<cbc:TaxAmount currencyID="EUR">20.00</cbc:TaxAmount>`)
	assert.Contains(t, xml, `<cbc:PayableAmount currencyID="EUR">120.00</cbc:PayableAmount>`)
	assert.Contains(t, xml, `<cbc:Percent>20</cbc:Percent>`)
}

func TestBuild_FrenchNotesOrder(t *testing.T) {
	rec := recordtest.FRInvoice()
	rec.Extensions.FR = &record.FRExtension{Notes: map[string]string{
		"TXD": "Membre d'un assujetti unique",
		"PMT": "Indemnité de 40€",
		"AAI": "Commande 42",
	}}

	notes := FrenchNotes(rec.Extensions.FR)
	var codes []string
	for _, n := range notes {
		codes = append(codes, n.Code)
	}
	assert.Equal(t, []string{"AAB", "AAI", "PMT", "PMD", "TXD"}, codes)
	assert.Equal(t, MandatoryNotes[2].Default, notes[0].Text)
	assert.Equal(t, "Indemnité de 40€", notes[2].Text)
}

func TestBuild_RomanianBucharestPartner(t *testing.T) {
	xml := build(t, recordtest.ROInvoice("Sector 3"), shared.ProfileROCIUS)

	assert.Contains(t, xml, `<cbc:CustomizationID>urn:cen.eu:en16931:2017#compliant#urn:efactura.mfinante.ro:CIUS-RO:1.0.1</cbc:CustomizationID>`)
	assert.NotContains(t, xml, "UBLVersionID")
	assert.Contains(t, xml, `<cbc:CityName>SECTOR3</cbc:CityName>`)
	assert.Contains(t, xml, `<cbc:CountrySubentity>RO-B</cbc:CountrySubentity>`)
	assert.Contains(t, xml, `<cbc:CountrySubentity>RO-CJ</cbc:CountrySubentity>`)
	assert.Contains(t, xml, `<cbc:EndpointID schemeID="9947">RO18547290</cbc:EndpointID>`)

	// 2 x 2500 with 5% discount
	assert.Contains(t, xml, `<cbc:Amount currencyID="RON">250.00</cbc:Amount>`)
	assert.Contains(t, xml, `<cbc:BaseAmount currencyID="RON">5000.00</cbc:BaseAmount>`)
	assert.Contains(t, xml, `<cbc:TaxAmount currencyID="RON">902.50</cbc:TaxAmount>`)
	assert.Contains(t, xml, `<cbc:PayableAmount currencyID="RON">5652.50</cbc:PayableAmount>`)
	assert.NotContains(t, xml, "RoundingAmount")
}

func TestBuild_JordanNineDecimals(t *testing.T) {
	xml := build(t, recordtest.JOInvoice(), shared.ProfileJOUBL)

	assert.Contains(t, xml, `<cbc:ProfileID>reporting:1.0</cbc:ProfileID>`)
	assert.Contains(t, xml, `<cbc:InvoiceTypeCode name="012">388</cbc:InvoiceTypeCode>`)
	assert.Contains(t, xml, `<cbc:PriceAmount currencyID="JOD">7.123456789</cbc:PriceAmount>`)
	assert.Contains(t, xml, `<cbc:Amount currencyID="JOD">2.137037037</cbc:Amount>`)
	assert.Contains(t, xml, `<cbc:LineExtensionAmount currencyID="JOD">19.233333330</cbc:LineExtensionAmount>`)
	assert.Contains(t, xml, `<cbc:TaxInclusiveAmount currencyID="JOD">22.310666663</cbc:TaxInclusiveAmount>`)
	assert.Contains(t, xml, `<cbc:UUID>1</cbc:UUID>`)

	amounts := regexp.MustCompile(`currencyID="JOD">(-?\d+(?:\.(\d+))?)<`).FindAllStringSubmatch(xml, -1)
	require.NotEmpty(t, amounts)
	for _, m := range amounts {
		assert.LessOrEqual(t, len(m[2]), 9, m[1])
		assert.GreaterOrEqual(t, len(m[2]), 3, m[1])
	}

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	sum := decimal.Zero
	for _, line := range doc.Root().SelectElements("cac:InvoiceLine") {
		sum = sum.Add(decimal.RequireFromString(line.SelectElement("cbc:LineExtensionAmount").Text()))
	}
	total := doc.Root().FindElement("./cac:LegalMonetaryTotal/cbc:LineExtensionAmount")
	require.NotNil(t, total)
	assert.True(t, sum.Equal(decimal.RequireFromString(total.Text())))
}

func TestBuild_JordanFixedTaxOnLineOnly(t *testing.T) {
	rec := recordtest.JOInvoice()
	rec.Lines[0].Taxes = append(rec.Lines[0].Taxes, record.Tax{
		Name: "Stamp", AmountType: record.TaxFixed, Amount: recordtest.D("0.5"),
	})
	xml := build(t, rec, shared.ProfileJOUBL)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	docTax := doc.Root().FindElement("./cac:TaxTotal/cbc:TaxAmount")
	require.NotNil(t, docTax)
	assert.Equal(t, "3.077333333", docTax.Text())
	assert.Nil(t, doc.Root().FindElement("./cac:TaxTotal/cac:TaxSubtotal"))

	lineTax := doc.Root().FindElement("./cac:InvoiceLine/cac:TaxTotal/cbc:TaxAmount")
	require.NotNil(t, lineTax)
	assert.Equal(t, "4.577333333", lineTax.Text())
	assert.Contains(t, xml, `schemeID="UN/ECE 5153">OTH</cbc:ID>`)
	assert.Contains(t, xml, `<cbc:TaxInclusiveAmount currencyID="JOD">23.810666663</cbc:TaxInclusiveAmount>`)
	assert.Contains(t, xml, `<cbc:PayableAmount currencyID="JOD">23.810666663</cbc:PayableAmount>`)
}

func TestBuild_JordanRefund(t *testing.T) {
	rec := recordtest.JOInvoice()
	rec.Type = record.TypeOutRefund
	rec.Name = "RINV/JO/0001"
	rec.Extensions.JO.RefundReason = "Damaged goods"
	rec.Origin = &record.Origin{Name: "INV/JO/0001", UUID: "origin-uuid", Total: recordtest.D("22.31")}
	xml := build(t, rec, shared.ProfileJOUBL)

	assert.True(t, strings.Contains(xml, "<Invoice "))
	assert.Contains(t, xml, `<cbc:InvoiceTypeCode name="012">381</cbc:InvoiceTypeCode>`)
	assert.Contains(t, xml, `<cbc:InstructionNote>INV/JO/0001: Damaged goods</cbc:InstructionNote>`)
	assert.Contains(t, xml, `<cbc:DocumentDescription>22.310000000</cbc:DocumentDescription>`)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	assert.NotNil(t, doc.Root().FindElement("./cac:TaxTotal/cac:TaxSubtotal"))
}

func TestBuild_RefundIsCreditNote(t *testing.T) {
	rec := recordtest.FRInvoice()
	rec.Type = record.TypeOutRefund
	rec.Origin = &record.Origin{Name: "FA2024/0001", IssueDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}
	xml := build(t, rec, shared.ProfileFRCIUS)

	assert.Contains(t, xml, `<CreditNote xmlns="urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"`)
	assert.Contains(t, xml, `<cbc:CreditNoteTypeCode>381</cbc:CreditNoteTypeCode>`)
	assert.Contains(t, xml, `<cbc:CreditedQuantity unitCode="C62">1</cbc:CreditedQuantity>`)
	assert.NotContains(t, xml, "DueDate")
	assert.NotContains(t, xml, "PaymentMeans")
	assert.Contains(t, xml, "<cac:BillingReference>")
}

func TestBuild_Idempotent(t *testing.T) {
	for _, tc := range []struct {
		name    string
		rec     func() *record.SourceRecord
		profile shared.Profile
	}{
		{"fr", recordtest.FRInvoice, shared.ProfileFRCIUS},
		{"ro", func() *record.SourceRecord { return recordtest.ROInvoice("Sector 1") }, shared.ProfileROCIUS},
		{"jo", recordtest.JOInvoice, shared.ProfileJOUBL},
	} {
		t.Run(tc.name, func(t *testing.T) {
			first := build(t, tc.rec(), tc.profile)
			second := build(t, tc.rec(), tc.profile)
			assert.Equal(t, first, second)
		})
	}
}

func TestImportFR_RoundTrip(t *testing.T) {
	rec := recordtest.FRInvoice()
	taxPoint := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	rec.Extensions.FR = &record.FRExtension{
		BuyerReference: "PO-778",
		TaxPointDate:   &taxPoint,
		Notes: map[string]string{
			"AAI": "Livraison sur site",
			"PMT": "Indemnité forfaitaire de 40€",
		},
		MandateID: "MANDATE-1",
	}
	xml := build(t, rec, shared.ProfileFRCIUS)

	imported, err := ImportFR([]byte(xml))
	require.NoError(t, err)

	assert.Equal(t, rec.Name, imported.Name)
	assert.Equal(t, record.TypeInInvoice, imported.Type)
	assert.Equal(t, "EUR", imported.Currency)
	assert.True(t, rec.IssueDate.Equal(imported.IssueDate))
	assert.True(t, rec.DueDate.Equal(imported.DueDate))

	fr := imported.Extensions.FR
	require.NotNil(t, fr)
	assert.Equal(t, "B1", fr.BillingMode)
	assert.Equal(t, "PO-778", fr.BuyerReference)
	require.NotNil(t, fr.TaxPointDate)
	assert.True(t, taxPoint.Equal(*fr.TaxPointDate))
	assert.Equal(t, "MANDATE-1", fr.MandateID)
	assert.Equal(t, map[string]string{
		"AAI": "Livraison sur site",
		"PMT": "Indemnité forfaitaire de 40€",
		"PMD": MandatoryNotes[1].Default,
		"AAB": MandatoryNotes[2].Default,
	}, fr.Notes)

	assert.Equal(t, "55212022200005", imported.Partner.CompanyRegistry)
	assert.Equal(t, "FR40552120222", imported.Partner.VAT)
	assert.Equal(t, "552120222", imported.Company.CompanyRegistry)
	require.Len(t, imported.Lines, 1)
	assert.True(t, imported.Lines[0].PriceUnit.Equal(recordtest.D("100")))
	assert.True(t, imported.Lines[0].Taxes[0].Amount.Equal(recordtest.D("20")))

	assert.Equal(t, FrenchNotes(rec.Extensions.FR), FrenchNotes(fr))
}

func TestImportFR_Malformed(t *testing.T) {
	_, err := ImportFR([]byte("<Invoice><cbc:ID>"))
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindSerialization))
}

func TestBuild_LineAllowanceCharge(t *testing.T) {
	tests := []struct {
		name       string
		record     func() *record.SourceRecord
		profile    shared.Profile
		discount   string
		wantCharge string
		wantFactor string
		wantAmount string
		wantBase   string
	}{
		{
			name:       "romanian discount",
			record:     func() *record.SourceRecord { return recordtest.ROInvoice("Sector 3") },
			profile:    shared.ProfileROCIUS,
			discount:   "5",
			wantCharge: "false",
			wantFactor: "5",
			wantAmount: "250.00",
			wantBase:   "5000.00",
		},
		{
			name:       "romanian surcharge",
			record:     func() *record.SourceRecord { return recordtest.ROInvoice("Sector 3") },
			profile:    shared.ProfileROCIUS,
			discount:   "-5",
			wantCharge: "true",
			wantFactor: "5",
			wantAmount: "250.00",
			wantBase:   "5000.00",
		},
		{
			name:       "french surcharge",
			record:     recordtest.FRInvoice,
			profile:    shared.ProfileFRCIUS,
			discount:   "-5",
			wantCharge: "true",
			wantFactor: "5",
			wantAmount: "5.00",
			wantBase:   "100.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.record()
			rec.Lines[0].Discount = recordtest.D(tt.discount)

			doc := etree.NewDocument()
			require.NoError(t, doc.ReadFromString(build(t, rec, tt.profile)))
			charge := doc.Root().FindElement("./cac:InvoiceLine/cac:AllowanceCharge")
			require.NotNil(t, charge)

			assert.Equal(t, tt.wantCharge, charge.SelectElement("cbc:ChargeIndicator").Text())
			assert.Equal(t, tt.wantFactor, charge.SelectElement("cbc:MultiplierFactorNumeric").Text())
			assert.Equal(t, tt.wantAmount, charge.SelectElement("cbc:Amount").Text())
			assert.Equal(t, tt.wantBase, charge.SelectElement("cbc:BaseAmount").Text())
		})
	}
}

func TestBuild_NoAllowanceChargeWithoutDiscount(t *testing.T) {
	xml := build(t, recordtest.FRInvoice(), shared.ProfileFRCIUS)
	assert.NotContains(t, xml, "cac:AllowanceCharge")
}

func TestProfile_PriceRoundsToPrecision(t *testing.T) {
	assert.Equal(t, "12.35", RO.Price(recordtest.D("12.3456")))
	assert.Equal(t, "2500.00", RO.Price(recordtest.D("2500")))
	assert.Equal(t, "7.123456789", JO.Price(recordtest.D("7.123456789")))
}

func TestImportFR_SurchargeKeepsSign(t *testing.T) {
	rec := recordtest.FRInvoice()
	rec.Lines[0].Discount = recordtest.D("-5")

	imported, err := ImportFR([]byte(build(t, rec, shared.ProfileFRCIUS)))
	require.NoError(t, err)
	require.Len(t, imported.Lines, 1)
	assert.Equal(t, "-5", imported.Lines[0].Discount.String())
}
