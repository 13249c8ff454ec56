package ubl

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/edocument-exchange/internal/domain/party"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var notePattern = regexp.MustCompile(`(?s)^#([A-Z]{3})#(.*)$`)

var knownNoteCodes = func() map[string]bool {
	m := map[string]bool{}
	for _, code := range NoteCodes {
		m[code] = true
	}
	return m
}()

// ImportFR reads a French CIUS invoice or credit note back into a draft record.
// Subject coded notes land in the French extension; notes without a known code
// are dropped. Supplier and customer become partner and company of a vendor bill.
func ImportFR(data []byte) (*record.SourceRecord, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, shared.NewError(shared.KindSerialization, "failed to parse UBL document", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, shared.NewError(shared.KindSerialization, "UBL document has no root element", nil)
	}

	rec := &record.SourceRecord{
		Type:     record.TypeInInvoice,
		State:    record.StateDraft,
		Name:     childText(root, "cbc:ID"),
		Currency: childText(root, "cbc:DocumentCurrencyCode"),
	}
	if root.Tag == "CreditNote" || childText(root, "cbc:InvoiceTypeCode") == typeCreditNote {
		rec.Type = record.TypeInRefund
	}

	var err error
	if rec.IssueDate, err = parseDate(childText(root, "cbc:IssueDate")); err != nil {
		return nil, err
	}
	if rec.DueDate, err = parseDate(childText(root, "cbc:DueDate")); err != nil {
		return nil, err
	}

	fr := &record.FRExtension{
		BillingMode:    childText(root, "cbc:ProfileID"),
		BuyerReference: childText(root, "cbc:BuyerReference"),
	}
	if tp := childText(root, "cbc:TaxPointDate"); tp != "" {
		t, err := parseDate(tp)
		if err != nil {
			return nil, err
		}
		fr.TaxPointDate = &t
	}
	for _, note := range root.SelectElements("cbc:Note") {
		match := notePattern.FindStringSubmatch(strings.TrimSpace(note.Text()))
		if match == nil || !knownNoteCodes[match[1]] {
			continue
		}
		if fr.Notes == nil {
			fr.Notes = map[string]string{}
		}
		fr.Notes[match[1]] = strings.TrimSpace(match[2])
	}
	if payee := root.FindElement("./cac:PayeeParty"); payee != nil {
		fr.PayeeName = childText(payee, "cac:PartyName/cbc:Name")
		fr.PayeeSIRET = childText(payee, "cac:PartyIdentification/cbc:ID")
	}
	if means := root.FindElement("./cac:PaymentMeans"); means != nil {
		fr.MandateID = childText(means, "cac:PaymentMandate/cbc:ID")
		fr.CardPAN = childText(means, "cac:CardAccount/cbc:PrimaryAccountNumberID")
	}
	rec.Extensions.FR = fr

	if el := root.FindElement("./cac:AccountingSupplierParty/cac:Party"); el != nil {
		rec.Partner = importParty(el)
	}
	if el := root.FindElement("./cac:AccountingCustomerParty/cac:Party"); el != nil {
		rec.Company = importParty(el)
	}
	if ref := root.FindElement("./cac:BillingReference/cac:InvoiceDocumentReference"); ref != nil {
		rec.Origin = &record.Origin{Name: childText(ref, "cbc:ID")}
		if rec.Origin.IssueDate, err = parseDate(childText(ref, "cbc:IssueDate")); err != nil {
			return nil, err
		}
	}

	lines := root.SelectElements("cac:InvoiceLine")
	lines = append(lines, root.SelectElements("cac:CreditNoteLine")...)
	for _, el := range lines {
		line, err := importLine(el)
		if err != nil {
			return nil, err
		}
		rec.Lines = append(rec.Lines, line)
	}
	return rec, nil
}

func importParty(el *etree.Element) record.Party {
	p := record.Party{
		Name:        childText(el, "cac:PartyName/cbc:Name"),
		VAT:         childText(el, "cac:PartyTaxScheme/cbc:CompanyID"),
		Street:      childText(el, "cac:PostalAddress/cbc:StreetName"),
		Street2:     childText(el, "cac:PostalAddress/cbc:AdditionalStreetName"),
		City:        childText(el, "cac:PostalAddress/cbc:CityName"),
		Zip:         childText(el, "cac:PostalAddress/cbc:PostalZone"),
		StateCode:   childText(el, "cac:PostalAddress/cbc:CountrySubentity"),
		CountryCode: childText(el, "cac:PostalAddress/cac:Country/cbc:IdentificationCode"),
		Phone:       childText(el, "cac:Contact/cbc:Telephone"),
		Email:       childText(el, "cac:Contact/cbc:ElectronicMail"),
		IsCompany:   true,
	}
	if p.Name == "" {
		p.Name = childText(el, "cac:PartyLegalEntity/cbc:RegistrationName")
	}
	// The electronic address holds the SIRET when there is one, the legal entity only the SIREN.
	if endpoint := el.FindElement("./cbc:EndpointID"); endpoint != nil && endpoint.SelectAttrValue("schemeID", "") == (party.SIRET{}).SchemeID() {
		p.CompanyRegistry = strings.TrimSpace(endpoint.Text())
	} else {
		p.CompanyRegistry = childText(el, "cac:PartyLegalEntity/cbc:CompanyID")
	}
	return p
}

func importLine(el *etree.Element) (record.Line, error) {
	quantity := childText(el, "cbc:InvoicedQuantity")
	unit := el.FindElement("./cbc:InvoicedQuantity")
	if quantity == "" {
		quantity = childText(el, "cbc:CreditedQuantity")
		unit = el.FindElement("./cbc:CreditedQuantity")
	}
	line := record.Line{
		Name:        childText(el, "cac:Item/cbc:Name"),
		ProductCode: childText(el, "cac:Item/cac:SellersItemIdentification/cbc:ID"),
		Kind:        record.LineProduct,
	}
	if unit != nil {
		line.UnitCode = unit.SelectAttrValue("unitCode", "")
	}
	var err error
	if line.Quantity, err = parseAmount(quantity); err != nil {
		return line, err
	}
	if line.PriceUnit, err = parseAmount(childText(el, "cac:Price/cbc:PriceAmount")); err != nil {
		return line, err
	}
	if factor := childText(el, "cac:AllowanceCharge/cbc:MultiplierFactorNumeric"); factor != "" {
		if line.Discount, err = parseAmount(factor); err != nil {
			return line, err
		}
		if childText(el, "cac:AllowanceCharge/cbc:ChargeIndicator") == "true" {
			line.Discount = line.Discount.Neg()
		}
	}
	if category := el.FindElement("./cac:Item/cac:ClassifiedTaxCategory"); category != nil {
		rate, err := parseAmount(childText(category, "cbc:Percent"))
		if err != nil {
			return line, err
		}
		line.Taxes = []record.Tax{{
			Name:       fmt.Sprintf("VAT %s%%", rate.String()),
			AmountType: record.TaxPercent,
			Amount:     rate,
			Exempt:     childText(category, "cbc:ID") == "Z",
		}}
	}
	return line, nil
}

func childText(el *etree.Element, path string) string {
	found := el.FindElement("./" + path)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, shared.NewError(shared.KindSerialization, fmt.Sprintf("invalid date %q", s), err)
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, shared.NewError(shared.KindSerialization, fmt.Sprintf("invalid amount %q", s), err)
	}
	return d, nil
}
