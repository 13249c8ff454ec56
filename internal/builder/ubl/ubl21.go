package ubl

import (
	"strconv"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/builder/xmltree"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/shopspring/decimal"
)

const (
	nsCAC = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCBC = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	typeInvoice    = "380"
	typeCreditNote = "381"
)

var (
	elem = xmltree.E
	text = xmltree.T
	attr = xmltree.A
)

// UBL21 is the plain UBL 2.1 dialect every other dialect derives from.
var UBL21 = &Profile{
	Name:          "ubl_21",
	Precision:     2,
	RootName:      ublRootName,
	Document:      ublDocument,
	Header:        ublHeader,
	Notes:         func(*Profile, *Context) []*xmltree.Node { return nil },
	Currency:      ublCurrency,
	Reference:     ublReference,
	Party:         ublParty,
	Address:       ublAddress,
	PaymentMeans:  ublPaymentMeans,
	Allowances:    ublAllowances,
	TaxTotal:      ublTaxTotal,
	MonetaryTotal: ublMonetaryTotal,
	Line:          ublLine,
	LineTaxTotal:  ublLineTaxTotal,
	TaxCategory:   ublTaxCategory,
}

func ublRootName(_ *Profile, c *Context) string {
	if c.View.IsRefund {
		return "CreditNote"
	}
	return "Invoice"
}

func isCreditNote(self *Profile, c *Context) bool {
	return self.RootName(self, c) == "CreditNote"
}

func ublDocument(self *Profile, c *Context) *xmltree.Node {
	root := self.RootName(self, c)
	doc := elem(root).Attrs(
		attr("xmlns", "urn:oasis:names:specification:ubl:schema:xsd:"+root+"-2"),
		attr("xmlns:cac", nsCAC),
		attr("xmlns:cbc", nsCBC),
	)
	doc.Add(self.Header(self, c)...)
	doc.Add(self.Notes(self, c)...)
	doc.Add(self.Currency(self, c)...)
	doc.Add(self.Reference(self, c)...)
	doc.Add(
		elem("cac:AccountingSupplierParty", self.Party(self, c, c.View.Company, RoleSupplier)),
		elem("cac:AccountingCustomerParty", self.Party(self, c, c.View.Partner, RoleCustomer)),
	)
	doc.Add(self.PaymentMeans(self, c)...)
	doc.Add(self.Allowances(self, c)...)
	doc.Add(self.TaxTotal(self, c)...)
	doc.Add(self.MonetaryTotal(self, c))
	for _, l := range c.View.ProductLines() {
		doc.Add(self.Line(self, c, l))
	}
	return doc
}

func ublHeader(self *Profile, c *Context) []*xmltree.Node {
	rec := c.View.Record
	nodes := []*xmltree.Node{
		text("cbc:UBLVersionID", "2.1"),
		text("cbc:ID", rec.Name),
		text("cbc:IssueDate", date(rec.IssueDate)),
	}
	if isCreditNote(self, c) {
		return append(nodes, text("cbc:CreditNoteTypeCode", typeCreditNote))
	}
	code := typeInvoice
	if c.View.IsRefund {
		code = typeCreditNote
	}
	return append(nodes,
		text("cbc:DueDate", date(rec.DueDate)),
		text("cbc:InvoiceTypeCode", code),
	)
}

func ublCurrency(_ *Profile, c *Context) []*xmltree.Node {
	return []*xmltree.Node{text("cbc:DocumentCurrencyCode", c.View.Currency)}
}

func ublReference(_ *Profile, c *Context) []*xmltree.Node {
	origin := c.View.Record.Origin
	if !c.View.IsRefund || origin == nil {
		return nil
	}
	return []*xmltree.Node{elem("cac:BillingReference",
		elem("cac:InvoiceDocumentReference",
			text("cbc:ID", origin.Name),
			text("cbc:IssueDate", date(origin.IssueDate)),
		),
	)}
}

func ublParty(self *Profile, c *Context, p record.Party, _ Role) *xmltree.Node {
	var taxScheme *xmltree.Node
	if p.VAT != "" {
		taxScheme = elem("cac:PartyTaxScheme",
			text("cbc:CompanyID", p.VAT),
			elem("cac:TaxScheme", text("cbc:ID", "VAT")),
		)
	}
	return elem("cac:Party",
		elem("cac:PartyName", text("cbc:Name", p.Name)),
		self.Address(self, c, p),
		taxScheme,
		elem("cac:PartyLegalEntity",
			text("cbc:RegistrationName", p.Name),
			text("cbc:CompanyID", p.CompanyRegistry),
		),
		elem("cac:Contact",
			text("cbc:Telephone", p.Phone),
			text("cbc:ElectronicMail", p.Email),
		),
	)
}

func ublAddress(_ *Profile, _ *Context, p record.Party) *xmltree.Node {
	return elem("cac:PostalAddress",
		text("cbc:StreetName", p.Street),
		text("cbc:AdditionalStreetName", p.Street2),
		text("cbc:CityName", p.City),
		text("cbc:PostalZone", p.Zip),
		text("cbc:CountrySubentity", p.StateCode),
		elem("cac:Country", text("cbc:IdentificationCode", p.CountryCode)),
	)
}

func ublPaymentMeans(self *Profile, c *Context) []*xmltree.Node {
	if isCreditNote(self, c) {
		return nil
	}
	return []*xmltree.Node{elem("cac:PaymentMeans",
		text("cbc:PaymentMeansCode", "30"),
		text("cbc:PaymentID", c.View.Record.Name),
	)}
}

// ublAllowances renders early payment discount lines as document level allowances.
func ublAllowances(self *Profile, c *Context) []*xmltree.Node {
	var nodes []*xmltree.Node
	for _, l := range c.View.Lines {
		if l.Line.Kind != record.LineEPD {
			continue
		}
		var category *xmltree.Node
		if len(l.Taxes) > 0 {
			category = self.TaxCategory(self, c, l.Taxes[0])
		}
		nodes = append(nodes, elem("cac:AllowanceCharge",
			text("cbc:ChargeIndicator", "false"),
			text("cbc:AllowanceChargeReason", l.Line.Name),
			self.Money("cbc:Amount", self.Round(l.TotalExcluded.Neg()), c.View.Currency),
			category,
		))
	}
	return nodes
}

func ublTaxTotal(self *Profile, c *Context) []*xmltree.Node {
	currency := c.View.Currency
	total := elem("cac:TaxTotal", self.Money("cbc:TaxAmount", c.Totals.PercentTax, currency))
	for _, g := range c.View.PercentTaxGroups() {
		total.Add(elem("cac:TaxSubtotal",
			self.Money("cbc:TaxableAmount", self.Round(g.Base), currency),
			self.Money("cbc:TaxAmount", self.Round(g.Amount), currency),
			self.TaxCategory(self, c, g),
		))
	}
	return []*xmltree.Node{total}
}

func ublMonetaryTotal(self *Profile, c *Context) *xmltree.Node {
	t, currency := c.Totals, c.View.Currency
	var allowance, rounding *xmltree.Node
	if !t.Allowance.IsZero() {
		allowance = self.Money("cbc:AllowanceTotalAmount", t.Allowance, currency)
	}
	if !t.Rounding.IsZero() {
		rounding = self.Money("cbc:PayableRoundingAmount", t.Rounding, currency)
	}
	return elem("cac:LegalMonetaryTotal",
		self.Money("cbc:LineExtensionAmount", t.LineExtension, currency),
		self.Money("cbc:TaxExclusiveAmount", t.TaxExclusive, currency),
		self.Money("cbc:TaxInclusiveAmount", t.TaxInclusive, currency),
		allowance,
		rounding,
		self.Money("cbc:PayableAmount", t.Payable, currency),
	)
}

func ublLine(self *Profile, c *Context, l adapter.LineView) *xmltree.Node {
	currency := c.View.Currency
	lineName, quantityName := "cac:InvoiceLine", "cbc:InvoicedQuantity"
	if isCreditNote(self, c) {
		lineName, quantityName = "cac:CreditNoteLine", "cbc:CreditedQuantity"
	}

	extension := self.Round(l.TotalExcluded)
	var discount *xmltree.Node
	if !l.Line.Discount.IsZero() {
		// A negative discount is a surcharge on the gross amount.
		base := self.Round(l.GrossSubtotal)
		indicator, reason, amount := "false", "95", base.Sub(extension)
		if l.Line.Discount.IsNegative() {
			indicator, reason, amount = "true", "ZZZ", extension.Sub(base)
		}
		discount = elem("cac:AllowanceCharge",
			text("cbc:ChargeIndicator", indicator),
			text("cbc:AllowanceChargeReasonCode", reason),
			text("cbc:MultiplierFactorNumeric", Number(l.Line.Discount.Abs())),
			self.Money("cbc:Amount", amount, currency),
			self.Money("cbc:BaseAmount", base, currency),
		)
	}

	var classified *xmltree.Node
	for _, d := range l.Taxes {
		if d.IsPercent() {
			classified = self.TaxCategory(self, c, d)
			classified.SetName("cac:ClassifiedTaxCategory")
			break
		}
	}

	return elem(lineName,
		text("cbc:ID", strconv.Itoa(l.Index+1)),
		text(quantityName, Number(l.Line.Quantity), attr("unitCode", unitCode(l.Line))),
		self.Money("cbc:LineExtensionAmount", extension, currency),
		discount,
		self.LineTaxTotal(self, c, l),
		elem("cac:Item",
			text("cbc:Name", l.Line.Name),
			elem("cac:SellersItemIdentification", text("cbc:ID", l.Line.ProductCode)),
			elem("cac:OriginCountry", text("cbc:IdentificationCode", l.Line.OriginCountry)),
			classified,
		),
		elem("cac:Price", text("cbc:PriceAmount", self.Price(l.Line.PriceUnit), attr("currencyID", currency))),
	)
}

// ublLineTaxTotal reports fixed amount taxes on the line they apply to.
func ublLineTaxTotal(self *Profile, c *Context, l adapter.LineView) *xmltree.Node {
	currency := c.View.Currency
	var subtotals []*xmltree.Node
	amount := decimal.Zero
	for _, d := range l.Taxes {
		if d.IsPercent() {
			continue
		}
		amount = amount.Add(self.Round(d.Amount))
		subtotals = append(subtotals, elem("cac:TaxSubtotal",
			self.Money("cbc:TaxAmount", self.Round(d.Amount), currency),
			self.TaxCategory(self, c, d),
		))
	}
	if len(subtotals) == 0 {
		return nil
	}
	return elem("cac:TaxTotal", self.Money("cbc:TaxAmount", amount, currency)).Add(subtotals...)
}

func ublTaxCategory(_ *Profile, _ *Context, d adapter.TaxDetail) *xmltree.Node {
	var percent, reason *xmltree.Node
	if d.IsPercent() {
		percent = text("cbc:Percent", Number(d.Tax.Amount))
	}
	if d.Category == adapter.CategoryZero {
		reason = text("cbc:TaxExemptionReason", d.Tax.ExemptionReason)
	}
	return elem("cac:TaxCategory",
		text("cbc:ID", d.Category),
		percent,
		reason,
		elem("cac:TaxScheme", text("cbc:ID", d.SchemeID)),
	)
}

func unitCode(l record.Line) string {
	if l.UnitCode == "" {
		return "C62"
	}
	return l.UnitCode
}
