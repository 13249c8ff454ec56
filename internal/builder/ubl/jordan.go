package ubl

import (
	"strconv"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/builder/xmltree"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
)

// supplyTypeCodes is the last digit of the JoFotara invoice type name.
var supplyTypeCodes = map[string]string{
	"income":  "1",
	"sales":   "2",
	"special": "3",
}

// JO is the JoFotara dialect. Amounts carry nine decimals and refunds stay Invoice
// documents with type code 381.
var JO = register(shared.ProfileJOUBL, extend(UBL21, "jo_ubl", func(p *Profile) {
	p.Precision = 9
	p.FixedDecimals = true
	p.RootName = func(*Profile, *Context) string { return "Invoice" }
	p.Header = func(self *Profile, c *Context) []*xmltree.Node {
		rec := c.View.Record
		code := typeInvoice
		if c.View.IsRefund {
			code = typeCreditNote
		}
		return []*xmltree.Node{
			text("cbc:ProfileID", "reporting:1.0"),
			text("cbc:ID", rec.Name),
			text("cbc:UUID", rec.UUID),
			text("cbc:IssueDate", date(rec.IssueDate)),
			text("cbc:InvoiceTypeCode", code, attr("name", joInvoiceTypeName(c))),
		}
	}
	p.Currency = func(*Profile, *Context) []*xmltree.Node {
		return []*xmltree.Node{
			text("cbc:DocumentCurrencyCode", "JOD"),
			text("cbc:TaxCurrencyCode", "JOD"),
		}
	}
	p.Reference = func(_ *Profile, c *Context) []*xmltree.Node {
		counter := ""
		if jo := c.View.Extensions.JO; jo != nil {
			counter = strconv.FormatInt(jo.InvoiceCounter, 10)
		}
		icv := elem("cac:AdditionalDocumentReference", text("cbc:ID", "ICV"), text("cbc:UUID", counter))
		origin := c.View.Record.Origin
		if !c.View.IsRefund || origin == nil {
			return []*xmltree.Node{icv}
		}
		billing := elem("cac:BillingReference",
			elem("cac:InvoiceDocumentReference",
				text("cbc:ID", origin.Name),
				text("cbc:UUID", origin.UUID),
				text("cbc:DocumentDescription", p.Amount(origin.Total)),
			),
		)
		return []*xmltree.Node{billing, icv}
	}
	p.Party = func(self *Profile, c *Context, pt record.Party, role Role) *xmltree.Node {
		if role == RoleSupplier {
			return elem("cac:Party",
				elem("cac:PostalAddress", elem("cac:Country", text("cbc:IdentificationCode", "JO"))),
				elem("cac:PartyTaxScheme",
					text("cbc:CompanyID", pt.VAT),
					elem("cac:TaxScheme", text("cbc:ID", "VAT")),
				),
				elem("cac:PartyLegalEntity", text("cbc:RegistrationName", pt.Name)),
			)
		}
		scheme := "TN"
		if !pt.IsCompany {
			scheme = "NIN"
		}
		return elem("cac:Party",
			elem("cac:PartyIdentification", text("cbc:ID", pt.VAT, attr("schemeID", scheme))),
			elem("cac:PostalAddress",
				text("cbc:PostalZone", pt.Zip),
				text("cbc:CountrySubentityCode", pt.StateCode),
				elem("cac:Country", text("cbc:IdentificationCode", pt.CountryCode)),
			),
			elem("cac:PartyTaxScheme",
				text("cbc:CompanyID", pt.VAT),
				elem("cac:TaxScheme", text("cbc:ID", "VAT")),
			),
			elem("cac:PartyLegalEntity", text("cbc:RegistrationName", pt.Name)),
		)
	}
	p.PaymentMeans = func(_ *Profile, c *Context) []*xmltree.Node {
		nodes := []*xmltree.Node{joSellerSupplier(c)}
		origin := c.View.Record.Origin
		if !c.View.IsRefund || origin == nil {
			return nodes
		}
		note := origin.Name
		if jo := c.View.Extensions.JO; jo != nil && jo.RefundReason != "" {
			note += ": " + jo.RefundReason
		}
		return append(nodes, elem("cac:PaymentMeans",
			text("cbc:PaymentMeansCode", "10", attr("listID", "UN/ECE 4461")),
			text("cbc:InstructionNote", note),
		))
	}
	p.TaxTotal = func(self *Profile, c *Context) []*xmltree.Node {
		currency := c.View.Currency
		total := elem("cac:TaxTotal", self.Money("cbc:TaxAmount", c.Totals.PercentTax, currency))
		if !c.View.IsRefund {
			return []*xmltree.Node{total}
		}
		for _, g := range c.View.PercentTaxGroups() {
			total.Add(elem("cac:TaxSubtotal",
				self.Money("cbc:TaxableAmount", self.Round(g.Base), currency),
				self.Money("cbc:TaxAmount", self.Round(g.Amount), currency),
				self.TaxCategory(self, c, g),
			))
		}
		return []*xmltree.Node{total}
	}
	p.LineTaxTotal = func(self *Profile, c *Context, l adapter.LineView) *xmltree.Node {
		currency := c.View.Currency
		total := elem("cac:TaxTotal",
			self.Money("cbc:TaxAmount", self.Round(l.TotalTax), currency),
			self.Money("cbc:RoundingAmount", self.Round(l.TotalExcluded).Add(self.Round(l.TotalTax)), currency),
		)
		for _, d := range l.Taxes {
			total.Add(elem("cac:TaxSubtotal",
				self.Money("cbc:TaxAmount", self.Round(d.Amount), currency),
				self.TaxCategory(self, c, d),
			))
		}
		return total
	}
	p.TaxCategory = func(_ *Profile, _ *Context, d adapter.TaxDetail) *xmltree.Node {
		var percent *xmltree.Node
		if d.IsPercent() {
			percent = text("cbc:Percent", Number(d.Tax.Amount))
		}
		return elem("cac:TaxCategory",
			text("cbc:ID", d.Category, attr("schemeAgencyID", "6"), attr("schemeID", "UN/ECE 5305")),
			percent,
			elem("cac:TaxScheme",
				text("cbc:ID", d.SchemeID, attr("schemeAgencyID", "6"), attr("schemeID", "UN/ECE 5153")),
			),
		)
	}
}))

// joInvoiceTypeName is the three digit invoice type name: local market, cash or
// receivable, then the supply type.
func joInvoiceTypeName(c *Context) string {
	rec := c.View.Record
	payment := "2"
	if rec.DueDate.IsZero() || !rec.DueDate.After(rec.IssueDate) {
		payment = "1"
	}
	supply := supplyTypeCodes["income"]
	if jo := c.View.Extensions.JO; jo != nil {
		if code, ok := supplyTypeCodes[jo.SupplyType]; ok {
			supply = code
		}
	}
	return "0" + payment + supply
}

func joSellerSupplier(c *Context) *xmltree.Node {
	source := ""
	if jo := c.View.Extensions.JO; jo != nil {
		source = jo.IncomeSourceCode
	}
	return elem("cac:SellerSupplierParty",
		elem("cac:Party", elem("cac:PartyIdentification", text("cbc:ID", source))),
	)
}
