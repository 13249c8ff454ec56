// Package ubl renders UBL 2.1 invoices and credit notes. A profile is a record of
// rendering functions; a derived profile copies its parent, overrides some slots and
// reaches the parent implementation through its Parent field.
package ubl

import (
	"fmt"
	"time"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/builder/xmltree"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Role tells party renderers which side of the document they render.
type Role int

const (
	RoleSupplier Role = iota
	RoleCustomer
)

// Context is the input of one rendering.
type Context struct {
	View   *adapter.View
	Now    time.Time
	Totals Totals
}

// Totals are the rounded document amounts every slot must agree on.
type Totals struct {
	LineExtension decimal.Decimal
	Allowance     decimal.Decimal
	TaxExclusive  decimal.Decimal
	PercentTax    decimal.Decimal
	FixedTax      decimal.Decimal
	TaxInclusive  decimal.Decimal
	Rounding      decimal.Decimal
	Payable       decimal.Decimal
}

// Profile is a UBL dialect. Slots receive self so that an inherited implementation
// still dispatches to the most derived overrides.
type Profile struct {
	Name            string
	Parent          *Profile
	CustomizationID string

	// Precision is the number of decimals of monetary amounts.
	Precision int32
	// FixedDecimals renders every amount with exactly Precision decimals.
	FixedDecimals bool

	RootName      func(self *Profile, c *Context) string
	Document      func(self *Profile, c *Context) *xmltree.Node
	Header        func(self *Profile, c *Context) []*xmltree.Node
	Notes         func(self *Profile, c *Context) []*xmltree.Node
	Currency      func(self *Profile, c *Context) []*xmltree.Node
	Reference     func(self *Profile, c *Context) []*xmltree.Node
	Party         func(self *Profile, c *Context, p record.Party, role Role) *xmltree.Node
	Address       func(self *Profile, c *Context, p record.Party) *xmltree.Node
	PaymentMeans  func(self *Profile, c *Context) []*xmltree.Node
	Allowances    func(self *Profile, c *Context) []*xmltree.Node
	TaxTotal      func(self *Profile, c *Context) []*xmltree.Node
	MonetaryTotal func(self *Profile, c *Context) *xmltree.Node
	Line          func(self *Profile, c *Context, l adapter.LineView) *xmltree.Node
	LineTaxTotal  func(self *Profile, c *Context, l adapter.LineView) *xmltree.Node
	TaxCategory   func(self *Profile, c *Context, d adapter.TaxDetail) *xmltree.Node
}

// extend returns a copy of parent named name with the overrides applied.
func extend(parent *Profile, name string, override func(p *Profile)) *Profile {
	p := *parent
	p.Name = name
	p.Parent = parent
	override(&p)
	return &p
}

// Round rounds d to the profile precision, half away from zero.
func (p *Profile) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(p.Precision)
}

// Amount formats a monetary amount.
func (p *Profile) Amount(d decimal.Decimal) string {
	if p.FixedDecimals {
		return d.StringFixed(p.Precision)
	}
	return d.Round(p.Precision).StringFixed(p.Precision)
}

// Money renders a currency amount element.
func (p *Profile) Money(name string, d decimal.Decimal, currency string) *xmltree.Node {
	return xmltree.T(name, p.Amount(d), xmltree.A("currencyID", currency))
}

// Price formats a unit price rounded to the profile precision.
func (p *Profile) Price(d decimal.Decimal) string {
	return p.Round(d).StringFixed(p.Precision)
}

// Number formats a non monetary quantity or rate without trailing zeros.
func Number(d decimal.Decimal) string {
	return d.String()
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

var profiles = map[shared.Profile]*Profile{}

func register(code shared.Profile, p *Profile) *Profile {
	profiles[code] = p
	return p
}

// ForProfile returns the UBL dialect used by an exchange profile.
func ForProfile(code shared.Profile) (*Profile, error) {
	p, ok := profiles[code]
	if !ok {
		return nil, shared.NewError(shared.KindConfiguration, fmt.Sprintf("no UBL dialect for profile %s", code), nil)
	}
	return p, nil
}

// Build renders view with profile. The output depends only on its inputs.
func Build(p *Profile, view *adapter.View, now time.Time) ([]byte, error) {
	c := &Context{View: view, Now: now}
	c.Totals = computeTotals(p, view)
	root := p.Document(p, c)
	out, err := xmltree.Render(root, xmltree.Pretty)
	if err != nil {
		return nil, shared.NewError(shared.KindSerialization, "failed to render UBL document", err)
	}
	return out, nil
}

// computeTotals sums rounded line amounts so that the lines add up to the document totals.
func computeTotals(p *Profile, v *adapter.View) Totals {
	var t Totals
	for _, l := range v.Lines {
		switch l.Line.Kind {
		case record.LineEPD:
			t.Allowance = t.Allowance.Add(p.Round(l.TotalExcluded.Neg()))
		case record.LineRounding:
			t.Rounding = t.Rounding.Add(p.Round(l.TotalIncluded))
			continue
		default:
			t.LineExtension = t.LineExtension.Add(p.Round(l.TotalExcluded))
		}
		for _, d := range l.Taxes {
			if !d.IsPercent() {
				t.FixedTax = t.FixedTax.Add(p.Round(d.Amount))
			}
		}
	}
	for _, g := range v.PercentTaxGroups() {
		t.PercentTax = t.PercentTax.Add(p.Round(g.Amount))
	}
	t.TaxExclusive = t.LineExtension.Sub(t.Allowance)
	t.TaxInclusive = t.TaxExclusive.Add(t.PercentTax).Add(t.FixedTax)
	t.Payable = t.TaxInclusive.Add(t.Rounding)
	return t
}
