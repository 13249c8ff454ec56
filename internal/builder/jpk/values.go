package jpk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Values maps a field number to its amount.
type Values map[int]decimal.Decimal

// Get returns the amount of field n, zero when absent.
func (v Values) Get(n int) decimal.Decimal {
	return v[n]
}

func (v Values) add(n int, d decimal.Decimal) {
	v[n] = v[n].Add(d)
}

// Fields returns the field numbers in ascending order.
func (v Values) Fields() []int {
	out := make([]int, 0, len(v))
	for n := range v {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Row is one evidence line: a sale or purchase document and its K fields, rounded
// to two decimals.
type Row struct {
	Record *record.SourceRecord
	Side   Side
	Fields Values
}

// Rows maps every record onto evidence rows. Refunds report negative amounts.
// Errors for untagged or unknown taxes are accumulated.
func (c *Catalog) Rows(views []*adapter.View) ([]Row, error) {
	var rows []Row
	var problems []string
	for _, v := range views {
		sign := decimal.NewFromInt(1)
		if v.IsRefund {
			sign = sign.Neg()
		}
		raw := Values{}
		side := SideSale
		if v.Record.Type.IsPurchase() {
			side = SidePurchase
		}
		for _, l := range v.Lines {
			for _, d := range l.Taxes {
				if len(d.Tax.Tags) == 0 {
					problems = append(problems, fmt.Sprintf("tax %s on %s has no JPK tag", d.Tax.Name, v.Record.Name))
					continue
				}
				for _, tag := range d.Tax.Tags {
					m, ok := c.Tags[tag]
					if !ok {
						problems = append(problems, fmt.Sprintf("tax %s on %s carries unknown JPK tag %s", d.Tax.Name, v.Record.Name, tag))
						continue
					}
					if m.Side != side {
						problems = append(problems, fmt.Sprintf("tag %s is a %s tag but %s is a %s", tag, m.Side, v.Record.Name, side))
						continue
					}
					if m.Base != "" {
						n, _ := FieldNumber(m.Base)
						raw.add(n, d.Base.Mul(sign))
					}
					if m.Tax != "" {
						n, _ := FieldNumber(m.Tax)
						raw.add(n, d.Amount.Mul(sign))
					}
				}
			}
		}
		fields := Values{}
		for n, amount := range raw {
			fields[n] = amount.Round(2)
		}
		rows = append(rows, Row{Record: v.Record, Side: side, Fields: fields})
	}
	if len(problems) > 0 {
		return nil, shared.NewError(shared.KindValidation, strings.Join(problems, "\n"), nil)
	}
	return rows, nil
}

// Totals sums the evidence fields of rows.
func Totals(rows []Row) Values {
	out := Values{}
	for _, r := range rows {
		for n, amount := range r.Fields {
			out.add(n, amount)
		}
	}
	return out
}

// TaxTotal is the control sum of the tax fields of one side.
func (c *Catalog) TaxTotal(rows []Row, side Side) decimal.Decimal {
	taxFields := map[int]bool{}
	for _, m := range c.Tags {
		if m.Side == side && m.Tax != "" {
			n, _ := FieldNumber(m.Tax)
			taxFields[n] = true
		}
	}
	total := decimal.Zero
	for _, r := range rows {
		if r.Side != side {
			continue
		}
		for n, amount := range r.Fields {
			if taxFields[n] {
				total = total.Add(amount)
			}
		}
	}
	return total
}

// DeclarationInput carries the amounts that do not come from the evidence.
type DeclarationInput struct {
	// CarriedForward is the excess input tax of the previous period (P_39).
	CarriedForward decimal.Decimal
	// CashRegister is the deduction available for purchased cash registers.
	CashRegister decimal.Decimal
}

// Declaration computes positions P_10 to P_53 from evidence totals. Positions are
// whole zlotys.
func (c *Catalog) Declaration(totals Values, in DeclarationInput) Values {
	p := Values{}
	for n := 10; n <= 47; n++ {
		if n >= 37 && n <= 39 {
			continue
		}
		p[n] = totals.Get(n).Round(0)
	}
	p[39] = in.CarriedForward.Round(0)
	for _, rule := range c.sums {
		sum := decimal.Zero
		for _, term := range rule.terms {
			sum = sum.Add(p.Get(term))
		}
		p[rule.target] = sum
	}

	output, input := p.Get(38), p.Get(48)
	excessOutput := decimal.Max(output.Sub(input), decimal.Zero)
	p[49] = decimal.Zero
	if excessOutput.IsPositive() && in.CashRegister.IsPositive() {
		p[49] = decimal.Min(excessOutput, in.CashRegister.Round(0))
	}
	p[50] = decimal.Zero
	p[51] = decimal.Max(output.Sub(input).Sub(p[49]).Sub(p[50]), decimal.Zero)
	p[52] = decimal.Zero
	p[53] = decimal.Max(input.Sub(output), decimal.Zero)
	return p
}
