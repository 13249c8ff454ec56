// Package adapter turns source records into the jurisdiction independent view the
// validators and builders work on.
package adapter

import (
	"strings"

	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Tax category codes.
const (
	CategoryZero     = "Z"
	CategoryStandard = "S"
	CategoryOutside  = "O"
)

// TaxDetail is the raw, unrounded effect of one tax on one line or group of lines.
type TaxDetail struct {
	Tax      record.Tax
	Base     decimal.Decimal
	Amount   decimal.Decimal
	Category string
	SchemeID string
}

// IsPercent reports whether the tax is rate based.
func (d TaxDetail) IsPercent() bool {
	return d.Tax.AmountType != record.TaxFixed
}

// LineView holds the raw amounts of a line. Nothing here is rounded.
type LineView struct {
	Index          int
	Line           record.Line
	GrossSubtotal  decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalExcluded  decimal.Decimal
	Taxes          []TaxDetail
	TotalTax       decimal.Decimal
	TotalIncluded  decimal.Decimal
}

// View is the normalized record handed to validators and builders.
type View struct {
	Record      *record.SourceRecord
	Profile     shared.Profile
	IsRefund    bool
	Currency    string
	Company     record.Party
	Partner     record.Party
	Lines       []LineView
	Extensions  record.Extensions
	BillingMode string

	TotalExcluded   decimal.Decimal
	TotalPercentTax decimal.Decimal
	TotalFixedTax   decimal.Decimal
	TotalIncluded   decimal.Decimal
}

// ProductLines returns the lines that are neither early payment discounts nor cash rounding.
func (v *View) ProductLines() []LineView {
	var out []LineView
	for _, l := range v.Lines {
		if l.Line.Kind == record.LineProduct || l.Line.Kind == "" {
			out = append(out, l)
		}
	}
	return out
}

// PercentTaxGroups aggregates percent taxes by category and rate, in first seen order.
func (v *View) PercentTaxGroups() []TaxDetail {
	type groupKey struct {
		category string
		rate     string
	}
	index := map[groupKey]int{}
	var groups []TaxDetail
	for _, l := range v.Lines {
		for _, d := range l.Taxes {
			if !d.IsPercent() {
				continue
			}
			k := groupKey{d.Category, d.Tax.Amount.String()}
			if i, ok := index[k]; ok {
				groups[i].Base = groups[i].Base.Add(d.Base)
				groups[i].Amount = groups[i].Amount.Add(d.Amount)
				continue
			}
			index[k] = len(groups)
			groups = append(groups, d)
		}
	}
	return groups
}

// RomanianCity returns the city as reported to ANAF. Bucharest addresses use the
// sector code written without spaces in upper case, e.g. "Sector 3" becomes SECTOR3.
func RomanianCity(p record.Party) string {
	if p.CountryCode == "RO" && p.StateCode == "B" {
		return strings.ToUpper(strings.ReplaceAll(p.City, " ", ""))
	}
	return p.City
}
