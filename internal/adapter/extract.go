package adapter

import (
	"fmt"
	"strings"

	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MissingFieldError lists every mandatory field absent from a record.
type MissingFieldError struct {
	RecordID int64
	Fields   []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d is missing mandatory fields: %s", e.RecordID, strings.Join(e.Fields, ", "))
}

// Extract builds the normalized view of rec for profile.
func Extract(rec *record.SourceRecord, profile shared.Profile) (*View, error) {
	if !rec.IsReportable() {
		return nil, shared.NewError(shared.KindConfiguration,
			fmt.Sprintf("record %d is in state %s", rec.ID, rec.State), record.ErrNotReportable)
	}

	var missing []string
	if rec.Name == "" {
		missing = append(missing, "name")
	}
	switch {
	case rec.Currency == "":
		missing = append(missing, "currency")
	case !KnownCurrency(rec.Currency):
		missing = append(missing, fmt.Sprintf("currency (unknown code %s)", rec.Currency))
	}
	if rec.Company.CountryCode == "" {
		missing = append(missing, "company.country")
	}
	if rec.Partner.CountryCode == "" {
		missing = append(missing, "partner.country")
	}
	if len(rec.Lines) == 0 {
		missing = append(missing, "lines")
	}

	view := &View{
		Record:     rec,
		Profile:    profile,
		IsRefund:   rec.Type.IsRefund(),
		Currency:   strings.ToUpper(rec.Currency),
		Company:    rec.Company,
		Partner:    rec.Partner,
		Extensions: rec.Extensions,
	}
	for i, line := range rec.Lines {
		lv := computeLine(i, line)
		view.Lines = append(view.Lines, lv)
		view.TotalExcluded = view.TotalExcluded.Add(lv.TotalExcluded)
		for _, d := range lv.Taxes {
			if d.IsPercent() {
				view.TotalPercentTax = view.TotalPercentTax.Add(d.Amount)
			} else {
				view.TotalFixedTax = view.TotalFixedTax.Add(d.Amount)
			}
		}
		view.TotalIncluded = view.TotalIncluded.Add(lv.TotalIncluded)
	}

	if extractor, ok := extractors[profile]; ok {
		missing = append(missing, extractor(rec, view)...)
	}

	if len(missing) > 0 {
		return nil, shared.NewError(shared.KindValidation, "record is incomplete",
			&MissingFieldError{RecordID: rec.ID, Fields: missing})
	}
	return view, nil
}

func computeLine(index int, line record.Line) LineView {
	gross := line.Quantity.Mul(line.PriceUnit)
	discount := gross.Mul(line.Discount).Div(hundred)
	excluded := gross.Sub(discount)

	lv := LineView{
		Index:          index,
		Line:           line,
		GrossSubtotal:  gross,
		DiscountAmount: discount,
		TotalExcluded:  excluded,
	}
	for _, tax := range line.Taxes {
		d := TaxDetail{Tax: tax, Base: excluded, SchemeID: "VAT"}
		if tax.AmountType == record.TaxFixed {
			d.Amount = tax.Amount.Mul(line.Quantity)
			d.SchemeID = "OTH"
		} else {
			d.Amount = excluded.Mul(tax.Amount).Div(hundred)
		}
		d.Category = TaxCategory(tax)
		lv.Taxes = append(lv.Taxes, d)
		lv.TotalTax = lv.TotalTax.Add(d.Amount)
	}
	lv.TotalIncluded = excluded.Add(lv.TotalTax)
	return lv
}

// TaxCategory codes a tax: exempt is Z, a non zero amount is S, anything else is O.
func TaxCategory(tax record.Tax) string {
	switch {
	case tax.Exempt:
		return CategoryZero
	case !tax.Amount.IsZero():
		return CategoryStandard
	default:
		return CategoryOutside
	}
}

var knownCurrencies = map[string]bool{
	"AUD": true, "BGN": true, "CAD": true, "CHF": true, "CNY": true, "CZK": true,
	"DKK": true, "EUR": true, "GBP": true, "HUF": true, "IDR": true, "JOD": true,
	"JPY": true, "MDL": true, "NOK": true, "NZD": true, "PLN": true, "RON": true,
	"SEK": true, "SGD": true, "TRY": true, "UAH": true, "USD": true,
}

// KnownCurrency reports whether code is a currency the exchange can report in.
func KnownCurrency(code string) bool {
	return knownCurrencies[strings.ToUpper(code)]
}
