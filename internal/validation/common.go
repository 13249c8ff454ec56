package validation

import (
	"fmt"
	"regexp"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/domain/party"
	"github.com/edocument-exchange/internal/domain/record"
)

func refundReferencesOrigin(v *adapter.View) []string {
	if v.IsRefund && (v.Record.Origin == nil || v.Record.Origin.Name == "") {
		return []string{"a refund must reference the original invoice"}
	}
	return nil
}

// linePrecision rejects unit prices finer than the profile can emit. EPD and cash
// rounding lines are exempt.
func linePrecision(digits int32) Rule {
	return func(v *adapter.View) []string {
		var errs []string
		for _, l := range v.Lines {
			if l.Line.Kind == record.LineEPD || l.Line.Kind == record.LineRounding {
				continue
			}
			if !l.Line.PriceUnit.Equal(l.Line.PriceUnit.Round(digits)) {
				errs = append(errs, fmt.Sprintf("line %d: unit price %s has more than %d decimals",
					l.Index+1, l.Line.PriceUnit.String(), digits))
			}
		}
		return errs
	}
}

// addressFields reports the missing address parts of p, prefixed with label.
func addressFields(label string, p record.Party, zip *regexp.Regexp) []string {
	var errs []string
	if p.Street == "" {
		errs = append(errs, label+" street is missing")
	}
	if p.City == "" {
		errs = append(errs, label+" city is missing")
	}
	switch {
	case p.Zip == "":
		errs = append(errs, label+" postcode is missing")
	case zip != nil && !zip.MatchString(p.Zip):
		errs = append(errs, fmt.Sprintf("%s postcode %q has an invalid format", label, p.Zip))
	}
	return errs
}

func identifier(id party.Identifier, label, raw string) []string {
	if raw == "" {
		return []string{label + " is missing"}
	}
	if msg := party.Check(id, label, raw); msg != "" {
		return []string{msg}
	}
	return nil
}

func phoneLength(label string, p record.Party, max int) []string {
	digits := 0
	for _, r := range p.Phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if p.Phone != "" && digits > max {
		return []string{fmt.Sprintf("%s phone number must have at most %d digits", label, max)}
	}
	return nil
}
