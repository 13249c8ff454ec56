// Package validation applies pre-submission business rules. Every rule returns the
// list of problems it found and never stops at the first one.
package validation

import (
	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/domain/shared"
)

// Rule checks one aspect of a view.
type Rule func(v *adapter.View) []string

var profileRules = map[shared.Profile][]Rule{
	shared.ProfileROCIUS:       {refundReferencesOrigin, linePrecision(2), romanianParties, receiptNotSent},
	shared.ProfileROETransport: {eTransport},
	shared.ProfilePLJPK:        {polishParties},
	shared.ProfileFRCIUS:       {refundReferencesOrigin, linePrecision(2), frenchParties},
	shared.ProfileJOUBL:        {refundReferencesOrigin, linePrecision(9), jordanDocument},
	shared.ProfileIDQRIS:       {indonesianDocument},
	shared.ProfileAUTPAR:       {australianParties},
}

// Validate runs every rule of the view's profile and returns all messages. An empty result means ok.
func Validate(v *adapter.View) []string {
	var errs []string
	for _, rule := range profileRules[v.Profile] {
		errs = append(errs, rule(v)...)
	}
	return errs
}

// Rules returns the rules registered for a profile.
func Rules(p shared.Profile) []Rule {
	return profileRules[p]
}
