package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/domain/etransport"
	"github.com/edocument-exchange/internal/domain/party"
	"github.com/edocument-exchange/internal/domain/record"
)

var bucharestSector = regexp.MustCompile(`^SECTOR[1-6]$`)

const bucharestCityMessage = "city name must be SECTORX where X∈1..6"

func romanianParties(v *adapter.View) []string {
	var errs []string
	errs = append(errs, addressFields("company", v.Company, nil)...)
	errs = append(errs, identifier(party.CIF{}, "company CIF", v.Company.VAT)...)
	errs = append(errs, addressFields("customer", v.Partner, nil)...)
	for _, p := range []struct {
		label string
		party record.Party
	}{{"company", v.Company}, {"customer", v.Partner}} {
		if p.party.CountryCode != "RO" {
			continue
		}
		if p.party.StateCode == "" {
			errs = append(errs, p.label+" state is missing")
			continue
		}
		if p.party.StateCode == "B" && p.party.City != "" && !bucharestSector.MatchString(adapter.RomanianCity(p.party)) {
			errs = append(errs, fmt.Sprintf("%s %s", p.label, bucharestCityMessage))
		}
	}
	if v.Partner.CountryCode == "RO" && v.Partner.IsCompany {
		errs = append(errs, identifier(party.CIF{}, "customer CIF", v.Partner.VAT)...)
	}
	return errs
}

func receiptNotSent(v *adapter.View) []string {
	if v.Record.Type == record.TypeReceipt && v.Record.EDIState != record.EDIStateNone && v.Record.EDIState != record.EDIStateFailed {
		return []string{"this receipt has already been sent to ANAF"}
	}
	return nil
}

// eTransport mirrors the declaration checks done before an eTransport upload.
func eTransport(v *adapter.View) []string {
	ext := v.Extensions.ROTransport
	if ext == nil {
		return []string{"eTransport data is missing"}
	}
	var errs []string

	if ext.Carrier == nil {
		errs = append(errs, "The delivery carrier partner is missing.")
	} else {
		var missing []string
		if ext.Carrier.VAT == "" {
			missing = append(missing, "VAT")
		}
		if ext.Carrier.City == "" {
			missing = append(missing, "City")
		}
		if ext.Carrier.Street == "" {
			missing = append(missing, "Street")
		}
		errs = append(errs, missingFieldsMessage("The delivery carrier partner", missing)...)
	}

	if ext.OperationType == "" {
		return append(errs, "Operation type is missing.")
	}
	if _, ok := etransport.OperationTypes[ext.OperationType]; !ok {
		errs = append(errs, fmt.Sprintf("Operation type %s is not valid.", ext.OperationType))
	}

	switch {
	case ext.Scope == "":
		errs = append(errs, "Operation scope is missing.")
	case !etransport.ScopeAllowed(ext.OperationType, ext.Scope):
		errs = append(errs, fmt.Sprintf("Operation scope %s is not allowed for operation type %s.", ext.Scope, ext.OperationType))
	}

	if ext.VehicleNumber == "" {
		errs = append(errs, "Vehicle number is missing.")
	}
	seen := map[string]bool{}
	for _, plate := range []string{ext.VehicleNumber, ext.Trailer1, ext.Trailer2} {
		if plate == "" {
			continue
		}
		plate = strings.ToUpper(plate)
		if seen[plate] {
			errs = append(errs, "Vehicle number and trailer number fields must be unique.")
			break
		}
		seen[plate] = true
	}

	if etransport.TariffCodeRequired(ext.OperationType) {
		var names []string
		for _, l := range v.Lines {
			if l.Line.TariffCode == "" {
				names = append(names, l.Line.Name)
			}
		}
		switch len(names) {
		case 0:
		case 1:
			errs = append(errs, fmt.Sprintf("Product %s is missing the intrastat code value.", names[0]))
		default:
			errs = append(errs, fmt.Sprintf("Products %s are missing the intrastat code value.", strings.Join(names, ", ")))
		}
	}

	switch {
	case ext.Start.Type == "" && ext.End.Type == "":
		return append(errs, "Both 'End' and 'Start Location Type' are missing")
	case ext.Start.Type == "":
		return append(errs, "'Start Location Type' is missing")
	case ext.End.Type == "":
		return append(errs, "'End Location Type' is missing")
	}

	errs = append(errs, location(ext.OperationType, etransport.Start, "'Start Location'", ext.Start)...)
	errs = append(errs, location(ext.OperationType, etransport.End, "'End Location'", ext.End)...)
	return errs
}

func location(operationType string, side etransport.Side, group string, loc record.Location) []string {
	allowed := false
	for _, t := range etransport.LocationTypes(operationType, side) {
		if t == loc.Type {
			allowed = true
		}
	}
	if !allowed {
		return []string{fmt.Sprintf("Location type %s is not allowed under %s for operation type %s", loc.Type, group, operationType)}
	}

	switch loc.Type {
	case record.LocationBCP:
		if loc.BCP == "" {
			return []string{"The border crossing point is missing under " + group}
		}
	case record.LocationCustoms:
		if loc.CustomsOffice == "" {
			return []string{"The customs office is missing under " + group}
		}
	case record.LocationAddress:
		addr := loc.Address
		if addr == nil {
			addr = &record.Party{}
		}
		var missing []string
		if addr.StateCode == "" {
			missing = append(missing, "State")
		} else if _, ok := etransport.CountyCode(addr.StateCode); !ok {
			return []string{fmt.Sprintf("%s has an unknown state %s.", group, addr.StateCode)}
		}
		if addr.City == "" {
			missing = append(missing, "City")
		}
		if addr.Street == "" {
			missing = append(missing, "Street")
		}
		if addr.Zip == "" {
			missing = append(missing, "Postal Code")
		}
		return missingFieldsMessage(group, missing)
	}
	return nil
}

func missingFieldsMessage(group string, missing []string) []string {
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return []string{fmt.Sprintf("%s is missing the %s field.", group, missing[0])}
	default:
		return []string{fmt.Sprintf("%s is missing following fields: %s", group, strings.Join(missing, ", "))}
	}
}
