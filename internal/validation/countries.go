package validation

import (
	"fmt"
	"regexp"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/domain/party"
	"github.com/edocument-exchange/internal/domain/record"
)

var (
	frenchZip = regexp.MustCompile(`^[0-9]{5}$`)
	polishZip = regexp.MustCompile(`^[0-9]{2}-[0-9]{3}$`)
	auZip     = regexp.MustCompile(`^[0-9]{4}$`)
)

func frenchParties(v *adapter.View) []string {
	var errs []string
	errs = append(errs, addressFields("company", v.Company, frenchZip)...)
	if v.Company.CompanyRegistry == "" {
		errs = append(errs, "company SIRET is missing")
	} else if len(party.SIRET{}.Canonical(v.Company.CompanyRegistry)) == 14 {
		errs = append(errs, identifier(party.SIRET{}, "company SIRET", v.Company.CompanyRegistry)...)
	} else {
		errs = append(errs, identifier(party.SIREN{}, "company SIREN", v.Company.CompanyRegistry)...)
	}
	errs = append(errs, identifier(party.VAT{}, "company VAT", v.Company.VAT)...)

	var partnerZip *regexp.Regexp
	if v.Partner.CountryCode == "FR" {
		partnerZip = frenchZip
	}
	errs = append(errs, addressFields("customer", v.Partner, partnerZip)...)
	if v.Partner.IsCompany && adapter.IsEU(v.Partner.CountryCode) {
		errs = append(errs, identifier(party.VAT{}, "customer VAT", v.Partner.VAT)...)
	}
	return errs
}

func polishParties(v *adapter.View) []string {
	var errs []string
	errs = append(errs, identifier(party.NIP{}, "company NIP", v.Company.VAT)...)
	if v.Company.Email == "" {
		errs = append(errs, "company email is missing")
	}
	errs = append(errs, addressFields("company", v.Company, polishZip)...)
	if v.Partner.CountryCode == "PL" && v.Partner.IsCompany {
		errs = append(errs, identifier(party.NIP{}, "customer NIP", v.Partner.VAT)...)
	}
	return errs
}

var jordanCurrencies = map[string]bool{"JOD": true}

func jordanDocument(v *adapter.View) []string {
	var errs []string
	if !jordanCurrencies[v.Currency] {
		errs = append(errs, fmt.Sprintf("JoFotara invoices must be issued in JOD, not %s", v.Currency))
	}
	if v.Company.VAT == "" {
		errs = append(errs, "company tax identification number is missing")
	}
	if ext := v.Extensions.JO; ext != nil {
		switch ext.SupplyType {
		case "income", "sales", "special":
		default:
			errs = append(errs, fmt.Sprintf("supply type %q is not valid", ext.SupplyType))
		}
		if v.IsRefund && ext.RefundReason == "" {
			errs = append(errs, "a refund must state its reason")
		}
	}
	errs = append(errs, phoneLength("customer", v.Partner, 15)...)
	return errs
}

func indonesianDocument(v *adapter.View) []string {
	var errs []string
	if v.Currency != "IDR" {
		errs = append(errs, fmt.Sprintf("QRIS payments must be in IDR, not %s", v.Currency))
	}
	if v.Company.VAT != "" {
		errs = append(errs, identifier(party.NPWP{}, "company NPWP", v.Company.VAT)...)
	}
	if !v.TotalIncluded.IsPositive() {
		errs = append(errs, "QRIS amount must be positive")
	}
	return errs
}

var australianStates = map[string]bool{
	"ACT": true, "NSW": true, "NT": true, "QLD": true, "SA": true, "TAS": true, "VIC": true, "WA": true, "OTH": true,
}

// australianAddress checks an address as TPAR reports it. Overseas addresses use state OTH and postcode 9999.
func australianAddress(label string, p record.Party, overseas bool) []string {
	var errs []string
	if p.Street == "" {
		errs = append(errs, label+" street is missing")
	}
	if p.City == "" {
		errs = append(errs, label+" suburb is missing")
	}
	if !australianStates[p.StateCode] {
		errs = append(errs, fmt.Sprintf("%s state %q must be one of ACT, NSW, NT, QLD, SA, TAS, VIC, WA, OTH", label, p.StateCode))
	}
	switch {
	case overseas && p.Zip != "9999":
		errs = append(errs, label+" is overseas so its postcode must be 9999")
	case !overseas && !auZip.MatchString(p.Zip):
		errs = append(errs, fmt.Sprintf("%s postcode %q must have 4 digits", label, p.Zip))
	}
	return errs
}

func australianParties(v *adapter.View) []string {
	var errs []string
	errs = append(errs, identifier(party.ABN{}, "company ABN", v.Company.VAT)...)
	errs = append(errs, australianAddress("company", v.Company, false)...)
	errs = append(errs, phoneLength("company", v.Company, 15)...)

	overseas := v.Partner.CountryCode != "AU"
	if ext := v.Extensions.AU; ext != nil && ext.Overseas {
		overseas = true
	}
	errs = append(errs, identifier(party.ABN{}, "payee ABN", v.Partner.VAT)...)
	errs = append(errs, australianAddress("payee", v.Partner, overseas)...)
	errs = append(errs, phoneLength("payee", v.Partner, 15)...)
	return errs
}
