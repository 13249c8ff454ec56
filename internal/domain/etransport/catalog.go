// Package etransport holds the Romanian eTransport code lists.
package etransport

import (
	"strings"

	"github.com/edocument-exchange/internal/domain/record"
)

var OperationTypes = map[string]string{
	"10": "Intra-community purchase",
	"12": "Operations in lohn system (EU) - input",
	"14": "Stocks available to the customer (Call-off stock) - entry",
	"20": "Intra-Community delivery",
	"22": "Operations in lohn system (EU) - exit",
	"24": "Stocks available to the customer (Call-off stock) - exit",
	"30": "Transport on the national territory",
	"40": "Import",
	"50": "Export",
	"60": "Intra-community transaction - Entry for storage/formation of new transport",
	"70": "Intra-community transaction - Exit after storage/formation of new transport",
}

var Scopes = map[string]string{
	"101":  "Marketing",
	"201":  "Output",
	"301":  "Gratuities",
	"401":  "Commercial equipment",
	"501":  "Fixed assets",
	"601":  "Own consumption",
	"703":  "Delivery operations with installation",
	"704":  "Transfer between managements",
	"705":  "Goods made available to the customer",
	"801":  "Financial/operational leasing",
	"802":  "Goods under warranty",
	"901":  "Exempt operations",
	"1001": "Investment in progress",
	"1101": "Donations, help",
	"9901": "Other",
	"9999": "Same with operation",
}

var allowedScopes = map[string][]string{
	"10": {"101", "201", "301", "401", "501", "601", "703", "801", "802", "901", "1001", "1101", "9901"},
	"20": {"101", "301", "703", "801", "802", "9901"},
	"30": {"101", "704", "705", "9901"},
}

// ScopeAllowed reports whether scope may be declared with the operation type.
// Operation types without their own list only accept 9999.
func ScopeAllowed(operationType, scope string) bool {
	allowed, ok := allowedScopes[operationType]
	if !ok {
		return scope == "9999"
	}
	for _, s := range allowed {
		if s == scope {
			return true
		}
	}
	return false
}

type Side string

const (
	Start Side = "start"
	End   Side = "end"
)

var locationRules = map[Side]struct {
	customs string
	bcp     []string
}{
	Start: {customs: "40", bcp: []string{"10", "12", "14", "60"}},
	End:   {customs: "50", bcp: []string{"10", "20", "22", "24", "70"}},
}

// LocationTypes lists the location types the operation type accepts on a side of the route.
func LocationTypes(operationType string, side Side) []record.LocationType {
	rule := locationRules[side]
	if operationType == rule.customs {
		return []record.LocationType{record.LocationAddress, record.LocationBCP, record.LocationCustoms}
	}
	for _, code := range rule.bcp {
		if code == operationType {
			return []record.LocationType{record.LocationAddress, record.LocationBCP}
		}
	}
	return []record.LocationType{record.LocationAddress}
}

// TariffCodeRequired reports whether goods need a customs tariff code for the operation type.
func TariffCodeRequired(operationType string) bool {
	return operationType != "60" && operationType != "70"
}

var countyCodes = map[string]string{
	"AB": "1", "AR": "2", "AG": "3", "BC": "4", "BH": "5", "BN": "6", "BT": "7", "BV": "8",
	"BR": "9", "BZ": "10", "CS": "11", "CJ": "12", "CT": "13", "CV": "14", "DB": "15", "DJ": "16",
	"GL": "17", "GJ": "18", "HR": "19", "HD": "20", "IL": "21", "IS": "22", "IF": "23", "MM": "24",
	"MH": "25", "MS": "26", "NT": "27", "OT": "28", "PH": "29", "SM": "30", "SJ": "31", "SB": "32",
	"SV": "33", "TR": "34", "TM": "35", "TL": "36", "VS": "37", "VL": "38", "VN": "39", "B": "40",
	"CL": "51", "GR": "52",
}

// CountyCode maps a Romanian state code to the numeric county code.
func CountyCode(state string) (string, bool) {
	code, ok := countyCodes[strings.ToUpper(state)]
	return code, ok
}

// CountryCode returns the country code as ANAF expects it. Greece is EL.
func CountryCode(country string) string {
	if country == "GR" {
		return "EL"
	}
	return country
}

// PartyCode returns the VAT number upper cased without the RO prefix.
func PartyCode(vat string) string {
	return strings.ReplaceAll(strings.ToUpper(vat), "RO", "")
}
