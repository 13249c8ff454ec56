// Package recordtest provides source record fixtures shared by package tests.
package recordtest

import (
	"time"

	"github.com/edocument-exchange/internal/domain/record"
	"github.com/shopspring/decimal"
)

// D parses a decimal literal and panics on malformed input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func VAT(rate string) record.Tax {
	return record.Tax{Name: "VAT " + rate + "%", AmountType: record.TaxPercent, Amount: D(rate)}
}

// FRInvoice is a domestic B2B invoice of 100 EUR with 20% VAT.
func FRInvoice() *record.SourceRecord {
	return &record.SourceRecord{
		ID:        101,
		CompanyID: 1,
		Type:      record.TypeOutInvoice,
		State:     record.StatePosted,
		Name:      "FA2024/0001",
		Company: record.Party{
			Name: "Atelier Dupont SAS", VAT: "FR40552120222", CompanyRegistry: "55212022200005",
			Street: "12 rue de la Paix", City: "Paris", Zip: "75002", CountryCode: "FR", IsCompany: true,
		},
		Partner: record.Party{
			Name: "Boulangerie Martin SARL", VAT: "FR40303265045", CompanyRegistry: "552120222",
			Street: "3 avenue Foch", City: "Lyon", Zip: "69006", CountryCode: "FR", IsCompany: true,
		},
		Currency:  "EUR",
		IssueDate: date(2024, 3, 15),
		DueDate:   date(2024, 4, 14),
		Lines: []record.Line{{
			Name: "Consulting", ProductCode: "CONS", Quantity: D("1"), UnitCode: "C62",
			PriceUnit: D("100"), Discount: decimal.Zero, Taxes: []record.Tax{VAT("20")}, Kind: record.LineProduct,
		}},
	}
}

// ROInvoice is a Romanian invoice to a Bucharest customer located in city.
func ROInvoice(city string) *record.SourceRecord {
	return &record.SourceRecord{
		ID:        201,
		CompanyID: 2,
		Type:      record.TypeOutInvoice,
		State:     record.StatePosted,
		Name:      "INV/2024/00042",
		Company: record.Party{
			Name: "Exemplu Distributie SRL", VAT: "RO18547290", CompanyRegistry: "J12/1234/2010",
			Street: "Strada Memorandumului 28", City: "Cluj-Napoca", Zip: "400114", StateCode: "CJ",
			CountryCode: "RO", Phone: "+40264123456", IsCompany: true,
		},
		Partner: record.Party{
			Name: "Client Bucuresti SRL", VAT: "RO14399840",
			Street: "Bulevardul Unirii 10", City: city, Zip: "030167", StateCode: "B",
			CountryCode: "RO", IsCompany: true,
		},
		Currency:  "RON",
		IssueDate: date(2024, 4, 2),
		DueDate:   date(2024, 5, 2),
		Lines: []record.Line{{
			Name: "Laptop", ProductCode: "LPT-01", Quantity: D("2"), UnitCode: "H87",
			PriceUnit: D("2500"), Discount: D("5"), Taxes: []record.Tax{VAT("19")}, Kind: record.LineProduct,
		}},
	}
}

// JOInvoice is the single line Jordanian invoice with a nine decimal unit price.
func JOInvoice() *record.SourceRecord {
	return &record.SourceRecord{
		ID:        301,
		CompanyID: 3,
		Type:      record.TypeOutInvoice,
		State:     record.StatePosted,
		Name:      "INV/JO/0001",
		UUID:      "5f0c8b9e-3d2a-4c1b-9a7e-2b1d3c4e5f60",
		Company: record.Party{
			Name: "Amman Trading Co", VAT: "12345678", Street: "Zahran St", City: "Amman",
			Zip: "11181", CountryCode: "JO", IsCompany: true,
		},
		Partner: record.Party{
			Name: "Petra Retail", VAT: "87654321", Street: "Mecca St", City: "Amman",
			Zip: "11183", StateCode: "JO-AM", CountryCode: "JO", Phone: "0791234567", IsCompany: true,
		},
		Currency:  "JOD",
		IssueDate: date(2024, 6, 1),
		DueDate:   date(2024, 6, 1),
		Lines: []record.Line{{
			Name: "Widget", Quantity: D("3"), UnitCode: "PCE", PriceUnit: D("7.123456789"),
			Discount: D("10"), Taxes: []record.Tax{VAT("16")}, Kind: record.LineProduct,
		}},
		Extensions: record.Extensions{JO: &record.JOExtension{SupplyType: "sales", IncomeSourceCode: "4419", InvoiceCounter: 1}},
	}
}

// Picking is a done shipment from a Bucharest warehouse to a Hungarian customer.
func Picking(id int64, lines ...record.Line) *record.SourceRecord {
	if len(lines) == 0 {
		lines = []record.Line{{
			Name: "Steel beams", ProductCode: "STL-1", Quantity: D("10"), UnitCode: "KGM",
			PriceUnit: D("12.5"), NetWeight: D("100"), GrossWeight: D("104.5"), Value: D("125"),
			TariffCode: "72163100", Kind: record.LineProduct,
		}}
	}
	return &record.SourceRecord{
		ID:        id,
		CompanyID: 2,
		Type:      record.TypeShipment,
		State:     record.StateDone,
		Name:      "WH/OUT/" + decimal.NewFromInt(id).String(),
		Company: record.Party{
			Name: "Exemplu Distributie SRL", VAT: "RO18547290", Street: "Strada Depozitului 5",
			City: "SECTOR3", Zip: "032451", StateCode: "B", CountryCode: "RO", IsCompany: true,
		},
		Partner: record.Party{
			Name: "Budapest Kft", VAT: "HU12345678", Street: "Andrassy ut 1", City: "Budapest",
			Zip: "1061", CountryCode: "HU", IsCompany: true,
		},
		Currency:  "RON",
		IssueDate: date(2024, 7, 10),
		DueDate:   date(2024, 7, 10),
		Lines:     lines,
		Extensions: record.Extensions{ROTransport: &record.ROTransportExtension{
			OperationType: "20",
			Scope:         "101",
			VehicleNumber: "b123abc",
			Trailer1:      "b456def",
			Start: record.Location{Type: record.LocationAddress, Address: &record.Party{
				Street: "Strada Depozitului 5", City: "SECTOR3", Zip: "032451", StateCode: "B", CountryCode: "RO",
			}},
			End: record.Location{Type: record.LocationBCP, BCP: "4"},
			Carrier: &record.Party{
				Name: "Trans Rapid SRL", VAT: "RO14399840", Street: "Calea Vitan 2", City: "Bucuresti", CountryCode: "RO",
			},
			TransportDate: date(2024, 7, 11),
			Remarks:       "Fragile",
		}},
	}
}

// PLInvoice is a Polish sale or purchase with JPK tags on its tax.
func PLInvoice(id int64, typ record.Type, base string, rate string, tags ...string) *record.SourceRecord {
	tax := VAT(rate)
	tax.Tags = tags
	return &record.SourceRecord{
		ID:        id,
		CompanyID: 4,
		Type:      typ,
		State:     record.StatePosted,
		Name:      "FV/2024/03/" + decimal.NewFromInt(id).String(),
		Company: record.Party{
			Name: "Przyklad Sp. z o.o.", VAT: "PL5261040828", Street: "ul. Marszalkowska 1", City: "Warszawa",
			Zip: "00-624", CountryCode: "PL", Email: "biuro@przyklad.pl", IsCompany: true,
		},
		Partner: record.Party{
			Name: "Kontrahent SA", VAT: "PL1234563218", Street: "ul. Dluga 5", City: "Krakow",
			Zip: "31-147", CountryCode: "PL", IsCompany: true,
		},
		Currency:  "PLN",
		IssueDate: date(2024, 3, 5+int(id%20)),
		DueDate:   date(2024, 4, 5),
		Lines: []record.Line{{
			Name: "Towar", Quantity: D("1"), PriceUnit: D(base), Taxes: []record.Tax{tax}, Kind: record.LineProduct,
		}},
	}
}

// AUBill is a contractor bill paid by an Australian business.
func AUBill(id int64, payeeABN, amount, gstRate string) *record.SourceRecord {
	return &record.SourceRecord{
		ID:        id,
		CompanyID: 5,
		Type:      record.TypeInInvoice,
		State:     record.StatePosted,
		Name:      "BILL/2024/" + decimal.NewFromInt(id).String(),
		Company: record.Party{
			Name: "Outback Builders Pty Ltd", VAT: "51824753556", Street: "1 George St", City: "Sydney",
			Zip: "2000", StateCode: "NSW", CountryCode: "AU", Phone: "0291234567", Email: "accounts@outback.example", IsCompany: true,
		},
		Partner: record.Party{
			Name: "Sparky Electrical", VAT: payeeABN, Street: "22 Pitt St", City: "Sydney",
			Zip: "2000", StateCode: "NSW", CountryCode: "AU", Phone: "0298765432", IsCompany: true,
		},
		Currency:  "AUD",
		IssueDate: date(2024, 2, 10),
		DueDate:   date(2024, 3, 10),
		Lines: []record.Line{{
			Name: "Electrical works", Quantity: D("1"), PriceUnit: D(amount), Taxes: []record.Tax{VAT(gstRate)}, Kind: record.LineProduct,
		}},
		Extensions: record.Extensions{AU: &record.AUExtension{TaxWithheld: decimal.Zero}},
		PaymentRefs: []string{"PAY-" + decimal.NewFromInt(id).String()},
	}
}
