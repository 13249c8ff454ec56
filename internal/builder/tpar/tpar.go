// Package tpar writes the Australian Taxable Payments Annual Report: a text file
// of fixed-width records: three sender records, the payer, the producing software,
// one record per payee and a trailer.
package tpar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/domain/party"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	specVersion = "FPAIVV03.0"
	lineBreak   = "\r\n"

	amountWidth = 11

	defaultSoftware = "EDOCUMENT-EXCHANGE"
)

// Payee is the yearly total paid to one contractor.
type Payee struct {
	Party       record.Party
	GrossPaid   decimal.Decimal
	TaxWithheld decimal.Decimal
	GST         decimal.Decimal
	GrantPaid   decimal.Decimal
	Amended     bool
}

// Report is the input of one file.
type Report struct {
	Payer record.Party
	// Contact defaults to the payer when empty.
	Contact record.Party
	// FinancialYear is the calendar year the financial year ends in.
	FinancialYear int
	Payees        []Payee
	Test          bool
	FileReference string
	// Software names the product that wrote the file. Empty means this one.
	Software string
}

// Payees sums paid bills per payee ABN. Refunds reduce the totals; payees are
// returned ordered by ABN.
func Payees(views []*adapter.View) []Payee {
	index := map[string]int{}
	var out []Payee
	for _, v := range views {
		abn := party.ABN{}.Canonical(v.Partner.VAT)
		i, ok := index[abn]
		if !ok {
			i = len(out)
			index[abn] = i
			out = append(out, Payee{Party: v.Partner})
		}
		sign := decimal.NewFromInt(1)
		if v.IsRefund {
			sign = sign.Neg()
		}
		p := &out[i]
		p.GrossPaid = p.GrossPaid.Add(v.TotalIncluded.Mul(sign))
		p.GST = p.GST.Add(v.TotalPercentTax.Mul(sign))
		if au := v.Extensions.AU; au != nil {
			p.TaxWithheld = p.TaxWithheld.Add(au.TaxWithheld.Mul(sign))
			if au.Grant {
				p.GrantPaid = p.GrantPaid.Add(v.TotalIncluded.Mul(sign))
				p.GrossPaid = p.GrossPaid.Sub(v.TotalIncluded.Mul(sign))
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return party.ABN{}.Canonical(out[i].Party.VAT) < party.ABN{}.Canonical(out[j].Party.VAT)
	})
	return out
}

// Build renders r. Every record is exactly RecordLength characters; a record of any
// other length aborts the file.
func Build(r Report, _ time.Time) ([]byte, error) {
	if r.FinancialYear == 0 {
		return nil, shared.NewError(shared.KindConfiguration, "TPAR report needs a financial year", nil)
	}
	contact := r.Contact
	if contact.Name == "" {
		contact = r.Payer
	}

	records := []*field{
		register1(r),
		register2(r, contact),
		register3(r.Payer),
		identity(r, contact),
		software(r),
	}
	for _, p := range r.Payees {
		records = append(records, payee(p))
	}
	total := newRecord("FILE-TOTAL").numeric(strconv.Itoa(len(records)+1), 10)
	records = append(records, total)

	var b strings.Builder
	for i, rec := range records {
		line, err := rec.finish()
		if err != nil {
			return nil, shared.NewError(shared.KindSerialization, fmt.Sprintf("TPAR record %d is malformed", i+1), err)
		}
		b.WriteString(line)
		b.WriteString(lineBreak)
	}
	return []byte(b.String()), nil
}

func register1(r Report) *field {
	runType := "P"
	if r.Test {
		runType = "T"
	}
	end := time.Date(r.FinancialYear, time.June, 30, 0, 0, 0, 0, time.UTC)
	return newRecord("IDENTREGISTER1").
		numeric(abn(r.Payer), 11).
		alpha(runType, 1).
		numeric(end.Format("02012006"), 8).
		alpha("E", 1).
		alpha("C", 1).
		alpha("M", 1).
		alpha(specVersion, 10)
}

func register2(r Report, contact record.Party) *field {
	return newRecord("IDENTREGISTER2").
		alpha(r.Payer.Name, 200).
		alpha(contact.Name, 38).
		alpha(phone(contact.Phone), 15).
		alpha("", 15).
		alpha(r.FileReference, 16)
}

func register3(p record.Party) *field {
	f := newRecord("IDENTREGISTER3")
	address(f, p)
	address(f, p)
	return f.alpha(p.Email, 76)
}

func identity(r Report, contact record.Party) *field {
	f := newRecord("IDENTITY").
		numeric(abn(r.Payer), 11).
		numeric("1", 3).
		numeric(strconv.Itoa(r.FinancialYear), 4).
		alpha(r.Payer.Name, 200).
		alpha("", 200)
	address(f, r.Payer)
	return f.
		alpha(contact.Name, 38).
		alpha(phone(contact.Phone), 15).
		alpha("", 15)
}

// software describes the producing package, the product type field only.
func software(r Report) *field {
	name := r.Software
	if name == "" {
		name = defaultSoftware
	}
	return newRecord("SOFTWARE").alpha(name, 80)
}

func payee(p Payee) *field {
	amendment := "O"
	if p.Amended {
		amendment = "A"
	}
	f := newRecord("DPAIVS").
		numeric(abn(p.Party), 11).
		alpha(p.Party.Name, 200).
		alpha("", 200)
	address(f, p.Party)
	return f.
		alpha(phone(p.Party.Phone), 15).
		alpha("", 6).
		alpha("", 9).
		dollars(p.GrossPaid, amountWidth).
		dollars(p.TaxWithheld, amountWidth).
		dollars(p.GST, amountWidth).
		dollars(p.GrantPaid, amountWidth).
		alpha(amendment, 1)
}

// address writes street, suburb, state, postcode and country. Australian
// addresses leave the country blank.
func address(f *field, p record.Party) {
	country := ""
	if p.CountryCode != "" && p.CountryCode != "AU" {
		country = p.CountryCode
	}
	f.alpha(p.Street, 38).
		alpha(p.Street2, 38).
		alpha(p.City, 27).
		alpha(p.StateCode, 3).
		numeric(p.Zip, 4).
		alpha(country, 20)
}

func abn(p record.Party) string {
	return party.ABN{}.Canonical(p.VAT)
}

func phone(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
