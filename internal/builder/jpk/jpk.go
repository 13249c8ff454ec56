package jpk

import (
	"fmt"
	"strconv"
	"time"

	"github.com/edocument-exchange/internal/builder/xmltree"
	"github.com/edocument-exchange/internal/domain/party"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

type Variant string

const (
	VariantMonthly   Variant = "V7M"
	VariantQuarterly Variant = "V7K"
)

type schema struct {
	namespace   string
	formCode    string
	formVariant string
	declCode    string
	declVariant string
}

var schemas = map[Variant]schema{
	VariantMonthly: {
		namespace:   "http://crd.gov.pl/wzor/2021/12/27/11148/",
		formCode:    "JPK_V7M (2)",
		formVariant: "2",
		declCode:    "VAT-7 (22)",
		declVariant: "22",
	},
	VariantQuarterly: {
		namespace:   "http://crd.gov.pl/wzor/2021/12/27/11149/",
		formCode:    "JPK_V7K (2)",
		formVariant: "2",
		declCode:    "VAT-7K (16)",
		declVariant: "16",
	},
}

const (
	schemaVersion = "1-0E"
	etdNamespace  = "http://crd.gov.pl/xml/schematy/dziedzinowe/mf/2021/06/08/eD/DefinicjeTypy/"
	systemName    = "edocument-exchange"
)

var (
	elem = xmltree.E
	text = xmltree.T
	attr = xmltree.A
)

// HasDeclaration reports whether the file for month carries the declaration part.
// Quarterly filers declare only in the last month of a quarter.
func HasDeclaration(v Variant, month time.Month) bool {
	if v == VariantQuarterly {
		return month%3 == 0
	}
	return true
}

// Report is everything one JPK file is rendered from.
type Report struct {
	Variant    Variant
	Company    record.Party
	TaxOffice  string
	Year       int
	Month      time.Month
	Correction bool
	Rows       []Row
	// Declaration is ignored when the variant does not declare in Month.
	Declaration Values
}

// Build renders r. The timestamp is written as the creation date of the file.
func Build(c *Catalog, r Report, now time.Time) ([]byte, error) {
	s, ok := schemas[r.Variant]
	if !ok {
		return nil, shared.NewError(shared.KindConfiguration, fmt.Sprintf("unknown JPK variant %q", r.Variant), nil)
	}
	if r.TaxOffice == "" {
		return nil, shared.NewError(shared.KindConfiguration, "the company has no tax office code", nil)
	}

	purpose := "1"
	if r.Correction {
		purpose = "2"
	}
	header := elem("Naglowek",
		text("KodFormularza", "JPK_VAT", attr("kodSystemowy", s.formCode), attr("wersjaSchemy", schemaVersion)),
		text("WariantFormularza", s.formVariant),
		text("DataWytworzeniaJPK", now.UTC().Format("2006-01-02T15:04:05Z")),
		text("NazwaSystemu", systemName),
		text("CelZlozenia", purpose, attr("poz", "P_7")),
		text("KodUrzedu", r.TaxOffice),
		text("Rok", strconv.Itoa(r.Year)),
		text("Miesiac", strconv.Itoa(int(r.Month))),
	)

	subject := elem("Podmiot1",
		elem("OsobaNiefizyczna",
			text("NIP", party.NIP{}.Canonical(r.Company.VAT)),
			text("PelnaNazwa", r.Company.Name),
			text("Email", r.Company.Email),
			text("Telefon", r.Company.Phone),
		),
	).Attrs(attr("rola", "Podatnik"))

	root := elem("JPK", header, subject).Attrs(
		attr("xmlns", s.namespace),
		attr("xmlns:etd", etdNamespace),
	)
	if HasDeclaration(r.Variant, r.Month) {
		root.Add(declaration(s, r.Declaration))
	}
	root.Add(c.evidence(r.Rows))

	out, err := xmltree.Render(root, xmltree.Pretty)
	if err != nil {
		return nil, shared.NewError(shared.KindSerialization, "failed to render JPK file", err)
	}
	return out, nil
}

func declaration(s schema, p Values) *xmltree.Node {
	positions := elem("PozycjeSzczegolowe")
	for _, n := range p.Fields() {
		amount := p.Get(n)
		// Zero positions are optional except the ones closing the settlement.
		if amount.IsZero() && n != 38 && n != 51 {
			continue
		}
		positions.Add(text(fmt.Sprintf("P_%d", n), whole(amount)))
	}
	return elem("Deklaracja",
		elem("Naglowek",
			text("KodFormularzaDekl", "VAT-7", attr("kodSystemowy", s.declCode), attr("kodPodatku", "VAT"),
				attr("rodzajZobowiazania", "Z"), attr("wersjaSchemy", schemaVersion)),
			text("WariantFormularzaDekl", s.declVariant),
		),
		positions,
		text("Pouczenia", "1"),
	)
}

func (c *Catalog) evidence(rows []Row) *xmltree.Node {
	ev := elem("Ewidencja").Keep()
	sales, purchases := 0, 0
	for _, r := range rows {
		if r.Side != SideSale {
			continue
		}
		sales++
		ev.Add(saleRow(sales, r))
	}
	ev.Add(elem("SprzedazCtrl",
		text("LiczbaWierszySprzedazy", strconv.Itoa(sales)),
		text("PodatekNalezny", two(c.TaxTotal(rows, SideSale))),
	))
	for _, r := range rows {
		if r.Side != SidePurchase {
			continue
		}
		purchases++
		ev.Add(purchaseRow(purchases, r))
	}
	ev.Add(elem("ZakupCtrl",
		text("LiczbaWierszyZakupow", strconv.Itoa(purchases)),
		text("PodatekNaliczony", two(c.TaxTotal(rows, SidePurchase))),
	))
	return ev
}

func saleRow(lp int, r Row) *xmltree.Node {
	rec := r.Record
	row := elem("SprzedazWiersz",
		text("LpSprzedazy", strconv.Itoa(lp)),
		text("KodKrajuNadaniaTIN", rec.Partner.CountryCode),
		text("NrKontrahenta", counterpartID(rec.Partner)),
		text("NazwaKontrahenta", rec.Partner.Name),
		text("DowodSprzedazy", rec.Name),
		text("DataWystawienia", day(rec.IssueDate)),
	)
	if pl := rec.Extensions.PL; pl != nil {
		row.Add(text("TypDokumentu", pl.DocumentType))
		for _, m := range pl.Markers {
			row.Add(text(m, "1"))
		}
	}
	if rec.Type.IsRefund() {
		row.Add(text("KorektaPodstawyOpodt", "1"))
	}
	return addFields(row, "K_", r.Fields)
}

func purchaseRow(lp int, r Row) *xmltree.Node {
	rec := r.Record
	row := elem("ZakupWiersz",
		text("LpZakupu", strconv.Itoa(lp)),
		text("KodKrajuNadaniaTIN", rec.Partner.CountryCode),
		text("NrDostawcy", counterpartID(rec.Partner)),
		text("NazwaDostawcy", rec.Partner.Name),
		text("DowodZakupu", rec.Name),
		text("DataZakupu", day(rec.IssueDate)),
	)
	if pl := rec.Extensions.PL; pl != nil {
		for _, m := range pl.Markers {
			row.Add(text(m, "1"))
		}
	}
	return addFields(row, "K_", r.Fields)
}

func addFields(row *xmltree.Node, prefix string, v Values) *xmltree.Node {
	for _, n := range v.Fields() {
		row.Add(text(fmt.Sprintf("%s%d", prefix, n), two(v.Get(n))))
	}
	return row
}

// counterpartID is the NIP for Polish partners and the raw VAT number otherwise,
// "brak" when the partner has none.
func counterpartID(p record.Party) string {
	switch {
	case p.VAT == "":
		return "brak"
	case p.CountryCode == "PL":
		return party.NIP{}.Canonical(p.VAT)
	}
	return p.VAT
}

func two(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func whole(d decimal.Decimal) string {
	return d.Round(0).StringFixed(0)
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}
