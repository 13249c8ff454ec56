// Package etransport renders the Romanian eTransport declaration (schema v2) for a
// batch of shipments travelling together.
package etransport

import (
	"fmt"
	"strings"
	"time"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/builder/xmltree"
	catalog "github.com/edocument-exchange/internal/domain/etransport"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	Namespace = "mfp:anaf:dgti:eTransport:declaratie:v2"

	defaultTariffCode = "00000000"
	transportDocument = "30"
)

var (
	elem = xmltree.E
	attr = xmltree.A
)

// Batch is the input of one declaration. The first shipment carries the transport
// data; every shipment contributes its goods and its transport document.
type Batch struct {
	Shipments []*adapter.View
	// UIT is set on amendments and references the declaration being corrected.
	UIT string
}

// Build renders the declaration of b.
func Build(b Batch, _ time.Time) ([]byte, error) {
	if len(b.Shipments) == 0 {
		return nil, shared.NewError(shared.KindConfiguration, "an eTransport declaration needs at least one shipment", nil)
	}
	first := b.Shipments[0]
	ext := first.Extensions.ROTransport
	if ext == nil {
		return nil, shared.NewError(shared.KindValidation,
			fmt.Sprintf("shipment %s has no eTransport data", first.Record.Name), nil)
	}
	for _, v := range b.Shipments[1:] {
		other := v.Extensions.ROTransport
		if other == nil || other.OperationType != ext.OperationType || other.VehicleNumber != ext.VehicleNumber {
			return nil, shared.NewError(shared.KindValidation,
				fmt.Sprintf("shipment %s does not travel with %s", v.Record.Name, first.Record.Name), nil)
		}
	}

	notification := elem("notificare").Attrs(attr("codTipOperatiune", ext.OperationType))
	if b.UIT != "" {
		notification.Add(elem("corectie").Attrs(attr("uit", b.UIT)))
	}
	for _, v := range b.Shipments {
		for _, l := range v.ProductLines() {
			notification.Add(goods(v.Extensions.ROTransport, l))
		}
	}
	notification.Add(
		commercialPartner(first),
		transportData(ext),
		routePoint("locStartTraseuRutier", ext.Start, first.Company),
		routePoint("locFinalTraseuRutier", ext.End, first.Partner),
	)
	for _, v := range b.Shipments {
		e := v.Extensions.ROTransport
		notification.Add(elem("documenteTransport").Attrs(
			attr("tipDocument", transportDocument),
			attr("dataDocument", day(e.TransportDate)),
			attr("numarDocument", v.Record.Name),
			attr("observatii", e.Remarks),
		))
	}

	root := elem("eTransport", notification).Attrs(
		attr("xmlns", Namespace),
		attr("codDeclarant", catalog.PartyCode(first.Company.VAT)),
		attr("refDeclarant", first.Record.Name),
	)
	out, err := xmltree.Render(root, xmltree.Pretty)
	if err != nil {
		return nil, shared.NewError(shared.KindSerialization, "failed to render eTransport declaration", err)
	}
	return out, nil
}

func goods(ext *record.ROTransportExtension, l adapter.LineView) *xmltree.Node {
	tariff := l.Line.TariffCode
	if tariff == "" {
		tariff = defaultTariffCode
	}
	value := l.Line.Value
	if value.IsZero() {
		value = l.TotalExcluded
	}
	return elem("bunuriTransportate").Attrs(
		attr("codScopOperatiune", ext.Scope),
		attr("codTarifar", tariff),
		attr("denumireMarfa", l.Line.Name),
		attr("cantitate", two(l.Line.Quantity)),
		attr("codUnitateMasura", unit(l.Line.UnitCode)),
		attr("greutateNeta", two(l.Line.NetWeight)),
		attr("greutateBruta", two(l.Line.GrossWeight)),
		attr("valoareLeiFaraTva", two(value)),
	)
}

func commercialPartner(v *adapter.View) *xmltree.Node {
	code := ""
	switch {
	case v.Partner.VAT != "":
		code = catalog.PartyCode(v.Partner.VAT)
	case v.Extensions.ROTransport.OperationType == "30":
		code = "PF"
	}
	return elem("partenerComercial").Attrs(
		attr("codTara", catalog.CountryCode(v.Partner.CountryCode)),
		attr("denumire", v.Partner.Name),
		attr("cod", code),
	)
}

func transportData(ext *record.ROTransportExtension) *xmltree.Node {
	carrier := record.Party{}
	if ext.Carrier != nil {
		carrier = *ext.Carrier
	}
	return elem("dateTransport").Attrs(
		attr("nrVehicul", strings.ToUpper(ext.VehicleNumber)),
		attr("nrRemorca1", strings.ToUpper(ext.Trailer1)),
		attr("nrRemorca2", strings.ToUpper(ext.Trailer2)),
		attr("codTaraOrgTransport", catalog.CountryCode(carrier.CountryCode)),
		attr("codOrgTransport", catalog.PartyCode(carrier.VAT)),
		attr("denumireOrgTransport", carrier.Name),
		attr("dataTransport", day(ext.TransportDate)),
	)
}

// routePoint renders a start or end point. Address locations without an explicit
// address fall back to the warehouse (start) or the customer (end).
func routePoint(name string, loc record.Location, fallback record.Party) *xmltree.Node {
	switch loc.Type {
	case record.LocationBCP:
		return elem(name).Attrs(attr("codPtf", loc.BCP))
	case record.LocationCustoms:
		return elem(name).Attrs(attr("codBirouVamal", loc.CustomsOffice))
	}
	address := fallback
	if loc.Address != nil {
		address = *loc.Address
	}
	county, _ := catalog.CountyCode(address.StateCode)
	return elem(name, elem("locatie").Attrs(
		attr("codJudet", county),
		attr("denumireLocalitate", address.City),
		attr("denumireStrada", address.Street),
		attr("codPostal", address.Zip),
		attr("alteInfo", address.Street2),
	))
}

func two(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}

func unit(code string) string {
	if code == "" {
		return "H87"
	}
	return code
}
