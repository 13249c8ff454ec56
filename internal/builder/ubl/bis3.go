package ubl

import (
	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/builder/xmltree"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
)

// endpointSchemes maps a country to the EAS code of its VAT based electronic address.
var endpointSchemes = map[string]string{
	"AT": "9914", "BE": "9925", "BG": "9926", "CY": "9928", "CZ": "9929", "DE": "9930",
	"EE": "9931", "ES": "9920", "FR": "9957", "GR": "9933", "HR": "9934", "HU": "9910",
	"IE": "9935", "IT": "0211", "LT": "9937", "LU": "9938", "LV": "9939", "MT": "9943",
	"NL": "9944", "PL": "9945", "PT": "9946", "RO": "9947", "SI": "9949", "SK": "9950",
}

// BIS3 is the Peppol BIS Billing 3.0 dialect.
var BIS3 = extend(UBL21, "ubl_bis3", func(p *Profile) {
	p.CustomizationID = "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0"
	p.Header = func(self *Profile, c *Context) []*xmltree.Node {
		nodes := p.Parent.Header(self, c)
		// BIS3 has no UBLVersionID.
		return append([]*xmltree.Node{
			text("cbc:CustomizationID", self.CustomizationID),
			text("cbc:ProfileID", "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"),
		}, nodes[1:]...)
	}
	p.Currency = func(self *Profile, c *Context) []*xmltree.Node {
		buyerRef := c.View.Record.Name
		if fr := c.View.Extensions.FR; fr != nil && fr.BuyerReference != "" {
			buyerRef = fr.BuyerReference
		}
		return append(p.Parent.Currency(self, c), text("cbc:BuyerReference", buyerRef))
	}
	p.Party = func(self *Profile, c *Context, party record.Party, role Role) *xmltree.Node {
		node := p.Parent.Party(self, c, party, role)
		endpoint := bis3Endpoint(party)
		if endpoint == nil {
			return node
		}
		return elem("cac:Party", endpoint).Add(node.Children()...)
	}
	p.LineTaxTotal = func(*Profile, *Context, adapter.LineView) *xmltree.Node { return nil }
})

func bis3Endpoint(p record.Party) *xmltree.Node {
	scheme, ok := endpointSchemes[p.CountryCode]
	if !ok || p.VAT == "" {
		return nil
	}
	return text("cbc:EndpointID", p.VAT, attr("schemeID", scheme))
}

// RO is the Romanian CIUS-RO dialect reported to ANAF e-Factura.
var RO = register(shared.ProfileROCIUS, extend(BIS3, "ro_cius", func(p *Profile) {
	p.CustomizationID = "urn:cen.eu:en16931:2017#compliant#urn:efactura.mfinante.ro:CIUS-RO:1.0.1"
	p.Address = func(self *Profile, c *Context, party record.Party) *xmltree.Node {
		if party.CountryCode == "RO" {
			party.City = adapter.RomanianCity(party)
			if party.StateCode != "" {
				party.StateCode = "RO-" + party.StateCode
			}
		}
		return p.Parent.Address(self, c, party)
	}
}))
