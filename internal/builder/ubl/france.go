package ubl

import (
	"github.com/edocument-exchange/internal/builder/xmltree"
	"github.com/edocument-exchange/internal/domain/party"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
)

// NoteCodes are the French note subject codes in rendering order.
var NoteCodes = []string{"AAB", "AAI", "ABL", "ACC", "BLU", "DCL", "PMT", "PMD", "SUR", "TXD"}

// MandatoryNotes are rendered with their default text when the record has none.
var MandatoryNotes = []struct {
	Code    string
	Default string
}{
	{"PMT", "En cas de retard de paiement, une indemnité forfaitaire de 40€ pour frais de recouvrement sera exigée (Art. L441-10 et D441-5 du Code de Commerce)."},
	{"PMD", "Pénalités de retard : taux BCE majoré de 10 points."},
	{"AAB", "Pas d'escompte pour paiement anticipé."},
}

// FR is the French CIUS of EN16931.
var FR = register(shared.ProfileFRCIUS, extend(UBL21, "fr_cius", func(p *Profile) {
	p.CustomizationID = "urn:cen.eu:en16931:2017"
	p.Header = func(self *Profile, c *Context) []*xmltree.Node {
		nodes := p.Parent.Header(self, c)
		head := []*xmltree.Node{
			nodes[0],
			text("cbc:CustomizationID", self.CustomizationID),
			text("cbc:ProfileID", c.View.BillingMode),
		}
		return append(head, nodes[1:]...)
	}
	p.Notes = func(_ *Profile, c *Context) []*xmltree.Node {
		var nodes []*xmltree.Node
		for _, n := range FrenchNotes(c.View.Extensions.FR) {
			nodes = append(nodes, text("cbc:Note", "#"+n.Code+"#"+n.Text))
		}
		return nodes
	}
	p.Currency = func(self *Profile, c *Context) []*xmltree.Node {
		fr := frExtension(c)
		var nodes []*xmltree.Node
		if fr.TaxPointDate != nil {
			nodes = append(nodes, text("cbc:TaxPointDate", date(*fr.TaxPointDate)))
		}
		nodes = append(nodes, p.Parent.Currency(self, c)...)
		return append(nodes, text("cbc:BuyerReference", fr.BuyerReference))
	}
	p.Party = func(self *Profile, c *Context, pt record.Party, _ Role) *xmltree.Node {
		var taxScheme *xmltree.Node
		if pt.VAT != "" {
			taxScheme = elem("cac:PartyTaxScheme",
				text("cbc:CompanyID", pt.VAT),
				elem("cac:TaxScheme", text("cbc:ID", "VAT")),
			)
		}
		return elem("cac:Party",
			frenchEndpoint(pt.CompanyRegistry),
			elem("cac:PartyName", text("cbc:Name", pt.Name)),
			self.Address(self, c, pt),
			taxScheme,
			elem("cac:PartyLegalEntity",
				text("cbc:RegistrationName", pt.Name),
				frenchLegalID(pt.CompanyRegistry),
			),
			elem("cac:Contact",
				text("cbc:Telephone", pt.Phone),
				text("cbc:ElectronicMail", pt.Email),
			),
		)
	}
	p.PaymentMeans = func(self *Profile, c *Context) []*xmltree.Node {
		fr := frExtension(c)
		var nodes []*xmltree.Node
		if fr.PayeeName != "" {
			nodes = append(nodes, elem("cac:PayeeParty",
				elem("cac:PartyIdentification", frenchEndpoint(fr.PayeeSIRET).SetName("cbc:ID")),
				elem("cac:PartyName", text("cbc:Name", fr.PayeeName)),
				elem("cac:PartyLegalEntity", frenchLegalID(fr.PayeeSIRET)),
			))
		}
		switch {
		case fr.MandateID != "":
			nodes = append(nodes, elem("cac:PaymentMeans",
				text("cbc:PaymentMeansCode", "59"),
				text("cbc:PaymentID", c.View.Record.Name),
				elem("cac:PaymentMandate", text("cbc:ID", fr.MandateID)),
			))
		case fr.CardPAN != "":
			nodes = append(nodes, elem("cac:PaymentMeans",
				text("cbc:PaymentMeansCode", "48"),
				elem("cac:CardAccount",
					text("cbc:PrimaryAccountNumberID", fr.CardPAN),
					text("cbc:NetworkID", "CB"),
				),
			))
		default:
			nodes = append(nodes, p.Parent.PaymentMeans(self, c)...)
		}
		return nodes
	}
}))

func frExtension(c *Context) *record.FRExtension {
	if c.View.Extensions.FR == nil {
		return &record.FRExtension{}
	}
	return c.View.Extensions.FR
}

// Note is a French subject coded note.
type Note struct {
	Code string
	Text string
}

// FrenchNotes returns the notes of ext in code list order. Mandatory codes the
// record does not carry get their default text.
func FrenchNotes(ext *record.FRExtension) []Note {
	defaults := map[string]string{}
	for _, m := range MandatoryNotes {
		defaults[m.Code] = m.Default
	}
	var notes []Note
	for _, code := range NoteCodes {
		content := ""
		if ext != nil {
			content = ext.Notes[code]
		}
		if content == "" {
			content = defaults[code]
		}
		if content != "" {
			notes = append(notes, Note{Code: code, Text: content})
		}
	}
	return notes
}

// frenchEndpoint is the electronic address of a French entity: a SIRET uses scheme
// 0009 and a SIREN scheme 0002.
func frenchEndpoint(registry string) *xmltree.Node {
	if id := (party.SIRET{}); id.Validate(registry) == nil {
		return text("cbc:EndpointID", id.Canonical(registry), attr("schemeID", id.SchemeID()))
	}
	if id := (party.SIREN{}); id.Validate(registry) == nil {
		return text("cbc:EndpointID", id.Canonical(registry), attr("schemeID", id.SchemeID()))
	}
	return text("cbc:EndpointID", "")
}

// frenchLegalID identifies the legal entity by its SIREN, derived from the SIRET when needed.
func frenchLegalID(registry string) *xmltree.Node {
	siren := party.SIREN{}.Canonical(registry)
	if (party.SIRET{}).Validate(registry) == nil {
		siren = party.SIRENFromSIRET(party.SIRET{}.Canonical(registry))
	}
	if (party.SIREN{}).Validate(siren) != nil {
		return nil
	}
	return text("cbc:CompanyID", siren, attr("schemeID", party.SIREN{}.SchemeID()))
}
