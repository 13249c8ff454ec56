package components

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/edocument-exchange/internal/adapter"
	"github.com/edocument-exchange/internal/builder/etransport"
	"github.com/edocument-exchange/internal/builder/jpk"
	"github.com/edocument-exchange/internal/builder/tpar"
	"github.com/edocument-exchange/internal/builder/ubl"
	"github.com/edocument-exchange/internal/domain/company"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor/service"
	"github.com/edocument-exchange/internal/validation"
	"github.com/shopspring/decimal"
)

const (
	mimeXML  = "application/xml"
	mimeText = "text/plain"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type PayloadBuilderImpl struct {
	companies company.Repository
	catalog   *jpk.Catalog
	logger    *slog.Logger
	now       func() time.Time
}

func NewPayloadBuilder(companies company.Repository, catalog *jpk.Catalog, logger *slog.Logger) service.PayloadBuilder {
	return &PayloadBuilderImpl{
		companies: companies,
		catalog:   catalog,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// view extracts rec and runs the profile's validators on it.
func view(rec *record.SourceRecord, profile shared.Profile) (*adapter.View, error) {
	v, err := adapter.Extract(rec, profile)
	if err != nil {
		return nil, err
	}
	if messages := validation.Validate(v); len(messages) > 0 {
		return nil, shared.NewError(shared.KindValidation, strings.Join(messages, "\n"), nil)
	}
	return v, nil
}

func fileName(parts ...string) string {
	name := strings.Join(parts, "_")
	return strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
}

// ForRecord renders the UBL document of a single invoice or refund.
func (b *PayloadBuilderImpl) ForRecord(ctx context.Context, rec *record.SourceRecord, profile shared.Profile) (*service.Payload, error) {
	dialect, err := ubl.ForProfile(profile)
	if err != nil {
		return nil, err
	}
	v, err := view(rec, profile)
	if err != nil {
		return nil, err
	}
	content, err := ubl.Build(dialect, v, b.now())
	if err != nil {
		return nil, err
	}
	return &service.Payload{
		Content:    content,
		Name:       fileName(rec.Name, profile.Country()) + ".xml",
		MimeType:   mimeXML,
		VAT:        v.Company.VAT,
		CreditNote: v.IsRefund,
	}, nil
}

func (b *PayloadBuilderImpl) QRAmount(ctx context.Context, rec *record.SourceRecord) (decimal.Decimal, error) {
	v, err := view(rec, shared.ProfileIDQRIS)
	if err != nil {
		return decimal.Zero, err
	}
	if !v.TotalIncluded.IsPositive() {
		return decimal.Zero, shared.NewError(shared.KindValidation, "QR codes collect positive amounts only", nil)
	}
	return v.TotalIncluded, nil
}

// ForFlow renders the periodic report of a flow. Validation messages of every
// record are reported together, each prefixed with the record name.
func (b *PayloadBuilderImpl) ForFlow(ctx context.Context, f *flow.Flow, recs []*record.SourceRecord) (*service.Payload, error) {
	if len(recs) == 0 {
		return nil, shared.NewError(shared.KindConfiguration, fmt.Sprintf("flow %d has no records", f.ID), nil)
	}

	views := make([]*adapter.View, 0, len(recs))
	var problems []string
	for _, rec := range recs {
		v, err := view(rec, f.Profile)
		if err != nil {
			if !shared.IsKind(err, shared.KindValidation) {
				return nil, err
			}
			for _, line := range strings.Split(shared.Message(err), "\n") {
				problems = append(problems, rec.Name+": "+line)
			}
			continue
		}
		views = append(views, v)
	}
	if len(problems) > 0 {
		return nil, shared.NewError(shared.KindValidation, strings.Join(problems, "\n"), nil)
	}

	switch f.Profile {
	case shared.ProfileROETransport:
		return b.declaration(f, views)
	case shared.ProfilePLJPK:
		return b.jpkFile(ctx, f, views)
	case shared.ProfileAUTPAR:
		return b.tparFile(ctx, f, views)
	}
	return nil, shared.NewError(shared.KindConfiguration, fmt.Sprintf("profile %s does not aggregate records", f.Profile), nil)
}

func (b *PayloadBuilderImpl) declaration(f *flow.Flow, views []*adapter.View) (*service.Payload, error) {
	batch := etransport.Batch{Shipments: views}
	if f.IsCorrection {
		batch.UIT = f.Reference
	}
	content, err := etransport.Build(batch, b.now())
	if err != nil {
		return nil, err
	}
	return &service.Payload{
		Content:  content,
		Name:     fmt.Sprintf("eTransport_%d_%s.xml", f.ID, f.PeriodStart.Format("20060102")),
		MimeType: mimeXML,
		VAT:      views[0].Company.VAT,
	}, nil
}

func (b *PayloadBuilderImpl) jpkFile(ctx context.Context, f *flow.Flow, views []*adapter.View) (*service.Payload, error) {
	settings, err := b.companies.Get(ctx, f.CompanyID)
	if err != nil {
		return nil, err
	}
	rows, err := b.catalog.Rows(views)
	if err != nil {
		return nil, err
	}

	variant := jpk.VariantMonthly
	if settings.JPK.Quarterly {
		variant = jpk.VariantQuarterly
	}
	report := jpk.Report{
		Variant:    variant,
		Company:    views[0].Company,
		TaxOffice:  settings.JPK.TaxOffice,
		Year:       f.PeriodEnd.Year(),
		Month:      f.PeriodEnd.Month(),
		Correction: f.IsCorrection,
		Rows:       rows,
	}
	if jpk.HasDeclaration(variant, report.Month) {
		report.Declaration = b.catalog.Declaration(jpk.Totals(rows), jpk.DeclarationInput{
			CarriedForward: settings.JPK.CarriedForward,
			CashRegister:   settings.JPK.CashRegister,
		})
	}

	content, err := jpk.Build(b.catalog, report, b.now())
	if err != nil {
		return nil, err
	}
	base := fmt.Sprintf("JPK_%s_%d_%02d_%d", variant, report.Year, report.Month, f.ID)
	payload := &service.Payload{
		Content:  content,
		Name:     base + ".xml",
		MimeType: mimeXML,
		VAT:      views[0].Company.VAT,
	}

	preview, err := jpk.Preview(report)
	if err != nil {
		// sent without a preview
		b.logger.Warn("Failed to render JPK preview", "flow_id", f.ID, "error", err)
		return payload, nil
	}
	payload.Preview = preview
	payload.PreviewName = base + ".xlsx"
	return payload, nil
}

func (b *PayloadBuilderImpl) tparFile(ctx context.Context, f *flow.Flow, views []*adapter.View) (*service.Payload, error) {
	settings, err := b.companies.Get(ctx, f.CompanyID)
	if err != nil {
		return nil, err
	}
	payees := tpar.Payees(views)
	if f.IsCorrection {
		for i := range payees {
			payees[i].Amended = true
		}
	}
	report := tpar.Report{
		Payer:         views[0].Company,
		Contact:       settings.TPAR.Contact,
		FinancialYear: f.PeriodEnd.Year(),
		Payees:        payees,
		Test:          settings.TPAR.Test,
		FileReference: fmt.Sprintf("TPAR%d", f.ID),
	}
	content, err := tpar.Build(report, b.now())
	if err != nil {
		return nil, err
	}
	return &service.Payload{
		Content:  content,
		Name:     fmt.Sprintf("TPAR_%d_%d.txt", report.FinancialYear, f.ID),
		MimeType: mimeText,
		VAT:      views[0].Company.VAT,
	}, nil
}
