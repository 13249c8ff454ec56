package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor/reconciler"
	"github.com/edocument-exchange/internal/edocument_processor/service"
	"github.com/edocument-exchange/internal/transport"
	"github.com/shopspring/decimal"
)

// EFacturaClient is the part of the ANAF e-Factura client the dispatcher uses
type EFacturaClient interface {
	Upload(ctx context.Context, companyID int64, vat string, creditNote bool, payload []byte) (string, error)
	Status(ctx context.Context, companyID int64, loadID string) (*transport.EFacturaStatus, error)
	Download(ctx context.Context, companyID int64, downloadID string) (*transport.Receipt, error)
}

type ETransportClient interface {
	Upload(ctx context.Context, companyID int64, vat string, payload []byte) (*transport.ETransportUpload, error)
	Status(ctx context.Context, companyID int64, loadID string) (string, error)
}

type JPKClient interface {
	Upload(ctx context.Context, payload []byte) (string, error)
	Status(ctx context.Context, reference string) (*transport.JPKStatus, error)
}

type JoFotaraClient interface {
	Submit(ctx context.Context, companyID int64, payload []byte) (*transport.JoFotaraVerdict, error)
}

type QRISClient interface {
	CreateInvoice(ctx context.Context, reference string, amount decimal.Decimal) (*transport.QRISInvoice, error)
	CheckPaid(ctx context.Context, invoiceID string, amount decimal.Decimal, requestedAt time.Time) (*transport.QRISPayment, error)
}

// Clients holds one client per government endpoint.
type Clients struct {
	EFactura   EFacturaClient
	ETransport ETransportClient
	JPK        JPKClient
	JoFotara   JoFotaraClient
	QRIS       QRISClient
}

// DispatcherImpl routes uploads and status queries to the endpoint of a profile
// and translates the answers into verdicts.
type DispatcherImpl struct {
	clients Clients
	logger  *slog.Logger
}

func NewDispatcher(clients Clients, logger *slog.Logger) *DispatcherImpl {
	return &DispatcherImpl{clients: clients, logger: logger}
}

var _ service.Dispatcher = (*DispatcherImpl)(nil)

func noEndpoint(p shared.Profile) error {
	return shared.NewError(shared.KindConfiguration, fmt.Sprintf("profile %s has no upload endpoint", p), nil)
}

func (d *DispatcherImpl) Upload(ctx context.Context, doc *edocument.EDocument, payload *service.Payload) (*service.Upload, error) {
	logger := d.logger.With("document_id", doc.ID, "profile", doc.Profile)
	logger.Info("Uploading document", "name", payload.Name, "size", len(payload.Content))

	switch doc.Profile {
	case shared.ProfileROCIUS:
		loadID, err := d.clients.EFactura.Upload(ctx, doc.CompanyID, payload.VAT, payload.CreditNote, payload.Content)
		if err != nil {
			return nil, err
		}
		return &service.Upload{LoadID: loadID}, nil

	case shared.ProfileROETransport:
		out, err := d.clients.ETransport.Upload(ctx, doc.CompanyID, payload.VAT, payload.Content)
		if err != nil {
			return nil, err
		}
		return &service.Upload{LoadID: out.LoadID, UIT: out.UIT}, nil

	case shared.ProfilePLJPK:
		reference, err := d.clients.JPK.Upload(ctx, payload.Content)
		if err != nil {
			return nil, err
		}
		return &service.Upload{LoadID: reference}, nil

	case shared.ProfileJOUBL:
		verdict, err := d.clients.JoFotara.Submit(ctx, doc.CompanyID, payload.Content)
		if err != nil {
			return nil, err
		}
		return &service.Upload{LoadID: verdict.UUID, Verdict: joFotaraVerdict(verdict)}, nil
	}
	return nil, noEndpoint(doc.Profile)
}

func joFotaraVerdict(v *transport.JoFotaraVerdict) *reconciler.Verdict {
	if !v.Accepted {
		return &reconciler.Verdict{Outcome: reconciler.OutcomeRejected, Message: strings.Join(v.Messages, "\n")}
	}
	out := &reconciler.Verdict{Outcome: reconciler.OutcomeValidated, Message: strings.Join(v.Messages, "\n")}
	if v.QR != "" {
		out.Receipt = &reconciler.Receipt{Name: "jofotara_qr_" + v.UUID + ".txt", MimeType: mimeText, Content: []byte(v.QR)}
	}
	return out
}

// Status asks the endpoint of doc for its verdict.
func (d *DispatcherImpl) Status(ctx context.Context, doc *edocument.EDocument) (*reconciler.Verdict, error) {
	switch doc.Profile {
	case shared.ProfileROCIUS:
		return d.efacturaStatus(ctx, doc)

	case shared.ProfileROETransport:
		state, err := d.clients.ETransport.Status(ctx, doc.CompanyID, doc.LoadID)
		if err != nil {
			return nil, err
		}
		switch state {
		case transport.StateOK:
			return &reconciler.Verdict{Outcome: reconciler.OutcomeValidated}, nil
		case transport.StateProcessing:
			return &reconciler.Verdict{Outcome: reconciler.OutcomePending}, nil
		case transport.StateRejected, transport.StateXMLErrors:
			return &reconciler.Verdict{Outcome: reconciler.OutcomeRejected, Message: state}, nil
		}
		return &reconciler.Verdict{Outcome: reconciler.OutcomeUnknown, State: state}, nil

	case shared.ProfilePLJPK:
		status, err := d.clients.JPK.Status(ctx, doc.LoadID)
		if err != nil {
			return nil, err
		}
		switch status.State {
		case transport.StateOK:
			return &reconciler.Verdict{
				Outcome: reconciler.OutcomeValidated,
				Message: status.Message,
				Receipt: &reconciler.Receipt{Name: "UPO_" + doc.LoadID + ".xml", MimeType: mimeXML, Content: status.UPO},
			}, nil
		case transport.StateProcessing:
			return &reconciler.Verdict{Outcome: reconciler.OutcomePending, Message: status.Message}, nil
		case transport.StateRejected:
			return &reconciler.Verdict{Outcome: reconciler.OutcomeRejected, Message: status.Message}, nil
		}
		return &reconciler.Verdict{Outcome: reconciler.OutcomeUnknown, State: status.State}, nil

	case shared.ProfileJOUBL:
		// verdicts arrive with the upload answer
		return &reconciler.Verdict{Outcome: reconciler.OutcomePending, Message: "the JoFotara verdict was not applied"}, nil
	}
	return nil, noEndpoint(doc.Profile)
}

func (d *DispatcherImpl) efacturaStatus(ctx context.Context, doc *edocument.EDocument) (*reconciler.Verdict, error) {
	status, err := d.clients.EFactura.Status(ctx, doc.CompanyID, doc.LoadID)
	if err != nil {
		return nil, err
	}
	switch status.State {
	case transport.StateProcessing:
		return &reconciler.Verdict{Outcome: reconciler.OutcomePending}, nil
	case transport.StateXMLErrors:
		return &reconciler.Verdict{Outcome: reconciler.OutcomeRejected, Message: status.State}, nil
	case transport.StateOK, transport.StateRejected:
	default:
		return &reconciler.Verdict{Outcome: reconciler.OutcomeUnknown, State: status.State}, nil
	}

	receipt, err := d.clients.EFactura.Download(ctx, doc.CompanyID, status.DownloadID)
	if err != nil {
		return nil, err
	}
	verdict := &reconciler.Verdict{
		Outcome: reconciler.OutcomeValidated,
		Receipt: &reconciler.Receipt{Name: receipt.Name, MimeType: mimeXML, Content: receipt.Content},
	}
	if status.State == transport.StateRejected || receipt.Rejected() {
		verdict.Outcome = reconciler.OutcomeRejected
		verdict.Message = strings.Join(receipt.Errors, "\n")
		if verdict.Message == "" {
			verdict.Message = "ANAF rejected the invoice"
		}
	}
	return verdict, nil
}

// CreateQR asks QRIS for a dynamic QR code collecting amount for rec.
func (d *DispatcherImpl) CreateQR(ctx context.Context, rec *record.SourceRecord, amount decimal.Decimal) (*qris.Transaction, error) {
	invoice, err := d.clients.QRIS.CreateInvoice(ctx, rec.Name, amount)
	if err != nil {
		return nil, err
	}
	return &qris.Transaction{
		RecordID:    rec.ID,
		CompanyID:   rec.CompanyID,
		InvoiceID:   invoice.InvoiceID,
		NMID:        invoice.NMID,
		Content:     invoice.Content,
		Amount:      amount,
		RequestedAt: invoice.RequestedAt,
	}, nil
}

// CheckQR asks whether a QR code was paid.
func (d *DispatcherImpl) CheckQR(ctx context.Context, txn *qris.Transaction) (*transport.QRISPayment, error) {
	return d.clients.QRIS.CheckPaid(ctx, txn.InvoiceID, txn.Amount, txn.RequestedAt)
}
