package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// qrisDateLayout is the format of qris_request_date in both directions.
const qrisDateLayout = "2006-01-02 15:04:05"

var errQRISFailed = errors.New("qris lookup failed")

// QRISInvoice is a dynamic QR generated upstream. Content is kept byte-for-byte.
type QRISInvoice struct {
	InvoiceID   string
	NMID        string
	Content     string
	RequestedAt time.Time
}

// QRISPayment is the paid status of a QR invoice.
type QRISPayment struct {
	Paid         bool
	CustomerName string
}

type qrisResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type qrisCreateData struct {
	Content     string      `json:"qris_content"`
	RequestDate string      `json:"qris_request_date"`
	InvoiceID   json.Number `json:"qris_invoiceid"`
	NMID        string      `json:"qris_nmid"`
}

type qrisStatusData struct {
	Status       string `json:"qris_status"`
	CustomerName string `json:"qris_payment_customername"`
}

// QRIS is the Indonesian dynamic QR client.
type QRIS struct {
	core       *Client
	baseURL    string
	apiKey     string
	merchantID string
	location   *time.Location
}

func NewQRIS(logger *slog.Logger, cfg config.QRISConfig) *QRIS {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.FixedZone("WIB", 7*3600)
	}
	return &QRIS{
		core:       NewClient(logger, "QRIS", cfg.Timeout),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		merchantID: cfg.MerchantID,
		location:   loc,
	}
}

func (c *QRIS) call(ctx context.Context, script string, query url.Values, data interface{}) error {
	query.Set("apikey", c.apiKey)
	query.Set("mID", c.merchantID)
	resp, err := c.core.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    c.baseURL + "/" + script + "?" + query.Encode(),
	})
	if err != nil {
		return err
	}

	var out qrisResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return shared.NewError(shared.KindUpstreamBusiness, "unreadable QRIS answer: "+strings.TrimSpace(string(resp.Body)), err)
	}
	if out.Status != "success" {
		var msg string
		if json.Unmarshal(out.Data, &msg) != nil || msg == "" {
			msg = "QRIS answered " + out.Status
		}
		var cause error
		if out.Status == "failed" {
			cause = errQRISFailed
		}
		return shared.NewError(shared.KindUpstreamBusiness, msg, cause)
	}
	if err := json.Unmarshal(out.Data, data); err != nil {
		return shared.NewError(shared.KindUpstreamBusiness, "unexpected QRIS payload", err)
	}
	return nil
}

// CreateInvoice asks for a QR code paying amount for the given reference.
func (c *QRIS) CreateInvoice(ctx context.Context, reference string, amount decimal.Decimal) (*QRISInvoice, error) {
	var data qrisCreateData
	err := c.call(ctx, "show_qris.php", url.Values{
		"do":           {"create-invoice"},
		"cliTrxNumber": {reference},
		"cliTrxAmount": {amount.Round(0).String()},
		"useTip":       {"no"},
	}, &data)
	if err != nil {
		return nil, err
	}
	requested, err := time.ParseInLocation(qrisDateLayout, data.RequestDate, c.location)
	if err != nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, "invalid qris_request_date "+data.RequestDate, err)
	}
	return &QRISInvoice{
		InvoiceID:   data.InvoiceID.String(),
		NMID:        data.NMID,
		Content:     data.Content,
		RequestedAt: requested.UTC(),
	}, nil
}

// CheckPaid asks whether the QR invoice was paid.
func (c *QRIS) CheckPaid(ctx context.Context, invoiceID string, amount decimal.Decimal, requestedAt time.Time) (*QRISPayment, error) {
	var data qrisStatusData
	err := c.call(ctx, "checkpaid_qris.php", url.Values{
		"do":       {"checkStatus"},
		"invid":    {invoiceID},
		"trxvalue": {amount.Round(0).String()},
		"trxdate":  {requestedAt.In(c.location).Format("2006-01-02")},
	}, &data)
	if err != nil {
		if errors.Is(err, errQRISFailed) {
			// Unpaid invoices are reported as a failed lookup.
			return &QRISPayment{}, nil
		}
		return nil, err
	}
	return &QRISPayment{Paid: data.Status == "paid", CustomerName: data.CustomerName}, nil
}
