package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/party"
	"github.com/edocument-exchange/internal/domain/shared"
)

// ETransportUpload is what an accepted declaration returns.
type ETransportUpload struct {
	LoadID string
	UIT    string
}

type etransportError struct {
	Message string `json:"errorMessage"`
}

type etransportUploadResponse struct {
	ExecutionStatus int               `json:"ExecutionStatus"`
	LoadID          json.Number       `json:"index_incarcare"`
	UIT             string            `json:"UIT"`
	Errors          []etransportError `json:"Errors"`
}

type etransportStatusResponse struct {
	State  string            `json:"stare"`
	Errors []etransportError `json:"Errors"`
}

// ETransport is the Romanian road transport declaration client. It shares the
// company OAuth tokens with e-Factura.
type ETransport struct {
	core    *Client
	baseURL string
	mode    string
	tokens  TokenSource
}

func NewETransport(logger *slog.Logger, cfg config.ETransportConfig, tokens TokenSource) *ETransport {
	return &ETransport{
		core:    NewClient(logger, "ANAF eTransport", cfg.Timeout),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		mode:    cfg.Mode,
		tokens:  tokens,
	}
}

func (c *ETransport) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + c.mode + "/ETRANSPORT/ws/v1/" + strings.Join(escaped, "/")
}

func (c *ETransport) header(ctx context.Context, companyID int64) (http.Header, error) {
	token, err := c.tokens.AccessToken(ctx, companyID)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

// Upload submits a declaration. Amendments carry the UIT inside the payload, so the
// UIT of the answer is only meaningful for initial declarations.
func (c *ETransport) Upload(ctx context.Context, companyID int64, vat string, payload []byte) (*ETransportUpload, error) {
	header, err := c.header(ctx, companyID)
	if err != nil {
		return nil, err
	}
	resp, err := c.core.Do(ctx, Request{
		Method:      http.MethodPost,
		URL:         c.endpoint("upload", "ETRANSP", party.CIF{}.Canonical(vat), "2"),
		Body:        payload,
		ContentType: "application/xml",
		Header:      header,
	})
	if err != nil {
		return nil, err
	}

	var out etransportUploadResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, "unreadable eTransport answer: "+strings.TrimSpace(string(resp.Body)), err)
	}
	if msg := joinErrors(out.Errors); msg != "" {
		return nil, shared.NewError(shared.KindUpstreamBusiness, msg, nil)
	}
	if out.ExecutionStatus != 0 || out.LoadID == "" {
		return nil, shared.NewError(shared.KindUpstreamBusiness, "eTransport refused the declaration", nil)
	}
	return &ETransportUpload{LoadID: out.LoadID.String(), UIT: out.UIT}, nil
}

// Status returns the raw processing state of a load-id.
func (c *ETransport) Status(ctx context.Context, companyID int64, loadID string) (string, error) {
	header, err := c.header(ctx, companyID)
	if err != nil {
		return "", err
	}
	resp, err := c.core.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    c.endpoint("stareMesaj", loadID),
		Header: header,
	})
	if err != nil {
		return "", err
	}

	var out etransportStatusResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", shared.NewError(shared.KindUpstreamBusiness, "unreadable eTransport answer: "+strings.TrimSpace(string(resp.Body)), err)
	}
	if msg := joinErrors(out.Errors); msg != "" {
		return "", shared.NewError(shared.KindUpstreamBusiness, msg, nil)
	}
	return out.State, nil
}

func joinErrors(errs []etransportError) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Message != "" {
			messages = append(messages, e.Message)
		}
	}
	return strings.Join(messages, "\n")
}
