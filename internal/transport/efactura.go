package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/party"
	"github.com/edocument-exchange/internal/domain/shared"
)

// Upstream processing states reported by the ANAF status endpoints.
const (
	StateOK         = "ok"
	StateRejected   = "nok"
	StateProcessing = "in prelucrare"
	StateXMLErrors  = "XML cu erori nepreluat de sistem"
)

// EFacturaStatus is the answer of stareMesaj.
type EFacturaStatus struct {
	State      string
	DownloadID string
}

// EFactura is the Romanian e-Factura client.
type EFactura struct {
	core    *Client
	baseURL string
	mode    string
	tokens  TokenSource
}

func NewEFactura(logger *slog.Logger, cfg config.ANAFConfig, tokens TokenSource) *EFactura {
	return &EFactura{
		core:    NewClient(logger, "ANAF e-Factura", cfg.Timeout),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		mode:    cfg.Mode,
		tokens:  tokens,
	}
}

func (c *EFactura) endpoint(name string, query url.Values) string {
	return c.baseURL + "/" + c.mode + "/FCTEL/rest/" + name + "?" + query.Encode()
}

func (c *EFactura) authorized(ctx context.Context, companyID int64) (http.Header, error) {
	token, err := c.tokens.AccessToken(ctx, companyID)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

// Upload submits a UBL invoice or credit note and returns the load-id.
func (c *EFactura) Upload(ctx context.Context, companyID int64, vat string, creditNote bool, payload []byte) (string, error) {
	header, err := c.authorized(ctx, companyID)
	if err != nil {
		return "", err
	}
	standard := "UBL"
	if creditNote {
		standard = "CN"
	}
	resp, err := c.core.Do(ctx, Request{
		Method:      http.MethodPost,
		URL:         c.endpoint("upload", url.Values{"standard": {standard}, "cif": {party.CIF{}.Canonical(vat)}}),
		Body:        payload,
		ContentType: "application/xml",
		Header:      header,
	})
	if err != nil {
		return "", err
	}

	root, err := parseHeader(resp.Body)
	if err != nil {
		return "", err
	}
	if msg := headerErrors(root); msg != "" {
		return "", shared.NewError(shared.KindUpstreamBusiness, msg, nil)
	}
	loadID := root.SelectAttrValue("index_incarcare", "")
	if loadID == "" {
		return "", shared.NewError(shared.KindUpstreamBusiness, "the upload answer carries no index_incarcare", nil)
	}
	return loadID, nil
}

// Status asks for the processing state of a load-id.
func (c *EFactura) Status(ctx context.Context, companyID int64, loadID string) (*EFacturaStatus, error) {
	header, err := c.authorized(ctx, companyID)
	if err != nil {
		return nil, err
	}
	resp, err := c.core.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    c.endpoint("stareMesaj", url.Values{"id_incarcare": {loadID}}),
		Header: header,
	})
	if err != nil {
		return nil, err
	}
	root, err := parseHeader(resp.Body)
	if err != nil {
		return nil, err
	}
	if msg := headerErrors(root); msg != "" {
		return nil, shared.NewError(shared.KindUpstreamBusiness, msg, nil)
	}
	return &EFacturaStatus{
		State:      root.SelectAttrValue("stare", ""),
		DownloadID: root.SelectAttrValue("id_descarcare", ""),
	}, nil
}

// Download fetches the verdict archive of a processed load and extracts it.
func (c *EFactura) Download(ctx context.Context, companyID int64, downloadID string) (*Receipt, error) {
	header, err := c.authorized(ctx, companyID)
	if err != nil {
		return nil, err
	}
	resp, err := c.core.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    c.endpoint("descarcare", url.Values{"id": {downloadID}}),
		Header: header,
	})
	if err != nil {
		return nil, err
	}
	// Failed downloads come back as a JSON or XML body with status 200.
	if !strings.HasPrefix(string(resp.Body), "PK") {
		return nil, shared.NewError(shared.KindUpstreamBusiness, strings.TrimSpace(string(resp.Body)), nil)
	}
	return ExtractReceipt(resp.Body)
}

func parseHeader(body []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, "unreadable ANAF answer: "+strings.TrimSpace(string(body)), err)
	}
	root := doc.Root()
	if root == nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, "empty ANAF answer", nil)
	}
	return root, nil
}

func headerErrors(root *etree.Element) string {
	var messages []string
	for _, e := range root.SelectElements("Errors") {
		if msg := e.SelectAttrValue("errorMessage", ""); msg != "" {
			messages = append(messages, msg)
		}
	}
	if len(messages) == 0 && root.SelectAttrValue("ExecutionStatus", "0") != "0" {
		return "ANAF refused the request"
	}
	return strings.Join(messages, "\n")
}
