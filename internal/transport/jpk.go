package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/shared"
)

// JPKStatus is the processing state of an uploaded JPK file. State uses the same
// vocabulary as the ANAF clients.
type JPKStatus struct {
	State   string
	Message string
	// UPO is the official receipt, present once the file is accepted.
	UPO []byte
}

type jpkUploadResponse struct {
	ReferenceNumber string `json:"reference_number"`
}

type jpkStatusResponse struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	UPO         string `json:"upo"`
}

// JPK is the client of the gateway that forwards JPK_V7 files to the Polish tax office.
type JPK struct {
	core    *Client
	baseURL string
	token   string
}

func NewJPK(logger *slog.Logger, cfg config.JPKConfig) *JPK {
	return &JPK{
		core:    NewClient(logger, "JPK gateway", cfg.Timeout),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
	}
}

func (c *JPK) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	return h
}

// Upload sends a JPK file and returns its reference number.
func (c *JPK) Upload(ctx context.Context, payload []byte) (string, error) {
	resp, err := c.core.Do(ctx, Request{
		Method:      http.MethodPost,
		URL:         c.baseURL + "/upload",
		Body:        payload,
		ContentType: "application/xml",
		Header:      c.header(),
	})
	if err != nil {
		return "", err
	}
	var out jpkUploadResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil || out.ReferenceNumber == "" {
		return "", shared.NewError(shared.KindUpstreamBusiness, "unexpected JPK gateway answer: "+strings.TrimSpace(string(resp.Body)), err)
	}
	return out.ReferenceNumber, nil
}

// Status polls a reference number. Codes 3xx mean the file is still processed,
// 200 that it was accepted and anything else that it was rejected.
func (c *JPK) Status(ctx context.Context, reference string) (*JPKStatus, error) {
	resp, err := c.core.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    c.baseURL + "/status/" + url.PathEscape(reference),
		Header: c.header(),
	})
	if err != nil {
		return nil, err
	}
	var out jpkStatusResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, "unexpected JPK gateway answer: "+strings.TrimSpace(string(resp.Body)), err)
	}

	switch {
	case out.Code == http.StatusOK:
		upo, err := base64.StdEncoding.DecodeString(out.UPO)
		if err != nil {
			return nil, shared.NewError(shared.KindUpstreamBusiness, "the UPO is not valid base64", err)
		}
		return &JPKStatus{State: StateOK, Message: out.Description, UPO: upo}, nil
	case out.Code >= 300 && out.Code < 400:
		return &JPKStatus{State: StateProcessing, Message: out.Description}, nil
	default:
		return &JPKStatus{State: StateRejected, Message: fmt.Sprintf("%d %s", out.Code, out.Description)}, nil
	}
}
