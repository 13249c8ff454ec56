package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/credential"
	"github.com/edocument-exchange/internal/domain/shared"
)

// CredentialGetter reads stored company credentials; credential.Repository satisfies it.
type CredentialGetter interface {
	Get(ctx context.Context, companyID int64, provider credential.Provider) (*credential.Token, error)
}

// JoFotaraVerdict is the synchronous answer to a submission.
type JoFotaraVerdict struct {
	Accepted bool
	// QR is the upstream QR code to print on the invoice.
	QR       string
	UUID     string
	Messages []string
}

type joFotaraMessage struct {
	Code    string `json:"EINV_CODE"`
	Message string `json:"EINV_MESSAGE"`
}

type joFotaraResponse struct {
	Results struct {
		Status   string            `json:"status"`
		Errors   []joFotaraMessage `json:"ERRORS"`
		Warnings []joFotaraMessage `json:"WARNINGS"`
	} `json:"EINV_RESULTS"`
	Status string `json:"EINV_STATUS"`
	QR     string `json:"EINV_QR"`
	UUID   string `json:"EINV_INV_UUID"`
}

// JoFotara is the Jordanian e-invoicing client. The verdict comes back with the upload.
type JoFotara struct {
	core  *Client
	url   string
	token string
	creds CredentialGetter
}

func NewJoFotara(logger *slog.Logger, cfg config.JoFotaraConfig, creds CredentialGetter) *JoFotara {
	return &JoFotara{
		core:  NewClient(logger, "JoFotara", cfg.Timeout),
		url:   cfg.URL,
		token: cfg.Token,
		creds: creds,
	}
}

// Submit posts a UBL invoice and returns the verdict.
func (c *JoFotara) Submit(ctx context.Context, companyID int64, payload []byte) (*JoFotaraVerdict, error) {
	creds, err := c.creds.Get(ctx, companyID, credential.ProviderJoFotara)
	if err != nil {
		var missing credential.ErrTokenNotFound
		if errors.As(err, &missing) {
			return nil, shared.NewError(shared.KindConfiguration, "JoFotara client id and secret key are not set", nil)
		}
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"invoice": base64.StdEncoding.EncodeToString(payload)})
	if err != nil {
		return nil, shared.NewError(shared.KindSerialization, "failed to encode JoFotara request", err)
	}
	header := http.Header{}
	header.Set("Client-Id", creds.ClientID)
	header.Set("Secret-Key", creds.ClientSecret)
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.core.Do(ctx, Request{
		Method:      http.MethodPost,
		URL:         c.url,
		Body:        body,
		ContentType: "application/json",
		Header:      header,
	})
	if err != nil {
		if shared.IsKind(err, shared.KindUpstreamBusiness) {
			return c.rejected(shared.Message(err))
		}
		return nil, err
	}
	return c.verdict(resp.Body)
}

// rejected turns a 400 body into a verdict when it carries the usual result block.
func (c *JoFotara) rejected(body string) (*JoFotaraVerdict, error) {
	verdict, err := c.verdict([]byte(body))
	if err != nil || len(verdict.Messages) == 0 {
		return nil, shared.NewError(shared.KindUpstreamBusiness, body, nil)
	}
	verdict.Accepted = false
	return verdict, nil
}

func (c *JoFotara) verdict(body []byte) (*JoFotaraVerdict, error) {
	var out joFotaraResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, "unreadable JoFotara answer: "+strings.TrimSpace(string(body)), err)
	}
	verdict := &JoFotaraVerdict{
		Accepted: strings.EqualFold(out.Results.Status, "PASS") && strings.EqualFold(out.Status, "SUBMITTED"),
		QR:       out.QR,
		UUID:     out.UUID,
	}
	for _, m := range out.Results.Errors {
		verdict.Messages = append(verdict.Messages, strings.TrimSpace(m.Code+" "+m.Message))
	}
	return verdict, nil
}
