package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJPK(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gw", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/upload":
			_, _ = w.Write([]byte(`{"reference_number":"d3f0a1c2"}`))
		case "/status/d3f0a1c2":
			_, _ = w.Write([]byte(`{"code":200,"description":"Przetwarzanie dokumentu zakończone poprawnie","upo":"PFVQTy8+"}`))
		case "/status/busy":
			_, _ = w.Write([]byte(`{"code":301,"description":"Dokument w trakcie przetwarzania"}`))
		case "/status/bad":
			_, _ = w.Write([]byte(`{"code":405,"description":"Błąd weryfikacji semantyki dokumentu"}`))
		case "/status/garbled":
			_, _ = w.Write([]byte(`{"code":200,"upo":"%%%"}`))
		}
	}))
	defer server.Close()

	client := NewJPK(testLogger(), config.JPKConfig{BaseURL: server.URL, Token: "gw", Timeout: 300 * time.Second})

	ref, err := client.Upload(ctx, []byte("<JPK/>"))
	require.NoError(t, err)
	assert.Equal(t, "d3f0a1c2", ref)

	status, err := client.Status(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, StateOK, status.State)
	assert.Equal(t, "<UPO/>", string(status.UPO))

	status, err = client.Status(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, status.State)

	status, err = client.Status(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, StateRejected, status.State)
	assert.Equal(t, "405 Błąd weryfikacji semantyki dokumentu", status.Message)

	_, err = client.Status(ctx, "garbled")
	assert.Equal(t, shared.KindUpstreamBusiness, shared.KindOf(err))
}
