package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRIS(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("apikey"))
		assert.Equal(t, "M1", q.Get("mID"))
		switch r.URL.Path {
		case "/show_qris.php":
			assert.Equal(t, "create-invoice", q.Get("do"))
			assert.Equal(t, "no", q.Get("useTip"))
			if q.Get("cliTrxNumber") == "INV/BAD" {
				_, _ = w.Write([]byte(`{"status":"failed","data":"Invalid merchant"}`))
				return
			}
			assert.Equal(t, "INV/2024/0001", q.Get("cliTrxNumber"))
			assert.Equal(t, "150000", q.Get("cliTrxAmount"))
			_, _ = w.Write([]byte(`{"status":"success","data":{"qris_content":"00020101021226670016COM.NOBUBANK","qris_request_date":"2024-05-10 19:00:00","qris_invoiceid":"413255111","qris_nmid":"ID1020021181745"}}`))
		case "/checkpaid_qris.php":
			assert.Equal(t, "checkStatus", q.Get("do"))
			assert.Equal(t, "2024-05-10", q.Get("trxdate"))
			if q.Get("invid") == "413255111" {
				_, _ = w.Write([]byte(`{"status":"success","data":{"qris_status":"paid","qris_payment_customername":"Budi"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"failed","data":"not paid"}`))
		}
	}))
	defer server.Close()

	client := NewQRIS(testLogger(), config.QRISConfig{BaseURL: server.URL, APIKey: "key", MerchantID: "M1", Timeout: 35 * time.Second})

	invoice, err := client.CreateInvoice(ctx, "INV/2024/0001", decimal.RequireFromString("150000.00"))
	require.NoError(t, err)
	assert.Equal(t, "413255111", invoice.InvoiceID)
	assert.Equal(t, "ID1020021181745", invoice.NMID)
	assert.Equal(t, "00020101021226670016COM.NOBUBANK", invoice.Content)
	assert.Equal(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC), invoice.RequestedAt)

	_, err = client.CreateInvoice(ctx, "INV/BAD", decimal.NewFromInt(1))
	assert.Equal(t, shared.KindUpstreamBusiness, shared.KindOf(err))
	assert.Contains(t, shared.Message(err), "Invalid merchant")

	paid, err := client.CheckPaid(ctx, "413255111", decimal.NewFromInt(150000), invoice.RequestedAt)
	require.NoError(t, err)
	assert.Equal(t, &QRISPayment{Paid: true, CustomerName: "Budi"}, paid)

	unpaid, err := client.CheckPaid(ctx, "413255112", decimal.NewFromInt(150000), invoice.RequestedAt)
	require.NoError(t, err)
	assert.False(t, unpaid.Paid)
}
