package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsaasClient_CreatePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/payments", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("access_token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cus_1", req.Customer)
		assert.Equal(t, "PIX", req.BillingType)
		assert.InDelta(t, 500.0, req.Value, 0.001)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pay_1","status":"PENDING","invoiceUrl":"https://asaas.test/i/pay_1","value":500}`))
	}))
	defer srv.Close()

	c := NewAsaasClient(srv.Client(), srv.URL+"/api/v3/", "key-1", time.Second)
	charge, err := c.CreatePayment(context.Background(), ChargeRequest{
		Customer:    "cus_1",
		BillingType: "PIX",
		Value:       FromCents(50000),
		DueDate:     "2024-01-11",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", charge.ID)
	assert.Equal(t, "https://asaas.test/i/pay_1", charge.InvoiceURL)
}

func TestAsaasClient_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"code":"invalid_customer","description":"Cliente inválido"}]}`))
	}))
	defer srv.Close()

	c := NewAsaasClient(srv.Client(), srv.URL, "key", time.Second)
	_, err := c.CreateCustomer(context.Background(), CustomerRequest{Name: "Loja"})
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Equal(t, []string{"Cliente inválido"}, perr.Descriptions)
	assert.Contains(t, perr.Error(), "Cliente inválido")
}

func TestAsaasClient_DeleteAndListSubscriptionPayments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/payments/pay_9":
			_, _ = w.Write([]byte(`{"deleted":true,"id":"pay_9"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/subscriptions/sub_1/payments":
			_, _ = w.Write([]byte(`{"data":[{"id":"pay_a","invoiceUrl":"https://asaas.test/i/a"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewAsaasClient(srv.Client(), srv.URL, "key", time.Second)
	require.NoError(t, c.DeletePayment(context.Background(), "pay_9"))

	charges, err := c.ListSubscriptionPayments(context.Background(), "sub_1")
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, "https://asaas.test/i/a", charges[0].InvoiceURL)
}

func TestParseEvent(t *testing.T) {
	t.Run("payment key", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"id":"evt_1","event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1","value":10.5,"externalReference":"u1"}}`))
		require.NoError(t, err)
		assert.True(t, ev.IsPayment())
		assert.False(t, ev.IsSubscription())
		assert.Equal(t, "pay_1", ev.ObjectID())

		p, err := ev.DecodePayment()
		require.NoError(t, err)
		assert.Equal(t, int64(1050), ToCents(p.Value))
		assert.Equal(t, "u1", p.ExternalReference)
	})

	t.Run("data key without id", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"event":"SUBSCRIPTION_CREATED","data":{"id":"sub_1","cycle":"MONTHLY"}}`))
		require.NoError(t, err)
		assert.Empty(t, ev.ID)
		assert.True(t, ev.IsSubscription())
		assert.Equal(t, "sub_1", ev.ObjectID())

		s, err := ev.DecodeSubscription()
		require.NoError(t, err)
		assert.Equal(t, "MONTHLY", s.Cycle)
	})

	t.Run("no object", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"event":"PAYMENT_CONFIRMED"}`))
		require.NoError(t, err)
		assert.Empty(t, ev.ObjectID())
		_, err = ev.DecodePayment()
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseEvent([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-11", time.UTC)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), *d)

	d, err = ParseDate("", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseDate("11/01/2024", time.UTC)
	assert.Error(t, err)
}

func TestVerifyWebhookToken(t *testing.T) {
	assert.True(t, VerifyWebhookToken("", "anything"))
	assert.True(t, VerifyWebhookToken("tok", "tok"))
	assert.False(t, VerifyWebhookToken("tok", "other"))
	assert.False(t, VerifyWebhookToken("tok", ""))
}
