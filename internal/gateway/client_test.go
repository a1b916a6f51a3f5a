package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"homestay-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const checksumKey = "test-checksum"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(utils.PaymentConfig{
		BaseURL:        srv.URL,
		ClientID:       "client",
		APIKey:         "key",
		ChecksumKey:    checksumKey,
		ReturnURL:      "https://example.test/return",
		CancelURL:      "https://example.test/cancel",
		TimeoutSeconds: 2,
	}, zaptest.NewLogger(t))
}

func TestCreateQuote(t *testing.T) {
	expires := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/payment-requests", r.URL.Path)
		assert.Equal(t, "client", r.Header.Get("x-client-id"))
		assert.Equal(t, "key", r.Header.Get("x-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 1500000, body["amount"])
		assert.EqualValues(t, expires.Unix(), body["expiredAt"])

		want := Sign(checksumKey, map[string]any{
			"amount":      int64(1500000),
			"cancelUrl":   "https://example.test/cancel",
			"description": "HS1234",
			"orderCode":   int64(42),
			"returnUrl":   "https://example.test/return",
		})
		assert.Equal(t, want, body["signature"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "00",
			"desc": "success",
			"data": map[string]any{
				"orderCode":   42,
				"qrCode":      "000201010212",
				"checkoutUrl": "https://pay.example.test/42",
				"status":      "PENDING",
			},
		})
	})

	quote, err := client.CreateQuote(context.Background(), QuoteRequest{
		OrderCode:   42,
		Amount:      1500000,
		Description: "HS1234",
		ExpiresAt:   expires,
	})
	require.NoError(t, err)
	assert.Equal(t, "42", quote.ExternalID)
	assert.Equal(t, "000201010212", quote.Code)
	assert.Equal(t, StatusPending, quote.Status)
	assert.Equal(t, expires, quote.ExpiresAt)
}

func TestCreateQuoteProviderRejects(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "20", "desc": "amount too small"})
	})

	_, err := client.CreateQuote(context.Background(), QuoteRequest{OrderCode: 1, Amount: 10})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "20", apiErr.Code)
	assert.False(t, apiErr.Temporary())
}

func TestCreateQuoteNotConfigured(t *testing.T) {
	client := NewClient(utils.PaymentConfig{}, zaptest.NewLogger(t))

	_, err := client.CreateQuote(context.Background(), QuoteRequest{OrderCode: 1, Amount: 10})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBreakerOpensAfterRepeatedOutage(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		_, err := client.GetStatus(context.Background(), "7")
		require.Error(t, err)
	}

	_, err := client.GetStatus(context.Background(), "7")
	require.Error(t, err)
	assert.Equal(t, int32(5), calls.Load(), "open breaker must not reach the provider")
}

func TestGetStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payment-requests/99", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "00",
			"data": map[string]any{"status": "PAID", "amount": 500000},
		})
	})

	res, err := client.GetStatus(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, res.Status)
	assert.Equal(t, float64(500000), res.Amount)
}

func signedWebhook(t *testing.T, key string, code string) []byte {
	t.Helper()

	data := map[string]any{
		"orderCode":   int64(123),
		"amount":      int64(300000),
		"description": "HS1234",
		"reference":   "FT123",
		"code":        code,
	}
	body, err := json.Marshal(map[string]any{
		"code":      "00",
		"success":   true,
		"data":      data,
		"signature": Sign(key, data),
	})
	require.NoError(t, err)
	return body
}

func TestVerifyWebhook(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	t.Run("paid", func(t *testing.T) {
		event, err := client.VerifyWebhook(signedWebhook(t, checksumKey, "00"))
		require.NoError(t, err)
		assert.Equal(t, "123", event.ExternalID)
		assert.Equal(t, StatusPaid, event.Status)
		assert.Equal(t, float64(300000), event.Amount)
		assert.Equal(t, "FT123", event.Reference)
	})

	t.Run("failed", func(t *testing.T) {
		event, err := client.VerifyWebhook(signedWebhook(t, checksumKey, "01"))
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, event.Status)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := client.VerifyWebhook(signedWebhook(t, "other", "00"))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := client.VerifyWebhook([]byte(`{"code":"00"}`))
		assert.ErrorIs(t, err, ErrMalformedEvent)
	})
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, StatusPaid, mapStatus("PAID"))
	assert.Equal(t, StatusFailed, mapStatus("CANCELLED"))
	assert.Equal(t, StatusFailed, mapStatus("EXPIRED"))
	assert.Equal(t, StatusPending, mapStatus("PROCESSING"))
}
