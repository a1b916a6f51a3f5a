package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"homestay-booking/pkg/utils"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const successCode = "00"

// Client is the QR payment provider adapter. Calls go through a circuit
// breaker so a provider outage fails fast instead of piling up requests.
type Client struct {
	cfg     utils.PaymentConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

func NewClient(cfg utils.PaymentConfig, log *zap.Logger) *Client {
	log = log.With(zap.String("gateway", "qr"))

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		log:     log,
	}
}

type envelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// CreateQuote opens a payment link and returns its QR payload.
func (c *Client) CreateQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if c.cfg.BaseURL == "" || c.cfg.ClientID == "" || c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	amount := int64(math.Round(req.Amount))
	signed := map[string]any{
		"amount":      amount,
		"cancelUrl":   c.cfg.CancelURL,
		"description": req.Description,
		"orderCode":   req.OrderCode,
		"returnUrl":   c.cfg.ReturnURL,
	}

	body := map[string]any{
		"orderCode":   req.OrderCode,
		"amount":      amount,
		"description": req.Description,
		"returnUrl":   c.cfg.ReturnURL,
		"cancelUrl":   c.cfg.CancelURL,
		"expiredAt":   req.ExpiresAt.Unix(),
		"signature":   Sign(c.cfg.ChecksumKey, signed),
	}

	var out struct {
		CheckoutURL string `json:"checkoutUrl"`
		QRCode      string `json:"qrCode"`
		OrderCode   int64  `json:"orderCode"`
		Status      string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/payment-requests", body, &out); err != nil {
		c.log.Error("Failed to create payment link",
			zap.Error(err),
			zap.Int64("order_code", req.OrderCode),
		)
		return nil, fmt.Errorf("create payment link %d: %w", req.OrderCode, err)
	}

	if out.QRCode == "" {
		return nil, fmt.Errorf("create payment link %d: %w", req.OrderCode, &APIError{StatusCode: http.StatusOK, Code: successCode, Desc: "empty qr code"})
	}

	orderCode := out.OrderCode
	if orderCode == 0 {
		orderCode = req.OrderCode
	}

	return &Quote{
		ExternalID:  ExternalIDFor(orderCode),
		Code:        out.QRCode,
		CheckoutURL: out.CheckoutURL,
		Status:      mapStatus(out.Status),
		ExpiresAt:   req.ExpiresAt,
	}, nil
}

// GetStatus asks the provider for the current state of a payment link.
func (c *Client) GetStatus(ctx context.Context, externalID string) (*StatusResult, error) {
	if c.cfg.BaseURL == "" || c.cfg.ClientID == "" || c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	var out struct {
		Status string  `json:"status"`
		Amount float64 `json:"amount"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/payment-requests/"+externalID, nil, &out); err != nil {
		c.log.Error("Failed to get payment status",
			zap.Error(err),
			zap.String("external_id", externalID),
		)
		return nil, fmt.Errorf("get payment status %s: %w", externalID, err)
	}

	return &StatusResult{
		ExternalID: externalID,
		Status:     mapStatus(out.Status),
		Amount:     out.Amount,
	}, nil
}

// VerifyWebhook checks the body signature and extracts the event.
func (c *Client) VerifyWebhook(raw []byte) (*Event, error) {
	var payload struct {
		Code      string          `json:"code"`
		Success   bool            `json:"success"`
		Data      json.RawMessage `json:"data"`
		Signature string          `json:"signature"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Data) == 0 {
		return nil, ErrMalformedEvent
	}

	fields, err := decodeFields(payload.Data)
	if err != nil {
		return nil, ErrMalformedEvent
	}

	if payload.Signature == "" || !verify(c.cfg.ChecksumKey, fields, payload.Signature) {
		return nil, ErrInvalidSignature
	}

	orderCode := formatValue(fields["orderCode"])
	if orderCode == "" {
		return nil, ErrMalformedEvent
	}

	status := StatusFailed
	if payload.Code == successCode && formatValue(fields["code"]) == successCode {
		status = StatusPaid
	}

	amount, _ := strconv.ParseFloat(formatValue(fields["amount"]), 64)

	return &Event{
		ExternalID: orderCode,
		Status:     status,
		Amount:     amount,
		Reference:  formatValue(fields["reference"]),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, in, out)
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-api-key", c.cfg.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Desc: resp.Status}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || env.Code != successCode {
		return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Desc: env.Desc}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	return nil
}
