// Package square captures card payments through the Square Payments API.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmynk/troopledger/internal/ledger"
)

const (
	ProductionURL = "https://connect.squareup.com"
	SandboxURL    = "https://connect.squareupsandbox.com"

	apiVersion = "2025-01-23"
)

// Config holds the credentials for one Square location.
type Config struct {
	BaseURL     string
	AccessToken string
	LocationID  string
}

// Client implements ledger.CaptureGateway.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ ledger.CaptureGateway = (*Client)(nil)

// NewClient creates a client. A nil httpClient uses a client with a 30s timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ProductionURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createPaymentRequest struct {
	SourceID       string `json:"source_id"`
	IdempotencyKey string `json:"idempotency_key"`
	AmountMoney    money  `json:"amount_money"`
	LocationID     string `json:"location_id,omitempty"`
	Note           string `json:"note,omitempty"`
	Autocomplete   bool   `json:"autocomplete"`
}

type apiError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

type createPaymentResponse struct {
	Payment *struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		ProcessingFee []struct {
			AmountMoney money `json:"amount_money"`
		} `json:"processing_fee"`
	} `json:"payment"`
	Errors []apiError `json:"errors"`
}

// Capture creates and completes a payment for the card nonce in req.
func (c *Client) Capture(ctx context.Context, req ledger.CaptureRequest) (*ledger.CaptureResult, error) {
	if req.IdempotencyKey == "" {
		return nil, errors.New("square: idempotency key is required")
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	body, err := json.Marshal(createPaymentRequest{
		SourceID:       req.SourceToken,
		IdempotencyKey: req.IdempotencyKey,
		AmountMoney:    money{Amount: req.AmountMinor, Currency: currency},
		LocationID:     c.cfg.LocationID,
		Note:           req.Note,
		Autocomplete:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("square: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("square: failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Square-Version", apiVersion)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("square: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("square: failed to read response: %w", err)
	}
	var out createPaymentResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("square: unexpected response (HTTP %d): %w", resp.StatusCode, err)
	}
	if len(out.Errors) > 0 {
		e := out.Errors[0]
		return nil, fmt.Errorf("square: %s %s: %s", e.Category, e.Code, e.Detail)
	}
	if resp.StatusCode/100 != 2 || out.Payment == nil {
		return nil, fmt.Errorf("square: unexpected HTTP %d", resp.StatusCode)
	}

	var fee int64
	for _, f := range out.Payment.ProcessingFee {
		fee += f.AmountMoney.Amount
	}
	return &ledger.CaptureResult{
		ProcessorPaymentID: out.Payment.ID,
		FeeMinor:           fee,
		Status:             out.Payment.Status,
	}, nil
}
