package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2eliot/Inefablestore/models"
)

// IdempotencyHeader carries the per-confirm key on POST /orders
const IdempotencyHeader = "Idempotency-Key"

// Client talks to the store backend over JSON/HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Ensure Client implements API
var _ API = (*Client)(nil)

// NewClient creates a client for the backend at baseURL. Requests are traced with the
// OpenTelemetry transport; per-call deadlines come from the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// NewClientWithHTTP creates a client using a caller-provided http.Client
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}
}

// ItemsForProduct handles GET /store/package/{gid}/items
func (c *Client) ItemsForProduct(ctx context.Context, productID int64) ([]models.Item, error) {
	var resp models.ItemsResponse
	path := fmt.Sprintf("/store/package/%d/items", productID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ExchangeRate handles GET /store/rate
func (c *Client) ExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	var resp models.ExchangeRateResponse
	if err := c.do(ctx, http.MethodGet, "/store/rate", nil, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Rate, nil
}

// PaymentMethods handles GET /store/payments
func (c *Client) PaymentMethods(ctx context.Context) (*models.PaymentsConfig, error) {
	var resp models.PaymentsResponse
	if err := c.do(ctx, http.MethodGet, "/store/payments", nil, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("store api: payments config unavailable")
	}
	return &resp.Payments, nil
}

// ValidateDiscountCode handles GET /store/special/validate
func (c *Client) ValidateDiscountCode(ctx context.Context, code string, productID int64) (*models.DiscountGrant, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("gid", strconv.FormatInt(productID, 10))

	var resp models.DiscountValidationResponse
	err := c.do(ctx, http.MethodGet, "/store/special/validate?"+q.Encode(), nil, nil, &resp)
	if err != nil {
		if se, ok := err.(*StatusError); ok && (se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDiscountRejected, se.Message)
		}
		return nil, err
	}
	if !resp.OK || !resp.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrDiscountRejected, resp.Error)
	}
	return &models.DiscountGrant{
		Code:          code,
		Discount:      resp.Discount,
		ItemDiscounts: resp.ItemDiscounts,
	}, nil
}

// ReferenceExists handles GET /orders/reference/{reference}/exists
func (c *Client) ReferenceExists(ctx context.Context, reference string) (*models.ReferenceCheckResponse, error) {
	var resp models.ReferenceCheckResponse
	path := "/orders/reference/" + url.PathEscape(reference) + "/exists"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateOrder handles POST /orders
func (c *Client) CreateOrder(ctx context.Context, payload *models.OrderPayload, idempotencyKey string) (int64, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[IdempotencyHeader] = idempotencyKey
	}
	var resp models.CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", payload, headers, &resp); err != nil {
		return 0, err
	}
	if !resp.OK || resp.OrderID == 0 {
		return 0, &StatusError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return resp.OrderID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store api %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{StatusCode: res.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the "error" (or "message") field of a JSON error body
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
