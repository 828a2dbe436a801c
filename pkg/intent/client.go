package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound reports an upstream 404. On the fills endpoint this is the
// normal "no fills ready yet" answer and must not be treated as a transport
// failure.
var ErrNotFound = errors.New("not found")

// API is the swap-intent service boundary consumed by the orchestrator.
// It is injected, never held as package-level state, so tests can substitute
// a fake.
type API interface {
	GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderPlacement, error)
	GetOrderStatus(ctx context.Context, orderHash string) (*OrderStatus, error)
	GetReadyToAcceptSecretFills(ctx context.Context, orderHash string) ([]Fill, error)
	SubmitSecret(ctx context.Context, orderHash, secret string) error
}

// Client talks HTTP to the swap-intent API, injecting the bearer credential
// on every call.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a swap-intent API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	var quote Quote
	if err := c.do(ctx, http.MethodPost, "/quoter/quote", req, &quote); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote.Preset.SecretsCount < 1 {
		return nil, fmt.Errorf("quote preset has invalid secrets count %d", quote.Preset.SecretsCount)
	}
	return &quote, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderPlacement, error) {
	var placement OrderPlacement
	if err := c.do(ctx, http.MethodPost, "/relayer/order", req, &placement); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	if placement.OrderHash == "" {
		return nil, fmt.Errorf("order placement returned no order hash")
	}
	return &placement, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, orderHash string) (*OrderStatus, error) {
	var status OrderStatus
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderHash+"/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetReadyToAcceptSecretFills(ctx context.Context, orderHash string) ([]Fill, error) {
	var resp struct {
		Fills []Fill `json:"fills"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderHash+"/ready-to-accept-secret-fills", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Fills, nil
}

func (c *Client) SubmitSecret(ctx context.Context, orderHash, secret string) error {
	body := map[string]string{"secret": secret, "orderHash": orderHash}
	if err := c.do(ctx, http.MethodPost, "/relayer/secret", body, nil); err != nil {
		return fmt.Errorf("failed to submit secret: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiError extracts the upstream error message where one is present, falling
// back to the raw body.
func apiError(resp *http.Response) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil || len(bodyBytes) == 0 {
		return fmt.Errorf("API returned status code %d", resp.StatusCode)
	}
	var errorResp map[string]interface{}
	if jsonErr := json.Unmarshal(bodyBytes, &errorResp); jsonErr == nil {
		if message, ok := errorResp["message"].(string); ok {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, message)
		}
		if details, ok := errorResp["error"]; ok {
			return fmt.Errorf("API error (status %d): %v", resp.StatusCode, details)
		}
	}
	return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
}
