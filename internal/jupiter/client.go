// Package jupiter wraps the Jupiter v6 quote and swap-build endpoints.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"solana-mirror/internal/solana"
)

// Jupiter v6 endpoints.
const (
	DefaultQuoteURL = "https://quote-api.jup.ag/v6/quote"
	DefaultSwapURL  = "https://quote-api.jup.ag/v6/swap"
)

// DefaultTimeout bounds each HTTP call.
const DefaultTimeout = 30 * time.Second

// Client is a stateless HTTP client for quote retrieval and swap-transaction
// construction.
type Client struct {
	client   *http.Client
	quoteURL string
	swapURL  string
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithQuoteURL overrides the quote endpoint.
func WithQuoteURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.quoteURL = u
		}
	}
}

// WithSwapURL overrides the swap-build endpoint.
func WithSwapURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.swapURL = u
		}
	}
}

// NewClient creates a Jupiter client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		client:   &http.Client{Timeout: DefaultTimeout},
		quoteURL: DefaultQuoteURL,
		swapURL:  DefaultSwapURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Quote is a quote response. InAmount and OutAmount are parsed for logging;
// Raw holds the full body, which must be forwarded to the swap builder
// unmodified. The routing payload inside it is opaque to us.
type Quote struct {
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`

	Raw json.RawMessage `json:"-"`
}

// GetQuote requests a quote for swapping amount (smallest units) of
// inputMint into outputMint at the given slippage tolerance.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps uint16) (*Quote, error) {
	u, err := url.Parse(c.quoteURL)
	if err != nil {
		return nil, fmt.Errorf("parse quote url: %w", err)
	}
	q := u.Query()
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(int(slippageBps)))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create quote request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quote response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote status %d: %s", resp.StatusCode, body)
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("unmarshal quote: %w", err)
	}
	quote.Raw = body
	return &quote, nil
}

// swapRequest is the swap-build request body.
type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports"`
}

// swapResponse is the swap-build response body.
type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// BuildSwapTransaction requests a swap-transaction build for the quote and
// returns the base64-encoded versioned transaction. The quote body is
// forwarded exactly as received.
func (c *Client) BuildSwapTransaction(ctx context.Context, quote *Quote, user solana.Pubkey, prioritizationFeeLamports uint64) (string, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return "", fmt.Errorf("empty quote")
	}

	reqBody := swapRequest{
		QuoteResponse:             quote.Raw,
		UserPublicKey:             user.String(),
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: prioritizationFeeLamports,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.swapURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("swap request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read swap response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("swap status %d: %s", resp.StatusCode, body)
	}

	var sr swapResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("unmarshal swap response: %w", err)
	}
	if sr.SwapTransaction == "" {
		return "", fmt.Errorf("swap response missing swapTransaction")
	}
	return sr.SwapTransaction, nil
}
