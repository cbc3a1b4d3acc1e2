package alphavantage

import (
	"context"
	"fmt"

	drepo "StockLens/internal/domain/repository"
	xhttp "StockLens/pkg/http"
)

// DefaultBaseURL is the Alpha Vantage query endpoint.
const DefaultBaseURL = "https://www.alphavantage.co/query"

// Client implements MarketDataProvider against the Alpha Vantage REST API.
type Client struct {
	baseURL string
	http    *xhttp.Client
}

// New creates a provider. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, httpClient *xhttp.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = xhttp.NewClient()
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

var _ drepo.MarketDataProvider = (*Client)(nil)

// FetchRaw performs one GET and returns status and body untouched.
func (c *Client) FetchRaw(ctx context.Context, q drepo.RawQuery) (*drepo.RawPayload, error) {
	params := map[string][]string{
		"function": {q.Function},
		"symbol":   {q.Symbol},
		"apikey":   {q.APIKey},
		"datatype": {"json"},
	}
	if q.OutputSize != "" {
		params["outputsize"] = []string{q.OutputSize}
	}

	res, err := c.http.Fetch(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: params,
	})
	if err != nil {
		return nil, fmt.Errorf("alphavantage %s %s: %w", q.Function, q.Symbol, err)
	}

	return &drepo.RawPayload{StatusCode: res.StatusCode, Body: res.Body}, nil
}
