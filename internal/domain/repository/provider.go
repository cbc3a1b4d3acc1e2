package repository

import "context"

// RawQuery is one provider request. Function follows the provider's naming
// (e.g. TIME_SERIES_DAILY, OVERVIEW).
type RawQuery struct {
	Function   string
	Symbol     string
	APIKey     string
	OutputSize string
}

// RawPayload is an undecoded provider response.
type RawPayload struct {
	StatusCode int
	Body       []byte
}

// MarketDataProvider fetches raw payloads for a symbol query. Implementations
// return an error only for transport failures; HTTP statuses are reported in
// the payload.
//
//go:generate mockgen -package=gateway_test -destination=../../gateway/mock_provider_test.go -source=provider.go
type MarketDataProvider interface {
	FetchRaw(ctx context.Context, q RawQuery) (*RawPayload, error)
}
