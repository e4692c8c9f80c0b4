// Package agmarket implements farm.MarketProvider against the agmarket
// REST API, a public feed of Indian mandi commodity prices.
package agmarket

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/sp4m-08/crop-chat-agent/internal/utils"
	"github.com/sp4m-08/crop-chat-agent/providers/farm"
)

const defaultBaseURL = "https://agmarket-api-main.onrender.com/request"

const defaultTimeout = 10 * time.Second

// Provider fetches mandi prices over HTTP. Lookup failures are folded into
// the quote's Err field so a flaky upstream degrades the answer instead of
// failing the run.
type Provider struct {
	baseURL string
	client  *http.Client
}

// New creates a Provider against the public agmarket endpoint.
func New() *Provider {
	return &Provider{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// WithBaseURL overrides the API endpoint. Used for tests and self-hosted
// mirrors.
func (provider *Provider) WithBaseURL(baseURL string) *Provider {
	provider.baseURL = baseURL
	return provider
}

// WithHTTPClient overrides the HTTP client, including its timeout.
func (provider *Provider) WithHTTPClient(client *http.Client) *Provider {
	provider.client = client
	return provider
}

func (provider *Provider) Prices(ctx context.Context, commodity, state, market string) (*farm.MarketQuote, error) {
	quote := &farm.MarketQuote{
		Commodity: commodity,
		State:     state,
		Market:    market,
	}

	params := url.Values{}
	params.Set("commodity", commodity)
	params.Set("state", state)
	params.Set("market", market)

	_, records, err := utils.DoGetSync[[]farm.MarketRecord](ctx, provider.client, provider.baseURL, params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		quote.Err = err.Error()
		return quote, nil
	}

	if records != nil {
		quote.Data = *records
	}
	return quote, nil
}
