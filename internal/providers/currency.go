package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/internal/cache"
)

// CurrencyProvider converts between currencies via exchangerate.host.
type CurrencyProvider struct {
	baseURL string
	apiKey  string
	ttl     time.Duration
	cache   *cache.Cache
	client  *http.Client
}

// NewCurrencyProvider creates a currency conversion provider.
func NewCurrencyProvider(apiKey, baseURL string, ttl time.Duration, c *cache.Cache, client *http.Client) *CurrencyProvider {
	return &CurrencyProvider{apiKey: apiKey, baseURL: baseURL, ttl: ttl, cache: c, client: client}
}

type convertResponse struct {
	Success bool    `json:"success"`
	Result  float64 `json:"result"`
}

// Rate returns the conversion rate from one currency to another. A rate
// of 1 with ErrUnavailable means the caller should report amounts in the
// original currency.
func (p *CurrencyProvider) Rate(ctx context.Context, from, to string) (float64, error) {
	if from == to || from == "" || to == "" {
		return 1, nil
	}

	key := cache.Key("currency", from, to)
	if raw, ok := p.cache.Get(ctx, key); ok {
		if rate, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return rate, nil
		}
	}

	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("amount", "1")
	if p.apiKey != "" {
		q.Set("access_key", p.apiKey)
	}
	reqURL := fmt.Sprintf("%s/convert?%s", p.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return 1, fmt.Errorf("currency: create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("Currency API unreachable")
		return 1, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1, ErrUnavailable
	}

	var parsed convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 1, fmt.Errorf("currency: decode response: %w", err)
	}
	if !parsed.Success || parsed.Result <= 0 {
		return 1, ErrUnavailable
	}

	p.cache.Put(ctx, key, []byte(strconv.FormatFloat(parsed.Result, 'f', -1, 64)), p.ttl)
	return parsed.Result, nil
}
