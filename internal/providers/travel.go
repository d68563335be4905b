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

// DefaultTravelMinutes is the assumed hop time between schedule stops
// when no routing provider can answer.
const DefaultTravelMinutes = 20

// TravelProvider estimates travel time between two points. It tries the
// Google Distance Matrix API, then the public OSRM router, then falls
// back to DefaultTravelMinutes.
type TravelProvider struct {
	apiKey      string
	matrixURL   string
	osrmBaseURL string
	ttl         time.Duration
	cache       *cache.Cache
	client      *http.Client
}

// NewTravelProvider creates a travel time provider.
func NewTravelProvider(apiKey, matrixURL, osrmBaseURL string, ttl time.Duration, c *cache.Cache, client *http.Client) *TravelProvider {
	return &TravelProvider{apiKey: apiKey, matrixURL: matrixURL, osrmBaseURL: osrmBaseURL, ttl: ttl, cache: c, client: client}
}

// Minutes never fails; the fallback chain always produces an estimate.
func (p *TravelProvider) Minutes(ctx context.Context, origin, destination string) int {
	if origin == "" || destination == "" || origin == destination {
		return 0
	}

	key := cache.Key("travel", origin, destination)
	if raw, ok := p.cache.Get(ctx, key); ok {
		if mins, err := strconv.Atoi(string(raw)); err == nil {
			return mins
		}
	}

	if mins, err := p.distanceMatrix(ctx, origin, destination); err == nil {
		p.cache.Put(ctx, key, []byte(strconv.Itoa(mins)), p.ttl)
		return mins
	}
	if mins, err := p.osrm(ctx, origin, destination); err == nil {
		p.cache.Put(ctx, key, []byte(strconv.Itoa(mins)), p.ttl)
		return mins
	}
	return DefaultTravelMinutes
}

type distanceMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (p *TravelProvider) distanceMatrix(ctx context.Context, origin, destination string) (int, error) {
	if p.apiKey == "" {
		return 0, ErrUnavailable
	}

	q := url.Values{}
	q.Set("origins", origin)
	q.Set("destinations", destination)
	q.Set("key", p.apiKey)
	reqURL := fmt.Sprintf("%s/json?%s", p.matrixURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("Distance Matrix unreachable")
		return 0, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, ErrUnavailable
	}

	var parsed distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, err
	}
	if parsed.Status != "OK" || len(parsed.Rows) == 0 || len(parsed.Rows[0].Elements) == 0 {
		return 0, ErrUnavailable
	}
	el := parsed.Rows[0].Elements[0]
	if el.Status != "OK" {
		return 0, ErrUnavailable
	}
	return el.Duration.Value / 60, nil
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

// osrm routes between two "lon,lat" coordinate pairs. Free-form place
// names cannot be geocoded here, so it only serves coordinate inputs.
func (p *TravelProvider) osrm(ctx context.Context, origin, destination string) (int, error) {
	reqURL := fmt.Sprintf("%s/route/v1/driving/%s;%s?overview=false",
		p.osrmBaseURL, url.PathEscape(origin), url.PathEscape(destination))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("OSRM unreachable")
		return 0, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, ErrUnavailable
	}

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, err
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return 0, ErrUnavailable
	}
	return int(parsed.Routes[0].Duration / 60), nil
}
