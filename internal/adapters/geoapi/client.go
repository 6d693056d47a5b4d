// Package geoapi talks to a running gateway over /api/geocode. The key stays
// with the gateway; this client only sends addresses.
package geoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"campmap/internal/adapters/observability"
	"campmap/internal/domain"
)

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

// New targets the gateway at base, e.g. http://localhost:8080.
func New(base string, rps int, timeout time.Duration) *Client {
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: timeout},
		rl:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type okBody struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Formatted string  `json:"formatted"`
}

type errBody struct {
	Error string `json:"error"`
}

// Geocode implements domain.Geocoder. Gateway error responses are turned
// back into *domain.Error with the same kind.
func (c *Client) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.Coordinates{}, err
	}
	u := c.base + "/api/geocode?address=" + url.QueryEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Coordinates{}, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("gateway", "geocode", 0, time.Since(start))
		return domain.Coordinates{}, domain.UpstreamUnavailable(0, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("gateway", "geocode", resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusOK {
		var b okBody
		if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
			return domain.Coordinates{}, fmt.Errorf("decode geocode: %w", err)
		}
		out := domain.Coordinates{Lat: b.Lat, Lng: b.Lng, Formatted: b.Formatted}
		if !out.Valid() {
			return domain.Coordinates{}, domain.UpstreamUnavailable(0, nil)
		}
		return out, nil
	}

	var eb errBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	return domain.Coordinates{}, fromStatus(resp.StatusCode, eb.Error)
}

func fromStatus(status int, msg string) error {
	var e *domain.Error
	switch status {
	case http.StatusBadRequest:
		e = domain.ValidationError(msg)
	case http.StatusNotFound:
		e = domain.NotFound(msg)
	case http.StatusInternalServerError:
		e = domain.ConfigurationError(msg)
	default:
		e = domain.UpstreamUnavailable(status, nil)
	}
	if msg != "" {
		e.Message = msg
	}
	return e
}
