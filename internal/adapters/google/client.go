// internal/adapters/google/client.go
package google

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"campmap/internal/adapters/observability"
	"campmap/internal/domain"
)

// DefaultBase is the Google Geocoding JSON endpoint.
const DefaultBase = "https://maps.googleapis.com/maps/api/geocode/json"

type Client struct {
	base     string
	hc       *http.Client
	rl       *rate.Limiter
	attempts int
}

// New builds a client limited to rps requests per second with the given
// per-request timeout. An attempts value below 1 means a single try.
func New(base string, rps int, timeout time.Duration, attempts int) *Client {
	if base == "" {
		base = DefaultBase
	}
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		base:     base,
		hc:       &http.Client{Timeout: timeout},
		rl:       rate.NewLimiter(rate.Limit(rps), rps),
		attempts: attempts,
	}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Lookup forwards address to the provider with key attached as a query
// parameter. Non-2xx and transport failures come back as
// domain.KindUpstreamUnavailable; the key never appears in returned errors.
func (c *Client) Lookup(ctx context.Context, address, key string) (domain.ProviderResult, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return domain.ProviderResult{}, err
	}
	q := u.Query()
	q.Set("address", address)
	q.Set("key", key)
	u.RawQuery = q.Encode()

	var out geocodeResponse
	if err := c.get(ctx, u.String(), &out); err != nil {
		return domain.ProviderResult{}, err
	}

	res := domain.ProviderResult{Status: out.Status}
	for _, r := range out.Results {
		res.Results = append(res.Results, domain.Coordinates{
			Lat:       r.Geometry.Location.Lat,
			Lng:       r.Geometry.Location.Lng,
			Formatted: r.FormattedAddress,
		})
	}
	return res, nil
}

// get performs a GET with retries and JSON decode into out. Every attempt
// waits on the limiter. Retries on 429 and transient 5xx, honoring
// Retry-After when provided.
func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	var lastErr error
	last := c.attempts - 1
	for i := 0; i < c.attempts; i++ {
		if err := c.rl.Wait(ctx); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return domain.UpstreamUnavailable(0, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return redact(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "campmap/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("google", "geocode", 0, time.Since(start))
			if ctx.Err() != nil {
				return domain.UpstreamUnavailable(0, ctx.Err())
			}
			lastErr = domain.UpstreamUnavailable(0, redact(err))
			if i < last && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("google", "geocode", resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return domain.UpstreamUnavailable(resp.StatusCode, err)
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = domain.UpstreamUnavailable(resp.StatusCode, nil)
			if i < last && sleepCtx(ctx, wait) {
				continue
			}
			return lastErr

		default:
			resp.Body.Close()
			return domain.UpstreamUnavailable(resp.StatusCode, nil)
		}
	}

	return lastErr
}

// redact strips the query string (and with it the key) from url errors.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if i := strings.IndexByte(ue.URL, '?'); i >= 0 {
			return &url.Error{Op: ue.Op, URL: ue.URL[:i] + "?REDACTED", Err: ue.Err}
		}
	}
	return err
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
