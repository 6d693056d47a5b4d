package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"campmap/internal/domain"
)

// CredentialName is the environment variable holding the provider key.
const CredentialName = "GOOGLE_MAPS_API_KEY"

// GeocodeService is the server-side translation boundary between callers
// and the geocoding provider. It holds the credential and never returns it.
type GeocodeService struct {
	provider domain.Provider
	key      string
	timeout  time.Duration
}

// NewGeocodeService bounds each Geocode call, retries included, by timeout.
// timeout <= 0 leaves the caller's deadline alone.
func NewGeocodeService(p domain.Provider, key string, timeout time.Duration) *GeocodeService {
	return &GeocodeService{provider: p, key: key, timeout: timeout}
}

// Geocode resolves address to the first provider result. Only an absent
// address is rejected; anything else, blanks included, goes upstream.
func (s *GeocodeService) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	if address == "" {
		return domain.Coordinates{}, domain.ValidationError("Missing 'address' query param")
	}
	if s.key == "" {
		return domain.Coordinates{}, domain.ConfigurationError("Server missing " + CredentialName)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.provider.Lookup(ctx, address, s.key)
	if err != nil {
		if domain.KindOf(err) != domain.KindUpstreamUnavailable {
			err = domain.UpstreamUnavailable(0, err)
		}
		log.Warn().Err(err).Str("address", address).Msg("geocode upstream failed")
		return domain.Coordinates{}, err
	}
	if res.Status != "OK" || len(res.Results) == 0 {
		return domain.Coordinates{}, domain.NotFound(res.Status)
	}

	first := res.Results[0]
	if !first.Valid() {
		return domain.Coordinates{}, domain.UpstreamUnavailable(0, nil)
	}
	return first, nil
}
