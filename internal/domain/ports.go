package domain

import "context"

// Cache is a JSON key-value store. ttlSec <= 0 keeps the entry forever.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Geocoder resolves one address. Implementations return *Error values.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
}

// ProviderResult is the provider payload reduced to what the gateway reads.
type ProviderResult struct {
	Status  string
	Results []Coordinates
}

// Provider is the third-party geocoding API behind the gateway.
type Provider interface {
	Lookup(ctx context.Context, address, key string) (ProviderResult, error)
}

// OfferSource supplies the offer list.
type OfferSource interface {
	Offers(ctx context.Context) ([]Offer, error)
}
