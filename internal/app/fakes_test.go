package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"campmap/internal/domain"
)

// memCache is a domain.Cache over a map, JSON-encoded like the real ones.
type memCache struct {
	mu      sync.Mutex
	m       map[string][]byte
	ttls    map[string]int
	sets    int
	failGet bool
	failSet bool
}

func newMemCache() *memCache {
	return &memCache{m: map[string][]byte{}, ttls: map[string]int{}}
}

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return false, errors.New("cache down")
	}
	b, ok := c.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(_ context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("cache down")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.m[key] = b
	c.ttls[key] = ttlSec
	c.sets++
	return nil
}

func (c *memCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func (c *memCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

// fakeGeocoder answers from results/errs and counts calls per address.
// Addresses listed in block wait on release, ignoring ctx.
type fakeGeocoder struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string]domain.Coordinates
	errs    map[string]error
	block   map[string]bool
	called  chan string
	release chan struct{}
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		calls:   map[string]int{},
		results: map[string]domain.Coordinates{},
		errs:    map[string]error{},
		block:   map[string]bool{},
		called:  make(chan string, 16),
		release: make(chan struct{}),
	}
}

func (g *fakeGeocoder) Geocode(_ context.Context, address string) (domain.Coordinates, error) {
	g.mu.Lock()
	g.calls[address]++
	blocked := g.block[address]
	c, ok := g.results[address]
	err := g.errs[address]
	g.mu.Unlock()

	select {
	case g.called <- address:
	default:
	}
	if blocked {
		<-g.release
	}
	if err != nil {
		return domain.Coordinates{}, err
	}
	if !ok {
		return domain.Coordinates{}, domain.NotFound("ZERO_RESULTS")
	}
	return c, nil
}

func (g *fakeGeocoder) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, v := range g.calls {
		n += v
	}
	return n
}

type fakeProvider struct {
	res   domain.ProviderResult
	err   error
	calls int
	key   string
}

func (p *fakeProvider) Lookup(_ context.Context, _ string, key string) (domain.ProviderResult, error) {
	p.calls++
	p.key = key
	return p.res, p.err
}

type staticSource struct {
	mu     sync.Mutex
	offers []domain.Offer
	err    error
}

func (s *staticSource) Offers(context.Context) ([]domain.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Offer(nil), s.offers...), s.err
}

func (s *staticSource) set(offers []domain.Offer) {
	s.mu.Lock()
	s.offers = offers
	s.mu.Unlock()
}

func offer(id, addr string) domain.Offer {
	return domain.Offer{
		ID: id, Title: id, City: "Pomorskie", Start: "2025-07-01", End: "2025-07-05",
		Address: addr, Type: domain.TypeCamp, Price: 100,
	}
}
