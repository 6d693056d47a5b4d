package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"campmap/internal/adapters/observability"
	"campmap/internal/domain"
)

// DefaultGeocodeDelay spaces consecutive lookups within one pass.
const DefaultGeocodeDelay = 120 * time.Millisecond

type entry struct {
	address string
	res     domain.Resolution
	// pass that moved the entry to in-flight
	owner uint64
}

// Orchestrator resolves every offer's address one at a time: cache first,
// then the geocoder. Each Start begins a new pass and retires the previous
// one; a retired pass never writes state again.
type Orchestrator struct {
	geo   domain.Geocoder
	cache *GeoCache
	delay time.Duration

	mu      sync.Mutex
	gen     uint64
	entries map[string]*entry
	cancel  context.CancelFunc
	closed  bool
}

func NewOrchestrator(geo domain.Geocoder, cache *GeoCache, delay time.Duration) *Orchestrator {
	if delay < 0 {
		delay = 0
	}
	return &Orchestrator{
		geo:     geo,
		cache:   cache,
		delay:   delay,
		entries: map[string]*entry{},
	}
}

// Start reconciles state with offers and launches a pass over them. The
// returned channel closes when that pass finishes or is retired.
func (o *Orchestrator) Start(ctx context.Context, offers []domain.Offer) <-chan struct{} {
	done := make(chan struct{})

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		close(done)
		return done
	}
	if o.cancel != nil {
		o.cancel()
	}
	o.gen++
	gen := o.gen
	passCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	next := make(map[string]*entry, len(offers))
	work := make([]domain.Offer, 0, len(offers))
	for _, p := range offers {
		if _, dup := next[p.ID]; dup {
			continue
		}
		work = append(work, p)
		prev, ok := o.entries[p.ID]
		switch {
		case !ok || prev.address != p.Address:
			next[p.ID] = &entry{address: p.Address, res: domain.NotStarted()}
		case prev.res.Status == domain.StatusInFlight:
			// the pass that owned it was just retired
			next[p.ID] = &entry{address: p.Address, res: domain.NotStarted()}
		default:
			next[p.ID] = prev
		}
	}
	o.entries = next
	o.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		o.run(passCtx, gen, work)
	}()
	return done
}

// Close retires the current pass and rejects further ones.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.gen++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// State returns the resolution for one offer id.
func (o *Orchestrator) State(id string) domain.Resolution {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[id]; ok {
		return e.res
	}
	return domain.NotStarted()
}

// States returns a snapshot of every tracked offer.
func (o *Orchestrator) States() map[string]domain.Resolution {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]domain.Resolution, len(o.entries))
	for id, e := range o.entries {
		out[id] = e.res
	}
	return out
}

func (o *Orchestrator) run(ctx context.Context, gen uint64, offers []domain.Offer) {
	for _, p := range offers {
		if ctx.Err() != nil {
			return
		}
		if !o.claim(gen, p) {
			continue
		}

		res, source, ok := o.resolve(ctx, p)
		if !ok {
			return
		}
		if !o.apply(gen, p, res) {
			return
		}
		observability.ObserveResolution(source, string(res.Status))

		if !sleepCtx(ctx, o.delay) {
			return
		}
	}
}

// claim moves a not-started offer to in-flight for pass gen.
func (o *Orchestrator) claim(gen uint64, p domain.Offer) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		return false
	}
	e, ok := o.entries[p.ID]
	if !ok || e.res.Status != domain.StatusNotStarted {
		return false
	}
	e.res = domain.InFlight()
	e.owner = gen
	return true
}

// resolve returns ok=false only when ctx was cancelled mid-lookup.
func (o *Orchestrator) resolve(ctx context.Context, p domain.Offer) (domain.Resolution, string, bool) {
	if c, hit := o.cache.Get(ctx, p.Address); hit {
		log.Debug().Str("offer", p.ID).Str("address", p.Address).Msg("geocode cache hit")
		return domain.Resolved(c), "cache", true
	}
	if c, hit := o.sibling(p); hit {
		return domain.Resolved(c), "sibling", true
	}

	c, err := o.geo.Geocode(ctx, p.Address)
	if ctx.Err() != nil {
		return domain.Resolution{}, "", false
	}
	if err != nil {
		log.Warn().Err(err).Str("offer", p.ID).Str("address", p.Address).
			Str("kind", domain.KindOf(err).String()).Msg("geocode failed")
		return domain.Failed(err.Error()), "gateway", true
	}
	o.cache.Put(ctx, p.Address, c)
	log.Debug().Str("offer", p.ID).Float64("lat", c.Lat).Float64("lng", c.Lng).Msg("geocode resolved")
	return domain.Resolved(c), "gateway", true
}

// sibling reuses a resolution already held by another offer with the same
// address, covering runs without a cache backend.
func (o *Orchestrator) sibling(p domain.Offer) (domain.Coordinates, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, e := range o.entries {
		if id == p.ID || e.res.Status != domain.StatusResolved {
			continue
		}
		if strings.EqualFold(e.address, p.Address) {
			return *e.res.Coords, true
		}
	}
	return domain.Coordinates{}, false
}

// apply records res unless pass gen has been retired.
func (o *Orchestrator) apply(gen uint64, p domain.Offer, res domain.Resolution) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		return false
	}
	e, ok := o.entries[p.ID]
	if !ok || e.owner != gen || e.address != p.Address || e.res.Status != domain.StatusInFlight {
		return true
	}
	e.res = res
	return true
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
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
