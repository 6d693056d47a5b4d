package app

import (
	"sync"
	"time"

	"campmap/internal/domain"
)

const (
	// PulseDuration is how long a selected card stays highlighted.
	PulseDuration = 1200 * time.Millisecond
	// FlyMinZoom is the least zoom a fly-to lands on.
	FlyMinZoom = 12
	// FlyDuration is the animation length handed to the map.
	FlyDuration = 600 * time.Millisecond
	// BoundsPadding grows the fitted marker box by this ratio on each side.
	BoundsPadding = 0.15
)

// Icon is the marker pin appearance.
type Icon struct {
	Color      string `json:"color"`
	Emphasized bool   `json:"emphasized"`
}

// IconFor picks the pin for an offer type, darkened when emphasized.
func IconFor(t domain.OfferType, emphasized bool) Icon {
	base := "#f97316"
	if t == domain.TypeDayCamp {
		base = "#0f172a"
	}
	if emphasized {
		return Icon{Color: base + "50", Emphasized: true}
	}
	return Icon{Color: base}
}

type Popup struct {
	Title   string `json:"title"`
	Address string `json:"address"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Href    string `json:"href"`
}

type Marker struct {
	OfferID string  `json:"offerId"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Icon    Icon    `json:"icon"`
	Popup   Popup   `json:"popup"`
}

// Bounds is a south-west/north-east box.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// FlyTarget is handed to the mounted map to recenter on a point.
type FlyTarget struct {
	Lat      float64       `json:"lat"`
	Lng      float64       `json:"lng"`
	MinZoom  int           `json:"minZoom"`
	Duration time.Duration `json:"-"`
	// DurationMS is Duration for JSON clients.
	DurationMS int64 `json:"durationMs"`
}

// FlyFunc is the map's recenter capability.
type FlyFunc func(FlyTarget)

// CardScroller brings one offer card into view.
type CardScroller interface {
	ScrollIntoView(offerID string)
}

// Binding links list cards and map markers: hover and selection state,
// the selection pulse, and the fly-to handle of the mounted map.
type Binding struct {
	scroller CardScroller
	pulseFor time.Duration

	mu      sync.Mutex
	hovered string
	active  string
	pulse   string
	timer   *time.Timer
	fly     FlyFunc
	mountID uint64
	fitted  bool
}

// NewBinding returns a binding; scroller may be nil.
func NewBinding(scroller CardScroller) *Binding {
	return &Binding{scroller: scroller, pulseFor: PulseDuration}
}

func (b *Binding) Hover(id string) {
	b.mu.Lock()
	b.hovered = id
	b.mu.Unlock()
}

// Leave clears the hover only when it still belongs to id.
func (b *Binding) Leave(id string) {
	b.mu.Lock()
	if b.hovered == id {
		b.hovered = ""
	}
	b.mu.Unlock()
}

func (b *Binding) Hovered() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hovered
}

func (b *Binding) Active() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Select marks id active, scrolls its card into view and pulses it.
func (b *Binding) Select(id string) {
	b.mu.Lock()
	b.active = id
	b.pulse = id
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.pulseFor, func() {
		b.mu.Lock()
		if b.pulse == id {
			b.pulse = ""
		}
		b.mu.Unlock()
	})
	scroller := b.scroller
	b.mu.Unlock()

	if scroller != nil {
		scroller.ScrollIntoView(id)
	}
}

// Pulsing reports whether id's card is inside its highlight window.
func (b *Binding) Pulsing(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return id != "" && b.pulse == id
}

func (b *Binding) Emphasized(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return emphasized(id, b.hovered, b.active)
}

func emphasized(id, hovered, active string) bool {
	return id != "" && (id == hovered || id == active)
}

// Markers renders the visible offers that have coordinates, in list order.
func (b *Binding) Markers(visible []domain.Offer, states map[string]domain.Resolution) []Marker {
	b.mu.Lock()
	hovered, active := b.hovered, b.active
	b.mu.Unlock()
	return buildMarkers(visible, states, hovered, active)
}

func buildMarkers(visible []domain.Offer, states map[string]domain.Resolution, hovered, active string) []Marker {
	out := make([]Marker, 0, len(visible))
	for _, p := range visible {
		r, ok := states[p.ID]
		if !ok || r.Status != domain.StatusResolved || r.Coords == nil {
			continue
		}
		out = append(out, Marker{
			OfferID: p.ID,
			Lat:     r.Coords.Lat,
			Lng:     r.Coords.Lng,
			Icon:    IconFor(p.Type, emphasized(p.ID, hovered, active)),
			Popup: Popup{
				Title:   p.Title,
				Address: p.Address,
				Start:   p.Start,
				End:     p.End,
				Href:    "/oferta/" + p.ID,
			},
		})
	}
	return out
}

// MountMap registers the map's fly-to capability. The returned function
// unregisters it; calling it after a later mount has no effect.
func (b *Binding) MountMap(fly FlyFunc) (unmount func()) {
	b.mu.Lock()
	b.mountID++
	id := b.mountID
	b.fly = fly
	b.fitted = false
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		if b.mountID == id {
			b.fly = nil
		}
		b.mu.Unlock()
	}
}

// FlyTo recenters the mounted map on c. It reports false when no map is
// mounted.
func (b *Binding) FlyTo(c domain.Coordinates) bool {
	b.mu.Lock()
	fly := b.fly
	b.mu.Unlock()
	if fly == nil {
		return false
	}
	fly(FlyTarget{
		Lat:        c.Lat,
		Lng:        c.Lng,
		MinZoom:    FlyMinZoom,
		Duration:   FlyDuration,
		DurationMS: FlyDuration.Milliseconds(),
	})
	return true
}

// FitBoundsOnce returns the padded box of markers the first time any exist
// for the current mount.
func (b *Binding) FitBoundsOnce(markers []Marker) (Bounds, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fitted || len(markers) == 0 {
		return Bounds{}, false
	}
	bb, _ := MarkerBounds(markers, BoundsPadding)
	b.fitted = true
	return bb, true
}

// Close stops the pulse timer and drops the fly-to handle.
func (b *Binding) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.pulse = ""
	b.fly = nil
	b.mountID++
}

// MarkerBounds is the box around markers grown by pad of its span per side.
func MarkerBounds(markers []Marker, pad float64) (Bounds, bool) {
	if len(markers) == 0 {
		return Bounds{}, false
	}
	bb := Bounds{South: markers[0].Lat, North: markers[0].Lat, West: markers[0].Lng, East: markers[0].Lng}
	for _, m := range markers[1:] {
		bb.South = min(bb.South, m.Lat)
		bb.North = max(bb.North, m.Lat)
		bb.West = min(bb.West, m.Lng)
		bb.East = max(bb.East, m.Lng)
	}
	dLat := (bb.North - bb.South) * pad
	dLng := (bb.East - bb.West) * pad
	bb.South = max(bb.South-dLat, -90)
	bb.North = min(bb.North+dLat, 90)
	bb.West = max(bb.West-dLng, -180)
	bb.East = min(bb.East+dLng, 180)
	return bb, true
}
