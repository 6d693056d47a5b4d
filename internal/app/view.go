package app

import (
	"context"
	"slices"
	"strings"
	"sync"

	"campmap/internal/domain"
)

// NoLocationLabel is shown on cards whose address could not be placed.
const NoLocationLabel = "no location available"

const excerptLen = 140

// Card is one offer in the list column.
type Card struct {
	domain.Offer
	Excerpt string                  `json:"excerpt"`
	State   domain.ResolutionStatus `json:"state"`
	Label   string                  `json:"label,omitempty"`
	Hovered bool                    `json:"hovered"`
	Active  bool                    `json:"active"`
	Pulse   bool                    `json:"pulse"`
}

// View is the rendered offer map: filter options, cards and markers.
type View struct {
	Cities  []string `json:"cities"`
	Filter  Criteria `json:"filter"`
	Cards   []Card   `json:"cards"`
	Markers []Marker `json:"markers"`
	// Bounds is set once per map mount, the first time markers exist.
	Bounds *Bounds `json:"bounds"`
	// ScrollTo is the card a selection asked to bring into view.
	ScrollTo string `json:"scrollTo,omitempty"`
}

// BuildView renders the visible subset of offers under c. Cards cover every
// visible offer; markers only those with coordinates.
func BuildView(e Engine, offers []domain.Offer, c Criteria, states map[string]domain.Resolution, hovered, active string) View {
	visible := e.Apply(offers, c)

	cards := make([]Card, 0, len(visible))
	for _, p := range visible {
		r, ok := states[p.ID]
		if !ok {
			r = domain.NotStarted()
		}
		card := Card{
			Offer:   p,
			Excerpt: Truncate(p.Desc, excerptLen),
			State:   r.Status,
			Hovered: p.ID == hovered,
			Active:  p.ID == active,
		}
		if r.Status == domain.StatusFailed {
			card.Label = NoLocationLabel
		}
		cards = append(cards, card)
	}

	return View{
		Cities:  Cities(offers),
		Filter:  c,
		Cards:   cards,
		Markers: buildMarkers(visible, states, hovered, active),
	}
}

// Truncate cuts s to n runes, trimming trailing space and appending "…".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n]), " \t\n") + "…"
}

// OfferService owns the offer list, its resolution pass, and the page state
// shared by list and map: the filter bar and the hover/selection binding.
type OfferService struct {
	src     domain.OfferSource
	orch    *Orchestrator
	engine  Engine
	binding *Binding

	mu     sync.Mutex
	offers []domain.Offer
	done   <-chan struct{}

	fmu    sync.Mutex
	filter *FilterState

	// ui is never held while calling into binding
	ui       sync.Mutex
	unmount  func()
	fly      *FlyTarget
	scrollTo string
}

// NewOfferService returns a service with a map already mounted.
func NewOfferService(src domain.OfferSource, orch *Orchestrator, engine Engine) *OfferService {
	s := &OfferService{src: src, orch: orch, engine: engine, filter: NewFilterState(nil)}
	s.binding = NewBinding(s)
	s.MountMap()
	return s
}

// Refresh reloads the offers and starts a new resolution pass when the list
// changed. The returned channel closes when the current pass ends.
func (s *OfferService) Refresh(ctx context.Context) (<-chan struct{}, error) {
	offers, err := s.src.Offers(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil && slices.Equal(s.offers, offers) {
		return s.done, nil
	}
	s.offers = offers
	// the pass outlives the request that triggered it
	s.done = s.orch.Start(context.WithoutCancel(ctx), offers)
	return s.done, nil
}

// Offers returns the current list.
func (s *OfferService) Offers() []domain.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.offers)
}

func (s *OfferService) known(id string) bool {
	return slices.ContainsFunc(s.Offers(), func(p domain.Offer) bool { return p.ID == id })
}

// View renders the map for c. Empty hovered or active fall back to the
// binding's own state.
func (s *OfferService) View(c Criteria, hovered, active string) View {
	if hovered == "" {
		hovered = s.binding.Hovered()
	}
	if active == "" {
		active = s.binding.Active()
	}
	v := BuildView(s.engine, s.Offers(), c, s.orch.States(), hovered, active)
	for i := range v.Cards {
		v.Cards[i].Pulse = s.binding.Pulsing(v.Cards[i].ID)
	}
	if bb, ok := s.binding.FitBoundsOnce(v.Markers); ok {
		v.Bounds = &bb
	}

	s.ui.Lock()
	v.ScrollTo, s.scrollTo = s.scrollTo, ""
	s.ui.Unlock()
	return v
}

// Selection is the outcome of picking an offer in the list.
type Selection struct {
	Active string     `json:"active"`
	Fly    *FlyTarget `json:"fly"`
}

// Select activates id, scrolls its card and flies the mounted map to it
// when its address is placed.
func (s *OfferService) Select(id string) (Selection, error) {
	if !s.known(id) {
		return Selection{}, domain.NotFound("offer not found")
	}
	s.ui.Lock()
	s.fly = nil
	s.ui.Unlock()

	s.binding.Select(id)
	if r := s.orch.State(id); r.Status == domain.StatusResolved && r.Coords != nil {
		s.binding.FlyTo(*r.Coords)
	}

	s.ui.Lock()
	defer s.ui.Unlock()
	return Selection{Active: id, Fly: s.fly}, nil
}

func (s *OfferService) Hover(id string) error {
	if !s.known(id) {
		return domain.NotFound("offer not found")
	}
	s.binding.Hover(id)
	return nil
}

func (s *OfferService) Leave(id string) { s.binding.Leave(id) }

// ScrollIntoView records the card the next view should bring into view.
func (s *OfferService) ScrollIntoView(id string) {
	s.ui.Lock()
	s.scrollTo = id
	s.ui.Unlock()
}

// MountMap starts a new map lifetime: bounds are fitted again and fly
// targets go to the new map.
func (s *OfferService) MountMap() {
	unmount := s.binding.MountMap(func(ft FlyTarget) {
		s.ui.Lock()
		s.fly = &ft
		s.ui.Unlock()
	})
	s.ui.Lock()
	s.unmount = unmount
	s.fly = nil
	s.ui.Unlock()
}

// UnmountMap drops the fly-to handle until the next MountMap.
func (s *OfferService) UnmountMap() {
	s.ui.Lock()
	unmount := s.unmount
	s.unmount = nil
	s.fly = nil
	s.ui.Unlock()
	if unmount != nil {
		unmount()
	}
}

// Filter returns the filter bar over the current offers.
func (s *OfferService) Filter() FilterBar {
	offers := s.Offers()
	s.fmu.Lock()
	defer s.fmu.Unlock()
	s.filter.SetOffers(offers)
	return s.filter.Bar()
}

// ApplyFilter runs one filter bar interaction and returns the new bar.
func (s *OfferService) ApplyFilter(a FilterAction) (FilterBar, error) {
	offers := s.Offers()
	s.fmu.Lock()
	defer s.fmu.Unlock()
	s.filter.SetOffers(offers)
	err := s.filter.Do(a)
	return s.filter.Bar(), err
}

// FilterCriteria is the filter bar's current selection.
func (s *OfferService) FilterCriteria() Criteria {
	offers := s.Offers()
	s.fmu.Lock()
	defer s.fmu.Unlock()
	s.filter.SetOffers(offers)
	return s.filter.Criteria()
}

// Close stops the selection pulse and drops the map handle.
func (s *OfferService) Close() { s.binding.Close() }
