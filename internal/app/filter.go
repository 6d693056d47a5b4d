package app

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"campmap/internal/domain"
)

// AnyCity is the wildcard city selection.
const AnyCity = "any"

type SortField string

const (
	SortPrice SortField = "price"
	SortDate  SortField = "date"
	SortName  SortField = "name"
)

func (f SortField) Valid() bool {
	return f == SortPrice || f == SortDate || f == SortName
}

// Criteria is the plain input of the filter/sort engine.
type Criteria struct {
	Types     []domain.OfferType `json:"types"`
	City      string             `json:"city"`
	DateFrom  string             `json:"from,omitempty"`
	DateTo    string             `json:"to,omitempty"`
	Query     string             `json:"q,omitempty"`
	SortField SortField          `json:"sort"`
	Ascending bool               `json:"asc"`
}

// DefaultCriteria selects everything, sorted by start date ascending.
func DefaultCriteria() Criteria {
	return Criteria{
		Types:     slices.Clone(domain.AllTypes),
		City:      AnyCity,
		SortField: SortDate,
		Ascending: true,
	}
}

// Engine filters and sorts offers. Name ordering follows the collation of
// lang. The zero value collates with language.Polish.
type Engine struct {
	lang language.Tag
}

func NewEngine(lang language.Tag) Engine { return Engine{lang: lang} }

// Apply is Engine{}.Apply.
func Apply(offers []domain.Offer, c Criteria) []domain.Offer {
	return Engine{}.Apply(offers, c)
}

// Apply returns the offers matching c in c's order. offers is not modified,
// and equal keys keep their input order.
func (e Engine) Apply(offers []domain.Offer, c Criteria) []domain.Offer {
	q := strings.ToLower(c.Query)
	out := make([]domain.Offer, 0, len(offers))
	for _, p := range offers {
		if matches(p, c, q) {
			out = append(out, p)
		}
	}

	lang := e.lang
	if lang == language.Und {
		lang = language.Polish
	}
	// collate.Collator is not safe for concurrent use.
	col := collate.New(lang)

	slices.SortStableFunc(out, func(a, b domain.Offer) int {
		var r int
		switch c.SortField {
		case SortPrice:
			r = cmp.Compare(a.Price, b.Price)
		case SortName:
			r = col.CompareString(a.Title, b.Title)
		case SortDate:
			r = strings.Compare(a.Start, b.Start)
		}
		if !c.Ascending {
			r = -r
		}
		return r
	})
	return out
}

func matches(p domain.Offer, c Criteria, q string) bool {
	if !slices.Contains(c.Types, p.Type) {
		return false
	}
	if c.City != "" && c.City != AnyCity && c.City != p.City {
		return false
	}
	if c.DateFrom != "" && p.End < c.DateFrom {
		return false
	}
	if c.DateTo != "" && p.Start > c.DateTo {
		return false
	}
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.City), q) ||
		strings.Contains(strings.ToLower(p.Address), q)
}

// Cities returns the wildcard followed by each distinct city in list order.
func Cities(offers []domain.Offer) []string {
	out := []string{AnyCity}
	seen := map[string]bool{}
	for _, p := range offers {
		if !seen[p.City] {
			seen[p.City] = true
			out = append(out, p.City)
		}
	}
	return out
}

// Panel is the one dropdown currently open in the filter bar.
type Panel int

const (
	PanelNone Panel = iota
	PanelCity
	PanelDate
	PanelSort
)

var panelNames = [...]string{PanelNone: "none", PanelCity: "city", PanelDate: "date", PanelSort: "sort"}

func (p Panel) String() string {
	if p < 0 || int(p) >= len(panelNames) {
		return panelNames[PanelNone]
	}
	return panelNames[p]
}

func (p Panel) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Panel) UnmarshalText(b []byte) error {
	for i, n := range panelNames {
		if n == string(b) {
			*p = Panel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown panel %q", b)
}

// FilterState is the interactive filter bar. It keeps the selected types
// non-empty and the city drawn from the current offer list.
type FilterState struct {
	selected  map[domain.OfferType]bool
	cities    []string
	city      string
	dateFrom  string
	dateTo    string
	query     string
	sortField SortField
	ascending bool
	open      Panel
}

func NewFilterState(offers []domain.Offer) *FilterState {
	s := &FilterState{
		selected:  map[domain.OfferType]bool{},
		city:      AnyCity,
		sortField: SortDate,
		ascending: true,
	}
	for _, t := range domain.AllTypes {
		s.selected[t] = true
	}
	s.SetOffers(offers)
	return s
}

// SetOffers refreshes the city options. A city no longer offered falls back
// to the wildcard.
func (s *FilterState) SetOffers(offers []domain.Offer) {
	s.cities = Cities(offers)
	if !slices.Contains(s.cities, s.city) {
		s.city = AnyCity
	}
}

// ToggleType flips t. Removing the last selected type is rejected and
// reported as false.
func (s *FilterState) ToggleType(t domain.OfferType) bool {
	if !t.Valid() {
		return false
	}
	if !s.selected[t] {
		s.selected[t] = true
		return true
	}
	if len(s.selected) == 1 {
		return false
	}
	delete(s.selected, t)
	return true
}

func (s *FilterState) Selected(t domain.OfferType) bool { return s.selected[t] }

func (s *FilterState) Cities() []string { return slices.Clone(s.cities) }

func (s *FilterState) City() string { return s.city }

// SetCity picks one of Cities() and closes the city panel. Unknown values
// are rejected.
func (s *FilterState) SetCity(city string) bool {
	if !slices.Contains(s.cities, city) {
		return false
	}
	s.city = city
	if s.open == PanelCity {
		s.open = PanelNone
	}
	return true
}

// SetDates sets the inclusive range; either bound may be empty.
func (s *FilterState) SetDates(from, to string) error {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return domain.ValidationError("dates must be YYYY-MM-DD")
		}
	}
	s.dateFrom, s.dateTo = from, to
	return nil
}

// ClearDates drops both bounds and closes the date panel.
func (s *FilterState) ClearDates() {
	s.dateFrom, s.dateTo = "", ""
	if s.open == PanelDate {
		s.open = PanelNone
	}
}

func (s *FilterState) SetQuery(q string) { s.query = q }

// SortBy changes the field and closes the sort panel; direction is kept.
func (s *FilterState) SortBy(f SortField) bool {
	if !f.Valid() {
		return false
	}
	s.sortField = f
	if s.open == PanelSort {
		s.open = PanelNone
	}
	return true
}

func (s *FilterState) ToggleDirection() { s.ascending = !s.ascending }

// Toggle opens p, closing any other panel, or closes p if it is open.
func (s *FilterState) Toggle(p Panel) {
	if s.open == p {
		s.open = PanelNone
		return
	}
	s.open = p
}

func (s *FilterState) CloseAll() { s.open = PanelNone }

func (s *FilterState) Open() Panel { return s.open }

// Criteria snapshots the state for Apply.
func (s *FilterState) Criteria() Criteria {
	types := make([]domain.OfferType, 0, len(s.selected))
	for _, t := range domain.AllTypes {
		if s.selected[t] {
			types = append(types, t)
		}
	}
	return Criteria{
		Types:     types,
		City:      s.city,
		DateFrom:  s.dateFrom,
		DateTo:    s.dateTo,
		Query:     s.query,
		SortField: s.sortField,
		Ascending: s.ascending,
	}
}

// FilterBar is what the filter bar renders.
type FilterBar struct {
	Types     []domain.OfferType `json:"types"`
	Cities    []string           `json:"cities"`
	City      string             `json:"city"`
	DateFrom  string             `json:"from,omitempty"`
	DateTo    string             `json:"to,omitempty"`
	Query     string             `json:"q,omitempty"`
	SortField SortField          `json:"sort"`
	Ascending bool               `json:"asc"`
	Open      Panel              `json:"open"`
}

func (s *FilterState) Bar() FilterBar {
	c := s.Criteria()
	return FilterBar{
		Types:     c.Types,
		Cities:    s.Cities(),
		City:      c.City,
		DateFrom:  c.DateFrom,
		DateTo:    c.DateTo,
		Query:     c.Query,
		SortField: c.SortField,
		Ascending: c.Ascending,
		Open:      s.open,
	}
}

// FilterOp names one filter bar interaction.
type FilterOp string

const (
	OpToggleType      FilterOp = "toggle-type"
	OpSetCity         FilterOp = "set-city"
	OpSetDates        FilterOp = "set-dates"
	OpClearDates      FilterOp = "clear-dates"
	OpSetQuery        FilterOp = "set-query"
	OpSortBy          FilterOp = "sort-by"
	OpToggleDirection FilterOp = "toggle-direction"
	OpTogglePanel     FilterOp = "toggle-panel"
	OpClosePanels     FilterOp = "close-panels"
)

// FilterAction is one interaction with its arguments; only the fields the
// op reads are used.
type FilterAction struct {
	Op    FilterOp         `json:"op" validate:"required,oneof=toggle-type set-city set-dates clear-dates set-query sort-by toggle-direction toggle-panel close-panels"`
	Type  domain.OfferType `json:"type,omitempty"`
	City  string           `json:"city,omitempty"`
	From  string           `json:"from,omitempty"`
	To    string           `json:"to,omitempty"`
	Query string           `json:"q,omitempty"`
	Sort  SortField        `json:"sort,omitempty"`
	Panel Panel            `json:"panel,omitempty"`
}

// Do applies a. Turning off the last selected type is a silent no-op.
func (s *FilterState) Do(a FilterAction) error {
	switch a.Op {
	case OpToggleType:
		if !a.Type.Valid() {
			return domain.ValidationError("type must be camp or day-camp")
		}
		s.ToggleType(a.Type)
	case OpSetCity:
		if !s.SetCity(a.City) {
			return domain.ValidationError("unknown city")
		}
	case OpSetDates:
		return s.SetDates(a.From, a.To)
	case OpClearDates:
		s.ClearDates()
	case OpSetQuery:
		s.SetQuery(a.Query)
	case OpSortBy:
		if !s.SortBy(a.Sort) {
			return domain.ValidationError("sort must be one of price, date, name")
		}
	case OpToggleDirection:
		s.ToggleDirection()
	case OpTogglePanel:
		s.Toggle(a.Panel)
	case OpClosePanels:
		s.CloseAll()
	default:
		return domain.ValidationError("unknown filter op")
	}
	return nil
}

// FilterQuery is a one-shot filter given as request parameters.
type FilterQuery struct {
	Types      []domain.OfferType
	City       string
	From       string
	To         string
	Query      string
	Sort       SortField
	Descending bool
}

// CriteriaFrom reaches q from a fresh filter bar over offers: unlisted types
// are switched off and an unknown city leaves the wildcard in place.
func CriteriaFrom(offers []domain.Offer, q FilterQuery) (Criteria, error) {
	s := NewFilterState(offers)
	if len(q.Types) > 0 {
		for _, t := range domain.AllTypes {
			if !slices.Contains(q.Types, t) {
				s.ToggleType(t)
			}
		}
	}
	if q.City != "" {
		s.SetCity(q.City)
	}
	if err := s.SetDates(q.From, q.To); err != nil {
		return Criteria{}, err
	}
	s.SetQuery(q.Query)
	if q.Sort != "" && !s.SortBy(q.Sort) {
		return Criteria{}, domain.ValidationError("sort must be one of price, date, name")
	}
	if q.Descending {
		s.ToggleDirection()
	}
	return s.Criteria(), nil
}
