package domain

// OfferType is the closed set of offer kinds shown on the map.
type OfferType string

const (
	TypeCamp    OfferType = "camp"
	TypeDayCamp OfferType = "day-camp"
)

// AllTypes lists every OfferType in display order.
var AllTypes = []OfferType{TypeCamp, TypeDayCamp}

func (t OfferType) Valid() bool {
	return t == TypeCamp || t == TypeDayCamp
}

// Offer is one bookable listing. Start and End are YYYY-MM-DD so plain
// string comparison orders them.
type Offer struct {
	ID      string    `json:"id" yaml:"id" validate:"required"`
	Title   string    `json:"title" yaml:"title" validate:"required"`
	City    string    `json:"city" yaml:"city" validate:"required"`
	Start   string    `json:"start" yaml:"start" validate:"required,datetime=2006-01-02"`
	End     string    `json:"end" yaml:"end" validate:"required,datetime=2006-01-02"`
	Address string    `json:"address" yaml:"address" validate:"required"`
	Type    OfferType `json:"type" yaml:"type" validate:"required,oneof=camp day-camp"`
	Price   float64   `json:"price" yaml:"price" validate:"gte=0"`
	Image   string    `json:"image" yaml:"image"`
	Desc    string    `json:"desc" yaml:"desc"`
}

// Coordinates is a resolved geocoding result for one address.
type Coordinates struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Formatted string  `json:"formatted,omitempty"`
}

func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
