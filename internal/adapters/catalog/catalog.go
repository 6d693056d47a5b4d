// Package catalog supplies the offer list from a YAML file or the built-in
// demo set.
package catalog

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"campmap/internal/domain"
)

type file struct {
	Offers []domain.Offer `yaml:"offers" validate:"dive"`
}

// Catalog reads offers on every call so edits to the file start a new
// resolution pass. An empty path serves Demo.
type Catalog struct {
	path string
	v    *validator.Validate
}

func New(path string) *Catalog {
	return &Catalog{path: path, v: validator.New()}
}

func (c *Catalog) Offers(ctx context.Context) ([]domain.Offer, error) {
	if c.path == "" {
		return slices.Clone(Demo), nil
	}
	b, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read offers: %w", err)
	}
	return c.Parse(b)
}

// Parse decodes and validates a YAML document with a top-level offers list.
func (c *Catalog) Parse(b []byte) ([]domain.Offer, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode offers: %w", err)
	}
	if err := c.v.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid offers: %w", err)
	}
	seen := make(map[string]bool, len(f.Offers))
	for _, o := range f.Offers {
		if seen[o.ID] {
			return nil, fmt.Errorf("invalid offers: duplicate id %q", o.ID)
		}
		seen[o.ID] = true
		if o.Start > o.End {
			return nil, fmt.Errorf("invalid offers: %s starts after it ends", o.ID)
		}
	}
	return f.Offers, nil
}

// Demo is served when no offers file is configured.
var Demo = []domain.Offer{
	{
		ID:      "obo-waw",
		Title:   "Adapt Camp Halloween\nWeekendowy obóz z rodzicem",
		City:    "Wielkopolskie",
		Start:   "2025-10-18",
		End:     "2025-10-19",
		Address: "ul. Klasztorna 4, 62-563 Licheń Stary, Polska",
		Type:    domain.TypeCamp,
		Price:   1090,
		Image:   "/demo/obozy1.jpg",
		Desc:    "Wyjątkowy weekendowy obóz dla dzieci i ich rodziców – buduje pewność siebie i samodzielność w obozowej atmosferze.",
	},
	{
		ID:      "pol-waw",
		Title:   "Półkolonie Warszawa – Mokotów",
		City:    "Mazowieckie",
		Start:   "2025-07-01",
		End:     "2025-07-05",
		Address: "Mokotów, Warszawa, Polska",
		Type:    domain.TypeDayCamp,
		Price:   1190,
		Image:   "/demo/polkolonie1.jpg",
		Desc:    "Aktywne półkolonie w sercu Mokotowa: boiska, gry zespołowe i świetna kadra.",
	},
	{
		ID:      "obo-gda",
		Title:   "Obóz Gdańsk – Oliwa",
		City:    "Pomorskie",
		Start:   "2025-07-10",
		End:     "2025-07-16",
		Address: "Oliwa, Gdańsk, Polska",
		Type:    domain.TypeCamp,
		Price:   1990,
		Image:   "/demo/obozy2.jpg",
		Desc:    "Treningi nad morzem, integracja i zwiedzanie Trójmiasta – intensywny tydzień w super atmosferze.",
	},
	{
		ID:      "pol-poz",
		Title:   "Półkolonie Poznań – Winogrady",
		City:    "Wielkopolskie",
		Start:   "2025-07-18",
		End:     "2025-07-22",
		Address: "Winogrady, Poznań, Polska",
		Type:    domain.TypeDayCamp,
		Price:   990,
		Image:   "/demo/polkolonie2.jpg",
		Desc:    "Dużo ruchu, zabawy i zajęcia tematyczne – idealne na aktywne wakacje w mieście.",
	},
}
