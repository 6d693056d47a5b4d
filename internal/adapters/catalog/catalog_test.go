package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"campmap/internal/adapters/catalog"
	"campmap/internal/domain"
)

const validYAML = `
offers:
  - id: a
    title: Camp A
    city: Pomorskie
    start: "2025-07-10"
    end: "2025-07-16"
    address: Oliwa, Gdańsk
    type: camp
    price: 1990
  - id: b
    title: Day camp B
    city: Mazowieckie
    start: "2025-07-01"
    end: "2025-07-05"
    address: Mokotów, Warszawa
    type: day-camp
    price: 1190
`

func TestCatalog_EmptyPathServesDemo(t *testing.T) {
	got, err := catalog.New("").Offers(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(got) != len(catalog.Demo) {
		t.Fatalf("expected demo offers, got %d", len(got))
	}
	got[0].Title = "mutated"
	if catalog.Demo[0].Title == "mutated" {
		t.Fatalf("demo slice must not be shared")
	}
}

func TestCatalog_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offers.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := catalog.New(path).Offers(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(got) != 2 || got[1].Type != domain.TypeDayCamp || got[0].Price != 1990 {
		t.Fatalf("unexpected offers: %+v", got)
	}
}

func TestCatalog_Parse_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad type":      strings.Replace(validYAML, "type: camp", "type: hotel", 1),
		"bad date":      strings.Replace(validYAML, `"2025-07-10"`, `"10.07.2025"`, 1),
		"negative":      strings.Replace(validYAML, "price: 1990", "price: -1", 1),
		"start > end":   strings.Replace(validYAML, `end: "2025-07-16"`, `end: "2025-07-01"`, 1),
		"duplicate id":  strings.Replace(validYAML, "id: b", "id: a", 1),
		"missing field": strings.Replace(validYAML, "    address: Oliwa, Gdańsk\n", "", 1),
	}
	c := catalog.New("")
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := c.Parse([]byte(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
