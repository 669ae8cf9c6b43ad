package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("embedded catalog failed to load: %v", err)
	}

	item, ok := c.Lookup("h1")
	if !ok {
		t.Fatal("expected item h1 in embedded catalog")
	}
	if item.Title != "Hamburguesa clasica" || item.Price != "Bs. 6" {
		t.Errorf("unexpected h1: %+v", item)
	}

	if _, ok := c.Lookup("H1"); !ok {
		t.Error("Lookup should be case-insensitive")
	}

	cat, ok := c.CategoryByShortcut("1")
	if !ok || cat.Key != "hamburguesas" {
		t.Errorf("expected shortcut 1 to map to hamburguesas, got %+v", cat)
	}
	if _, ok := c.CategoryByKey("postres"); !ok {
		t.Error("expected postres category")
	}
	if len(c.Business.Schedule) != 3 {
		t.Errorf("expected three schedule groups, got %d", len(c.Business.Schedule))
	}
}

func TestHoursText(t *testing.T) {
	c := MustDefault()
	want := "Lunes a jueves 12:00 a 22:00. Viernes y sabado 12:00 a 23:00. Domingo 12:00 a 20:00."
	if got := c.HoursText(); got != want {
		t.Errorf("HoursText() = %q, want %q", got, want)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing business name",
			yaml: "categories:\n  - key: a\n    title: A\n    items:\n      - {id: a1, title: A1, price: Bs. 1}\n",
		},
		{
			name: "duplicate item id",
			yaml: "business: {name: X}\ncategories:\n  - key: a\n    title: A\n    items:\n      - {id: a1, title: A1, price: Bs. 1}\n      - {id: A1, title: A2, price: Bs. 2}\n",
		},
		{
			name: "bad schedule window",
			yaml: "business:\n  name: X\n  schedule:\n    - {label: L, days: [monday], open: \"22:00\", close: \"12:00\"}\ncategories:\n  - key: a\n    title: A\n    items:\n      - {id: a1, title: A1, price: Bs. 1}\n",
		},
		{
			name: "unknown weekday",
			yaml: "business:\n  name: X\n  schedule:\n    - {label: L, days: [funday], open: \"10:00\", close: \"12:00\"}\ncategories:\n  - key: a\n    title: A\n    items:\n      - {id: a1, title: A1, price: Bs. 1}\n",
		},
		{
			name: "no categories",
			yaml: "business: {name: X}\n",
		},
		{
			name: "not yaml",
			yaml: "business: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.yaml")
	data := "business: {name: Test}\ncategories:\n  - key: cafe\n    title: Cafe\n    shortcut: \"1\"\n    items:\n      - {id: c1, title: Marron, price: Bs. 1}\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := c.Lookup("c1"); !ok {
		t.Error("expected item c1")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
