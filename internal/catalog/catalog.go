// Package catalog loads the restaurant reference data: business details, the weekly
// opening schedule and the menu categories with their items.
//
// The data is read-only after loading and safe to share between goroutines.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned when catalog data fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ScheduleGroup is a set of weekdays sharing the same opening window.
type ScheduleGroup struct {
	Label string   `yaml:"label"`
	Days  []string `yaml:"days"`
	Open  string   `yaml:"open"`  // HH:MM
	Close string   `yaml:"close"` // HH:MM
}

// Weekdays returns the parsed days of the group.
func (g ScheduleGroup) Weekdays() ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(g.Days))
	for _, d := range g.Days {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidCatalog, d)
		}
		days = append(days, wd)
	}
	return days, nil
}

// Window returns the opening window as minutes since midnight.
func (g ScheduleGroup) Window() (openMin, closeMin int, err error) {
	if openMin, err = parseClock(g.Open); err != nil {
		return 0, 0, err
	}
	if closeMin, err = parseClock(g.Close); err != nil {
		return 0, 0, err
	}
	if openMin >= closeMin {
		return 0, 0, fmt.Errorf("%w: schedule %q opens at %s but closes at %s", ErrInvalidCatalog, g.Label, g.Open, g.Close)
	}
	return openMin, closeMin, nil
}

// Business holds the restaurant details used in replies.
type Business struct {
	Name     string          `yaml:"name"`
	Location string          `yaml:"location"`
	Timezone string          `yaml:"timezone"`
	Schedule []ScheduleGroup `yaml:"schedule"`
}

// Catalog is the immutable reference data of the restaurant.
type Catalog struct {
	Business   Business          `yaml:"business"`
	Categories []models.Category `yaml:"categories"`

	items map[string]models.Item
}

// Default parses the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustDefault parses the embedded catalog and panics if it is invalid.
// The embedded file is covered by tests, so a failure here is a build defect.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog override from path. An empty path returns the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		slog.Debug("Catalog.Load: no path configured, using embedded catalog")
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	slog.Info("Catalog.Load: catalog loaded", "path", path, "categories", len(c.Categories), "items", len(c.items))
	return c, nil
}

// Parse decodes and validates YAML catalog data.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: parse YAML: %v", ErrInvalidCatalog, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if strings.TrimSpace(c.Business.Name) == "" {
		return fmt.Errorf("%w: business name is required", ErrInvalidCatalog)
	}
	for _, g := range c.Business.Schedule {
		if _, err := g.Weekdays(); err != nil {
			return err
		}
		if _, _, err := g.Window(); err != nil {
			return err
		}
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrInvalidCatalog)
	}

	c.items = make(map[string]models.Item)
	shortcuts := make(map[string]string)
	for _, cat := range c.Categories {
		if cat.Key == "" || cat.Title == "" {
			return fmt.Errorf("%w: category key and title are required", ErrInvalidCatalog)
		}
		if cat.Shortcut != "" {
			if other, dup := shortcuts[cat.Shortcut]; dup {
				return fmt.Errorf("%w: shortcut %q used by %s and %s", ErrInvalidCatalog, cat.Shortcut, other, cat.Key)
			}
			shortcuts[cat.Shortcut] = cat.Key
		}
		if len(cat.Items) == 0 || len(cat.Items) > models.MaxListRows {
			return fmt.Errorf("%w: category %s must have between 1 and %d items", ErrInvalidCatalog, cat.Key, models.MaxListRows)
		}
		for _, item := range cat.Items {
			id := strings.ToLower(strings.TrimSpace(item.ID))
			if id == "" || item.Title == "" || item.Price == "" {
				return fmt.Errorf("%w: item in %s needs id, title and price", ErrInvalidCatalog, cat.Key)
			}
			if _, dup := c.items[id]; dup {
				return fmt.Errorf("%w: duplicate item id %q", ErrInvalidCatalog, item.ID)
			}
			c.items[id] = item
		}
	}
	return nil
}

// Lookup finds an item by id, case-insensitively.
func (c *Catalog) Lookup(id string) (models.Item, bool) {
	item, ok := c.items[strings.ToLower(strings.TrimSpace(id))]
	return item, ok
}

// CategoryByKey returns the category with the given key.
func (c *Catalog) CategoryByKey(key string) (models.Category, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return models.Category{}, false
}

// CategoryByShortcut returns the category reachable with a numeric main-menu option.
func (c *Catalog) CategoryByShortcut(shortcut string) (models.Category, bool) {
	for _, cat := range c.Categories {
		if cat.Shortcut != "" && cat.Shortcut == shortcut {
			return cat, true
		}
	}
	return models.Category{}, false
}

// HoursText renders the weekly schedule, e.g. "Lunes a jueves 12:00 a 22:00."
func (c *Catalog) HoursText() string {
	parts := make([]string, 0, len(c.Business.Schedule))
	for _, g := range c.Business.Schedule {
		parts = append(parts, fmt.Sprintf("%s %s a %s.", g.Label, g.Open, g.Close))
	}
	return strings.Join(parts, " ")
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid time %q, expected HH:MM", ErrInvalidCatalog, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
