// Package catalog holds the static list of playable categories.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/playperu/tahaddi/internal/trivia"
)

//go:embed categories.yaml
var defaultCatalog []byte

var (
	ErrUnknownCategory   = errors.New("unknown category")
	ErrDuplicateCategory = errors.New("duplicate category")
)

type entry struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Group    string `mapstructure:"group"`
	ImageURL string `mapstructure:"image_url"`
}

type Catalog struct {
	categories []trivia.Category
	byID       map[string]int
}

// Load reads the catalog from path, or the embedded default when path is
// empty. The file format follows the extension (yaml, json, toml).
func Load(path string) (*Catalog, error) {
	v := viper.New()
	if path == "" {
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewReader(defaultCatalog)); err != nil {
			return nil, fmt.Errorf("reading embedded catalog: %w", err)
		}
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading catalog %s: %w", path, err)
		}
	}

	var entries []entry
	if err := v.UnmarshalKey("categories", &entries); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	cats := make([]trivia.Category, len(entries))
	for i, e := range entries {
		cats[i] = trivia.Category{ID: e.ID, Name: e.Name, Group: e.Group, ImageURL: e.ImageURL}
	}
	return New(cats)
}

// New validates categories and builds a catalog from them.
func New(categories []trivia.Category) (*Catalog, error) {
	if len(categories) < trivia.CategoriesPerBoard {
		return nil, fmt.Errorf("catalog has %d categories, need at least %d", len(categories), trivia.CategoriesPerBoard)
	}
	c := &Catalog{
		categories: append([]trivia.Category(nil), categories...),
		byID:       make(map[string]int, len(categories)),
	}
	names := make(map[string]bool, len(categories))
	for i, cat := range c.categories {
		if cat.ID == "" || cat.Name == "" {
			return nil, fmt.Errorf("category %d: id and name are required", i)
		}
		if _, ok := c.byID[cat.ID]; ok {
			return nil, fmt.Errorf("%w: id %s", ErrDuplicateCategory, cat.ID)
		}
		if names[cat.Name] {
			return nil, fmt.Errorf("%w: name %s", ErrDuplicateCategory, cat.Name)
		}
		c.byID[cat.ID] = i
		names[cat.Name] = true
	}
	return c, nil
}

func (c *Catalog) All() []trivia.Category {
	return append([]trivia.Category(nil), c.categories...)
}

func (c *Catalog) Get(id string) (trivia.Category, bool) {
	i, ok := c.byID[id]
	if !ok {
		return trivia.Category{}, false
	}
	return c.categories[i], true
}

// Groups returns group labels in order of first appearance.
func (c *Catalog) Groups() []string {
	var groups []string
	seen := make(map[string]bool)
	for _, cat := range c.categories {
		if !seen[cat.Group] {
			seen[cat.Group] = true
			groups = append(groups, cat.Group)
		}
	}
	return groups
}

// Resolve maps ids to categories, keeping the caller's order.
func (c *Catalog) Resolve(ids []string) ([]trivia.Category, error) {
	out := make([]trivia.Category, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		cat, ok := c.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, id)
		}
		seen[id] = true
		out = append(out, cat)
	}
	return out, nil
}

type Availability struct {
	trivia.Category
	RemainingRounds int  `json:"remainingRounds"`
	Available       bool `json:"available"`
}

// Availability joins the catalog with remaining rounds keyed by category
// name. Categories missing from rounds have none left.
func (c *Catalog) Availability(rounds map[string]int) []Availability {
	out := make([]Availability, len(c.categories))
	for i, cat := range c.categories {
		n := rounds[cat.Name]
		out[i] = Availability{Category: cat, RemainingRounds: n, Available: n > 0}
	}
	return out
}
