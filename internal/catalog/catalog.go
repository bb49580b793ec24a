// Package catalog builds inverted membership indexes over categorical
// attributes of the corpus: dimension -> tag -> set of entity names.
// A catalog is built once per corpus load and is read-only afterwards.
package catalog

import (
	"sort"
	"strings"

	"github.com/pokelab/pokedex/internal/domain"
)

// Dimensions recognized by Build. The store itself is open: Add accepts any
// dimension name, so new dimensions extend the catalog without touching
// lookup behavior.
const (
	DimType      = "type"
	DimStatus    = "status"
	DimHabitat   = "habitat"
	DimColor     = "color"
	DimEvolution = "evolution"
)

// Status tags. The status dimension groups the boolean species flags under
// one index, matching the on-disk status index shape.
const (
	TagLegendary = "legendary"
	TagMythical  = "mythical"
	TagBaby      = "baby"
)

// Catalog is a dimension -> tag -> name-set store.
type Catalog struct {
	dims map[string]map[string]map[string]struct{}
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{dims: make(map[string]map[string]map[string]struct{})}
}

// Build scans every record and indexes each recognized categorical dimension.
// Output is independent of record order: membership is a set property.
func Build(records []domain.EntityRecord) *Catalog {
	c := New()
	for _, r := range records {
		if r.Name == "" {
			continue
		}
		for _, t := range r.Types {
			c.Add(DimType, t, r.Name)
		}
		if r.Legendary {
			c.Add(DimStatus, TagLegendary, r.Name)
		}
		if r.Mythical {
			c.Add(DimStatus, TagMythical, r.Name)
		}
		if r.Baby {
			c.Add(DimStatus, TagBaby, r.Name)
		}
		if r.Habitat != "" {
			c.Add(DimHabitat, r.Habitat, r.Name)
		}
		if r.Color != "" {
			c.Add(DimColor, r.Color, r.Name)
		}
		// Evolution maps the base form to the names evolving from it.
		if r.BaseForm != "" {
			c.Add(DimEvolution, r.BaseForm, r.Name)
		}
	}
	return c
}

// Add records that name carries tag in the given dimension.
// Tags are case-folded; names keep their canonical casing.
func (c *Catalog) Add(dimension, tag, name string) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if dimension == "" || tag == "" || name == "" {
		return
	}
	tags, ok := c.dims[dimension]
	if !ok {
		tags = make(map[string]map[string]struct{})
		c.dims[dimension] = tags
	}
	names, ok := tags[tag]
	if !ok {
		names = make(map[string]struct{})
		tags[tag] = names
	}
	names[name] = struct{}{}
}

// Lookup returns the sorted names carrying tag in dimension. Unknown
// dimensions and tags yield an empty slice, never an error: absence is a
// routing signal, not a failure.
func (c *Catalog) Lookup(dimension, tag string) []string {
	tags, ok := c.dims[dimension]
	if !ok {
		return nil
	}
	names, ok := tags[strings.ToLower(tag)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Dimensions returns the sorted dimension names present in the catalog.
func (c *Catalog) Dimensions() []string {
	out := make([]string, 0, len(c.dims))
	for d := range c.dims {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Tags returns the sorted tag vocabulary of a dimension. Empty for unknown
// dimensions.
func (c *Catalog) Tags(dimension string) []string {
	tags, ok := c.dims[dimension]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Size returns the total number of (dimension, tag, name) memberships.
func (c *Catalog) Size() int {
	n := 0
	for _, tags := range c.dims {
		for _, names := range tags {
			n += len(names)
		}
	}
	return n
}
