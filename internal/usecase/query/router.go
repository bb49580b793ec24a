package query

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/pokelab/pokedex/internal/catalog"
	domquery "github.com/pokelab/pokedex/internal/domain/query"
)

// Rule binds a catalog dimension to the phrases that signal it in a
// question. The matching policy lives here as data, not control flow:
// higher priority wins, table order breaks priority ties.
type Rule struct {
	Dimension string
	Triggers  []string
	Priority  int
}

// defaultRules is the documented categorical-match precedence: status flags
// beat type matches, which beat habitat and color. Within one dimension the
// longest matching tag wins, ties alphabetical.
var defaultRules = []Rule{
	{Dimension: catalog.DimStatus, Triggers: []string{"legendary", "mythical", "baby", "status"}, Priority: 30},
	{Dimension: catalog.DimType, Triggers: []string{"type", "types"}, Priority: 20},
	{Dimension: catalog.DimHabitat, Triggers: []string{"habitat", "habitats", "live", "lives", "living", "found"}, Priority: 10},
	{Dimension: catalog.DimColor, Triggers: []string{"color", "colors", "colour", "colored"}, Priority: 10},
	{Dimension: catalog.DimEvolution, Triggers: []string{"evolve", "evolves", "evolved", "evolution", "evolutions"}, Priority: 10},
}

// listTriggers signal enumeration intent regardless of dimension.
var listTriggers = []string{"list", "which", "what are", "who are", "name all", "all the"}

// Decision is the tagged outcome of routing: either an exact categorical
// answer carrying the membership list, or a handoff to semantic search.
type Decision struct {
	searchType domquery.SearchType
	dimension  string
	tag        string
	names      []string
}

// SemanticDecision routes the question to vector similarity search.
func SemanticDecision() Decision {
	return Decision{searchType: domquery.Semantic}
}

// ExactDecision routes the question to a categorical membership answer.
func ExactDecision(dimension, tag string, names []string) Decision {
	return Decision{
		searchType: domquery.Exact,
		dimension:  dimension,
		tag:        tag,
		names:      names,
	}
}

// IsExact reports whether the decision carries a categorical answer.
func (d *Decision) IsExact() bool { return d.searchType == domquery.Exact }

// Dimension returns the matched dimension, empty for semantic decisions.
func (d *Decision) Dimension() string { return d.dimension }

// Tag returns the matched tag, empty for semantic decisions.
func (d *Decision) Tag() string { return d.tag }

// Names returns the membership list, nil for semantic decisions.
func (d *Decision) Names() []string { return d.names }

// Answer synthesizes the list answer for an exact decision.
func (d *Decision) Answer() string {
	joined := strings.Join(d.names, ", ")
	switch d.dimension {
	case catalog.DimStatus:
		return fmt.Sprintf("The %s Pokémon are: %s.", d.tag, joined)
	case catalog.DimType:
		return fmt.Sprintf("The %s type Pokémon are: %s.", d.tag, joined)
	case catalog.DimHabitat:
		return fmt.Sprintf("The Pokémon found in the %s habitat are: %s.", d.tag, joined)
	case catalog.DimColor:
		return fmt.Sprintf("The %s colored Pokémon are: %s.", d.tag, joined)
	case catalog.DimEvolution:
		return fmt.Sprintf("The Pokémon that evolve from %s are: %s.", d.tag, joined)
	default:
		return fmt.Sprintf("The %s %s Pokémon are: %s.", d.dimension, d.tag, joined)
	}
}

// Router classifies questions as categorical or semantic against a catalog's
// tag vocabulary.
type Router struct {
	rules []Rule
}

// NewRouter creates a router with the default rule table.
func NewRouter() *Router {
	return NewRouterWithRules(defaultRules)
}

// NewRouterWithRules creates a router from an explicit rule table, sorted by
// descending priority with stable table order inside each priority band.
func NewRouterWithRules(rules []Rule) *Router {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &Router{rules: sorted}
}

// Route decides the retrieval path for a question. A rule fires when one of
// its trigger phrases (or a generic list trigger) appears in the normalized
// question together with a tag from the rule's dimension. An empty
// membership list is a routing signal, not a failure: the rule is skipped
// and the question falls through, ultimately to semantic search.
func (r *Router) Route(question string, cat *catalog.Catalog) Decision {
	norm := normalizeQuestion(question)
	if norm == "" || cat == nil {
		return SemanticDecision()
	}

	wantsList := containsAnyPhrase(norm, listTriggers)

	for _, rule := range r.rules {
		if !containsAnyPhrase(norm, rule.Triggers) && !wantsList {
			continue
		}
		tag, ok := matchTag(norm, cat.Tags(rule.Dimension))
		if !ok {
			continue
		}
		names := cat.Lookup(rule.Dimension, tag)
		if len(names) == 0 {
			continue
		}
		return ExactDecision(rule.Dimension, tag, names)
	}
	return SemanticDecision()
}

// matchTag finds the catalog tag appearing verbatim in the normalized
// question. The longest tag wins; ties go alphabetical. Tags are matched on
// word boundaries, so "ice" does not fire inside "nice".
func matchTag(norm string, tags []string) (string, bool) {
	best := ""
	for _, tag := range tags {
		normTag := normalizeQuestion(tag)
		if normTag == "" || !containsPhrase(norm, normTag) {
			continue
		}
		if len(normTag) > len(best) || (len(normTag) == len(best) && normTag < best) {
			best = normTag
		}
	}
	return best, best != ""
}

// normalizeQuestion case-folds, strips punctuation, and collapses whitespace.
func normalizeQuestion(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func containsAnyPhrase(norm string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(norm, p) {
			return true
		}
	}
	return false
}

func containsPhrase(norm, phrase string) bool {
	return strings.Contains(" "+norm+" ", " "+phrase+" ")
}
