// Package docs turns raw entity records into embeddable documents: one
// human-readable text block plus flat string metadata per record.
package docs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pokelab/pokedex/internal/domain"
)

// statLabels maps the corpus stat keys to readable labels, in render order.
var statLabels = []struct {
	key   string
	label string
}{
	{"hp", "HP"},
	{"attack", "Attack"},
	{"defense", "Defense"},
	{"special-attack", "Special Attack"},
	{"special-defense", "Special Defense"},
	{"speed", "Speed"},
}

// Format renders a record into a document. It is a pure transform: missing
// optional fields are omitted from the text, not replaced with placeholders.
// A record without a name is rejected: downstream retrieval keys on names.
func Format(r domain.EntityRecord) (domain.Document, error) {
	if strings.TrimSpace(r.Name) == "" {
		return domain.Document{}, fmt.Errorf("%w: record %d has no name", domain.ErrInvalidRecord, r.ID)
	}

	var b strings.Builder
	b.WriteString(r.Name)
	if r.BaseForm != "" && r.BaseForm != r.Name {
		fmt.Fprintf(&b, " (a form of %s)", r.BaseForm)
	}

	if len(r.Types) > 0 {
		fmt.Fprintf(&b, " is a %s type Pokémon.", joinAnd(r.Types))
	} else {
		b.WriteString(" is a Pokémon.")
	}

	if r.Legendary {
		b.WriteString(" It is a legendary Pokémon.")
	}
	if r.Mythical {
		b.WriteString(" It is a mythical Pokémon.")
	}
	if r.Baby {
		b.WriteString(" It is a baby Pokémon.")
	}

	if len(r.Abilities) > 0 {
		fmt.Fprintf(&b, " Its abilities are: %s.", strings.Join(r.Abilities, ", "))
	}

	if len(r.Stats) > 0 {
		fmt.Fprintf(&b, " Its base stats are: %s.", renderStats(r.Stats))
	}

	if r.Habitat != "" {
		fmt.Fprintf(&b, " Its habitat is %s.", r.Habitat)
	}
	if r.Color != "" {
		fmt.Fprintf(&b, " Its color is %s.", r.Color)
	}

	if desc := strings.TrimSpace(r.Description); desc != "" {
		fmt.Fprintf(&b, " Description: %s", desc)
	}

	return domain.Document{
		ID:       r.Name,
		Content:  b.String(),
		Metadata: buildMetadata(r),
	}, nil
}

// FormatAll formats a batch, failing on the first invalid record.
func FormatAll(records []domain.EntityRecord) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(records))
	for _, r := range records {
		doc, err := Format(r)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// buildMetadata flattens every categorical field to a scalar string.
// List fields are comma-joined; stats become a JSON string.
func buildMetadata(r domain.EntityRecord) map[string]string {
	source := r.Source
	if source == "" {
		source = domain.SourcePokeAPI
	}

	md := map[string]string{
		"source": source,
		"name":   r.Name,
	}
	if r.BaseForm != "" {
		md["base_form"] = r.BaseForm
	}
	if len(r.Types) > 0 {
		md["types"] = strings.Join(r.Types, ", ")
	}
	if len(r.Abilities) > 0 {
		md["abilities"] = strings.Join(r.Abilities, ", ")
	}
	if len(r.Stats) > 0 {
		if data, err := json.Marshal(r.Stats); err == nil {
			md["stats"] = string(data)
		}
	}
	if r.Habitat != "" {
		md["habitat"] = r.Habitat
	}
	if r.Color != "" {
		md["color"] = r.Color
	}
	if r.Legendary {
		md["legendary"] = "true"
	}
	if r.Mythical {
		md["mythical"] = "true"
	}
	if r.Baby {
		md["baby"] = "true"
	}
	return md
}

// renderStats renders known stats in canonical order, then any extras sorted
// by key so output is deterministic.
func renderStats(stats map[string]int) string {
	parts := make([]string, 0, len(stats))
	seen := make(map[string]bool, len(stats))

	for _, s := range statLabels {
		if v, ok := stats[s.key]; ok {
			parts = append(parts, s.label+": "+strconv.Itoa(v))
			seen[s.key] = true
		}
	}

	extras := make([]string, 0)
	for k := range stats {
		if !seen[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		parts = append(parts, k+": "+strconv.Itoa(stats[k]))
	}

	return strings.Join(parts, ", ")
}

// joinAnd joins values with commas and a final "and".
func joinAnd(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	case 2:
		return values[0] + " and " + values[1]
	default:
		return strings.Join(values[:len(values)-1], ", ") + " and " + values[len(values)-1]
	}
}
