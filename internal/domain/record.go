package domain

// Record provenance values.
const (
	SourcePokeAPI      = "pokeapi"
	SourceEncyclopedia = "encyclopedia"
)

// EntityRecord is one creature as loaded from the corpus. Categorical
// vocabularies (types, habitats, colors) are whatever the corpus carries;
// nothing here is a closed enum.
type EntityRecord struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	BaseForm    string         `json:"base_form,omitempty"`
	Types       []string       `json:"types,omitempty"`
	Abilities   []string       `json:"abilities,omitempty"`
	Stats       map[string]int `json:"stats,omitempty"`
	Legendary   bool           `json:"legendary,omitempty"`
	Mythical    bool           `json:"mythical,omitempty"`
	Baby        bool           `json:"baby,omitempty"`
	Habitat     string         `json:"habitat,omitempty"`
	Color       string         `json:"color,omitempty"`
	Description string         `json:"description,omitempty"`
	Source      string         `json:"source,omitempty"`
}

// EmbeddingResult is a vector plus provider token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
