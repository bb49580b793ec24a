// Package query holds the value types of the question-answering path.
package query

// SearchType identifies which retrieval path produced a result.
type SearchType string

// Retrieval path constants.
const (
	// Exact answers come from category index membership, no generation involved.
	Exact SearchType = "exact"
	// Semantic answers come from vector similarity search plus generation.
	Semantic SearchType = "semantic"
)

// IsValid checks if the search type is one of the supported values.
func (t SearchType) IsValid() bool {
	return t == Exact || t == Semantic
}

// ContextItem is a retrieved snippet with its provenance metadata.
type ContextItem struct {
	content  string
	metadata map[string]string
	score    float64
}

// NewContextItem creates a context item.
func NewContextItem(content string, metadata map[string]string, score float64) ContextItem {
	return ContextItem{content: content, metadata: metadata, score: score}
}

// Content returns the snippet text.
func (c *ContextItem) Content() string { return c.content }

// Metadata returns the flat provenance metadata. Empty for the exact path.
func (c *ContextItem) Metadata() map[string]string { return c.metadata }

// Score returns the retrieval similarity score, 0 for the exact path.
func (c *ContextItem) Score() float64 { return c.score }

// Result is one answered question. Created fresh per query, never persisted.
type Result struct {
	answer     string
	context    []ContextItem
	searchType SearchType
}

// NewResult creates a query result.
func NewResult(answer string, context []ContextItem, searchType SearchType) Result {
	return Result{answer: answer, context: context, searchType: searchType}
}

// Answer returns the answer text.
func (r *Result) Answer() string { return r.answer }

// Context returns the retrieved context items.
func (r *Result) Context() []ContextItem { return r.context }

// SearchType returns the retrieval path that produced the answer.
func (r *Result) SearchType() SearchType { return r.searchType }
