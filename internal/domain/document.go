package domain

// Document is a formatted text block with flat scalar metadata, ready for
// embedding. Metadata values must be plain strings: the vector store backends
// reject nested structures.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}
