package pokedex

import (
	domquery "github.com/pokelab/pokedex/internal/domain/query"
)

// Answer is the result of a query.
type Answer struct {
	Answer     string
	SearchType string
	Context    []Snippet
}

// Snippet is one retrieved document behind a generated answer.
type Snippet struct {
	Content  string
	Metadata map[string]string
	Score    float64
}

func answerFromResult(result domquery.Result) Answer {
	a := Answer{
		Answer:     result.Answer(),
		SearchType: string(result.SearchType()),
	}
	for _, item := range result.Context() {
		a.Context = append(a.Context, Snippet{
			Content:  item.Content(),
			Metadata: item.Metadata(),
			Score:    item.Score(),
		})
	}
	return a
}
