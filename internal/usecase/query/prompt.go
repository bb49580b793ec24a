package query

import (
	"strings"

	domquery "github.com/pokelab/pokedex/internal/domain/query"
)

// promptTemplate constrains the model to the retrieved context and tells it
// to admit ignorance when the context does not cover the question.
const promptTemplate = `You are an assistant for question-answering tasks.
Use the following context to answer the question.
If you don't know the answer, just say that you don't know.
Use five sentences maximum and keep the answer concise.

Question: %QUESTION%
Context: %CONTEXT%
Answer:`

// buildPrompt embeds the retrieved snippets and the verbatim question into
// the generation prompt.
func buildPrompt(question string, context []domquery.ContextItem) string {
	snippets := make([]string, len(context))
	for i := range context {
		snippets[i] = context[i].Content()
	}

	prompt := strings.ReplaceAll(promptTemplate, "%QUESTION%", question)
	return strings.ReplaceAll(prompt, "%CONTEXT%", strings.Join(snippets, "\n\n"))
}
