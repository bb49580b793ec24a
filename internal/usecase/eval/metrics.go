// Package eval scores generated answers against references and retrieved
// context with cheap lexical metrics, and aggregates batches of scores into
// reports. Every metric is total: degenerate input resolves to 0.0, never an
// error or NaN, so downstream means stay clean.
package eval

import (
	"strings"
	"unicode"
)

// Metric names as they appear in score records.
const (
	MetricExactMatch       = "exact_match"
	MetricTokenF1          = "f1_score"
	MetricContextOverlap   = "context_overlap"
	MetricFaithfulness     = "faithfulness"
	MetricSequenceRatio    = "sequence_ratio"
	MetricContextPrecision = "context_precision"
	MetricContextRecall    = "context_recall"
)

// Scores maps metric name to a value in [0,1]. Never mutated after creation.
type Scores map[string]float64

// Normalize lowercases, strips punctuation, and collapses whitespace.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(Normalize(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// ExactMatch is 1.0 iff the normalized strings are equal. Two strings that
// normalize to empty are equal, so punctuation-only pairs match.
func ExactMatch(prediction, reference string) float64 {
	if Normalize(prediction) == Normalize(reference) {
		return 1.0
	}
	return 0.0
}

// TokenF1 is the harmonic mean of token-set precision and recall.
// Symmetric in its arguments; 0.0 when either side has no tokens.
func TokenF1(prediction, reference string) float64 {
	pred := tokenSet(prediction)
	ref := tokenSet(reference)
	if len(pred) == 0 || len(ref) == 0 {
		return 0.0
	}

	common := 0
	for tok := range pred {
		if _, ok := ref[tok]; ok {
			common++
		}
	}
	if common == 0 {
		return 0.0
	}

	precision := float64(common) / float64(len(pred))
	recall := float64(common) / float64(len(ref))
	return 2 * precision * recall / (precision + recall)
}

// ContextOverlap is the fraction of prediction tokens that appear anywhere in
// the retrieved context. It stands in for faithfulness: words the context
// never mentions are candidate hallucinations.
func ContextOverlap(prediction string, context []string) float64 {
	pred := tokenSet(prediction)
	if len(pred) == 0 {
		return 0.0
	}

	ctx := tokenSet(strings.Join(context, " "))
	overlap := 0
	for tok := range pred {
		if _, ok := ctx[tok]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(pred))
}

// ContextPrecision is the fraction of context tokens found in the reference:
// how much of what was retrieved was actually needed.
func ContextPrecision(context []string, reference string) float64 {
	ctx := tokenSet(strings.Join(context, " "))
	if len(ctx) == 0 {
		return 0.0
	}

	ref := tokenSet(reference)
	hit := 0
	for tok := range ctx {
		if _, ok := ref[tok]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(ctx))
}

// ContextRecall is the fraction of reference tokens found in the context:
// how much of the needed information was retrieved.
func ContextRecall(context []string, reference string) float64 {
	ref := tokenSet(reference)
	if len(ref) == 0 {
		return 0.0
	}

	ctx := tokenSet(strings.Join(context, " "))
	hit := 0
	for tok := range ref {
		if _, ok := ctx[tok]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(ref))
}
