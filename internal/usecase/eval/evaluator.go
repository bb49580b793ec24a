package eval

import "go.uber.org/zap"

// Evaluator scores (prediction, reference, context) triples.
type Evaluator struct {
	logger *zap.Logger
}

// New creates an evaluator.
func New(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger}
}

// Score computes the full metric family for one triple. Reference and
// context may each be empty: the affected metrics degrade to 0.0.
func (e *Evaluator) Score(prediction, reference string, context []string) Scores {
	overlap := ContextOverlap(prediction, context)

	return Scores{
		MetricExactMatch:       ExactMatch(prediction, reference),
		MetricTokenF1:          TokenF1(prediction, reference),
		MetricSequenceRatio:    SequenceRatio(prediction, reference),
		MetricContextOverlap:   overlap,
		MetricFaithfulness:     overlap,
		MetricContextPrecision: ContextPrecision(context, reference),
		MetricContextRecall:    ContextRecall(context, reference),
	}
}

// ScoreBatch scores aligned slices of predictions, references, and contexts.
// Slices shorter than predictions are treated as empty for the missing tail.
func (e *Evaluator) ScoreBatch(predictions, references []string, contexts [][]string) []Scores {
	out := make([]Scores, len(predictions))
	for i, pred := range predictions {
		var ref string
		if i < len(references) {
			ref = references[i]
		}
		var ctx []string
		if i < len(contexts) {
			ctx = contexts[i]
		}
		out[i] = e.Score(pred, ref, ctx)
	}

	e.logger.Debug("scored batch", zap.Int("count", len(out)))
	return out
}
