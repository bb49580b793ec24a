package eval

import (
	"math"
	"sort"
)

// Score bucket boundaries, shared with dashboards.
const (
	bucketExcellent = 0.9
	bucketGood      = 0.7
	bucketMedium    = 0.5
)

// Example is one labeled score within a report ranking.
type Example struct {
	Label string
	Value float64
}

// ScoredExample pairs a batch item's label (usually the question) with its
// score record.
type ScoredExample struct {
	Label  string
	Scores Scores
}

// Summary holds descriptive statistics for one metric over a batch.
type Summary struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
	Median float64
}

// Buckets counts scores by quality band.
type Buckets struct {
	Excellent int // >= 0.9
	Good      int // 0.7 - 0.9
	Medium    int // 0.5 - 0.7
	Poor      int // < 0.5
}

// MetricReport is the derived view for one metric.
type MetricReport struct {
	Summary Summary
	Buckets Buckets
	Top     []Example
	Bottom  []Example
}

// Report aggregates a batch of score records per metric. topN bounds the
// top/bottom example lists; topN <= 0 omits them.
func Report(batch []ScoredExample, topN int) map[string]MetricReport {
	byMetric := make(map[string][]Example)
	for _, item := range batch {
		for metric, value := range item.Scores {
			byMetric[metric] = append(byMetric[metric], Example{Label: item.Label, Value: value})
		}
	}

	out := make(map[string]MetricReport, len(byMetric))
	for metric, examples := range byMetric {
		out[metric] = reportMetric(examples, topN)
	}
	return out
}

func reportMetric(examples []Example, topN int) MetricReport {
	values := make([]float64, len(examples))
	for i, e := range examples {
		values[i] = e.Value
	}

	r := MetricReport{Summary: summarize(values)}
	for _, v := range values {
		switch {
		case v >= bucketExcellent:
			r.Buckets.Excellent++
		case v >= bucketGood:
			r.Buckets.Good++
		case v >= bucketMedium:
			r.Buckets.Medium++
		default:
			r.Buckets.Poor++
		}
	}

	if topN > 0 {
		ranked := make([]Example, len(examples))
		copy(ranked, examples)
		// Ties break on label so rankings are stable across runs.
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].Value != ranked[j].Value {
				return ranked[i].Value > ranked[j].Value
			}
			return ranked[i].Label < ranked[j].Label
		})

		n := topN
		if n > len(ranked) {
			n = len(ranked)
		}
		r.Top = append(r.Top, ranked[:n]...)
		for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
			r.Bottom = append(r.Bottom, ranked[i])
		}
	}

	return r
}

func summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	if s.Count == 0 {
		return s
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	s.Mean = sum / float64(s.Count)

	variance := 0.0
	for _, v := range sorted {
		d := v - s.Mean
		variance += d * d
	}
	s.Std = math.Sqrt(variance / float64(s.Count))

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		s.Median = sorted[mid]
	} else {
		s.Median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return s
}
