package llmcall

import (
	"context"
	"sort"
)

// Stats summarizes a set of calls.
type Stats struct {
	Count        int `json:"count" yaml:"count"`
	SuccessCount int `json:"success_count" yaml:"success_count"`
	ErrorCount   int `json:"error_count" yaml:"error_count"`
	Retried      int `json:"retried" yaml:"retried"` // Calls that needed more than one attempt

	// Latency percentiles in milliseconds
	LatencyP50 float64 `json:"latency_p50_ms" yaml:"latency_p50_ms"`
	LatencyP95 float64 `json:"latency_p95_ms" yaml:"latency_p95_ms"`
	LatencyAvg float64 `json:"latency_avg_ms" yaml:"latency_avg_ms"`
	LatencyMax float64 `json:"latency_max_ms" yaml:"latency_max_ms"`

	TotalInputTokens  int     `json:"total_input_tokens" yaml:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens" yaml:"total_output_tokens"`
	AvgInputTokens    float64 `json:"avg_input_tokens" yaml:"avg_input_tokens"`
	AvgOutputTokens   float64 `json:"avg_output_tokens" yaml:"avg_output_tokens"`
}

// Summary is the overall stats plus a per prompt key breakdown.
type Summary struct {
	Stats    `yaml:",inline"`
	ByPrompt map[string]*Stats `json:"by_prompt,omitempty" yaml:"by_prompt,omitempty"`
}

// Summarize returns stats for the calls matching the filter.
func (s *Store) Summarize(ctx context.Context, filter QueryFilter) (*Summary, error) {
	calls, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return Summarize(calls), nil
}

// Summarize computes stats over calls, overall and grouped by prompt key.
func Summarize(calls []Call) *Summary {
	byPrompt := make(map[string][]Call)
	for _, c := range calls {
		byPrompt[c.PromptKey] = append(byPrompt[c.PromptKey], c)
	}

	sum := &Summary{Stats: *computeStats(calls)}
	if len(byPrompt) > 0 {
		sum.ByPrompt = make(map[string]*Stats, len(byPrompt))
		for key, group := range byPrompt {
			sum.ByPrompt[key] = computeStats(group)
		}
	}
	return sum
}

func computeStats(calls []Call) *Stats {
	stats := &Stats{Count: len(calls)}
	if len(calls) == 0 {
		return stats
	}

	latencies := make([]float64, 0, len(calls))
	for _, c := range calls {
		if c.Success {
			stats.SuccessCount++
		} else {
			stats.ErrorCount++
		}
		if c.Attempts > 1 {
			stats.Retried++
		}
		stats.TotalInputTokens += c.InputTokens
		stats.TotalOutputTokens += c.OutputTokens
		latencies = append(latencies, float64(c.LatencyMs))
	}

	count := float64(stats.Count)
	stats.AvgInputTokens = float64(stats.TotalInputTokens) / count
	stats.AvgOutputTokens = float64(stats.TotalOutputTokens) / count

	sort.Float64s(latencies)
	var total float64
	for _, l := range latencies {
		total += l
	}
	stats.LatencyAvg = total / float64(len(latencies))
	stats.LatencyMax = latencies[len(latencies)-1]
	stats.LatencyP50 = percentile(latencies, 50)
	stats.LatencyP95 = percentile(latencies, 95)

	return stats
}

// percentile interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	idx := (p / 100.0) * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
