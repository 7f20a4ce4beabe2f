package utils

import (
	"sync"

	"google.golang.org/genai"
)

// TokenStats accumulates token usage across every generate call made
// by the process.
type TokenStats struct {
	mu                    sync.RWMutex
	totalRequests         int
	totalInputTokens      int64
	totalOutputTokens     int64
	totalTokens           int64
	requestsWithGrounding int
}

// TokenStatsSnapshot is the JSON view served by /api/stats.
type TokenStatsSnapshot struct {
	TotalRequests         int     `json:"total_requests"`
	TotalInputTokens      int64   `json:"total_input_tokens"`
	TotalOutputTokens     int64   `json:"total_output_tokens"`
	TotalTokens           int64   `json:"total_tokens"`
	RequestsWithGrounding int     `json:"requests_with_grounding"`
	AverageInputTokens    float64 `json:"average_input_tokens"`
	AverageOutputTokens   float64 `json:"average_output_tokens"`
}

func (s *TokenStats) Record(md *genai.GenerateContentResponseUsageMetadata, withGrounding bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests++
	s.totalInputTokens += int64(md.PromptTokenCount)

	// CandidatesTokenCount can be zero when the response was cut
	// short; derive output from the totals in that case.
	output := int64(md.CandidatesTokenCount)
	if output == 0 && md.TotalTokenCount > md.PromptTokenCount {
		output = int64(md.TotalTokenCount - md.PromptTokenCount)
	}
	s.totalOutputTokens += output
	s.totalTokens += int64(md.TotalTokenCount)

	if withGrounding {
		s.requestsWithGrounding++
	}
}

func (s *TokenStats) Snapshot() TokenStatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := TokenStatsSnapshot{
		TotalRequests:         s.totalRequests,
		TotalInputTokens:      s.totalInputTokens,
		TotalOutputTokens:     s.totalOutputTokens,
		TotalTokens:           s.totalTokens,
		RequestsWithGrounding: s.requestsWithGrounding,
	}
	if s.totalRequests > 0 {
		snap.AverageInputTokens = float64(s.totalInputTokens) / float64(s.totalRequests)
		snap.AverageOutputTokens = float64(s.totalOutputTokens) / float64(s.totalRequests)
	}
	return snap
}
