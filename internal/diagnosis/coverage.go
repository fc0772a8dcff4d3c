package diagnosis

import "sleep-diagnosis/internal/knowledge"

// DefaultLowCoverageThreshold is the rate, in percent, under which coverage
// is reported as low.
const DefaultLowCoverageThreshold = 50.0

// CoverageResult describes how much of the knowledge base a selection hits.
type CoverageResult struct {
	MatchedCount int     `json:"matched_count"`
	TotalCount   int     `json:"total_count"`
	Rate         float64 `json:"rate"`
}

// Coverage counts the records Match would return for sel. Rate is a
// percentage and is 0 for an empty knowledge base.
func Coverage(sel Selection, kb *knowledge.KnowledgeBase) CoverageResult {
	res := CoverageResult{TotalCount: kb.Len()}
	kb.Each(func(rec knowledge.DisorderRecord) bool {
		if overlaps(sel, rec) {
			res.MatchedCount++
		}
		return true
	})
	if res.TotalCount > 0 {
		res.Rate = float64(res.MatchedCount) / float64(res.TotalCount) * 100
	}
	return res
}

// Assessment classifies a coverage rate.
type Assessment string

const (
	AssessmentLow  Assessment = "low"
	AssessmentHigh Assessment = "high"
)

// Assess returns AssessmentLow when the rate is under threshold.
func (c CoverageResult) Assess(threshold float64) Assessment {
	if c.Rate < threshold {
		return AssessmentLow
	}
	return AssessmentHigh
}
