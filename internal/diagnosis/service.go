package diagnosis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sleep-diagnosis/internal/graph"
	"sleep-diagnosis/internal/knowledge"
	"sleep-diagnosis/internal/report"
)

// ReportRenderer turns a report into a document.
type ReportRenderer interface {
	Render(rep report.Report) ([]byte, error)
}

// Result is a diagnosis for one selection.
type Result struct {
	Symptoms  []string                   `json:"symptoms"`
	Diagnoses []knowledge.DisorderRecord `json:"diagnoses"`
}

// TestResult is what the test page reports for a symptom set.
type TestResult struct {
	Result
	Coverage   CoverageResult  `json:"coverage"`
	Assessment Assessment      `json:"assessment"`
	Stats      knowledge.Stats `json:"stats"`
}

type Service interface {
	Diagnose(symptoms []string) Result
	Test(symptoms []string) TestResult
	Graph(ctx context.Context, res Result) (graph.Graph, error)
	Report(username string, res Result) ([]byte, error)
	Knowledge() *knowledge.KnowledgeBase
}

type service struct {
	kb           *knowledge.KnowledgeBase
	graphs       graph.Store
	reports      ReportRenderer
	lowThreshold float64
	logger       *zap.Logger
}

// NewService wires the matching core to its collaborators. lowThreshold is
// the coverage rate, in percent, below which coverage is assessed as low.
func NewService(kb *knowledge.KnowledgeBase, graphs graph.Store, reports ReportRenderer, lowThreshold float64, logger *zap.Logger) Service {
	return &service{
		kb:           kb,
		graphs:       graphs,
		reports:      reports,
		lowThreshold: lowThreshold,
		logger:       logger,
	}
}

func (s *service) Knowledge() *knowledge.KnowledgeBase { return s.kb }

func (s *service) Diagnose(symptoms []string) Result {
	if symptoms == nil {
		symptoms = []string{}
	}
	res := Result{
		Symptoms:  symptoms,
		Diagnoses: Match(NewSelection(symptoms...), s.kb),
	}
	s.logger.Debug("diagnosed",
		zap.Int("symptoms", len(symptoms)),
		zap.Strings("disorders", Names(res.Diagnoses)))
	return res
}

func (s *service) Test(symptoms []string) TestResult {
	sel := NewSelection(symptoms...)
	cov := Coverage(sel, s.kb)
	return TestResult{
		Result:     s.Diagnose(symptoms),
		Coverage:   cov,
		Assessment: cov.Assess(s.lowThreshold),
		Stats:      s.kb.Stats(),
	}
}

func (s *service) Graph(ctx context.Context, res Result) (graph.Graph, error) {
	g, err := s.graphs.Neighborhood(ctx, uniqueNames(res.Diagnoses))
	if err != nil {
		return graph.Graph{}, fmt.Errorf("graph lookup failed: %w", err)
	}
	return g, nil
}

func (s *service) Report(username string, res Result) ([]byte, error) {
	return s.reports.Render(report.Report{
		Username:    username,
		GeneratedAt: time.Now(),
		Symptoms:    res.Symptoms,
		Diagnoses:   res.Diagnoses,
	})
}

func uniqueNames(records []knowledge.DisorderRecord) []string {
	seen := make(map[string]struct{}, len(records))
	var out []string
	for _, n := range Names(records) {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
