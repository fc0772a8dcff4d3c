package diagnosis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sleep-diagnosis/internal/graph"
	"sleep-diagnosis/internal/report"
	"sleep-diagnosis/internal/session"
)

type stubReports struct {
	got report.Report
	err error
}

func (s *stubReports) Render(rep report.Report) ([]byte, error) {
	s.got = rep
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

type failingGraph struct{}

func (failingGraph) Neighborhood(context.Context, []string) (graph.Graph, error) {
	return graph.Graph{}, assert.AnError
}

type fixture struct {
	router  http.Handler
	reports *stubReports
	cookie  *http.Cookie
}

func newFixture(t *testing.T, graphs graph.Store) *fixture {
	t.Helper()
	logger := zap.NewNop()
	kb := scenarioKB()
	if graphs == nil {
		graphs = graph.NewKnowledgeStore(kb)
	}
	reports := &stubReports{}
	svc := NewService(kb, graphs, reports, DefaultLowCoverageThreshold, logger)
	manager := session.NewManager(session.NewMemoryStore(0), "", false, logger)

	r := chi.NewRouter()
	r.Use(manager.Middleware)
	RegisterRoutes(r, NewHandler(svc, manager, logger))
	return &fixture{router: r, reports: reports}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if f.cookie != nil {
		req.AddCookie(f.cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		f.cookie = c
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type diagnosisBody struct {
	Symptoms  []string `json:"symptoms"`
	Diagnoses []struct {
		Name    string   `json:"name"`
		Symptom []string `json:"symptom"`
	} `json:"diagnoses"`
	Message string `json:"message"`
}

func names(b diagnosisBody) []string {
	out := []string{}
	for _, d := range b.Diagnoses {
		out = append(out, d.Name)
	}
	return out
}

func TestStatsAndSymptoms(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/knowledge/stats", "")
	assert.JSONEq(t, `{"disorders":2,"symptoms":4}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/symptoms", "")
	assert.JSONEq(t, `{"symptoms":["daytime sleepiness","difficulty falling asleep","fatigue","snoring"]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/symptoms?q=snor&limit=1", "")
	assert.JSONEq(t, `{"suggestions":[{"symptom":"snoring","score":1}]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/symptoms?q=snor&limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/symptoms?q=zzzzzzzz", "")
	assert.JSONEq(t, `{"suggestions":[]}`, rec.Body.String())
}

func TestSelection_UnknownSymptomWithoutSuggestions(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPut, "/selection", `{"symptoms":["snoring","zzzzzzzz"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"unknown symptoms","details":{"zzzzzzzz":[]}}`, rec.Body.String())
}

func TestSelectionAndDiagnosis(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/diagnosis", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPut, "/selection", `{"symptoms":["fatigue","headache"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "headache")

	rec = f.do(t, http.MethodPut, "/selection", `{"symptoms":["fatigue","snoring","fatigue"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"symptoms":["fatigue","snoring"]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/diagnosis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[diagnosisBody](t, rec)
	assert.Equal(t, []string{"Insomnia", "Apnea"}, names(body))
	assert.Empty(t, body.Message)

	rec = f.do(t, http.MethodPut, "/selection", `{"symptoms":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/diagnosis", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGraph(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPut, "/selection", `{"symptoms":["snoring"]}`)

	rec := f.do(t, http.MethodGet, "/diagnosis/graph", "")
	require.Equal(t, http.StatusOK, rec.Code)
	g := decode[graph.Graph](t, rec)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)

	rec = f.do(t, http.MethodGet, "/diagnosis/graph?format=html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "vis.Network")
}

func TestGraph_StoreFailure(t *testing.T) {
	f := newFixture(t, failingGraph{})
	f.do(t, http.MethodPut, "/selection", `{"symptoms":["snoring"]}`)

	rec := f.do(t, http.MethodGet, "/diagnosis/graph", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// the core keeps working without the graph store
	rec = f.do(t, http.MethodGet, "/diagnosis", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReport(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPut, "/selection", `{"symptoms":["fatigue"]}`)

	rec := f.do(t, http.MethodGet, "/diagnosis/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"fatigue"}, f.reports.got.Symptoms)
	require.Len(t, f.reports.got.Diagnoses, 1)
	assert.Equal(t, "Insomnia", f.reports.got.Diagnoses[0].Name)

	f.reports.err = report.ErrFontUnavailable
	rec = f.do(t, http.MethodGet, "/diagnosis/report", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTestEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/diagnosis/test", `{"symptoms":["fatigue","snoring"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Coverage   CoverageResult `json:"coverage"`
		Assessment Assessment     `json:"assessment"`
		Stats      struct {
			Disorders int `json:"disorders"`
			Symptoms  int `json:"symptoms"`
		} `json:"stats"`
		Diagnoses []json.RawMessage `json:"diagnoses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CoverageResult{MatchedCount: 2, TotalCount: 2, Rate: 100}, body.Coverage)
	assert.Equal(t, AssessmentHigh, body.Assessment)
	assert.Equal(t, 2, body.Stats.Disorders)
	assert.Len(t, body.Diagnoses, 2)

	rec = f.do(t, http.MethodPost, "/diagnosis/test", `{"symptoms":["nonexistent symptom"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rate":0`)
	assert.Contains(t, rec.Body.String(), `"assessment":"low"`)
	assert.Contains(t, rec.Body.String(), msgNoMatch)

	rec = f.do(t, http.MethodPost, "/diagnosis/test", `{"symptoms":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWizard(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/wizard/confirm", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/wizard/result", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPut, "/wizard/selection", `{"symptoms":["daytime sleepiness"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/wizard/result", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/wizard/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"selected":["daytime sleepiness"],"has_selection":true,"confirmed":true}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/wizard/result", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Apnea"}, names(decode[diagnosisBody](t, rec)))

	rec = f.do(t, http.MethodGet, "/wizard", "")
	assert.JSONEq(t, `{"selected":["daytime sleepiness"],"has_selection":true,"confirmed":true}`, rec.Body.String())
}

func TestWizard_EmptyConfirmedSelection(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPut, "/wizard/selection", `{"symptoms":[]}`)
	f.do(t, http.MethodPost, "/wizard/confirm", "")

	rec := f.do(t, http.MethodGet, "/wizard/result", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[diagnosisBody](t, rec)
	assert.Empty(t, body.Diagnoses)
	assert.Equal(t, msgNoMatch, body.Message)
}
