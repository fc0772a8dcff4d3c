package diagnosis

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sleep-diagnosis/internal/graph"
	"sleep-diagnosis/internal/knowledge"
	"sleep-diagnosis/internal/platform/httpserver"
	"sleep-diagnosis/internal/report"
	"sleep-diagnosis/internal/session"
)

const (
	msgNoMatch      = "no known disorder matched the selected symptoms"
	defaultSuggests = 10
)

type Handler struct {
	svc      Service
	sessions *session.Manager
	logger   *zap.Logger
}

func NewHandler(svc Service, sessions *session.Manager, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

type SymptomsRequest struct {
	Symptoms []string `json:"symptoms"`
}

type DiagnosisResponse struct {
	Result
	Message string `json:"message,omitempty"`
}

func newDiagnosisResponse(res Result) DiagnosisResponse {
	resp := DiagnosisResponse{Result: res}
	if len(res.Diagnoses) == 0 {
		resp.Message = msgNoMatch
	}
	return resp
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, h.svc.Knowledge().Stats())
}

// Symptoms lists the vocabulary, or fuzzy suggestions when q is given.
func (h *Handler) Symptoms(w http.ResponseWriter, r *http.Request) {
	kb := h.svc.Knowledge()
	q := r.URL.Query().Get("q")
	if q == "" {
		httpserver.WriteJSON(w, http.StatusOK, map[string][]string{
			"symptoms": kb.Vocabulary(),
		})
		return
	}

	limit := defaultSuggests
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpserver.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string][]knowledge.Suggestion{
		"suggestions": suggest(kb, q, limit),
	})
}

// decodeSymptoms reads a selection and rejects labels outside the
// vocabulary, answering with suggestions for each.
func (h *Handler) decodeSymptoms(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req SymptomsRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid request")
		return nil, false
	}
	kb := h.svc.Knowledge()
	if unknown := kb.Unknown(req.Symptoms); len(unknown) > 0 {
		details := make(map[string][]knowledge.Suggestion, len(unknown))
		for _, u := range unknown {
			details[u] = suggest(kb, u, 3)
		}
		httpserver.WriteErrorDetails(w, http.StatusBadRequest, "unknown symptoms", details)
		return nil, false
	}
	return session.Dedupe(req.Symptoms), true
}

// suggest never returns nil so responses carry [] rather than null.
func suggest(kb *knowledge.KnowledgeBase, query string, limit int) []knowledge.Suggestion {
	if out := kb.Suggest(query, limit); out != nil {
		return out
	}
	return []knowledge.Suggestion{}
}

func (h *Handler) saveSession(w http.ResponseWriter, r *http.Request, s *session.Session) bool {
	if err := h.sessions.Save(w, r, s); err != nil {
		h.logger.Error("failed to save session", zap.Error(err))
		httpserver.WriteError(w, http.StatusInternalServerError, "failed to save session")
		return false
	}
	return true
}

// SaveSelection stores the symptom-page selection in the session.
func (h *Handler) SaveSelection(w http.ResponseWriter, r *http.Request) {
	symptoms, ok := h.decodeSymptoms(w, r)
	if !ok {
		return
	}
	s := session.FromContext(r.Context())
	s.SaveSymptoms(symptoms)
	if !h.saveSession(w, r, s) {
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string][]string{
		"symptoms": s.Symptoms,
	})
}

// savedResult diagnoses the selection saved on the symptom page.
func (h *Handler) savedResult(w http.ResponseWriter, r *http.Request) (Result, bool) {
	s := session.FromContext(r.Context())
	if !s.HasSymptoms || len(s.Symptoms) == 0 {
		httpserver.WriteError(w, http.StatusConflict, "select symptoms first")
		return Result{}, false
	}
	return h.svc.Diagnose(s.Symptoms), true
}

func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	res, ok := h.savedResult(w, r)
	if !ok {
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, newDiagnosisResponse(res))
}

// Graph returns the neighbourhood of the diagnosed disorders, as JSON or as
// a standalone vis-network page with ?format=html.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	res, ok := h.savedResult(w, r)
	if !ok {
		return
	}
	if len(res.Diagnoses) == 0 {
		httpserver.WriteError(w, http.StatusNotFound, msgNoMatch)
		return
	}

	g, err := h.svc.Graph(r.Context(), res)
	if err != nil {
		h.logger.Warn("graph store unavailable", zap.Error(err))
		httpserver.WriteError(w, http.StatusBadGateway, "graph store unavailable")
		return
	}

	if r.URL.Query().Get("format") != "html" {
		httpserver.WriteJSON(w, http.StatusOK, g)
		return
	}
	page, err := graph.RenderHTML(g)
	if err != nil {
		h.logger.Error("failed to render graph", zap.Error(err))
		httpserver.WriteError(w, http.StatusInternalServerError, "failed to render graph")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	res, ok := h.savedResult(w, r)
	if !ok {
		return
	}
	username := session.FromContext(r.Context()).Username
	pdf, err := h.svc.Report(username, res)
	if err != nil {
		h.logger.Error("failed to render report", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, report.ErrFontUnavailable) {
			status = http.StatusServiceUnavailable
		}
		httpserver.WriteError(w, status, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "diagnosis_report.pdf"))
	w.Write(pdf)
}

// Test runs the test page: any symptom set, no session state involved.
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	var req SymptomsRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if len(req.Symptoms) == 0 {
		httpserver.WriteError(w, http.StatusBadRequest, "select at least one symptom to run a test")
		return
	}
	res := h.svc.Test(session.Dedupe(req.Symptoms))
	httpserver.WriteJSON(w, http.StatusOK, struct {
		TestResult
		Message string `json:"message,omitempty"`
	}{res, newDiagnosisResponse(res.Result).Message})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/knowledge/stats", h.Stats)
	r.Get("/symptoms", h.Symptoms)
	r.Put("/selection", h.SaveSelection)
	r.Get("/diagnosis", h.Diagnose)
	r.Get("/diagnosis/graph", h.Graph)
	r.Get("/diagnosis/report", h.Report)
	r.Post("/diagnosis/test", h.Test)
	registerWizardRoutes(r, h)
}
