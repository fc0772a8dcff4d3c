package diagnosis

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sleep-diagnosis/internal/platform/httpserver"
	"sleep-diagnosis/internal/session"
)

// Guided mode: step 1 selects symptoms, step 2 confirms them, step 3 shows
// the diagnosis. Each step refuses to run before the previous one.

func (h *Handler) WizardState(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, session.ViewOf(session.FromContext(r.Context())).Wizard)
}

func (h *Handler) WizardSelect(w http.ResponseWriter, r *http.Request) {
	symptoms, ok := h.decodeSymptoms(w, r)
	if !ok {
		return
	}
	s := session.FromContext(r.Context())
	s.SelectWizardSymptoms(symptoms)
	if !h.saveSession(w, r, s) {
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, s.Wizard)
}

func (h *Handler) WizardConfirm(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if err := s.ConfirmWizard(); err != nil {
		httpserver.WriteError(w, http.StatusConflict, "select symptoms first")
		return
	}
	if !h.saveSession(w, r, s) {
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, s.Wizard)
}

func (h *Handler) WizardResult(w http.ResponseWriter, r *http.Request) {
	symptoms, err := session.FromContext(r.Context()).WizardResultSymptoms()
	if errors.Is(err, session.ErrWizardNotConfirmed) {
		httpserver.WriteError(w, http.StatusConflict, "confirm the selected symptoms first")
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, newDiagnosisResponse(h.svc.Diagnose(symptoms)))
}

func registerWizardRoutes(r chi.Router, h *Handler) {
	r.Get("/wizard", h.WizardState)
	r.Put("/wizard/selection", h.WizardSelect)
	r.Post("/wizard/confirm", h.WizardConfirm)
	r.Get("/wizard/result", h.WizardResult)
}
