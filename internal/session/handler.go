package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sleep-diagnosis/internal/platform/httpserver"
)

type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// View is the public shape of a session.
type View struct {
	Authenticated bool     `json:"authenticated"`
	Username      string   `json:"username,omitempty"`
	Symptoms      []string `json:"symptoms"`
	HasSymptoms   bool     `json:"has_symptoms"`
	Wizard        Wizard   `json:"wizard"`
}

// ViewOf builds the public view of s.
func ViewOf(s *Session) View {
	v := View{
		Authenticated: s.Authenticated,
		Username:      s.Username,
		Symptoms:      clone(s.Symptoms),
		HasSymptoms:   s.HasSymptoms,
		Wizard:        s.Wizard,
	}
	v.Wizard.Selected = clone(s.Wizard.Selected)
	return v
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, ViewOf(FromContext(r.Context())))
}

func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	s := FromContext(r.Context())
	if err := h.manager.Clear(w, r, s); err != nil {
		h.logger.Error("failed to clear session", zap.String("session", s.ID.String()), zap.Error(err))
		httpserver.WriteError(w, http.StatusInternalServerError, "failed to clear session data")
		return
	}
	h.logger.Info("session data cleared", zap.String("session", s.ID.String()))
	httpserver.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "all session data cleared",
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/session", h.GetSession)
	r.Delete("/session", h.ClearSession)
}
