package feedback

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sleep-diagnosis/internal/platform/httpserver"
	"sleep-diagnosis/internal/session"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Handler struct {
	svc    Service
	logger *zap.Logger
}

func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type SubmitRequest struct {
	Message string `json:"message"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	username := session.FromContext(r.Context()).Username
	f, err := h.svc.Submit(r.Context(), username, req.Message)
	switch {
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong):
		httpserver.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to submit feedback", zap.Error(err))
		httpserver.WriteError(w, http.StatusInternalServerError, "failed to submit feedback")
		return
	}

	httpserver.WriteJSON(w, http.StatusCreated, map[string]string{
		"id":      f.ID.String(),
		"message": "thank you for your feedback",
	})
}

// List returns the most recent feedback, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpserver.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	items, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list feedback", zap.Error(err))
		httpserver.WriteError(w, http.StatusInternalServerError, "failed to list feedback")
		return
	}
	if items == nil {
		items = []Feedback{}
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"feedback": items})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/feedback", h.Submit)
	r.Get("/feedback", h.List)
}
