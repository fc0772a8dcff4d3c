package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sleep-diagnosis/internal/platform/httpserver"
	"sleep-diagnosis/internal/session"
)

type Handler struct {
	verifier Verifier
	sessions *session.Manager
	logger   *zap.Logger
}

func NewHandler(verifier Verifier, sessions *session.Manager, logger *zap.Logger) *Handler {
	return &Handler{verifier: verifier, sessions: sessions, logger: logger}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if !h.verifier.Verify(req.Username, req.Password) {
		h.logger.Info("login rejected", zap.String("username", req.Username))
		httpserver.WriteError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	s := session.FromContext(r.Context())
	s.Login(req.Username)
	if err := h.sessions.Save(w, r, s); err != nil {
		h.logger.Error("failed to save session", zap.Error(err))
		httpserver.WriteError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	h.logger.Info("login succeeded", zap.String("username", req.Username))
	httpserver.WriteJSON(w, http.StatusOK, map[string]string{
		"username": req.Username,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	s.Logout()
	if err := h.sessions.Save(w, r, s); err != nil {
		h.logger.Error("failed to save session", zap.Error(err))
		httpserver.WriteError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequireAuthenticated rejects requests whose session has not logged in.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).Authenticated {
			httpserver.WriteError(w, http.StatusUnauthorized, "log in first")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RegisterPublicRoutes mounts the login endpoint.
func RegisterPublicRoutes(r chi.Router, h *Handler) {
	r.Post("/auth/login", h.Login)
}

// RegisterRoutes mounts endpoints that need an authenticated session.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/auth/logout", h.Logout)
}
