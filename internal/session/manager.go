package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sleep-diagnosis/internal/platform/httpserver"
)

// DefaultCookieName is used when no cookie name is configured.
const DefaultCookieName = "sleepdx_session"

type ctxKey struct{}

// Manager ties the session store to HTTP cookies.
type Manager struct {
	store      Store
	cookieName string
	secure     bool
	logger     *zap.Logger
}

func NewManager(store Store, cookieName string, secure bool, logger *zap.Logger) *Manager {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Manager{store: store, cookieName: cookieName, secure: secure, logger: logger}
}

// Middleware loads the caller's session, or starts a fresh unsaved one, and
// attaches it to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.load(r)
		if err != nil {
			m.logger.Error("failed to load session", zap.Error(err))
			httpserver.WriteError(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

func (m *Manager) load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return New(), nil
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return New(), nil
	}
	s, err := m.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Save persists s and refreshes the session cookie.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if err := m.store.Save(r.Context(), s); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    s.ID.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear deletes every piece of session data, authentication included, and
// expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request, s *Session) error {
	if s.Persisted() {
		if err := m.store.Delete(r.Context(), s.ID); err != nil {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by Middleware. Requests that did
// not pass through the middleware get a fresh session.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok && s != nil {
		return s
	}
	return New()
}
