package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"sparkpro/desk/internal/apiclient"
	"sparkpro/desk/internal/domain"
	"sparkpro/desk/internal/session"
)

// requireAuth resolves the bearer into a session and rejects roles outside
// the allowed set.
func (a *API) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			sess, err := a.sessions.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, session.ErrInvalidToken) || errors.Is(err, session.ErrExpired) || errors.Is(err, session.ErrRevoked) {
					writeError(w, http.StatusUnauthorized, err)
					return
				}
				a.fail(w, err)
				return
			}

			if len(roles) > 0 && !sess.HasRole(roles...) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}

			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		})
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.sessions.Login(r.Context(), req)
	if err != nil {
		var statusErr *apiclient.StatusError
		switch {
		case errors.Is(err, session.ErrMissingCredentials):
			writeError(w, http.StatusBadRequest, err)
		case errors.As(err, &statusErr) && statusErr.Status < 500:
			writeError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
		case errors.Is(err, session.ErrInvalidToken), errors.Is(err, session.ErrExpired):
			writeError(w, http.StatusUnauthorized, err)
		default:
			a.fail(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("missing session"))
		return
	}
	if err := a.sessions.Logout(r.Context(), sess); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("missing session"))
		return
	}
	writeJSON(w, http.StatusOK, sess.Identity())
}
