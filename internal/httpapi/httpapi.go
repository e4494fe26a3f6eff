package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"sparkpro/desk/internal/accounts"
	"sparkpro/desk/internal/apiclient"
	"sparkpro/desk/internal/cart"
	"sparkpro/desk/internal/domain"
	"sparkpro/desk/internal/giftbox"
	"sparkpro/desk/internal/order"
	"sparkpro/desk/internal/service"
	"sparkpro/desk/internal/session"
	"sparkpro/desk/internal/store"
)

type API struct {
	service       *service.Service
	sessions      *session.Manager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	logger        *zap.Logger
}

func New(svc *service.Service, sessions *session.Manager, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		sessions:      sessions,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		logger:        logger,
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(a.securityHeaders)
	r.Use(a.requestLogger)

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleSuperAdmin, domain.RoleSubAdmin))

			r.Post("/auth/logout", a.handleLogout)
			r.Get("/session", a.handleSession)

			r.Get("/catalog", a.handleCatalog)
			r.Post("/catalog/refresh", a.handleCatalogRefresh)

			r.Route("/desks/{customerID}", func(r chi.Router) {
				r.Get("/", a.handleDeskView)
				r.Delete("/", a.handleDeskClose)
				r.Post("/open", a.handleDeskOpen)

				r.Put("/products/{productID}", a.handleProductSet)
				r.Delete("/products/{productID}", a.handleProductRemove)
				r.Post("/products/{productID}/increment", a.handleProductIncrement)
				r.Post("/products/{productID}/decrement", a.handleProductDecrement)

				r.Put("/giftlines/{giftBoxID}", a.handleGiftLineSet)
				r.Delete("/giftlines/{giftBoxID}", a.handleGiftLineRemove)
				r.Post("/giftlines/{giftBoxID}/increment", a.handleGiftLineIncrement)
				r.Post("/giftlines/{giftBoxID}/decrement", a.handleGiftLineDecrement)

				r.Get("/gift-selector", a.handleGiftOptions)
				r.Put("/gift-selector/{giftBoxID}", a.handleGiftSelect)
				r.Post("/gift-selector/{giftBoxID}/increment", a.handleGiftSelectIncrement)
				r.Post("/gift-selector/{giftBoxID}/decrement", a.handleGiftSelectDecrement)

				r.Put("/pricing", a.handlePricing)
				r.Post("/save", a.handleSave)
				r.Post("/checkout", a.handleCheckout)
			})

			r.Get("/customers/{customerID}/invoices", a.handleCustomerInvoices)
			r.Get("/invoices/{invoiceID}", a.handleInvoice)

			r.Get("/giftboxes", a.handleGiftBoxes)
			r.Post("/giftboxes", a.handleGiftBoxCreate)
			r.Put("/giftboxes/{giftBoxID}", a.handleGiftBoxUpdate)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleSuperAdmin))

			r.Get("/subadmins", a.handleSubAdmins)
			r.Post("/subadmins", a.handleSubAdminCreate)
			r.Put("/subadmins/{subAdminID}", a.handleSubAdminUpdate)
			r.Get("/audit-logs", a.handleAuditLogs)
		})
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(startedAt)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// fail maps an operation error to a status code. Desk failures that have a
// user-facing notice carry it in the body next to the error.
func (a *API) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var statusErr *apiclient.StatusError
	switch {
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, session.ErrInvalidToken),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, session.ErrRevoked),
		errors.Is(err, apiclient.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrDeskNotOpen),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, cart.ErrUnknownItem):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, accounts.ErrInvalidForm),
		errors.Is(err, giftbox.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, order.ErrEmptyCart):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apiclient.ErrUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrLoadFailed),
		errors.Is(err, service.ErrSubmission),
		errors.Is(err, apiclient.ErrMalformedResponse):
		status = http.StatusBadGateway
	case errors.As(err, &statusErr) && statusErr.Status >= 400 && statusErr.Status < 500:
		status = statusErr.Status
	case errors.As(err, &statusErr):
		status = http.StatusBadGateway
	}

	if status >= 500 {
		a.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	if notice, ok := service.NoticeFor(err); ok {
		writeJSON(w, status, map[string]any{
			"error":   notice.Message,
			"notices": []domain.Notice{notice},
		})
		return
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause is logged by the caller.
	msg := err.Error()
	if status >= 500 {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
