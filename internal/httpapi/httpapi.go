package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/metrics"
	"github.com/Bodin4747/CheikysAdmin/internal/service"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
)

var (
	posRoles   = []string{domain.RoleOwner, domain.RoleAdmin, domain.RoleCashier, domain.RoleEmployee}
	adminRoles = []string{domain.RoleOwner, domain.RoleAdmin}
)

type API struct {
	service        *service.Service
	auth           *AuthManager
	allowedOrigins []string
	loginLimiter   *attemptLimiter
	csrfSecret     []byte
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:        svc,
		auth:           auth,
		allowedOrigins: splitOrigins(allowedOrigin),
		loginLimiter:   newAttemptLimiter(5, time.Minute),
		csrfSecret:     csrfSecret,
	}
}

// WithMetrics records request latency into m and serves gatherer on /metrics.
func (a *API) WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) *API {
	a.metrics = m
	a.gatherer = gatherer
	return a
}

func splitOrigins(raw string) []string {
	origins := make([]string, 0, 2)
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, "*")
	}
	return origins
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	bucket := time.Now().UTC().Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken accepts tokens from the current or previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	currentBucket := time.Now().UTC().Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(currentBucket))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(prevBucket)))
}

// attemptLimiter keeps one token bucket per client key. Buckets idle for a
// full window are dropped on the next call.
type attemptLimiter struct {
	mu      sync.Mutex
	burst   int
	window  time.Duration
	entries map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{burst: max, window: window, entries: make(map[string]*limiterEntry)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.window {
			delete(l.entries, k)
		}
	}
	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.burst)), l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
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
	mux := chi.NewRouter()

	mux.Use(securityHeaders)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	mux.Use(limitJSONBody)
	mux.Use(a.checkCSRF)
	mux.Use(a.observe)

	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMethodNotAllowed(w)
	})

	mux.Get("/healthz", a.handleHealth)
	if a.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}

	mux.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)
		r.Get("/auth/csrf-token", a.handleCSRFToken)
		r.Post("/auth/bootstrap", a.handleBootstrap)

		// Point of sale.
		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(posRoles...))

			r.Get("/auth/me", a.handleMe)
			r.Get("/products", a.handleListProducts)
			r.Get("/products/{id}", a.handleGetProduct)
			r.Post("/checkout/quote", a.handleCheckoutQuote)
			r.Post("/checkout", a.handleCheckout)
			r.Get("/sales/recent", a.handleRecentSales)
			r.Get("/sales/{id}", a.handleGetSale)
			r.Post("/sales/{id}/reprint", a.handleReprint)
			r.Post("/receipts/preview", a.handleReceiptPreview)
			r.Get("/settings", a.handleGetSettings)
			r.Get("/dashboard/today", a.handleTodaySummary)
			r.Post("/orders", a.handleCreateOrder)
			r.Get("/orders", a.handleListOrders)
			r.Get("/orders/{id}", a.handleGetOrder)
			r.Post("/orders/{id}/deliver", a.handleDeliverOrder)
			r.Post("/orders/{id}/cancel", a.handleCancelOrder)
		})

		// Closing the day is done at the register, not only from the back office.
		r.With(a.requireAuth(domain.RoleOwner, domain.RoleAdmin, domain.RoleCashier)).Post("/cuts", a.handleRunCut)

		// Back office.
		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(adminRoles...))

			r.Post("/products", a.handleCreateProduct)
			r.Patch("/products/{id}", a.handleUpdateProduct)
			r.Delete("/products/{id}", a.handleDeleteProduct)
			r.Get("/cuts", a.handleListCuts)
			r.Get("/cuts/{id}", a.handleGetCut)
			r.Get("/reports/sales", a.handleSalesReport)
			r.Get("/reports/products", a.handleProductReport)
			r.Get("/dashboard/top-products", a.handleTopProducts)
			r.Patch("/settings/printer", a.handleUpdatePrinterSettings)
			r.Patch("/settings/tax", a.handleUpdateTaxSettings)
			r.Patch("/settings/currency", a.handleUpdateCurrencySettings)
			r.Get("/users", a.handleListUsers)
			r.Post("/users", a.handleCreateUser)
			r.Patch("/users/{username}", a.handleUpdateUser)
			r.Delete("/users/{username}", a.handleDeleteUser)
			r.Get("/audit-logs", a.handleAuditLogs)
		})
	})

	return mux
}

func (a *API) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			actor, err := a.auth.ParseToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}

			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func limitJSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isMutating(r.Method) && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}
		next.ServeHTTP(w, r)
	})
}

// csrfExemptPaths are called before a client can hold a CSRF token.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/bootstrap",
}

// checkCSRF requires a valid X-CSRF-Token header on every state-changing request.
func (a *API) checkCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		for _, exempt := range csrfExemptPaths {
			if r.URL.Path == exempt {
				next.ServeHTTP(w, r)
				return
			}
		}
		token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
		if !a.validateCSRFToken(token) {
			writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		elapsed := time.Since(startedAt)

		// Raw paths never become label values.
		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.metrics.HTTPRequest(metricMethod(r.Method), route, status, elapsed)
		log.Printf("%s %s %s", r.Method, r.URL.Path, elapsed)
	})
}

const unmatchedRoute = "unmatched"

func metricMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	default:
		return "OTHER"
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	if err := decodeJSON(r, dest); err != nil && !errors.Is(err, io.EOF) {
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

// writeServiceError maps service and store errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrForbidden), errors.Is(err, ErrOwnerProtected):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransaction):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrConflict), errors.Is(err, ErrUserExists), errors.Is(err, ErrBootstrapClosed):
		status = http.StatusConflict
	}
	writeError(w, status, err)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause is only logged.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
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
