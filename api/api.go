// Package api implements the DokQ HTTP surface: the layered request
// security pipeline (sanitization gate, CORS, authentication, CSRF,
// role checks) and the protected application routes behind it.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dokq/auth"
	"dokq/config"
	"dokq/core"
	"dokq/csrf"
	"dokq/security"
)

// API holds the API server
type API struct {
	router         *mux.Router
	server         *http.Server
	cfg            *config.Config
	logger         *zap.SugaredLogger
	resolver       *auth.Resolver
	engine         *csrf.Engine
	issuer         *auth.Issuer
	scanner        *security.Scanner
	validate       *validator.Validate
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	stopCh         chan struct{}
}

// NewAPI creates a new API server
func NewAPI(cfg *config.Config, resolver *auth.Resolver, engine *csrf.Engine, issuer *auth.Issuer, logger *zap.SugaredLogger) *API {
	api := &API{
		router:       mux.NewRouter(),
		cfg:          cfg,
		logger:       logger,
		resolver:     resolver,
		engine:       engine,
		issuer:       issuer,
		scanner:      security.NewScanner(),
		validate:     validator.New(),
		rateLimiters: make(map[string]*rateLimiterEntry),
		stopCh:       make(chan struct{}),
	}
	api.setupRoutes()
	go api.cleanupRateLimiters()
	return api
}

// setupRoutes sets up the API routes. Order matters: the sanitization
// gate runs before CORS so hostile requests are dropped before any
// cross-origin headers are emitted, and authentication runs before CSRF
// so token validation can bind to the caller's session.
func (a *API) setupRoutes() {
	a.router.Use(a.securityHeadersMiddleware)
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.sanitizationGateMiddleware)
	a.router.Use(a.corsMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	// OPTIONS is registered on every route so preflights reach the CORS
	// middleware instead of the router's method-mismatch handler. The
	// middleware answers them before any auth runs.
	a.router.HandleFunc("/health", a.healthCheck).Methods("GET", "OPTIONS")
	a.router.Handle("/metrics", promhttp.Handler())

	a.router.HandleFunc("/api/auth/login", a.login).Methods("POST", "OPTIONS")
	a.router.HandleFunc("/api/auth/csrf-token", a.protect(a.getCSRFToken)).Methods("GET", "OPTIONS")
	a.router.HandleFunc("/api/auth/csrf-token/refresh", a.protect(a.refreshCSRFToken)).Methods("POST", "OPTIONS")
	a.router.HandleFunc("/api/auth/logout", a.protect(a.logout)).Methods("POST", "OPTIONS")

	a.router.HandleFunc("/api/dashboard/stats", a.protect(a.getDashboardStats,
		core.RoleAdmin, core.RoleDoctor, core.RoleNurse)).Methods("GET", "OPTIONS")
	a.router.HandleFunc("/api/surgery/queue", a.protect(a.getSurgeryQueue,
		core.RoleAdmin, core.RoleDoctor, core.RoleSurgeon)).Methods("GET", "OPTIONS")
	a.router.HandleFunc("/api/or/status", a.protect(a.getORStatus,
		core.RoleAdmin, core.RoleDoctor, core.RoleNurse, core.RoleORCoordinator)).Methods("GET", "OPTIONS")
	a.router.HandleFunc("/api/or/optimize", a.protect(a.optimizeOR,
		core.RoleAdmin, core.RoleORCoordinator)).Methods("POST", "OPTIONS")
	a.router.HandleFunc("/api/ai/consultation", a.protect(a.aiConsultation,
		core.RoleAdmin, core.RoleDoctor, core.RoleNurse, core.RolePatient)).Methods("POST", "OPTIONS")
	a.router.HandleFunc("/api/patient/{id}", a.protect(a.getPatient,
		core.RoleAdmin, core.RoleDoctor, core.RoleNurse, core.RolePatient)).Methods("GET", "OPTIONS")
	a.router.HandleFunc("/api/patient", a.protect(a.createPatient,
		core.RoleAdmin, core.RoleDoctor, core.RoleNurse)).Methods("POST", "OPTIONS")
	a.router.HandleFunc("/api/analytics/wait-times", a.protect(a.getWaitTimeAnalytics,
		core.RoleAdmin, core.RoleDoctor, core.RoleAnalyst)).Methods("GET", "OPTIONS")

	a.router.NotFoundHandler = http.HandlerFunc(a.notFoundHandler)
}

// protect chains authentication, CSRF protection, and an optional role
// check in front of a handler. No roles means any authenticated caller.
func (a *API) protect(h http.HandlerFunc, roles ...core.Role) http.HandlerFunc {
	wrapped := a.requireRole(roles...)(h)
	wrapped = a.csrfProtect(wrapped)
	wrapped = a.authenticate(wrapped)
	return wrapped.ServeHTTP
}

// Start starts the API server
func (a *API) Start(port string) error {
	a.server = &http.Server{
		Addr:    port,
		Handler: a.router,
	}
	return a.server.ListenAndServe()
}

// StartTLS starts the API server with TLS
func (a *API) StartTLS(port, certFile, keyFile string) error {
	a.server = &http.Server{
		Addr:    port,
		Handler: a.router,
	}
	return a.server.ListenAndServeTLS(certFile, keyFile)
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	close(a.stopCh)
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the configured router, mainly for tests.
func (a *API) Handler() http.Handler {
	return a.router
}
