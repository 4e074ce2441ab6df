package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"dokq/core"
	"dokq/metrics"
	"dokq/security"
)

// allowedContentTypes is the media-type allow-list for mutating methods.
var allowedContentTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
}

// requestIDMiddleware tags every request with an id for log correlation.
func (a *API) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// securityHeadersMiddleware sets the fixed response-hardening headers on
// every response.
func (a *API) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy",
			"default-src 'self'; object-src 'none'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-Download-Options", "noopen")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")
		if a.cfg.API.TLS {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		next.ServeHTTP(w, r)
	})
}

// sanitizationGateMiddleware rejects malformed or probe-like requests
// before any expensive work: oversized payloads, unsupported media types
// on mutating methods, known scanner user agents, and spoofed trust
// headers. The injection-signature scan runs here too, but only as
// telemetry (logged and counted); see security.Finding.
func (a *API) sanitizationGateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > core.MaxRequestBodySize {
			metrics.RequestsBlocked.WithLabelValues("payload_too_large").Inc()
			a.writeError(w, r, core.NewPayloadTooLarge("Request size exceeds maximum allowed limit"))
			return
		}

		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if ct := r.Header.Get("Content-Type"); ct != "" && !contentTypeAllowed(ct) {
				metrics.RequestsBlocked.WithLabelValues("unsupported_media_type").Inc()
				a.writeError(w, r, core.NewUnsupportedMediaType("Content type not supported"))
				return
			}
		}

		if security.IsScannerUserAgent(r.UserAgent()) {
			metrics.RequestsBlocked.WithLabelValues("scanner_user_agent").Inc()
			a.logger.Warnw("Blocked scanner user agent",
				"user_agent", r.UserAgent(),
				"remote_addr", r.RemoteAddr)
			a.writeError(w, r, core.NewForbidden("Request blocked"))
			return
		}

		if security.HasSpoofedTrustHeader(r) {
			metrics.RequestsBlocked.WithLabelValues("spoofed_trust_header").Inc()
			a.writeError(w, r, core.NewForbidden("Invalid request headers"))
			return
		}

		a.observeInjectionSignatures(r)

		next.ServeHTTP(w, r)
	})
}

// observeInjectionSignatures runs the signature scan over query and
// header values and records findings. Detection does not block: blocking
// on these broad patterns would reject legitimate clinical text while no
// SQL or shell ever sees the raw values. Body leaves are scanned where
// handlers decode them.
func (a *API) observeInjectionSignatures(r *http.Request) {
	findings := a.scanner.ScanValues("query", r.URL.Query())
	findings = append(findings, a.scanner.ScanHeaders(r.Header)...)

	for _, f := range findings {
		metrics.InjectionSignatures.WithLabelValues(f.Pattern).Inc()
		a.logger.Warnw("Injection signature detected",
			"pattern", f.Pattern,
			"location", f.Location,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
	}
}

func contentTypeAllowed(contentType string) bool {
	for _, allowed := range allowedContentTypes {
		if strings.Contains(contentType, allowed) {
			return true
		}
	}
	return false
}

// corsMiddleware enforces the origin allow-list. Requests without an
// Origin header (same-origin, non-browser) pass through. A disallowed
// origin is surfaced as an opaque server error rather than a structured
// CORS denial, so callers cannot enumerate the allowed set.
func (a *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			allowed := false
			for _, candidate := range a.cfg.AllowedOrigins() {
				if origin == candidate {
					allowed = true
					break
				}
			}
			if !allowed {
				metrics.RequestsBlocked.WithLabelValues("origin_rejected").Inc()
				a.writeError(w, r, &core.AppError{
					Code:    core.CodeOriginRejected,
					Status:  http.StatusInternalServerError,
					Message: "Not allowed by CORS",
				})
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers",
				"Content-Type, Authorization, X-Requested-With, Accept, Origin, "+csrfHeaderCanonical)
			h.Set("Access-Control-Expose-Headers", "X-Total-Count, X-Page-Count")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimitMiddleware provides rate limiting per client IP.
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := a.clientIP(r)

		a.rateLimitersMu.Lock()
		entry, exists := a.rateLimiters[ip]
		if !exists {
			entry = &rateLimiterEntry{
				limiter: rate.NewLimiter(
					rate.Limit(a.cfg.API.RateLimit.RequestsPerSecond),
					a.cfg.API.RateLimit.Burst),
				lastSeen: time.Now(),
			}
			a.rateLimiters[ip] = entry
		} else {
			entry.lastSeen = time.Now()
		}
		// Capture the limiter while holding the lock so the cleanup
		// goroutine cannot race the Allow call.
		limiter := entry.limiter
		a.rateLimitersMu.Unlock()

		if !limiter.Allow() {
			metrics.RequestsBlocked.WithLabelValues("rate_limited").Inc()
			a.writeError(w, r, &core.AppError{
				Code:    core.CodeRateLimited,
				Status:  http.StatusTooManyRequests,
				Message: "Too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cleanupRateLimiters periodically drops limiters for idle IPs.
func (a *API) cleanupRateLimiters() {
	ticker := time.NewTicker(core.RateLimiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.rateLimitersMu.Lock()
			for ip, entry := range a.rateLimiters {
				if time.Since(entry.lastSeen) > core.RateLimiterIdleTimeout {
					delete(a.rateLimiters, ip)
				}
			}
			a.rateLimitersMu.Unlock()
		case <-a.stopCh:
			return
		}
	}
}

// clientIP resolves the caller's network address. X-Forwarded-For is
// only honored when the gateway is configured behind a trusted proxy.
func (a *API) clientIP(r *http.Request) string {
	if a.cfg.API.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			if first, _, ok := strings.Cut(fwd, ","); ok {
				return strings.TrimSpace(first)
			}
			return strings.TrimSpace(fwd)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
