package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig is the cross-origin policy for the HTTP surface.
type CORSConfig struct {
	// AllowedOrigins lists exact origins. "*" allows everything, but only
	// takes effect in development (see Environment).
	AllowedOrigins []string

	// AllowedMethods and AllowedHeaders default to the service-wide sets
	// when empty.
	AllowedMethods []string
	AllowedHeaders []string

	// ExposedHeaders the browser may read from responses.
	ExposedHeaders []string

	// MaxAge is the preflight cache lifetime in seconds. Zero selects 3600.
	MaxAge int

	// AllowCredentials permits cookies and Authorization on cross-origin
	// requests.
	AllowCredentials bool

	// Environment gates the wildcard: outside "development" a lone "*" in
	// AllowedOrigins still enables it, but nothing else does.
	Environment string
}

// DefaultCORSConfig returns the development policy: any origin, the standard
// method set, and the correlation header exposed to clients.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", correlationHeader},
		ExposedHeaders: []string{correlationHeader},
		MaxAge:         3600,
		Environment:    "development",
	}
}

// corsPolicy is the precomputed form of CORSConfig: header values are joined
// once at construction, not per request.
type corsPolicy struct {
	wildcard    bool
	origins     map[string]struct{}
	methods     string
	headers     string
	exposed     string
	maxAge      string
	credentials bool
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Accept", "Authorization", "Content-Type", correlationHeader}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}

	p := &corsPolicy{
		wildcard:    cfg.Environment == "development",
		origins:     make(map[string]struct{}, len(cfg.AllowedOrigins)),
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		exposed:     strings.Join(cfg.ExposedHeaders, ", "),
		maxAge:      strconv.Itoa(cfg.MaxAge),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.wildcard = true
		}
		p.origins[o] = struct{}{}
	}
	return p
}

func (p *corsPolicy) apply(w http.ResponseWriter, origin string) {
	h := w.Header()

	switch {
	case p.wildcard:
		h.Set("Access-Control-Allow-Origin", "*")
	case origin != "":
		if _, ok := p.origins[origin]; ok {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
		}
	}

	h.Set("Access-Control-Allow-Methods", p.methods)
	h.Set("Access-Control-Allow-Headers", p.headers)
	if p.exposed != "" {
		h.Set("Access-Control-Expose-Headers", p.exposed)
	}
	h.Set("Access-Control-Max-Age", p.maxAge)
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

// CORS applies the policy to every response and short-circuits preflight
// requests with 204.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy.apply(w, r.Header.Get("Origin"))

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
