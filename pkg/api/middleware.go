package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/observability"
)

// RoleHeader carries the request actor's role.
const RoleHeader = "X-AutoComply-Role"

// ActorHeader optionally carries the actor's identity.
const ActorHeader = "X-AutoComply-Actor"

type contextKey string

const actorKey contextKey = "actor"

// ActorFrom returns the actor resolved for this request. Requests that
// never passed through WithActor get the submitter role.
func ActorFrom(ctx context.Context) contracts.Actor {
	if a, ok := ctx.Value(actorKey).(contracts.Actor); ok {
		return a
	}
	return contracts.Actor{Role: contracts.RoleSubmitter}
}

// WithActor resolves the request actor from the role header, falling
// back to a bearer token when a JWT secret is configured. Unknown role
// values are rejected.
func WithActor(jwtSecret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := contracts.Actor{Role: contracts.RoleSubmitter}

		if header := r.Header.Get(RoleHeader); header != "" {
			role, ok := contracts.ParseRole(header)
			if !ok {
				WriteBadRequest(w, r, "unknown role "+header)
				return
			}
			actor.Role = role
			actor.ID = r.Header.Get(ActorHeader)
		} else if jwtSecret != "" {
			if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				claims := jwt.MapClaims{}
				token, err := jwt.ParseWithClaims(bearer, claims, func(*jwt.Token) (any, error) {
					return []byte(jwtSecret), nil
				}, jwt.WithValidMethods([]string{"HS256"}))
				if err != nil || !token.Valid {
					WriteUnauthorized(w, r, "invalid bearer token")
					return
				}
				if roleClaim, ok := claims["role"].(string); ok {
					if role, ok := contracts.ParseRole(roleClaim); ok {
						actor.Role = role
					}
				}
				if sub, ok := claims["sub"].(string); ok {
					actor.ID = sub
				}
			}
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithRequestID assigns each request an id, echoed in the response
// header and attached to problem responses.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// WithMetrics records request durations by route pattern and status.
func WithMetrics(metrics *observability.Provider, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		metrics.RecordRequest(r.Context(), route, rec.status, time.Since(start).Seconds())
	})
}

// WithCORS applies the configured allowed origins. "*" allows all.
func WithCORS(origins string, next http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, o := range strings.Split(origins, ",") {
		allowed[strings.TrimSpace(o)] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RoleHeader+", "+ActorHeader)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitConfig holds the rate limiter settings.
type rateLimitConfig struct {
	rps   rate.Limit
	burst int
}

// GlobalRateLimiter manages per-IP rate limiters.
type GlobalRateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	config   rateLimitConfig
}

// visitor tracks the rate limiter and last seen time for an IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewGlobalRateLimiter creates a new rate limiter.
// rps: requests per second allowed.
// burst: maximum burst size.
func NewGlobalRateLimiter(rps int, burst int) *GlobalRateLimiter {
	rl := &GlobalRateLimiter{
		visitors: make(map[string]*visitor),
		config: rateLimitConfig{
			rps:   rate.Limit(rps),
			burst: burst,
		},
	}
	go rl.cleanupVisitors()
	return rl
}

// getVisitor returns the limiter for a given IP, creating if necessary.
func (rl *GlobalRateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.config.rps, rl.config.burst)
		rl.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors removes stale visitor entries to prevent memory leaks.
// Checks every minute, removes entries older than 3 minutes.
func (rl *GlobalRateLimiter) cleanupVisitors() {
	for {
		time.Sleep(1 * time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware returns a Handler that enforces rate limits.
func (rl *GlobalRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = strings.Trim(r.RemoteAddr, "[]")
		}

		if !rl.getVisitor(ip).Allow() {
			WriteTooManyRequests(w, r, 5)
			return
		}
		next.ServeHTTP(w, r)
	})
}
