package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/phrazzld/taskboard-api/internal/api/shared"
	"github.com/phrazzld/taskboard-api/internal/platform/logger"
	"github.com/phrazzld/taskboard-api/internal/ratelimit"
)

// anonymousIdentity is the counter key for requests with neither an
// authenticated user nor a resolvable remote address.
const anonymousIdentity = "anonymous"

// RateLimitMiddleware throttles requests per identity using the shared
// distributed limiter.
type RateLimitMiddleware struct {
	limiter  *ratelimit.Limiter
	failOpen bool
}

// NewRateLimitMiddleware creates the middleware. failOpen controls behavior
// when the key-value store is unreachable: true admits the request with a
// warning, false rejects with 503.
func NewRateLimitMiddleware(limiter *ratelimit.Limiter, failOpen bool) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, failOpen: failOpen}
}

// Limit enforces the rate limit. Every response carries X-RateLimit-Limit
// and X-RateLimit-Remaining; throttled responses add Retry-After.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := deriveIdentity(r)

		decision, err := m.limiter.Allow(r.Context(), identity)
		if err != nil {
			log := logger.FromContext(r.Context())
			if m.failOpen {
				log.Warn("rate limiter unavailable, admitting request",
					"identity", identity, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			log.Error("rate limiter unavailable, rejecting request",
				"identity", identity, "error", err)
			shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Service temporarily unavailable")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			retryAfter := int64(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			shared.RespondWithError(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// deriveIdentity picks the rate-limit key for a request: the authenticated
// user ID when present, else the source host, else a fixed sentinel.
// The derivation is deterministic per request so the same caller always
// lands on the same shared counter regardless of which instance serves it.
// The ephemeral source port is stripped so every connection from a host
// shares one counter instead of minting a fresh one per connection.
func deriveIdentity(r *http.Request) string {
	if userID, ok := shared.UserIDFromContext(r.Context()); ok {
		return "user:" + userID.String()
	}
	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return "ip:" + host
	}
	return anonymousIdentity
}
