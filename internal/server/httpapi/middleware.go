package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/auth"
	"golang.org/x/time/rate"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserIDFromContext returns the authenticated user id placed there by the
// auth middleware.
func UserIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(userIDKey).(string)
	if !ok || id == "" {
		return "", common.ErrTokenMissing
	}
	return id, nil
}

// AuthMiddleware validates the bearer token and stores the user id in the
// request context. Missing, malformed, and expired tokens all end the
// request with 401.
func AuthMiddleware(secretKey []byte, logger logging.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(common.AuthHeaderName)
			if header == "" {
				writeError(r.Context(), w, logger, common.ErrTokenMissing)
				return
			}

			token, ok := strings.CutPrefix(header, common.BearerPrefix+" ")
			if !ok {
				writeError(r.Context(), w, logger, common.ErrInvalidToken)
				return
			}

			userID, err := auth.GetUserIDFromToken(token, secretKey)
			if err != nil {
				writeError(r.Context(), w, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter throttles unauthenticated endpoints per client IP. It backs
// the registration, login, and reset-request routes, where there is no user
// identity to key on yet.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	limit    rate.Limit
	burst    int
	stopCh   chan struct{}
}

// NewIPRateLimiter starts a limiter allowing r events per second with the
// given burst, and a background sweep of idle entries.
func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	rl := &IPRateLimiter{
		limiters: make(map[string]*ipLimiter),
		limit:    r,
		burst:    burst,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the background cleanup goroutine.
func (rl *IPRateLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware rejects over-limit requests with 429.
func (rl *IPRateLimiter) Middleware(logger logging.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !rl.allow(ip) {
				logger.Warn(r.Context(), "rate limit exceeded", "ip", ip, "path", r.URL.Path)
				writeJSON(r.Context(), w, logger, http.StatusTooManyRequests,
					errorResponse{Error: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *IPRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = l
	}
	l.lastSeen = time.Now()
	return l.limiter.Allow()
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for ip, l := range rl.limiters {
				if time.Since(l.lastSeen) > 10*time.Minute {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
