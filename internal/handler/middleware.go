package handler

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"learnlink-server/internal/domain"
	"learnlink-server/pkg/metrics"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the per-IP limiter table
const maxTrackedClients = 10000

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// routeName returns the matched mux template so metrics stay low-cardinality
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// RequestLogger logs every request and records its latency and status
func RequestLogger(log domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routeName(r)
			elapsed := time.Since(start)
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())

			fields := []interface{}{"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", elapsed.String()}
			if rec.status >= http.StatusInternalServerError {
				log.Warn("Request completed with server error", fields...)
				return
			}
			log.Debug("Request completed", fields...)
		})
	}
}

// RateLimiter throttles the generation endpoints per client IP
type RateLimiter struct {
	mu      sync.Mutex
	clients *lru.Cache[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
	proxies trustedProxies
}

// NewRateLimiter allows rps requests per second with the given burst per client. rps <= 0 disables limiting.
// Clients are keyed by socket address unless the request arrives through one of proxies.
func NewRateLimiter(rps float64, burst int, proxies trustedProxies) *RateLimiter {
	clients, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{clients: clients, limit: rate.Limit(rps), burst: burst, proxies: proxies}
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.clients.Get(ip); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.clients.Add(ip, lim)
	return lim
}

// Middleware rejects requests over the client's budget with 429
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.limit > 0 && !l.limiter(clientIP(r, l.proxies)).Allow() {
			metrics.RateLimitRejected.WithLabelValues(routeName(r)).Inc()
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many generation requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
