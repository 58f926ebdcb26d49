package server

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// requestID tags every request with an id, reusing the caller's when given.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs requests under prefix once they complete.
func requestLogger(logger *slog.Logger, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, prefix) {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("request_id", c.GetString(requestIDKey)))
	}
}

// corsMiddleware lets the desktop web view call the API from its own origin.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.CustomSchemas = customSchemas(origins)
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	cfg.ExposeHeaders = []string{requestIDHeader}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}

// customSchemas lists the non-http schemes among origins, e.g. tauri://.
func customSchemas(origins []string) []string {
	var schemas []string
	for _, o := range origins {
		scheme, _, ok := strings.Cut(o, "://")
		if !ok || scheme == "http" || scheme == "https" {
			continue
		}
		if !slices.Contains(schemas, scheme+"://") {
			schemas = append(schemas, scheme+"://")
		}
	}
	return schemas
}

// visitorTTL is how long an idle client keeps its limiter.
const (
	visitorTTL    = 10 * time.Minute
	maxVisitorTTL = 24 * time.Hour
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors holds one token bucket per client and drops clients idle for
// longer than ttl. ttl covers a full bucket refill, up to a day, so a
// dropped client comes back with the tokens it would have had anyway.
type visitors struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	seen      map[string]*visitor
	lastSweep time.Time
}

func newVisitors(r float64, burst int) *visitors {
	ttl := visitorTTL
	if refill := float64(burst) / r; refill > ttl.Seconds() {
		ttl = time.Duration(min(refill, maxVisitorTTL.Seconds()) * float64(time.Second))
	}
	return &visitors{
		limit: rate.Limit(r),
		burst: burst,
		ttl:   ttl,
		now:   time.Now,
		seen:  make(map[string]*visitor),
	}
}

func (vs *visitors) get(ip string) *rate.Limiter {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	now := vs.now()
	if now.Sub(vs.lastSweep) >= vs.ttl {
		for key, v := range vs.seen {
			if now.Sub(v.lastSeen) >= vs.ttl {
				delete(vs.seen, key)
			}
		}
		vs.lastSweep = now
	}

	v, ok := vs.seen[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(vs.limit, vs.burst)}
		vs.seen[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// rateLimiter applies a token bucket per client IP. A zero rate disables it.
func rateLimiter(r float64, burst int) gin.HandlerFunc {
	if r <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}

	clients := newVisitors(r, burst)
	return func(c *gin.Context) {
		if !clients.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
