package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/distsocial/streamnode/db"
	"github.com/distsocial/streamnode/federation"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// viewerKey is the gin context key carrying the authenticated local
// viewer's author URI, empty for anonymous requests.
const viewerKey = "viewer"

// RateLimiter holds rate limiters for different IP addresses
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
// r is requests per second, b is burst size
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    b,
	}
}

// getLimiter returns the rate limiter for a given IP address
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[ip] = limiter
	}

	return limiter
}

// cleanupOldLimiters keeps the limiter map from growing without bound.
func (rl *RateLimiter) cleanupOldLimiters() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		if len(rl.limiters) > 10000 {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware creates a Gin middleware for rate limiting
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	go rl.cleanupOldLimiters()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := rl.getLimiter(ip)

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// MaxBytesMiddleware limits the size of request bodies
func MaxBytesMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Request body too large",
			})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// NodeAuthMiddleware guards node-to-node endpoints with HTTP Basic
// checked against the registry's inbound credentials. Missing
// credentials are 401, wrong ones 403.
func NodeAuthMiddleware(registry *federation.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="node"`)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "node credentials required"})
			c.Abort()
			return
		}
		if !registry.CheckInbound(username, password) {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid node credentials"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ViewerAuthMiddleware identifies a local author via HTTP Basic against
// the authors table. With required=false anonymous requests pass
// through with an empty viewer; wrong credentials are rejected either
// way.
func ViewerAuthMiddleware(database *db.DB, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			if required {
				c.Header("WWW-Authenticate", `Basic realm="viewer"`)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
				c.Abort()
				return
			}
			c.Set(viewerKey, "")
			c.Next()
			return
		}

		err, author := database.FindAuthorByUsername(username)
		if err != nil || author == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid credentials"})
			c.Abort()
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(author.PasswordHash), []byte(password)) != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid credentials"})
			c.Abort()
			return
		}

		c.Set(viewerKey, author.Id)
		c.Next()
	}
}

// viewerOf returns the authenticated viewer's author URI, or "".
func viewerOf(c *gin.Context) string {
	return c.GetString(viewerKey)
}
