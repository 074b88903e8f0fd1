package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"tourbook-api/utils"
)

const (
	viewKey = "renderView"

	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes = 10 << 10

	rateLimitMessage = "Too many requests from this IP, please try again in an hour!"
)

// MarkView tells ErrorHandler to answer with an HTML page instead of JSON.
func MarkView() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(viewKey, true)
		c.Next()
	}
}

func isView(c *gin.Context) bool {
	return c.GetBool(viewKey)
}

// ErrorHandler turns the last error pushed with c.Error into a response.
// Unexpected errors are logged; in production their details are hidden.
func ErrorHandler(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := utils.AsAppError(c.Errors.Last().Err)
		if !appErr.IsOperational() {
			log.Printf("ERROR %s %s: %v", c.Request.Method, c.Request.URL.Path, appErr)
		}
		if production && !appErr.IsOperational() {
			appErr = &utils.AppError{Kind: appErr.Kind, Status: appErr.Status, Message: "Something went very wrong!"}
		}

		if isView(c) {
			if appErr.Status == http.StatusUnauthorized {
				c.Redirect(http.StatusFound, "/login")
				return
			}
			c.HTML(appErr.Status, "error.html", gin.H{
				"title": "Something went wrong!",
				"msg":   appErr.Message,
				"user":  CurrentUser(c),
			})
			return
		}
		utils.SendError(c, appErr)
	}
}

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	limiters map[string]*visitor
	mutex    sync.Mutex
	rate     rate.Limit
	burst    int
	window   time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows limit requests per window for each client.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     rate.Every(window / time.Duration(limit)),
		burst:    limit,
		window:   window,
	}
}

// GetLimiter returns the rate limiter for a given key (IP address)
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	v, exists := rl.limiters[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// CleanupLimiters forgets clients idle for longer than one window; their
// bucket would be full again by now.
func (rl *RateLimiter) CleanupLimiters() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	for key, v := range rl.limiters {
		if time.Since(v.lastSeen) > rl.window {
			delete(rl.limiters, key)
		}
	}
}

// RateLimit middleware
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	rateLimiter := NewRateLimiter(limit, window)

	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()

		for range ticker.C {
			rateLimiter.CleanupLimiters()
		}
	}()

	return rateLimiter.Handler()
}

// Handler is the gin side of the limiter, without the cleanup goroutine.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.GetLimiter(c.ClientIP())
		reset := strconv.FormatInt(time.Now().Add(rl.window).Unix(), 10)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		if !limiter.Allow() {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", reset)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, utils.ErrorResponse{
				Status:  "fail",
				Message: rateLimitMessage,
			})
			return
		}

		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", reset)
		c.Next()
	}
}

// ValidateJSON requires a JSON content type on non-empty write requests and
// caps the body size. Multipart uploads are exempt.
func ValidateJSON(skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, path := range skipPaths {
			if strings.HasSuffix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodDelete, http.MethodOptions, http.MethodHead:
			c.Next()
			return
		}
		if c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		contentType := c.GetHeader("Content-Type")
		if !strings.Contains(contentType, "application/json") {
			c.AbortWithStatusJSON(http.StatusBadRequest, utils.ErrorResponse{
				Status:  "fail",
				Message: "Content-Type must be application/json; charset=utf-8",
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
		c.Next()
	}
}

// RequestLogger middleware for detailed request logging
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		userAgent := c.Request.UserAgent()

		if raw != "" {
			path = path + "?" + raw
		}

		userID := "-"
		if user := CurrentUser(c); user != nil {
			userID = user.ID
		}

		// [IP] METHOD PATH STATUS LATENCY USER USER_AGENT
		fmt.Printf("[%s] %s %s %d %v %s %s\n",
			clientIP,
			method,
			path,
			status,
			latency,
			userID,
			userAgent,
		)
	}
}

var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' https://cdn.jsdelivr.net https://cdnjs.cloudflare.com https://js.stripe.com",
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
	"font-src 'self' https://fonts.gstatic.com",
	"img-src 'self' data:",
	"connect-src 'self' https://api.stripe.com",
	"frame-src 'self' https://js.stripe.com",
}, "; ")

// SecurityHeaders middleware adds security headers
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", contentSecurityPolicy)
		c.Next()
	}
}
