package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"

	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/interfaces/rest/response"
)

// RateLimiter allows max requests per window for each client IP. Limiters
// of idle clients expire after one window.
type RateLimiter struct {
	window  time.Duration
	max     int
	clients *ttlcache.Cache[string, *rate.Limiter]
	logger  logger.Logger
}

func NewRateLimiter(window time.Duration, max int, log logger.Logger) *RateLimiter {
	clients := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](window),
	)
	go clients.Start()

	return &RateLimiter{
		window:  window,
		max:     max,
		clients: clients,
		logger:  log.WithField("component", "rate-limiter"),
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	if item := rl.clients.Get(ip); item != nil {
		return item.Value()
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rl.max)/rl.window.Seconds()), rl.max)
	item, _ := rl.clients.GetOrSet(ip, limiter)
	return item.Value()
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.limiter(c.ClientIP())

		c.Header("RateLimit-Limit", strconv.Itoa(rl.max))

		res := limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			rl.logger.Warnf("Rate limit exceeded for %s on %s", c.ClientIP(), c.Request.URL.Path)

			c.Header("Retry-After", fmt.Sprintf("%.0f", math.Ceil(delay.Seconds())))
			c.Header("RateLimit-Remaining", "0")
			response.Fail(c, http.StatusTooManyRequests, "Too many requests from this IP, please try again later.", gin.H{
				"retryAfter": rl.window.String(),
			})
			return
		}

		c.Header("RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}

// Stop ends the cache expiry loop.
func (rl *RateLimiter) Stop() {
	rl.clients.Stop()
}
