package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	defaultSweepInterval  = time.Minute
)

// RateLimitRule is a token bucket refilling Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// RateLimitConfig selects a rule per request. GroupFor may return "" to fall
// back to DefaultGroup; groups without a rule are not limited.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter holds one bucket per principal and group. Buckets that have
// refilled to their burst are dropped on the next sweep since a new bucket
// starts in the same state.
type RateLimiter struct {
	mu            sync.Mutex
	buckets       map[string]*rateBucket
	now           func() time.Time
	sweepInterval time.Duration
	lastSweep     time.Time
}

type rateBucket struct {
	tokens float64
	last   time.Time
	fullAt time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets:       make(map[string]*rateBucket),
		now:           now,
		sweepInterval: defaultSweepInterval,
		lastSweep:     now(),
	}
}

// RateLimit rejects requests over the group's rule with 429 and a
// Retry-After header. Authenticated callers are keyed by user ID, others by
// client IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = strings.TrimSpace(c.ClientIP())
		}
		allowed, retryAfter := cfg.Limiter.Allow(principal+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}
		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds <= 0 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited",
			fmt.Sprintf("Request was throttled. Expected available in %d seconds.", seconds))
	}
}

// Allow consumes one token from the bucket under key. When the bucket is
// empty it reports how long until the next token.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)

	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &rateBucket{tokens: float64(rule.Burst), last: now}
		l.buckets[key] = bucket
	}
	if elapsed := now.Sub(bucket.last).Seconds(); elapsed > 0 {
		bucket.tokens = math.Min(float64(rule.Burst), bucket.tokens+elapsed*rule.Rate)
		bucket.last = now
	}

	allowed := bucket.tokens >= 1
	if allowed {
		bucket.tokens--
	}
	missing := float64(rule.Burst) - bucket.tokens
	bucket.fullAt = now.Add(secondsToDuration(missing / rule.Rate))
	if allowed {
		return true, 0
	}
	return false, secondsToDuration((1 - bucket.tokens) / rule.Rate)
}

// Len reports the number of live buckets.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.sweepInterval {
		return
	}
	for key, b := range l.buckets {
		if !now.Before(b.fullAt) {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func secondsToDuration(sec float64) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(sec*1000)) * time.Millisecond
}
