package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-grid/internal/logger"
)

// fixedWindow increments the bucket, starts its window on the first hit and
// returns {count, remaining ttl in ms}.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// rateLimitKey buckets authenticated requests per user and everything else
// per client IP.
func rateLimitKey(c *gin.Context) string {
	if userID, ok := GetUserID(c); ok {
		return cache.Key("ratelimit", "user", userID)
	}
	return cache.Key("ratelimit", "ip", c.ClientIP())
}

// RateLimiterMiddleware is a fixed-window counter in Redis. It fails open
// when Redis is unreachable.
func RateLimiterMiddleware(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	log := logger.With("ratelimit")

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := rateLimitKey(c)

		res, err := fixedWindow.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int64Slice()
		if err != nil || len(res) != 2 {
			log.Warn("redis unavailable, limiter skipped", "err", err)
			c.Next()
			return
		}

		count := res[0]
		reset := time.Duration(res[1]) * time.Millisecond
		if reset <= 0 {
			reset = window
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(limit)-count), 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

		if count > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(reset.Round(time.Second).Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}

		c.Next()
	}
}
