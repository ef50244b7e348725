package interceptors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	lru "github.com/hashicorp/golang-lru/v2"
	apiutil "github.com/quresis/go-quresis-server/api/util"
	"github.com/quresis/go-quresis-server/global"
	"golang.org/x/time/rate"
)

const (
	LimitRequestsPerSecond = 20
	defaultLocalCacheSize  = 10000
)

// RateLimiter decides whether the client identified by key may make another request
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	Limit() int
}

// RedisRateLimiter shares the limit across server instances
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

func NewRedisRateLimiter(limiter *redis_rate.Limiter, perSecond, burst int) *RedisRateLimiter {
	l := redis_rate.PerSecond(perSecond)
	if burst > 0 {
		l.Burst = burst
	}
	return &RedisRateLimiter{limiter: limiter, limit: l}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	result, err := r.limiter.Allow(ctx, key, r.limit)
	if err != nil {
		return false, 0, err
	}
	return result.Allowed > 0, result.Remaining, nil
}

func (r *RedisRateLimiter) Limit() int {
	return r.limit.Rate
}

// LocalRateLimiter keeps a token bucket per client in an LRU cache
type LocalRateLimiter struct {
	buckets   *lru.Cache[string, *rate.Limiter]
	perSecond int
	burst     int
}

func NewLocalRateLimiter(perSecond, burst, cacheSize int) (*LocalRateLimiter, error) {
	if cacheSize <= 0 {
		cacheSize = defaultLocalCacheSize
	}
	if burst <= 0 {
		burst = perSecond
	}
	buckets, err := lru.New[string, *rate.Limiter](cacheSize)
	if err != nil {
		return nil, err
	}
	return &LocalRateLimiter{buckets: buckets, perSecond: perSecond, burst: burst}, nil
}

func (l *LocalRateLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	limiter, ok := l.buckets.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.perSecond), l.burst)
		// a concurrent request may have added the bucket already
		if prev, found, _ := l.buckets.PeekOrAdd(key, limiter); found {
			limiter = prev
		}
	}
	allowed := limiter.Allow()
	return allowed, int(limiter.Tokens()), nil
}

func (l *LocalRateLimiter) Limit() int {
	return l.perSecond
}

// NewRateLimiter selects the configured backend. Redis is used only when global.RateLimiter is set.
func NewRateLimiter(conf global.RateLimitConfig) (RateLimiter, error) {
	perSecond := conf.RequestsPerSecond
	if perSecond <= 0 {
		perSecond = LimitRequestsPerSecond
	}
	if conf.Backend == "redis" {
		if global.RateLimiter == nil {
			return nil, errors.New("redis rate limit backend configured without redis")
		}
		return NewRedisRateLimiter(global.RateLimiter, perSecond, conf.Burst), nil
	}
	return NewLocalRateLimiter(perSecond, conf.Burst, conf.LocalCacheSize)
}

func RateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip, _ := apiutil.GetIPFromContext(c)
		if ip == nil {
			unkn := "unknown"
			ip = &unkn
		}
		userAgent := c.GetHeader("User-Agent")
		acceptLanguage := c.GetHeader("Accept-Language")
		all := fmt.Sprintf("%s%s%s", *ip, userAgent, acceptLanguage)

		hash := xxhash.Sum64String(all)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		allowed, remaining, err := limiter.Allow(ctx, strconv.FormatUint(hash, 10))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to perform rate limit check"})
			return
		}
		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
