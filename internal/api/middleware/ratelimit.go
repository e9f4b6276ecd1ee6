package middleware

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// TokenBucket 令牌桶限流器
type TokenBucket struct {
	rate           float64 // 每秒生成的令牌数
	capacity       float64 // 桶的容量
	tokens         float64 // 当前令牌数
	lastRefillTime time.Time
	mutex          sync.Mutex
	now            func() time.Time
}

// NewTokenBucket 按每分钟请求数创建限流器，capacity<=0 时取每分钟请求数的一半
func NewTokenBucket(perMinute int, capacity int) *TokenBucket {
	if capacity <= 0 {
		capacity = max(perMinute/2, 1)
	}
	return &TokenBucket{
		rate:           float64(perMinute) / 60.0,
		capacity:       float64(capacity),
		tokens:         float64(capacity), // 初始填满
		lastRefillTime: time.Now(),
		now:            time.Now,
	}
}

// refill 根据经过的时间填充令牌
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now
	tb.tokens = math.Min(tb.capacity, tb.tokens+elapsed*tb.rate)
}

// Allow 消耗一个令牌；没有令牌时返回 false 和预计等待时间
func (tb *TokenBucket) Allow() (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true, 0
	}
	if tb.rate <= 0 {
		return false, time.Minute
	}
	return false, time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
}

// RateLimit 超出限额的请求返回 429 并带上 Retry-After
func RateLimit(tb *TokenBucket) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		ok, wait := tb.Allow()
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, utils.H{"error": "请求过于频繁，请稍后重试"})
			return
		}
		c.Next(ctx)
	}
}
