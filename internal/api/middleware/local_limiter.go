package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter 进程内令牌桶限流，Redis 不可用时替代滑动窗口计数
// 每个 key 独立一个桶：容量 limit，每 window/limit 补充一个令牌
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocalLimiter 创建进程内限流器
func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{limiters: make(map[string]*rate.Limiter)}
}

// CheckRateLimit 实现 RateLimiter
func (l *LocalLimiter) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}
