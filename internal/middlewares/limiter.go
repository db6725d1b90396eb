package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/utils"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

// 桶数量超过该值时清理已经回满的桶
const maxBurstBuckets = 10000

// BurstLimiter 按客户端 IP + 路由的进程内令牌桶，只用于削峰
// 下载次数与尝试窗口的判定以数据库流水为准
type BurstLimiter struct {
	mu           sync.Mutex
	buckets      map[string]*ratelimit.Bucket
	fillInterval time.Duration
	capacity     int64
}

func NewBurstLimiter(fillInterval time.Duration, capacity int64) *BurstLimiter {
	return &BurstLimiter{
		buckets:      make(map[string]*ratelimit.Bucket),
		fillInterval: fillInterval,
		capacity:     capacity,
	}
}

func (l *BurstLimiter) bucket(key string) *ratelimit.Bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxBurstBuckets {
			l.pruneLocked()
		}
		b = ratelimit.NewBucket(l.fillInterval, l.capacity)
		l.buckets[key] = b
	}
	return b
}

// 满桶与新建的桶等价，可以直接丢弃
func (l *BurstLimiter) pruneLocked() {
	for k, b := range l.buckets {
		if b.Available() >= l.capacity {
			delete(l.buckets, k)
		}
	}
}

// RateLimiter 桶内没有令牌时按限流拒绝，响应与授权流程的限流一致
func RateLimiter(l *BurstLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.fillInterval <= 0 || l.capacity <= 0 {
			c.Next()
			return
		}
		key := utils.ClientIP(c) + "|" + c.FullPath()
		if l.bucket(key).TakeAvailable(1) == 0 {
			xerr.JSONResponse(c, http.StatusForbidden, xerr.RateLimitedCode, xerr.ErrRateLimited.Error(),
				gin.H{"reason": xerr.Reason(xerr.ErrRateLimited)})
			c.Abort()
			return
		}
		c.Next()
	}
}
