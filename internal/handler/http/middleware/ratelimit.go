package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/handler/http/response"
	"golang.org/x/time/rate"
)

const bucketTTL = 5 * time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimit is a token bucket per client IP. Idle buckets are swept every minute
// until ctx is done.
func RateLimit(ctx context.Context, burst int, perSecond float64) func(http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
	)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				mu.Lock()
				for ip, b := range buckets {
					if now.Sub(b.seen) > bucketTTL {
						delete(buckets, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	retryAfter := "1"
	if perSecond > 0 && perSecond < 1 {
		retryAfter = strconv.Itoa(int(1/perSecond + 0.5))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if ip == "" {
				ip = "unknown"
			}

			mu.Lock()
			b, ok := buckets[ip]
			if !ok {
				b = &bucket{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
				buckets[ip] = b
			}
			b.seen = time.Now()
			allowed := b.lim.Allow()
			mu.Unlock()

			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				response.TooManyRequests(w, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
