package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/conosleague/roster-optimizer/pkg/utils"
)

// UploadRateLimit throttles expensive upload-and-optimize requests per
// client IP. perMinute is the sustained rate; a small burst is allowed so
// a retry after a malformed file is not rejected.
func UploadRateLimit(perMinute float64) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	type clientLimiter struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var mu sync.Mutex
	clients := make(map[string]*clientLimiter)

	// Drop limiters for clients idle past an hour so the map stays small.
	go func() {
		for range time.Tick(10 * time.Minute) {
			mu.Lock()
			for ip, cl := range clients {
				if time.Since(cl.lastSeen) > time.Hour {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		cl, ok := clients[ip]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), 3)}
			clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		mu.Unlock()

		if !cl.limiter.Allow() {
			utils.SendTooManyRequests(c, "Too many uploads, slow down")
			c.Abort()
			return
		}

		c.Next()
	}
}
