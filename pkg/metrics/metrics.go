package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Collector tracks the HTTP counters of the connector plus named outcome
// counters such as "ship.outgoing.users".
type Collector struct {
	totalRequests   atomic.Int64
	failedRequests  atomic.Int64
	totalLatencyMic atomic.Int64
	startedAt       time.Time

	mu       sync.RWMutex
	counters map[string]*atomic.Int64
}

func New() *Collector {
	return &Collector{
		startedAt: time.Now(),
		counters:  make(map[string]*atomic.Int64),
	}
}

// Increment adds delta to the named counter, creating it on first use.
func (c *Collector) Increment(name string, delta int64) {
	c.mu.RLock()
	counter, ok := c.counters[name]
	c.mu.RUnlock()
	if !ok {
		c.mu.Lock()
		if counter, ok = c.counters[name]; !ok {
			counter = new(atomic.Int64)
			c.counters[name] = counter
		}
		c.mu.Unlock()
	}
	counter.Add(delta)
}

// Value returns the current value of a named counter.
func (c *Collector) Value(name string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if counter, ok := c.counters[name]; ok {
		return counter.Load()
	}
	return 0
}

func (c *Collector) snapshot() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.counters))
	for name, counter := range c.counters {
		out[name] = counter.Load()
	}
	return out
}

// GinMiddleware records request count, failures, and aggregate latency.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		c.totalRequests.Add(1)
		if ctx.Writer.Status() >= http.StatusInternalServerError {
			c.failedRequests.Add(1)
		}
		c.totalLatencyMic.Add(time.Since(start).Microseconds())
	}
}

// Handler exposes the metrics in a simple JSON form.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs := c.totalRequests.Load()
		latency := c.totalLatencyMic.Load()
		var avgMicros int64
		if reqs > 0 {
			avgMicros = latency / reqs
		}

		payload := map[string]interface{}{
			"requests_total":     reqs,
			"requests_failed":    c.failedRequests.Load(),
			"avg_latency_micros": avgMicros,
			"uptime_seconds":     int64(time.Since(c.startedAt).Seconds()),
			"counters":           c.snapshot(),
			"timestamp":          time.Now().UTC(),
			"success":            true,
			"message":            "connector metrics snapshot",
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})
}
