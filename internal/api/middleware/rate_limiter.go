package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	// Max requests per window
	Max int
	// Window duration
	Window time.Duration
	// KeyGenerator identifies the caller, the client IP by default
	KeyGenerator func(c *fiber.Ctx) string
	// Now is the time source, time.Now by default
	Now func() time.Time
}

// DefaultRateLimiterConfig allows 60 expensive calls per client per minute
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Max:    60,
		Window: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Now: time.Now,
	}
}

// clientWindow tracks a fixed window for one caller
type clientWindow struct {
	count      int
	windowEnd  time.Time
	lastAccess time.Time
}

// RateLimiter throttles uploads and stream starts per client. Each of them
// restarts the camera or runs inference, so bursts are rejected early.
type RateLimiter struct {
	config  RateLimiterConfig
	windows map[string]*clientWindow
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.Max <= 0 {
		config.Max = defaults.Max
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = defaults.KeyGenerator
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}

	rl := &RateLimiter{
		config:  config,
		windows: make(map[string]*clientWindow),
		done:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Stop shuts down the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.config.KeyGenerator(c)
		now := rl.config.Now()

		rl.mu.Lock()
		w, exists := rl.windows[key]
		if !exists || now.After(w.windowEnd) {
			w = &clientWindow{windowEnd: now.Add(rl.config.Window)}
			rl.windows[key] = w
		}
		w.count++
		w.lastAccess = now
		count, windowEnd := w.count, w.windowEnd
		rl.mu.Unlock()

		remaining := rl.config.Max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", windowEnd.Format(time.RFC3339))

		if count > rl.config.Max {
			c.Set("Retry-After", strconv.Itoa(int(windowEnd.Sub(now).Seconds())))
			return domain.ErrRateLimitExceeded
		}

		return c.Next()
	}
}

// cleanup removes callers idle for two windows
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.evict(rl.config.Now())
		}
	}
}

func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.windows {
		if now.Sub(w.lastAccess) > 2*rl.config.Window {
			delete(rl.windows, key)
		}
	}
}
