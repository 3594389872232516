package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

type LimitConfig struct {
	PerMinute int
	Burst     int
}

// Limiter is a local token-bucket limiter with per-class limits. It
// caps outbound chatter (typing signals, message posts) so a flapping
// debounce or a paste storm cannot flood the store.
type Limiter struct {
	mu       sync.Mutex
	limits   map[string]LimitConfig
	limiters map[string]*rate.Limiter
	enabled  bool
}

func NewLimiter(defaults LimitConfig, enabled bool) *Limiter {
	return &Limiter{
		limits: map[string]LimitConfig{
			"default": defaults,
			"typing":  {PerMinute: 30, Burst: 5},
			"message": {PerMinute: 120, Burst: 20},
		},
		limiters: make(map[string]*rate.Limiter),
		enabled:  enabled,
	}
}

func (l *Limiter) SetLimit(class string, cfg LimitConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits[class] = cfg
	delete(l.limiters, class)
}

func (l *Limiter) Allow(class string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	limiter, ok := l.limiters[class]
	if !ok {
		cfg, found := l.limits[class]
		if !found {
			cfg = l.limits["default"]
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.PerMinute)/60.0), cfg.Burst)
		l.limiters[class] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

func (l *Limiter) Reset(class string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, class)
}
