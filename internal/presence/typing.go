package presence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opsdeck/opsdeck/internal/observability"
	"github.com/opsdeck/opsdeck/internal/ratelimit"
	"github.com/opsdeck/opsdeck/internal/store"
)

const DefaultTypingDebounce = 400 * time.Millisecond

// TypingNotifier debounces keystrokes into a single typing broadcast for
// the active scope. It never emits a stop signal; indicator expiry is the
// receiving side's concern.
type TypingNotifier struct {
	mu       sync.Mutex
	store    store.PresenceStore
	limiter  *ratelimit.Limiter
	metrics  *observability.Metrics
	logger   *zap.Logger
	debounce time.Duration
	scope    string
	timer    *time.Timer
	stopped  bool
}

func NewTypingNotifier(presenceStore store.PresenceStore, debounce time.Duration, limiter *ratelimit.Limiter, metrics *observability.Metrics, logger *zap.Logger) *TypingNotifier {
	if debounce <= 0 {
		debounce = DefaultTypingDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypingNotifier{
		store:    presenceStore,
		limiter:  limiter,
		metrics:  metrics,
		logger:   logger,
		debounce: debounce,
	}
}

func (n *TypingNotifier) SetScope(scope string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.scope = scope
}

// Keystroke restarts the debounce window. When the window elapses
// without another keystroke, one typing signal is emitted.
func (n *TypingNotifier) Keystroke() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopped || n.scope == "" {
		return
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	scope := n.scope
	n.timer = time.AfterFunc(n.debounce, func() {
		n.emit(scope)
	})
}

func (n *TypingNotifier) emit(scope string) {
	n.mu.Lock()
	if n.stopped || scope != n.scope {
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	if n.limiter != nil && !n.limiter.Allow("typing") {
		n.logger.Debug("typing signal suppressed by rate limit", zap.String("scope", scope))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := n.store.PostTyping(ctx, scope, true); err != nil {
		// Transient by taxonomy: never surfaced.
		n.logger.Debug("typing broadcast failed",
			zap.String("scope", scope),
			zap.Error(err),
		)
		return
	}
	n.metrics.ObserveTypingSignal()
}

func (n *TypingNotifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stopped = true
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
