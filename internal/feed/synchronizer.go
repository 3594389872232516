package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opsdeck/opsdeck/internal/messaging"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/observability"
	"github.com/opsdeck/opsdeck/internal/store"
)

type Options struct {
	PollInterval    time.Duration
	PageSize        int
	BottomTolerance float64
}

func (o *Options) withDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.PageSize <= 0 {
		o.PageSize = 50
	}
	if o.BottomTolerance <= 0 {
		o.BottomTolerance = 40
	}
}

// Synchronizer owns the local message list for the active scope. The
// list is only replaced by the poll reconciliation step or appended by a
// confirmed send; every fetch response carries the scope generation it
// was issued under, and responses from a superseded generation are
// discarded.
type Synchronizer struct {
	mu sync.Mutex

	store    store.MessageStore
	notifier notify.Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger
	opts     Options

	selfID     string
	scope      string
	generation uint64

	messages []messaging.Message
	known    map[string]struct{}

	bottomDistance float64
	unread         int
	showJump       bool

	kick   chan struct{}
	stopCh chan struct{}
	once   sync.Once
}

func NewSynchronizer(msgStore store.MessageStore, selfID string, opts Options, notifier notify.Notifier, metrics *observability.Metrics, logger *zap.Logger) *Synchronizer {
	opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &Synchronizer{
		store:    msgStore,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		selfID:   selfID,
		known:    make(map[string]struct{}),
		kick:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Run polls until the context is cancelled or Stop is called. A failed
// fetch keeps the previous list and waits for the next tick.
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.fetchOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.fetchOnce(ctx)
		case <-s.kick:
			s.fetchOnce(ctx)
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

func (s *Synchronizer) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

func (s *Synchronizer) fetchOnce(ctx context.Context) {
	s.mu.Lock()
	scope := s.scope
	gen := s.generation
	s.mu.Unlock()

	messages, err := s.store.FetchMessages(ctx, scope, s.opts.PageSize)
	if err != nil {
		s.metrics.ObserveFetch("error")
		s.logger.Debug("feed fetch failed, retrying on next tick",
			zap.String("scope", scope),
			zap.Error(err),
		)
		return
	}
	s.apply(gen, messages)
}

func (s *Synchronizer) apply(gen uint64, messages []messaging.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.metrics.ObserveFetch("stale")
		s.logger.Debug("discarding stale fetch response",
			zap.Uint64("fetched_generation", gen),
			zap.Uint64("current_generation", s.generation),
		)
		return
	}
	s.metrics.ObserveFetch("ok")

	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	arrivals := 0
	known := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		known[m.ID] = struct{}{}
		if _, ok := s.known[m.ID]; !ok {
			arrivals++
		}
	}

	s.messages = messages
	s.known = known

	if s.atBottomLocked() {
		s.bottomDistance = 0
		s.unread = 0
		s.showJump = false
	} else if arrivals > 0 {
		s.unread += arrivals
		s.showJump = true
	}
	s.metrics.SetUnread(s.unread)
}

// SetScope switches the active audience scope. The auto-scroll intent
// resets, the generation advances so in-flight responses for the old
// scope are rejected, and a fresh fetch is requested immediately.
func (s *Synchronizer) SetScope(scope string) {
	s.mu.Lock()
	if scope == s.scope {
		s.mu.Unlock()
		return
	}
	s.scope = scope
	s.generation++
	s.messages = nil
	s.known = make(map[string]struct{})
	s.bottomDistance = 0
	s.unread = 0
	s.showJump = false
	s.metrics.SetUnread(0)
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// SetBottomDistance records how far the view is scrolled from the bottom
// anchor. Returning within tolerance clears the unread counter and the
// jump-to-latest affordance.
func (s *Synchronizer) SetBottomDistance(distance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if distance < 0 {
		distance = 0
	}
	s.bottomDistance = distance
	if s.atBottomLocked() {
		s.unread = 0
		s.showJump = false
		s.metrics.SetUnread(0)
	}
}

func (s *Synchronizer) JumpToLatest() {
	s.SetBottomDistance(0)
}

func (s *Synchronizer) atBottomLocked() bool {
	return s.bottomDistance <= s.opts.BottomTolerance
}

func (s *Synchronizer) AtBottom() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atBottomLocked()
}

func (s *Synchronizer) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *Synchronizer) ShowJumpToLatest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showJump
}

func (s *Synchronizer) Scope() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

func (s *Synchronizer) Messages() []messaging.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]messaging.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// VisibleMessages filters out expired self-destruct messages and expired
// live locations. Soft-deleted messages stay in the list; rendering
// hides their content.
func (s *Synchronizer) VisibleMessages(now time.Time) []messaging.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]messaging.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Expired(now) || m.LiveLocationExpired(now) {
			continue
		}
		out = append(out, m)
	}
	return out
}
