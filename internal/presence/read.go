package presence

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/opsdeck/opsdeck/internal/store"
)

// ReadTracker issues read-receipt marks against the store. Single-event
// marks are idempotent for this viewer: once an event is confirmed
// marked, repeated marks are local no-ops. Scope-level mark-all is never
// cached, because the scope may gain messages between visits.
type ReadTracker struct {
	mu     sync.Mutex
	store  store.PresenceStore
	seen   map[string]struct{}
	logger *zap.Logger
}

func NewReadTracker(presenceStore store.PresenceStore, logger *zap.Logger) *ReadTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadTracker{
		store:  presenceStore,
		seen:   make(map[string]struct{}),
		logger: logger,
	}
}

// MarkRead marks a single event as read. Only a confirmed store call is
// cached, so a failed mark is retried on the next trigger.
func (t *ReadTracker) MarkRead(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}

	t.mu.Lock()
	if _, ok := t.seen[eventID]; ok {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	if err := t.store.MarkRead(ctx, eventID); err != nil {
		t.logger.Debug("mark read failed",
			zap.String("id", eventID),
			zap.Error(err),
		)
		return err
	}

	t.mu.Lock()
	t.seen[eventID] = struct{}{}
	t.mu.Unlock()
	return nil
}

// EnterScope performs the automatic mark-all on entering a scope
// listing. Every entry re-issues the mark: messages may have arrived
// since the last visit, and the store keeps per-item idempotency anyway.
func (t *ReadTracker) EnterScope(ctx context.Context, scopeID string) error {
	if scopeID == "" {
		return nil
	}
	if err := t.store.MarkRead(ctx, scopeID); err != nil {
		t.logger.Debug("mark scope read failed",
			zap.String("scope_id", scopeID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// OpenItem performs the automatic single-item mark on opening an item.
func (t *ReadTracker) OpenItem(ctx context.Context, eventID string) error {
	return t.MarkRead(ctx, eventID)
}

func (t *ReadTracker) ReadStatus(ctx context.Context, eventID string) ([]store.UserRef, error) {
	return t.store.FetchReadStatus(ctx, eventID)
}

func (t *ReadTracker) Marked(scopeOrEventID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[scopeOrEventID]
	return ok
}
