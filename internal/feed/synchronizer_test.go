package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/messaging"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/store"
)

type fakeMessageStore struct {
	mu       sync.Mutex
	byScope  map[string][]messaging.Message
	fetchErr error

	postErr   error
	postHook  func()
	posted    []store.Draft
	editErr   error
	actionErr error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{byScope: make(map[string][]messaging.Message)}
}

func (f *fakeMessageStore) put(scope string, msgs ...messaging.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byScope[scope] = append(f.byScope[scope], msgs...)
}

func (f *fakeMessageStore) FetchMessages(_ context.Context, scopeID string, _ int) ([]messaging.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]messaging.Message, len(f.byScope[scopeID]))
	copy(out, f.byScope[scopeID])
	return out, nil
}

func (f *fakeMessageStore) PostMessage(_ context.Context, draft store.Draft) (*messaging.Message, error) {
	if f.postHook != nil {
		f.postHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return nil, f.postErr
	}
	f.posted = append(f.posted, draft)
	msg := messaging.Message{
		ID:        "posted-1",
		Kind:      messaging.KindText,
		Body:      messaging.TextBody{Content: draft.Content},
		ScopeID:   draft.ScopeID,
		CreatedAt: time.Now(),
	}
	return &msg, nil
}

func (f *fakeMessageStore) EditMessage(_ context.Context, messageID, content string) (*messaging.Message, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	now := time.Now()
	return &messaging.Message{
		ID:       messageID,
		Kind:     messaging.KindText,
		Body:     messaging.TextBody{Content: content},
		EditedAt: &now,
	}, nil
}

func (f *fakeMessageStore) DeleteMessage(context.Context, string) error { return f.actionErr }

func (f *fakeMessageStore) AddReaction(context.Context, string, string) error {
	return f.actionErr
}

func (f *fakeMessageStore) RemoveReaction(context.Context, string, string) error {
	return f.actionErr
}

func (f *fakeMessageStore) PinMessage(context.Context, string) error { return f.actionErr }

func (f *fakeMessageStore) UnpinMessage(context.Context, string) error { return f.actionErr }

func (f *fakeMessageStore) StarMessage(context.Context, string) error { return f.actionErr }

func (f *fakeMessageStore) UnstarMessage(context.Context, string) error { return f.actionErr }

func msg(id, scope string, at time.Time) messaging.Message {
	return messaging.Message{
		ID:        id,
		Kind:      messaging.KindText,
		Body:      messaging.TextBody{Content: "msg " + id},
		ScopeID:   scope,
		CreatedAt: at,
	}
}

func newTestSynchronizer(t *testing.T, fs *fakeMessageStore) *Synchronizer {
	t.Helper()
	return NewSynchronizer(fs, "self", Options{}, notify.NewRecorder(), nil, nil)
}

func TestFetchPopulatesOrderedList(t *testing.T) {
	fs := newFakeMessageStore()
	base := time.Now()
	fs.put("alpha",
		msg("m2", "alpha", base.Add(time.Second)),
		msg("m1", "alpha", base),
		msg("m3", "alpha", base.Add(time.Second)),
	)

	s := newTestSynchronizer(t, fs)
	s.SetScope("alpha")
	s.fetchOnce(context.Background())

	got := s.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].ID)
	// Equal timestamps break ties on id so the order is stable across polls.
	assert.Equal(t, "m2", got[1].ID)
	assert.Equal(t, "m3", got[2].ID)
}

func TestFetchFailureKeepsPreviousList(t *testing.T) {
	fs := newFakeMessageStore()
	fs.put("alpha", msg("m1", "alpha", time.Now()))

	s := newTestSynchronizer(t, fs)
	s.SetScope("alpha")
	s.fetchOnce(context.Background())
	require.Len(t, s.Messages(), 1)

	fs.mu.Lock()
	fs.fetchErr = context.DeadlineExceeded
	fs.mu.Unlock()

	s.fetchOnce(context.Background())
	assert.Len(t, s.Messages(), 1, "failed poll keeps the previous list")
}

func TestStaleResponseDiscardedAfterScopeSwitch(t *testing.T) {
	fs := newFakeMessageStore()
	fs.put("alpha", msg("a1", "alpha", time.Now()))
	fs.put("beta", msg("b1", "beta", time.Now()))

	s := newTestSynchronizer(t, fs)
	s.SetScope("alpha")

	// Capture the generation an in-flight fetch would carry, then switch
	// scope before the response lands.
	s.mu.Lock()
	staleGen := s.generation
	s.mu.Unlock()
	staleMsgs, err := fs.FetchMessages(context.Background(), "alpha", 50)
	require.NoError(t, err)

	s.SetScope("beta")
	s.apply(staleGen, staleMsgs)
	assert.Empty(t, s.Messages(), "response from the old scope never lands")

	s.fetchOnce(context.Background())
	got := s.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)
}

func TestScopeSwitchResetsScrollState(t *testing.T) {
	fs := newFakeMessageStore()
	fs.put("alpha", msg("a1", "alpha", time.Now()))

	s := newTestSynchronizer(t, fs)
	s.SetScope("alpha")
	s.SetBottomDistance(500)
	s.fetchOnce(context.Background())
	s.fetchOnce(context.Background())

	s.SetScope("beta")
	assert.Equal(t, 0, s.Unread())
	assert.False(t, s.ShowJumpToLatest())
	assert.True(t, s.AtBottom())
	assert.Empty(t, s.Messages())
}

func TestUnreadAccumulatesWhileScrolledAway(t *testing.T) {
	fs := newFakeMessageStore()
	base := time.Now()
	fs.put("alpha", msg("m1", "alpha", base))

	s := newTestSynchronizer(t, fs)
	s.SetScope("alpha")
	s.fetchOnce(context.Background())
	assert.Equal(t, 0, s.Unread(), "arrivals at the bottom auto-scroll instead of counting")

	s.SetBottomDistance(300)
	fs.put("alpha", msg("m2", "alpha", base.Add(time.Second)))
	s.fetchOnce(context.Background())

	assert.Equal(t, 1, s.Unread())
	assert.True(t, s.ShowJumpToLatest())

	fs.put("alpha", msg("m3", "alpha", base.Add(2*time.Second)), msg("m4", "alpha", base.Add(3*time.Second)))
	s.fetchOnce(context.Background())
	assert.Equal(t, 3, s.Unread(), "counter accumulates across polls")

	s.JumpToLatest()
	assert.Equal(t, 0, s.Unread())
	assert.False(t, s.ShowJumpToLatest())
	assert.True(t, s.AtBottom())
}

func TestBottomToleranceCountsAsBottom(t *testing.T) {
	fs := newFakeMessageStore()
	s := newTestSynchronizer(t, fs)

	s.SetBottomDistance(39)
	assert.True(t, s.AtBottom(), "within tolerance still tracks the bottom")

	s.SetBottomDistance(41)
	assert.False(t, s.AtBottom())
}

func TestRunPollsUntilStopped(t *testing.T) {
	fs := newFakeMessageStore()
	fs.put("alpha", msg("m1", "alpha", time.Now()))

	s := NewSynchronizer(fs, "self", Options{PollInterval: 10 * time.Millisecond}, notify.NewRecorder(), nil, nil)
	s.SetScope("alpha")

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(s.Messages()) == 1
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestVisibleMessagesFiltersExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	fs := newFakeMessageStore()
	burned := msg("m1", "alpha", past)
	burned.SelfDestruct = true
	burned.ExpiresAt = &past

	alive := msg("m2", "alpha", past)

	stale := messaging.Message{
		ID:        "m3",
		Kind:      messaging.KindLiveLocation,
		Body:      messaging.LocationBody{LiveUntil: &past},
		ScopeID:   "alpha",
		CreatedAt: past,
	}
	live := messaging.Message{
		ID:        "m4",
		Kind:      messaging.KindLiveLocation,
		Body:      messaging.LocationBody{LiveUntil: &future},
		ScopeID:   "alpha",
		CreatedAt: past,
	}
	fs.put("alpha", burned, alive, stale, live)

	s := newTestSynchronizer(t, fs)
	s.SetScope("alpha")
	s.fetchOnce(context.Background())

	visible := s.VisibleMessages(now)
	require.Len(t, visible, 2)
	assert.Equal(t, "m2", visible[0].ID)
	assert.Equal(t, "m4", visible[1].ID)
}
