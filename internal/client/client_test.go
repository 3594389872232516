package client_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/auth"
	"github.com/opsdeck/opsdeck/internal/client"
	"github.com/opsdeck/opsdeck/internal/common/config"
	"github.com/opsdeck/opsdeck/internal/directory"
	"github.com/opsdeck/opsdeck/internal/messaging"
	"github.com/opsdeck/opsdeck/internal/signal"
	"github.com/opsdeck/opsdeck/internal/store"
)

// memoryStore implements every store contract in memory so the facade
// can be exercised end to end without a server.
type memoryStore struct {
	mu       sync.Mutex
	nextID   int
	messages map[string][]messaging.Message
	marked   map[string]int
	typing   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		messages: make(map[string][]messaging.Message),
		marked:   make(map[string]int),
	}
}

func (m *memoryStore) FetchMessages(_ context.Context, scopeID string, _ int) ([]messaging.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]messaging.Message, len(m.messages[scopeID]))
	copy(out, m.messages[scopeID])
	return out, nil
}

func (m *memoryStore) PostMessage(_ context.Context, draft store.Draft) (*messaging.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg := messaging.Message{
		ID:        fmt.Sprintf("m%d", m.nextID),
		Kind:      draft.Kind,
		Body:      messaging.TextBody{Content: draft.Content},
		ScopeID:   draft.ScopeID,
		CreatedAt: time.Now(),
	}
	m.messages[draft.ScopeID] = append(m.messages[draft.ScopeID], msg)
	return &msg, nil
}

func (m *memoryStore) EditMessage(context.Context, string, string) (*messaging.Message, error) {
	return &messaging.Message{}, nil
}
func (m *memoryStore) DeleteMessage(context.Context, string) error { return nil }
func (m *memoryStore) AddReaction(context.Context, string, string) error { return nil }
func (m *memoryStore) RemoveReaction(context.Context, string, string) error { return nil }
func (m *memoryStore) PinMessage(context.Context, string) error { return nil }
func (m *memoryStore) UnpinMessage(context.Context, string) error { return nil }
func (m *memoryStore) StarMessage(context.Context, string) error { return nil }
func (m *memoryStore) UnstarMessage(context.Context, string) error { return nil }

func (m *memoryStore) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked[id]++
	return nil
}

func (m *memoryStore) FetchReadStatus(context.Context, string) ([]store.UserRef, error) {
	return nil, nil
}

func (m *memoryStore) PostTyping(context.Context, string, bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing++
	return nil
}

func (m *memoryStore) CreateCall(context.Context, string, string) (string, error) {
	return "call-1", nil
}
func (m *memoryStore) AcceptCall(context.Context, string) error { return nil }
func (m *memoryStore) RejectCall(context.Context, string) error { return nil }
func (m *memoryStore) EndCall(context.Context, string) error { return nil }
func (m *memoryStore) ListPendingCalls(context.Context, string) ([]string, error) {
	return nil, nil
}

type nullTransport struct{}

func (nullTransport) Publish(context.Context, string, signal.Signal) error { return nil }

func (nullTransport) Subscribe(ctx context.Context, _ string, _ func(signal.Signal)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (nullTransport) Close() error { return nil }

func newTestClient(ms *memoryStore) *client.Client {
	cfg := &config.Config{}
	cfg.Typing.Debounce = 10 * time.Millisecond
	cfg.Feed.PollInterval = 20 * time.Millisecond

	return client.New(cfg, client.Deps{
		Identity: &auth.Identity{UserID: "self", DisplayName: "Self User"},
		Directory: directory.New([]directory.User{
			{ID: "u1", FirstName: "Ahmet", LastName: "Yılmaz"},
		}),
		Stores: client.Stores{
			Messages: ms,
			Presence: ms,
			Calls:    ms,
		},
		Transport: nullTransport{},
	})
}

func TestSendDraftFlowsThroughComposer(t *testing.T) {
	ms := newMemoryStore()
	c := newTestClient(ms)
	ctx := context.Background()

	c.SetScope(ctx, "room-1")
	c.Keystroke("hi @ahm")
	require.True(t, c.Composer.InsertMention(directory.User{ID: "u1", FirstName: "Ahmet", LastName: "Yılmaz"}))

	msg, err := c.SendDraft(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "hi @[u1:Ahmet Yılmaz] ", msg.Content())
	assert.True(t, c.Composer.Empty())

	stored, err := ms.FetchMessages(ctx, "room-1", 50)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestSendDraftEmptyBuffer(t *testing.T) {
	c := newTestClient(newMemoryStore())

	msg, err := c.SendDraft(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestSetScopeFansOut(t *testing.T) {
	ms := newMemoryStore()
	c := newTestClient(ms)
	ctx := context.Background()

	c.SetScope(ctx, "room-1")
	assert.Equal(t, "room-1", c.Feed.Scope())
	ms.mu.Lock()
	marks := ms.marked["room-1"]
	ms.mu.Unlock()
	assert.Equal(t, 1, marks, "entering a scope marks it read")

	c.SetScope(ctx, "room-1")
	ms.mu.Lock()
	marks = ms.marked["room-1"]
	ms.mu.Unlock()
	assert.Equal(t, 2, marks, "re-entry marks the scope again")
}

func TestKeystrokeTriggersTyping(t *testing.T) {
	ms := newMemoryStore()
	c := newTestClient(ms)

	c.SetScope(context.Background(), "room-1")
	c.Keystroke("h")
	c.Keystroke("i")

	require.Eventually(t, func() bool {
		ms.mu.Lock()
		defer ms.mu.Unlock()
		return ms.typing == 1
	}, time.Second, 5*time.Millisecond, "a keystroke burst emits one typing signal")
}

func TestOpenMessageMarksRead(t *testing.T) {
	ms := newMemoryStore()
	c := newTestClient(ms)
	ctx := context.Background()

	c.OpenMessage(ctx, "m1")
	c.OpenMessage(ctx, "m1")

	ms.mu.Lock()
	defer ms.mu.Unlock()
	assert.Equal(t, 1, ms.marked["m1"])
}

func TestRunStopsOnCancel(t *testing.T) {
	ms := newMemoryStore()
	c := newTestClient(ms)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
