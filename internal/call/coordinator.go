package call

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsdeck/opsdeck/internal/common/errors"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/observability"
	"github.com/opsdeck/opsdeck/internal/signal"
	"github.com/opsdeck/opsdeck/internal/store"
)

type State int

const (
	StateIdle State = iota
	StateDialing
	StateIncoming
	StateActive
)

func (s State) String() string {
	switch s {
	case StateDialing:
		return "dialing"
	case StateIncoming:
		return "incoming"
	case StateActive:
		return "active"
	default:
		return "idle"
	}
}

const (
	KindAudio = "audio"
	KindVideo = "video"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	StatusRejected Status = "rejected"
)

type Session struct {
	ID         string
	CallerID   string
	ReceiverID string
	Kind       string
	Status     Status
	CreatedAt  time.Time
	AcceptedAt *time.Time
	EndedAt    *time.Time
}

// Coordinator is the call lifecycle state machine. It owns its state
// exclusively; store calls and signal emissions happen outside the lock
// and their completions re-enter through guarded transitions. At most
// one session is non-terminal at any time.
type Coordinator struct {
	mu        sync.Mutex
	selfID    string
	store     store.CallStore
	transport signal.Transport
	notifier  notify.Notifier
	metrics   *observability.Metrics
	logger    *zap.Logger

	state   State
	session *Session
}

func NewCoordinator(selfID string, callStore store.CallStore, transport signal.Transport, notifier notify.Notifier, metrics *observability.Metrics, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &Coordinator{
		selfID:    selfID,
		store:     callStore,
		transport: transport,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		state:     StateIdle,
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	out := *c.session
	return &out
}

func (c *Coordinator) transitionLocked(state State) {
	if c.state == state {
		return
	}
	c.logger.Info("call state transition",
		zap.String("from", c.state.String()),
		zap.String("to", state.String()),
	)
	c.state = state
	c.metrics.ObserveCallTransition(state.String())
}

// Dial creates a call record and rings the receiver. Only valid from
// Idle.
func (c *Coordinator) Dial(ctx context.Context, receiverID, kind string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return errors.ActionFailed("a call is already in progress", nil)
	}
	c.mu.Unlock()

	callID, err := c.store.CreateCall(ctx, receiverID, kind)
	if err != nil {
		c.notifier.Notify(notify.LevelError, "call could not be started")
		c.logger.Warn("create call failed",
			zap.String("receiver_id", receiverID),
			zap.Error(err),
		)
		return errors.ActionFailed("create call", err)
	}

	c.mu.Lock()
	if c.state != StateIdle {
		// Lost a race with an inbound call; release the record.
		c.mu.Unlock()
		_ = c.store.EndCall(ctx, callID)
		return errors.ActionFailed("a call is already in progress", nil)
	}
	c.session = &Session{
		ID:         callID,
		CallerID:   c.selfID,
		ReceiverID: receiverID,
		Kind:       kind,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
	}
	c.transitionLocked(StateDialing)
	c.mu.Unlock()

	sig := signal.Signal{
		ID:         uuid.NewString(),
		Event:      signal.EventInitiate,
		CallID:     callID,
		CallerID:   c.selfID,
		ReceiverID: receiverID,
		Kind:       kind,
	}
	if err := c.transport.Publish(ctx, receiverID, sig); err != nil {
		c.notifier.Notify(notify.LevelError, "call could not reach the other party")
		c.logger.Warn("initiate signal failed", zap.Error(err))
		c.resolveLocal(ctx, StatusEnded)
		return errors.ActionFailed("signal call", err)
	}
	return nil
}

// Accept answers the ringing call. When the initiate signal carried no
// call id, the id is reconciled by scanning the caller's pending calls.
func (c *Coordinator) Accept(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIncoming || c.session == nil {
		c.mu.Unlock()
		return errors.ActionFailed("no incoming call to accept", nil)
	}
	callID := c.session.ID
	callerID := c.session.CallerID
	c.mu.Unlock()

	if callID == "" {
		resolved, err := c.reconcileCallID(ctx, callerID)
		if err != nil {
			c.notifier.Notify(notify.LevelError, "call could not be accepted")
			c.reset()
			return errors.ActionFailed("resolve call id", err)
		}
		callID = resolved
		c.mu.Lock()
		if c.session != nil {
			c.session.ID = callID
		}
		c.mu.Unlock()
	}

	if err := c.store.AcceptCall(ctx, callID); err != nil {
		c.notifier.Notify(notify.LevelError, "call could not be accepted")
		c.logger.Warn("accept call failed",
			zap.String("call_id", callID),
			zap.Error(err),
		)
		c.reset()
		return errors.ActionFailed("accept call", err)
	}

	now := time.Now()
	c.mu.Lock()
	if c.state != StateIncoming || c.session == nil {
		// Concluded while the accept was in flight; the store already
		// reflects the final status.
		c.mu.Unlock()
		return nil
	}
	c.session.Status = StatusActive
	c.session.AcceptedAt = &now
	kind := c.session.Kind
	c.transitionLocked(StateActive)
	c.mu.Unlock()

	sig := signal.Signal{
		ID:         uuid.NewString(),
		Event:      signal.EventAccepted,
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: c.selfID,
		Kind:       kind,
	}
	if err := c.transport.Publish(ctx, callerID, sig); err != nil {
		c.logger.Warn("accepted signal failed", zap.Error(err))
	}
	return nil
}

// Reject declines the ringing call and tells the caller.
func (c *Coordinator) Reject(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIncoming || c.session == nil {
		c.mu.Unlock()
		return errors.ActionFailed("no incoming call to reject", nil)
	}
	callID := c.session.ID
	callerID := c.session.CallerID
	kind := c.session.Kind
	c.resetSessionLocked(StatusRejected)
	c.mu.Unlock()

	if callID != "" {
		if err := c.store.RejectCall(ctx, callID); err != nil {
			c.notifier.Notify(notify.LevelWarning, "call could not be rejected cleanly")
			c.logger.Warn("reject call failed", zap.String("call_id", callID), zap.Error(err))
		}
	}

	sig := signal.Signal{
		ID:         uuid.NewString(),
		Event:      signal.EventRejected,
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: c.selfID,
		Kind:       kind,
	}
	if err := c.transport.Publish(ctx, callerID, sig); err != nil {
		c.logger.Warn("rejected signal failed", zap.Error(err))
	}
	return nil
}

// HangUp ends the call from any non-Idle state. Dialing hang-up cancels
// the ring on the far end.
func (c *Coordinator) HangUp(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateIdle || c.session == nil {
		c.mu.Unlock()
		return nil
	}
	callID := c.session.ID
	peerID := c.peerIDLocked()
	kind := c.session.Kind
	c.resetSessionLocked(StatusEnded)
	c.mu.Unlock()

	if callID != "" {
		if err := c.store.EndCall(ctx, callID); err != nil {
			c.notifier.Notify(notify.LevelWarning, "call could not be ended cleanly")
			c.logger.Warn("end call failed", zap.String("call_id", callID), zap.Error(err))
		}
	}

	sig := signal.Signal{
		ID:         uuid.NewString(),
		Event:      signal.EventEnd,
		CallID:     callID,
		CallerID:   c.selfID,
		ReceiverID: peerID,
		Kind:       kind,
	}
	if err := c.transport.Publish(ctx, peerID, sig); err != nil {
		c.logger.Warn("end signal failed", zap.Error(err))
	}
	return nil
}

// HandleSignal feeds an inbound push signal into the state machine.
// Guards reject out-of-order and duplicate signals instead of letting
// them corrupt state.
func (c *Coordinator) HandleSignal(ctx context.Context, sig signal.Signal) {
	switch sig.Event {
	case signal.EventInitiate, signal.EventIncoming:
		c.handleInitiate(ctx, sig)
	case signal.EventAccepted:
		c.handleAccepted(sig)
	case signal.EventReject, signal.EventRejected, signal.EventEnd, signal.EventEnded:
		c.handleTerminal(sig)
	default:
		c.logger.Debug("ignoring unknown signal", zap.String("event", string(sig.Event)))
	}
}

func (c *Coordinator) handleInitiate(ctx context.Context, sig signal.Signal) {
	c.mu.Lock()
	if c.state != StateIdle {
		// Busy: auto-reject without touching local state.
		c.mu.Unlock()
		c.logger.Info("auto-rejecting incoming call while busy",
			zap.String("caller_id", sig.CallerID),
			zap.String("call_id", sig.CallID),
		)
		reject := signal.Signal{
			ID:         uuid.NewString(),
			Event:      signal.EventRejected,
			CallID:     sig.CallID,
			CallerID:   sig.CallerID,
			ReceiverID: c.selfID,
			Kind:       sig.Kind,
		}
		if err := c.transport.Publish(ctx, sig.CallerID, reject); err != nil {
			c.logger.Warn("busy reject signal failed", zap.Error(err))
		}
		if sig.CallID != "" {
			if err := c.store.RejectCall(ctx, sig.CallID); err != nil {
				c.logger.Debug("busy reject store call failed", zap.Error(err))
			}
		}
		return
	}

	c.session = &Session{
		ID:         sig.CallID,
		CallerID:   sig.CallerID,
		ReceiverID: c.selfID,
		Kind:       sig.Kind,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
	}
	c.transitionLocked(StateIncoming)
	c.mu.Unlock()
}

func (c *Coordinator) handleAccepted(sig signal.Signal) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDialing || c.session == nil {
		c.logger.Debug("ignoring accepted signal outside dialing",
			zap.String("state", c.state.String()),
		)
		return
	}
	if sig.CallID != "" && sig.CallID != c.session.ID {
		c.logger.Warn("accepted signal for unknown call",
			zap.String("expected", c.session.ID),
			zap.String("got", sig.CallID),
		)
		return
	}
	c.session.Status = StatusActive
	c.session.AcceptedAt = &now
	c.transitionLocked(StateActive)
}

func (c *Coordinator) handleTerminal(sig signal.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return
	}
	if sig.CallID != "" && c.session != nil && c.session.ID != "" && sig.CallID != c.session.ID {
		c.logger.Debug("ignoring terminal signal for unrelated call",
			zap.String("call_id", sig.CallID),
		)
		return
	}

	status := StatusEnded
	if sig.Event == signal.EventReject || sig.Event == signal.EventRejected {
		status = StatusRejected
	}
	c.resetSessionLocked(status)
}

// reconcileCallID resolves a missing call id by scanning the caller's
// pending calls. Racy when the caller has several concurrent pending
// calls; carried over as the documented fallback, not the primary path.
func (c *Coordinator) reconcileCallID(ctx context.Context, callerID string) (string, error) {
	pending, err := c.store.ListPendingCalls(ctx, callerID)
	if err != nil {
		return "", err
	}
	if len(pending) == 0 {
		return "", errors.NotFound("no pending call for caller")
	}
	return pending[0], nil
}

func (c *Coordinator) peerIDLocked() string {
	if c.session == nil {
		return ""
	}
	if c.session.CallerID == c.selfID {
		return c.session.ReceiverID
	}
	return c.session.CallerID
}

func (c *Coordinator) resetSessionLocked(status Status) {
	if c.session != nil {
		now := time.Now()
		c.session.Status = status
		c.session.EndedAt = &now
	}
	c.session = nil
	c.transitionLocked(StateIdle)
}

func (c *Coordinator) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	c.transitionLocked(StateIdle)
}

// resolveLocal tears down a locally created call after a signaling
// failure, ending the store record best-effort.
func (c *Coordinator) resolveLocal(ctx context.Context, status Status) {
	c.mu.Lock()
	var callID string
	if c.session != nil {
		callID = c.session.ID
	}
	c.resetSessionLocked(status)
	c.mu.Unlock()

	if callID != "" {
		if err := c.store.EndCall(ctx, callID); err != nil {
			c.logger.Debug("cleanup end call failed", zap.Error(err))
		}
	}
}
