package signal

import (
	"context"
)

type Event string

const (
	EventInitiate Event = "call:initiate"
	EventIncoming Event = "call:incoming"
	EventAccepted Event = "call:accepted"
	EventReject   Event = "call:reject"
	EventRejected Event = "call:rejected"
	EventEnd      Event = "call:end"
	EventEnded    Event = "call:ended"
)

// Signal is the push-channel envelope. CallID may be empty on initiate
// when the far end raced the store write; receivers reconcile through
// the pending-calls lookup.
type Signal struct {
	ID         string `json:"id,omitempty"`
	Event      Event  `json:"event"`
	CallID     string `json:"callId,omitempty"`
	CallerID   string `json:"callerId"`
	ReceiverID string `json:"receiverId"`
	Kind       string `json:"kind,omitempty"`
}

func (s Signal) Terminal() bool {
	switch s.Event {
	case EventReject, EventRejected, EventEnd, EventEnded:
		return true
	}
	return false
}

// Transport delivers signals between clients. Publish addresses a single
// user; Subscribe blocks, invoking the handler for every inbound signal
// until the context is cancelled.
type Transport interface {
	Publish(ctx context.Context, userID string, sig Signal) error
	Subscribe(ctx context.Context, userID string, handler func(Signal)) error
	Close() error
}
