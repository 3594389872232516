package store

import (
	"context"

	"github.com/opsdeck/opsdeck/internal/messaging"
)

// Draft is the outbound message shape handed to the store.
type Draft struct {
	Kind            messaging.Kind `json:"type"`
	ScopeID         string         `json:"scopeId,omitempty"`
	Content         string         `json:"content,omitempty"`
	MediaURL        string         `json:"mediaUrl,omitempty"`
	RepliedToID     string         `json:"repliedToId,omitempty"`
	ForwardedFromID string         `json:"forwardedFromId,omitempty"`
	Latitude        float64        `json:"latitude,omitempty"`
	Longitude       float64        `json:"longitude,omitempty"`
}

type UserRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type MessageStore interface {
	FetchMessages(ctx context.Context, scopeID string, limit int) ([]messaging.Message, error)
	PostMessage(ctx context.Context, draft Draft) (*messaging.Message, error)
	EditMessage(ctx context.Context, messageID, content string) (*messaging.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	AddReaction(ctx context.Context, messageID, emoji string) error
	RemoveReaction(ctx context.Context, messageID, emoji string) error
	PinMessage(ctx context.Context, messageID string) error
	UnpinMessage(ctx context.Context, messageID string) error
	StarMessage(ctx context.Context, messageID string) error
	UnstarMessage(ctx context.Context, messageID string) error
}

type PresenceStore interface {
	MarkRead(ctx context.Context, scopeOrEventID string) error
	FetchReadStatus(ctx context.Context, eventID string) ([]UserRef, error)
	PostTyping(ctx context.Context, scopeID string, typing bool) error
}

type CallStore interface {
	CreateCall(ctx context.Context, receiverID, kind string) (string, error)
	AcceptCall(ctx context.Context, callID string) error
	RejectCall(ctx context.Context, callID string) error
	EndCall(ctx context.Context, callID string) error
	ListPendingCalls(ctx context.Context, callerID string) ([]string, error)
}
