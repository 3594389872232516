package messaging

import (
	"time"
)

type Kind string

const (
	KindText         Kind = "text"
	KindImage        Kind = "image"
	KindVideo        Kind = "video"
	KindAudio        Kind = "audio"
	KindLocation     Kind = "location"
	KindLiveLocation Kind = "live_location"
	KindDocument     Kind = "document"
	KindFile         Kind = "file"
)

// Body is the per-kind payload. Text messages carry only content, media
// messages a reference plus optional caption, location messages coordinates.
type Body interface {
	isBody()
}

type TextBody struct {
	Content string `json:"content"`
}

// MediaBody has a custom JSON codec in json.go: duration rides the wire
// as whole seconds rather than a nanosecond integer.
type MediaBody struct {
	URL         string
	Filename    string
	ContentType string
	Size        int64
	Duration    time.Duration
	Caption     string
}

type LocationBody struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	LiveUntil *time.Time `json:"liveUntil,omitempty"`
}

func (TextBody) isBody()     {}
func (MediaBody) isBody()    {}
func (LocationBody) isBody() {}

type Reaction struct {
	Emoji  string `json:"emoji"`
	UserID string `json:"userId"`
}

type ReadReceipt struct {
	UserID string    `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

type Message struct {
	ID              string
	Kind            Kind
	Body            Body
	SenderID        string
	ScopeID         string
	RepliedToID     string
	ForwardedFromID string
	Pinned          bool
	PinnedAt        *time.Time
	PinnedBy        string
	StarredBy       []string
	Reactions       []Reaction
	ReadBy          []ReadReceipt
	EditedAt        *time.Time
	DeletedAt       *time.Time
	SelfDestruct    bool
	ExpiresAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Content returns the mention-bearing text of the message, if any.
func (m *Message) Content() string {
	switch b := m.Body.(type) {
	case TextBody:
		return b.Content
	case MediaBody:
		return b.Caption
	default:
		return ""
	}
}

func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

func (m *Message) Expired(now time.Time) bool {
	if m.SelfDestruct && m.ExpiresAt != nil && now.After(*m.ExpiresAt) {
		return true
	}
	return false
}

func (m *Message) LiveLocationExpired(now time.Time) bool {
	if m.Kind != KindLiveLocation {
		return false
	}
	loc, ok := m.Body.(LocationBody)
	if !ok || loc.LiveUntil == nil {
		return false
	}
	return now.After(*loc.LiveUntil)
}

func (m *Message) StarredByUser(userID string) bool {
	for _, id := range m.StarredBy {
		if id == userID {
			return true
		}
	}
	return false
}

func (m *Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// MarkReadBy grows the read-receipt set; it never removes or rewrites an
// existing receipt.
func (m *Message) MarkReadBy(userID string, at time.Time) {
	if m.ReadByUser(userID) {
		return
	}
	m.ReadBy = append(m.ReadBy, ReadReceipt{UserID: userID, ReadAt: at})
}

func (m *Message) Validate() error {
	if m.ID == "" {
		return errMissingID
	}
	if m.Pinned && (m.PinnedAt == nil || m.PinnedBy == "") {
		return errPinnedIncomplete
	}
	if m.SelfDestruct && m.ExpiresAt == nil {
		return errSelfDestructNoExpiry
	}
	if m.RepliedToID != "" && m.RepliedToID == m.ID {
		return errSelfReference
	}
	if m.ForwardedFromID != "" && m.ForwardedFromID == m.ID {
		return errSelfReference
	}
	return nil
}
