package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	errMissingID            = errors.New("message id is empty")
	errPinnedIncomplete     = errors.New("pinned message missing pinnedAt/pinnedBy")
	errSelfDestructNoExpiry = errors.New("self-destruct message missing expiry")
	errSelfReference        = errors.New("message references itself")
)

type wireMediaBody struct {
	URL         string `json:"url"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	DurationSec int64  `json:"durationSec,omitempty"`
	Caption     string `json:"caption,omitempty"`
}

func (b MediaBody) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMediaBody{
		URL:         b.URL,
		Filename:    b.Filename,
		ContentType: b.ContentType,
		Size:        b.Size,
		DurationSec: int64(b.Duration / time.Second),
		Caption:     b.Caption,
	})
}

func (b *MediaBody) UnmarshalJSON(data []byte) error {
	var w wireMediaBody
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = MediaBody{
		URL:         w.URL,
		Filename:    w.Filename,
		ContentType: w.ContentType,
		Size:        w.Size,
		Duration:    time.Duration(w.DurationSec) * time.Second,
		Caption:     w.Caption,
	}
	return nil
}

type wireMessage struct {
	ID              string        `json:"id"`
	Type            Kind          `json:"type"`
	Content         *string       `json:"content,omitempty"`
	Media           *MediaBody    `json:"media,omitempty"`
	Location        *LocationBody `json:"location,omitempty"`
	SenderID        string        `json:"senderId"`
	ScopeID         string        `json:"scopeId,omitempty"`
	RepliedToID     string        `json:"repliedToId,omitempty"`
	ForwardedFromID string        `json:"forwardedFromId,omitempty"`
	Pinned          bool          `json:"pinned,omitempty"`
	PinnedAt        *time.Time    `json:"pinnedAt,omitempty"`
	PinnedBy        string        `json:"pinnedBy,omitempty"`
	StarredBy       []string      `json:"starredBy,omitempty"`
	Reactions       []Reaction    `json:"reactions,omitempty"`
	ReadBy          []ReadReceipt `json:"readBy,omitempty"`
	EditedAt        *time.Time    `json:"editedAt,omitempty"`
	DeletedAt       *time.Time    `json:"deletedAt,omitempty"`
	SelfDestruct    bool          `json:"selfDestruct,omitempty"`
	ExpiresAt       *time.Time    `json:"expiresAt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		ID:              m.ID,
		Type:            m.Kind,
		SenderID:        m.SenderID,
		ScopeID:         m.ScopeID,
		RepliedToID:     m.RepliedToID,
		ForwardedFromID: m.ForwardedFromID,
		Pinned:          m.Pinned,
		PinnedAt:        m.PinnedAt,
		PinnedBy:        m.PinnedBy,
		StarredBy:       m.StarredBy,
		Reactions:       m.Reactions,
		ReadBy:          m.ReadBy,
		EditedAt:        m.EditedAt,
		DeletedAt:       m.DeletedAt,
		SelfDestruct:    m.SelfDestruct,
		ExpiresAt:       m.ExpiresAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}

	switch b := m.Body.(type) {
	case TextBody:
		w.Content = &b.Content
	case MediaBody:
		media := b
		w.Media = &media
		if b.Caption != "" {
			caption := b.Caption
			w.Content = &caption
		}
	case LocationBody:
		loc := b
		w.Location = &loc
	}

	return json.Marshal(w)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	m.ID = w.ID
	m.Kind = w.Type
	m.SenderID = w.SenderID
	m.ScopeID = w.ScopeID
	m.RepliedToID = w.RepliedToID
	m.ForwardedFromID = w.ForwardedFromID
	m.Pinned = w.Pinned
	m.PinnedAt = w.PinnedAt
	m.PinnedBy = w.PinnedBy
	m.StarredBy = w.StarredBy
	m.Reactions = w.Reactions
	m.ReadBy = w.ReadBy
	m.EditedAt = w.EditedAt
	m.DeletedAt = w.DeletedAt
	m.SelfDestruct = w.SelfDestruct
	m.ExpiresAt = w.ExpiresAt
	m.CreatedAt = w.CreatedAt
	m.UpdatedAt = w.UpdatedAt

	switch w.Type {
	case KindText, "":
		var content string
		if w.Content != nil {
			content = *w.Content
		}
		m.Kind = KindText
		m.Body = TextBody{Content: content}
	case KindImage, KindVideo, KindAudio, KindDocument, KindFile:
		var media MediaBody
		if w.Media != nil {
			media = *w.Media
		}
		if w.Content != nil {
			media.Caption = *w.Content
		}
		m.Body = media
	case KindLocation, KindLiveLocation:
		var loc LocationBody
		if w.Location != nil {
			loc = *w.Location
		}
		m.Body = loc
	default:
		return fmt.Errorf("unknown message type %q", w.Type)
	}

	return nil
}
