package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsdeck/opsdeck/internal/common/errors"
	"github.com/opsdeck/opsdeck/internal/messaging"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/store"
)

// Send posts a draft stamped with the active scope and appends the
// confirmed message to the local list. A failed post surfaces a notice
// and leaves the list untouched.
func (s *Synchronizer) Send(ctx context.Context, draft store.Draft) (*messaging.Message, error) {
	s.mu.Lock()
	draft.ScopeID = s.scope
	gen := s.generation
	s.mu.Unlock()

	msg, err := s.store.PostMessage(ctx, draft)
	if err != nil {
		s.notifier.Notify(notify.LevelError, "message could not be sent")
		s.logger.Warn("post message failed", zap.Error(err))
		return nil, errors.ActionFailed("send message", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// Scope changed while the post was in flight; the next poll of
		// the new scope decides what is visible.
		return msg, nil
	}
	if _, ok := s.known[msg.ID]; !ok {
		s.messages = append(s.messages, *msg)
		s.known[msg.ID] = struct{}{}
	}
	if s.atBottomLocked() {
		s.bottomDistance = 0
	}
	return msg, nil
}

func (s *Synchronizer) Edit(ctx context.Context, messageID, content string) error {
	msg, err := s.store.EditMessage(ctx, messageID, content)
	if err != nil {
		s.notifier.Notify(notify.LevelError, "message could not be edited")
		return errors.ActionFailed("edit message", err)
	}
	s.reconcile(messageID, func(m *messaging.Message) {
		m.Body = msg.Body
		m.EditedAt = msg.EditedAt
		m.UpdatedAt = msg.UpdatedAt
	})
	return nil
}

func (s *Synchronizer) Delete(ctx context.Context, messageID string) error {
	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		s.notifier.Notify(notify.LevelError, "message could not be deleted")
		return errors.ActionFailed("delete message", err)
	}
	now := time.Now()
	s.reconcile(messageID, func(m *messaging.Message) {
		m.DeletedAt = &now
	})
	return nil
}

func (s *Synchronizer) React(ctx context.Context, messageID, emoji string) error {
	if err := s.store.AddReaction(ctx, messageID, emoji); err != nil {
		s.notifier.Notify(notify.LevelError, "reaction could not be added")
		return errors.ActionFailed("add reaction", err)
	}
	s.reconcile(messageID, func(m *messaging.Message) {
		for _, r := range m.Reactions {
			if r.Emoji == emoji && r.UserID == s.selfID {
				return
			}
		}
		m.Reactions = append(m.Reactions, messaging.Reaction{Emoji: emoji, UserID: s.selfID})
	})
	return nil
}

func (s *Synchronizer) Unreact(ctx context.Context, messageID, emoji string) error {
	if err := s.store.RemoveReaction(ctx, messageID, emoji); err != nil {
		s.notifier.Notify(notify.LevelError, "reaction could not be removed")
		return errors.ActionFailed("remove reaction", err)
	}
	s.reconcile(messageID, func(m *messaging.Message) {
		out := m.Reactions[:0]
		for _, r := range m.Reactions {
			if !(r.Emoji == emoji && r.UserID == s.selfID) {
				out = append(out, r)
			}
		}
		m.Reactions = out
	})
	return nil
}

func (s *Synchronizer) Pin(ctx context.Context, messageID string) error {
	if err := s.store.PinMessage(ctx, messageID); err != nil {
		s.notifier.Notify(notify.LevelError, "message could not be pinned")
		return errors.ActionFailed("pin message", err)
	}
	now := time.Now()
	s.reconcile(messageID, func(m *messaging.Message) {
		m.Pinned = true
		m.PinnedAt = &now
		m.PinnedBy = s.selfID
	})
	return nil
}

func (s *Synchronizer) Unpin(ctx context.Context, messageID string) error {
	if err := s.store.UnpinMessage(ctx, messageID); err != nil {
		s.notifier.Notify(notify.LevelError, "message could not be unpinned")
		return errors.ActionFailed("unpin message", err)
	}
	s.reconcile(messageID, func(m *messaging.Message) {
		m.Pinned = false
		m.PinnedAt = nil
		m.PinnedBy = ""
	})
	return nil
}

func (s *Synchronizer) Star(ctx context.Context, messageID string) error {
	if err := s.store.StarMessage(ctx, messageID); err != nil {
		s.notifier.Notify(notify.LevelError, "message could not be starred")
		return errors.ActionFailed("star message", err)
	}
	s.reconcile(messageID, func(m *messaging.Message) {
		if !m.StarredByUser(s.selfID) {
			m.StarredBy = append(m.StarredBy, s.selfID)
		}
	})
	return nil
}

func (s *Synchronizer) Unstar(ctx context.Context, messageID string) error {
	if err := s.store.UnstarMessage(ctx, messageID); err != nil {
		s.notifier.Notify(notify.LevelError, "message could not be unstarred")
		return errors.ActionFailed("unstar message", err)
	}
	s.reconcile(messageID, func(m *messaging.Message) {
		out := m.StarredBy[:0]
		for _, id := range m.StarredBy {
			if id != s.selfID {
				out = append(out, id)
			}
		}
		m.StarredBy = out
	})
	return nil
}

// reconcile applies a confirmed store mutation to the local copy of the
// message, if it is still in the list. The next poll remains the source
// of truth.
func (s *Synchronizer) reconcile(messageID string, apply func(*messaging.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			apply(&s.messages[i])
			return
		}
	}
}
