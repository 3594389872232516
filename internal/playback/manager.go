package playback

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opsdeck/opsdeck/internal/common/errors"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/observability"
)

// Player is the device-level audio surface. Position callbacks re-enter
// the manager through Tick.
type Player interface {
	Play(messageID string) error
	Pause(messageID string) error
	Seek(messageID string, position time.Duration) error
}

type Clip struct {
	Current   time.Duration
	Duration  time.Duration
	Progress  float64
	Playing   bool
	scrubbing bool
}

// Manager owns the single "currently playing" identity for the rendered
// feed. Starting playback on one message pauses and resets every other.
type Manager struct {
	// playMu serializes whole play transitions, so overlapping Play
	// calls cannot both observe an idle manager while the device call
	// is in flight. mu guards clip state only and is never held across
	// device calls.
	playMu   sync.Mutex
	mu       sync.Mutex
	player   Player
	notifier notify.Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger
	clips    map[string]*Clip
	playing  string
}

func NewManager(player Player, notifier notify.Notifier, metrics *observability.Metrics, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &Manager{
		player:   player,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		clips:    make(map[string]*Clip),
	}
}

func (m *Manager) clipLocked(messageID string) *Clip {
	c, ok := m.clips[messageID]
	if !ok {
		c = &Clip{}
		m.clips[messageID] = c
	}
	return c
}

// Play starts playback for a message, pausing and resetting any other
// playing clip first. A device failure (for example a denied audio
// permission) surfaces a notice and leaves every other clip untouched.
func (m *Manager) Play(messageID string, duration time.Duration) error {
	m.playMu.Lock()
	defer m.playMu.Unlock()

	m.mu.Lock()

	if m.playing != "" && m.playing != messageID {
		prev := m.clipLocked(m.playing)
		prevID := m.playing
		prev.Playing = false
		prev.Current = 0
		prev.Progress = 0
		m.playing = ""
		m.mu.Unlock()
		if err := m.player.Pause(prevID); err != nil {
			m.logger.Debug("pause previous clip failed",
				zap.String("message_id", prevID),
				zap.Error(err),
			)
		}
		m.mu.Lock()
	}

	clip := m.clipLocked(messageID)
	if duration > 0 {
		clip.Duration = duration
	}
	m.mu.Unlock()

	if err := m.player.Play(messageID); err != nil {
		m.notifier.Notify(notify.LevelError, "voice message could not be played")
		return errors.ActionFailed("start playback", err)
	}

	m.mu.Lock()
	clip.Playing = true
	m.playing = messageID
	m.mu.Unlock()

	m.metrics.ObservePlaybackStart()
	return nil
}

func (m *Manager) Pause(messageID string) error {
	m.mu.Lock()
	clip := m.clipLocked(messageID)
	if !clip.Playing {
		m.mu.Unlock()
		return nil
	}
	clip.Playing = false
	if m.playing == messageID {
		m.playing = ""
	}
	m.mu.Unlock()

	if err := m.player.Pause(messageID); err != nil {
		return errors.ActionFailed("pause playback", err)
	}
	return nil
}

// Tick feeds a device playback-position callback into the clip state.
// Scrub gestures take precedence over device positions.
func (m *Manager) Tick(messageID string, position, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clip := m.clipLocked(messageID)
	if clip.scrubbing {
		return
	}
	clip.Current = position
	if duration > 0 {
		clip.Duration = duration
	}
	if clip.Duration > 0 {
		clip.Progress = clamp(float64(position) / float64(clip.Duration) * 100)
	}
	if clip.Duration > 0 && position >= clip.Duration {
		clip.Playing = false
		clip.Current = 0
		clip.Progress = 0
		if m.playing == messageID {
			m.playing = ""
		}
	}
}

func (m *Manager) BeginScrub(messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clipLocked(messageID).scrubbing = true
}

// Scrub updates progress from a pointer position, clamped to [0,100].
func (m *Manager) Scrub(messageID string, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clip := m.clipLocked(messageID)
	if !clip.scrubbing {
		return
	}
	clip.Progress = clamp(progress)
	if clip.Duration > 0 {
		clip.Current = time.Duration(clip.Progress / 100 * float64(clip.Duration))
	}
}

// EndScrub commits the scrubbed progress to the underlying playback
// position.
func (m *Manager) EndScrub(messageID string) error {
	m.mu.Lock()
	clip := m.clipLocked(messageID)
	if !clip.scrubbing {
		m.mu.Unlock()
		return nil
	}
	clip.scrubbing = false
	target := time.Duration(clip.Progress / 100 * float64(clip.Duration))
	clip.Current = target
	m.mu.Unlock()

	if err := m.player.Seek(messageID, target); err != nil {
		return errors.ActionFailed("seek playback", err)
	}
	return nil
}

// Playing returns the id of the single playing message, or "".
func (m *Manager) Playing() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Manager) ClipState(messageID string) Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clips[messageID]; ok {
		return *c
	}
	return Clip{}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
