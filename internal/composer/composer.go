package composer

import (
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/opsdeck/opsdeck/internal/directory"
	"github.com/opsdeck/opsdeck/internal/mention"
)

// Composer owns the draft buffer: visible text interleaved with opaque
// mention marker runs. All operations are cursor-relative, matching the
// way an input field feeds it.
type Composer struct {
	mu     sync.Mutex
	dir    *directory.Directory
	buffer []rune
	cursor int
	logger *zap.Logger
}

func New(dir *directory.Directory, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{
		dir:    dir,
		logger: logger,
	}
}

func (c *Composer) InsertText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	runes := []rune(text)
	c.buffer = append(c.buffer[:c.cursor], append(runes, c.buffer[c.cursor:]...)...)
	c.cursor += len(runes)
}

func (c *Composer) DeleteBackward() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cursor == 0 {
		return
	}
	c.buffer = append(c.buffer[:c.cursor-1], c.buffer[c.cursor:]...)
	c.cursor--
}

func (c *Composer) SetCursor(pos int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos < 0 {
		pos = 0
	}
	if pos > len(c.buffer) {
		pos = len(c.buffer)
	}
	c.cursor = pos
}

// TriggerQuery reports the open mention trigger run, if any: the text
// between the nearest `@` and the cursor, provided that run contains no
// whitespace, no second `@`, and no marker delimiter, and the `@` itself
// is not inside a completed marker run.
func (c *Composer) TriggerQuery() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggerQueryLocked()
}

func (c *Composer) triggerQueryLocked() (string, bool) {
	for i := c.cursor - 1; i >= 0; i-- {
		r := c.buffer[i]
		if r == mention.Marker || unicode.IsSpace(r) {
			return "", false
		}
		if r == '@' {
			if c.insideMarkerRun(i) {
				return "", false
			}
			return string(c.buffer[i+1 : c.cursor]), true
		}
	}
	return "", false
}

func (c *Composer) insideMarkerRun(pos int) bool {
	count := 0
	for i := 0; i < pos; i++ {
		if c.buffer[i] == mention.Marker {
			count++
		}
	}
	// Marker runs are complete triples; a non-zero remainder means pos
	// sits between delimiters of a run.
	return count%3 != 0
}

// Candidates returns the filtered candidate list for the open trigger
// run, or nil when no run is open.
func (c *Composer) Candidates() []directory.User {
	c.mu.Lock()
	query, open := c.triggerQueryLocked()
	c.mu.Unlock()

	if !open {
		return nil
	}
	return c.dir.Search(query)
}

// InsertMention replaces the open trigger run with a marker run for the
// selected user plus a trailing space. Without an open run it is a no-op.
func (c *Composer) InsertMention(u directory.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	query, open := c.triggerQueryLocked()
	if !open {
		return false
	}

	start := c.cursor - len([]rune(query)) - 1 // include the '@'
	run := []rune(mention.MarkerRun(u.ID, u.DisplayName()) + " ")
	c.buffer = append(c.buffer[:start], append(run, c.buffer[c.cursor:]...)...)
	c.cursor = start + len(run)

	c.logger.Debug("mention inserted",
		zap.String("user_id", u.ID),
		zap.String("display_name", u.DisplayName()),
	)
	return true
}

// Display returns the user-visible rendering of the buffer.
func (c *Composer) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mention.DisplayText(string(c.buffer))
}

// Encode serializes the buffer to the canonical wire format without
// clearing it.
func (c *Composer) Encode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mention.EncodeMarkers(string(c.buffer))
}

// Drain encodes the buffer for submission and resets it.
func (c *Composer) Drain() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	wire := mention.EncodeMarkers(string(c.buffer))
	c.buffer = c.buffer[:0]
	c.cursor = 0
	return wire
}

func (c *Composer) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer) == 0
}
