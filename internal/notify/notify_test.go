package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/notify"
)

func TestRecorder(t *testing.T) {
	r := notify.NewRecorder()
	assert.Empty(t, r.Notices())

	r.Notify(notify.LevelError, "message could not be sent")
	r.Notify(notify.LevelInfo, "reconnected")

	notices := r.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, notify.LevelError, notices[0].Level)
	assert.Equal(t, "message could not be sent", notices[0].Message)
	assert.Equal(t, notify.LevelInfo, notices[1].Level)

	r.Dismiss()
	assert.Empty(t, r.Notices())
}

func TestLogNotifierAcceptsNilLogger(t *testing.T) {
	n := notify.NewLogNotifier(nil)
	n.Notify(notify.LevelWarning, "still works")
	n.Notify(notify.LevelError, "still works")
	n.Notify(notify.LevelInfo, "still works")
}
