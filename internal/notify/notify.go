package notify

import (
	"sync"

	"go.uber.org/zap"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Notifier surfaces user-facing notices: action failures, permission
// denials. Transient errors never reach it.
type Notifier interface {
	Notify(level Level, message string)
}

type logNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(level Level, message string) {
	switch level {
	case LevelError:
		n.logger.Error("notice", zap.String("message", message))
	case LevelWarning:
		n.logger.Warn("notice", zap.String("message", message))
	default:
		n.logger.Info("notice", zap.String("message", message))
	}
}

// Recorder collects notices; used by tests and by UI layers that render
// dismissible banners.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

type Notice struct {
	Level   Level
	Message string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: message})
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

func (r *Recorder) Dismiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}
