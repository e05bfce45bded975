// Package notify carries transient user-facing messages from the reset form
// to whatever renders them.
package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notification is one transient message.
type Notification struct {
	Message string `json:"message"`
	Level   Level  `json:"level"`
}

type Notifier interface {
	Notify(message string, level Level)
}

// Func adapts a plain function to Notifier.
type Func func(message string, level Level)

func (f Func) Notify(message string, level Level) { f(message, level) }

// DefaultMaxVisible matches the usual snackbar stack depth.
const DefaultMaxVisible = 3

// Queue buffers notifications until the page drains them. When more than
// max are pending the oldest is dropped.
type Queue struct {
	mu      sync.Mutex
	max     int
	pending []Notification
}

func NewQueue(max int) *Queue {
	if max <= 0 {
		max = DefaultMaxVisible
	}
	return &Queue{max: max}
}

func (q *Queue) Notify(message string, level Level) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, Notification{Message: message, Level: level})
	if over := len(q.pending) - q.max; over > 0 {
		q.pending = append(q.pending[:0:0], q.pending[over:]...)
	}
}

// Drain returns pending notifications oldest first and clears the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending
	q.pending = nil
	if out == nil {
		out = make([]Notification, 0)
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Logged forwards to next and records every notification on log.
func Logged(next Notifier, log zerolog.Logger) Notifier {
	return Func(func(message string, level Level) {
		event := log.Info()
		switch level {
		case LevelWarning:
			event = log.Warn()
		case LevelError:
			event = log.Error()
		}
		event.Str("severity", string(level)).Str("text", message).Msg("form_notification")
		next.Notify(message, level)
	})
}
