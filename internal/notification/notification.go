// Package notification carries transient user-facing notices from the core to
// whatever front door is attached.
package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Kind classifies a notice.
type Kind string

const (
	// KindLoading marks a long-running step; a later notice with the same Topic supersedes it.
	KindLoading Kind = "loading"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	// KindDismiss clears an outstanding loading notice for Topic.
	KindDismiss Kind = "dismiss"
)

// Message describes a notice.
type Message struct {
	Kind  Kind   `json:"kind"`
	Topic string `json:"topic,omitempty"`
	Body  string `json:"body"`
}

// Notifier delivers notices to the user.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notices to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	if message.Kind == KindDismiss {
		return nil
	}
	n.logger.Info("notice", "kind", string(message.Kind), "topic", message.Topic, "body", message.Body)
	return nil
}

// WriterNotifier prints notices as plain lines, used by the CLI.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier builds a notifier printing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Send prints loading, success and error notices.
func (n *WriterNotifier) Send(_ context.Context, message Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch message.Kind {
	case KindDismiss:
		return nil
	case KindLoading:
		_, err := fmt.Fprintf(n.w, "… %s\n", message.Body)
		return err
	case KindError:
		_, err := fmt.Fprintf(n.w, "✗ %s\n", message.Body)
		return err
	default:
		_, err := fmt.Fprintf(n.w, "%s\n", message.Body)
		return err
	}
}

// Recorder keeps every notice in memory. Tests use it to assert on user feedback and
// the API exposes its tail.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	limit    int
}

// NewRecorder keeps at most limit notices (0 means unbounded).
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Send appends the message.
func (r *Recorder) Send(_ context.Context, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	if r.limit > 0 && len(r.messages) > r.limit {
		r.messages = append([]Message(nil), r.messages[len(r.messages)-r.limit:]...)
	}
	return nil
}

// Messages returns a copy of the recorded notices.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent notice of the given kind.
func (r *Recorder) Last(kind Kind) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Kind == kind {
			return r.messages[i], true
		}
	}
	return Message{}, false
}

// Fanout sends each notice to every notifier, returning the first error.
type Fanout []Notifier

// Send delivers message to all notifiers.
func (f Fanout) Send(ctx context.Context, message Message) error {
	var first error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
