package coordinator

import (
	"context"
	"fmt"
	"io"
	"sync"

	"ytdlpro/internal/domain"
	"ytdlpro/observability"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger observability.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger observability.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements domain.Notifier.
func (n *LogNotifier) Notify(ctx context.Context, note domain.Notification) {
	n.logger.Info(ctx, note.Message, observability.Fields{
		"notification": note.Kind,
		"job_id":       note.JobID,
		"job_kind":     note.JobKind,
		"title":        note.Title,
	})
}

// WriterNotifier prints one human-readable line per notification.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a WriterNotifier.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify implements domain.Notifier.
func (n *WriterNotifier) Notify(_ context.Context, note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if note.Title != "" {
		fmt.Fprintf(n.w, "[%s] %s: %s\n", note.Kind, note.Title, note.Message)
		return
	}
	fmt.Fprintf(n.w, "[%s] %s\n", note.Kind, note.Message)
}

// MultiNotifier fans a notification out to several notifiers in order.
type MultiNotifier []domain.Notifier

// Notify implements domain.Notifier.
func (m MultiNotifier) Notify(ctx context.Context, note domain.Notification) {
	for _, n := range m {
		n.Notify(ctx, note)
	}
}
