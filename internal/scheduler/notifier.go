package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync"

	"taskminder/internal/models"

	"golang.org/x/time/rate"
)

// WriterNotifier prints reminders as lines, paced by a token bucket so a
// burst of due tasks does not flood the terminal.
type WriterNotifier struct {
	mu      sync.Mutex
	w       io.Writer
	limiter *rate.Limiter
}

// NewWriterNotifier builds a notifier; rps <= 0 disables pacing.
func NewWriterNotifier(w io.Writer, rps float64, burst int) *WriterNotifier {
	if burst <= 0 {
		burst = models.DefaultNotifyBurst
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &WriterNotifier{
		w:       w,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (n *WriterNotifier) Notify(ctx context.Context, task models.Task) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "Reminder: %s (%s)\n", task.Name, task.Interval)
	return err
}
