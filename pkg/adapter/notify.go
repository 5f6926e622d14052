package adapter

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
)

// Notifier delivers a fired reminder to the user. Delivery is fire-and-forget
// from the scheduler's perspective: failures are logged, never propagated.
type Notifier interface {
	Notify(title, message string)
}

// ConsoleNotifier prints a reminder banner to the session output and makes a
// best-effort attempt at a desktop notification.
type ConsoleNotifier struct {
	mu      sync.Mutex
	w       io.Writer
	logger  *slog.Logger
	desktop bool
}

type NotifierOption func(*ConsoleNotifier)

// WithDesktopNotification enables OS-level notification delivery.
func WithDesktopNotification() NotifierOption {
	return func(n *ConsoleNotifier) {
		n.desktop = true
	}
}

func NewConsoleNotifier(w io.Writer, logger *slog.Logger, opts ...NotifierOption) *ConsoleNotifier {
	n := &ConsoleNotifier{w: w, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *ConsoleNotifier) Notify(title, message string) {
	n.mu.Lock()
	line := strings.Repeat("=", 60)
	fmt.Fprintf(n.w, "\n%s\n⏰ %s at %s\n%s\n%s\n", line, title, time.Now().Format("15:04"), message, line)
	n.mu.Unlock()

	if n.desktop {
		if err := beeep.Notify(title, message, ""); err != nil {
			n.logger.Warn("desktop notification failed", "error", err)
		}
	}
}
