package client

import (
	"sync"
	"time"
)

// DefaultTypingQuiet is how long after the last keystroke the typing
// indicator clears on its own.
const DefaultTypingQuiet = 2 * time.Second

// typingNotifier debounces outbound typing signals. The first keystroke
// emits a start signal; each further keystroke pushes the quiet deadline
// back. The stop signal fires after the quiet interval elapses without a
// keystroke, or immediately on Stop (submit or blur).
type typingNotifier struct {
	quiet time.Duration
	start func()
	stop  func()

	mu     sync.Mutex
	timer  *time.Timer
	active bool
}

func newTypingNotifier(quiet time.Duration, start, stop func()) *typingNotifier {
	return &typingNotifier{quiet: quiet, start: start, stop: stop}
}

// Keystroke registers input activity.
func (n *typingNotifier) Keystroke() {
	n.mu.Lock()
	wasActive := n.active
	n.active = true
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.quiet, n.expire)
	n.mu.Unlock()

	if !wasActive {
		n.start()
	}
}

// Stop clears the indicator immediately. No-op when not typing.
func (n *typingNotifier) Stop() {
	n.mu.Lock()
	wasActive := n.active
	n.active = false
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.mu.Unlock()

	if wasActive {
		n.stop()
	}
}

func (n *typingNotifier) expire() {
	n.mu.Lock()
	wasActive := n.active
	n.active = false
	n.timer = nil
	n.mu.Unlock()

	if wasActive {
		n.stop()
	}
}
