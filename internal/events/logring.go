package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// LogRing is a bounded, thread-safe buffer of recent WARN/ERROR log lines,
// installed as a zerolog.Hook so it captures every such line the process
// emits regardless of which package logged it. The orchestrator drains it
// into "log" envelopes at well-defined points (after each LLM call, before
// each done) so a desktop shell can surface backend diagnostics without
// polling or a separate log-tailing channel.
//
// Grounded on other_examples' matgreaves-rig server/eventlog.go: same
// drop-oldest-on-publish shape as events.queue, adapted from an unbounded
// event log to a small bounded ring of formatted lines.
type LogRing struct {
	mu  sync.Mutex
	buf []string
	cap int
}

// NewLogRing returns a ring that retains at most capacity lines.
func NewLogRing(capacity int) *LogRing {
	if capacity <= 0 {
		capacity = 50
	}
	return &LogRing{cap: capacity}
}

// Run implements zerolog.Hook. It records only Warn level and above;
// Info/Debug/Trace lines never enter the ring.
func (r *LogRing) Run(e *zerolog.Event, level zerolog.Level, message string) {
	if level < zerolog.WarnLevel || r == nil {
		return
	}
	line := fmt.Sprintf("%s: %s", level.String(), message)
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) >= r.cap {
		r.buf = r.buf[1:]
	}
	r.buf = append(r.buf, line)
}

// Drain returns a snapshot of the buffered lines and empties the ring. It
// returns nil if nothing has been logged since the last drain.
func (r *LogRing) Drain() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) == 0 {
		return nil
	}
	out := r.buf
	r.buf = nil
	return out
}
