package game

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	EventBufferSize    = 1024                   // Pending events kept before the oldest is dropped
	MaxEventsPerSec    = 10000                  // Global rate limit
	MaxEventsPerSource = 600                    // Per-side rate limit per second
	BatchFlushSize     = 64                     // Pending events that wake the writer early
	BatchFlushInterval = 100 * time.Millisecond // How often to flush
)

// EventLogStats is the monitoring view of an EventLog.
type EventLogStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
	Path    string `json:"path,omitempty"`
}

// EventLog records match events as NDJSON. Emit never blocks the tick: events
// queue in memory and a background writer appends them in batches. Rate
// limits and a bounded queue keep a runaway loop from filling the disk.
type EventLog struct {
	mu        sync.Mutex
	pending   []Event
	seq       uint64
	total     uint64
	dropped   uint64
	running   bool
	global    *rate.Limiter
	perSource map[string]*rate.Limiter

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	path string
	file *os.File
	out  *bufio.Writer

	logger *zap.Logger
}

// NewEventLog creates a stopped event log.
func NewEventLog(logger *zap.Logger) *EventLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventLog{
		pending:   make([]Event, 0, BatchFlushSize),
		global:    rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		perSource: make(map[string]*rate.Limiter),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Start opens path for appending and launches the writer. An empty path
// accepts events without persisting them.
func (el *EventLog) Start(path string) error {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.running {
		return nil
	}

	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open event log %s: %w", path, err)
		}
		el.file = f
		el.out = bufio.NewWriter(f)
	}
	el.path = path
	el.running = true
	go el.run()

	el.logger.Info("event log started", zap.String("path", path))
	return nil
}

// Stop drains pending events and closes the file. Safe to call twice.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.mu.Lock()
		started := el.running
		el.running = false
		el.mu.Unlock()

		close(el.stop)
		if !started {
			return
		}
		<-el.done

		if el.file != nil {
			if err := el.file.Close(); err != nil {
				el.logger.Warn("event log close failed", zap.Error(err))
			}
		}
	})
}

// Emit queues an event and stamps its sequence number. It returns false
// when the log is stopped or the event was rate limited. A full queue
// drops its oldest event.
func (el *EventLog) Emit(event Event) bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	if !el.running {
		return false
	}
	if !el.global.Allow() || !el.limiterFor(event.Source).Allow() {
		el.dropped++
		return false
	}

	if len(el.pending) >= EventBufferSize {
		n := copy(el.pending, el.pending[1:])
		el.pending = el.pending[:n]
		el.dropped++
	}
	el.seq++
	event.Sequence = el.seq
	el.pending = append(el.pending, event)
	el.total++

	if len(el.pending) >= BatchFlushSize {
		select {
		case el.wake <- struct{}{}:
		default:
		}
	}
	return true
}

// EmitSimple builds and emits an event in one call.
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, matchID, source string, payload any) bool {
	return el.Emit(NewEvent(eventType, tickNum, matchID, source, payload))
}

// limiterFor returns the bucket for a side. Sources are the handful of
// side names, so buckets are never evicted. Callers hold mu.
func (el *EventLog) limiterFor(source string) *rate.Limiter {
	lim, ok := el.perSource[source]
	if !ok {
		lim = rate.NewLimiter(MaxEventsPerSource, MaxEventsPerSource/10)
		el.perSource[source] = lim
	}
	return lim
}

func (el *EventLog) run() {
	defer close(el.done)

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	var batch []Event
	for {
		select {
		case <-el.stop:
			el.write(el.take(batch[:0]))
			return
		case <-ticker.C:
		case <-el.wake:
		}
		batch = el.take(batch[:0])
		el.write(batch)
	}
}

// take moves all pending events into batch.
func (el *EventLog) take(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()
	batch = append(batch, el.pending...)
	el.pending = el.pending[:0]
	return batch
}

// write appends batch to the file. Only the writer goroutine calls it.
func (el *EventLog) write(batch []Event) {
	if el.out == nil || len(batch) == 0 {
		return
	}
	for i := range batch {
		line, err := json.Marshal(&batch[i])
		if err != nil {
			el.logger.Warn("event encode failed", zap.Stringer("type", batch[i].Type), zap.Error(err))
			continue
		}
		el.out.Write(line)
		el.out.WriteByte('\n')
	}
	if err := el.out.Flush(); err != nil {
		el.logger.Warn("event log write failed", zap.Error(err))
	}
}

// Stats returns counters for monitoring.
func (el *EventLog) Stats() EventLogStats {
	el.mu.Lock()
	defer el.mu.Unlock()
	return EventLogStats{
		Total:   el.total,
		Dropped: el.dropped,
		Pending: uint64(len(el.pending)),
		Running: el.running,
		Path:    el.path,
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return el.Stats().Dropped
}
