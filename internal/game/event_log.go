package game

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 1024                   // Circular buffer size
	MaxEventsPerSec      = 10000                  // Global rate limit
	MaxEventsPerSource   = 200                    // Per-source rate limit per second
	BatchFlushSize       = 64                     // Events per batch write
	BatchFlushInterval   = 100 * time.Millisecond // How often to flush
	SourceLimiterCleanup = 5 * time.Minute        // Cleanup interval for source limiters
)

// EventLogOptions tune the log's rate limits and flush cadence.
// Zero fields take the package defaults.
type EventLogOptions struct {
	MaxEventsPerSec    int
	MaxEventsPerSource int
	FlushInterval      time.Duration
}

// EventLog provides bounded, rate-limited match event logging with backpressure.
// Events are appended to a file as newline-delimited JSON. A ".zst" path is
// written as a zstd stream and a ".sz" path as a framed snappy stream.
type EventLog struct {
	// Circular buffer, single producer (the tick) and single consumer (writer)
	buffer    [EventBufferSize]Event
	writeHead uint64 // atomic - events written
	readHead  uint64 // atomic - events consumed

	// Rate limiting keeps one noisy source from starving the rest
	globalLimiter  *rate.Limiter
	perSourceLimit rate.Limit
	sourceLimiters sync.Map // map[string]*sourceLimiterEntry
	flushInterval  time.Duration

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	// File output
	filePath string
	file     *os.File
	out      eventSink
	fileMu   sync.Mutex

	// Stats for monitoring
	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
	writtenCount uint64 // atomic
}

// sourceLimiterEntry tracks per-source rate limiting
type sourceLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewEventLog creates a new bounded event log with default limits
func NewEventLog() *EventLog {
	return NewEventLogWithOptions(EventLogOptions{})
}

// NewEventLogWithOptions creates a new bounded event log
func NewEventLogWithOptions(opts EventLogOptions) *EventLog {
	if opts.MaxEventsPerSec <= 0 {
		opts.MaxEventsPerSec = MaxEventsPerSec
	}
	if opts.MaxEventsPerSource <= 0 {
		opts.MaxEventsPerSource = MaxEventsPerSource
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = BatchFlushInterval
	}

	return &EventLog{
		globalLimiter:  rate.NewLimiter(rate.Limit(opts.MaxEventsPerSec), max(1, opts.MaxEventsPerSec/10)),
		perSourceLimit: rate.Limit(opts.MaxEventsPerSource),
		flushInterval:  opts.FlushInterval,
		stopChan:       make(chan struct{}),
	}
}

// Start begins the async writer goroutine. An empty path keeps events in
// memory only (counted, never written).
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open event log %q: %w", filePath, err)
		}
		out, err := newEventSink(filePath, file)
		if err != nil {
			file.Close()
			return fmt.Errorf("compress event log %q: %w", filePath, err)
		}
		el.file = file
		el.out = out
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop flushes pending events and closes the file
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.out.Close()
			el.file.Close()
			el.file = nil
		}
		el.fileMu.Unlock()
	})
}

// eventSink is the buffered, possibly compressed stream over the log file.
// Close flushes it without closing the file.
type eventSink interface {
	io.Writer
	Flush() error
	Close() error
}

type bufferedSink struct {
	*bufio.Writer
}

func (s bufferedSink) Close() error { return s.Flush() }

// newEventSink picks the stream encoding from the file extension
func newEventSink(path string, file *os.File) (eventSink, error) {
	switch {
	case strings.HasSuffix(path, ".zst"):
		enc, err := zstd.NewWriter(file)
		if err != nil {
			return nil, err
		}
		return enc, nil
	case strings.HasSuffix(path, ".sz"):
		return snappy.NewBufferedWriter(file), nil
	default:
		return bufferedSink{bufio.NewWriter(file)}, nil
	}
}

// Emit adds an event with rate limiting.
// Returns false if rate limited or the log is not running.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	if event.PlayerID != "" {
		if !el.sourceLimiter(event.PlayerID).Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
	}

	seq := atomic.AddUint64(&el.writeHead, 1)
	tail := atomic.LoadUint64(&el.readHead)

	// Buffer full: drop the oldest event (rolling window)
	if seq-tail > EventBufferSize {
		atomic.AddUint64(&el.readHead, 1)
		atomic.AddUint64(&el.droppedCount, 1)
	}

	event.Sequence = seq
	el.buffer[(seq-1)%EventBufferSize] = event

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple is a convenience method to emit an event with automatic creation
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, source string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, source, payload))
}

// sourceLimiter returns/creates a per-source rate limiter
func (el *EventLog) sourceLimiter(source string) *rate.Limiter {
	now := time.Now().UnixNano()
	if entry, ok := el.sourceLimiters.Load(source); ok {
		e := entry.(*sourceLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &sourceLimiterEntry{
		limiter: rate.NewLimiter(el.perSourceLimit, max(1, int(el.perSourceLimit)/10)),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.sourceLimiters.LoadOrStore(source, entry)
	return actual.(*sourceLimiterEntry).limiter
}

// writerLoop batches and writes events to disk asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(el.flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			// Drain everything left
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// cleanupLoop removes stale source limiters
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SourceLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSourceLimiters(time.Now().Add(-SourceLimiterCleanup))
		}
	}
}

// cleanupSourceLimiters removes limiters unused since cutoff
func (el *EventLog) cleanupSourceLimiters(cutoff time.Time) {
	el.sourceLimiters.Range(func(key, value interface{}) bool {
		entry := value.(*sourceLimiterEntry)
		if entry.lastUsed.Load() < cutoff.UnixNano() {
			el.sourceLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch reads available events from the circular buffer
func (el *EventLog) collectBatch(batch []Event) []Event {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	for i := tail; i < head && len(batch) < BatchFlushSize; i++ {
		batch = append(batch, el.buffer[i%EventBufferSize])
	}

	if len(batch) > 0 {
		atomic.AddUint64(&el.readHead, uint64(len(batch)))
	}

	return batch
}

// flushBatch writes events to disk (append-only, newline-delimited JSON)
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		atomic.AddUint64(&el.writtenCount, uint64(len(batch)))
		return
	}

	enc := json.NewEncoder(el.out)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			continue
		}
		atomic.AddUint64(&el.writtenCount, 1)
	}
	el.out.Flush()
}

// GetStats returns counters for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"written": atomic.LoadUint64(&el.writtenCount),
		"pending": head - tail,
		"running": el.running.Load(),
		"path":    el.filePath,
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the total number of events accepted
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
