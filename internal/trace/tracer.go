// Package trace provides the built-in Tracer kinds spec §4.7 names
// (console, buffered, composite, no-op) plus an OpenTelemetry-backed
// kind and a Prometheus-backed MetricsCollector, grounded on the
// teacher's internal/observability package (Tracer/Metrics split, same
// promauto-registered counter/histogram shapes, same OTel span-per-call
// convention) generalized from channel/LLM-provider labels to the
// spec's run/iteration/tool vocabulary.
package trace

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

// NoOp discards every event. The agent loop uses it when no Tracer is
// configured and defaultTracingEnabled is false (spec §6's
// AgentConfiguration); with tracing enabled it falls back to Console.
type NoOp struct{}

func (NoOp) Trace(core.TraceEvent) {}

// Console logs every event via an *slog.Logger, one line per event,
// matching the teacher's opts.Logger-everywhere ambient convention.
type Console struct {
	Logger *slog.Logger
}

// NewConsole returns a Console tracer, defaulting to slog.Default().
func NewConsole(logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{Logger: logger}
}

func (c *Console) Trace(e core.TraceEvent) {
	attrs := []any{"kind", e.Kind, "span_id", e.SpanID, "parent_span_id", e.ParentSpanID}
	for k, v := range e.Metadata {
		attrs = append(attrs, k, v.ToString())
	}
	switch e.Level {
	case core.TraceLevelDebug:
		c.Logger.Debug(e.Name, attrs...)
	case core.TraceLevelWarn:
		c.Logger.Warn(e.Name, attrs...)
	case core.TraceLevelError:
		c.Logger.Error(e.Name, attrs...)
	default:
		c.Logger.Info(e.Name, attrs...)
	}
}

// Buffered accumulates events in memory and flushes them to an OnFlush
// callback on an interval, on a buffer high-water mark, or both, per
// spec §4.7's buffered tracer kind. With no flush policy configured it
// only accumulates, mirroring the teacher's in-memory event stores used
// by its test suites.
type Buffered struct {
	mu            sync.Mutex
	events        []core.TraceEvent
	onFlush       func([]core.TraceEvent)
	highWaterMark int
	stopTicker    func()
}

// NewBuffered returns an empty buffered tracer with no flush policy;
// call Events to read accumulated events directly.
func NewBuffered() *Buffered { return &Buffered{} }

// NewBufferedWithFlush returns a buffered tracer that invokes onFlush
// with (and clears) the buffered events once the buffer reaches
// highWaterMark events, and additionally every flushInterval if
// flushInterval > 0. highWaterMark <= 0 disables the high-water
// trigger; flushInterval <= 0 disables the interval trigger. Callers
// must call Close when done to stop the interval ticker.
func NewBufferedWithFlush(onFlush func([]core.TraceEvent), highWaterMark int, flushInterval time.Duration) *Buffered {
	b := &Buffered{onFlush: onFlush, highWaterMark: highWaterMark}
	if flushInterval > 0 {
		ticker := time.NewTicker(flushInterval)
		stop := make(chan struct{})
		go func() {
			for {
				select {
				case <-ticker.C:
					b.flush()
				case <-stop:
					ticker.Stop()
					return
				}
			}
		}()
		b.stopTicker = func() { close(stop) }
	}
	return b
}

func (b *Buffered) Trace(e core.TraceEvent) {
	b.mu.Lock()
	b.events = append(b.events, e)
	shouldFlush := b.highWaterMark > 0 && len(b.events) >= b.highWaterMark
	b.mu.Unlock()
	if shouldFlush {
		b.flush()
	}
}

func (b *Buffered) flush() {
	b.mu.Lock()
	if len(b.events) == 0 || b.onFlush == nil {
		b.mu.Unlock()
		return
	}
	out := make([]core.TraceEvent, len(b.events))
	copy(out, b.events)
	b.events = nil
	b.mu.Unlock()
	b.onFlush(out)
}

// Events returns a snapshot of every buffered, not-yet-flushed event
// in order.
func (b *Buffered) Events() []core.TraceEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.TraceEvent, len(b.events))
	copy(out, b.events)
	return out
}

// Reset clears the buffer without flushing.
func (b *Buffered) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// Close stops the interval flush ticker, if one is running. Safe to
// call on a tracer built with NewBuffered.
func (b *Buffered) Close() {
	if b.stopTicker != nil {
		b.stopTicker()
	}
}

// Composite fans one event out to every underlying Tracer, either
// sequentially or concurrently, matching spec §4.7's composite tracer
// kind and its configurable parallel-vs-sequential dispatch.
type Composite struct {
	Tracers  []core.Tracer
	Parallel bool
}

// NewComposite returns a sequential Composite tracer over the given tracers.
func NewComposite(tracers ...core.Tracer) *Composite {
	return &Composite{Tracers: tracers}
}

// NewParallelComposite returns a Composite tracer that dispatches to
// every underlying tracer concurrently, waiting for all to return.
func NewParallelComposite(tracers ...core.Tracer) *Composite {
	return &Composite{Tracers: tracers, Parallel: true}
}

func (c *Composite) Trace(e core.TraceEvent) {
	if !c.Parallel {
		for _, t := range c.Tracers {
			if t != nil {
				t.Trace(e)
			}
		}
		return
	}
	var wg sync.WaitGroup
	for _, t := range c.Tracers {
		if t == nil {
			continue
		}
		wg.Add(1)
		go func(t core.Tracer) {
			defer wg.Done()
			t.Trace(e)
		}(t)
	}
	wg.Wait()
}

// OSLog sends events to the process's standard logger with a fixed
// "oslog" source tag, approximating the platform OS-log tracer kind
// spec §4.7 names without depending on a platform-specific syscall
// binding.
type OSLog struct {
	Logger *slog.Logger
}

// NewOSLog returns an OSLog tracer, defaulting to slog.Default().
func NewOSLog(logger *slog.Logger) *OSLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &OSLog{Logger: logger}
}

func (o *OSLog) Trace(e core.TraceEvent) {
	o.Logger.Info(fmt.Sprintf("[oslog] %s", e.Name), "kind", e.Kind, "level", e.Level)
}

var (
	_ core.Tracer = NoOp{}
	_ core.Tracer = (*Console)(nil)
	_ core.Tracer = (*Buffered)(nil)
	_ core.Tracer = (*Composite)(nil)
	_ core.Tracer = (*OSLog)(nil)
)
