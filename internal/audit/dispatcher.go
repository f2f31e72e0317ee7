package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull trades completeness for latency: a full buffer drops the
	// event and counts it instead of blocking the caller.
	DropIfFull bool
	// OnDrop, when set, is called with the event type of every dropped
	// event. Must be cheap to call from the emitting goroutine.
	OnDrop func(eventType string)
}

// Dispatcher forwards audit events to a sink from a dedicated goroutine so
// slow sinks never block the authentication hot path. Close drains the
// buffer before returning.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	dropMu        sync.Mutex
	droppedByType map[string]uint64
}

// NewDispatcher starts the forwarding goroutine. Returns nil when auditing
// is disabled; a nil Dispatcher is safe to use and drops everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			// Drain whatever is buffered, then exit.
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit enqueues an event. After Close it is a no-op.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.recordDrop(event.EventType)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close stops the dispatcher after draining buffered events. Idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) recordDrop(eventType string) {
	d.dropped.Add(1)
	d.dropMu.Lock()
	if d.droppedByType == nil {
		d.droppedByType = make(map[string]uint64)
	}
	d.droppedByType[eventType]++
	d.dropMu.Unlock()
	if d.cfg.OnDrop != nil {
		d.cfg.OnDrop(eventType)
	}
}

// Dropped reports how many events were discarded under DropIfFull.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType reports drop counts keyed by event type. The returned map
// is a copy.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	if d == nil {
		return nil
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	out := make(map[string]uint64, len(d.droppedByType))
	for k, v := range d.droppedByType {
		out[k] = v
	}
	return out
}
