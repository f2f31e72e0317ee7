package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type blockingSink struct {
	release chan struct{}
	seen    atomic.Int64
}

func (s *blockingSink) Emit(context.Context, Event) {
	<-s.release
	s.seen.Add(1)
}

func testEvent(eventType string) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   true,
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("disabled config must yield nil dispatcher")
	}
	// Everything on the nil receiver is a no-op.
	d.Emit(context.Background(), testEvent("login"))
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher dropped count must be zero")
	}
	if d.DroppedByType() != nil {
		t.Fatal("nil dispatcher per-type drops must be nil")
	}
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), testEvent("login"))
	}
	d.Close()

	if got := sink.count.Load(); got != 50 {
		t.Fatalf("sink received %d events, want 50", got)
	}
}

func TestEmitAfterCloseIsNoOp(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	d.Close()

	d.Emit(context.Background(), testEvent("login"))
	if got := sink.count.Load(); got != 0 {
		t.Fatalf("sink received %d events after close", got)
	}
}

func TestDropIfFullCountsInsteadOfBlocking(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event occupies the forwarding goroutine, one fills the buffer,
	// the rest must be dropped without blocking this goroutine.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), testEvent("login"))
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer and a stuck sink")
	}

	close(sink.release)
	d.Close()
}

func TestDropAccountingByTypeAndCallback(t *testing.T) {
	var notified atomic.Int64
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		OnDrop:     func(string) { notified.Add(1) },
	}, sink)

	// The forwarding goroutine takes one event and the buffer holds one
	// more; everything after that is dropped. Use two event types so the
	// per-type breakdown is observable.
	for i := 0; i < 6; i++ {
		d.Emit(context.Background(), testEvent("login"))
	}
	for i := 0; i < 6; i++ {
		d.Emit(context.Background(), testEvent("logout"))
	}

	total := d.Dropped()
	if total == 0 {
		t.Fatal("expected drops with a full buffer and a stuck sink")
	}
	if got := notified.Load(); uint64(got) != total {
		t.Fatalf("OnDrop fired %d times, Dropped() = %d", got, total)
	}

	byType := d.DroppedByType()
	var sum uint64
	for _, n := range byType {
		sum += n
	}
	if sum != total {
		t.Fatalf("per-type drops sum to %d, Dropped() = %d", sum, total)
	}
	if byType["logout"] == 0 {
		t.Fatal("expected logout drops with the buffer still stuck")
	}

	// Mutating the returned map must not affect the dispatcher's state.
	byType["login"] += 100
	if again := d.DroppedByType(); again["login"] == byType["login"] {
		t.Fatal("DroppedByType must return a copy")
	}

	close(sink.release)
	d.Close()
}

func TestConcurrentEmit(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1024}, sink)

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				d.Emit(context.Background(), testEvent("login"))
			}
		}()
	}
	wg.Wait()
	d.Close()

	if got := sink.count.Load(); got != workers*perWorker {
		t.Fatalf("sink received %d events, want %d", got, workers*perWorker)
	}
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "login", IdentityID: "u1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "logout", IdentityID: "u1", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != "login" || ev.IdentityID != "u1" || !ev.Success {
		t.Fatalf("event = %+v", ev)
	}
}

func TestChannelSinkDeliversEvents(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Emit(context.Background(), Event{EventType: "login"})

	select {
	case ev := <-sink.Events():
		if ev.EventType != "login" {
			t.Fatalf("event type = %q", ev.EventType)
		}
	default:
		t.Fatal("no event buffered")
	}
}
