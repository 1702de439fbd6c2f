package monitoring

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewGeneratorIntervalFloor(t *testing.T) {
	cases := []struct {
		name     string
		interval time.Duration
		want     time.Duration
	}{
		{"zero falls back to default", 0, DefaultEventInterval},
		{"negative falls back to default", -time.Second, DefaultEventInterval},
		{"positive kept", time.Millisecond, time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGenerator(GeneratorConfig{EventInterval: tc.interval})
			if g.interval != tc.want {
				t.Errorf("interval = %v; want %v", g.interval, tc.want)
			}
		})
	}
}

// testClock returns strictly increasing timestamps so event ordering is
// deterministic even with a zero-length interval
func testClock() func() time.Time {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var ticks int64
	return func() time.Time {
		n := atomic.AddInt64(&ticks, 1)
		return base.Add(time.Duration(n) * time.Millisecond)
	}
}

func newTestGenerator() *Generator {
	return NewGenerator(GeneratorConfig{
		EventInterval: time.Millisecond,
		Clock:         testClock(),
		Seed:          1,
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestGenerator_StartStopIdempotent(t *testing.T) {
	g := newTestGenerator()

	// Stop before start is a no-op.
	g.Stop()
	if g.IsRunning() {
		t.Fatal("generator should not be running")
	}

	g.Start()
	if !g.IsRunning() {
		t.Fatal("generator should be running after Start")
	}

	waitFor(t, time.Second, func() bool { return g.EmittedCount() >= 3 })
	before := g.EmittedCount()

	// Second Start must not spawn another producer or reset counters.
	g.Start()
	if g.EmittedCount() < before {
		t.Error("second Start reset the emitted counter")
	}

	g.Stop()
	if g.IsRunning() {
		t.Fatal("generator should be stopped")
	}
	g.Stop()

	stopped := g.EmittedCount()
	time.Sleep(20 * time.Millisecond)
	if g.EmittedCount() != stopped {
		t.Error("events emitted after Stop returned")
	}
}

func TestGenerator_EventsOrderedAndLimited(t *testing.T) {
	g := newTestGenerator()
	g.Start()
	defer g.Stop()

	waitFor(t, time.Second, func() bool { return g.EmittedCount() >= 10 })

	events := g.Events(5)
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Fatalf("events out of order at %d: %v before %v", i, events[i-1].Timestamp, events[i].Timestamp)
		}
	}

	all := g.Events(0)
	if len(all) < 10 {
		t.Errorf("expected all buffered events, got %d", len(all))
	}
}

func TestGenerator_ClearEvents(t *testing.T) {
	g := newTestGenerator()
	g.Start()
	waitFor(t, time.Second, func() bool { return g.EmittedCount() >= 5 })
	g.Stop()

	g.ClearEvents()
	if len(g.Events(0)) != 0 {
		t.Error("buffer not empty after ClearEvents")
	}
	if g.EmittedCount() != 0 {
		t.Error("emitted counter not reset by ClearEvents")
	}
}

func TestGenerator_BufferEviction(t *testing.T) {
	g := NewGenerator(GeneratorConfig{
		EventInterval: time.Millisecond,
		BufferSize:    20,
		Clock:         testClock(),
		Seed:          1,
	})
	g.Start()
	defer g.Stop()

	waitFor(t, 2*time.Second, func() bool { return g.EmittedCount() >= 30 })

	if n := len(g.Events(0)); n != 20 {
		t.Errorf("expected buffer capped at 20, got %d", n)
	}
}

func TestGenerator_SetFlags(t *testing.T) {
	g := newTestGenerator()
	g.Start()
	waitFor(t, time.Second, func() bool { return g.EmittedCount() >= 1 })
	g.Stop()

	ev := g.Events(1)[0]
	if !g.SetFlags(ev.EventID, true, true) {
		t.Fatal("SetFlags failed for buffered event")
	}

	got := g.Events(1)[0]
	if !got.Flagged || !got.Critical {
		t.Error("flags not visible on subsequent read")
	}

	if g.SetFlags("no-such-event", true, false) {
		t.Error("SetFlags should report false for unknown event")
	}
}

func TestGenerator_DemoSequence(t *testing.T) {
	g := newTestGenerator()

	var completions int32
	g.StartDemo(func() { atomic.AddInt32(&completions, 1) })

	// The producer emits the first three events, then blocks on the
	// rendezvous before the scripted critical event.
	waitFor(t, time.Second, func() bool { return g.EmittedCount() == 3 })

	time.Sleep(20 * time.Millisecond)
	if n := g.EmittedCount(); n != 3 {
		t.Fatalf("producer must hold at 3 events until AI-ready, got %d", n)
	}

	g.SignalAIReady()

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&completions) == 1 })
	waitFor(t, time.Second, func() bool { return !g.IsRunning() })

	events := g.Events(0)
	if len(events) != DemoEventCount {
		t.Fatalf("expected %d demo events, got %d", DemoEventCount, len(events))
	}

	// Events(0) is newest-first; the scripted critical event is the 4th
	// emitted, i.e. index 6 from the top.
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Fatal("demo events not in emission order")
		}
	}
	critical := events[len(events)-1-demoCriticalIndex]
	if !critical.Critical || !critical.Flagged {
		t.Errorf("4th demo event should be the scripted critical event, got %+v", critical)
	}
	if critical.ServiceName != "payment-api" {
		t.Errorf("unexpected scripted event service: %s", critical.ServiceName)
	}

	// Callback fires exactly once.
	time.Sleep(20 * time.Millisecond)
	if n := atomic.LoadInt32(&completions); n != 1 {
		t.Errorf("completion callback invoked %d times", n)
	}
}

func TestGenerator_StopUnblocksRendezvous(t *testing.T) {
	g := newTestGenerator()
	g.StartDemo(nil)

	waitFor(t, time.Second, func() bool { return g.EmittedCount() == 3 })

	done := make(chan struct{})
	go func() {
		g.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while producer was blocked on rendezvous")
	}

	if g.EmittedCount() != 3 {
		t.Error("critical event must not be emitted after Stop")
	}
}

func TestGenerator_SignalAIReadyIdempotent(t *testing.T) {
	g := newTestGenerator()
	// Harmless before start.
	g.SignalAIReady()

	g.StartDemo(nil)
	defer g.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.SignalAIReady()
		}()
	}
	wg.Wait()

	waitFor(t, time.Second, func() bool { return !g.IsRunning() })
	if n := g.EmittedCount(); n != DemoEventCount {
		t.Errorf("expected full demo run, got %d events", n)
	}
}

func TestEventBuffer(t *testing.T) {
	b := newEventBuffer(3)

	for i := 0; i < 5; i++ {
		b.append(LogEvent{EventID: string(rune('a' + i))})
	}

	if b.len() != 3 {
		t.Fatalf("expected len 3, got %d", b.len())
	}
	snap := b.snapshot()
	if snap[0].EventID != "c" || snap[2].EventID != "e" {
		t.Errorf("unexpected eviction order: %v", snap)
	}

	b.clear()
	if b.len() != 0 {
		t.Error("clear did not empty buffer")
	}
}
