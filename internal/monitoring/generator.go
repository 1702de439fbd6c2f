package monitoring

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskwatch/deskwatch/internal/metrics"
)

const (
	// DefaultBufferSize bounds the in-memory event buffer
	DefaultBufferSize = 500

	// DefaultEventInterval is the pause between generated events (~30/min)
	DefaultEventInterval = 2 * time.Second

	// DemoEventCount is the fixed length of a demo run
	DemoEventCount = 10

	// demoCriticalIndex is the position of the scripted critical event
	// within a demo run. The generator blocks on the AI-ready rendezvous
	// before emitting it.
	demoCriticalIndex = 3

	// anomalyStreakLimit is how many anomalous events target the same
	// service before the streak self-clears
	anomalyStreakLimit = 5

	stopTimeout = 5 * time.Second
)

var regions = []string{"us-east-1", "us-west-2", "eu-west-1", "ap-southeast-1", "ap-northeast-1"}

var servicesByType = map[EventType][]string{
	EventTypeAPI:            {"auth-api", "user-api", "payment-api", "product-api", "search-api"},
	EventTypeDatabase:       {"postgres-primary", "postgres-replica", "redis-cache", "mongo-db"},
	EventTypeFrontend:       {"web-app", "mobile-app", "admin-dashboard"},
	EventTypeInfrastructure: {"k8s-cluster", "load-balancer", "cdn", "storage"},
}

var apiEndpoints = []string{
	"/api/v1/users",
	"/api/v1/auth/login",
	"/api/v1/products",
	"/api/v1/orders",
	"/api/v1/payments",
	"/api/v1/search",
}

var dbQueries = []string{
	"SELECT * FROM users WHERE id = ?",
	"UPDATE orders SET status = ? WHERE id = ?",
	"INSERT INTO audit_log VALUES (?, ?, ?)",
	"SELECT COUNT(*) FROM products WHERE category = ?",
	"DELETE FROM sessions WHERE expires_at < ?",
}

var jsErrors = []string{
	"TypeError: Cannot read property 'data' of undefined",
	"ReferenceError: fetchUser is not defined",
	"NetworkError: Failed to fetch",
	"ChunkLoadError: Loading chunk 3 failed",
	"SecurityError: Blocked a frame with origin",
}

// GeneratorConfig tunes the event generator. Zero values fall back to
// production defaults; tests inject a fast interval and a fixed clock.
type GeneratorConfig struct {
	// EventInterval is the wait between emitted events. Values <= 0
	// fall back to DefaultEventInterval; there is no unbuffered "emit
	// as fast as possible" mode, use a small positive interval instead.
	EventInterval time.Duration

	BufferSize int
	Clock      func() time.Time
	Seed       int64
}

// Generator produces synthetic telemetry events from a single background
// goroutine. All shared state (buffer, counters, anomaly streak, running
// flag) is guarded by one mutex held only for O(1) operations; the
// inter-tick wait and the demo rendezvous wait happen outside the lock
// and are both interruptible by Stop.
type Generator struct {
	interval time.Duration
	clock    func() time.Time
	rng      *rand.Rand

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	buf     *eventBuffer
	emitted int

	anomalyMode    bool
	anomalyService string
	anomalyCount   int

	demo        bool
	aiReady     chan struct{}
	signalReady sync.Once
	onComplete  func()
}

// NewGenerator creates a generator with the given config
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.EventInterval <= 0 {
		cfg.EventInterval = DefaultEventInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		interval: cfg.EventInterval,
		clock:    cfg.Clock,
		rng:      rand.New(rand.NewSource(seed)),
		buf:      newEventBuffer(cfg.BufferSize),
	}
}

// Start launches the background producer in continuous mode. Calling
// Start while the generator is already running is a no-op.
func (g *Generator) Start() {
	g.start(false, nil)
}

// StartDemo launches a capped demo run of exactly DemoEventCount events.
// The scripted critical event is withheld until SignalAIReady is called.
// onComplete is invoked exactly once after the final event; it may be nil.
// No-op if the generator is already running.
func (g *Generator) StartDemo(onComplete func()) {
	g.start(true, onComplete)
}

func (g *Generator) start(demo bool, onComplete func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return
	}

	g.running = true
	g.demo = demo
	g.onComplete = onComplete
	g.aiReady = make(chan struct{})
	g.signalReady = sync.Once{}
	g.stopCh = make(chan struct{})
	g.doneCh = make(chan struct{})

	go g.run(g.stopCh, g.doneCh)
}

// Stop signals the producer goroutine to exit and waits for it with a
// bounded timeout. Safe to call repeatedly or before Start.
func (g *Generator) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	close(g.stopCh)
	done := g.doneCh
	g.mu.Unlock()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		log.Printf("Event generator did not stop within %v", stopTimeout)
	}
}

// IsRunning reports whether the producer goroutine is active
func (g *Generator) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// SignalAIReady releases the demo-mode rendezvous so the scripted
// critical event can be emitted. Idempotent; harmless outside demo mode.
func (g *Generator) SignalAIReady() {
	g.mu.Lock()
	ready := g.aiReady
	g.mu.Unlock()
	if ready == nil {
		return
	}
	g.signalReady.Do(func() { close(ready) })
}

// Events returns buffered events sorted by timestamp descending,
// truncated to limit when limit > 0.
func (g *Generator) Events(limit int) []LogEvent {
	g.mu.Lock()
	events := g.buf.snapshot()
	g.mu.Unlock()

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}

// FlaggedEvents returns buffered flagged events, most recent first
func (g *Generator) FlaggedEvents(limit int) []LogEvent {
	all := g.Events(0)
	flagged := make([]LogEvent, 0, len(all))
	for _, ev := range all {
		if ev.Flagged {
			flagged = append(flagged, ev)
		}
	}
	if limit > 0 && len(flagged) > limit {
		flagged = flagged[:limit]
	}
	return flagged
}

// ClearEvents empties the buffer and resets the emitted counter and
// anomaly streak state
func (g *Generator) ClearEvents() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buf.clear()
	g.emitted = 0
	g.anomalyMode = false
	g.anomalyService = ""
	g.anomalyCount = 0
}

// EmittedCount returns the number of events emitted since the last clear
func (g *Generator) EmittedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.emitted
}

// SetFlags writes threshold-checker decisions back into the buffered
// copy of an event, so readers see flagged state on subsequent polls.
// Returns false if the event has already been evicted.
func (g *Generator) SetFlags(eventID string, flagged, critical bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.buf.events {
		if g.buf.events[i].EventID == eventID {
			if flagged {
				g.buf.events[i].Flagged = true
			}
			if critical {
				g.buf.events[i].Critical = true
			}
			return true
		}
	}
	return false
}

// run is the producer loop. A tick failure must never take down the
// goroutine: event construction is wrapped in a recover.
func (g *Generator) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	index := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		if g.demo && index == demoCriticalIndex {
			// Rendezvous: the scripted critical event must not become
			// visible before the downstream analyst reports ready.
			g.mu.Lock()
			ready := g.aiReady
			g.mu.Unlock()
			select {
			case <-ready:
			case <-stop:
				return
			}
		}

		ev, ok := g.nextEvent(index)
		if ok {
			g.mu.Lock()
			g.buf.append(ev)
			g.emitted++
			g.mu.Unlock()
			metrics.ObserveEventGenerated(string(ev.EventType))
		}
		index++

		if g.demo && index >= DemoEventCount {
			g.finishDemo()
			return
		}

		timer := time.NewTimer(g.interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// finishDemo marks the generator stopped and fires the completion
// callback. Stop may race with natural completion; the running flag is
// settled under the lock so stopCh is never double-closed.
func (g *Generator) finishDemo() {
	g.mu.Lock()
	g.running = false
	cb := g.onComplete
	g.onComplete = nil
	g.mu.Unlock()

	log.Printf("Demo event sequence complete (%d events)", DemoEventCount)
	if cb != nil {
		cb()
	}
}

// nextEvent builds one event, recovering from any tick-level panic so
// the producer keeps going
func (g *Generator) nextEvent(index int) (ev LogEvent, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Event generation tick failed: %v", r)
			ok = false
		}
	}()

	if g.demo && index == demoCriticalIndex {
		return g.demoCriticalEvent(), true
	}
	return g.createEvent(), true
}

// demoCriticalEvent is the pre-supplied 4th event of a demo run. It is
// flagged and critical up front rather than left to the checker.
func (g *Generator) demoCriticalEvent() LogEvent {
	return LogEvent{
		EventID:     uuid.New().String(),
		Timestamp:   g.clock(),
		EventType:   EventTypeAPI,
		ServiceName: "payment-api",
		Region:      "us-east-1",
		CustomerID:  "cust_00042",
		Severity:    "critical",
		Message:     "/api/v1/payments - 503",
		Metrics: map[string]float64{
			"latency_ms":      2500,
			"status_code":     503,
			"request_size_kb": 4.2,
		},
		Flagged:  true,
		Critical: true,
	}
}

// createEvent picks an event type and synthesizes metrics for it. With
// 15% probability the event is anomalous; an active anomaly streak
// biases anomalous events toward one service until the streak clears.
// The streak state is shared with ClearEvents, so it is settled under
// the mutex.
func (g *Generator) createEvent() LogEvent {
	anomalous := g.rng.Float64() < 0.15

	g.mu.Lock()
	if anomalous {
		if !g.anomalyMode || g.rng.Float64() < 0.3 {
			types := EventTypes()
			t := types[g.rng.Intn(len(types))]
			svcs := servicesByType[t]
			g.anomalyMode = true
			g.anomalyService = svcs[g.rng.Intn(len(svcs))]
			g.anomalyCount = 0
		}
	}

	if g.anomalyMode {
		g.anomalyCount++
		if g.anomalyCount >= anomalyStreakLimit {
			g.anomalyMode = false
			g.anomalyService = ""
			g.anomalyCount = 0
		}
	}

	biasService := ""
	if g.anomalyMode && anomalous {
		biasService = g.anomalyService
	}
	g.mu.Unlock()

	types := EventTypes()
	switch types[g.rng.Intn(len(types))] {
	case EventTypeAPI:
		return g.createAPIEvent(anomalous, biasService)
	case EventTypeDatabase:
		return g.createDatabaseEvent(anomalous, biasService)
	case EventTypeFrontend:
		return g.createFrontendEvent(anomalous, biasService)
	default:
		return g.createInfrastructureEvent(anomalous, biasService)
	}
}

func (g *Generator) pickService(t EventType, biasService string) string {
	if biasService != "" {
		return biasService
	}
	svcs := servicesByType[t]
	return svcs[g.rng.Intn(len(svcs))]
}

func (g *Generator) pickRegion() string {
	return regions[g.rng.Intn(len(regions))]
}

func (g *Generator) pickCustomer(probability float64) string {
	if g.rng.Float64() >= probability {
		return ""
	}
	return fmt.Sprintf("cust_%05d", 1+g.rng.Intn(100))
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return round2(lo + g.rng.Float64()*(hi-lo))
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func (g *Generator) createAPIEvent(anomalous bool, biasService string) LogEvent {
	endpoint := apiEndpoints[g.rng.Intn(len(apiEndpoints))]

	var latency float64
	var statusCode int
	var severity string
	if anomalous {
		latency = g.uniform(500, 800)
		codes := []int{500, 503, 429, 500, 500}
		statusCode = codes[g.rng.Intn(len(codes))]
		severity = "error"
	} else {
		latency = g.uniform(50, 450)
		codes := []int{200, 200, 200, 200, 201, 400, 404}
		statusCode = codes[g.rng.Intn(len(codes))]
		severity = "info"
		if statusCode >= 400 {
			severity = "warning"
		}
	}

	return LogEvent{
		EventID:     uuid.New().String(),
		Timestamp:   g.clock(),
		EventType:   EventTypeAPI,
		ServiceName: g.pickService(EventTypeAPI, biasService),
		Region:      g.pickRegion(),
		CustomerID:  g.pickCustomer(0.7),
		Severity:    severity,
		Message:     fmt.Sprintf("%s - %d", endpoint, statusCode),
		Metrics: map[string]float64{
			"latency_ms":      latency,
			"status_code":     float64(statusCode),
			"request_size_kb": g.uniform(0.5, 50),
		},
	}
}

func (g *Generator) createDatabaseEvent(anomalous bool, biasService string) LogEvent {
	query := dbQueries[g.rng.Intn(len(dbQueries))]

	var queryTime, poolUtilization float64
	severity := "info"
	if anomalous {
		queryTime = g.uniform(300, 500)
		poolUtilization = g.uniform(45, 50)
		severity = "error"
	} else {
		queryTime = g.uniform(10, 250)
		poolUtilization = g.uniform(5, 40)
	}

	msg := query
	if len(msg) > 50 {
		msg = msg[:50]
	}

	return LogEvent{
		EventID:     uuid.New().String(),
		Timestamp:   g.clock(),
		EventType:   EventTypeDatabase,
		ServiceName: g.pickService(EventTypeDatabase, biasService),
		Region:      g.pickRegion(),
		CustomerID:  g.pickCustomer(0.3),
		Severity:    severity,
		Message:     fmt.Sprintf("Query executed: %s...", msg),
		Metrics: map[string]float64{
			"query_time_ms":        queryTime,
			"rows_affected":        float64(g.rng.Intn(1001)),
			"connection_pool_size": float64(int(poolUtilization)),
		},
	}
}

func (g *Generator) createFrontendEvent(anomalous bool, biasService string) LogEvent {
	var loadTime float64
	var severity string
	var hasJSError bool
	if anomalous {
		loadTime = g.uniform(5000, 8000)
		severity = "error"
		hasJSError = g.rng.Float64() < 0.6
	} else {
		loadTime = g.uniform(500, 4500)
		severity = "info"
		hasJSError = g.rng.Float64() < 0.05
	}

	message := "Page loaded successfully"
	if hasJSError {
		message = fmt.Sprintf("Page load error: %s", jsErrors[g.rng.Intn(len(jsErrors))])
	}

	return LogEvent{
		EventID:     uuid.New().String(),
		Timestamp:   g.clock(),
		EventType:   EventTypeFrontend,
		ServiceName: g.pickService(EventTypeFrontend, biasService),
		Region:      g.pickRegion(),
		CustomerID:  g.pickCustomer(0.8),
		Severity:    severity,
		Message:     message,
		Metrics: map[string]float64{
			"load_time_ms":     loadTime,
			"bundle_size_kb":   g.uniform(200, 800),
			"resources_loaded": float64(10 + g.rng.Intn(41)),
		},
	}
}

func (g *Generator) createInfrastructureEvent(anomalous bool, biasService string) LogEvent {
	var cpu, memory float64
	severity := "info"
	if anomalous {
		cpu = g.uniform(90, 95)
		memory = g.uniform(95, 98)
		severity = "critical"
	} else {
		cpu = g.uniform(20, 85)
		memory = g.uniform(40, 90)
	}

	return LogEvent{
		EventID:     uuid.New().String(),
		Timestamp:   g.clock(),
		EventType:   EventTypeInfrastructure,
		ServiceName: g.pickService(EventTypeInfrastructure, biasService),
		Region:      g.pickRegion(),
		Severity:    severity,
		Message:     "Resource utilization report",
		Metrics: map[string]float64{
			"cpu_percent":     cpu,
			"memory_percent":  memory,
			"disk_io_mbps":    g.uniform(10, 500),
			"network_io_mbps": g.uniform(50, 1000),
		},
	}
}
