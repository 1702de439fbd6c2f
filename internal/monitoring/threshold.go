package monitoring

import (
	"github.com/deskwatch/deskwatch/internal/metrics"
)

// criticalViolationCount is how many consecutive breaches of the same
// service/type/metric escalate a flagged event to critical
const criticalViolationCount = 3

const baselineWindowSize = 100

// MetricThreshold pairs a metric name with its breach value
type MetricThreshold struct {
	Metric string  `yaml:"metric"`
	Value  float64 `yaml:"value"`
}

// DefaultThresholds returns the fixed threshold table. Within an event
// type, metrics are evaluated in order and evaluation stops at the
// first breach.
func DefaultThresholds() map[EventType][]MetricThreshold {
	return map[EventType][]MetricThreshold{
		EventTypeAPI: {
			{Metric: "latency_ms", Value: 500},
			{Metric: "error_rate", Value: 5},
		},
		EventTypeDatabase: {
			{Metric: "query_time_ms", Value: 300},
		},
		EventTypeFrontend: {
			{Metric: "load_time_ms", Value: 5000},
		},
		EventTypeInfrastructure: {
			{Metric: "cpu_percent", Value: 90},
			{Metric: "memory_percent", Value: 95},
		},
	}
}

// RollingBaseline tracks the recent healthy values of one
// service/type/metric key plus its consecutive-violation streak. Only
// non-breaching observations enter the window, so the average is never
// polluted by anomalies.
type RollingBaseline struct {
	values                []float64
	maxSize               int
	ConsecutiveViolations int
}

// NewRollingBaseline creates a baseline with the given window size
func NewRollingBaseline(maxSize int) *RollingBaseline {
	return &RollingBaseline{maxSize: maxSize}
}

// AddValue records a healthy observation, evicting the oldest when full
func (b *RollingBaseline) AddValue(v float64) {
	if len(b.values) >= b.maxSize {
		copy(b.values, b.values[1:])
		b.values = b.values[:len(b.values)-1]
	}
	b.values = append(b.values, v)
}

// Average returns the mean of the window, or nil when no healthy
// sample has been recorded yet
func (b *RollingBaseline) Average() *float64 {
	if len(b.values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range b.values {
		sum += v
	}
	avg := sum / float64(len(b.values))
	return &avg
}

// Size returns the number of samples in the window
func (b *RollingBaseline) Size() int {
	return len(b.values)
}

type baselineKey struct {
	service   string
	eventType EventType
	metric    string
}

// ThresholdChecker evaluates events against the threshold table and
// maintains per-key rolling baselines as a side effect. It owns no
// concurrency; callers invoke CheckEvent from a single goroutine (or
// serialize externally).
type ThresholdChecker struct {
	thresholds map[EventType][]MetricThreshold
	baselines  map[baselineKey]*RollingBaseline
}

// NewThresholdChecker creates a checker with the default threshold table
func NewThresholdChecker() *ThresholdChecker {
	return NewThresholdCheckerWithTable(DefaultThresholds())
}

// NewThresholdCheckerWithTable creates a checker with a custom table,
// e.g. loaded from the rules file
func NewThresholdCheckerWithTable(table map[EventType][]MetricThreshold) *ThresholdChecker {
	return &ThresholdChecker{
		thresholds: table,
		baselines:  make(map[baselineKey]*RollingBaseline),
	}
}

// CheckEvent evaluates one event. On the first breached metric it marks
// the event flagged (critical after three consecutive breaches of that
// key) and stops. Non-breaching values reset the violation streak and
// feed the baseline window. Events carrying no metric from the table
// come back unflagged with no baseline mutation.
func (c *ThresholdChecker) CheckEvent(event *LogEvent) ThresholdResult {
	result := ThresholdResult{}
	if event == nil || event.Metrics == nil {
		return result
	}

	for _, th := range c.thresholds[event.EventType] {
		actual, ok := event.Metrics[th.Metric]
		if !ok {
			continue
		}

		baseline := c.baseline(event.ServiceName, event.EventType, th.Metric)

		if actual > th.Value {
			event.Flagged = true
			result.Flagged = true
			result.ThresholdExceeded = th.Metric
			result.ActualValue = actual
			result.ThresholdValue = th.Value
			result.BaselineValue = baseline.Average()

			baseline.ConsecutiveViolations++
			if baseline.ConsecutiveViolations >= criticalViolationCount {
				event.Critical = true
				result.Critical = true
			}

			metrics.ObserveEventFlagged(result.Critical)
			break
		}

		baseline.ConsecutiveViolations = 0
		baseline.AddValue(actual)
	}

	return result
}

// Baseline exposes the baseline for a key, mainly for inspection
func (c *ThresholdChecker) Baseline(service string, t EventType, metric string) *RollingBaseline {
	return c.baselines[baselineKey{service, t, metric}]
}

func (c *ThresholdChecker) baseline(service string, t EventType, metric string) *RollingBaseline {
	key := baselineKey{service, t, metric}
	b, ok := c.baselines[key]
	if !ok {
		b = NewRollingBaseline(baselineWindowSize)
		c.baselines[key] = b
	}
	return b
}
