// Package metrics provides in-memory runtime statistics for the
// conversation pipeline stages.
package metrics

import (
	"sync"
	"time"
)

// Stage names recorded by the collector.
type Stage string

const (
	StageVectorQuery Stage = "vector_query"
	StageResolve     Stage = "resolve"
	StageSummarize   Stage = "summarize"
	StageModelInvoke Stage = "model_invoke"
	StagePersist     Stage = "persist"
)

// stageMetrics holds raw aggregates for one stage.
type stageMetrics struct {
	count    int64
	failures int64
	total    time.Duration
	min      time.Duration
	max      time.Duration
}

// Collector aggregates per-stage durations and failure counts. Safe for
// concurrent use.
type Collector struct {
	mu     sync.Mutex
	start  time.Time
	stages map[Stage]*stageMetrics
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		start:  time.Now(),
		stages: make(map[Stage]*stageMetrics),
	}
}

// Record adds one observation for a stage. A non-nil err counts as a
// failure; the duration is recorded either way.
func (c *Collector) Record(stage Stage, d time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.stages[stage]
	if !ok {
		m = &stageMetrics{min: d, max: d}
		c.stages[stage] = m
	}

	m.count++
	m.total += d
	if d < m.min {
		m.min = d
	}
	if d > m.max {
		m.max = d
	}
	if err != nil {
		m.failures++
	}
}

// StageSnapshot provides computed stats for one stage.
type StageSnapshot struct {
	Count    int64   `json:"count"`
	Failures int64   `json:"failures"`
	AvgMs    float64 `json:"avg_ms"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
}

// Snapshot is the full collector state at a point in time.
type Snapshot struct {
	UptimeSeconds float64                  `json:"uptime_seconds"`
	Stages        map[Stage]StageSnapshot `json:"stages"`
}

// Snapshot returns computed stats for all stages observed so far.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.start).Seconds(),
		Stages:        make(map[Stage]StageSnapshot, len(c.stages)),
	}
	for stage, m := range c.stages {
		snap.Stages[stage] = StageSnapshot{
			Count:    m.count,
			Failures: m.failures,
			AvgMs:    float64(m.total.Milliseconds()) / float64(m.count),
			MinMs:    m.min.Milliseconds(),
			MaxMs:    m.max.Milliseconds(),
		}
	}
	return snap
}
