package orchestrator

import (
	"sync"
	"time"
)

const ringSize = 50

// requestRecord is one inference request's outcome, kept in a per-model
// ring buffer so /stats can report recent latency and error history without
// unbounded memory growth.
type requestRecord struct {
	Model      string    `json:"model"`
	Recipe     string    `json:"recipe"`
	Backend    string    `json:"backend"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	StatusCode int       `json:"status_code"`
	Streaming  bool      `json:"streaming"`
}

// modelStats aggregates a single model's request history: running totals
// plus the last ringSize records.
type modelStats struct {
	Requests int64           `json:"requests"`
	Errors   int64           `json:"errors"`
	TotalMs  int64           `json:"total_duration_ms"`
	Recent   []requestRecord `json:"recent"`
	next     int
}

// statsLog is the Orchestrator's in-memory request log backing GET /stats,
// grounded on the recorder pattern of tracking a request at dispatch time
// and finalizing it once the response completes.
type statsLog struct {
	mu      sync.Mutex
	started time.Time
	byModel map[string]*modelStats
}

func newStatsLog() *statsLog {
	return &statsLog{started: time.Now(), byModel: make(map[string]*modelStats)}
}

// Record appends rec to its model's ring buffer and updates the running
// aggregate.
func (s *statsLog) Record(rec requestRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byModel[rec.Model]
	if !ok {
		m = &modelStats{Recent: make([]requestRecord, 0, ringSize)}
		s.byModel[rec.Model] = m
	}
	m.Requests++
	m.TotalMs += rec.DurationMs
	if rec.StatusCode >= 400 {
		m.Errors++
	}
	if len(m.Recent) < ringSize {
		m.Recent = append(m.Recent, rec)
	} else {
		m.Recent[m.next] = rec
		m.next = (m.next + 1) % ringSize
	}
}

// Snapshot is the JSON shape served by GET /stats.
type Snapshot struct {
	UptimeSeconds float64               `json:"uptime_seconds"`
	Models        map[string]modelStats `json:"models"`
	Aggregate     AggregateStats        `json:"aggregate"`
}

// AggregateStats sums every model's counters for a top-level total.
type AggregateStats struct {
	Requests int64 `json:"requests"`
	Errors   int64 `json:"errors"`
}

func (s *statsLog) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{
		UptimeSeconds: time.Since(s.started).Seconds(),
		Models:        make(map[string]modelStats, len(s.byModel)),
	}
	for name, m := range s.byModel {
		out.Models[name] = *m
		out.Aggregate.Requests += m.Requests
		out.Aggregate.Errors += m.Errors
	}
	return out
}

// Stats returns the current request-log snapshot.
func (o *Orchestrator) Stats() Snapshot { return o.stats.Snapshot() }
