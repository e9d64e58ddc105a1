package pipeline

import (
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/docdeck/internal/doctree"
)

type sample struct {
	timestamp time.Time
	kind      doctree.Kind
	elapsed   time.Duration
}

// StatsSnapshot aggregates the render latencies inside the window.
type StatsSnapshot struct {
	Count  int                  `json:"count"`
	MinMs  float64              `json:"min_ms"`
	MaxMs  float64              `json:"max_ms"`
	AvgMs  float64              `json:"avg_ms"`
	P50Ms  float64              `json:"p50_ms"`
	P95Ms  float64              `json:"p95_ms"`
	P99Ms  float64              `json:"p99_ms"`
	ByKind map[doctree.Kind]int `json:"by_kind"`
}

// RenderStats tracks recent document render latencies within a rolling window.
type RenderStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewRenderStats(maxAge time.Duration) *RenderStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &RenderStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

// Record adds one render of a document of the given kind.
func (s *RenderStats) Record(kind doctree.Kind, elapsed time.Duration) {
	if elapsed < 0 {
		elapsed = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{timestamp: now, kind: kind, elapsed: elapsed})
}

func (s *RenderStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	snap := StatsSnapshot{ByKind: map[doctree.Kind]int{}}
	if len(s.samples) == 0 {
		return snap
	}

	values := make([]float64, 0, len(s.samples))
	var sum float64
	for _, sm := range s.samples {
		ms := float64(sm.elapsed) / float64(time.Millisecond)
		values = append(values, ms)
		sum += ms
		snap.ByKind[sm.kind]++
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = sum / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *RenderStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.timestamp.Before(cutoff)
	})
}

func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return sorted[0]
	}
	if pct >= 100 {
		return sorted[len(sorted)-1]
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}
