package codec

import (
	"slices"
	"sync"
	"time"
)

type renderSample struct {
	at     time.Time
	ms     int64
	bytes  int
	format string
}

// StatsSnapshot aggregates the code renders currently in the window.
type StatsSnapshot struct {
	Count int     `json:"count"`
	Bytes int64   `json:"bytes"` // tagged text encoded into codes
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`

	// Formats breaks the window down by the document format the codes were
	// rendered for. Renders recorded without a format are only in the totals.
	Formats map[string]FormatSnapshot `json:"formats,omitempty"`
}

// FormatSnapshot is the per-format slice of a StatsSnapshot.
type FormatSnapshot struct {
	Count int     `json:"count"`
	Bytes int64   `json:"bytes"`
	AvgMs float64 `json:"avg_ms"`
	P95Ms float64 `json:"p95_ms"`
}

type statsWindow struct {
	mu      sync.Mutex
	samples []renderSample
	maxAge  time.Duration
}

// Stats keeps per-code render latencies for a rolling window. Views made
// with ForFormat share the window and tag what they record.
type Stats struct {
	w      *statsWindow
	format string
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{w: &statsWindow{
		samples: make([]renderSample, 0, 256),
		maxAge:  maxAge,
	}}
}

// ForFormat returns a view that records under format. Nil stays nil.
func (s *Stats) ForFormat(format string) *Stats {
	if s == nil {
		return nil
	}
	return &Stats{w: s.w, format: format}
}

// Record adds one render of a text of the given size.
func (s *Stats) Record(bytes int, durationMs int64) {
	now := time.Now()

	s.w.mu.Lock()
	defer s.w.mu.Unlock()

	s.w.pruneLocked(now)
	s.w.samples = append(s.w.samples, renderSample{
		at:     now,
		ms:     max(durationMs, 0),
		bytes:  max(bytes, 0),
		format: s.format,
	})
}

// Snapshot summarizes the whole window, whatever view it is called on.
func (s *Stats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.w.mu.Lock()
	s.w.pruneLocked(now)
	samples := slices.Clone(s.w.samples)
	s.w.mu.Unlock()

	if len(samples) == 0 {
		return StatsSnapshot{}
	}

	all := make([]int64, 0, len(samples))
	byFormat := make(map[string][]renderSample)
	var snap StatsSnapshot
	var sum int64
	for _, sm := range samples {
		all = append(all, sm.ms)
		sum += sm.ms
		snap.Bytes += int64(sm.bytes)
		if sm.format != "" {
			byFormat[sm.format] = append(byFormat[sm.format], sm)
		}
	}
	slices.Sort(all)

	snap.Count = len(all)
	snap.MinMs = all[0]
	snap.MaxMs = all[len(all)-1]
	snap.AvgMs = float64(sum) / float64(len(all))
	snap.P50Ms = percentile(all, 50)
	snap.P95Ms = percentile(all, 95)
	snap.P99Ms = percentile(all, 99)

	if len(byFormat) > 0 {
		snap.Formats = make(map[string]FormatSnapshot, len(byFormat))
		for format, fs := range byFormat {
			snap.Formats[format] = summarizeFormat(fs)
		}
	}
	return snap
}

func summarizeFormat(samples []renderSample) FormatSnapshot {
	ms := make([]int64, len(samples))
	fs := FormatSnapshot{Count: len(samples)}
	var sum int64
	for i, sm := range samples {
		ms[i] = sm.ms
		sum += sm.ms
		fs.Bytes += int64(sm.bytes)
	}
	slices.Sort(ms)
	fs.AvgMs = float64(sum) / float64(len(ms))
	fs.P95Ms = percentile(ms, 95)
	return fs
}

func (w *statsWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	w.samples = slices.DeleteFunc(w.samples, func(sm renderSample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the two closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	rank := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := rank - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}
