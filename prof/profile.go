package prof

import (
	"sort"
	"sync"
	"time"
)

// Entry represents a single timing measurement.
type Entry struct {
	Label string
	Dur   time.Duration
}

// Recorder collects timing entries from concurrent workers. A nil
// *Recorder discards everything, so callers never need to check.
type Recorder struct {
	mu     sync.Mutex
	record []Entry
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Track logs the duration since start with the given name.
func (r *Recorder) Track(start time.Time, name string) {
	if r == nil {
		return
	}
	elapsed := time.Since(start)
	r.mu.Lock()
	r.record = append(r.record, Entry{Label: name, Dur: elapsed})
	r.mu.Unlock()
}

// SnapshotAndReset returns the collected timing entries and clears them.
func (r *Recorder) SnapshotAndReset() []Entry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.record))
	copy(out, r.record)
	r.record = nil
	return out
}

// Stat aggregates all entries sharing a label.
type Stat struct {
	Label string
	Total time.Duration
	Count int
}

// Summarize folds entries per label, longest total first.
func Summarize(entries []Entry) []Stat {
	agg := make(map[string]*Stat)
	for _, e := range entries {
		s, ok := agg[e.Label]
		if !ok {
			s = &Stat{Label: e.Label}
			agg[e.Label] = s
		}
		s.Total += e.Dur
		s.Count++
	}
	out := make([]Stat, 0, len(agg))
	for _, s := range agg {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total == out[j].Total {
			return out[i].Label < out[j].Label
		}
		return out[i].Total > out[j].Total
	})
	return out
}
