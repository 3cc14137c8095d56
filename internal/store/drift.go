package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
)

// #region accumulator
// DriftEntry records one observed per-layer score movement across epochs.
type DriftEntry struct {
	MethodID  string       `json:"method_id"`
	Layer     layer.Symbol `json:"layer"`
	FromEpoch string       `json:"from_epoch"`
	ToEpoch   string       `json:"to_epoch"`
	Delta     float64      `json:"delta"`
	At        time.Time    `json:"at"`
}

// DriftAccumulator is the only mutable shared state in the engine: an
// append-only log guarded by a mutex so concurrent writers neither lose nor
// corrupt entries, and readers see consistent snapshots.
type DriftAccumulator struct {
	mu      sync.Mutex
	entries []DriftEntry
}

// Append records one entry.
func (a *DriftAccumulator) Append(e DriftEntry) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	a.mu.Lock()
	a.entries = append(a.entries, e)
	a.mu.Unlock()
}

// Snapshot returns a consistent copy of all entries so far.
func (a *DriftAccumulator) Snapshot() []DriftEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]DriftEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of accumulated entries.
func (a *DriftAccumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// #endregion accumulator

// #region flush
// FlushDrift appends a snapshot of the accumulator to the drift_log table.
func (s *Store) FlushDrift(a *DriftAccumulator) (int, error) {
	entries := a.Snapshot()
	for _, e := range entries {
		_, err := s.db.Exec(
			`INSERT INTO drift_log (method_id, layer, from_epoch, to_epoch, delta, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.MethodID, string(e.Layer), e.FromEpoch, e.ToEpoch, e.Delta,
			e.At.Format(time.RFC3339Nano),
		)
		if err != nil {
			return 0, fmt.Errorf("flush drift: %w", err)
		}
	}
	return len(entries), nil
}

// #endregion flush
