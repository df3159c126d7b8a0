package reprice

import (
	"sync"
	"time"

	"github.com/jewelcraft/reprice-service/internal/reprice/domain"
)

// Tracker owns the process-wide job state. The runner is its only writer;
// everything else reads through Snapshot. All methods take the same lock so
// counters and items are never observed torn.
type Tracker struct {
	mu    sync.Mutex
	state domain.State
}

// NewTracker creates a tracker in the idle state.
func NewTracker() *Tracker {
	return &Tracker{
		state: domain.State{Items: []domain.ItemResult{}},
	}
}

// Begin transitions Idle -> Running and resets all progress for the new run.
// Returns ErrAlreadyRunning, leaving prior state intact, if a run is active.
func (t *Tracker) Begin(runID string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Running {
		return domain.ErrAlreadyRunning
	}

	t.state = domain.State{
		RunID:     runID,
		Running:   true,
		StartedAt: &now,
		Items:     []domain.ItemResult{},
	}

	return nil
}

// AddTotal adds a batch's variant count to the run total. Totals accumulate
// per fetched page, before any of the page's variants are processed, so
// len(items) never exceeds total.
func (t *Tracker) AddTotal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Total += n
}

// Append records a new item row and returns its index for later resolution.
func (t *Tracker) Append(item domain.ItemResult) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Items = append(t.state.Items, item)
	return len(t.state.Items) - 1
}

// MarkSuccess resolves an item as successfully updated and returns the
// resolved row.
func (t *Tracker) MarkSuccess(idx int) domain.ItemResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Items[idx].Status = domain.ItemStatusSuccess
	t.state.Processed++
	return t.state.Items[idx]
}

// MarkFailed resolves an item as failed with the given reason and returns
// the resolved row.
func (t *Tracker) MarkFailed(idx int, reason string) domain.ItemResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Items[idx].Status = domain.ItemStatusFailed
	t.state.Items[idx].Error = reason
	t.state.Failed++
	return t.state.Items[idx]
}

// End transitions Running -> Idle, keeping the run's results readable.
func (t *Tracker) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Running = false
}

// Snapshot returns a consistent copy of the current state. The items slice
// is copied so callers never alias the runner's working data.
func (t *Tracker) Snapshot() domain.State {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.state
	snapshot.Items = make([]domain.ItemResult, len(t.state.Items))
	copy(snapshot.Items, t.state.Items)

	return snapshot
}
