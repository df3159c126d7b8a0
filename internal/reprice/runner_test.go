package reprice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jewelcraft/reprice-service/internal/catalog"
	"github.com/jewelcraft/reprice-service/internal/pricing"
	"github.com/jewelcraft/reprice-service/internal/reprice/domain"
	"github.com/jewelcraft/reprice-service/shared/logger"
)

type fakeCatalog struct {
	mu          sync.Mutex
	pages       []catalog.Page
	fetchErrOn  int // 0-based fetch call index, -1 disables
	fetchCalls  int
	updateErrs  map[string]error // variant ID -> error
	updated     []string
	updateDelay time.Duration
}

func newFakeCatalog(pages ...catalog.Page) *fakeCatalog {
	return &fakeCatalog{
		pages:      pages,
		fetchErrOn: -1,
		updateErrs: map[string]error{},
	}
}

func (f *fakeCatalog) FetchPage(_ context.Context, _ string, _ int) (catalog.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.fetchCalls
	f.fetchCalls++

	if f.fetchErrOn >= 0 && call == f.fetchErrOn {
		return catalog.Page{}, errors.New("bad gateway")
	}
	if call >= len(f.pages) {
		return catalog.Page{}, nil
	}
	return f.pages[call], nil
}

func (f *fakeCatalog) UpdateVariantPrice(_ context.Context, _, variantID string, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.updateErrs[variantID]; ok {
		return err
	}
	if f.updateDelay > 0 {
		time.Sleep(f.updateDelay)
	}
	f.updated = append(f.updated, variantID)
	return nil
}

func (f *fakeCatalog) updatedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updated...)
}

func testProduct(id string, variants ...catalog.VariantRecord) catalog.ProductRecord {
	return catalog.ProductRecord{
		ID:    id,
		Title: "Product " + id,
		Attributes: map[string]string{
			catalog.AttrMetalWeight18kt: "2.0",
			catalog.AttrDiamondWeight:   "0.5",
		},
		Variants: variants,
	}
}

func goodVariant(id string) catalog.VariantRecord {
	return catalog.VariantRecord{ID: id, Title: "18KT-Yellow/HI SI", Price: 12000}
}

func newTestRunner(cat CatalogClient, tracker *Tracker) *Runner {
	return NewRunner(&Config{
		Logger:   logger.NewDefault().Logger,
		Catalog:  cat,
		Tracker:  tracker,
		PageSize: 10,
	})
}

func validInput() pricing.Input {
	return pricing.Input{
		GoldPricePerGram:       6000,
		MakingChargePerGram:    500,
		DiamondTierAPerCarat:   12000,
		DiamondTierBPerCarat:   8000,
		GemstonePerCarat:       3000,
		CertificationSurcharge: 1500,
	}
}

func waitForIdle(t *testing.T, runner *Runner) domain.State {
	t.Helper()
	require.Eventually(t, func() bool {
		return !runner.Status().Running
	}, 5*time.Second, 5*time.Millisecond)
	return runner.Status()
}

func TestRunner_SuccessfulRun(t *testing.T) {
	cat := newFakeCatalog(
		catalog.Page{
			Products: []catalog.ProductRecord{
				testProduct("p1", goodVariant("v1"), goodVariant("v2")),
			},
			NextCursor: "c1",
			HasMore:    true,
		},
		catalog.Page{
			Products: []catalog.ProductRecord{
				testProduct("p2", goodVariant("v3")),
			},
			NextCursor: "c2",
			HasMore:    false,
		},
	)

	tracker := NewTracker()
	runner := newTestRunner(cat, tracker)

	runID, err := runner.Start(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	state := waitForIdle(t, runner)
	assert.Equal(t, runID, state.RunID)
	assert.Equal(t, 3, state.Total)
	assert.Equal(t, 3, state.Processed)
	assert.Zero(t, state.Failed)
	require.Len(t, state.Items, 3)

	for _, item := range state.Items {
		assert.Equal(t, domain.ItemStatusSuccess, item.Status)
		assert.Equal(t, 17500.0, item.FinalPrice)
		assert.Equal(t, 12000.0, item.OldPrice)
	}

	assert.Equal(t, []string{"v1", "v2", "v3"}, cat.updatedIDs())
}

func TestRunner_StartReturnsBeforeCompletion(t *testing.T) {
	cat := newFakeCatalog(catalog.Page{
		Products: []catalog.ProductRecord{testProduct("p1", goodVariant("v1"))},
	})
	cat.updateDelay = 50 * time.Millisecond

	runner := newTestRunner(cat, NewTracker())

	start := time.Now()
	_, err := runner.Start(context.Background(), validInput())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond, "Start must not wait for the pipeline")

	waitForIdle(t, runner)
}

func TestRunner_RejectsSecondStart(t *testing.T) {
	cat := newFakeCatalog(catalog.Page{
		Products: []catalog.ProductRecord{testProduct("p1", goodVariant("v1"), goodVariant("v2"))},
	})
	cat.updateDelay = 30 * time.Millisecond

	runner := newTestRunner(cat, NewTracker())

	first, err := runner.Start(context.Background(), validInput())
	require.NoError(t, err)

	_, err = runner.Start(context.Background(), validInput())
	require.ErrorIs(t, err, domain.ErrAlreadyRunning)

	// The rejected start leaves the active run untouched.
	assert.Equal(t, first, runner.Status().RunID)

	state := waitForIdle(t, runner)
	assert.Equal(t, first, state.RunID)
	assert.Equal(t, 2, state.Processed)
}

func TestRunner_InvalidInput(t *testing.T) {
	cat := newFakeCatalog()
	runner := newTestRunner(cat, NewTracker())

	in := validInput()
	in.GoldPricePerGram = 0

	_, err := runner.Start(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Validation failure happens before any state mutation or fetch.
	state := runner.Status()
	assert.False(t, state.Running)
	assert.Nil(t, state.StartedAt)
	assert.Zero(t, cat.fetchCalls)
}

func TestRunner_PerItemFailuresContinueRun(t *testing.T) {
	unparseable := catalog.VariantRecord{ID: "v-bad-title", Title: "Default Title", Price: 100}

	cat := newFakeCatalog(catalog.Page{
		Products: []catalog.ProductRecord{
			testProduct("p1", goodVariant("v1"), unparseable, goodVariant("v3")),
		},
	})
	cat.updateErrs["v3"] = errors.New("throttled by catalog")

	runner := newTestRunner(cat, NewTracker())

	_, err := runner.Start(context.Background(), validInput())
	require.NoError(t, err)

	state := waitForIdle(t, runner)
	assert.Equal(t, 3, state.Total)
	assert.Equal(t, 1, state.Processed)
	assert.Equal(t, 2, state.Failed)
	require.Len(t, state.Items, 3)

	assert.Equal(t, domain.ItemStatusSuccess, state.Items[0].Status)

	assert.Equal(t, domain.ItemStatusFailed, state.Items[1].Status)
	assert.Equal(t, domain.ErrUnparseableVariant.Error(), state.Items[1].Error)

	assert.Equal(t, domain.ItemStatusFailed, state.Items[2].Status)
	assert.Contains(t, state.Items[2].Error, "throttled by catalog")

	// The unpriceable variant never reached the catalog.
	assert.Equal(t, []string{"v1"}, cat.updatedIDs())
}

func TestRunner_FetchErrorAbortsRunKeepingPartialResults(t *testing.T) {
	cat := newFakeCatalog(
		catalog.Page{
			Products:   []catalog.ProductRecord{testProduct("p1", goodVariant("v1"))},
			NextCursor: "c1",
			HasMore:    true,
		},
		catalog.Page{
			Products:   []catalog.ProductRecord{testProduct("p2", goodVariant("v2"))},
			NextCursor: "c2",
			HasMore:    true,
		},
	)
	cat.fetchErrOn = 2 // third page fetch fails

	runner := newTestRunner(cat, NewTracker())

	_, err := runner.Start(context.Background(), validInput())
	require.NoError(t, err)

	state := waitForIdle(t, runner)
	assert.False(t, state.Running)
	assert.Equal(t, 2, state.Total)
	assert.Equal(t, 2, state.Processed)
	assert.Zero(t, state.Failed)
	require.Len(t, state.Items, 2)

	// The status reporter keeps serving partial results after the abort.
	assert.Equal(t, "v1", state.Items[0].VariantID)
	assert.Equal(t, "v2", state.Items[1].VariantID)
}

func TestRunner_EmptyCatalog(t *testing.T) {
	runner := newTestRunner(newFakeCatalog(), NewTracker())

	_, err := runner.Start(context.Background(), validInput())
	require.NoError(t, err)

	state := waitForIdle(t, runner)
	assert.Zero(t, state.Total)
	assert.Zero(t, state.Processed)
	assert.Zero(t, state.Failed)
	assert.Empty(t, state.Items)
}

func TestRunner_ProgressInvariantHolds(t *testing.T) {
	variants := make([]catalog.VariantRecord, 8)
	for i := range variants {
		variants[i] = goodVariant(string(rune('a' + i)))
	}

	cat := newFakeCatalog(catalog.Page{
		Products: []catalog.ProductRecord{testProduct("p1", variants...)},
	})
	cat.updateDelay = time.Millisecond

	runner := newTestRunner(cat, NewTracker())

	_, err := runner.Start(context.Background(), validInput())
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state := runner.Status()
		assert.LessOrEqual(t, state.Processed+state.Failed, len(state.Items))
		assert.LessOrEqual(t, len(state.Items), state.Total)
		if !state.Running {
			break
		}
		time.Sleep(time.Millisecond)
	}

	state := waitForIdle(t, runner)
	assert.Equal(t, 8, state.Processed)
}

type recordingSink struct {
	mu       sync.Mutex
	updated  []domain.ItemResult
	finished []domain.State
}

func (s *recordingSink) PriceUpdated(_ context.Context, _ string, item domain.ItemResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, item)
}

func (s *recordingSink) RunFinished(_ context.Context, state domain.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, state)
}

func (s *recordingSink) finishedStates() []domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.State(nil), s.finished...)
}

type recordingRunLog struct {
	mu     sync.Mutex
	resets []string
	items  []domain.ItemResult
	err    error
}

func (l *recordingRunLog) Reset(_ context.Context, runID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets = append(l.resets, runID)
	return l.err
}

func (l *recordingRunLog) Record(_ context.Context, _ string, _ int, item domain.ItemResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, item)
	return l.err
}

func TestRunner_EventsAndRunLog(t *testing.T) {
	unparseable := catalog.VariantRecord{ID: "v-bad", Title: "Default Title"}

	cat := newFakeCatalog(catalog.Page{
		Products: []catalog.ProductRecord{testProduct("p1", goodVariant("v1"), unparseable)},
	})

	sink := &recordingSink{}
	runLog := &recordingRunLog{}

	runner := NewRunner(&Config{
		Logger:   logger.NewDefault().Logger,
		Catalog:  cat,
		Tracker:  NewTracker(),
		PageSize: 10,
		RunLog:   runLog,
		Events:   sink,
	})

	runID, err := runner.Start(context.Background(), validInput())
	require.NoError(t, err)
	waitForIdle(t, runner)

	// One event per successful update, none for the failed variant.
	require.Len(t, sink.updated, 1)
	assert.Equal(t, "v1", sink.updated[0].VariantID)
	assert.Equal(t, domain.ItemStatusSuccess, sink.updated[0].Status)

	// RunFinished fires after the tracker flips to idle.
	require.Eventually(t, func() bool {
		return len(sink.finishedStates()) == 1
	}, 5*time.Second, 5*time.Millisecond)

	finished := sink.finishedStates()[0]
	assert.Equal(t, runID, finished.RunID)
	assert.Equal(t, 1, finished.Processed)
	assert.Equal(t, 1, finished.Failed)

	// Both outcomes land in the run log; the log was reset first.
	assert.Equal(t, []string{runID}, runLog.resets)
	require.Len(t, runLog.items, 2)
}

func TestRunner_RunLogFailuresDoNotAffectRun(t *testing.T) {
	cat := newFakeCatalog(catalog.Page{
		Products: []catalog.ProductRecord{testProduct("p1", goodVariant("v1"))},
	})

	runLog := &recordingRunLog{err: errors.New("db down")}

	runner := NewRunner(&Config{
		Logger:   logger.NewDefault().Logger,
		Catalog:  cat,
		Tracker:  NewTracker(),
		PageSize: 10,
		RunLog:   runLog,
	})

	_, err := runner.Start(context.Background(), validInput())
	require.NoError(t, err)

	state := waitForIdle(t, runner)
	assert.Equal(t, 1, state.Processed)
	assert.Zero(t, state.Failed)
}

func TestRunner_ThrottleBetweenVariants(t *testing.T) {
	cat := newFakeCatalog(catalog.Page{
		Products: []catalog.ProductRecord{
			testProduct("p1", goodVariant("v1"), goodVariant("v2"), goodVariant("v3")),
		},
	})

	runner := NewRunner(&Config{
		Logger:   logger.NewDefault().Logger,
		Catalog:  cat,
		Tracker:  NewTracker(),
		PageSize: 10,
		Throttle: 20 * time.Millisecond,
	})

	start := time.Now()
	_, err := runner.Start(context.Background(), validInput())
	require.NoError(t, err)

	waitForIdle(t, runner)

	// Three variants, a fixed delay after each one.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}
