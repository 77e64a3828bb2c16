package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hyper_monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeFetcher returns queued snapshots per address; an empty queue repeats the last one.
type fakeFetcher struct {
	mu     sync.Mutex
	queue  map[string][]*models.Snapshot
	errs   map[string]error
	calls  map[string]int
	onCall func(address string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		queue: make(map[string][]*models.Snapshot),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) push(address string, positions ...models.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[address] = append(f.queue[address], models.NewSnapshot(address, positions, nil, models.Overview{}, time.Now()))
}

func (f *fakeFetcher) fail(address string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[address] = err
}

func (f *fakeFetcher) Fetch(_ context.Context, address string) (*models.Snapshot, error) {
	f.mu.Lock()
	f.calls[address]++
	onCall := f.onCall
	err := f.errs[address]
	var s *models.Snapshot
	if q := f.queue[address]; len(q) > 0 {
		s = q[0]
		if len(q) > 1 {
			f.queue[address] = q[1:]
		}
	}
	f.mu.Unlock()

	if onCall != nil {
		onCall(address)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (f *fakeFetcher) callCount(address string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[address]
}

type recordingSender struct {
	mu   sync.Mutex
	sent []int64
	fail map[int64]error
}

func (s *recordingSender) Send(_ context.Context, userID int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[userID]; err != nil {
		return err
	}
	s.sent = append(s.sent, userID)
	return nil
}

type recordingObserver struct {
	mu      sync.Mutex
	reports []CycleReport
	errs    []error
}

func (o *recordingObserver) ObserveCycle(r CycleReport, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
	o.errs = append(o.errs, err)
}

func testScheduler(t *testing.T, f Fetcher, s Sender, obs ...CycleObserver) (*Scheduler, *Registry, *Cache) {
	t.Helper()
	reg := NewRegistry(nil)
	cache := NewCache()
	sched := NewScheduler(SchedulerConfig{
		Interval:         time.Hour,
		ErrorCooldown:    2 * time.Hour,
		FetchTimeout:     time.Second,
		Parallelism:      2,
		MinPositionValue: 5000,
	}, reg, cache, f, NewDispatcher(s, time.Second), obs...)
	return sched, reg, cache
}

func TestRunCycle_FirstObservationStoresWithoutNotifying(t *testing.T) {
	f := newFakeFetcher()
	f.push("0xa", pos("ETH", models.Long, 1e6))
	sender := &recordingSender{}
	sched, reg, cache := testScheduler(t, f, sender)
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")

	report, err := sched.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fetched)
	assert.Empty(t, report.Deliveries)
	assert.NotNil(t, cache.Get("0xa"))
	assert.Empty(t, sender.sent)
	assert.Equal(t, Idle, sched.State())
}

func TestRunCycle_NotifiesEverySubscriberOnce(t *testing.T) {
	f := newFakeFetcher()
	f.push("0xa", pos("ETH", models.Long, 10000))
	f.push("0xa", pos("ETH", models.Long, 10000), pos("BTC", models.Short, 20000))
	sender := &recordingSender{}
	sched, reg, _ := testScheduler(t, f, sender)
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")
	_, _ = reg.Subscribe(context.Background(), 2, "0xa")

	_, err := sched.RunCycle(context.Background())
	require.NoError(t, err)

	report, err := sched.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Deliveries, 2)
	assert.ElementsMatch(t, []int64{1, 2}, sender.sent)
	for _, d := range report.Deliveries {
		assert.Equal(t, "BTC", d.Event.Position.Token)
		assert.Equal(t, models.EventNewPosition, d.Event.Kind)
	}

	// same snapshot again: nothing new
	report, err = sched.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Deliveries)
	assert.Len(t, sender.sent, 2)
}

func TestRunCycle_MinPositionValueAppliesToNewPositionsOnly(t *testing.T) {
	f := newFakeFetcher()
	f.push("0xa", pos("ETH", models.Long, 100))
	f.push("0xa", pos("ETH", models.Long, 200), pos("DOGE", models.Long, 4999.99))
	sender := &recordingSender{}
	sched, reg, _ := testScheduler(t, f, sender)
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")

	_, _ = sched.RunCycle(context.Background())
	report, err := sched.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Deliveries, 1)
	ev := report.Deliveries[0].Event
	assert.Equal(t, models.EventChangedPosition, ev.Kind)
	assert.Equal(t, "ETH", ev.Position.Token)
	assert.Equal(t, models.Increase, ev.Direction)
}

func TestRunCycle_FetchFailureIsolated(t *testing.T) {
	f := newFakeFetcher()
	f.fail("0xa", errors.New("timeout"))
	f.push("0xb", pos("ETH", models.Long, 10000))
	sched, reg, cache := testScheduler(t, f, &recordingSender{})
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")
	_, _ = reg.Subscribe(context.Background(), 1, "0xb")

	report, err := sched.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fetched)
	require.Len(t, report.FetchErrors, 1)
	assert.Equal(t, "0xa", report.FetchErrors[0].Address)
	assert.Nil(t, cache.Get("0xa"))
	assert.NotNil(t, cache.Get("0xb"))
}

func TestRunCycle_FetchFailureKeepsPreviousSnapshot(t *testing.T) {
	f := newFakeFetcher()
	f.push("0xa", pos("ETH", models.Long, 10000))
	sched, reg, cache := testScheduler(t, f, &recordingSender{})
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")

	_, _ = sched.RunCycle(context.Background())
	before := cache.Get("0xa")
	require.NotNil(t, before)

	f.fail("0xa", errors.New("503"))
	report, err := sched.RunCycle(context.Background())
	require.NoError(t, err, "a single failing address is not a cycle error")
	assert.Len(t, report.FetchErrors, 1)
	assert.Same(t, before, cache.Get("0xa"))
}

func TestRunCycle_NilSnapshotIsFetchError(t *testing.T) {
	f := newFakeFetcher()
	sched, reg, _ := testScheduler(t, f, &recordingSender{})
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")

	report, _ := sched.RunCycle(context.Background())
	require.Len(t, report.FetchErrors, 1)
	assert.ErrorIs(t, report.FetchErrors[0], ErrNoData)
}

func TestRunCycle_AllFetchesFailingIsCycleError(t *testing.T) {
	f := newFakeFetcher()
	f.fail("0xa", errors.New("dns"))
	f.fail("0xb", errors.New("dns"))
	sched, reg, _ := testScheduler(t, f, &recordingSender{})
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")
	_, _ = reg.Subscribe(context.Background(), 1, "0xb")

	_, err := sched.RunCycle(context.Background())
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, Idle, sched.State())
}

func TestRunCycle_SendFailureDoesNotRollBackCache(t *testing.T) {
	f := newFakeFetcher()
	f.push("0xa", pos("ETH", models.Long, 10000))
	f.push("0xa", pos("ETH", models.Long, 20000))
	sender := &recordingSender{fail: map[int64]error{1: errors.New("blocked")}}
	sched, reg, cache := testScheduler(t, f, sender)
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")
	_, _ = reg.Subscribe(context.Background(), 2, "0xa")

	_, _ = sched.RunCycle(context.Background())
	report, err := sched.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Deliveries, 2)
	require.Len(t, report.FailedDeliveries(), 1)
	assert.Equal(t, int64(1), report.FailedDeliveries()[0].UserID)
	assert.Equal(t, []int64{2}, sender.sent)
	assert.Equal(t, 20000.0, cache.Get("0xa").Positions[0].Value)

	// no retry on the next cycle
	report, _ = sched.RunCycle(context.Background())
	assert.Empty(t, report.Deliveries)
}

func TestRunCycle_PanicBecomesCycleError(t *testing.T) {
	f := newFakeFetcher()
	f.onCall = func(string) { panic("boom") }
	sched, reg, _ := testScheduler(t, f, &recordingSender{})
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")

	_, err := sched.RunCycle(context.Background())
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunCycle_CancelledContextStopsBetweenAddresses(t *testing.T) {
	f := newFakeFetcher()
	sched, reg, _ := testScheduler(t, f, &recordingSender{})
	sched.cfg.Parallelism = 1
	for _, a := range []string{"0xa", "0xb", "0xc"} {
		f.push(a, pos("ETH", models.Long, 1))
		_, _ = reg.Subscribe(context.Background(), 1, a)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.onCall = func(string) { cancel() }

	report, err := sched.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, f.callCount("0xa"))
	assert.Equal(t, 0, f.callCount("0xb"))
}

func TestRunCycle_FetchContextSurvivesCancellation(t *testing.T) {
	sched, reg, _ := testScheduler(t, nil, &recordingSender{})
	fetcher := new(MockFetcher)
	sched.fetcher = fetcher
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")

	ctx, cancel := context.WithCancel(context.Background())
	fetcher.On("Fetch", mock.MatchedBy(func(c context.Context) bool {
		cancel()
		_, hasDeadline := c.Deadline()
		return c.Err() == nil && hasDeadline
	}), "0xa").Return(snap(), nil)

	report, err := sched.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fetched)
	fetcher.AssertExpectations(t)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, address string) (*models.Snapshot, error) {
	args := m.Called(ctx, address)
	s, _ := args.Get(0).(*models.Snapshot)
	return s, args.Error(1)
}

func TestRun_UsesCooldownAfterCycleError(t *testing.T) {
	f := newFakeFetcher()
	f.fail("0xa", errors.New("down"))
	f.fail("0xb", errors.New("down"))
	obs := &recordingObserver{}
	sched, reg, _ := testScheduler(t, f, &recordingSender{}, obs)
	_, _ = reg.Subscribe(context.Background(), 1, "0xa")
	_, _ = reg.Subscribe(context.Background(), 1, "0xb")

	ctx, cancel := context.WithCancel(context.Background())
	waits := make(chan time.Duration, 4)
	sched.after = func(d time.Duration) <-chan time.Time {
		waits <- d
		if len(waits) == 2 {
			cancel()
		}
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.Equal(t, 2*time.Hour, <-waits)
	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.NotEmpty(t, obs.errs)
	assert.Error(t, obs.errs[0])
}

func TestRun_RegularIntervalAfterSuccess(t *testing.T) {
	f := newFakeFetcher()
	sched, _, _ := testScheduler(t, f, &recordingSender{})

	ctx, cancel := context.WithCancel(context.Background())
	var got time.Duration
	sched.after = func(d time.Duration) <-chan time.Time {
		got = d
		cancel()
		return make(chan time.Time)
	}
	sched.Run(ctx)
	assert.Equal(t, time.Hour, got)
}
