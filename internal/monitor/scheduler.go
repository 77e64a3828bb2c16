package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hyper_monitor/internal/helper"
	"hyper_monitor/internal/models"
	"hyper_monitor/pkg/logger"
	"hyper_monitor/pkg/tracing"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Fetcher produces a fresh snapshot for an address. It must be safe to call
// concurrently and must not mutate shared state.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (*models.Snapshot, error)
}

// State of the scheduling loop.
type State int32

const (
	Idle State = iota
	Cycle
)

func (s State) String() string {
	if s == Cycle {
		return "cycle"
	}
	return "idle"
}

// CycleReport summarises one pass over the subscribed addresses.
type CycleReport struct {
	Started     time.Time
	Finished    time.Time
	Addresses   int // subscribed when the cycle began
	Attempted   int
	Fetched     int
	FetchErrors []*FetchError
	Deliveries  []DeliveryResult
}

func (r CycleReport) Duration() time.Duration { return r.Finished.Sub(r.Started) }

func (r CycleReport) FailedDeliveries() []DeliveryResult {
	return lo.Filter(r.Deliveries, func(d DeliveryResult, _ int) bool { return !d.Delivered() })
}

// CycleObserver is notified after every cycle, successful or not.
type CycleObserver interface {
	ObserveCycle(report CycleReport, err error)
}

type SchedulerConfig struct {
	Interval         time.Duration
	ErrorCooldown    time.Duration
	FetchTimeout     time.Duration
	Parallelism      int
	MinPositionValue float64
}

// Scheduler drives the fetch/diff/notify cycle on a fixed interval.
type Scheduler struct {
	cfg        SchedulerConfig
	registry   *Registry
	cache      *Cache
	fetcher    Fetcher
	dispatcher *Dispatcher
	observers  []CycleObserver

	state atomic.Int32
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewScheduler(
	cfg SchedulerConfig,
	registry *Registry,
	cache *Cache,
	fetcher Fetcher,
	dispatcher *Dispatcher,
	observers ...CycleObserver,
) *Scheduler {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &Scheduler{
		cfg:        cfg,
		registry:   registry,
		cache:      cache,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		observers:  lo.Compact(observers),
		now:        time.Now,
		after:      time.After,
	}
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

// Run loops until ctx is cancelled. A failed cycle is followed by the error
// cooldown instead of the regular interval.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Info("[MONITOR] scheduler started: interval=%s cooldown=%s parallelism=%d",
		s.cfg.Interval, s.cfg.ErrorCooldown, s.cfg.Parallelism)

	for ctx.Err() == nil {
		report, err := s.RunCycle(ctx)
		s.logCycle(report, err)
		for _, o := range s.observers {
			o.ObserveCycle(report, err)
		}

		wait := s.cfg.Interval
		if err != nil {
			wait = s.cfg.ErrorCooldown
		}

		select {
		case <-ctx.Done():
		case <-s.after(wait):
		}
	}
	logger.Info("[MONITOR] scheduler stopped")
}

type addressResult struct {
	fetchErr   *FetchError
	deliveries []DeliveryResult
}

// RunCycle performs one pass. Cancelling ctx stops it between addresses;
// fetches and sends already in flight complete under their own timeouts.
func (s *Scheduler) RunCycle(ctx context.Context) (report CycleReport, err error) {
	span, ctx := tracing.StartSpan(ctx, "monitor.cycle")
	s.state.Store(int32(Cycle))
	report.Started = s.now()

	defer func() {
		if r := recover(); r != nil {
			err = &CycleError{Err: fmt.Errorf("panic: %v", r)}
		}
		report.Finished = s.now()
		s.state.Store(int32(Idle))
		tracing.Finish(span, err)
	}()

	addrs := s.registry.AddressesWithSubscribers()
	report.Addresses = len(addrs)
	span.SetTag("addresses", len(addrs))

	var (
		mu       sync.Mutex
		panicErr error
	)
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Parallelism)

	for _, addr := range addrs {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			// a slot may free up only after shutdown was requested
			if ctx.Err() != nil {
				return nil
			}
			mu.Lock()
			report.Attempted++
			mu.Unlock()

			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					panicErr = fmt.Errorf("address %s: panic: %v", addr, r)
					mu.Unlock()
				}
			}()

			res := s.processAddress(ctx, addr)

			mu.Lock()
			defer mu.Unlock()
			if res.fetchErr != nil {
				report.FetchErrors = append(report.FetchErrors, res.fetchErr)
			} else {
				report.Fetched++
			}
			report.Deliveries = append(report.Deliveries, res.deliveries...)
			return nil
		})
	}
	_ = g.Wait()

	switch {
	case panicErr != nil:
		err = &CycleError{Err: panicErr}
	case report.Attempted > 1 && report.Fetched == 0:
		err = &CycleError{Err: fmt.Errorf("all %d fetches failed, last: %w",
			report.Attempted, report.FetchErrors[len(report.FetchErrors)-1])}
	}
	return report, err
}

func (s *Scheduler) processAddress(ctx context.Context, address string) (res addressResult) {
	span, ctx := tracing.StartSpan(ctx, "monitor.address")
	span.SetTag("address", address)
	defer func() {
		var err error
		if res.fetchErr != nil {
			err = res.fetchErr
		}
		tracing.Finish(span, err)
	}()

	// in-flight calls are not cut short by shutdown, only by their timeout
	callCtx := context.WithoutCancel(ctx)

	fetchCtx, cancel := context.WithTimeout(callCtx, s.cfg.FetchTimeout)
	snap, err := s.fetcher.Fetch(fetchCtx, address)
	cancel()
	if err == nil && snap == nil {
		err = ErrNoData
	}
	if err != nil {
		res.fetchErr = &FetchError{Address: address, Err: err}
		return res
	}

	prev := s.cache.Swap(address, snap)
	events := lo.Filter(Diff(prev, snap).Events(), func(ev models.Event, _ int) bool {
		return s.notable(ev)
	})
	if len(events) == 0 {
		return res
	}

	users := s.registry.Subscribers(address)
	for _, ev := range events {
		for _, userID := range users {
			res.deliveries = append(res.deliveries, s.dispatcher.Dispatch(callCtx, userID, address, ev))
		}
	}
	return res
}

// notable filters new positions by USD value. Changed positions already
// passed the percent threshold.
func (s *Scheduler) notable(ev models.Event) bool {
	if ev.Kind == models.EventNewPosition {
		return ev.Position.Value >= s.cfg.MinPositionValue
	}
	return true
}

func (s *Scheduler) logCycle(report CycleReport, err error) {
	for _, fe := range report.FetchErrors {
		logger.Warn("[MONITOR] skip %s this cycle: %v", helper.ShortAddress(fe.Address), fe.Err)
	}
	for _, d := range report.FailedDeliveries() {
		logger.Error("[MONITOR] notification %s %s lost: %v", d.Event.Kind, d.Event.Position.Token, d.Err)
	}
	if err != nil {
		logger.Error("[MONITOR] %v; cooling down for %s", err, s.cfg.ErrorCooldown)
		return
	}
	logger.Info("[MONITOR] cycle done in %s: addresses=%d fetched=%d failed=%d notifications=%d",
		report.Duration().Round(time.Millisecond), report.Addresses, report.Fetched,
		len(report.FetchErrors), len(report.Deliveries))
}
