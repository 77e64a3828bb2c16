package service

import (
	"sync"
	"sync/atomic"
	"time"

	"hyper_monitor/internal/monitor"
)

// CycleSummary is the part of the last cycle report exposed on /healthz.
type CycleSummary struct {
	FinishedAt       time.Time
	Duration         time.Duration
	Addresses        int
	Fetched          int
	FetchFailures    int
	Notifications    int
	DeliveryFailures int
	Err              string
}

// State tracks process health. It observes scheduler cycles.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	mu     sync.RWMutex
	last   CycleSummary
	cycles int64
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

// ObserveCycle implements monitor.CycleObserver. The first finished cycle,
// failed or not, marks the process ready.
func (s *State) ObserveCycle(r monitor.CycleReport, err error) {
	sum := CycleSummary{
		FinishedAt:       r.Finished,
		Duration:         r.Duration(),
		Addresses:        r.Addresses,
		Fetched:          r.Fetched,
		FetchFailures:    len(r.FetchErrors),
		Notifications:    len(r.Deliveries),
		DeliveryFailures: len(r.FailedDeliveries()),
	}
	if err != nil {
		sum.Err = err.Error()
	}

	s.mu.Lock()
	s.last = sum
	s.cycles++
	s.mu.Unlock()
	s.ready.Store(true)
}

func (s *State) Ready() bool { return s.ready.Load() }

// LastCycle returns the latest summary and the number of cycles seen.
func (s *State) LastCycle() (CycleSummary, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.cycles
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
