package monitor

import (
	"context"
	"time"

	"hyper_monitor/internal/helper"
	"hyper_monitor/internal/models"
	"hyper_monitor/pkg/logger"
)

// Service is what command handlers talk to.
type Service struct {
	registry  *Registry
	cache     *Cache
	fetcher   Fetcher
	scheduler *Scheduler

	fetchTimeout    time.Duration
	warmOnSubscribe bool
}

func NewService(registry *Registry, cache *Cache, fetcher Fetcher, scheduler *Scheduler, fetchTimeout time.Duration, warmOnSubscribe bool) *Service {
	return &Service{
		registry:        registry,
		cache:           cache,
		fetcher:         fetcher,
		scheduler:       scheduler,
		fetchTimeout:    fetchTimeout,
		warmOnSubscribe: warmOnSubscribe,
	}
}

func (s *Service) EnsureUser(ctx context.Context, userID int64) (bool, error) {
	return s.registry.EnsureUser(ctx, userID)
}

// Subscribe adds address to the user's set. With warm-up enabled a first
// snapshot is fetched in the background so the next cycle can already diff.
func (s *Service) Subscribe(ctx context.Context, userID int64, address string) (SubscribeOutcome, error) {
	out, err := s.registry.Subscribe(ctx, userID, address)
	if err != nil || out != Subscribed {
		return out, err
	}
	if s.warmOnSubscribe && s.cache.Get(address) == nil {
		go func() {
			if err := s.Warm(context.WithoutCancel(ctx), address); err != nil {
				logger.Warn("[MONITOR] warm-up %s failed: %v", helper.ShortAddress(address), err)
			}
		}()
	}
	return out, nil
}

func (s *Service) Unsubscribe(ctx context.Context, userID int64, address string) (UnsubscribeOutcome, error) {
	return s.registry.Unsubscribe(ctx, userID, address)
}

func (s *Service) ListAddresses(userID int64) []string {
	return s.registry.ListAddresses(userID)
}

// Warm stores a first snapshot for an address that has none. It never diffs
// and never notifies.
func (s *Service) Warm(ctx context.Context, address string) error {
	if s.cache.Get(address) != nil {
		return nil
	}
	snap, err := s.SnapshotNow(ctx, address)
	if err != nil {
		return err
	}
	if s.cache.StoreIfAbsent(address, snap) {
		logger.Debug("[MONITOR] warmed cache for %s", helper.ShortAddress(address))
	}
	return nil
}

// SnapshotNow fetches a snapshot on demand. The cache is left untouched.
func (s *Service) SnapshotNow(ctx context.Context, address string) (*models.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	snap, err := s.fetcher.Fetch(ctx, address)
	if err == nil && snap == nil {
		err = ErrNoData
	}
	if err != nil {
		return nil, &FetchError{Address: address, Err: err}
	}
	return snap, nil
}

func (s *Service) State() State { return s.scheduler.State() }
