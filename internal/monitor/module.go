package monitor

import (
	"context"
	"strings"

	"hyper_monitor/internal/modules/config"
	"hyper_monitor/pkg/logger"

	"go.uber.org/fx"
)

type schedulerParams struct {
	fx.In

	Cfg        *config.Config
	Registry   *Registry
	Cache      *Cache
	Fetcher    Fetcher
	Dispatcher *Dispatcher
	Observers  []CycleObserver `group:"cycle_observers"`
}

func newScheduler(p schedulerParams) *Scheduler {
	return NewScheduler(SchedulerConfig{
		Interval:         p.Cfg.Monitor.Interval,
		ErrorCooldown:    p.Cfg.Monitor.ErrorCooldown,
		FetchTimeout:     p.Cfg.Monitor.FetchTimeout,
		Parallelism:      p.Cfg.Monitor.Parallelism,
		MinPositionValue: p.Cfg.Monitor.MinPositionValue,
	}, p.Registry, p.Cache, p.Fetcher, p.Dispatcher, p.Observers...)
}

func Module() fx.Option {
	return fx.Module("monitor",
		fx.Provide(
			NewCache,
			NewRegistry, // needs Store from the subscriptions module
			func(cfg *config.Config, sender Sender) *Dispatcher {
				return NewDispatcher(sender, cfg.Monitor.SendTimeout)
			},
			newScheduler,
			func(cfg *config.Config, r *Registry, c *Cache, f Fetcher, s *Scheduler) *Service {
				return NewService(r, c, f, s, cfg.Monitor.FetchTimeout, cfg.Monitor.WarmOnSubscribe)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, r *Registry, s *Scheduler) {
			runCtx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := r.Load(ctx); err != nil {
						cancel()
						return err
					}
					for _, seed := range cfg.Monitor.Seed {
						addr := strings.ToLower(strings.TrimSpace(seed.Address))
						if _, err := r.Subscribe(ctx, seed.UserID, addr); err != nil {
							logger.Error("[MONITOR] seed %d/%s: %v", seed.UserID, addr, err)
						}
					}
					logger.Info("[MONITOR] registry loaded: users=%d addresses=%d",
						r.Users(), len(r.AddressesWithSubscribers()))

					go func() {
						defer close(done)
						s.Run(runCtx)
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-ctx.Done():
						logger.Warn("[MONITOR] scheduler did not stop before shutdown deadline")
					}
					return nil
				},
			})
		}),
	)
}
