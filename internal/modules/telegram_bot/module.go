package telegram

import (
	"context"

	"hyper_monitor/internal/modules/config"
	"hyper_monitor/internal/modules/telegram_bot/service"
	"hyper_monitor/internal/monitor"
	"hyper_monitor/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		// 1. Bot connection, also the monitor's notification sender
		fx.Provide(
			service.NewBot,
			func(b *service.Bot) monitor.Sender { return b },
		),

		// 2. Command handlers on top of the monitor service
		fx.Provide(
			func(cfg *config.Config, b *service.Bot, svc *monitor.Service) *service.Telegram {
				return service.NewTelegram(cfg, b, svc)
			},
		),

		// Polling through the lifecycle
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						t.Start()
						logger.Info("[TG] polling started")
						return nil
					},
					OnStop: func(ctx context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
