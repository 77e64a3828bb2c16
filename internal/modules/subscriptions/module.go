package subscriptions

import (
	"hyper_monitor/internal/modules/config"
	"hyper_monitor/internal/modules/subscriptions/service"
	"hyper_monitor/internal/modules/subscriptions/service/file"
	"hyper_monitor/internal/modules/subscriptions/service/pg"
	"hyper_monitor/internal/monitor"
	"hyper_monitor/pkg/db"
	"hyper_monitor/pkg/logger"

	"go.uber.org/fx"
)

// Module provides monitor.Store for the configured driver. The postgres
// driver additionally needs postgres.Module in the app.
func Module(driver string) fx.Option {
	switch driver {
	case config.StoragePostgres:
		return fx.Module("subscriptions",
			fx.Provide(func(tm db.TxManager) monitor.Store {
				logger.Info("[STORE] postgres")
				return pg.NewStore(tm)
			}),
		)
	case config.StorageMemory:
		return fx.Module("subscriptions",
			fx.Provide(func() monitor.Store {
				logger.Warn("[STORE] in-memory, subscriptions are lost on restart")
				return service.NewMemory()
			}),
		)
	default:
		return fx.Module("subscriptions",
			fx.Provide(func(cfg *config.Config) monitor.Store {
				logger.Info("[STORE] file %s", cfg.Storage.FilePath)
				return file.NewStore(cfg.Storage.FilePath)
			}),
		)
	}
}
