package postgres

import (
	"context"
	"fmt"
	"time"

	"hyper_monitor/internal/modules/config"
	"hyper_monitor/pkg/db"

	"go.uber.org/fx"
)

// Module provides the pgx pool behind *db.PgTxManager. Only included when
// storage.driver is postgres.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN:      cfg.DB,
					MaxConns: 4,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					poolMaster.Close()
					return nil, fmt.Errorf("ping postgres: %w", err)
				}

				m := db.NewPgTxManager(poolMaster)
				lc.Append(fx.StopHook(m.Close))
				return m, nil
			},
			func(m *db.PgTxManager) db.TxManager { return m },
		),
	)
}
