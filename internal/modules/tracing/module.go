package tracing

import (
	"context"

	"hyper_monitor/internal/modules/config"
	"hyper_monitor/pkg/logger"
	"hyper_monitor/pkg/tracing"

	"go.uber.org/fx"
)

// Module wires the Jaeger tracer when tracing is enabled; otherwise the
// opentracing no-op tracer stays global.
func Module() fx.Option {
	return fx.Module("tracing",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			if !cfg.Tracing.Enabled {
				return nil
			}
			if cfg.Tracing.ServiceName != "" {
				tracing.SetServiceName(cfg.Tracing.ServiceName)
			}
			_, closeFn, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Tracing.Host,
				Port: cfg.Tracing.Port,
			})
			if err != nil {
				return err
			}
			logger.Info("tracing enabled, agent %s:%d", cfg.Tracing.Host, cfg.Tracing.Port)
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeFn()
					return nil
				},
			})
			return nil
		}),
	)
}
