package hyperliquid

import (
	"context"

	"hyper_monitor/internal/modules/config"
	"hyper_monitor/internal/modules/hyperliquid/service"
	"hyper_monitor/internal/monitor"
	"hyper_monitor/pkg/logger"

	"go.uber.org/fx"
)

// Module provides the snapshot source as monitor.Fetcher.
func Module() fx.Option {
	return fx.Module("hyperliquid",
		fx.Provide(
			NewTransport,
			func(cfg *config.Config, t service.Transport) *service.Client {
				return service.NewClient(t, cfg.Hyperliquid.RequestTimeout)
			},
			func(c *service.Client) monitor.Fetcher { return c },
		),
		fx.Invoke(func(lc fx.Lifecycle, t service.Transport) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return t.Close()
				},
			})
		}),
	)
}

func NewTransport(cfg *config.Config) service.Transport {
	if cfg.Hyperliquid.Transport == config.TransportWS {
		logger.Info("[HL] using websocket transport %s", cfg.Hyperliquid.WSURL)
		return service.NewWSTransport(cfg.Hyperliquid.WSURL, cfg.Hyperliquid.RequestTimeout)
	}
	logger.Info("[HL] using http transport %s", cfg.Hyperliquid.APIURL)
	return service.NewHTTPTransport(cfg.Hyperliquid.APIURL, cfg.Hyperliquid.RequestTimeout)
}
