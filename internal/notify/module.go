package notify

import (
	"hyper_monitor/internal/monitor"

	"go.uber.org/fx"
)

// Module provides the log sender as monitor.Sender (headless mode).
func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(func() monitor.Sender { return NewLog() }),
	)
}
