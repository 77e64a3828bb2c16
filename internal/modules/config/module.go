package config

import "go.uber.org/fx"

// Module supplies the configuration loaded by the binary. Loading happens
// before the graph is built because it decides which modules are included.
func Module(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
	)
}
