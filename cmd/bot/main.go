package main

import (
	"fmt"
	"os"

	"hyper_monitor/internal/modules/config"
	"hyper_monitor/internal/modules/health"
	"hyper_monitor/internal/modules/hyperliquid"
	"hyper_monitor/internal/modules/postgres"
	"hyper_monitor/internal/modules/subscriptions"
	telegram "hyper_monitor/internal/modules/telegram_bot"
	"hyper_monitor/internal/modules/tracing"
	"hyper_monitor/internal/monitor"
	"hyper_monitor/internal/notify"
	"hyper_monitor/pkg/logger"

	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the YAML config (default: $CONFIG_FILE or configs/values_local.yaml)")
	pflag.Parse()

	cfg, err := config.NewConfig(config.Path(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zl, err := logger.Init(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.SetServiceName(cfg.Tracing.ServiceName)

	app := fx.New(options(cfg, zl)...)
	app.Run()
}

func options(cfg *config.Config, zl *zap.Logger) []fx.Option {
	opts := []fx.Option{
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zl.Named("fx")}
		}),
		config.Module(cfg),
		tracing.Module(),
		subscriptions.Module(cfg.Storage.Driver),
		hyperliquid.Module(),
		monitor.Module(),
		health.Module(),
	}

	if cfg.Storage.Driver == config.StoragePostgres {
		opts = append(opts, postgres.Module())
	}

	if cfg.Telegram.Token != "" {
		opts = append(opts, telegram.Module())
	} else {
		logger.Warn("no telegram token, running headless: notifications go to the log")
		opts = append(opts, notify.Module())
	}
	return opts
}
