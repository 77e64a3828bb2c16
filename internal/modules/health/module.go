package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"hyper_monitor/internal/modules/config"
	"hyper_monitor/internal/modules/health/service"
	"hyper_monitor/internal/monitor"
	"hyper_monitor/pkg/logger"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"
)

type Config struct {
	Addr string // host:port
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.HealthPort)}
}

// StateSource reports the scheduler state (idle/cycle).
type StateSource interface {
	State() monitor.State
}

type healthz struct {
	Ready      bool   `json:"ready"`
	State      string `json:"state"`
	UptimeSec  int64  `json:"uptimeSec"`
	Cycles     int64  `json:"cycles"`
	LastCycle  int64  `json:"lastCycleUnix"`
	DurationMs int64  `json:"lastCycleDurationMs"`
	Addresses  int    `json:"addresses"`
	Fetched    int    `json:"fetched"`
	FetchFail  int    `json:"fetchFailures"`
	Sent       int    `json:"notifications"`
	SendFail   int    `json:"deliveryFailures"`
	LastError  string `json:"lastError,omitempty"`
}

func NewMux(state *service.State, src StateSource) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// ready after the first completed cycle
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		last, cycles := state.LastCycle()
		resp := healthz{
			Ready:      state.Ready(),
			State:      src.State().String(),
			UptimeSec:  int64(state.Uptime().Seconds()),
			Cycles:     cycles,
			DurationMs: last.Duration.Milliseconds(),
			Addresses:  last.Addresses,
			Fetched:    last.Fetched,
			FetchFail:  last.FetchFailures,
			Sent:       last.Notifications,
			SendFail:   last.DeliveryFailures,
			LastError:  last.Err,
		}
		if !last.FinishedAt.IsZero() {
			resp.LastCycle = last.FinishedAt.Unix()
		}

		body, err := sonic.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			logger.Info("[HEALTH] listening on %s", ln.Addr())
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			fx.Annotate(
				func(s *service.State) *service.State { return s },
				fx.As(new(monitor.CycleObserver)),
				fx.ResultTags(`group:"cycle_observers"`),
			),
			func(svc *monitor.Service) StateSource { return svc },
			NewConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
