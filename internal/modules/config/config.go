package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_BOT_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	authorizedENV     = "AUTHORIZED_USERS"

	defaultConfigFile = "configs/values_local.yaml"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Storage drivers for the subscription registry.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Hyperliquid transports.
const (
	TransportHTTP = "http"
	TransportWS   = "ws"
)

// Path is the config file location resolved by the binary (flag or env).
type Path string

// Seed is a subscription applied on start, used mainly in headless mode.
type Seed struct {
	UserID  int64  `yaml:"user_id"`
	Address string `yaml:"address"`
}

// Config ...
type Config struct {
	Telegram struct {
		Token           string  `yaml:"token"`
		AuthorizedUsers []int64 `yaml:"authorized_users"`
		ProxyURL        string  `yaml:"proxy_url"`
		PollTimeout     int     `yaml:"poll_timeout"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Storage struct {
		Driver   string `yaml:"driver"`
		FilePath string `yaml:"file_path"`
	} `yaml:"storage"`
	Service struct {
		Host       string `yaml:"host"`
		HealthPort int    `yaml:"health_port"`
	} `yaml:"service"`

	Monitor struct {
		Interval         time.Duration `yaml:"interval"`
		ErrorCooldown    time.Duration `yaml:"error_cooldown"`
		MinPositionValue float64       `yaml:"min_position_value"` // USD, new positions only
		Parallelism      int           `yaml:"parallelism"`
		FetchTimeout     time.Duration `yaml:"fetch_timeout"`
		SendTimeout      time.Duration `yaml:"send_timeout"`
		DefaultAddress   string        `yaml:"default_address"`
		WarmOnSubscribe  bool          `yaml:"warm_on_subscribe"`
		Seed             []Seed        `yaml:"seed"`
	} `yaml:"monitor"`

	Hyperliquid struct {
		APIURL         string        `yaml:"api_url"`
		WSURL          string        `yaml:"ws_url"`
		Transport      string        `yaml:"transport"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"hyperliquid"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`

	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"tracing"`
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	cfg := &Config{}
	cfg.Telegram.PollTimeout = 30
	cfg.Storage.Driver = StorageFile
	cfg.Storage.FilePath = "data/subscriptions.json"
	cfg.Service.HealthPort = 8080

	cfg.Monitor.Interval = 120 * time.Second
	cfg.Monitor.ErrorCooldown = 5 * time.Minute
	cfg.Monitor.MinPositionValue = 5000
	cfg.Monitor.Parallelism = 4
	cfg.Monitor.FetchTimeout = 20 * time.Second
	cfg.Monitor.SendTimeout = 10 * time.Second
	cfg.Monitor.DefaultAddress = "0xf3f496c9486be5924a93d67e98298733bb47057c"
	cfg.Monitor.WarmOnSubscribe = true

	cfg.Hyperliquid.APIURL = "https://api.hyperliquid.xyz"
	cfg.Hyperliquid.WSURL = "wss://api.hyperliquid.xyz/ws"
	cfg.Hyperliquid.Transport = TransportHTTP
	cfg.Hyperliquid.RequestTimeout = 15 * time.Second

	cfg.Log.Level = "info"

	cfg.Tracing.Host = "localhost"
	cfg.Tracing.Port = 6831
	cfg.Tracing.ServiceName = "hyper_monitor"
	return cfg
}

func NewConfig(path Path) (*Config, error) {
	configFileName := string(path)
	if configFileName == "" {
		configFileName = getenvDefault(configFilePathENV, defaultConfigFile)
	}

	config := Default()

	file, err := os.Open(configFileName)
	switch {
	case err == nil:
		defer func() {
			_ = file.Close()
		}()
		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", configFileName, err)
		}
	case os.IsNotExist(err):
		// defaults + env
	default:
		return nil, fmt.Errorf("open config file %s: %w", configFileName, err)
	}

	applyEnv(config)
	config.Monitor.DefaultAddress = strings.ToLower(strings.TrimSpace(config.Monitor.DefaultAddress))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnv(config *Config) {
	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
		if config.Storage.Driver == StorageFile {
			config.Storage.Driver = StoragePostgres
		}
	}
	if v := os.Getenv(authorizedENV); v != "" {
		config.Telegram.AuthorizedUsers = parseIDs(v)
	}
	config.Monitor.Interval = durationFromEnv("MONITOR_INTERVAL", config.Monitor.Interval)
	config.Monitor.ErrorCooldown = durationFromEnv("MONITOR_ERROR_COOLDOWN", config.Monitor.ErrorCooldown)
	config.Monitor.MinPositionValue = floatFromEnv("MIN_POSITION_VALUE", config.Monitor.MinPositionValue)
	config.Monitor.Parallelism = intFromEnv("MONITOR_PARALLELISM", config.Monitor.Parallelism)
	config.Hyperliquid.Transport = getenvDefault("HYPERLIQUID_TRANSPORT", config.Hyperliquid.Transport)
	config.Log.Level = getenvDefault("LOG_LEVEL", config.Log.Level)
}

// Validate rejects configurations the scheduler cannot run with.
func (c *Config) Validate() error {
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	if c.Monitor.ErrorCooldown <= c.Monitor.Interval {
		return fmt.Errorf("monitor.error_cooldown (%s) must be longer than monitor.interval (%s)",
			c.Monitor.ErrorCooldown, c.Monitor.Interval)
	}
	if c.Monitor.Parallelism < 1 {
		return fmt.Errorf("monitor.parallelism must be >= 1")
	}
	if c.Monitor.MinPositionValue < 0 {
		return fmt.Errorf("monitor.min_position_value must be >= 0")
	}
	if c.Monitor.FetchTimeout <= 0 || c.Monitor.SendTimeout <= 0 {
		return fmt.Errorf("monitor fetch/send timeouts must be positive")
	}
	if c.Monitor.DefaultAddress != "" && !addressRe.MatchString(c.Monitor.DefaultAddress) {
		return fmt.Errorf("monitor.default_address %q is not a 0x-prefixed 40-hex address", c.Monitor.DefaultAddress)
	}
	switch c.Storage.Driver {
	case StorageMemory, StorageFile:
	case StoragePostgres:
		if c.DB == "" {
			return fmt.Errorf("storage.driver=postgres requires db_dsn or %s", databaseDSN)
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Hyperliquid.Transport {
	case TransportHTTP, TransportWS:
	default:
		return fmt.Errorf("unknown hyperliquid.transport %q", c.Hyperliquid.Transport)
	}
	return nil
}

// IsAuthorized reports whether userID may use the bot. An empty list allows everyone.
func (c *Config) IsAuthorized(userID int64) bool {
	if len(c.Telegram.AuthorizedUsers) == 0 {
		return true
	}
	return lo.Contains(c.Telegram.AuthorizedUsers, userID)
}

func parseIDs(v string) []int64 {
	var out []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// durationFromEnv accepts Go durations ("90s") or bare seconds ("120").
func durationFromEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
