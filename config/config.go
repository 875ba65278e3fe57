package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	Scan    ScanConfig    `json:"scan"`
	Updates UpdatesConfig `json:"updates"`
	Redis   RedisConfig   `json:"redis"`
	GeoIP   GeoIPConfig   `json:"geoip"`
	Alerts  AlertsConfig  `json:"alerts"`
	Polling PollingConfig `json:"polling"`
}

type ServerConfig struct {
	Port           int      `json:"port"`
	Host           string   `json:"host"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// ScanConfig controls the upstream Scan API client: which nodes to talk to
// and how aggressively to retry/fail over between them.
type ScanConfig struct {
	Nodes            []NodeConfig `json:"nodes"`
	MaxRetries       int          `json:"max_retries"`
	TimeoutSeconds   int          `json:"timeout_seconds"`
	CacheTTLMillis   int          `json:"cache_ttl_ms"`
	RateLimitWaitMax int          `json:"rate_limit_wait_max_ms"`
	CurrentVersion   string       `json:"current_validator_version"`
	MinVersion       string       `json:"min_validator_version"`
}

type NodeConfig struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// DefaultNodes is the built-in upstream roster, used when configuration
// supplies no nodes at all.
func DefaultNodes() []NodeConfig {
	return []NodeConfig{
		{URL: "https://api.cantonnodes.com", Name: "Canton Nodes Primary", Priority: 1},
		{URL: "https://scan.global.canton.network.sync.global", Name: "Global Synchronizer", Priority: 2},
	}
}

type UpdatesConfig struct {
	PageSize     int `json:"page_size"`
	MaxPages     int `json:"max_pages"`
	PageDelayMs  int `json:"page_delay_ms"`
	DefaultLimit int `json:"default_limit"`
	RoundsPerDay int `json:"rounds_per_day"`
}

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Enabled  bool   `json:"enabled"`
	UseTLS   bool   `json:"use_tls"`
}

type GeoIPConfig struct {
	DBPath string `json:"db_path"`
}

type AlertsConfig struct {
	DiscordToken     string `json:"-"`
	DiscordChannelID string `json:"-"`
	TrackedValidator string `json:"tracked_validator"`
	CooldownMinutes  int    `json:"cooldown_minutes"`
}

type PollingConfig struct {
	StatsInterval int `json:"stats_interval_seconds"`
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	// Default configuration
	cfg := &Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		Scan: ScanConfig{
			Nodes:            DefaultNodes(),
			MaxRetries:       3,
			TimeoutSeconds:   10,
			CacheTTLMillis:   120000,
			RateLimitWaitMax: 60000,
		},
		Updates: UpdatesConfig{
			PageSize:     500,
			MaxPages:     25,
			PageDelayMs:  400,
			DefaultLimit: 2000,
			RoundsPerDay: 144,
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
			Enabled:  false,
			UseTLS:   false,
		},
		GeoIP: GeoIPConfig{
			DBPath: "",
		},
		Alerts: AlertsConfig{
			CooldownMinutes: 30,
		},
		Polling: PollingConfig{
			StatsInterval: 60,
		},
	}

	// Load from config file if exists
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/config.json"
	}

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err == nil {
			defer file.Close()
			decoder := json.NewDecoder(file)
			if err := decoder.Decode(cfg); err != nil {
				fmt.Printf("Warning: Failed to decode config file: %v\n", err)
			}
		}
	}

	// Load from environment variables (overrides config file)
	loadEnv(cfg)

	// Load from command-line flags (overrides everything)
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	var serverPort int
	var serverHost string

	fs.IntVar(&serverPort, "port", 0, "Server port")
	fs.StringVar(&serverHost, "host", "", "Server host")

	_ = fs.Parse(os.Args[1:])

	if isFlagPassed(fs, "port") {
		cfg.Server.Port = serverPort
	}
	if isFlagPassed(fs, "host") {
		cfg.Server.Host = serverHost
	}

	return cfg, nil
}

func isFlagPassed(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func loadEnv(cfg *Config) {
	// Server configuration
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = p
		}
	}
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = strings.Split(val, ",")
	}

	// Scan API configuration. SCAN_NODES is a comma-separated list of base URLs;
	// priority is assigned by position.
	if val := os.Getenv("SCAN_NODES"); val != "" {
		parts := strings.Split(val, ",")
		nodes := make([]NodeConfig, 0, len(parts))
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			nodes = append(nodes, NodeConfig{
				URL:      p,
				Name:     fmt.Sprintf("Node %d", i+1),
				Priority: i + 1,
			})
		}
		if len(nodes) > 0 {
			cfg.Scan.Nodes = nodes
		}
	}
	if val := os.Getenv("SCAN_MAX_RETRIES"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Scan.MaxRetries = p
		}
	}
	if val := os.Getenv("SCAN_TIMEOUT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Scan.TimeoutSeconds = p
		}
	}
	if val := os.Getenv("SCAN_CACHE_TTL_MS"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Scan.CacheTTLMillis = p
		}
	}
	if val := os.Getenv("SCAN_RATE_LIMIT_WAIT_MAX_MS"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Scan.RateLimitWaitMax = p
		}
	}
	if val := os.Getenv("VALIDATOR_CURRENT_VERSION"); val != "" {
		cfg.Scan.CurrentVersion = val
	}
	if val := os.Getenv("VALIDATOR_MIN_VERSION"); val != "" {
		cfg.Scan.MinVersion = val
	}

	// Updates pagination
	if val := os.Getenv("UPDATES_PAGE_SIZE"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Updates.PageSize = p
		}
	}
	if val := os.Getenv("UPDATES_MAX_PAGES"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Updates.MaxPages = p
		}
	}
	if val := os.Getenv("UPDATES_PAGE_DELAY_MS"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Updates.PageDelayMs = p
		}
	}
	if val := os.Getenv("UPDATES_DEFAULT_LIMIT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Updates.DefaultLimit = p
		}
	}

	// Redis configuration
	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = p
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		cfg.Redis.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv("REDIS_USE_TLS"); val != "" {
		cfg.Redis.UseTLS = val == "true" || val == "1"
	}

	// GeoIP configuration
	if val := os.Getenv("GEOIP_DB_PATH"); val != "" {
		cfg.GeoIP.DBPath = val
	}

	// Alerts configuration
	cfg.Alerts.DiscordToken = os.Getenv("DISCORD_BOT_TOKEN")
	cfg.Alerts.DiscordChannelID = os.Getenv("DISCORD_CHANNEL_ID")
	if val := os.Getenv("ALERTS_TRACKED_VALIDATOR"); val != "" {
		cfg.Alerts.TrackedValidator = val
	}
	if val := os.Getenv("ALERTS_COOLDOWN_MINUTES"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Alerts.CooldownMinutes = p
		}
	}

	// Polling configuration
	if val := os.Getenv("STATS_INTERVAL"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Polling.StatsInterval = p
		}
	}
}

// Helper methods for duration conversion
func (c *Config) ScanTimeoutDuration() time.Duration {
	return time.Duration(c.Scan.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.Scan.CacheTTLMillis) * time.Millisecond
}

func (c *Config) RateLimitWaitMaxDuration() time.Duration {
	return time.Duration(c.Scan.RateLimitWaitMax) * time.Millisecond
}

func (c *Config) UpdatesPageDelayDuration() time.Duration {
	return time.Duration(c.Updates.PageDelayMs) * time.Millisecond
}

func (c *Config) StatsIntervalDuration() time.Duration {
	return time.Duration(c.Polling.StatsInterval) * time.Second
}

func (c *Config) AlertCooldownDuration() time.Duration {
	return time.Duration(c.Alerts.CooldownMinutes) * time.Minute
}
