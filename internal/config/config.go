package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Notion  NotionConfig  `yaml:"notion" mapstructure:"notion"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Widget  WidgetConfig  `yaml:"widget" mapstructure:"widget"`
	Import  ImportConfig  `yaml:"import" mapstructure:"import"`
	Dedupe  DedupeConfig  `yaml:"dedupe" mapstructure:"dedupe"`
	Notify  NotifyConfig  `yaml:"notify" mapstructure:"notify"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// NotionConfig holds Notion API credentials and the CRM database ID.
type NotionConfig struct {
	Token    string  `yaml:"token" mapstructure:"token"`
	ClientDB string  `yaml:"client_db" mapstructure:"client_db"`
	RPS      float64 `yaml:"rps" mapstructure:"rps"`
}

// GeocodeConfig configures the geocoding cache and provider chain.
type GeocodeConfig struct {
	CachePath     string  `yaml:"cache_path" mapstructure:"cache_path"`
	GoogleKey     string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	OfflineTable  string  `yaml:"offline_table" mapstructure:"offline_table"`
	RPS           float64 `yaml:"rps" mapstructure:"rps"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
	MaxWorkers    int     `yaml:"max_workers" mapstructure:"max_workers"`
	MaxRequests   int     `yaml:"max_requests" mapstructure:"max_requests"`
	AutosaveEvery int     `yaml:"autosave_every" mapstructure:"autosave_every"`
}

// WidgetConfig configures map widget generation.
type WidgetConfig struct {
	OutputDir   string  `yaml:"output_dir" mapstructure:"output_dir"`
	StorePath   string  `yaml:"store_path" mapstructure:"store_path"`
	CenterLat   float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLng   float64 `yaml:"center_lng" mapstructure:"center_lng"`
	Zoom        float64 `yaml:"zoom" mapstructure:"zoom"`
	TileURL     string  `yaml:"tile_url" mapstructure:"tile_url"`
	Attribution string  `yaml:"attribution" mapstructure:"attribution"`
}

// ImportConfig configures spreadsheet imports into the CRM database.
type ImportConfig struct {
	Source string `yaml:"source" mapstructure:"source"`
}

// DedupeConfig configures duplicate detection and archival.
type DedupeConfig struct {
	ArchiveDB string `yaml:"archive_db" mapstructure:"archive_db"`
}

// NotifyConfig configures the chat webhook used for completion messages.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the widget HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for a given run mode. Only the fields
// the mode actually touches are required, so a geocode run does not demand
// a webhook URL and a notify run does not demand a Google key.
func (c *Config) Validate(mode string) error {
	var problems []string

	requireNotion := func() {
		if c.Notion.Token == "" {
			problems = append(problems, "notion.token is required")
		}
		if c.Notion.ClientDB == "" {
			problems = append(problems, "notion.client_db is required")
		}
	}

	switch mode {
	case "geocode", "widget", "import", "dedupe":
		requireNotion()
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "notify":
		if c.Notify.WebhookURL == "" {
			problems = append(problems, "notify.webhook_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "geocode" || mode == "widget" {
		if c.Geocode.RPS <= 0 {
			problems = append(problems, "geocode.rps must be > 0")
		}
		if c.Geocode.MaxWorkers < 1 || c.Geocode.MaxWorkers > 32 {
			problems = append(problems, "geocode.max_workers must be between 1 and 32")
		}
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BAZA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("notion.rps", 3)
	v.SetDefault("geocode.cache_path", "geocode_cache.json")
	v.SetDefault("geocode.rps", 1)
	v.SetDefault("geocode.burst", 1)
	v.SetDefault("geocode.max_workers", 4)
	v.SetDefault("geocode.autosave_every", 20)
	v.SetDefault("widget.output_dir", "widgets")
	v.SetDefault("widget.store_path", "clients_store.json")
	v.SetDefault("widget.center_lat", 49.0)
	v.SetDefault("widget.center_lng", 31.0)
	v.SetDefault("widget.zoom", 5.5)
	v.SetDefault("widget.tile_url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("widget.attribution", "© OpenStreetMap contributors")
	v.SetDefault("import.source", "БАЗА")
	v.SetDefault("dedupe.archive_db", "dedupe_archive.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
