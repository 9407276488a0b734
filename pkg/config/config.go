package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MarketLog/internal/domain/models"
	"MarketLog/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"production" validate:"required"`
	Timezone    string `yaml:"timezone" default:"Asia/Tokyo"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stderr"`
	} `yaml:"log"`
	Output struct {
		PrimaryCSV      string `yaml:"primary_csv" default:"data/market_log.csv" validate:"required"`
		TrialsCSV       string `yaml:"trials_csv" default:"data/market_trials.csv"`
		EvidenceJSONL   string `yaml:"evidence_jsonl" default:"data/market_evidence.jsonl"`
		TimestampColumn string `yaml:"timestamp_column" default:"timestamp_jst" validate:"required"`
		IncludeRunID    bool   `yaml:"include_run_id" default:"true"`
		BOM             bool   `yaml:"bom"`
	} `yaml:"output"`
	Fetch struct {
		BaseURL            string        `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
		Period             string        `yaml:"period" default:"5d" validate:"required"`
		Interval           string        `yaml:"interval" default:"1d" validate:"required"`
		MaxAttempts        int           `yaml:"max_attempts" default:"3" validate:"min=1,max=20"`
		IndividualFallback bool          `yaml:"individual_fallback"`
		Timeout            time.Duration `yaml:"timeout" default:"20s" validate:"gt=0"`
		UserAgent          string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; marketlog/1.0)"`
		ColumnOrder        string        `yaml:"column_order" default:"field_first" validate:"oneof=field_first symbol_first"`
		RequestsPerSecond  float64       `yaml:"requests_per_second" default:"1" validate:"gte=0"`
		Burst              int           `yaml:"burst" default:"2" validate:"gte=0"`
	} `yaml:"fetch"`
	Backoff struct {
		BaseDelay  time.Duration `yaml:"base_delay" default:"6s" validate:"gte=0"`
		Multiplier float64       `yaml:"multiplier" default:"2" validate:"gte=1"`
		MaxDelay   time.Duration `yaml:"max_delay" default:"60s" validate:"gte=0"`
		JitterMin  time.Duration `yaml:"jitter_min" default:"500ms" validate:"gte=0"`
		JitterMax  time.Duration `yaml:"jitter_max" default:"2s" validate:"gtefield=JitterMin"`
	} `yaml:"backoff"`
	Probe struct {
		Enabled      bool     `yaml:"enabled"`
		URLs         []string `yaml:"urls" validate:"dive,url"`
		PreviewChars int      `yaml:"preview_chars" default:"300" validate:"min=1"`
	} `yaml:"probe"`
	Assets  []models.AssetSpec `yaml:"assets" validate:"dive"`
	Monitor struct {
		AnomalyFatal bool   `yaml:"anomaly_fatal"`
		RangeFatal   bool   `yaml:"range_fatal"`
		Listen       string `yaml:"listen"`
	} `yaml:"monitor"`
	Server struct {
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Textfile       string `yaml:"textfile"`
		PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
		Job            string `yaml:"job" default:"marketlog_collector"`
	} `yaml:"metrics"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" validate:"required_if=Enabled true"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix" default:"marketlog"`
		PriorTTL time.Duration `yaml:"prior_ttl" default:"720h"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers" validate:"required_if=Enabled true"`
		Topic        string        `yaml:"topic" default:"marketlog.runs"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" validate:"required_if=Enabled true"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"default"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		Table       string        `yaml:"table" default:"market_runs"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
		AsyncInsert bool          `yaml:"async_insert"`
		MaxExecTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Default returns a configuration with every default applied and the
// built-in asset catalog.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.Assets = models.DefaultAssets()
	return &c
}

// Load reads and parses a YAML configuration file. A missing file yields
// defaults.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if len(c.Assets) == 0 {
		c.Assets = models.DefaultAssets()
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env, then config from YAML, and overrides with
// environment variables.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := firstEnv("OUT_CSV", "MARKET_CSV"); v != "" {
		c.Output.PrimaryCSV = v
	}
	if v, ok := os.LookupEnv("TRIALS_CSV"); ok {
		c.Output.TrialsCSV = v
	}
	if v, ok := os.LookupEnv("EVIDENCE_JSONL"); ok {
		c.Output.EvidenceJSONL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		c.Fetch.MaxAttempts = util.ParseIntDefault(v, c.Fetch.MaxAttempts)
	}
	if v := os.Getenv("PROBE_ENABLED"); v != "" {
		c.Probe.Enabled = util.ParseBoolDefault(v, c.Probe.Enabled)
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("ANOMALY_FATAL"); v != "" {
		c.Monitor.AnomalyFatal = util.ParseBoolDefault(v, c.Monitor.AnomalyFatal)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Catalog(); err != nil {
		return err
	}
	return nil
}

// Catalog builds the immutable asset catalog.
func (c *Config) Catalog() (*models.AssetCatalog, error) {
	return models.NewAssetCatalog(c.Assets)
}

// Location resolves the configured timezone.
func (c *Config) Location() *time.Location {
	return util.LoadLocation(c.Timezone)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
