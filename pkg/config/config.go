package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"StockCast/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8000" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
		AllowOrigins    []string      `yaml:"allow_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Reports struct {
		Dir              string        `yaml:"dir" default:"./data/reports"`
		Bucket           string        `yaml:"bucket"`
		Prefix           string        `yaml:"prefix" default:"reports/"`
		CredentialsFile  string        `yaml:"credentials_file"`
		FetchConcurrency int           `yaml:"fetch_concurrency" default:"8" validate:"gte=1"`
		TTL              time.Duration `yaml:"ttl" default:"6h"`
	} `yaml:"reports"`
	Forecast struct {
		MinPoints      int     `yaml:"min_points" default:"30" validate:"gte=2"`
		TestFraction   float64 `yaml:"test_fraction" default:"0.3" validate:"gt=0,lt=1"`
		Seed           int64   `yaml:"seed" default:"42"`
		MinScore       float64 `yaml:"min_score" default:"0.3"`
		Trees          int     `yaml:"trees" default:"100" validate:"gte=1"`
		MaxHorizon     int     `yaml:"max_horizon" default:"30" validate:"gte=1"`
		InsightHorizon int     `yaml:"insight_horizon" default:"7" validate:"gte=1"`
		TrainOnStart   bool    `yaml:"train_on_start" default:"true"`
	} `yaml:"forecast"`
	PredictionCache struct {
		Backend  string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered none"`
		TTL      time.Duration `yaml:"ttl" default:"1h"`
		LocalTTL time.Duration `yaml:"local_ttl" default:"1m"`
	} `yaml:"prediction_cache"`
	Insights struct {
		Provider     string        `yaml:"provider" default:"gemini" validate:"oneof=gemini openai none"`
		GeminiAPIKey string        `yaml:"gemini_api_key"`
		OpenAIAPIKey string        `yaml:"openai_api_key"`
		Model        string        `yaml:"model"`
		BaseURL      string        `yaml:"base_url" default:"https://api.openai.com/v1"`
		Timeout      time.Duration `yaml:"timeout" default:"60s"`
		RateLimit    struct {
			Burst     float64 `yaml:"burst" default:"5"`
			PerSecond float64 `yaml:"per_second" default:"0.2"`
		} `yaml:"rate_limit"`
	} `yaml:"insights"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled  bool     `yaml:"enabled"`
		Brokers  []string `yaml:"brokers"`
		GroupID  string   `yaml:"group_id" default:"stockcast"`
		Workers  int      `yaml:"workers" default:"2" validate:"gte=1"`
		DLQTopic string   `yaml:"dlq_topic"`
		Topics   struct {
			Alerts         string `yaml:"alerts" default:"inventory.alerts"`
			Forecasts      string `yaml:"forecasts" default:"inventory.forecasts"`
			ReportUploaded string `yaml:"report_uploaded" default:"reports.uploaded"`
		} `yaml:"topics"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"default"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		AsyncInsert bool          `yaml:"async_insert"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
	} `yaml:"clickhouse"`
	Ingredients struct {
		DBPath string `yaml:"db_path" default:"./data/stockcast.db"`
	} `yaml:"ingredients"`
	Scheduler struct {
		RetrainCron  string `yaml:"retrain_cron" default:"0 0 2 * * *"`
		LowStockCron string `yaml:"low_stock_cron" default:"0 */15 * * * *"`
	} `yaml:"scheduler"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"1" validate:"gte=1"`
		RetryLimit int           `yaml:"retry_limit" default:"3" validate:"gte=0"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
	} `yaml:"queue"`
	CanonicalNames map[string]string `yaml:"canonical_names"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Keys absent from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes YAML over the defaults without validating.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("REPORTS_DIR"); v != "" {
		c.Reports.Dir = v
	}
	if v := getenv("REPORTS_BUCKET"); v != "" {
		c.Reports.Bucket = v
	}
	if v := getenv("GEMINI_API_KEY"); v != "" {
		c.Insights.GeminiAPIKey = v
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.Insights.OpenAIAPIKey = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = len(c.Kafka.Brokers) > 0
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("INGREDIENTS_DB"); v != "" {
		c.Ingredients.DBPath = v
	}
}

// Validate checks tag constraints and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Forecast.InsightHorizon > c.Forecast.MaxHorizon {
		return fmt.Errorf("forecast.insight_horizon (%d) exceeds forecast.max_horizon (%d)", c.Forecast.InsightHorizon, c.Forecast.MaxHorizon)
	}
	if c.Reports.Dir == "" && c.Reports.Bucket == "" {
		return fmt.Errorf("reports.dir or reports.bucket is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if (c.PredictionCache.Backend == "redis" || c.PredictionCache.Backend == "layered") && !c.Redis.Enabled {
		return fmt.Errorf("prediction_cache.backend '%s' requires redis.enabled", c.PredictionCache.Backend)
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue.enabled requires redis.enabled")
	}
	if c.Insights.Provider == "openai" && c.Insights.BaseURL == "" {
		return fmt.Errorf("insights.base_url is required for the openai provider")
	}
	return nil
}
