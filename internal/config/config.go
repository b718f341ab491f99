package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/iai-group/MovieBot-sub000/catalog"
)

const EnvPrefix = "MOVIEBOT"

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Ontology  OntologyConfig  `mapstructure:"ontology" yaml:"ontology"`
	Catalog   CatalogConfig   `mapstructure:"catalog" yaml:"catalog"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Policy    PolicyConfig    `mapstructure:"policy" yaml:"policy"`
	Annotator AnnotatorConfig `mapstructure:"annotator" yaml:"annotator"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// OntologyConfig points at a slot vocabulary file. An empty path uses the
// built-in movie ontology.
type OntologyConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// CatalogConfig selects the item store. The memory driver serves ItemsFile,
// or the built-in sample when it is empty; sqlite and postgres read DSN and
// can be seeded from ItemsFile.
type CatalogConfig struct {
	Driver        string        `mapstructure:"driver" yaml:"driver"`
	DSN           string        `mapstructure:"dsn" yaml:"dsn"`
	ItemsFile     string        `mapstructure:"items_file" yaml:"items_file"`
	MinVotes      int           `mapstructure:"min_votes" yaml:"min_votes"`
	Limit         int           `mapstructure:"limit" yaml:"limit"`
	LookupTimeout time.Duration `mapstructure:"lookup_timeout" yaml:"lookup_timeout"`
}

type CacheConfig struct {
	Backend  string        `mapstructure:"backend" yaml:"backend"`
	RedisURL string        `mapstructure:"redis_url" yaml:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// SessionIdle drops conversations idle for longer; zero keeps them.
	SessionIdle time.Duration `mapstructure:"session_idle" yaml:"session_idle"`
}

type PolicyConfig struct {
	MaxResults      int    `mapstructure:"max_results" yaml:"max_results"`
	SlotLeftUnasked int    `mapstructure:"slot_left_unasked" yaml:"slot_left_unasked"`
	Seed            uint64 `mapstructure:"seed" yaml:"seed"`
}

type AnnotatorConfig struct {
	RecencyThreshold int `mapstructure:"recency_threshold" yaml:"recency_threshold"`
}

// LLMConfig enables the model-backed resolver and phrasing. An empty APIKey
// keeps the bot rule-based.
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
	Lang    string `mapstructure:"lang" yaml:"lang"`
}

func (l LLMConfig) Enabled() bool {
	return l.APIKey != ""
}

func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "moviebot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Ontology --
	v.SetDefault("ontology.path", "")

	// -- Catalog --
	v.SetDefault("catalog.driver", "memory")
	v.SetDefault("catalog.dsn", "")
	v.SetDefault("catalog.items_file", "")
	v.SetDefault("catalog.min_votes", catalog.DefaultMinVotes)
	v.SetDefault("catalog.limit", 0)
	v.SetDefault("catalog.lookup_timeout", "5s")

	// -- Cache --
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.session_idle", "1h")

	// -- Policy --
	v.SetDefault("policy.max_results", 20)
	v.SetDefault("policy.slot_left_unasked", 3)
	v.SetDefault("policy.seed", 0)

	// -- Annotator --
	v.SetDefault("annotator.recency_threshold", time.Now().Year()-5)

	// -- LLM --
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.lang", "English")
}

// NewViper prepares a viper instance reading path, or ./config.yaml when path
// is empty, with MOVIEBOT_ environment overrides. A .env file in the working
// directory is loaded first when present.
func NewViper(path string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads and validates the configuration.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return NewConfigFromViper(v)
}

func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Catalog.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Catalog.DSN == "" {
			return fmt.Errorf("catalog.dsn is required for the %s driver", c.Catalog.Driver)
		}
	default:
		return fmt.Errorf("catalog.driver must be memory, sqlite or postgres, got %q", c.Catalog.Driver)
	}
	if c.Catalog.MinVotes <= 0 {
		return fmt.Errorf("catalog.min_votes must be a positive integer")
	}
	if c.Catalog.Limit < 0 {
		return fmt.Errorf("catalog.limit must not be negative")
	}
	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory, redis or none, got %q", c.Cache.Backend)
	}
	if c.Policy.MaxResults <= 0 {
		return fmt.Errorf("policy.max_results must be a positive integer")
	}
	if c.Policy.SlotLeftUnasked <= 0 {
		return fmt.Errorf("policy.slot_left_unasked must be a positive integer")
	}
	// a limit at or under the cap would hide how many movies matched
	if c.Catalog.Limit != 0 && c.Catalog.Limit <= c.Policy.MaxResults {
		return fmt.Errorf("catalog.limit must be 0 or greater than policy.max_results (%d)", c.Policy.MaxResults)
	}
	if c.LLM.Enabled() && c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required when llm.api_key is set")
	}
	return nil
}
