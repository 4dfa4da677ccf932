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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Import    ImportConfig    `yaml:"import" mapstructure:"import"`
	Matcher   MatcherConfig   `yaml:"matcher" mapstructure:"matcher"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ImportConfig configures file ingestion.
type ImportConfig struct {
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConcurrency int    `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	DateFormat     string `yaml:"date_format" mapstructure:"date_format"`
}

// MatcherConfig points at the identity waterfall definition.
type MatcherConfig struct {
	ConfigPath string `yaml:"config_path" mapstructure:"config_path"`
}

// NormalizeConfig configures identity normalization.
type NormalizeConfig struct {
	CountryCode string   `yaml:"country_code" mapstructure:"country_code"`
	Honorifics  []string `yaml:"honorifics" mapstructure:"honorifics"`
}

// ReconcileConfig holds reconciliation rule tunables.
type ReconcileConfig struct {
	AmountTolerance   string   `yaml:"amount_tolerance" mapstructure:"amount_tolerance"`
	HighValueCOD      string   `yaml:"high_value_cod" mapstructure:"high_value_cod"`
	NotShippedHours   int      `yaml:"not_shipped_hours" mapstructure:"not_shipped_hours"`
	DispatchFastHours float64  `yaml:"dispatch_fast_hours" mapstructure:"dispatch_fast_hours"`
	DispatchSlowHours float64  `yaml:"dispatch_slow_hours" mapstructure:"dispatch_slow_hours"`
	DisabledRules     []string `yaml:"disabled_rules" mapstructure:"disabled_rules"`
}

// ServerConfig configures the query API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECONCILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "reconcile.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("import.batch_size", 500)
	v.SetDefault("import.max_concurrency", 4)
	v.SetDefault("normalize.country_code", "91")
	v.SetDefault("reconcile.amount_tolerance", "10")
	v.SetDefault("reconcile.high_value_cod", "5000")
	v.SetDefault("reconcile.not_shipped_hours", 48)
	v.SetDefault("reconcile.dispatch_fast_hours", 24)
	v.SetDefault("reconcile.dispatch_slow_hours", 48)

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

// Validate checks the configuration for the given command mode. Shared
// bounds are checked in every mode; mode-specific requirements on top.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Import.MaxConcurrency < 1 || c.Import.MaxConcurrency > 32 {
		problems = append(problems, "import.max_concurrency must be between 1 and 32")
	}
	if c.Reconcile.NotShippedHours <= 0 {
		problems = append(problems, "reconcile.not_shipped_hours must be > 0")
	}
	if c.Reconcile.DispatchFastHours <= 0 || c.Reconcile.DispatchSlowHours < c.Reconcile.DispatchFastHours {
		problems = append(problems, "reconcile dispatch thresholds must satisfy 0 < fast <= slow")
	}

	switch mode {
	case "import", "reconcile":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
	case "serve":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
