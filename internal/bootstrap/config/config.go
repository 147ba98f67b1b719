package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Events   EventsConfig   `mapstructure:"events"`
	Assist   AssistConfig   `mapstructure:"assist"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type PipelineConfig struct {
	ConfidenceGate  float64       `mapstructure:"confidence_gate"`
	AssistTimeout   time.Duration `mapstructure:"assist_timeout"`
	StuckAfter      time.Duration `mapstructure:"stuck_after"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	DuplicateWinner string        `mapstructure:"duplicate_winner"`
	ExportDir       string        `mapstructure:"export_dir"`
	Workers         int           `mapstructure:"workers"`
	QueueDepth      int           `mapstructure:"queue_depth"`
	PolicyFile      string        `mapstructure:"policy_file"`
}

type IngestConfig struct {
	InboxDir string        `mapstructure:"inbox_dir"`
	Settle   time.Duration `mapstructure:"settle"`
}

type EventsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type AssistConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if cfg.Database.DSN == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	switch cfg.Pipeline.DuplicateWinner {
	case "", "first", "last":
	default:
		return Config{}, errors.New(`pipeline.duplicate_winner must be "first" or "last"`)
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("server_addr", cfg.Server.Addr),
		slog.Bool("events_enabled", cfg.Events.Enabled),
		slog.Bool("assist_enabled", cfg.Assist.APIKey != ""),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rosterflow")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/rosterflow.sqlite")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("pipeline.confidence_gate", 0.7)
	v.SetDefault("pipeline.assist_timeout", 30*time.Second)
	v.SetDefault("pipeline.stuck_after", 3*time.Minute)
	v.SetDefault("pipeline.sweep_interval", time.Minute)
	v.SetDefault("pipeline.duplicate_winner", "first")
	v.SetDefault("pipeline.export_dir", "data/exports")
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_depth", 64)
	v.SetDefault("pipeline.policy_file", "configs/senders.toml")
	v.SetDefault("ingest.inbox_dir", "data/inbox")
	v.SetDefault("ingest.settle", 2*time.Second)
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.url", "nats://127.0.0.1:4222")
	v.SetDefault("events.subject_prefix", "roster.jobs")
}
