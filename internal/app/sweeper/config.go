package sweeper

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime settings for the auto-close sweeper process.
type Config struct {
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`

	SweepInterval  time.Duration `mapstructure:"SWEEP_INTERVAL"`
	SweepBatchSize int           `mapstructure:"SWEEP_BATCH_SIZE"`

	OutboxInterval  time.Duration `mapstructure:"OUTBOX_INTERVAL"`
	OutboxBatchSize int           `mapstructure:"OUTBOX_BATCH_SIZE"`

	RequireInvitations   bool `mapstructure:"REQUIRE_INVITATIONS"`
	AllowEmptyEvaluation bool `mapstructure:"ALLOW_EMPTY_EVALUATION"`
}

// LoadConfig reads settings from an optional app.env file in path and from
// the environment. Environment variables win over the file.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("SWEEP_INTERVAL", time.Minute)
	v.SetDefault("SWEEP_BATCH_SIZE", 100)
	v.SetDefault("OUTBOX_INTERVAL", 5*time.Second)
	v.SetDefault("OUTBOX_BATCH_SIZE", 50)
	v.SetDefault("REQUIRE_INVITATIONS", true)
	v.SetDefault("ALLOW_EMPTY_EVALUATION", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 100
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.OutboxBatchSize <= 0 {
		cfg.OutboxBatchSize = 50
	}
	if cfg.OutboxInterval <= 0 {
		cfg.OutboxInterval = 5 * time.Second
	}
	return cfg, nil
}
