package config

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// DefaultConfig return the default configuration.
// If config file is not provided, pushctl will run with DefaultConfig.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level: "info",
		},
		Persistence: DefaultPersistenceConfig,
		Queue:       DefaultQueueConfig,
		Metrics:     DefaultMetricsConfig,
	}
}

// LogConfig is use to configure the log behaviors.
type LogConfig struct {
	// Level is the zap log level, one of debug, info, warn and error.
	Level string `yaml:"level"`
}

// Config is the configuration of the message store.
type Config struct {
	Log         LogConfig   `yaml:"log"`
	Persistence Persistence `yaml:"persistence"`
	Queue       Queue       `yaml:"queue"`
	Metrics     Metrics     `yaml:"metrics"`
}

func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type config Config
	raw := config(DefaultConfig())
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*c = Config(raw)
	return nil
}

func (c Config) Validate() error {
	var logLevel zapcore.Level
	if err := logLevel.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	if err := c.Persistence.Validate(); err != nil {
		return err
	}
	if err := c.Queue.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

// ParseConfig reads and validates the yaml file at filePath.
// An empty filePath returns DefaultConfig.
func ParseConfig(filePath string) (c Config, err error) {
	if filePath == "" {
		return DefaultConfig(), nil
	}
	b, err := os.ReadFile(filePath)
	if err != nil {
		return c, err
	}
	c = DefaultConfig()
	err = yaml.Unmarshal(b, &c)
	if err != nil {
		return c, err
	}
	err = c.Validate()
	if err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) GetLogger(config LogConfig) (l *zap.Logger, err error) {
	var logLevel zapcore.Level
	err = logLevel.UnmarshalText([]byte(config.Level))
	if err != nil {
		return nil, err
	}
	lc := zap.NewDevelopmentConfig()
	lc.Level = zap.NewAtomicLevelAt(logLevel)
	return lc.Build()
}
