// Package config loads simulation component configuration from a YAML
// file and the environment. Environment variables override file values,
// which override the defaults, so a component can run with nothing but
// SIMULATION_ID and SIMULATION_COMPONENT_NAME set.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simcesplatform/simulation-tools/errors"
	"github.com/simcesplatform/simulation-tools/message"
)

// Environment variable names recognized by FromEnv.
const (
	EnvSimulationID   = "SIMULATION_ID"
	EnvComponentName  = "SIMULATION_COMPONENT_NAME"
	EnvEpochTopic     = "SIMULATION_EPOCH_MESSAGE_TOPIC"
	EnvSimStateTopic  = "SIMULATION_STATE_MESSAGE_TOPIC"
	EnvStatusTopic    = "SIMULATION_STATUS_MESSAGE_TOPIC"
	EnvErrorTopic     = "SIMULATION_ERROR_MESSAGE_TOPIC"
	EnvOtherTopics    = "SIMULATION_OTHER_TOPICS"
	EnvBusURL         = "MESSAGE_BUS_URL"
	EnvBusUsername    = "MESSAGE_BUS_USERNAME"
	EnvBusPassword    = "MESSAGE_BUS_PASSWORD"
	EnvMetricsPort    = "METRICS_PORT"
	EnvLogLevel       = "LOG_LEVEL"
)

// Bus holds the message bus connection settings.
type Bus struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Topics holds the topic names for the simulation message exchange.
type Topics struct {
	Epoch           string   `yaml:"epoch"`
	SimulationState string   `yaml:"simulation_state"`
	Status          string   `yaml:"status"`
	Error           string   `yaml:"error"`
	Other           []string `yaml:"other"`
}

// Config is the full configuration for a simulation component.
type Config struct {
	SimulationID  string `yaml:"simulation_id"`
	ComponentName string `yaml:"component_name"`
	Bus           Bus    `yaml:"bus"`
	Topics        Topics `yaml:"topics"`
	MetricsPort   int    `yaml:"metrics_port"`
	LogLevel      string `yaml:"log_level"`
}

// Default returns a configuration with the platform defaults filled in.
// The simulation id and component name have no defaults and must come
// from the file or the environment.
func Default() *Config {
	return &Config{
		Bus: Bus{
			URL: "nats://localhost:4222",
		},
		Topics: Topics{
			Epoch:           "Epoch",
			SimulationState: "SimState",
			Status:          "Status.Ready",
			Error:           "Status.Error",
		},
		MetricsPort: 0,
		LogLevel:    "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// when a path is given, then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "Config", "Load", fmt.Sprintf("read file '%s'", path))
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.WrapInvalid(err, "Config", "Load", fmt.Sprintf("parse file '%s'", path))
	}
	return nil
}

// FromEnv overlays values from the environment onto the configuration.
func (c *Config) FromEnv() {
	setString(&c.SimulationID, EnvSimulationID)
	setString(&c.ComponentName, EnvComponentName)
	setString(&c.Topics.Epoch, EnvEpochTopic)
	setString(&c.Topics.SimulationState, EnvSimStateTopic)
	setString(&c.Topics.Status, EnvStatusTopic)
	setString(&c.Topics.Error, EnvErrorTopic)
	setString(&c.Bus.URL, EnvBusURL)
	setString(&c.Bus.Username, EnvBusUsername)
	setString(&c.Bus.Password, EnvBusPassword)
	setString(&c.LogLevel, EnvLogLevel)

	if value := os.Getenv(EnvOtherTopics); value != "" {
		var topics []string
		for _, topic := range strings.Split(value, ",") {
			if topic = strings.TrimSpace(topic); topic != "" {
				topics = append(topics, topic)
			}
		}
		c.Topics.Other = topics
	}

	if value := os.Getenv(EnvMetricsPort); value != "" {
		if port, err := strconv.Atoi(value); err == nil {
			c.MetricsPort = port
		}
	}
}

func setString(target *string, envName string) {
	if value := os.Getenv(envName); value != "" {
		*target = value
	}
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if c.SimulationID == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"simulation id not set")
	}
	if !message.IsValidTimestamp(c.SimulationID) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("simulation id '%s' is not a valid timestamp", c.SimulationID))
	}
	if c.ComponentName == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"component name not set")
	}
	if c.Bus.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"message bus url not set")
	}
	for name, topic := range map[string]string{
		"epoch":            c.Topics.Epoch,
		"simulation state": c.Topics.SimulationState,
		"status":           c.Topics.Status,
		"error":            c.Topics.Error,
	} {
		if topic == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				fmt.Sprintf("%s topic not set", name))
		}
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("metrics port %d out of range", c.MetricsPort))
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured log level name onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "SlogLevel",
			fmt.Sprintf("unknown log level '%s'", c.LogLevel))
	}
}
