package infra

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"bourse/internal/domain"
)

// AgentGroup configures a homogeneous group of simulated participants.
type AgentGroup struct {
	Strategy  string          `yaml:"strategy"`
	Count     int             `yaml:"count"`
	Cash      decimal.Decimal `yaml:"cash"`
	Units     int64           `yaml:"units"`
	Threshold decimal.Decimal `yaml:"threshold"` // momentum only
}

// Config holds every setting of the application, loaded from a yaml file.
type Config struct {
	App struct {
		Name string `yaml:"name"`
	} `yaml:"app"`

	Venue struct {
		Product        string          `yaml:"product"`
		MatchTimeoutMS int             `yaml:"match_timeout_ms"`
		FeeIntervalMS  int             `yaml:"fee_interval_ms"`
		Fee            decimal.Decimal `yaml:"fee"`
		HistoryLimit   int             `yaml:"history_limit"`
		HistoryTrim    int             `yaml:"history_trim"`
	} `yaml:"venue"`

	Simulation struct {
		DurationSec        int          `yaml:"duration_sec"`
		DecisionIntervalMS int          `yaml:"decision_interval_ms"`
		Agents             []AgentGroup `yaml:"agents"`
	} `yaml:"simulation"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Venue.Fee.Sign() < 0 {
		return &domain.ConfigError{Field: "venue.fee", Err: errors.New("must not be negative")}
	}
	if c.Venue.HistoryTrim > c.Venue.HistoryLimit {
		return &domain.ConfigError{Field: "venue.history_trim", Err: errors.New("must not exceed history_limit")}
	}
	if c.Simulation.DurationSec < 0 {
		return &domain.ConfigError{Field: "simulation.duration_sec", Err: errors.New("must not be negative")}
	}
	for i, g := range c.Simulation.Agents {
		if g.Count <= 0 {
			return &domain.ConfigError{Field: fmt.Sprintf("simulation.agents[%d].count", i), Err: errors.New("must be positive")}
		}
		if g.Cash.Sign() < 0 {
			return &domain.ConfigError{Field: fmt.Sprintf("simulation.agents[%d].cash", i), Err: errors.New("must not be negative")}
		}
		if g.Units < 0 {
			return &domain.ConfigError{Field: fmt.Sprintf("simulation.agents[%d].units", i), Err: errors.New("must not be negative")}
		}
	}
	return nil
}

// MatchTimeout returns the matching loop timeout as a duration.
func (c *Config) MatchTimeout() time.Duration {
	return time.Duration(c.Venue.MatchTimeoutMS) * time.Millisecond
}

// FeeInterval returns the fee collection interval as a duration.
func (c *Config) FeeInterval() time.Duration {
	return time.Duration(c.Venue.FeeIntervalMS) * time.Millisecond
}

// DecisionInterval returns the agent decision pause as a duration.
func (c *Config) DecisionInterval() time.Duration {
	return time.Duration(c.Simulation.DecisionIntervalMS) * time.Millisecond
}

// Duration returns the simulation run time; zero means run until
// interrupted.
func (c *Config) Duration() time.Duration {
	return time.Duration(c.Simulation.DurationSec) * time.Second
}
