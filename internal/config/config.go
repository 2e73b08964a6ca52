package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration, loaded from YAML.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // memory, sqlite, postgres
		Path     string `yaml:"path"`   // sqlite file
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Simulation struct {
		Enabled              bool    `yaml:"enabled"`
		IntervalSeconds      int     `yaml:"interval_seconds"`
		InventorySample      int     `yaml:"inventory_sample"`
		DeliverySample       int     `yaml:"delivery_sample"`
		StockChangeChance    float64 `yaml:"stock_change_chance"`
		DeliveryAdvanceChance float64 `yaml:"delivery_advance_chance"`
		MinStockDelta        int     `yaml:"min_stock_delta"`
		MaxStockDelta        int     `yaml:"max_stock_delta"`
	} `yaml:"simulation"`

	Events struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Exchange string `yaml:"exchange"`
	} `yaml:"events"`
}

// Interval returns the scheduler tick interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Simulation.IntervalSeconds) * time.Second
}

// Default returns a config suitable for a local demo run without a file.
func Default() *Config {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.Database.Driver = "memory"
	cfg.Database.Path = "supplyline.db"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Simulation.Enabled = true
	cfg.Simulation.IntervalSeconds = 30
	cfg.Simulation.InventorySample = 5
	cfg.Simulation.DeliverySample = 2
	cfg.Simulation.StockChangeChance = 0.3
	cfg.Simulation.DeliveryAdvanceChance = 0.2
	cfg.Simulation.MinStockDelta = -5
	cfg.Simulation.MaxStockDelta = 10
	cfg.Events.Host = "localhost"
	cfg.Events.Port = 5672
	cfg.Events.Exchange = "supplyline.events"
	return &cfg
}

// LoadFromFile loads config from a YAML file and validates it. Unmarshaling
// starts from Default so absent keys keep their defaults while explicit
// values, including zeros, win.
func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	switch c.Database.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Database.User == "" {
			problems = append(problems, "database.user is required for postgres")
		}
		if c.Database.Name == "" {
			problems = append(problems, "database.name is required for postgres")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			problems = append(problems, "database.port must be in 1..65535")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown database.driver %q", c.Database.Driver))
	}

	if c.Simulation.IntervalSeconds < 1 {
		problems = append(problems, "simulation.interval_seconds must be at least 1")
	}
	if c.Simulation.StockChangeChance < 0 || c.Simulation.StockChangeChance > 1 {
		problems = append(problems, "simulation.stock_change_chance must be in 0..1")
	}
	if c.Simulation.DeliveryAdvanceChance < 0 || c.Simulation.DeliveryAdvanceChance > 1 {
		problems = append(problems, "simulation.delivery_advance_chance must be in 0..1")
	}
	if c.Simulation.MinStockDelta >= c.Simulation.MaxStockDelta {
		problems = append(problems, "simulation.min_stock_delta must be below max_stock_delta")
	}
	if c.Events.Enabled {
		if c.Events.Port <= 0 || c.Events.Port > 65535 {
			problems = append(problems, "events.port must be in 1..65535")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
