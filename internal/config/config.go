package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port    string `yaml:"port"`
		Verbose bool   `yaml:"verbose"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Bank struct {
		Path string `yaml:"path"`
		Name string `yaml:"name"`
		TTL  string `yaml:"ttl"`
	} `yaml:"bank"`
	Game struct {
		MaxPlayers        int    `yaml:"max_players"`
		SettleDelay       string `yaml:"settle_delay"`
		CreativeTimeLimit int    `yaml:"creative_time_limit"`
		DefaultTimeLimit  int    `yaml:"default_time_limit"`
		CreativePoints    int    `yaml:"creative_points"`
	} `yaml:"game"`
	Rewards struct {
		WinnerStars      int `yaml:"winner_stars"`
		ParticipantStars int `yaml:"participant_stars"`
	} `yaml:"rewards"`
	Reaper struct {
		Interval    string `yaml:"interval"`
		Retention   string `yaml:"retention"`
		IdleTimeout string `yaml:"idle_timeout"`
	} `yaml:"reaper"`
}

// Default returns the settings used when no config file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Redis.TTL = "2h"
	cfg.Bank.Name = "default"
	cfg.Bank.TTL = "10m"
	cfg.Game.MaxPlayers = 4
	cfg.Game.SettleDelay = "5s"
	cfg.Game.CreativeTimeLimit = 60
	cfg.Game.DefaultTimeLimit = 30
	cfg.Game.CreativePoints = 10
	cfg.Rewards.WinnerStars = 100
	cfg.Rewards.ParticipantStars = 25
	cfg.Reaper.Interval = "1m"
	cfg.Reaper.Retention = "10m"
	cfg.Reaper.IdleTimeout = "30m"
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Game.MaxPlayers < 2 {
		return fmt.Errorf("game.max_players must be at least 2, got %d", c.Game.MaxPlayers)
	}
	if c.Game.DefaultTimeLimit < 0 || c.Game.CreativeTimeLimit < 0 {
		return errors.New("game time limits must not be negative")
	}
	if c.Rewards.WinnerStars < 0 || c.Rewards.ParticipantStars < 0 {
		return errors.New("rewards must not be negative")
	}
	for key, raw := range map[string]string{
		"redis.ttl":           c.Redis.TTL,
		"bank.ttl":            c.Bank.TTL,
		"game.settle_delay":   c.Game.SettleDelay,
		"reaper.interval":     c.Reaper.Interval,
		"reaper.retention":    c.Reaper.Retention,
		"reaper.idle_timeout": c.Reaper.IdleTimeout,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
