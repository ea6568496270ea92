package cli

import (
	"time"

	"challenge-arena/internal/app"
	"challenge-arena/internal/config"
	"challenge-arena/internal/domain"
)

// loadConfig reads the YAML file and applies flag/env overrides on top.
func loadConfig(flags *Flags) (config.Config, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if flags.Port != "" {
		cfg.Server.Port = flags.Port
	}
	if flags.Verbose {
		cfg.Server.Verbose = true
	}
	if flags.RedisAddr != "" {
		cfg.Redis.Addr = flags.RedisAddr
	}
	if flags.PostgresURL != "" {
		cfg.Postgres.URL = flags.PostgresURL
	}
	if flags.JWTSecret != "" {
		cfg.Auth.JWTSecret = flags.JWTSecret
	}
	if flags.BankPath != "" {
		cfg.Bank.Path = flags.BankPath
	}
	return cfg, cfg.Validate()
}

func rulesFromConfig(cfg config.Config) app.Rules {
	rules := app.DefaultRules()
	rules.SettleDelay = config.TTLDuration(cfg.Game.SettleDelay, rules.SettleDelay)
	if cfg.Game.DefaultTimeLimit > 0 {
		rules.DefaultTimeLimit = cfg.Game.DefaultTimeLimit
	}
	if cfg.Game.CreativeTimeLimit > 0 {
		rules.CreativeTimeLimit = cfg.Game.CreativeTimeLimit
	}
	if cfg.Game.CreativePoints > 0 {
		rules.CreativePoints = cfg.Game.CreativePoints
	}
	rules.Rewards = domain.RewardSchedule{
		WinnerStars:      cfg.Rewards.WinnerStars,
		ParticipantStars: cfg.Rewards.ParticipantStars,
	}
	return rules
}

type reaperSettings struct {
	interval, retention, idle time.Duration
}

func reaperFromConfig(cfg config.Config) reaperSettings {
	return reaperSettings{
		interval:  config.TTLDuration(cfg.Reaper.Interval, time.Minute),
		retention: config.TTLDuration(cfg.Reaper.Retention, 10*time.Minute),
		idle:      config.TTLDuration(cfg.Reaper.IdleTimeout, 30*time.Minute),
	}
}
