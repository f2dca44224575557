package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Estimate   EstimateConfig   `yaml:"estimate"`
	Push       PushConfig       `yaml:"push"`
	Commentary CommentaryConfig `yaml:"commentary"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type UpstreamConfig struct {
	TimeoutMs       int    `yaml:"timeout_ms"`
	UserAgent       string `yaml:"user_agent"`
	SinaURL         string `yaml:"sina_url"`
	FundOverviewURL string `yaml:"fund_overview_url"`
	FundHoldingsURL string `yaml:"fund_holdings_url"`
	ETFLinkURL      string `yaml:"etf_link_url"`
}

type EstimateConfig struct {
	DefaultTop        int     `yaml:"default_top"`
	MinCoveragePct    float64 `yaml:"min_coverage_pct"`
	FeederPositionPct float64 `yaml:"feeder_position_pct"`
}

type PushConfig struct {
	Dingtalk DingtalkConfig `yaml:"dingtalk"`
}

type DingtalkConfig struct {
	Webhook   string `yaml:"webhook"`
	Secret    string `yaml:"secret"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type CommentaryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ByAzure    bool   `yaml:"by_azure"`
	APIVersion string `yaml:"api_version"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
		Upstream: UpstreamConfig{
			TimeoutMs:       10000,
			UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
			SinaURL:         "http://hq.sinajs.cn/list=",
			FundOverviewURL: "http://fundf10.eastmoney.com/",
			FundHoldingsURL: "http://fundf10.eastmoney.com/FundArchivesDatas.aspx",
			ETFLinkURL:      "http://fundmobapi.eastmoney.com/FundMNewApi/FundMNInverstPosition",
		},
		Estimate: EstimateConfig{
			DefaultTop:        0,
			MinCoveragePct:    5,
			FeederPositionPct: 95,
		},
		Push: PushConfig{
			Dingtalk: DingtalkConfig{TimeoutMs: 5000},
		},
		Commentary: CommentaryConfig{
			Enabled:   false,
			Model:     "gpt-4.1-mini",
			TimeoutMs: 10000,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ApplyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return fmt.Errorf("invalid UPSTREAM_TIMEOUT_MS: %q", v)
		}
		cfg.Upstream.TimeoutMs = ms
	}
	if v := os.Getenv("DINGTALK_WEBHOOK"); v != "" {
		cfg.Push.Dingtalk.Webhook = v
	}
	if v := os.Getenv("DINGTALK_SECRET"); v != "" {
		cfg.Push.Dingtalk.Secret = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Estimate.DefaultTop < 0 {
		return fmt.Errorf("invalid estimate.default_top: %d", c.Estimate.DefaultTop)
	}
	if c.Estimate.MinCoveragePct < 0 || c.Estimate.MinCoveragePct > 100 {
		return fmt.Errorf("invalid estimate.min_coverage_pct: %v", c.Estimate.MinCoveragePct)
	}
	if c.Estimate.FeederPositionPct < 0 || c.Estimate.FeederPositionPct > 100 {
		return fmt.Errorf("invalid estimate.feeder_position_pct: %v", c.Estimate.FeederPositionPct)
	}
	return nil
}
