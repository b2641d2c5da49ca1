// Package config loads the optional JSON configuration file and merges it
// over the built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"katom-scraper/internal/types"
)

type scrapingConfig struct {
	TimeoutSec     int    `json:"timeout_sec,omitempty"`
	ElementWaitSec int    `json:"element_wait_sec,omitempty"`
	RetryAttempts  int    `json:"retry_attempts,omitempty"`
	RetryDelaySec  int    `json:"retry_delay_sec,omitempty"`
	RequestDelayMs int    `json:"request_delay_ms,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	HTTPOnly       bool   `json:"http_only,omitempty"`
}

type outputConfig struct {
	Dir    string `json:"dir,omitempty"`
	Prefix string `json:"prefix,omitempty"`
}

type fileConfig struct {
	Scraping         scrapingConfig      `json:"scraping"`
	Output           outputConfig        `json:"output"`
	SelectedFields   map[string]bool     `json:"selected_fields,omitempty"`
	CustomFields     []types.CustomField `json:"custom_fields,omitempty"`
	CommonSpecFields []string            `json:"common_spec_fields,omitempty"`
}

// Load reads the config file at path and merges it over the defaults. An
// empty path or a missing file yields the defaults; a file that exists but
// cannot be parsed is an error.
func Load(path string, logger types.Logger) (*types.Config, error) {
	cfg := types.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Infof("Config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	apply(cfg, &fc)
	logger.Infof("Configuration loaded from %s", path)
	return cfg, nil
}

func apply(cfg *types.Config, fc *fileConfig) {
	if fc.Scraping.TimeoutSec > 0 {
		cfg.PageLoadTimeout = time.Duration(fc.Scraping.TimeoutSec) * time.Second
	}
	if fc.Scraping.ElementWaitSec > 0 {
		cfg.ElementWait = time.Duration(fc.Scraping.ElementWaitSec) * time.Second
	}
	if fc.Scraping.RetryAttempts > 0 {
		cfg.RetryAttempts = fc.Scraping.RetryAttempts
	}
	if fc.Scraping.RetryDelaySec > 0 {
		cfg.RetryDelay = time.Duration(fc.Scraping.RetryDelaySec) * time.Second
	}
	if fc.Scraping.RequestDelayMs > 0 {
		cfg.RequestDelay = time.Duration(fc.Scraping.RequestDelayMs) * time.Millisecond
	}
	if fc.Scraping.UserAgent != "" {
		cfg.UserAgent = fc.Scraping.UserAgent
	}
	if fc.Scraping.HTTPOnly {
		cfg.UseHeadlessBrowser = false
	}
	if fc.Output.Dir != "" {
		cfg.OutputDir = fc.Output.Dir
	}
	if fc.Output.Prefix != "" {
		cfg.OutputPrefix = fc.Output.Prefix
	}
	if fc.SelectedFields != nil {
		// Settings in the file override defaults field by field; fields the
		// file doesn't mention keep their default enablement.
		for name, enabled := range fc.SelectedFields {
			cfg.SelectedFields[name] = enabled
		}
	}
	if fc.CustomFields != nil {
		cfg.CustomFields = fc.CustomFields
	}
	if len(fc.CommonSpecFields) > 0 {
		cfg.CommonSpecFields = fc.CommonSpecFields
	}
}
