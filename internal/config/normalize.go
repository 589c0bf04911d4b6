package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeConversion(); err != nil {
		return err
	}
	c.normalizeDelivery()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("UGOIRA_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = value
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir()
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = strings.TrimRight(c.Paths.DataDir, "/") + "/logs"
	}
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConversion() error {
	if c.Conversion.BatchSize <= 0 {
		c.Conversion.BatchSize = defaultBatchSize
	}
	if c.Conversion.DefaultDelayMS <= 0 {
		c.Conversion.DefaultDelayMS = defaultDelayMS
	}
	if c.Conversion.MaxColors == 0 {
		c.Conversion.MaxColors = defaultMaxColors
	}
	c.Conversion.Background = strings.TrimSpace(c.Conversion.Background)
	if c.Conversion.Background == "" {
		c.Conversion.Background = defaultBackground
	}
	c.Conversion.Format = strings.ToLower(strings.TrimSpace(c.Conversion.Format))
	if c.Conversion.Format == "" {
		c.Conversion.Format = defaultFormat
	}

	strategies := make([]string, 0, len(c.Conversion.Strategies))
	seen := make(map[string]struct{}, len(c.Conversion.Strategies))
	for _, name := range c.Conversion.Strategies {
		name = strings.ToLower(strings.TrimSpace(name))
		name = strings.ReplaceAll(name, "-", "_")
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		strategies = append(strategies, name)
	}
	if len(strategies) == 0 {
		strategies = defaultStrategies()
	}
	c.Conversion.Strategies = strategies
	return nil
}

func (c *Config) normalizeDelivery() {
	c.Delivery.Subdir = strings.Trim(strings.TrimSpace(c.Delivery.Subdir), "/")
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("UGOIRA_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Progress.ExpiryMinutes <= 0 {
		c.Progress.ExpiryMinutes = defaultProgressExpiry
	}
	if c.Progress.LogBucketPercent <= 0 {
		c.Progress.LogBucketPercent = defaultLogBucketPercent
	}
}
