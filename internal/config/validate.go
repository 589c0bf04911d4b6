package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateConversion() error {
	conv := c.Conversion
	if conv.BatchSize <= 0 {
		return errors.New("conversion.batch_size must be positive")
	}
	if conv.Workers < 0 {
		return errors.New("conversion.workers must not be negative")
	}
	if conv.DefaultDelayMS <= 0 {
		return errors.New("conversion.default_delay_ms must be positive")
	}
	if conv.TargetWidth < 0 || conv.TargetHeight < 0 {
		return errors.New("conversion.target_width and conversion.target_height must not be negative")
	}
	if (conv.TargetWidth == 0) != (conv.TargetHeight == 0) {
		return errors.New("conversion.target_width and conversion.target_height must be set together")
	}
	if conv.MaxColors < 2 || conv.MaxColors > 256 {
		return errors.New("conversion.max_colors must be between 2 and 256")
	}
	if _, err := ParseHexColor(conv.Background); err != nil {
		return fmt.Errorf("conversion.background: %w", err)
	}
	switch conv.Format {
	case FormatGIF, FormatZIP:
	default:
		return fmt.Errorf("conversion.format must be %q or %q", FormatGIF, FormatZIP)
	}
	if len(conv.Strategies) == 0 {
		return errors.New("conversion.strategies must list at least one strategy")
	}
	for _, name := range conv.Strategies {
		switch name {
		case StrategyFast, StrategyStable, StrategySafetyNet:
		default:
			return fmt.Errorf("conversion.strategies: unknown strategy %q", name)
		}
	}
	return nil
}

func (c *Config) validateDelivery() error {
	if strings.Contains(c.Delivery.Subdir, "..") {
		return errors.New("delivery.subdir must not contain '..'")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Progress.LogBucketPercent > 100 {
		return errors.New("progress.log_bucket_percent must be at most 100")
	}
	return nil
}
