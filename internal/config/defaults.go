package config

const (
	defaultOutputDir        = "~/Downloads"
	defaultDeliverySubdir   = "pixiv"
	defaultBatchSize        = 5
	defaultDelayMS          = 100
	defaultMaxColors        = 256
	defaultBackground       = "#ffffff"
	defaultFormat           = FormatGIF
	defaultHistoryEnabled   = true
	defaultProgressExpiry   = 60
	defaultLogBucketPercent = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Output formats.
const (
	FormatGIF = "gif"
	FormatZIP = "zip"
)

// Strategy names accepted in conversion.strategies.
const (
	StrategyFast      = "fast"
	StrategyStable    = "stable"
	StrategySafetyNet = "safety_net"
)

func defaultStrategies() []string {
	return []string{StrategyFast, StrategyStable, StrategySafetyNet}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			DataDir:   dataDir,
			LogDir:    dataDir + "/logs",
		},
		Conversion: Conversion{
			BatchSize:      defaultBatchSize,
			DefaultDelayMS: defaultDelayMS,
			MaxColors:      defaultMaxColors,
			Background:     defaultBackground,
			Strategies:     defaultStrategies(),
			Format:         defaultFormat,
		},
		Delivery: Delivery{
			Subdir: defaultDeliverySubdir,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
		Progress: Progress{
			ExpiryMinutes:    defaultProgressExpiry,
			LogBucketPercent: defaultLogBucketPercent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
