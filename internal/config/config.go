package config

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/ingestion"
	"TrancheAllocator/internal/observability"
	"TrancheAllocator/internal/report"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Input struct {
		WalletsFile  string `yaml:"wallets_file"`
		TranchesFile string `yaml:"tranches_file"`
	} `yaml:"input"`
	Allocation struct {
		Strategy  string `yaml:"strategy"`
		ApplyCap  *bool  `yaml:"apply_cap"`
		MaxRounds int    `yaml:"max_rounds"`
	} `yaml:"allocation"`
	Output struct {
		Format string `yaml:"format"`
	} `yaml:"output"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	NATS struct {
		URL            string `yaml:"url"`
		RequestStream  string `yaml:"request_stream"`
		RequestSubject string `yaml:"request_subject"`
		ResultStream   string `yaml:"result_stream"`
		ResultPrefix   string `yaml:"result_prefix"`
		ConsumerName   string `yaml:"consumer_name"`
	} `yaml:"nats"`
	Worker struct {
		MetricsAddr     string `yaml:"metrics_addr"`
		ReportCacheSize int    `yaml:"report_cache_size"`
		ChanSize        int    `yaml:"chan_size"`
		NaiveMaxPence   int    `yaml:"naive_max_pence"`
	} `yaml:"worker"`
}

// Load builds the configuration in this order: the YAML file at path (if
// any), variables from envFile loaded into the process environment (if
// present), ALLOC_* environment overrides, then defaults. Missing files are
// not an error.
func Load(path, envFile string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Input.WalletsFile = envOrDefault("ALLOC_WALLETS_FILE", c.Input.WalletsFile)
	c.Input.TranchesFile = envOrDefault("ALLOC_TRANCHES_FILE", c.Input.TranchesFile)
	c.Allocation.Strategy = envOrDefault("ALLOC_STRATEGY", c.Allocation.Strategy)
	c.Output.Format = envOrDefault("ALLOC_OUTPUT_FORMAT", c.Output.Format)
	c.Log.Level = envOrDefault("ALLOC_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOrDefault("ALLOC_LOG_FORMAT", c.Log.Format)
	c.NATS.URL = envOrDefault("ALLOC_NATS_URL", c.NATS.URL)
	c.NATS.RequestStream = envOrDefault("ALLOC_REQUEST_STREAM", c.NATS.RequestStream)
	c.NATS.RequestSubject = envOrDefault("ALLOC_REQUEST_SUBJECT", c.NATS.RequestSubject)
	c.NATS.ResultStream = envOrDefault("ALLOC_RESULT_STREAM", c.NATS.ResultStream)
	c.NATS.ResultPrefix = envOrDefault("ALLOC_RESULT_PREFIX", c.NATS.ResultPrefix)
	c.NATS.ConsumerName = envOrDefault("ALLOC_CONSUMER_NAME", c.NATS.ConsumerName)
	c.Worker.MetricsAddr = envOrDefault("ALLOC_METRICS_ADDR", c.Worker.MetricsAddr)

	var err error
	if c.Allocation.MaxRounds, err = envIntOrDefault("ALLOC_MAX_ROUNDS", c.Allocation.MaxRounds); err != nil {
		return err
	}
	if c.Worker.ReportCacheSize, err = envIntOrDefault("ALLOC_REPORT_CACHE_SIZE", c.Worker.ReportCacheSize); err != nil {
		return err
	}
	if c.Worker.ChanSize, err = envIntOrDefault("ALLOC_CHAN_SIZE", c.Worker.ChanSize); err != nil {
		return err
	}
	if c.Worker.NaiveMaxPence, err = envIntOrDefault("ALLOC_NAIVE_MAX_PENCE", c.Worker.NaiveMaxPence); err != nil {
		return err
	}

	if v := os.Getenv("ALLOC_APPLY_CAP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ALLOC_APPLY_CAP: %w", err)
		}
		c.Allocation.ApplyCap = &b
	}
	return nil
}

func (c *Config) applyDefaults() {
	layout := ingestion.DefaultLayout()

	if c.Input.WalletsFile == "" {
		c.Input.WalletsFile = "wallets.csv"
	}
	if c.Input.TranchesFile == "" {
		c.Input.TranchesFile = "tranches.csv"
	}
	if c.Allocation.Strategy == "" {
		c.Allocation.Strategy = allocation.StrategyProportional
	}
	if c.Allocation.ApplyCap == nil {
		applyCap := true
		c.Allocation.ApplyCap = &applyCap
	}
	if c.Allocation.MaxRounds == 0 {
		c.Allocation.MaxRounds = 100
	}
	if c.Output.Format == "" {
		c.Output.Format = report.FormatCSV
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = observability.LogFormatJSON
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.NATS.RequestStream == "" {
		c.NATS.RequestStream = layout.RequestStream
	}
	if c.NATS.RequestSubject == "" {
		c.NATS.RequestSubject = layout.RequestSubject
	}
	if c.NATS.ResultStream == "" {
		c.NATS.ResultStream = layout.ResultStream
	}
	if c.NATS.ResultPrefix == "" {
		c.NATS.ResultPrefix = layout.ResultPrefix
	}
	if c.NATS.ConsumerName == "" {
		c.NATS.ConsumerName = layout.ConsumerName
	}
	if c.Worker.MetricsAddr == "" {
		c.Worker.MetricsAddr = ":9091"
	}
	if c.Worker.ReportCacheSize == 0 {
		c.Worker.ReportCacheSize = 10_000
	}
	if c.Worker.ChanSize == 0 {
		c.Worker.ChanSize = 64
	}
	if c.Worker.NaiveMaxPence == 0 {
		c.Worker.NaiveMaxPence = 1_000_000
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if _, err := allocation.NewStrategy(c.Allocation.Strategy, false); err != nil {
		return fmt.Errorf("allocation.strategy: %w", err)
	}
	if c.Allocation.MaxRounds < 1 {
		return fmt.Errorf("allocation.max_rounds must be positive, got %d", c.Allocation.MaxRounds)
	}
	switch c.Output.Format {
	case report.FormatCSV, report.FormatJSON:
	default:
		return fmt.Errorf("output.format must be %s or %s, got %q", report.FormatCSV, report.FormatJSON, c.Output.Format)
	}
	switch c.Log.Format {
	case observability.LogFormatJSON, observability.LogFormatConsole:
	default:
		return fmt.Errorf("log.format must be %s or %s, got %q", observability.LogFormatJSON, observability.LogFormatConsole, c.Log.Format)
	}
	if c.Worker.ReportCacheSize < 1 {
		return fmt.Errorf("worker.report_cache_size must be positive, got %d", c.Worker.ReportCacheSize)
	}
	if c.Worker.ChanSize < 1 {
		return fmt.Errorf("worker.chan_size must be positive, got %d", c.Worker.ChanSize)
	}
	if strings.TrimSpace(c.NATS.ResultPrefix) == "" || strings.ContainsAny(c.NATS.ResultPrefix, "*> ") {
		return fmt.Errorf("nats.result_prefix must be a literal subject, got %q", c.NATS.ResultPrefix)
	}
	return nil
}

// Layout returns the NATS layout for the worker.
func (c *Config) Layout() ingestion.Layout {
	return ingestion.Layout{
		RequestStream:  c.NATS.RequestStream,
		RequestSubject: c.NATS.RequestSubject,
		ResultStream:   c.NATS.ResultStream,
		ResultPrefix:   c.NATS.ResultPrefix,
		ConsumerName:   c.NATS.ConsumerName,
	}
}

// Defaults returns the request defaults for the worker.
func (c *Config) Defaults() ingestion.Defaults {
	return ingestion.Defaults{
		Strategy:  c.Allocation.Strategy,
		ApplyCap:  *c.Allocation.ApplyCap,
		MaxRounds: c.Allocation.MaxRounds,

		NaiveMaxPence: int64(c.Worker.NaiveMaxPence),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
