// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the engine configuration. Every scoring constant is
// tunable policy, not hard-coded law; defaults match the values the
// aggregation properties are tested against.
type Config struct {
	// Engine-wide execution limits
	Engine struct {
		// GlobalTimeoutSeconds bounds one whole analysis run
		GlobalTimeoutSeconds int `yaml:"global_timeout_seconds"`
		// AnalyzerSoftTimeoutMillis is the advisory per-analyzer latency
		// budget; exceeding it marks the check failed without aborting
		// sibling tasks
		AnalyzerSoftTimeoutMillis int `yaml:"analyzer_soft_timeout_millis"`
	} `yaml:"engine"`

	// Scoring policy for the risk aggregator
	Scoring struct {
		SeverityWeights struct {
			Low      float64 `yaml:"low"`
			Medium   float64 `yaml:"medium"`
			High     float64 `yaml:"high"`
			Critical float64 `yaml:"critical"`
		} `yaml:"severity_weights"`

		// DuplicateWeight is added once when any page hash matches the
		// index within tolerance
		DuplicateWeight float64 `yaml:"duplicate_weight"`

		// CriticalPIIWeight is added per CRITICAL-risk PII entity
		CriticalPIIWeight float64 `yaml:"critical_pii_weight"`

		// Verdict bands: score < SuspiciousBand is CLEAN, score >=
		// FraudulentBand is FRAUDULENT, in between is SUSPICIOUS
		SuspiciousBand float64 `yaml:"suspicious_band"`
		FraudulentBand float64 `yaml:"fraudulent_band"`

		// OverrideConfidence: a single CRITICAL tamper finding at or above
		// this confidence forces FRAUDULENT regardless of total score
		OverrideConfidence float64 `yaml:"override_confidence"`

		// IndeterminateFailureFraction: when more than this fraction of
		// scheduled checks failed, the verdict is INDETERMINATE
		IndeterminateFailureFraction float64 `yaml:"indeterminate_failure_fraction"`
	} `yaml:"scoring"`

	// Fingerprint index policy
	Fingerprint struct {
		// ToleranceRadius is the maximum hamming distance still considered
		// a duplicate match
		ToleranceRadius int `yaml:"tolerance_radius"`
		Shards          int `yaml:"shards"`
	} `yaml:"fingerprint"`

	// PII detection and redaction policy
	Redaction struct {
		// AutoRedactRisk is the minimum risk level that triggers an
		// automatic redaction action (below it: manual review flag)
		AutoRedactRisk string `yaml:"auto_redact_risk"`
		// RegionMarginPixels expands image black-out regions to avoid
		// edge leakage
		RegionMarginPixels int `yaml:"region_margin_pixels"`
		// MaskKeyHex, when set, enables reversible masking: original
		// values are kept as AES-GCM ciphertext recoverable by an
		// authorized caller. Empty means destructive masking.
		MaskKeyHex string `yaml:"mask_key_hex"`
		// CoLocationWindowChars bounds the distance, in characters, for
		// the risk-escalation co-location rule
		CoLocationWindowChars int `yaml:"co_location_window_chars"`
	} `yaml:"redaction"`

	// Per-analyzer tuning
	Analyzers struct {
		ELA struct {
			JPEGQuality int `yaml:"jpeg_quality"`
			BlockSize   int `yaml:"block_size"`
			// MinBlobAreaPixels separates CRITICAL from MEDIUM findings
			MinBlobAreaPixels int `yaml:"min_blob_area_pixels"`
		} `yaml:"ela"`

		CopyMove struct {
			BlockSize      int `yaml:"block_size"`
			StridePixels   int `yaml:"stride_pixels"`
			MinClusterSize int `yaml:"min_cluster_size"`
			// MinOffsetPixels rejects matches between adjacent blocks,
			// which are expected to look alike
			MinOffsetPixels int `yaml:"min_offset_pixels"`
		} `yaml:"copy_move"`

		Resolution struct {
			GridRows int `yaml:"grid_rows"`
			GridCols int `yaml:"grid_cols"`
			// VarianceRatio above which sharpness deltas flag tampering
			VarianceRatio float64 `yaml:"variance_ratio"`
		} `yaml:"resolution"`

		Watermark struct {
			// Required maps claimed document types to whether a security
			// watermark is mandatory
			Required map[string]bool `yaml:"required"`
			// PeriodPixels is the expected watermark tiling period
			PeriodPixels int `yaml:"period_pixels"`
		} `yaml:"watermark"`
	} `yaml:"analyzers"`

	// Retry policy for external extractor calls
	Retry struct {
		MaxRetries            int     `yaml:"max_retries"`
		InitialIntervalMillis int     `yaml:"initial_interval_millis"`
		MaxIntervalMillis     int     `yaml:"max_interval_millis"`
		Multiplier            float64 `yaml:"multiplier"`
		Jitter                bool    `yaml:"jitter"`
	} `yaml:"retry"`
}

// DefaultConfig returns the engine defaults used when no file is found.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Engine.GlobalTimeoutSeconds = 60
	cfg.Engine.AnalyzerSoftTimeoutMillis = 2000

	cfg.Scoring.SeverityWeights.Low = 5
	cfg.Scoring.SeverityWeights.Medium = 15
	cfg.Scoring.SeverityWeights.High = 30
	cfg.Scoring.SeverityWeights.Critical = 50
	cfg.Scoring.DuplicateWeight = 30
	cfg.Scoring.CriticalPIIWeight = 10
	cfg.Scoring.SuspiciousBand = 15
	cfg.Scoring.FraudulentBand = 60
	cfg.Scoring.OverrideConfidence = 0.9
	cfg.Scoring.IndeterminateFailureFraction = 0.5

	cfg.Fingerprint.ToleranceRadius = 10
	cfg.Fingerprint.Shards = 64

	cfg.Redaction.AutoRedactRisk = "high"
	cfg.Redaction.RegionMarginPixels = 4
	cfg.Redaction.CoLocationWindowChars = 200

	cfg.Analyzers.ELA.JPEGQuality = 90
	cfg.Analyzers.ELA.BlockSize = 8
	cfg.Analyzers.ELA.MinBlobAreaPixels = 1024

	cfg.Analyzers.CopyMove.BlockSize = 16
	cfg.Analyzers.CopyMove.StridePixels = 8
	cfg.Analyzers.CopyMove.MinClusterSize = 6
	cfg.Analyzers.CopyMove.MinOffsetPixels = 48

	cfg.Analyzers.Resolution.GridRows = 4
	cfg.Analyzers.Resolution.GridCols = 4
	cfg.Analyzers.Resolution.VarianceRatio = 0.3

	cfg.Analyzers.Watermark.Required = map[string]bool{
		"passport":          true,
		"drivers_license":   true,
		"id_card":           true,
		"birth_certificate": true,
	}
	cfg.Analyzers.Watermark.PeriodPixels = 32

	cfg.Retry.MaxRetries = 2
	cfg.Retry.InitialIntervalMillis = 250
	cfg.Retry.MaxIntervalMillis = 2000
	cfg.Retry.Multiplier = 2.0
	cfg.Retry.Jitter = true

	return cfg
}

// LoadConfig loads configuration from a YAML file, starting from defaults.
// An empty path returns defaults without touching the filesystem.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigOrDefault loads the file if possible, otherwise returns defaults.
func LoadConfigOrDefault(path string) *Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\nUsing default configuration\n", err)
		return DefaultConfig()
	}
	return cfg
}

// FindConfigFile looks for a config file in standard locations.
func FindConfigFile() string {
	candidates := []string{
		".doc-sentinel.yaml",
		"doc-sentinel.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".doc-sentinel.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate rejects configurations that would break scoring invariants.
func (c *Config) Validate() error {
	if c.Scoring.SuspiciousBand >= c.Scoring.FraudulentBand {
		return fmt.Errorf("suspicious_band (%v) must be below fraudulent_band (%v)",
			c.Scoring.SuspiciousBand, c.Scoring.FraudulentBand)
	}
	if c.Scoring.OverrideConfidence < 0 || c.Scoring.OverrideConfidence > 1 {
		return fmt.Errorf("override_confidence must be within [0,1], got %v", c.Scoring.OverrideConfidence)
	}
	if c.Scoring.IndeterminateFailureFraction < 0 || c.Scoring.IndeterminateFailureFraction > 1 {
		return fmt.Errorf("indeterminate_failure_fraction must be within [0,1], got %v",
			c.Scoring.IndeterminateFailureFraction)
	}
	if c.Fingerprint.ToleranceRadius < 0 || c.Fingerprint.ToleranceRadius > 64 {
		return fmt.Errorf("tolerance_radius must be within [0,64], got %d", c.Fingerprint.ToleranceRadius)
	}
	if c.Fingerprint.Shards <= 0 {
		return fmt.Errorf("shards must be positive, got %d", c.Fingerprint.Shards)
	}
	if c.Engine.GlobalTimeoutSeconds <= 0 {
		return fmt.Errorf("global_timeout_seconds must be positive, got %d", c.Engine.GlobalTimeoutSeconds)
	}
	return nil
}

// GlobalTimeout returns the run deadline as a duration.
func (c *Config) GlobalTimeout() time.Duration {
	return time.Duration(c.Engine.GlobalTimeoutSeconds) * time.Second
}

// AnalyzerSoftTimeout returns the advisory per-analyzer budget.
func (c *Config) AnalyzerSoftTimeout() time.Duration {
	return time.Duration(c.Engine.AnalyzerSoftTimeoutMillis) * time.Millisecond
}
