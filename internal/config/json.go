package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/canvai/canvai/internal/flagx"
	"github.com/canvai/canvai/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "60s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	DataDir           string         `json:"data_dir"`
	ProviderBaseURL   string         `json:"provider_base_url"`
	APIKey            string         `json:"api_key"`
	Model             string         `json:"model"`
	Timeout           timex.Duration `json:"timeout"`
	HistoryMaxPairs   *int           `json:"history_max_pairs"`
	CleanupMaxDays    *int           `json:"cleanup_max_days"`
	CleanupDelay      timex.Duration `json:"cleanup_delay"`
	CleanupNeverSeen  string         `json:"cleanup_never_seen"`
	SeenFlushInterval timex.Duration `json:"seen_flush_interval"`

	S3Mirror *JsonMirror `json:"s3_mirror"`
}

// JsonMirror mirrors the Mirror settings block.
type JsonMirror struct {
	Enabled         bool   `json:"enabled"`
	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags; if absent nothing is loaded. Only
// fields present in the file override the current values. A missing or
// malformed file panics: a deployment that names a config file expects it to
// be honored, not half-read.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.ProviderBaseURL != "" {
		cfg.ProviderBaseURL = jc.ProviderBaseURL
	}
	if jc.APIKey != "" {
		cfg.APIKey = jc.APIKey
	}
	if jc.Model != "" {
		cfg.Model = jc.Model
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	if jc.HistoryMaxPairs != nil {
		cfg.HistoryMaxPairs = *jc.HistoryMaxPairs
	}
	if jc.CleanupMaxDays != nil {
		cfg.CleanupMaxAge = time.Duration(*jc.CleanupMaxDays) * 24 * time.Hour
	}
	if jc.CleanupDelay.Duration > 0 {
		cfg.CleanupDelay = jc.CleanupDelay.Duration
	}
	if jc.CleanupNeverSeen != "" {
		cfg.CleanupNeverSeen = jc.CleanupNeverSeen
	}
	if jc.SeenFlushInterval.Duration > 0 {
		cfg.SeenFlushInterval = jc.SeenFlushInterval.Duration
	}

	if jc.S3Mirror != nil {
		cfg.S3Mirror = Mirror{
			Enabled:         jc.S3Mirror.Enabled,
			Endpoint:        jc.S3Mirror.Endpoint,
			Region:          jc.S3Mirror.Region,
			Bucket:          jc.S3Mirror.Bucket,
			Prefix:          jc.S3Mirror.Prefix,
			AccessKeyID:     jc.S3Mirror.AccessKeyID,
			SecretAccessKey: jc.S3Mirror.SecretAccessKey,
		}
	}
}
