// Package config holds runtime settings for the companion core and the
// layered loader that populates them: in-code defaults, then a JSON config
// file, then command-line flags, then environment variables. Later sources
// take precedence over earlier ones.
package config

import "time"

// Never-seen cleanup policies: what age basis applies to a persisted canvas
// asset that has no last-seen record at all.
const (
	// NeverSeenMtime falls back to the image file's modification time, so a
	// freshly persisted asset is not eligible immediately.
	NeverSeenMtime = "mtime"
	// NeverSeenImmediate treats an unseen asset as infinitely old.
	NeverSeenImmediate = "immediate"
)

// Mirror configures the optional S3 mirror for persisted canvas images.
type Mirror struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// Config holds runtime settings for the companion core.
//
// DataDir is the single per-deployment directory: it contains the vault key
// file, the sqlite database and the maps/ image subdirectory.
type Config struct {
	DataDir string

	// Completion provider.
	ProviderBaseURL string
	APIKey          string // global default secret; per-user keys override it
	Model           string // global default model
	Timeout         time.Duration

	// Conversation history bound, in user+assistant pairs.
	HistoryMaxPairs int

	// Vault key derivation; empty means a raw random key file.
	VaultPassphrase string

	// Asset cleanup.
	CleanupMaxAge    time.Duration // delete assets unseen for longer than this
	CleanupDelay     time.Duration // one-shot run this long after startup; 0 disables
	CleanupNeverSeen string        // NeverSeenMtime or NeverSeenImmediate

	// How often last-seen timestamps are flushed to the database.
	SeenFlushInterval time.Duration

	S3Mirror Mirror
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "data"
	c.ProviderBaseURL = "https://api.openai.com"
	c.Model = "gpt-3.5-turbo"
	c.Timeout = 60 * time.Second
	c.HistoryMaxPairs = 10
	c.CleanupMaxAge = 30 * 24 * time.Hour
	c.CleanupDelay = time.Minute
	c.CleanupNeverSeen = NeverSeenMtime
	c.SeenFlushInterval = 5 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), command-line flags, and the environment.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}
