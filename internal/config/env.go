package config

import (
	"os"
	"strings"
)

// parseEnv overlays Config with environment variables. The provider key
// follows the conventional OPENAI_API_KEY; everything else is prefixed with
// CANVAI_. Secrets prefer the environment so they stay out of config files.
func parseEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("CANVAI_VAULT_PASSPHRASE"); v != "" {
		cfg.VaultPassphrase = v
	}

	if v := strings.TrimSpace(os.Getenv("CANVAI_S3_BUCKET")); v != "" {
		cfg.S3Mirror.Enabled = true
		cfg.S3Mirror.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv("CANVAI_S3_ENDPOINT")); v != "" {
		cfg.S3Mirror.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("CANVAI_S3_REGION")); v != "" {
		cfg.S3Mirror.Region = v
	}
	if v := strings.TrimSpace(os.Getenv("CANVAI_S3_PREFIX")); v != "" {
		cfg.S3Mirror.Prefix = v
	}
	if v := strings.TrimSpace(os.Getenv("CANVAI_S3_ACCESS_KEY_ID")); v != "" {
		cfg.S3Mirror.AccessKeyID = v
	}
	if v := strings.TrimSpace(os.Getenv("CANVAI_S3_SECRET_ACCESS_KEY")); v != "" {
		cfg.S3Mirror.SecretAccessKey = v
	}
}
