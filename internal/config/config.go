// Package config handles runtime configuration for the bot: defaults,
// optional .env and JSON overlays, then command-line flags, with later
// sources taking precedence.
package config

import "time"

// Config holds runtime settings for the bot.
//
// Fields:
//   - BotToken / OperatorID: chat transport credentials and the single chat
//     allowed to drive the bot.
//   - LocalDir: directory whose regular files (one level) are uploaded.
//   - SettingsFile / AccountsFile: paths of the two persisted JSON documents.
//   - Provider: storage backend, "s3" or "minio".
//   - StorageEndpoint / StorageRegion / StorageUseSSL: backend connection.
//   - BucketPrefix: per-account bucket names are derived from the account
//     handle and prefixed with this.
//   - PublicBaseURL: base for public folder links; when empty the provider
//     falls back to presigned links.
//   - TotalSpaceBytes: advertised capacity per account, for diagnostics.
//   - WorkerSlots: bound on concurrent storage activity across accounts.
//   - InterAccountDelay: pause between accounts during a bulk reupload.
//   - CallTimeout: per storage call; MaxRetries: transient-failure retry cap.
type Config struct {
	BotToken     string
	OperatorID   int64
	LocalDir     string
	SettingsFile string
	AccountsFile string

	Provider        string
	StorageEndpoint string
	StorageRegion   string
	StorageUseSSL   bool
	BucketPrefix    string
	PublicBaseURL   string
	TotalSpaceBytes int64

	WorkerSlots       int
	InterAccountDelay time.Duration
	CallTimeout       time.Duration
	MaxRetries        uint64
}

// LoadDefaults populates c with development defaults. Token and operator ID
// have no defaults and must come from the environment, JSON, or flags.
func (c *Config) LoadDefaults() {
	c.LocalDir = "./videos"
	c.SettingsFile = "settings.json"
	c.AccountsFile = "accounts.json"
	c.Provider = "minio"
	c.StorageEndpoint = "127.0.0.1:9000"
	c.StorageRegion = "us-east-1"
	c.StorageUseSSL = false
	c.BucketPrefix = "shareup-"
	c.TotalSpaceBytes = 20 << 30
	c.WorkerSlots = 3
	c.InterAccountDelay = 2 * time.Second
	c.CallTimeout = 2 * time.Minute
	c.MaxRetries = 3
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment (including an optional .env file), an optional JSON
// file, and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
