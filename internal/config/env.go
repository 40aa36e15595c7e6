package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with SHAREUP_* environment variables. A .env file
// in the working directory is loaded first, if present; real environment
// variables win over .env entries (godotenv does not overwrite).
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setString("SHAREUP_BOT_TOKEN", &cfg.BotToken)
	setString("SHAREUP_LOCAL_DIR", &cfg.LocalDir)
	setString("SHAREUP_SETTINGS_FILE", &cfg.SettingsFile)
	setString("SHAREUP_ACCOUNTS_FILE", &cfg.AccountsFile)
	setString("SHAREUP_STORAGE_PROVIDER", &cfg.Provider)
	setString("SHAREUP_STORAGE_ENDPOINT", &cfg.StorageEndpoint)
	setString("SHAREUP_STORAGE_REGION", &cfg.StorageRegion)
	setString("SHAREUP_BUCKET_PREFIX", &cfg.BucketPrefix)
	setString("SHAREUP_PUBLIC_BASE_URL", &cfg.PublicBaseURL)

	if v, ok := os.LookupEnv("SHAREUP_OPERATOR_ID"); ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.OperatorID = id
		}
	}
	if v, ok := os.LookupEnv("SHAREUP_STORAGE_USE_SSL"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StorageUseSSL = b
		}
	}
}
