package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dkorchagin/shareup/internal/flagx"
	"github.com/dkorchagin/shareup/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so the file can spell intervals as "2s" or as nanoseconds.
// Pointer fields distinguish "absent" from zero so the overlay only touches
// keys actually present in the file.
type jsonConfig struct {
	BotToken          *string         `json:"bot_token"`
	OperatorID        *int64          `json:"operator_id"`
	LocalDir          *string         `json:"local_dir"`
	SettingsFile      *string         `json:"settings_file"`
	AccountsFile      *string         `json:"accounts_file"`
	Provider          *string         `json:"storage_provider"`
	StorageEndpoint   *string         `json:"storage_endpoint"`
	StorageRegion     *string         `json:"storage_region"`
	StorageUseSSL     *bool           `json:"storage_use_ssl"`
	BucketPrefix      *string         `json:"bucket_prefix"`
	PublicBaseURL     *string         `json:"public_base_url"`
	TotalSpaceBytes   *int64          `json:"total_space_bytes"`
	WorkerSlots       *int            `json:"worker_slots"`
	InterAccountDelay *timex.Duration `json:"inter_account_delay"`
	CallTimeout       *timex.Duration `json:"call_timeout"`
	MaxRetries        *uint64         `json:"max_retries"`
}

// parseJSON overlays Config with values from the JSON file named by the
// -c/-config flags. No file flag means no overlay. Read or unmarshal errors
// panic; the composition root treats a broken explicit config as fatal.
func parseJSON(cfg *Config) {
	path := flagx.ConfigFileFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setIf := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setIf(&cfg.BotToken, jc.BotToken)
	setIf(&cfg.LocalDir, jc.LocalDir)
	setIf(&cfg.SettingsFile, jc.SettingsFile)
	setIf(&cfg.AccountsFile, jc.AccountsFile)
	setIf(&cfg.Provider, jc.Provider)
	setIf(&cfg.StorageEndpoint, jc.StorageEndpoint)
	setIf(&cfg.StorageRegion, jc.StorageRegion)
	setIf(&cfg.BucketPrefix, jc.BucketPrefix)
	setIf(&cfg.PublicBaseURL, jc.PublicBaseURL)

	if jc.OperatorID != nil {
		cfg.OperatorID = *jc.OperatorID
	}
	if jc.StorageUseSSL != nil {
		cfg.StorageUseSSL = *jc.StorageUseSSL
	}
	if jc.TotalSpaceBytes != nil {
		cfg.TotalSpaceBytes = *jc.TotalSpaceBytes
	}
	if jc.WorkerSlots != nil {
		cfg.WorkerSlots = *jc.WorkerSlots
	}
	if jc.InterAccountDelay != nil {
		cfg.InterAccountDelay = time.Duration(jc.InterAccountDelay.Duration)
	}
	if jc.CallTimeout != nil {
		cfg.CallTimeout = time.Duration(jc.CallTimeout.Duration)
	}
	if jc.MaxRetries != nil {
		cfg.MaxRetries = *jc.MaxRetries
	}
}
