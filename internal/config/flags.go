package config

import (
	"flag"
	"os"
	"time"

	"github.com/dkorchagin/shareup/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-t string   bot token
//	-o int      operator chat ID
//	-d string   local directory with files to upload
//	-p string   storage provider ("s3" or "minio")
//	-e string   storage endpoint
//	-i int      inter-account delay in seconds for bulk reuploads
//
// Arguments are filtered first via flagx.FilterArgs so the -c/-config flags
// handled by the JSON stage do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-t", "-o", "-d", "-p", "-e", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BotToken, "t", cfg.BotToken, "bot token")
	fs.Int64Var(&cfg.OperatorID, "o", cfg.OperatorID, "operator chat ID")
	fs.StringVar(&cfg.LocalDir, "d", cfg.LocalDir, "local directory with files to upload")
	fs.StringVar(&cfg.Provider, "p", cfg.Provider, "storage provider (s3 or minio)")
	fs.StringVar(&cfg.StorageEndpoint, "e", cfg.StorageEndpoint, "storage endpoint")
	delay := fs.Int("i", int(cfg.InterAccountDelay.Seconds()), "inter-account delay in seconds")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.InterAccountDelay = time.Duration(*delay) * time.Second
}
