package config

import (
	"flag"
	"os"
	"time"

	"github.com/canvai/canvai/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   deployment data directory
//	-m string   default completion model
//	-t int      provider timeout in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-m", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "deployment data directory")
	fs.StringVar(&cfg.Model, "m", cfg.Model, "default completion model")
	timeoutSec := fs.Int("t", int(cfg.Timeout.Seconds()), "provider timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
}
