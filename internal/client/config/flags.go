package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string       address and port of the credential service
//	-i int          online check interval in seconds
//	-d string       path of the local SQLite database
//	-store string   record store backend (sqlite|redis)
//	-log string     log level (debug|info|warn|error)
//
// os.Args is filtered with flagx.FilterArgs so flags meant for other
// components do not cause parse errors.
func parseFlags(cfg *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-d", "-store", "-log"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "record store backend (sqlite|redis)")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	return nil
}
