package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path of the local SQLite database file
//	-r string   Postgres DSN of the remote document store
//	-u string   user id scoping remote documents
//	-p string   address and port probed for connectivity
//	-i int      connectivity probe timeout in seconds
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-u", "-p", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "path of the local database file")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "Postgres DSN of the remote store")
	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "user id")
	fs.StringVar(&cfg.ProbeAddr, "p", cfg.ProbeAddr, "address and port probed for connectivity")
	probeTimeout := fs.Int("i", int(cfg.ProbeTimeout.Seconds()), "connectivity probe timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.ProbeTimeout = time.Duration(*probeTimeout) * time.Second
}
