package sqlite

import (
	"context"
	"flag"
	"fmt"

	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/storage/registry"
)

// Name is the registry name of this backend.
const Name = "sqlite"

var flagPath string

func init() {
	registry.MustRegister(registry.Backend{
		Name:        Name,
		Description: "SQLite account store (single file, WAL)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagPath, "sqlite-path", "", "SQLite database file (for --store=sqlite)")
		},
		Open: func() (ledger.AccountStore, func() error, error) {
			if flagPath == "" {
				return nil, nil, fmt.Errorf("missing --sqlite-path")
			}
			s, err := Open(context.Background(), flagPath)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}
