package registry

import (
	"flag"

	"xdao.co/nftmint/ledger"
)

// Memory is the name of the built-in in-process backend.
const Memory = "memory"

func init() {
	MustRegister(Backend{
		Name:          Memory,
		Description:   "In-process account store (lost on exit unless snapshotted)",
		Usage:         UsageCLI | UsageDaemon,
		RegisterFlags: func(*flag.FlagSet) {},
		Open: func() (ledger.AccountStore, func() error, error) {
			return ledger.NewMemoryStore(), nil, nil
		},
	})
}
