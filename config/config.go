// Package config loads mintd settings from MINTD_* environment variables.
// Command-line flags registered with RegisterFlags override them.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"xdao.co/nftmint/address"
)

type Config struct {
	Listen string `env:"MINTD_LISTEN" envDefault:"127.0.0.1:7788"`

	// Store names an account store backend in storage/registry.
	Store      string `env:"MINTD_STORE" envDefault:"memory"`
	SQLitePath string `env:"MINTD_SQLITE_PATH"`

	// SnapshotDir enables snapshots: restore "latest" on start, write on
	// shutdown. Empty disables both.
	SnapshotDir string `env:"MINTD_SNAPSHOT_DIR"`
	// SnapshotMirrors are extra directories every snapshot is copied to.
	// Restore falls back to them in order.
	SnapshotMirrors []string `env:"MINTD_SNAPSHOT_MIRRORS" envSeparator:","`

	ProgramID            string `env:"MINTD_PROGRAM_ID" envDefault:"BZC28tbriJNMVB1WpAsiAywUUQUCm7q6JfbzeTfXXgtz"`
	LamportsPerSignature uint64 `env:"MINTD_LAMPORTS_PER_SIGNATURE" envDefault:"5000"`
	// MaxAirdrop caps one faucet request in lamports; 0 disables the faucet.
	MaxAirdrop  uint64 `env:"MINTD_MAX_AIRDROP" envDefault:"10000000000"`
	MaxMsgBytes int    `env:"MINTD_MAX_MSG_BYTES" envDefault:"0"`

	LogLevel  string `env:"MINTD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"MINTD_LOG_FORMAT" envDefault:"json"`
}

// Load reads the process environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// LoadFrom reads vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// RegisterFlags binds flags to c, using the current values as defaults.
// The sqlite path is left to the sqlite backend's own flag.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Listen, "listen", c.Listen, "gRPC listen address")
	fs.StringVar(&c.Store, "store", c.Store, "Account store backend")
	fs.StringVar(&c.SnapshotDir, "snapshot-dir", c.SnapshotDir, "Snapshot directory (empty disables snapshots)")
	fs.Func("snapshot-mirror", "Additional snapshot directory (repeatable)", func(v string) error {
		c.SnapshotMirrors = append(c.SnapshotMirrors, v)
		return nil
	})
	fs.StringVar(&c.ProgramID, "program-id", c.ProgramID, "Address the init_nft program is deployed at")
	fs.Uint64Var(&c.LamportsPerSignature, "lamports-per-signature", c.LamportsPerSignature, "Transaction fee per signature")
	fs.Uint64Var(&c.MaxAirdrop, "max-airdrop", c.MaxAirdrop, "Largest faucet credit in lamports (0 disables)")
	fs.IntVar(&c.MaxMsgBytes, "max-msg-bytes", c.MaxMsgBytes, "Max gRPC message size in bytes; 0 uses grpc defaults")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "json or console")
}

// Program returns the parsed program id.
func (c Config) Program() (address.Address, error) {
	id, err := address.Parse(strings.TrimSpace(c.ProgramID))
	if err != nil {
		return address.Address{}, fmt.Errorf("program id: %w", err)
	}
	return id, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Listen) == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if strings.TrimSpace(c.Store) == "" {
		errs = append(errs, errors.New("store is required"))
	}
	if _, err := c.Program(); err != nil {
		errs = append(errs, err)
	}
	if len(c.SnapshotMirrors) > 0 && c.SnapshotDir == "" {
		errs = append(errs, errors.New("snapshot mirrors require a snapshot dir"))
	}
	if c.MaxMsgBytes < 0 {
		errs = append(errs, errors.New("max message size must not be negative"))
	}
	return errors.Join(errs...)
}
