package main

import (
	"context"
	"flag"
	"path/filepath"
	"testing"

	"xdao.co/nftmint/config"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/ledger/ledgertest"
	"xdao.co/nftmint/storage/registry"
	"xdao.co/nftmint/system"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	cfg.SnapshotDir = filepath.Join(t.TempDir(), "snapshots")
	return cfg
}

func TestDaemonSnapshotAcrossRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	d, err := openDaemon(ctx, cfg)
	if err != nil {
		t.Fatalf("openDaemon: %v", err)
	}
	wallet := ledgertest.Keypair(t, "wallet").Address()
	if _, err := d.bank.Airdrop(ctx, wallet, 5_000_000); err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	slot, hash := d.bank.Slot(), d.bank.LatestBlockhash()
	if err := d.writeSnapshot(ctx); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}
	d.close()

	again, err := openDaemon(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.close()
	if again.bank.Slot() != slot || again.bank.LatestBlockhash() != hash {
		t.Fatalf("restored at slot %d, want %d", again.bank.Slot(), slot)
	}
	acct, found, err := again.bank.Account(ctx, wallet)
	if err != nil || !found || acct.Lamports != 5_000_000 {
		t.Fatalf("wallet after restore = %+v, %v, %v", acct, found, err)
	}
	if _, found, _ := again.bank.Account(ctx, again.programID); !found {
		t.Fatalf("init_nft program not registered")
	}
}

func TestDaemonWithoutSnapshots(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotDir = ""
	d, err := openDaemon(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openDaemon: %v", err)
	}
	defer d.close()
	if err := d.writeSnapshot(context.Background()); err != nil {
		t.Fatalf("writeSnapshot with snapshots disabled: %v", err)
	}
}

func TestDaemonUnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = "tape"
	if _, err := openDaemon(context.Background(), cfg); err == nil {
		t.Fatalf("openDaemon with unknown store succeeded")
	}
}

func TestDaemonRestoresFromMirror(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	mirror := filepath.Join(t.TempDir(), "mirror")
	cfg.SnapshotMirrors = []string{mirror}

	d, err := openDaemon(ctx, cfg)
	if err != nil {
		t.Fatalf("openDaemon: %v", err)
	}
	wallet := ledgertest.Keypair(t, "wallet").Address()
	if _, err := d.bank.Airdrop(ctx, wallet, 7_000_000); err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	if err := d.writeSnapshot(ctx); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}
	d.close()

	// Lose the primary; the mirror alone must bring the ledger back.
	cfg.SnapshotDir = filepath.Join(t.TempDir(), "fresh")
	again, err := openDaemon(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.close()
	acct, found, err := again.bank.Account(ctx, wallet)
	if err != nil || !found || acct.Lamports != 7_000_000 {
		t.Fatalf("wallet after restore = %+v, %v, %v", acct, found, err)
	}
}

// useSQLite points the sqlite backend at path through its registered flag.
func useSQLite(t *testing.T, cfg *config.Config, path string) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	registry.RegisterFlags(fs, registry.UsageDaemon)
	if err := fs.Parse([]string{"--sqlite-path", path}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg.Store = "sqlite"
}

func TestDaemonRestartOnDurableStoreRejectsReplay(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	useSQLite(t, &cfg, filepath.Join(t.TempDir(), "ledger.db"))

	d, err := openDaemon(ctx, cfg)
	if err != nil {
		t.Fatalf("openDaemon: %v", err)
	}
	alice := ledgertest.Keypair(t, "alice")
	bob := ledgertest.Keypair(t, "bob").Address()
	if _, err := d.bank.Airdrop(ctx, alice.Address(), 3_000_000_000); err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	if err := d.writeSnapshot(ctx); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}
	// Committed after the last snapshot, as after a crash.
	tx, err := ledger.NewTransaction(ledger.Message{
		FeePayer:        alice.Address(),
		RecentBlockhash: ledger.GenesisBlockhash,
		Instructions:    []ledger.Instruction{system.Transfer(alice.Address(), bob, 1_000_000_000)},
	}, alice)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	if _, err := d.bank.Execute(ctx, tx); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	slot := d.bank.Slot()
	d.close()

	again, err := openDaemon(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.close()
	if again.bank.Slot() != slot {
		t.Fatalf("restarted at slot %d, want %d", again.bank.Slot(), slot)
	}
	if _, err := again.bank.Execute(ctx, tx); !ledger.IsKind(err, ledger.KindAlreadyProcessed) {
		t.Fatalf("replay after restart: got %v want AlreadyProcessed", err)
	}
	acct, _, err := again.bank.Account(ctx, bob)
	if err != nil || acct.Lamports != 1_000_000_000 {
		t.Fatalf("bob = %+v, %v; want one transfer", acct, err)
	}
}
