package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/associatedtoken"
	"xdao.co/nftmint/config"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/logging"
	"xdao.co/nftmint/metadata"
	"xdao.co/nftmint/nft"
	"xdao.co/nftmint/snapshot"
	"xdao.co/nftmint/storage"
	"xdao.co/nftmint/storage/localfs"
	"xdao.co/nftmint/storage/registry"
	"xdao.co/nftmint/system"
	"xdao.co/nftmint/token"
)

// daemon is the bank mintd serves plus the stores behind it.
type daemon struct {
	bank       *ledger.Bank
	programID  address.Address
	snapshots  storage.SnapshotStore
	closeStore func() error
	logger     *zap.Logger
}

// openDaemon opens the configured account store, restores the latest
// snapshot into it when the store is empty or else resumes from the history
// the store recorded, and registers the programs.
func openDaemon(ctx context.Context, cfg config.Config) (*daemon, error) {
	logger := logging.FromContext(ctx)
	programID, err := cfg.Program()
	if err != nil {
		return nil, err
	}
	store, closeStore, err := registry.Open(cfg.Store, registry.UsageDaemon)
	if err != nil {
		return nil, err
	}
	d := &daemon{programID: programID, closeStore: closeStore, logger: logger}

	opts := []ledger.Option{
		ledger.WithStore(store),
		ledger.WithLamportsPerSignature(cfg.LamportsPerSignature),
		ledger.WithLogger(logger.Named("ledger")),
	}
	var resume ledger.Option
	if cfg.SnapshotDir != "" {
		d.snapshots, err = openSnapshots(cfg)
		if err != nil {
			_ = closeStore()
			return nil, err
		}
		if resume, err = d.restore(ctx, store); err != nil {
			_ = closeStore()
			return nil, err
		}
	}
	if resume == nil {
		// A populated durable store carries its own history.
		if resume, err = ledger.Resume(ctx, store); err != nil {
			_ = closeStore()
			return nil, err
		}
		if resume != nil {
			logger.Info("resumed from store history")
		}
	}
	if resume != nil {
		opts = append(opts, resume)
	}

	d.bank = ledger.NewBank(opts...)
	d.bank.Register(
		system.New(),
		token.New(),
		associatedtoken.New(),
		metadata.New(),
		nft.New(programID),
	)
	return d, nil
}

// openSnapshots returns the snapshot directory, replicated to any mirrors.
func openSnapshots(cfg config.Config) (storage.SnapshotStore, error) {
	primary, err := localfs.New(cfg.SnapshotDir)
	if err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}
	if len(cfg.SnapshotMirrors) == 0 {
		return primary, nil
	}
	r := storage.Replicating{Backends: []storage.NamedStore{{Name: cfg.SnapshotDir, Store: primary}}}
	for _, dir := range cfg.SnapshotMirrors {
		m, err := localfs.New(dir)
		if err != nil {
			return nil, fmt.Errorf("snapshot mirror: %w", err)
		}
		r.Backends = append(r.Backends, storage.NamedStore{Name: dir, Store: m})
	}
	return r, nil
}

func (d *daemon) restore(ctx context.Context, store ledger.AccountStore) (ledger.Option, error) {
	snap, id, found, err := snapshot.LoadRef(ctx, d.snapshots, snapshot.LatestRef)
	if err != nil {
		return nil, err
	}
	if !found {
		d.logger.Info("no snapshot to restore")
		return nil, nil
	}
	opt, err := snap.Restore(ctx, store)
	if errors.Is(err, snapshot.ErrStoreNotEmpty) {
		// A durable store is ahead of (or equal to) any snapshot of it.
		d.logger.Info("store already populated; snapshot not restored", zap.Stringer("cid", id))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.logger.Info("restored snapshot",
		zap.Stringer("cid", id),
		zap.Uint64("slot", snap.Slot),
		zap.Int("accounts", len(snap.Accounts)),
	)
	return opt, nil
}

func (d *daemon) writeSnapshot(ctx context.Context) error {
	if d.snapshots == nil {
		return nil
	}
	id, snap, err := snapshot.Write(ctx, d.bank, d.snapshots, snapshot.LatestRef)
	if err != nil {
		return err
	}
	d.logger.Info("wrote snapshot", zap.Stringer("cid", id), zap.Uint64("slot", snap.Slot))
	return nil
}

func (d *daemon) close() {
	if d.closeStore != nil {
		_ = d.closeStore()
	}
}
