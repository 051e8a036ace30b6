package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/associatedtoken"
	"xdao.co/nftmint/config"
	"xdao.co/nftmint/keys"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/ledgerrpc"
	"xdao.co/nftmint/metadata"
	"xdao.co/nftmint/nft"
	"xdao.co/nftmint/storage/registry"
	"xdao.co/nftmint/system"
	"xdao.co/nftmint/token"

	_ "xdao.co/nftmint/storage/sqlite"
)

const defaultRPC = "127.0.0.1:7788"

// chain is what the ledger commands need, served either by mintd or by an
// in-process bank over a local store.
type chain interface {
	LatestBlockhash(ctx context.Context) (ledger.Hash, error)
	Submit(ctx context.Context, tx *ledger.Transaction) (*ledger.Receipt, error)
	Account(ctx context.Context, addr address.Address) (ledger.Account, bool, error)
	Airdrop(ctx context.Context, addr address.Address, lamports uint64) (*ledger.Receipt, error)
	Close() error
}

type connFlags struct {
	rpc       string
	store     string
	timeout   time.Duration
	programID string
	keysDir   string
}

func addConnFlags(fs *flag.FlagSet) *connFlags {
	c := &connFlags{}
	rpc := os.Getenv("NFTMINT_RPC")
	if rpc == "" {
		rpc = defaultRPC
	}
	fs.StringVar(&c.rpc, "rpc", rpc, "mintd gRPC address")
	fs.StringVar(&c.store, "store", "", "Use a local account store backend instead of mintd")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "Per-RPC timeout")
	fs.StringVar(&c.programID, "program-id", nft.DefaultProgramID.String(), "init_nft program address")
	fs.StringVar(&c.keysDir, "keys-dir", "", "Key store directory (default ~/.xdao/nftmint/keys)")
	registry.RegisterFlags(fs, registry.UsageCLI)
	return c
}

func (c *connFlags) program() (address.Address, error) {
	return (config.Config{ProgramID: c.programID}).Program()
}

func (c *connFlags) keyStore() (*keys.KeyStore, error) {
	return keys.CreateKeyStore(c.keysDir)
}

func (c *connFlags) open() (chain, error) {
	if c.store == "" {
		client, err := ledgerrpc.Dial(c.rpc, ledgerrpc.DialOptions{Timeout: c.timeout})
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", c.rpc, err)
		}
		return rpcChain{client}, nil
	}
	programID, err := c.program()
	if err != nil {
		return nil, err
	}
	store, closeFn, err := registry.Open(c.store, registry.UsageCLI)
	if err != nil {
		return nil, err
	}
	opts := []ledger.Option{ledger.WithStore(store)}
	resume, err := ledger.Resume(context.Background(), store)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	if resume != nil {
		opts = append(opts, resume)
	}
	bank := ledger.NewBank(opts...)
	bank.Register(system.New(), token.New(), associatedtoken.New(), metadata.New(), nft.New(programID))
	return &localChain{bank: bank, close: closeFn}, nil
}

type rpcChain struct{ *ledgerrpc.Client }

func (r rpcChain) LatestBlockhash(ctx context.Context) (ledger.Hash, error) {
	h, _, err := r.Client.LatestBlockhash(ctx)
	return h, err
}

func (r rpcChain) Submit(ctx context.Context, tx *ledger.Transaction) (*ledger.Receipt, error) {
	return r.SubmitTransaction(ctx, tx)
}

// localChain runs transactions in-process. The bank resumes from the history
// the store recorded, so a durable store keeps its replay window across
// invocations.
type localChain struct {
	bank  *ledger.Bank
	close func() error
}

func (l *localChain) LatestBlockhash(context.Context) (ledger.Hash, error) {
	return l.bank.LatestBlockhash(), nil
}

func (l *localChain) Submit(ctx context.Context, tx *ledger.Transaction) (*ledger.Receipt, error) {
	return l.bank.Execute(ctx, tx)
}

func (l *localChain) Account(ctx context.Context, addr address.Address) (ledger.Account, bool, error) {
	return l.bank.Account(ctx, addr)
}

func (l *localChain) Airdrop(ctx context.Context, addr address.Address, lamports uint64) (*ledger.Receipt, error) {
	return l.bank.Airdrop(ctx, addr, lamports)
}

func (l *localChain) Close() error { return l.close() }

// send signs ixs against the latest blockhash and submits them.
func send(ctx context.Context, c chain, payer ledger.Signer, ixs []ledger.Instruction, extra ...ledger.Signer) (*ledger.Transaction, *ledger.Receipt, error) {
	hash, err := c.LatestBlockhash(ctx)
	if err != nil {
		return nil, nil, err
	}
	tx, err := ledger.NewTransaction(ledger.Message{
		FeePayer:        payer.Address(),
		RecentBlockhash: hash,
		Instructions:    ixs,
	}, append([]ledger.Signer{payer}, extra...)...)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := c.Submit(ctx, tx)
	return tx, receipt, err
}
