// Package ledgertest provides a bank preloaded with the built-in programs
// and helpers for funding keys and sending transactions in tests.
package ledgertest

import (
	"context"
	"crypto/sha256"
	"testing"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/associatedtoken"
	"xdao.co/nftmint/keys"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/metadata"
	"xdao.co/nftmint/system"
	"xdao.co/nftmint/token"
)

// DefaultFunding is what Env.Keypair airdrops to a new funded key.
const DefaultFunding = 10_000_000_000

// Env is an isolated bank for one test.
type Env struct {
	T    *testing.T
	Ctx  context.Context
	Bank *ledger.Bank
}

// Builtins returns the system, token, associated-token and metadata programs.
func Builtins() []ledger.Program {
	return []ledger.Program{system.New(), token.New(), associatedtoken.New(), metadata.New()}
}

// New returns a bank with the built-in programs registered.
func New(t *testing.T, opts ...ledger.Option) *Env {
	t.Helper()
	b := ledger.NewBank(opts...)
	b.Register(Builtins()...)
	return &Env{T: t, Ctx: context.Background(), Bank: b}
}

// Keypair returns a deterministic keypair named name. It is not funded.
func Keypair(t *testing.T, name string) *keys.Keypair {
	t.Helper()
	seed := sha256.Sum256([]byte("ledgertest:" + name))
	kp, err := keys.NewKeypairFromSeed(seed[:])
	if err != nil {
		t.Fatalf("NewKeypairFromSeed: %v", err)
	}
	return kp
}

// Funded returns Keypair(name) credited with DefaultFunding lamports.
func (e *Env) Funded(name string) *keys.Keypair {
	e.T.Helper()
	kp := Keypair(e.T, name)
	e.Fund(kp.Address(), DefaultFunding)
	return kp
}

func (e *Env) Fund(addr address.Address, lamports uint64) {
	e.T.Helper()
	if _, err := e.Bank.Airdrop(e.Ctx, addr, lamports); err != nil {
		e.T.Fatalf("Airdrop: %v", err)
	}
}

// Send signs ixs with payer and extra against the latest blockhash and
// executes them.
func (e *Env) Send(payer *keys.Keypair, ixs []ledger.Instruction, extra ...ledger.Signer) (*ledger.Receipt, error) {
	e.T.Helper()
	signers := append([]ledger.Signer{payer}, extra...)
	tx, err := ledger.NewTransaction(ledger.Message{
		FeePayer:        payer.Address(),
		RecentBlockhash: e.Bank.LatestBlockhash(),
		Instructions:    ixs,
	}, signers...)
	if err != nil {
		e.T.Fatalf("NewTransaction: %v", err)
	}
	return e.Bank.Execute(e.Ctx, tx)
}

// MustSend is Send that fails the test on error.
func (e *Env) MustSend(payer *keys.Keypair, ixs []ledger.Instruction, extra ...ledger.Signer) *ledger.Receipt {
	e.T.Helper()
	r, err := e.Send(payer, ixs, extra...)
	if err != nil {
		var logs []string
		if r != nil {
			logs = r.Logs
		}
		e.T.Fatalf("Execute: %v\nlogs: %v", err, logs)
	}
	return r
}

// Account returns the committed account at addr (zero when absent).
func (e *Env) Account(addr address.Address) ledger.Account {
	e.T.Helper()
	a, _, err := e.Bank.Account(e.Ctx, addr)
	if err != nil {
		e.T.Fatalf("Account: %v", err)
	}
	return a
}

// Snapshot captures every stored account, for before/after comparisons.
func (e *Env) Snapshot() map[address.Address]ledger.Account {
	e.T.Helper()
	out := make(map[address.Address]ledger.Account)
	err := e.Bank.Store().Range(e.Ctx, func(a address.Address, acct ledger.Account) error {
		out[a] = acct
		return nil
	})
	if err != nil {
		e.T.Fatalf("Range: %v", err)
	}
	return out
}

// CreateMint creates and initializes a mint with the given decimals and
// authority, paid by payer.
func (e *Env) CreateMint(payer, mint *keys.Keypair, decimals uint8, authority address.Address) {
	e.T.Helper()
	rent := e.Bank.Rent().MinimumBalance(token.MintSize)
	e.MustSend(payer, []ledger.Instruction{
		system.CreateAccount(payer.Address(), mint.Address(), rent, token.MintSize, address.TokenProgram),
		token.InitializeMint2(mint.Address(), decimals, authority, nil),
	}, mint)
}
