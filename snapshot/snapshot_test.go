package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/cidutil"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/ledger/ledgertest"
	"xdao.co/nftmint/storage"
	"xdao.co/nftmint/storage/localfs"
	"xdao.co/nftmint/system"
)

func populated(t *testing.T) *ledgertest.Env {
	t.Helper()
	env := ledgertest.New(t)
	payer := env.Funded("payer")
	mint := ledgertest.Keypair(t, "mint")
	env.CreateMint(payer, mint, 0, payer.Address())
	env.MustSend(payer, []ledger.Instruction{
		system.Transfer(payer.Address(), ledgertest.Keypair(t, "friend").Address(), 2_000_000),
	})
	return env
}

func TestEncodeDecodeIsCanonical(t *testing.T) {
	env := populated(t)
	snap, err := Capture(env.Ctx, env.Bank)
	require.NoError(t, err)
	require.Len(t, snap.Accounts, 3)
	assert.Equal(t, env.Bank.Slot(), snap.Slot)
	assert.Equal(t, env.Bank.RecentBlockhashes(), snap.Blockhashes)

	b1, err := snap.Encode()
	require.NoError(t, err)
	decoded, err := Decode(b1)
	require.NoError(t, err)
	b2, err := decoded.Encode()
	require.NoError(t, err)
	assert.Equal(t, b1, b2)

	again, err := Capture(env.Ctx, env.Bank)
	require.NoError(t, err)
	b3, err := again.Encode()
	require.NoError(t, err)
	assert.Equal(t, cidutil.String(b1), cidutil.String(b3), "same state must give the same block")
}

func TestDecodeRejectsUnorderedAccounts(t *testing.T) {
	var lo, hi address.Address
	hi[0] = 1
	s := &Snapshot{
		Version:     Version,
		Blockhashes: []ledger.Hash{ledger.GenesisBlockhash},
		Accounts:    []Entry{{Address: hi}, {Address: lo}},
	}
	_, err := s.Encode()
	assert.ErrorIs(t, err, ErrNotCanonical)

	s.Version = 9
	_, err = s.Encode()
	assert.ErrorIs(t, err, ErrVersion)
}

func TestWriteRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := populated(t)
	dst, err := localfs.New(t.TempDir())
	require.NoError(t, err)

	id, snap, err := Write(ctx, env.Bank, dst, LatestRef)
	require.NoError(t, err)

	loaded, gotID, found, err := LoadRef(ctx, dst, LatestRef)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, gotID)
	wantBytes, err := snap.Encode()
	require.NoError(t, err)
	gotBytes, err := loaded.Encode()
	require.NoError(t, err)
	assert.Equal(t, wantBytes, gotBytes)

	fresh := ledger.NewMemoryStore()
	opt, err := loaded.Restore(ctx, fresh)
	require.NoError(t, err)
	restored := ledger.NewBank(ledger.WithStore(fresh), opt)
	restored.Register(ledgertest.Builtins()...)

	assert.Equal(t, env.Bank.Slot(), restored.Slot())
	assert.Equal(t, env.Bank.LatestBlockhash(), restored.LatestBlockhash())
	for addr, want := range env.Snapshot() {
		got, ok, err := fresh.Get(ctx, addr)
		require.NoError(t, err)
		require.True(t, ok, "missing %s", addr)
		assert.True(t, want.Equal(got), "account %s differs", addr)
	}

	// The restored bank keeps accepting transactions against the old window.
	payer := ledgertest.Keypair(t, "payer")
	tx, err := ledger.NewTransaction(ledger.Message{
		FeePayer:        payer.Address(),
		RecentBlockhash: env.Bank.LatestBlockhash(),
		Instructions:    []ledger.Instruction{system.Transfer(payer.Address(), ledgertest.Keypair(t, "friend").Address(), 1)},
	}, payer)
	require.NoError(t, err)
	_, err = restored.Execute(ctx, tx)
	require.NoError(t, err)
}

func TestRestoreRefusesNonEmptyStore(t *testing.T) {
	env := populated(t)
	snap, err := Capture(env.Ctx, env.Bank)
	require.NoError(t, err)
	_, err = snap.Restore(env.Ctx, env.Bank.Store())
	assert.ErrorIs(t, err, ErrStoreNotEmpty)
}

func TestLoadRefMissing(t *testing.T) {
	dst, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	_, _, found, err := LoadRef(context.Background(), dst, LatestRef)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadUnknownCID(t *testing.T) {
	dst, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	id, err := cidutil.Sum([]byte("absent"))
	require.NoError(t, err)
	_, err = Load(context.Background(), dst, id)
	assert.True(t, storage.IsNotFound(err))
}

func TestRestoredBankRejectsReplay(t *testing.T) {
	ctx := context.Background()
	env := ledgertest.New(t)
	payer := env.Funded("payer")
	tx, err := ledger.NewTransaction(ledger.Message{
		FeePayer:        payer.Address(),
		RecentBlockhash: env.Bank.LatestBlockhash(),
		Instructions:    []ledger.Instruction{system.Transfer(payer.Address(), ledgertest.Keypair(t, "friend").Address(), 1_000_000)},
	}, payer)
	require.NoError(t, err)
	_, err = env.Bank.Execute(ctx, tx)
	require.NoError(t, err)

	snap, err := Capture(ctx, env.Bank)
	require.NoError(t, err)
	require.Len(t, snap.Processed, 1)

	fresh := ledger.NewMemoryStore()
	opt, err := snap.Restore(ctx, fresh)
	require.NoError(t, err)
	restored := ledger.NewBank(ledger.WithStore(fresh), opt)
	restored.Register(ledgertest.Builtins()...)

	_, err = restored.Execute(ctx, tx)
	assert.True(t, ledger.IsKind(err, ledger.KindAlreadyProcessed), "got %v", err)
}
