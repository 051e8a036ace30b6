package system_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/ledger/ledgertest"
	"xdao.co/nftmint/system"
)

func TestCreateAccount(t *testing.T) {
	env := ledgertest.New(t)
	payer := env.Funded("payer")
	acct := ledgertest.Keypair(t, "new")
	owner := address.TokenProgram
	rent := env.Bank.Rent().MinimumBalance(10)

	r := env.MustSend(payer, []ledger.Instruction{
		system.CreateAccount(payer.Address(), acct.Address(), rent, 10, owner),
	}, acct)

	got := env.Account(acct.Address())
	assert.Equal(t, rent, got.Lamports)
	assert.Equal(t, owner, got.Owner)
	assert.Equal(t, make([]byte, 10), got.Data)
	assert.Equal(t, ledgertest.DefaultFunding-rent-r.Fee, env.Account(payer.Address()).Lamports)
}

func TestCreateAccountInUse(t *testing.T) {
	env := ledgertest.New(t)
	payer := env.Funded("payer")
	acct := ledgertest.Keypair(t, "taken")
	env.Fund(acct.Address(), 1)

	_, err := env.Send(payer, []ledger.Instruction{
		system.CreateAccount(payer.Address(), acct.Address(), 1_000_000, 0, address.SystemProgram),
	}, acct)
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindAlreadyInitialized))
	assert.Equal(t, "system.create_account.in_use", ledger.CheckOf(err))
}

func TestCreateAccountInsufficientFunds(t *testing.T) {
	env := ledgertest.New(t)
	payer := ledgertest.Keypair(t, "poor")
	env.Fund(payer.Address(), 1_000_000)
	acct := ledgertest.Keypair(t, "new")

	_, err := env.Send(payer, []ledger.Instruction{
		system.CreateAccount(payer.Address(), acct.Address(), 5_000_000, 0, address.SystemProgram),
	}, acct)
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindInsufficientFunds))
	assert.Equal(t, uint64(1_000_000), env.Account(payer.Address()).Lamports)
	assert.False(t, env.Account(acct.Address()).HasState())
}

func TestCreateAccountBelowRentExemption(t *testing.T) {
	env := ledgertest.New(t)
	payer := env.Funded("payer")
	acct := ledgertest.Keypair(t, "new")

	_, err := env.Send(payer, []ledger.Instruction{
		system.CreateAccount(payer.Address(), acct.Address(), 1000, 10, address.TokenProgram),
	}, acct)
	require.Error(t, err)
	assert.Equal(t, "ledger.rent", ledger.CheckOf(err))
}

func TestTransferRequiresSignature(t *testing.T) {
	env := ledgertest.New(t)
	payer := env.Funded("payer")
	victim := env.Funded("victim")

	ix := system.Transfer(victim.Address(), payer.Address(), 1)
	ix.Accounts[0].IsSigner = false
	_, err := env.Send(payer, []ledger.Instruction{ix})
	require.Error(t, err)
	assert.Equal(t, "system.transfer.signer", ledger.CheckOf(err))

	env.MustSend(payer, []ledger.Instruction{system.Transfer(victim.Address(), payer.Address(), 1_000)}, victim)
	assert.Equal(t, uint64(ledgertest.DefaultFunding-1_000), env.Account(victim.Address()).Lamports)
}

func TestAllocateAndAssign(t *testing.T) {
	env := ledgertest.New(t)
	payer := env.Funded("payer")
	acct := ledgertest.Keypair(t, "acct")
	owner := address.MetadataProgram
	rent := env.Bank.Rent().MinimumBalance(32)

	env.MustSend(payer, []ledger.Instruction{
		system.Transfer(payer.Address(), acct.Address(), rent),
		system.Allocate(acct.Address(), 32),
		system.Assign(acct.Address(), owner),
	}, acct)

	got := env.Account(acct.Address())
	assert.Equal(t, owner, got.Owner)
	assert.Len(t, got.Data, 32)

	_, err := env.Send(payer, []ledger.Instruction{system.Allocate(acct.Address(), 64)}, acct)
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindAlreadyInitialized))
}

func TestUnknownInstruction(t *testing.T) {
	env := ledgertest.New(t)
	payer := env.Funded("payer")
	_, err := env.Send(payer, []ledger.Instruction{{ProgramID: address.SystemProgram, Data: []byte{99, 0, 0, 0}}})
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindMalformed))
}
