package associatedtoken_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/associatedtoken"
	"xdao.co/nftmint/keys"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/ledger/ledgertest"
	"xdao.co/nftmint/token"
)

func TestFindAddressVector(t *testing.T) {
	var wallet, mint address.Address
	copy(wallet[:], bytes.Repeat([]byte{7}, 32))
	for i := range mint {
		mint[i] = byte(i + 1)
	}
	got, bump, err := associatedtoken.FindAddress(wallet, mint)
	require.NoError(t, err)
	assert.Equal(t, "FQHoYcpYxCrVrVReMUoG21GrjfjhLjukua1mnYBPeUdv", got.String())
	assert.Equal(t, uint8(255), bump)
}

func setup(t *testing.T) (*ledgertest.Env, *keys.Keypair, address.Address, address.Address) {
	env := ledgertest.New(t)
	payer := env.Funded("payer")
	mint := ledgertest.Keypair(t, "mint")
	env.CreateMint(payer, mint, 0, payer.Address())
	holding, _, err := associatedtoken.FindAddress(payer.Address(), mint.Address())
	require.NoError(t, err)
	return env, payer, mint.Address(), holding
}

func assertHolding(t *testing.T, env *ledgertest.Env, holding, wallet, mint address.Address) {
	acct := env.Account(holding)
	assert.Equal(t, env.Bank.Rent().MinimumBalance(token.AccountSize), acct.Lamports)
	a, err := token.LoadAccount(&acct)
	require.NoError(t, err)
	assert.Equal(t, mint, a.Mint)
	assert.Equal(t, wallet, a.Owner)
	assert.Zero(t, a.Amount)
}

func TestCreate(t *testing.T) {
	env, payer, mint, holding := setup(t)

	ix, err := associatedtoken.Create(payer.Address(), payer.Address(), mint)
	require.NoError(t, err)
	env.MustSend(payer, []ledger.Instruction{ix})
	assertHolding(t, env, holding, payer.Address(), mint)

	again, err := associatedtoken.Create(payer.Address(), payer.Address(), mint)
	require.NoError(t, err)
	_, err = env.Send(payer, []ledger.Instruction{again})
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindAlreadyInitialized))

	idem, err := associatedtoken.CreateIdempotent(payer.Address(), payer.Address(), mint)
	require.NoError(t, err)
	before := env.Account(holding)
	env.MustSend(payer, []ledger.Instruction{idem})
	assert.True(t, before.Equal(env.Account(holding)))
}

func TestCreateForOtherWallet(t *testing.T) {
	env, payer, mint, _ := setup(t)
	wallet := ledgertest.Keypair(t, "wallet").Address()
	holding, _, err := associatedtoken.FindAddress(wallet, mint)
	require.NoError(t, err)

	ix, err := associatedtoken.Create(payer.Address(), wallet, mint)
	require.NoError(t, err)
	env.MustSend(payer, []ledger.Instruction{ix})
	assertHolding(t, env, holding, wallet, mint)
}

func TestCreatePrefunded(t *testing.T) {
	env, payer, mint, holding := setup(t)
	env.Fund(holding, 1000)

	ix, err := associatedtoken.Create(payer.Address(), payer.Address(), mint)
	require.NoError(t, err)
	env.MustSend(payer, []ledger.Instruction{ix})
	assertHolding(t, env, holding, payer.Address(), mint)
}

func TestCreateRejectsWrongAddress(t *testing.T) {
	env, payer, mint, _ := setup(t)
	ix, err := associatedtoken.Create(payer.Address(), payer.Address(), mint)
	require.NoError(t, err)
	ix.Accounts[1].Address = ledgertest.Keypair(t, "elsewhere").Address()

	_, err = env.Send(payer, []ledger.Instruction{ix})
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindConstraintViolation))
	assert.Equal(t, "associated_token.address", ledger.CheckOf(err))
}

func TestCreateRequiresMint(t *testing.T) {
	env := ledgertest.New(t)
	payer := env.Funded("payer")
	ix, err := associatedtoken.Create(payer.Address(), payer.Address(), ledgertest.Keypair(t, "nomint").Address())
	require.NoError(t, err)

	_, err = env.Send(payer, []ledger.Instruction{ix})
	require.Error(t, err)
	assert.Equal(t, "associated_token.mint_owner", ledger.CheckOf(err))
}
