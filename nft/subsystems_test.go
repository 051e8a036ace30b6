package nft_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/nft"
	"xdao.co/nftmint/token"
)

// recorder is an in-memory stand-in for every subsystem. It records the
// typed requests and changes no ledger state.
type recorder struct {
	calls    []string
	create   []nft.CreateAccountRequest
	initMint nft.InitializeMintRequest
	mintTo   nft.MintToRequest
	holding  nft.HoldingRequest
	md       nft.CreateMetadataRequest
	edition  nft.CreateMasterEditionRequest
}

func (r *recorder) CreateAccount(_ *ledger.InvokeContext, req nft.CreateAccountRequest) error {
	r.calls = append(r.calls, "create_account")
	r.create = append(r.create, req)
	return nil
}

func (r *recorder) InitializeMint(_ *ledger.InvokeContext, req nft.InitializeMintRequest) error {
	r.calls = append(r.calls, "initialize_mint")
	r.initMint = req
	return nil
}

func (r *recorder) MintTo(_ *ledger.InvokeContext, req nft.MintToRequest) error {
	r.calls = append(r.calls, "mint_to")
	r.mintTo = req
	return nil
}

func (r *recorder) EnsureHolding(_ *ledger.InvokeContext, req nft.HoldingRequest) (nft.HoldingResult, error) {
	r.calls = append(r.calls, "ensure_holding")
	r.holding = req
	return nft.HoldingResult{Created: true}, nil
}

func (r *recorder) CreateMetadata(_ *ledger.InvokeContext, req nft.CreateMetadataRequest) error {
	r.calls = append(r.calls, "create_metadata")
	r.md = req
	return nil
}

func (r *recorder) CreateMasterEdition(_ *ledger.InvokeContext, req nft.CreateMasterEditionRequest) error {
	r.calls = append(r.calls, "create_master_edition")
	r.edition = req
	return nil
}

func TestFlowAgainstFakeSubsystems(t *testing.T) {
	rec := &recorder{}
	h := newHarness(t, nft.WithSubsystems(nft.Subsystems{Allocator: rec, Token: rec, Holdings: rec, Registry: rec}))

	_, err := h.send(h.instruction(scenarioA))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create_account",
		"initialize_mint",
		"ensure_holding",
		"mint_to",
		"create_metadata",
		"create_master_edition",
	}, rec.calls)

	signer := h.payer.Address()
	require.Len(t, rec.create, 1)
	assert.Equal(t, nft.CreateAccountRequest{
		Payer:    signer,
		Account:  h.accts.Mint,
		Lamports: h.env.Bank.Rent().MinimumBalance(token.MintSize),
		Space:    token.MintSize,
		Owner:    address.TokenProgram,
	}, rec.create[0])

	assert.Equal(t, uint8(0), rec.initMint.Decimals)
	assert.Equal(t, signer, rec.initMint.MintAuthority)
	require.NotNil(t, rec.initMint.FreezeAuthority)
	assert.Equal(t, signer, *rec.initMint.FreezeAuthority)

	assert.Equal(t, nft.HoldingRequest{Payer: signer, Wallet: signer, Mint: h.accts.Mint, Holding: h.accts.Holding}, rec.holding)
	assert.Equal(t, nft.MintToRequest{Mint: h.accts.Mint, Destination: h.accts.Holding, Authority: signer, Amount: 1}, rec.mintTo)

	assert.Equal(t, h.accts.Metadata, rec.md.Metadata)
	assert.Equal(t, scenarioA.Name, rec.md.Data.Name)
	assert.Equal(t, scenarioA.Symbol, rec.md.Data.Symbol)
	assert.Equal(t, scenarioA.URI, rec.md.Data.URI)
	assert.Zero(t, rec.md.Data.SellerFeeBasisPoints)
	assert.Nil(t, rec.md.Data.Creators)
	assert.Nil(t, rec.md.Data.Collection)
	assert.Nil(t, rec.md.Data.Uses)
	assert.True(t, rec.md.IsMutable)
	assert.Equal(t, signer, rec.md.UpdateAuthority)

	assert.Equal(t, h.accts.Edition, rec.edition.Edition)
	assert.Nil(t, rec.edition.MaxSupply)

	// The fakes wrote nothing, so only the fee moved.
	h.assertNothingCreated()
}

func TestValidationRunsBeforeAnySubsystemCall(t *testing.T) {
	rec := &recorder{}
	h := newHarness(t, nft.WithSubsystems(nft.Subsystems{Allocator: rec, Token: rec, Holdings: rec, Registry: rec}))
	h.accts.Edition = h.accts.Metadata

	_, err := h.send(h.instruction(scenarioA))
	require.Error(t, err)
	assert.Empty(t, rec.calls)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "EditionFinalized", nft.StateEditionFinalized.String())
	assert.True(t, nft.StateAborted.Terminal())
	assert.False(t, nft.StateSupplyIssued.Terminal())
}
