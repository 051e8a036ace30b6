package nft_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/keys"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/ledger/ledgertest"
	"xdao.co/nftmint/metadata"
	"xdao.co/nftmint/nft"
	"xdao.co/nftmint/token"
)

var scenarioA = nft.InitNFTArgs{Name: "Test NFT", Symbol: "TNFT", URI: "https://example.com/1.json"}

type harness struct {
	t           *testing.T
	env         *ledgertest.Env
	payer       *keys.Keypair
	mint        *keys.Keypair
	accts       nft.InitNFTAccounts
	transitions []nft.State
}

func newHarness(t *testing.T, opts ...nft.Option) *harness {
	h := &harness{t: t, env: ledgertest.New(t)}
	observe := nft.WithObserver(func(_, to nft.State) { h.transitions = append(h.transitions, to) })
	h.env.Bank.Register(nft.New(nft.DefaultProgramID, append([]nft.Option{observe}, opts...)...))
	h.payer = h.env.Funded("identity")
	h.mint = ledgertest.Keypair(t, "mint")
	accts, err := nft.DeriveAccounts(h.payer.Address(), h.mint.Address())
	require.NoError(t, err)
	h.accts = accts
	return h
}

func (h *harness) instruction(args nft.InitNFTArgs) ledger.Instruction {
	ix, err := nft.NewInitNFTInstruction(nft.DefaultProgramID, h.accts, args)
	require.NoError(h.t, err)
	return ix
}

func (h *harness) send(ix ledger.Instruction) (*ledger.Receipt, error) {
	h.transitions = nil
	return h.env.Send(h.payer, []ledger.Instruction{ix}, h.mint)
}

func (h *harness) mintState() token.Mint {
	acct := h.env.Account(h.accts.Mint)
	m, err := token.LoadMint(&acct)
	require.NoError(h.t, err)
	return m
}

func (h *harness) holdingState() token.Account {
	acct := h.env.Account(h.accts.Holding)
	a, err := token.LoadAccount(&acct)
	require.NoError(h.t, err)
	return a
}

func (h *harness) metadataState() *metadata.Metadata {
	md, err := metadata.DecodeMetadata(h.env.Account(h.accts.Metadata).Data)
	require.NoError(h.t, err)
	return md
}

// assertNothingCreated checks that no per-call account gained state.
func (h *harness) assertNothingCreated() {
	for _, a := range []address.Address{h.accts.Mint, h.accts.Holding, h.accts.Metadata, h.accts.Edition} {
		assert.False(h.t, h.env.Account(a).HasState(), "account %s has state", a)
	}
}

func TestScenarioA(t *testing.T) {
	h := newHarness(t)
	r, err := h.send(h.instruction(scenarioA))
	require.NoError(t, err, "logs: %v", r)

	m := h.mintState()
	assert.Equal(t, uint8(0), m.Decimals)
	assert.Equal(t, uint64(1), m.Supply)
	require.NotNil(t, m.MintAuthority)
	assert.Equal(t, h.payer.Address(), *m.MintAuthority, "mint authority is not revoked by the flow")
	require.NotNil(t, m.FreezeAuthority)
	assert.Equal(t, h.payer.Address(), *m.FreezeAuthority)

	holding := h.holdingState()
	assert.Equal(t, uint64(1), holding.Amount)
	assert.Equal(t, h.payer.Address(), holding.Owner)
	assert.Equal(t, h.accts.Mint, holding.Mint)

	md := h.metadataState()
	assert.Equal(t, scenarioA.Name, md.Data.Name())
	assert.Equal(t, scenarioA.Symbol, md.Data.Symbol())
	assert.Equal(t, scenarioA.URI, md.Data.URI())
	assert.Zero(t, md.Data.SellerFeeBasisPoints)
	assert.Nil(t, md.Data.Creators)
	assert.Nil(t, md.Collection)
	assert.Nil(t, md.Uses)
	assert.True(t, md.IsMutable)
	assert.Equal(t, h.payer.Address(), md.UpdateAuthority)
	assert.Equal(t, h.accts.Mint, md.Mint)
	require.NotNil(t, md.TokenStandard)
	assert.Equal(t, metadata.TokenStandardNonFungible, *md.TokenStandard)

	ed, err := metadata.DecodeMasterEdition(h.env.Account(h.accts.Edition).Data)
	require.NoError(t, err)
	assert.Nil(t, ed.MaxSupply, "print editions are left unrestricted")

	assert.Equal(t, []nft.State{
		nft.StateMintCreated,
		nft.StateSupplyIssued,
		nft.StateMetadataAttached,
		nft.StateEditionFinalized,
	}, h.transitions)

	var created uint64
	for _, a := range []address.Address{h.accts.Mint, h.accts.Holding, h.accts.Metadata, h.accts.Edition} {
		created += h.env.Account(a).Lamports
	}
	assert.Equal(t, ledgertest.DefaultFunding-r.Fee-created, h.env.Account(h.payer.Address()).Lamports)
}

func TestDerivedAddresses(t *testing.T) {
	h := newHarness(t)
	_, err := h.send(h.instruction(scenarioA))
	require.NoError(t, err)

	md, _, err := metadata.FindMetadataAddress(h.accts.Mint)
	require.NoError(t, err)
	ed, _, err := metadata.FindEditionAddress(h.accts.Mint)
	require.NoError(t, err)
	assert.Equal(t, md, h.accts.Metadata)
	assert.Equal(t, ed, h.accts.Edition)
	assert.Equal(t, address.MetadataProgram, h.env.Account(md).Owner)
	assert.Equal(t, address.MetadataProgram, h.env.Account(ed).Owner)
	assert.Equal(t, address.TokenProgram, h.env.Account(h.accts.Mint).Owner)
}

func TestScenarioBSecondCallFailsAtMintInitialization(t *testing.T) {
	h := newHarness(t)
	_, err := h.send(h.instruction(scenarioA))
	require.NoError(t, err)
	before := h.env.Snapshot()

	_, err = h.send(h.instruction(scenarioA))
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindAlreadyInitialized))
	assert.Equal(t, "nft.mint.uninitialized", ledger.CheckOf(err))
	assert.Equal(t, nft.StepValidate, ledger.StepOf(err))
	assert.Equal(t, []nft.State{nft.StateAborted}, h.transitions)

	assert.Equal(t, before, h.env.Snapshot())
	assert.Equal(t, uint64(1), h.mintState().Supply)
}

func TestScenarioCPayloadTooLarge(t *testing.T) {
	h := newHarness(t)
	before := h.env.Snapshot()
	args := scenarioA
	args.URI = "https://example.com/" + strings.Repeat("a", metadata.MaxURILength)

	_, err := h.send(h.instruction(args))
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindPayloadTooLarge))
	assert.Equal(t, "metadata.uri_too_long", ledger.CheckOf(err))
	assert.Equal(t, nft.StepValidate, ledger.StepOf(err))
	assert.Equal(t, before, h.env.Snapshot())
	h.assertNothingCreated()
}

func TestScenarioDSubstitutedMetadataAddress(t *testing.T) {
	h := newHarness(t)
	before := h.env.Snapshot()
	h.accts.Metadata = ledgertest.Keypair(t, "impostor").Address()

	_, err := h.send(h.instruction(scenarioA))
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindConstraintViolation))
	assert.Equal(t, "nft.metadata.address", ledger.CheckOf(err))
	assert.Equal(t, before, h.env.Snapshot())
	h.assertNothingCreated()
}

func TestRejectsSubstitutedAccounts(t *testing.T) {
	impostor := ledgertest.Keypair(t, "impostor").Address()
	for _, tc := range []struct {
		name   string
		mutate func(ix *ledger.Instruction)
		kind   ledger.Kind
		check  string
	}{
		{"edition", func(ix *ledger.Instruction) { ix.Accounts[4].Address = impostor }, ledger.KindConstraintViolation, "nft.edition.address"},
		{"holding", func(ix *ledger.Instruction) { ix.Accounts[2].Address = impostor }, ledger.KindConstraintViolation, "nft.holding.address"},
		{"token program", func(ix *ledger.Instruction) { ix.Accounts[5].Address = impostor }, ledger.KindConstraintViolation, "nft.token_program.address"},
		{"rent sysvar", func(ix *ledger.Instruction) { ix.Accounts[9].Address = impostor }, ledger.KindConstraintViolation, "nft.rent.address"},
		{"read-only metadata", func(ix *ledger.Instruction) { ix.Accounts[3].IsWritable = false }, ledger.KindConstraintViolation, "nft.metadata.writable"},
		{"unsigned mint", func(ix *ledger.Instruction) { ix.Accounts[1].IsSigner = false }, ledger.KindConstraintViolation, "nft.mint.signer"},
		{"swapped records", func(ix *ledger.Instruction) {
			ix.Accounts[3], ix.Accounts[4] = ix.Accounts[4], ix.Accounts[3]
		}, ledger.KindMalformed, "nft.accounts.order"},
		{"missing account", func(ix *ledger.Instruction) { ix.Accounts = ix.Accounts[:9] }, ledger.KindMalformed, "nft.accounts.count"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			before := h.env.Snapshot()
			ix := h.instruction(scenarioA)
			tc.mutate(&ix)

			var err error
			if tc.name == "unsigned mint" {
				_, err = h.env.Send(h.payer, []ledger.Instruction{ix})
			} else {
				_, err = h.send(ix)
			}
			require.Error(t, err)
			assert.Equal(t, tc.kind, ledger.KindOf(err))
			assert.Equal(t, tc.check, ledger.CheckOf(err))
			assert.Equal(t, before, h.env.Snapshot())
		})
	}
}

func TestPreFundedHoldingIsProvisioned(t *testing.T) {
	h := newHarness(t)
	h.env.Fund(h.accts.Holding, 5000)

	_, err := h.send(h.instruction(scenarioA))
	require.NoError(t, err)
	holding := h.holdingState()
	assert.Equal(t, h.accts.Mint, holding.Mint)
	assert.Equal(t, h.payer.Address(), holding.Owner)
	assert.Equal(t, uint64(1), holding.Amount)
	acct := h.env.Account(h.accts.Holding)
	assert.Equal(t, h.env.Bank.Rent().MinimumBalance(token.AccountSize), acct.Lamports)
}

// plant writes acct at addr directly into the bank's store.
func (h *harness) plant(addr address.Address, acct ledger.Account) {
	require.NoError(h.t, h.env.Bank.Store().Commit(h.env.Ctx, []ledger.AccountUpdate{{Address: addr, Account: acct}}))
}

func TestHoldingLinkedElsewhereIsRejected(t *testing.T) {
	h := newHarness(t)
	other := ledgertest.Keypair(t, "other-mint").Address()
	h.plant(h.accts.Holding, ledger.Account{
		Lamports: h.env.Bank.Rent().MinimumBalance(token.AccountSize),
		Owner:    address.TokenProgram,
		Data:     token.Account{Mint: other, Owner: h.payer.Address(), State: token.AccountInitialized}.Encode(),
	})
	before := h.env.Snapshot()

	_, err := h.send(h.instruction(scenarioA))
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindConstraintViolation))
	assert.Equal(t, "nft.holding.linked", ledger.CheckOf(err))
	assert.Equal(t, nft.StepValidate, ledger.StepOf(err))
	assert.Equal(t, before, h.env.Snapshot())
}

func TestHoldingOwnedByAnotherProgramIsRejected(t *testing.T) {
	h := newHarness(t)
	h.plant(h.accts.Holding, ledger.Account{
		Lamports: h.env.Bank.Rent().MinimumBalance(4),
		Owner:    address.MetadataProgram,
		Data:     []byte{1, 2, 3, 4},
	})

	_, err := h.send(h.instruction(scenarioA))
	require.Error(t, err)
	assert.Equal(t, "nft.holding.owner", ledger.CheckOf(err))
	assert.Equal(t, nft.StepValidate, ledger.StepOf(err))
}

func TestTrailingNULNameIsRejected(t *testing.T) {
	h := newHarness(t)
	args := scenarioA
	args.Name += "\x00"
	before := h.env.Snapshot()

	_, err := h.send(h.instruction(args))
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindMalformed))
	assert.Equal(t, "metadata.text.nul", ledger.CheckOf(err))
	assert.Equal(t, nft.StepValidate, ledger.StepOf(err))
	assert.Equal(t, before, h.env.Snapshot())
}

func TestLamportsOnlyMintIsRejected(t *testing.T) {
	h := newHarness(t)
	h.env.Fund(h.accts.Mint, 1)
	before := h.env.Snapshot()

	_, err := h.send(h.instruction(scenarioA))
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindAlreadyInitialized))
	assert.Equal(t, "nft.mint.uninitialized", ledger.CheckOf(err))
	assert.Equal(t, nft.StepValidate, ledger.StepOf(err))
	assert.Equal(t, before, h.env.Snapshot())
}

func TestInsufficientFundsAtMintCreation(t *testing.T) {
	h := newHarness(t)
	poor := ledgertest.Keypair(t, "poor")
	h.env.Fund(poor.Address(), 20_000)
	accts, err := nft.DeriveAccounts(poor.Address(), h.mint.Address())
	require.NoError(t, err)
	ix, err := nft.NewInitNFTInstruction(nft.DefaultProgramID, accts, scenarioA)
	require.NoError(t, err)
	before := h.env.Snapshot()

	_, err = h.env.Send(poor, []ledger.Instruction{ix}, h.mint)
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindInsufficientFunds))
	assert.Equal(t, "system.create_account.funds", ledger.CheckOf(err))
	assert.Equal(t, nft.StepCreateMint, ledger.StepOf(err))

	assert.Equal(t, before, h.env.Snapshot(), "no fee and no state on failure")
	assert.Equal(t, uint64(20_000), h.env.Account(poor.Address()).Lamports)
	for _, a := range []address.Address{accts.Mint, accts.Holding, accts.Metadata, accts.Edition} {
		assert.False(t, h.env.Account(a).HasState(), "account %s has state", a)
	}
}

// failingRegistry delegates to the on-ledger registry but fails the chosen
// step.
type failingRegistry struct {
	nft.Registry
	failMetadata bool
	failEdition  bool
}

var errInduced = ledger.NewError(ledger.KindInternal, "test.induced", "induced failure")

func (r failingRegistry) CreateMetadata(ic *ledger.InvokeContext, req nft.CreateMetadataRequest) error {
	if r.failMetadata {
		return errInduced
	}
	return r.Registry.CreateMetadata(ic, req)
}

func (r failingRegistry) CreateMasterEdition(ic *ledger.InvokeContext, req nft.CreateMasterEditionRequest) error {
	if r.failEdition {
		return errInduced
	}
	return r.Registry.CreateMasterEdition(ic, req)
}

func TestAtomicityOnInducedFailure(t *testing.T) {
	for _, tc := range []struct {
		name     string
		registry failingRegistry
		step     string
		reached  []nft.State
	}{
		{"metadata", failingRegistry{failMetadata: true}, nft.StepCreateMetadata,
			[]nft.State{nft.StateMintCreated, nft.StateSupplyIssued, nft.StateAborted}},
		{"edition", failingRegistry{failEdition: true}, nft.StepCreateMasterEdition,
			[]nft.State{nft.StateMintCreated, nft.StateSupplyIssued, nft.StateMetadataAttached, nft.StateAborted}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			subs := nft.CPISubsystems()
			tc.registry.Registry = subs.Registry
			subs.Registry = tc.registry
			h := newHarness(t, nft.WithSubsystems(subs))
			before := h.env.Snapshot()

			r, err := h.send(h.instruction(scenarioA))
			require.Error(t, err)
			assert.Equal(t, "test.induced", ledger.CheckOf(err))
			assert.Equal(t, tc.step, ledger.StepOf(err))
			assert.Equal(t, tc.reached, h.transitions)
			assert.NotEmpty(t, r.Logs)

			assert.Equal(t, before, h.env.Snapshot())
			h.assertNothingCreated()
		})
	}
}

func TestEditionAddressAlreadyFunded(t *testing.T) {
	h := newHarness(t)
	h.env.Fund(h.accts.Edition, 1000)
	before := h.env.Snapshot()

	_, err := h.send(h.instruction(scenarioA))
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindAlreadyInitialized))
	assert.Equal(t, "metadata.edition.already_initialized", ledger.CheckOf(err))
	assert.Equal(t, nft.StepCreateMasterEdition, ledger.StepOf(err))
	assert.Equal(t, before, h.env.Snapshot())
}

func TestRevokeMintAuthorityAfterIssue(t *testing.T) {
	h := newHarness(t)
	_, err := h.send(h.instruction(scenarioA))
	require.NoError(t, err)

	h.env.MustSend(h.payer, []ledger.Instruction{nft.RevokeMintAuthority(h.accts.Mint, h.payer.Address())})
	assert.Nil(t, h.mintState().MintAuthority)

	_, err = h.env.Send(h.payer, []ledger.Instruction{token.MintTo(h.accts.Mint, h.accts.Holding, h.payer.Address(), 1)})
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindAuthorityMismatch))
	assert.Equal(t, uint64(1), h.mintState().Supply)
}

func TestConcurrentCallsForSameMint(t *testing.T) {
	h := newHarness(t)
	other := h.env.Funded("other")

	var txs []*ledger.Transaction
	for _, payer := range []*keys.Keypair{h.payer, other} {
		accts, err := nft.DeriveAccounts(payer.Address(), h.mint.Address())
		require.NoError(t, err)
		ix, err := nft.NewInitNFTInstruction(nft.DefaultProgramID, accts, scenarioA)
		require.NoError(t, err)
		tx, err := ledger.NewTransaction(ledger.Message{
			FeePayer:        payer.Address(),
			RecentBlockhash: h.env.Bank.LatestBlockhash(),
			Instructions:    []ledger.Instruction{ix},
		}, payer, h.mint)
		require.NoError(t, err)
		txs = append(txs, tx)
	}

	errs := make([]error, len(txs))
	var wg sync.WaitGroup
	for i, tx := range txs {
		wg.Add(1)
		go func(i int, tx *ledger.Transaction) {
			defer wg.Done()
			_, errs[i] = h.env.Bank.Execute(h.env.Ctx, tx)
		}(i, tx)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case ledger.IsKind(err, ledger.KindAlreadyInitialized):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, uint64(1), h.mintState().Supply)
}

func TestProgramIDMustMatchDispatchTarget(t *testing.T) {
	env := ledgertest.New(t)
	other := ledgertest.Keypair(t, "elsewhere").Address()
	env.Bank.Register(relabeled{id: other, Program: nft.New(nft.DefaultProgramID)})
	payer := env.Funded("identity")
	mint := ledgertest.Keypair(t, "mint")
	accts, err := nft.DeriveAccounts(payer.Address(), mint.Address())
	require.NoError(t, err)
	ix, err := nft.NewInitNFTInstruction(other, accts, scenarioA)
	require.NoError(t, err)

	_, err = env.Send(payer, []ledger.Instruction{ix}, mint)
	require.Error(t, err)
	assert.Equal(t, "nft.program_id", ledger.CheckOf(err))
}

type relabeled struct {
	id address.Address
	ledger.Program
}

func (r relabeled) ID() address.Address { return r.id }

func TestUnknownInstruction(t *testing.T) {
	h := newHarness(t)
	ix := h.instruction(scenarioA)
	ix.Data[0] ^= 0xff
	_, err := h.send(ix)
	require.Error(t, err)
	assert.Equal(t, "nft.instruction.unknown", ledger.CheckOf(err))
}

func TestInstructionArgsRoundTrip(t *testing.T) {
	data, err := scenarioA.Encode()
	require.NoError(t, err)
	got, err := nft.DecodeInitNFTArgs(data)
	require.NoError(t, err)
	assert.Equal(t, scenarioA, got)
}
