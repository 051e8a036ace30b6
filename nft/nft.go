// Package nft issues a non-fungible asset in one atomic instruction.
//
// init_nft validates its ten accounts against an ordered role list, then
// creates the mint, provisions the signer's holding account, mints exactly
// one unit, registers metadata and finalizes the master edition. Every step
// is a call into an external subsystem; a failure anywhere aborts the
// transaction and the ledger discards every write made by earlier steps.
//
// The mint authority stays with the signer after issuance. Callers wanting a
// provably fixed supply send RevokeMintAuthority afterwards.
package nft

import (
	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/metadata"
	"xdao.co/nftmint/token"
)

// DefaultProgramID is the address init_nft is deployed at unless configured
// otherwise.
var DefaultProgramID = address.MustParse("BZC28tbriJNMVB1WpAsiAywUUQUCm7q6JfbzeTfXXgtz")

// Step names recorded on errors.
const (
	StepValidate            = "validate"
	StepCreateMint          = "create_mint"
	StepCreateHolding       = "create_holding"
	StepMintSupply          = "mint_supply"
	StepCreateMetadata      = "create_metadata"
	StepCreateMasterEdition = "create_master_edition"
)

// Program is the init_nft program.
type Program struct {
	id         address.Address
	subsystems Subsystems
	observe    func(from, to State)
}

var _ ledger.Program = (*Program)(nil)

type Option func(*Program)

// WithSubsystems replaces the subsystems init_nft calls into.
func WithSubsystems(s Subsystems) Option { return func(p *Program) { p.subsystems = s } }

// WithObserver registers fn to be called on every state transition.
func WithObserver(fn func(from, to State)) Option { return func(p *Program) { p.observe = fn } }

// New returns the program deployed at id.
func New(id address.Address, opts ...Option) *Program {
	p := &Program{id: id, subsystems: CPISubsystems()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Program) ID() address.Address { return p.id }

func (p *Program) Process(ic *ledger.InvokeContext, data []byte) error {
	if ic.ProgramID() != p.id {
		return ledger.Errorf(ledger.KindMalformed, "nft.program_id", "dispatched to %s, deployed at %s", ic.ProgramID(), p.id)
	}
	args, err := DecodeInitNFTArgs(data)
	if err != nil {
		return err
	}
	ic.Log("Instruction: InitNft")
	_, err = p.initNFT(ic, args)
	return err
}

type step struct {
	name string
	// to is the state reached when the step succeeds; steps that do not
	// advance the flow leave it unchanged.
	to  State
	run func() error
}

func (p *Program) initNFT(ic *ledger.InvokeContext, args InitNFTArgs) (State, error) {
	f := &flow{state: StateUninitialized, observe: p.observe, log: ic.Log}

	accts, err := validate(ic.Accounts())
	if err == nil {
		err = metadata.CheckLengths(args.Name, args.Symbol, args.URI)
	}
	if err != nil {
		return f.abort(ledger.WithStep(err, StepValidate))
	}

	signer := accts.Signer.Address
	mint := accts.Mint.Address
	freeze := signer
	sub := p.subsystems

	steps := []step{
		{name: StepCreateMint, to: StateMintCreated, run: func() error {
			err := sub.Allocator.CreateAccount(ic, CreateAccountRequest{
				Payer:    signer,
				Account:  mint,
				Lamports: ic.Rent().MinimumBalance(token.MintSize),
				Space:    token.MintSize,
				Owner:    address.TokenProgram,
			})
			if err != nil {
				return err
			}
			return sub.Token.InitializeMint(ic, InitializeMintRequest{
				Mint:            mint,
				Decimals:        0,
				MintAuthority:   signer,
				FreezeAuthority: &freeze,
			})
		}},
		{name: StepCreateHolding, to: StateMintCreated, run: func() error {
			_, err := sub.Holdings.EnsureHolding(ic, HoldingRequest{
				Payer:   signer,
				Wallet:  signer,
				Mint:    mint,
				Holding: accts.Holding.Address,
			})
			return err
		}},
		{name: StepMintSupply, to: StateSupplyIssued, run: func() error {
			return sub.Token.MintTo(ic, MintToRequest{
				Mint:        mint,
				Destination: accts.Holding.Address,
				Authority:   signer,
				Amount:      1,
			})
		}},
		{name: StepCreateMetadata, to: StateMetadataAttached, run: func() error {
			return sub.Registry.CreateMetadata(ic, CreateMetadataRequest{
				Metadata:        accts.Metadata.Address,
				Mint:            mint,
				MintAuthority:   signer,
				Payer:           signer,
				UpdateAuthority: signer,
				Data: metadata.DataV2{
					Name:                 args.Name,
					Symbol:               args.Symbol,
					URI:                  args.URI,
					SellerFeeBasisPoints: 0,
				},
				IsMutable: true,
			})
		}},
		{name: StepCreateMasterEdition, to: StateEditionFinalized, run: func() error {
			return sub.Registry.CreateMasterEdition(ic, CreateMasterEditionRequest{
				Edition:         accts.Edition.Address,
				Metadata:        accts.Metadata.Address,
				Mint:            mint,
				UpdateAuthority: signer,
				MintAuthority:   signer,
				Payer:           signer,
			})
		}},
	}

	for _, s := range steps {
		if err := s.run(); err != nil {
			return f.abort(ledger.WithStep(err, s.name))
		}
		f.advance(s.to)
	}
	return f.state, nil
}
