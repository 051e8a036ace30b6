package nft

import (
	"xdao.co/nftmint/address"
	"xdao.co/nftmint/associatedtoken"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/metadata"
	"xdao.co/nftmint/system"
	"xdao.co/nftmint/token"
)

// CreateAccountRequest asks the allocator for a new account.
type CreateAccountRequest struct {
	Payer    address.Address
	Account  address.Address
	Lamports uint64
	Space    uint64
	Owner    address.Address
}

// Allocator creates and funds accounts.
type Allocator interface {
	CreateAccount(ic *ledger.InvokeContext, req CreateAccountRequest) error
}

type InitializeMintRequest struct {
	Mint            address.Address
	Decimals        uint8
	MintAuthority   address.Address
	FreezeAuthority *address.Address
}

type MintToRequest struct {
	Mint        address.Address
	Destination address.Address
	Authority   address.Address
	Amount      uint64
}

// TokenLedger owns mint state and supply arithmetic.
type TokenLedger interface {
	InitializeMint(ic *ledger.InvokeContext, req InitializeMintRequest) error
	MintTo(ic *ledger.InvokeContext, req MintToRequest) error
}

type HoldingRequest struct {
	Payer   address.Address
	Wallet  address.Address
	Mint    address.Address
	Holding address.Address
}

// HoldingResult reports whether EnsureHolding created the account.
type HoldingResult struct {
	Created bool
}

// HoldingProvisioner creates holding accounts on demand.
type HoldingProvisioner interface {
	EnsureHolding(ic *ledger.InvokeContext, req HoldingRequest) (HoldingResult, error)
}

type CreateMetadataRequest struct {
	Metadata        address.Address
	Mint            address.Address
	MintAuthority   address.Address
	Payer           address.Address
	UpdateAuthority address.Address
	Data            metadata.DataV2
	IsMutable       bool
}

type CreateMasterEditionRequest struct {
	Edition         address.Address
	Metadata        address.Address
	Mint            address.Address
	UpdateAuthority address.Address
	MintAuthority   address.Address
	Payer           address.Address
	// MaxSupply caps print editions; nil leaves printing unrestricted.
	MaxSupply *uint64
}

// Registry stores metadata and edition records.
type Registry interface {
	CreateMetadata(ic *ledger.InvokeContext, req CreateMetadataRequest) error
	CreateMasterEdition(ic *ledger.InvokeContext, req CreateMasterEditionRequest) error
}

// Subsystems are the external programs init_nft calls into. Each call
// forwards the subsystem's error unchanged.
type Subsystems struct {
	Allocator Allocator
	Token     TokenLedger
	Holdings  HoldingProvisioner
	Registry  Registry
}

// CPISubsystems returns subsystems that call the on-ledger programs through
// cross-program invocation.
func CPISubsystems() Subsystems {
	return Subsystems{
		Allocator: cpiAllocator{},
		Token:     cpiToken{},
		Holdings:  cpiHoldings{},
		Registry:  cpiRegistry{},
	}
}

type cpiAllocator struct{}

func (cpiAllocator) CreateAccount(ic *ledger.InvokeContext, req CreateAccountRequest) error {
	return ic.Invoke(system.CreateAccount(req.Payer, req.Account, req.Lamports, req.Space, req.Owner))
}

type cpiToken struct{}

func (cpiToken) InitializeMint(ic *ledger.InvokeContext, req InitializeMintRequest) error {
	return ic.Invoke(token.InitializeMint2(req.Mint, req.Decimals, req.MintAuthority, req.FreezeAuthority))
}

func (cpiToken) MintTo(ic *ledger.InvokeContext, req MintToRequest) error {
	return ic.Invoke(token.MintTo(req.Mint, req.Destination, req.Authority, req.Amount))
}

type cpiHoldings struct{}

func (cpiHoldings) EnsureHolding(ic *ledger.InvokeContext, req HoldingRequest) (HoldingResult, error) {
	for _, info := range ic.Accounts() {
		if info.Address == req.Holding && info.Account.Owner == address.TokenProgram {
			return HoldingResult{}, nil
		}
	}
	ix, err := associatedtoken.Create(req.Payer, req.Wallet, req.Mint)
	if err != nil {
		return HoldingResult{}, err
	}
	if err := ic.Invoke(ix); err != nil {
		return HoldingResult{}, err
	}
	return HoldingResult{Created: true}, nil
}

type cpiRegistry struct{}

func (cpiRegistry) CreateMetadata(ic *ledger.InvokeContext, req CreateMetadataRequest) error {
	ix, err := metadata.CreateMetadataAccountV3(metadata.CreateMetadataAccounts{
		Metadata:        req.Metadata,
		Mint:            req.Mint,
		MintAuthority:   req.MintAuthority,
		Payer:           req.Payer,
		UpdateAuthority: req.UpdateAuthority,
	}, metadata.CreateMetadataArgs{Data: req.Data, IsMutable: req.IsMutable})
	if err != nil {
		return err
	}
	return ic.Invoke(ix)
}

func (cpiRegistry) CreateMasterEdition(ic *ledger.InvokeContext, req CreateMasterEditionRequest) error {
	ix, err := metadata.CreateMasterEditionV3(metadata.CreateMasterEditionAccounts{
		Edition:         req.Edition,
		Mint:            req.Mint,
		UpdateAuthority: req.UpdateAuthority,
		MintAuthority:   req.MintAuthority,
		Payer:           req.Payer,
		Metadata:        req.Metadata,
	}, metadata.CreateMasterEditionArgs{MaxSupply: req.MaxSupply})
	if err != nil {
		return err
	}
	return ic.Invoke(ix)
}
