// Package associatedtoken provisions the canonical holding account of a
// (wallet, mint) pair at an address derived from both.
package associatedtoken

import (
	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/system"
	"xdao.co/nftmint/token"
)

// Instruction tags. An empty instruction is a Create.
const (
	TagCreate           uint8 = 0
	TagCreateIdempotent uint8 = 1
)

// FindAddress derives the holding account for wallet and mint:
// seeds [wallet, token program, mint] under the associated-token program.
func FindAddress(wallet, mint address.Address) (address.Address, uint8, error) {
	return address.FindProgramAddress(seeds(wallet, mint), address.AssociatedTokenProgram)
}

func seeds(wallet, mint address.Address) [][]byte {
	return [][]byte{wallet[:], address.TokenProgram[:], mint[:]}
}

// Create builds an instruction that provisions the holding account of
// (wallet, mint), paid by payer. It fails when the account already exists.
func Create(payer, wallet, mint address.Address) (ledger.Instruction, error) {
	return build(TagCreate, payer, wallet, mint)
}

// CreateIdempotent is Create, but succeeds without change when a matching
// holding account already exists.
func CreateIdempotent(payer, wallet, mint address.Address) (ledger.Instruction, error) {
	return build(TagCreateIdempotent, payer, wallet, mint)
}

func build(tag uint8, payer, wallet, mint address.Address) (ledger.Instruction, error) {
	holding, _, err := FindAddress(wallet, mint)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{
		ProgramID: address.AssociatedTokenProgram,
		Accounts: []ledger.AccountMeta{
			ledger.Writable(payer, true),
			ledger.Writable(holding, false),
			ledger.ReadOnly(wallet, false),
			ledger.ReadOnly(mint, false),
			ledger.ReadOnly(address.SystemProgram, false),
			ledger.ReadOnly(address.TokenProgram, false),
		},
		Data: []byte{tag},
	}, nil
}

// Program is the associated-token program.
type Program struct{}

var _ ledger.Program = Program{}

func New() Program { return Program{} }

func (Program) ID() address.Address { return address.AssociatedTokenProgram }

func (Program) Process(ic *ledger.InvokeContext, data []byte) error {
	idempotent := false
	switch {
	case len(data) == 0 || (len(data) == 1 && data[0] == TagCreate):
	case len(data) == 1 && data[0] == TagCreateIdempotent:
		idempotent = true
	default:
		return ledger.NewError(ledger.KindMalformed, "associated_token.instruction.unknown", "unknown associated-token instruction")
	}

	accts := ic.Accounts()
	if len(accts) < 6 {
		return ledger.Errorf(ledger.KindMalformed, "associated_token.accounts", "expected 6 accounts, got %d", len(accts))
	}
	payer, holding, wallet, mint := accts[0], accts[1], accts[2], accts[3]
	if accts[4].Address != address.SystemProgram || accts[5].Address != address.TokenProgram {
		return ledger.NewError(ledger.KindConstraintViolation, "associated_token.programs", "unexpected system or token program account")
	}

	want, bump, err := FindAddress(wallet.Address, mint.Address)
	if err != nil {
		return ledger.WrapError(ledger.KindInternal, "associated_token.derive", "derive holding address", err)
	}
	if holding.Address != want {
		return ledger.Errorf(ledger.KindConstraintViolation, "associated_token.address", "holding account %s does not match derived address %s", holding.Address, want)
	}

	if holding.Account.Owner == address.TokenProgram {
		if !idempotent {
			return ledger.Errorf(ledger.KindAlreadyInitialized, "associated_token.in_use", "holding account %s already exists", holding.Address)
		}
		existing, err := token.LoadAccount(holding.Account)
		if err != nil {
			return err
		}
		if existing.Mint != mint.Address || existing.Owner != wallet.Address {
			return ledger.Errorf(ledger.KindConstraintViolation, "associated_token.existing_mismatch", "holding account %s is not linked to this wallet and mint", holding.Address)
		}
		return nil
	}
	if mint.Account.Owner != address.TokenProgram {
		return ledger.Errorf(ledger.KindInvalidAccountData, "associated_token.mint_owner", "mint %s is not owned by the token program", mint.Address)
	}

	signer := append(seeds(wallet.Address, mint.Address), []byte{bump})
	required := ic.Rent().MinimumBalance(token.AccountSize)
	if err := fund(ic, payer.Address, holding, required, signer); err != nil {
		return err
	}
	ic.Log("Initialize the associated token account")
	return ic.Invoke(token.InitializeAccount3(holding.Address, mint.Address, wallet.Address))
}

// fund allocates the holding account and hands it to the token program. A
// pre-funded address is topped up instead of created.
func fund(ic *ledger.InvokeContext, payer address.Address, holding *ledger.AccountInfo, required uint64, signer [][]byte) error {
	if holding.Account.Lamports == 0 {
		return ic.Invoke(system.CreateAccount(payer, holding.Address, required, token.AccountSize, address.TokenProgram), signer)
	}
	if holding.Account.Lamports < required {
		if err := ic.Invoke(system.Transfer(payer, holding.Address, required-holding.Account.Lamports)); err != nil {
			return err
		}
	}
	if err := ic.Invoke(system.Allocate(holding.Address, token.AccountSize), signer); err != nil {
		return err
	}
	return ic.Invoke(system.Assign(holding.Address, address.TokenProgram), signer)
}
