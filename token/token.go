// Package token implements the token-accounting program: mints, holding
// accounts and supply arithmetic.
//
// State uses the fixed packed layouts wallets and indexers expect (82-byte
// mints, 165-byte accounts).
package token

import (
	"encoding/binary"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
)

// Program is the token program.
type Program struct{}

var _ ledger.Program = Program{}

func New() Program { return Program{} }

func (Program) ID() address.Address { return address.TokenProgram }

func (Program) Process(ic *ledger.InvokeContext, data []byte) error {
	if len(data) == 0 {
		return errShort
	}
	body := data[1:]
	switch data[0] {
	case TagInitializeMint2:
		if len(body) < 33 {
			return errShort
		}
		var auth address.Address
		copy(auth[:], body[1:33])
		freeze, rest, err := readOption(body[33:])
		if err != nil {
			return err
		}
		if len(rest) != 0 {
			return trailing()
		}
		return initializeMint(ic, body[0], auth, freeze)
	case TagInitializeAccount3:
		if len(body) != 32 {
			return errShort
		}
		var owner address.Address
		copy(owner[:], body)
		return initializeAccount(ic, owner)
	case TagMintTo:
		if len(body) != 8 {
			return errShort
		}
		return mintTo(ic, binary.LittleEndian.Uint64(body))
	case TagSetAuthority:
		if len(body) < 2 {
			return errShort
		}
		next, rest, err := readOption(body[1:])
		if err != nil {
			return err
		}
		if len(rest) != 0 {
			return trailing()
		}
		return setAuthority(ic, AuthorityType(body[0]), next)
	}
	return ledger.Errorf(ledger.KindMalformed, "token.instruction.unknown", "unknown token instruction %d", data[0])
}

func trailing() error {
	return ledger.NewError(ledger.KindMalformed, "token.instruction.trailing", "unexpected trailing instruction data")
}

func ownedAccount(ic *ledger.InvokeContext, i int) (*ledger.AccountInfo, error) {
	info, err := ic.Account(i)
	if err != nil {
		return nil, err
	}
	if info.Account.Owner != address.TokenProgram {
		return nil, ledger.Errorf(ledger.KindInvalidAccountData, "token.account.owner", "account %s is not owned by the token program", info.Address)
	}
	return info, nil
}

func initializeMint(ic *ledger.InvokeContext, decimals uint8, mintAuthority address.Address, freezeAuthority *address.Address) error {
	info, err := ownedAccount(ic, 0)
	if err != nil {
		return err
	}
	m, err := DecodeMint(info.Account.Data)
	if err != nil {
		return err
	}
	if m.IsInitialized {
		return ledger.Errorf(ledger.KindAlreadyInitialized, "token.initialize_mint.already_initialized", "mint %s already initialized", info.Address)
	}
	if !ic.Rent().IsExempt(info.Account.Lamports, MintSize) {
		return ledger.Errorf(ledger.KindInsufficientFunds, "token.initialize_mint.rent", "mint %s is not rent exempt", info.Address)
	}
	auth := mintAuthority
	m = Mint{MintAuthority: &auth, Decimals: decimals, IsInitialized: true, FreezeAuthority: freezeAuthority}
	info.Account.Data = m.Encode()
	ic.Log("Instruction: InitializeMint2")
	return nil
}

func initializeAccount(ic *ledger.InvokeContext, owner address.Address) error {
	info, err := ownedAccount(ic, 0)
	if err != nil {
		return err
	}
	mintInfo, err := ic.Account(1)
	if err != nil {
		return err
	}
	a, err := DecodeAccount(info.Account.Data)
	if err != nil {
		return err
	}
	if a.State != AccountUninitialized {
		return ledger.Errorf(ledger.KindAlreadyInitialized, "token.initialize_account.already_initialized", "token account %s already initialized", info.Address)
	}
	if _, err := LoadMint(mintInfo.Account); err != nil {
		return err
	}
	if !ic.Rent().IsExempt(info.Account.Lamports, AccountSize) {
		return ledger.Errorf(ledger.KindInsufficientFunds, "token.initialize_account.rent", "token account %s is not rent exempt", info.Address)
	}
	a = Account{Mint: mintInfo.Address, Owner: owner, State: AccountInitialized}
	info.Account.Data = a.Encode()
	ic.Log("Instruction: InitializeAccount3")
	return nil
}

func mintTo(ic *ledger.InvokeContext, amount uint64) error {
	mintInfo, err := ownedAccount(ic, 0)
	if err != nil {
		return err
	}
	destInfo, err := ownedAccount(ic, 1)
	if err != nil {
		return err
	}
	authInfo, err := ic.Account(2)
	if err != nil {
		return err
	}
	m, err := LoadMint(mintInfo.Account)
	if err != nil {
		return err
	}
	dest, err := LoadAccount(destInfo.Account)
	if err != nil {
		return err
	}
	if dest.State == AccountFrozen {
		return ledger.Errorf(ledger.KindConstraintViolation, "token.mint_to.frozen", "token account %s is frozen", destInfo.Address)
	}
	if dest.Mint != mintInfo.Address {
		return ledger.Errorf(ledger.KindConstraintViolation, "token.mint_to.mint_mismatch", "token account %s holds mint %s, not %s", destInfo.Address, dest.Mint, mintInfo.Address)
	}
	if m.MintAuthority == nil {
		return ledger.Errorf(ledger.KindAuthorityMismatch, "token.mint_to.fixed_supply", "mint %s has no mint authority", mintInfo.Address)
	}
	if *m.MintAuthority != authInfo.Address {
		return ledger.Errorf(ledger.KindAuthorityMismatch, "token.mint_to.authority", "%s is not the mint authority of %s", authInfo.Address, mintInfo.Address)
	}
	if !authInfo.IsSigner {
		return ledger.Errorf(ledger.KindConstraintViolation, "token.mint_to.signer", "mint authority %s must sign", authInfo.Address)
	}
	supply, ok := checkedAdd(m.Supply, amount)
	if !ok {
		return ledger.Errorf(ledger.KindOverflow, "token.mint_to.supply_overflow", "supply of %s overflows", mintInfo.Address)
	}
	balance, ok := checkedAdd(dest.Amount, amount)
	if !ok {
		return ledger.Errorf(ledger.KindOverflow, "token.mint_to.balance_overflow", "balance of %s overflows", destInfo.Address)
	}
	m.Supply = supply
	dest.Amount = balance
	mintInfo.Account.Data = m.Encode()
	destInfo.Account.Data = dest.Encode()
	ic.Log("Instruction: MintTo")
	return nil
}

func checkedAdd(a, b uint64) (uint64, bool) {
	s := a + b
	return s, s >= a
}

func setAuthority(ic *ledger.InvokeContext, kind AuthorityType, next *address.Address) error {
	info, err := ownedAccount(ic, 0)
	if err != nil {
		return err
	}
	current, err := ic.Account(1)
	if err != nil {
		return err
	}
	authorize := func(recorded *address.Address) error {
		if recorded == nil {
			return ledger.Errorf(ledger.KindAuthorityMismatch, "token.set_authority.none", "%s authority of %s is not set", kind, info.Address)
		}
		if *recorded != current.Address {
			return ledger.Errorf(ledger.KindAuthorityMismatch, "token.set_authority.authority", "%s is not the %s authority of %s", current.Address, kind, info.Address)
		}
		if !current.IsSigner {
			return ledger.Errorf(ledger.KindConstraintViolation, "token.set_authority.signer", "authority %s must sign", current.Address)
		}
		return nil
	}

	switch len(info.Account.Data) {
	case MintSize:
		m, err := LoadMint(info.Account)
		if err != nil {
			return err
		}
		switch kind {
		case AuthorityMintTokens:
			if err := authorize(m.MintAuthority); err != nil {
				return err
			}
			m.MintAuthority = next
		case AuthorityFreezeAccount:
			if err := authorize(m.FreezeAuthority); err != nil {
				return err
			}
			m.FreezeAuthority = next
		default:
			return ledger.Errorf(ledger.KindMalformed, "token.set_authority.type", "authority type %s does not apply to mints", kind)
		}
		info.Account.Data = m.Encode()
	case AccountSize:
		a, err := LoadAccount(info.Account)
		if err != nil {
			return err
		}
		switch kind {
		case AuthorityAccountOwner:
			if err := authorize(&a.Owner); err != nil {
				return err
			}
			if next == nil {
				return ledger.NewError(ledger.KindMalformed, "token.set_authority.owner_required", "token account owner cannot be removed")
			}
			a.Owner = *next
			a.Delegate = nil
			a.DelegatedAmount = 0
		case AuthorityCloseAccount:
			recorded := a.CloseAuthority
			if recorded == nil {
				recorded = &a.Owner
			}
			if err := authorize(recorded); err != nil {
				return err
			}
			a.CloseAuthority = next
		default:
			return ledger.Errorf(ledger.KindMalformed, "token.set_authority.type", "authority type %s does not apply to token accounts", kind)
		}
		info.Account.Data = a.Encode()
	default:
		return ledger.Errorf(ledger.KindInvalidAccountData, "token.set_authority.target", "account %s is neither a mint nor a token account", info.Address)
	}
	ic.Log("Instruction: SetAuthority")
	return nil
}
