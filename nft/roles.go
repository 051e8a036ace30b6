package nft

import (
	"fmt"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/associatedtoken"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/metadata"
	"xdao.co/nftmint/token"
)

// Account positions of init_nft.
const (
	posSigner = iota
	posMint
	posHolding
	posMetadata
	posEdition
	posTokenProgram
	posAssociatedTokenProgram
	posMetadataProgram
	posSystemProgram
	posRent

	accountCount
)

// role describes what init_nft requires of the account at one position.
type role struct {
	name       string
	signer     bool
	writable   bool
	executable bool
	// expect returns the only address the role accepts.
	expect func(v *validation) (address.Address, error)
	// check runs after the flag and address checks.
	check func(v *validation, info *ledger.AccountInfo) error
}

func fixed(a address.Address) func(*validation) (address.Address, error) {
	return func(*validation) (address.Address, error) { return a, nil }
}

// initNFTRoles is the ordered account contract of init_nft.
var initNFTRoles = [accountCount]role{
	posSigner: {name: "signer", signer: true, writable: true},
	posMint: {name: "mint", signer: true, writable: true, check: func(_ *validation, info *ledger.AccountInfo) error {
		if info.Account.HasState() {
			return ledger.Errorf(ledger.KindAlreadyInitialized, "nft.mint.uninitialized", "mint %s already has state", info.Address)
		}
		return nil
	}},
	posHolding: {name: "holding", writable: true, expect: (*validation).holding, check: checkHolding},
	posMetadata: {name: "metadata", writable: true, expect: (*validation).metadata},
	posEdition: {name: "edition", writable: true, expect: (*validation).edition},
	posTokenProgram: {name: "token_program", executable: true, expect: fixed(address.TokenProgram)},
	posAssociatedTokenProgram: {name: "associated_token_program", executable: true, expect: fixed(address.AssociatedTokenProgram)},
	posMetadataProgram: {name: "metadata_program", executable: true, expect: fixed(address.MetadataProgram)},
	posSystemProgram: {name: "system_program", executable: true, expect: fixed(address.SystemProgram)},
	posRent: {name: "rent", expect: fixed(address.RentSysvar)},
}

// checkHolding accepts a holding account the token program does not own yet,
// which provisioning creates or completes, or one already linked to exactly
// this (signer, mint) pair.
func checkHolding(v *validation, info *ledger.AccountInfo) error {
	if info.Account.Owner != address.TokenProgram {
		if info.Account.Owner != address.SystemProgram || len(info.Account.Data) > 0 {
			return ledger.Errorf(ledger.KindConstraintViolation, "nft.holding.owner", "holding account %s is owned by %s", info.Address, info.Account.Owner)
		}
		return nil
	}
	existing, err := token.LoadAccount(info.Account)
	if err != nil {
		return ledger.WrapError(ledger.KindConstraintViolation, "nft.holding.linked", "holding account is not a token account", err)
	}
	if existing.Mint != v.accounts[posMint].Address || existing.Owner != v.accounts[posSigner].Address {
		return ledger.Errorf(ledger.KindConstraintViolation, "nft.holding.linked", "holding account %s is linked to another identity or mint", info.Address)
	}
	return nil
}

// validation binds init_nft's accounts to their roles.
type validation struct {
	accounts []*ledger.AccountInfo
	derived  map[string]address.Address
}

// Accounts is the validated account set of one init_nft call.
type Accounts struct {
	Signer   *ledger.AccountInfo
	Mint     *ledger.AccountInfo
	Holding  *ledger.AccountInfo
	Metadata *ledger.AccountInfo
	Edition  *ledger.AccountInfo
}

func (v *validation) derive(key string, fn func() (address.Address, uint8, error)) (address.Address, error) {
	if a, ok := v.derived[key]; ok {
		return a, nil
	}
	a, _, err := fn()
	if err != nil {
		return address.Address{}, ledger.WrapError(ledger.KindInternal, "nft.derive", "derive "+key+" address", err)
	}
	v.derived[key] = a
	return a, nil
}

func (v *validation) holding() (address.Address, error) {
	return v.derive("holding", func() (address.Address, uint8, error) {
		return associatedtoken.FindAddress(v.accounts[posSigner].Address, v.accounts[posMint].Address)
	})
}

func (v *validation) metadata() (address.Address, error) {
	return v.derive("metadata", func() (address.Address, uint8, error) {
		return metadata.FindMetadataAddress(v.accounts[posMint].Address)
	})
}

func (v *validation) edition() (address.Address, error) {
	return v.derive("edition", func() (address.Address, uint8, error) {
		return metadata.FindEditionAddress(v.accounts[posMint].Address)
	})
}

// expectedElsewhere reports whether a belongs at a position other than pos.
func (v *validation) expectedElsewhere(pos int, a address.Address) bool {
	for i, r := range initNFTRoles {
		if i == pos || r.expect == nil {
			continue
		}
		if want, err := r.expect(v); err == nil && want == a {
			return true
		}
	}
	return false
}

// validate checks every account against its role in one pass, before any
// state changes. The first failing check is returned.
func validate(infos []*ledger.AccountInfo) (*Accounts, error) {
	if len(infos) != accountCount {
		return nil, ledger.Errorf(ledger.KindMalformed, "nft.accounts.count", "init_nft takes %d accounts, got %d", accountCount, len(infos))
	}
	v := &validation{accounts: infos, derived: make(map[string]address.Address, 3)}
	for pos, r := range initNFTRoles {
		info := infos[pos]
		if r.signer && !info.IsSigner {
			return nil, violation(r, "signer", "%s %s must sign", r.name, info.Address)
		}
		if r.writable && !info.IsWritable {
			return nil, violation(r, "writable", "%s %s must be writable", r.name, info.Address)
		}
		if r.expect != nil {
			want, err := r.expect(v)
			if err != nil {
				return nil, err
			}
			if info.Address != want {
				if v.expectedElsewhere(pos, info.Address) {
					return nil, ledger.Errorf(ledger.KindMalformed, "nft.accounts.order", "account %s supplied as %s belongs at another position", info.Address, r.name)
				}
				return nil, violation(r, "address", "%s %s does not match expected address %s", r.name, info.Address, want)
			}
		}
		if r.executable && !info.Account.Executable {
			return nil, violation(r, "executable", "%s %s is not executable", r.name, info.Address)
		}
		if r.check != nil {
			if err := r.check(v, info); err != nil {
				return nil, err
			}
		}
	}
	return &Accounts{
		Signer:   infos[posSigner],
		Mint:     infos[posMint],
		Holding:  infos[posHolding],
		Metadata: infos[posMetadata],
		Edition:  infos[posEdition],
	}, nil
}

func violation(r role, what, format string, args ...any) error {
	return ledger.NewError(ledger.KindConstraintViolation, "nft."+r.name+"."+what, fmt.Sprintf(format, args...))
}
