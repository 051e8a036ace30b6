package token

import (
	"encoding/binary"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
)

// Instruction tags.
const (
	TagSetAuthority       uint8 = 6
	TagMintTo             uint8 = 7
	TagInitializeAccount3 uint8 = 18
	TagInitializeMint2    uint8 = 20
)

// AuthorityType selects the authority SetAuthority replaces.
type AuthorityType uint8

const (
	AuthorityMintTokens AuthorityType = iota
	AuthorityFreezeAccount
	AuthorityAccountOwner
	AuthorityCloseAccount
)

func (t AuthorityType) String() string {
	switch t {
	case AuthorityMintTokens:
		return "MintTokens"
	case AuthorityFreezeAccount:
		return "FreezeAccount"
	case AuthorityAccountOwner:
		return "AccountOwner"
	case AuthorityCloseAccount:
		return "CloseAccount"
	}
	return "Unknown"
}

// Instruction-level options use a one-byte tag, unlike the packed state.
func appendOption(b []byte, a *address.Address) []byte {
	if a == nil {
		return append(b, 0)
	}
	return append(append(b, 1), a[:]...)
}

func readOption(b []byte) (*address.Address, []byte, error) {
	if len(b) == 0 {
		return nil, nil, errShort
	}
	switch b[0] {
	case 0:
		return nil, b[1:], nil
	case 1:
		if len(b) < 33 {
			return nil, nil, errShort
		}
		var a address.Address
		copy(a[:], b[1:33])
		return &a, b[33:], nil
	}
	return nil, nil, ledger.NewError(ledger.KindMalformed, "token.instruction.option_tag", "invalid option tag")
}

var errShort = ledger.NewError(ledger.KindMalformed, "token.instruction.short", "instruction data too short")

// InitializeMint2 initializes a mint account that already belongs to the
// token program.
func InitializeMint2(mint address.Address, decimals uint8, mintAuthority address.Address, freezeAuthority *address.Address) ledger.Instruction {
	data := []byte{TagInitializeMint2, decimals}
	data = append(data, mintAuthority[:]...)
	data = appendOption(data, freezeAuthority)
	return ledger.Instruction{
		ProgramID: address.TokenProgram,
		Accounts:  []ledger.AccountMeta{ledger.Writable(mint, false)},
		Data:      data,
	}
}

// InitializeAccount3 initializes a holding account of mint for owner.
func InitializeAccount3(account, mint, owner address.Address) ledger.Instruction {
	data := append([]byte{TagInitializeAccount3}, owner[:]...)
	return ledger.Instruction{
		ProgramID: address.TokenProgram,
		Accounts:  []ledger.AccountMeta{ledger.Writable(account, false), ledger.ReadOnly(mint, false)},
		Data:      data,
	}
}

// MintTo issues amount new units of mint into dest.
func MintTo(mint, dest, authority address.Address, amount uint64) ledger.Instruction {
	data := binary.LittleEndian.AppendUint64([]byte{TagMintTo}, amount)
	return ledger.Instruction{
		ProgramID: address.TokenProgram,
		Accounts: []ledger.AccountMeta{
			ledger.Writable(mint, false),
			ledger.Writable(dest, false),
			ledger.ReadOnly(authority, true),
		},
		Data: data,
	}
}

// SetAuthority replaces (or, with a nil newAuthority, removes) an authority
// of a mint or token account.
func SetAuthority(target, current address.Address, kind AuthorityType, newAuthority *address.Address) ledger.Instruction {
	data := appendOption([]byte{TagSetAuthority, byte(kind)}, newAuthority)
	return ledger.Instruction{
		ProgramID: address.TokenProgram,
		Accounts:  []ledger.AccountMeta{ledger.Writable(target, false), ledger.ReadOnly(current, true)},
		Data:      data,
	}
}
