package token

import (
	"encoding/binary"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
)

// Packed sizes of the token program's account layouts.
const (
	MintSize    = 82
	AccountSize = 165
)

// AccountState is the lifecycle state of a token account.
type AccountState uint8

const (
	AccountUninitialized AccountState = iota
	AccountInitialized
	AccountFrozen
)

// Mint is the state of an asset class.
type Mint struct {
	MintAuthority   *address.Address
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *address.Address
}

// Account is a holding account: one owner's balance of one mint.
type Account struct {
	Mint            address.Address
	Owner           address.Address
	Amount          uint64
	Delegate        *address.Address
	State           AccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *address.Address
}

// COption fields carry a 4-byte little-endian tag.
func putOptionAddress(b []byte, a *address.Address) {
	if a == nil {
		clear(b[:36])
		return
	}
	binary.LittleEndian.PutUint32(b[0:4], 1)
	copy(b[4:36], a[:])
}

func getOptionAddress(b []byte) (*address.Address, error) {
	switch binary.LittleEndian.Uint32(b[0:4]) {
	case 0:
		return nil, nil
	case 1:
		var a address.Address
		copy(a[:], b[4:36])
		return &a, nil
	default:
		return nil, ledger.NewError(ledger.KindInvalidAccountData, "token.state.option_tag", "invalid option tag")
	}
}

// Encode packs m into its 82-byte layout.
func (m Mint) Encode() []byte {
	b := make([]byte, MintSize)
	putOptionAddress(b[0:36], m.MintAuthority)
	binary.LittleEndian.PutUint64(b[36:44], m.Supply)
	b[44] = m.Decimals
	if m.IsInitialized {
		b[45] = 1
	}
	putOptionAddress(b[46:82], m.FreezeAuthority)
	return b
}

// DecodeMint unpacks a mint; it does not require the mint to be initialized.
func DecodeMint(b []byte) (Mint, error) {
	if len(b) != MintSize {
		return Mint{}, ledger.Errorf(ledger.KindInvalidAccountData, "token.mint.size", "mint data must be %d bytes, got %d", MintSize, len(b))
	}
	var m Mint
	var err error
	if m.MintAuthority, err = getOptionAddress(b[0:36]); err != nil {
		return Mint{}, err
	}
	m.Supply = binary.LittleEndian.Uint64(b[36:44])
	m.Decimals = b[44]
	switch b[45] {
	case 0:
	case 1:
		m.IsInitialized = true
	default:
		return Mint{}, ledger.NewError(ledger.KindInvalidAccountData, "token.mint.initialized_flag", "invalid initialized flag")
	}
	if m.FreezeAuthority, err = getOptionAddress(b[46:82]); err != nil {
		return Mint{}, err
	}
	return m, nil
}

// Encode packs a into its 165-byte layout.
func (a Account) Encode() []byte {
	b := make([]byte, AccountSize)
	copy(b[0:32], a.Mint[:])
	copy(b[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(b[64:72], a.Amount)
	putOptionAddress(b[72:108], a.Delegate)
	b[108] = byte(a.State)
	if a.IsNative != nil {
		binary.LittleEndian.PutUint32(b[109:113], 1)
		binary.LittleEndian.PutUint64(b[113:121], *a.IsNative)
	}
	binary.LittleEndian.PutUint64(b[121:129], a.DelegatedAmount)
	putOptionAddress(b[129:165], a.CloseAuthority)
	return b
}

func DecodeAccount(b []byte) (Account, error) {
	if len(b) != AccountSize {
		return Account{}, ledger.Errorf(ledger.KindInvalidAccountData, "token.account.size", "token account data must be %d bytes, got %d", AccountSize, len(b))
	}
	var a Account
	var err error
	copy(a.Mint[:], b[0:32])
	copy(a.Owner[:], b[32:64])
	a.Amount = binary.LittleEndian.Uint64(b[64:72])
	if a.Delegate, err = getOptionAddress(b[72:108]); err != nil {
		return Account{}, err
	}
	if b[108] > byte(AccountFrozen) {
		return Account{}, ledger.NewError(ledger.KindInvalidAccountData, "token.account.state", "invalid account state")
	}
	a.State = AccountState(b[108])
	switch binary.LittleEndian.Uint32(b[109:113]) {
	case 0:
	case 1:
		v := binary.LittleEndian.Uint64(b[113:121])
		a.IsNative = &v
	default:
		return Account{}, ledger.NewError(ledger.KindInvalidAccountData, "token.state.option_tag", "invalid option tag")
	}
	a.DelegatedAmount = binary.LittleEndian.Uint64(b[121:129])
	if a.CloseAuthority, err = getOptionAddress(b[129:165]); err != nil {
		return Account{}, err
	}
	return a, nil
}

// LoadMint reads an initialized mint from a ledger account owned by the
// token program.
func LoadMint(acct *ledger.Account) (Mint, error) {
	if acct.Owner != address.TokenProgram {
		return Mint{}, ledger.NewError(ledger.KindInvalidAccountData, "token.mint.owner", "mint is not owned by the token program")
	}
	m, err := DecodeMint(acct.Data)
	if err != nil {
		return Mint{}, err
	}
	if !m.IsInitialized {
		return Mint{}, ledger.NewError(ledger.KindInvalidAccountData, "token.mint.uninitialized", "mint is not initialized")
	}
	return m, nil
}

// LoadAccount reads an initialized token account from a ledger account.
func LoadAccount(acct *ledger.Account) (Account, error) {
	if acct.Owner != address.TokenProgram {
		return Account{}, ledger.NewError(ledger.KindInvalidAccountData, "token.account.owner", "token account is not owned by the token program")
	}
	a, err := DecodeAccount(acct.Data)
	if err != nil {
		return Account{}, err
	}
	if a.State == AccountUninitialized {
		return Account{}, ledger.NewError(ledger.KindInvalidAccountData, "token.account.uninitialized", "token account is not initialized")
	}
	return a, nil
}
