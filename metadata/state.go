package metadata

import (
	"strings"

	"github.com/near/borsh-go"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
)

// Registry field limits, in bytes.
const (
	MaxNameLength        = 32
	MaxSymbolLength      = 10
	MaxURILength         = 200
	MaxCreatorLimit      = 5
	MaxSellerFeeBasisPts = 10000
)

// Key tags the kind of record stored in a registry account.
type Key uint8

const (
	KeyUninitialized   Key = 0
	KeyMasterEditionV2 Key = 6
	KeyMetadataV1      Key = 4
)

// TokenStandard classifies the asset a metadata record describes.
type TokenStandard uint8

const (
	TokenStandardNonFungible   TokenStandard = 0
	TokenStandardFungibleAsset TokenStandard = 1
	TokenStandardFungible      TokenStandard = 2
)

type Creator struct {
	Address  address.Address
	Verified bool
	Share    uint8
}

type Collection struct {
	Verified bool
	Key      address.Address
}

type Uses struct {
	UseMethod uint8
	Remaining uint64
	Total     uint64
}

// CollectionDetails is the V1 variant: a sized collection parent.
type CollectionDetails struct {
	Variant uint8
	Size    uint64
}

// Data is the descriptive payload as stored. Strings are NUL-padded to the
// registry limits; use Name, Symbol and URI to read them.
type Data struct {
	RawName              string
	RawSymbol            string
	RawURI               string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator
}

func (d Data) Name() string { return unpad(d.RawName) }
func (d Data) Symbol() string { return unpad(d.RawSymbol) }
func (d Data) URI() string { return unpad(d.RawURI) }

// Metadata is the registry record of one mint.
type Metadata struct {
	Key                 Key
	UpdateAuthority     address.Address
	Mint                address.Address
	Data                Data
	PrimarySaleHappened bool
	IsMutable           bool
	EditionNonce        *uint8
	TokenStandard       *TokenStandard
	Collection          *Collection
	Uses                *Uses
	CollectionDetails   *CollectionDetails
}

// MasterEdition records the printable-copy policy of a mint.
// A nil MaxSupply means unlimited prints.
type MasterEdition struct {
	Key       Key
	Supply    uint64
	MaxSupply *uint64
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat("\x00", n-len(s))
}

func unpad(s string) string { return strings.TrimRight(s, "\x00") }

func encode(v any) ([]byte, error) {
	b, err := borsh.Serialize(v)
	if err != nil {
		return nil, ledger.WrapError(ledger.KindInternal, "metadata.state.encode", "encode record", err)
	}
	return b, nil
}

// DecodeMetadata parses a metadata record.
func DecodeMetadata(b []byte) (*Metadata, error) {
	if len(b) == 0 || Key(b[0]) != KeyMetadataV1 {
		return nil, ledger.NewError(ledger.KindInvalidAccountData, "metadata.state.key", "account is not a metadata record")
	}
	var md Metadata
	if err := borsh.Deserialize(&md, b); err != nil {
		return nil, ledger.WrapError(ledger.KindInvalidAccountData, "metadata.state.decode", "decode metadata", err)
	}
	return &md, nil
}

// DecodeMasterEdition parses a master edition record.
func DecodeMasterEdition(b []byte) (*MasterEdition, error) {
	if len(b) == 0 || Key(b[0]) != KeyMasterEditionV2 {
		return nil, ledger.NewError(ledger.KindInvalidAccountData, "metadata.state.key", "account is not a master edition record")
	}
	var ed MasterEdition
	if err := borsh.Deserialize(&ed, b); err != nil {
		return nil, ledger.WrapError(ledger.KindInvalidAccountData, "metadata.state.decode", "decode master edition", err)
	}
	return &ed, nil
}
