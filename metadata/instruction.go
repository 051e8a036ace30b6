package metadata

import (
	"github.com/near/borsh-go"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
)

// Instruction discriminators.
const (
	TagCreateMasterEditionV3   uint8 = 17
	TagCreateMetadataAccountV3 uint8 = 33
)

// DataV2 is the descriptive payload supplied at creation.
type DataV2 struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator
	Collection           *Collection
	Uses                 *Uses
}

// CreateMetadataArgs are the arguments of CreateMetadataAccountV3.
type CreateMetadataArgs struct {
	Data              DataV2
	IsMutable         bool
	CollectionDetails *CollectionDetails
}

// CreateMasterEditionArgs are the arguments of CreateMasterEditionV3.
type CreateMasterEditionArgs struct {
	MaxSupply *uint64
}

// CreateMetadataAccounts names the accounts of CreateMetadataAccountV3.
type CreateMetadataAccounts struct {
	Metadata        address.Address
	Mint            address.Address
	MintAuthority   address.Address
	Payer           address.Address
	UpdateAuthority address.Address
}

// CreateMasterEditionAccounts names the accounts of CreateMasterEditionV3.
type CreateMasterEditionAccounts struct {
	Edition         address.Address
	Mint            address.Address
	UpdateAuthority address.Address
	MintAuthority   address.Address
	Payer           address.Address
	Metadata        address.Address
}

func withTag(tag uint8, args any) ([]byte, error) {
	body, err := borsh.Serialize(args)
	if err != nil {
		return nil, ledger.WrapError(ledger.KindMalformed, "metadata.instruction.encode", "encode arguments", err)
	}
	return append([]byte{tag}, body...), nil
}

// CreateMetadataAccountV3 builds the metadata creation instruction.
func CreateMetadataAccountV3(accts CreateMetadataAccounts, args CreateMetadataArgs) (ledger.Instruction, error) {
	data, err := withTag(TagCreateMetadataAccountV3, args)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{
		ProgramID: address.MetadataProgram,
		Accounts: []ledger.AccountMeta{
			ledger.Writable(accts.Metadata, false),
			ledger.ReadOnly(accts.Mint, false),
			ledger.ReadOnly(accts.MintAuthority, true),
			ledger.Writable(accts.Payer, true),
			ledger.ReadOnly(accts.UpdateAuthority, true),
			ledger.ReadOnly(address.SystemProgram, false),
			ledger.ReadOnly(address.RentSysvar, false),
		},
		Data: data,
	}, nil
}

// CreateMasterEditionV3 builds the edition finalization instruction.
func CreateMasterEditionV3(accts CreateMasterEditionAccounts, args CreateMasterEditionArgs) (ledger.Instruction, error) {
	data, err := withTag(TagCreateMasterEditionV3, args)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{
		ProgramID: address.MetadataProgram,
		Accounts: []ledger.AccountMeta{
			ledger.Writable(accts.Edition, false),
			ledger.Writable(accts.Mint, false),
			ledger.ReadOnly(accts.UpdateAuthority, true),
			ledger.ReadOnly(accts.MintAuthority, true),
			ledger.Writable(accts.Payer, true),
			ledger.Writable(accts.Metadata, false),
			ledger.ReadOnly(address.TokenProgram, false),
			ledger.ReadOnly(address.SystemProgram, false),
			ledger.ReadOnly(address.RentSysvar, false),
		},
		Data: data,
	}, nil
}
