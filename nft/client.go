package nft

import (
	"xdao.co/nftmint/address"
	"xdao.co/nftmint/associatedtoken"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/metadata"
	"xdao.co/nftmint/token"
)

// InitNFTAccounts names the per-call accounts of init_nft. The subsystem
// and sysvar accounts are always the canonical singletons.
type InitNFTAccounts struct {
	Signer   address.Address
	Mint     address.Address
	Holding  address.Address
	Metadata address.Address
	Edition  address.Address
}

// DeriveAccounts computes the holding, metadata and edition addresses for
// signer and mint.
func DeriveAccounts(signer, mint address.Address) (InitNFTAccounts, error) {
	holding, _, err := associatedtoken.FindAddress(signer, mint)
	if err != nil {
		return InitNFTAccounts{}, err
	}
	md, _, err := metadata.FindMetadataAddress(mint)
	if err != nil {
		return InitNFTAccounts{}, err
	}
	edition, _, err := metadata.FindEditionAddress(mint)
	if err != nil {
		return InitNFTAccounts{}, err
	}
	return InitNFTAccounts{Signer: signer, Mint: mint, Holding: holding, Metadata: md, Edition: edition}, nil
}

// Metas returns the ten account metas in init_nft order.
func (a InitNFTAccounts) Metas() []ledger.AccountMeta {
	return []ledger.AccountMeta{
		ledger.Writable(a.Signer, true),
		ledger.Writable(a.Mint, true),
		ledger.Writable(a.Holding, false),
		ledger.Writable(a.Metadata, false),
		ledger.Writable(a.Edition, false),
		ledger.ReadOnly(address.TokenProgram, false),
		ledger.ReadOnly(address.AssociatedTokenProgram, false),
		ledger.ReadOnly(address.MetadataProgram, false),
		ledger.ReadOnly(address.SystemProgram, false),
		ledger.ReadOnly(address.RentSysvar, false),
	}
}

// NewInitNFTInstruction builds an init_nft call to the program at programID.
// The transaction must be signed by accts.Signer and accts.Mint.
func NewInitNFTInstruction(programID address.Address, accts InitNFTAccounts, args InitNFTArgs) (ledger.Instruction, error) {
	data, err := args.Encode()
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{ProgramID: programID, Accounts: accts.Metas(), Data: data}, nil
}

// RevokeMintAuthority removes the mint authority of mint, fixing its supply.
func RevokeMintAuthority(mint, authority address.Address) ledger.Instruction {
	return token.SetAuthority(mint, authority, token.AuthorityMintTokens, nil)
}
