// Package metadata implements the metadata registry: descriptive records
// (name, symbol, locator) and master edition records, each stored at an
// address derived from the mint they describe.
package metadata

import (
	"strings"

	"github.com/near/borsh-go"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/system"
	"xdao.co/nftmint/token"
)

// Program is the metadata registry program.
type Program struct{}

var _ ledger.Program = Program{}

func New() Program { return Program{} }

func (Program) ID() address.Address { return address.MetadataProgram }

func (Program) Process(ic *ledger.InvokeContext, data []byte) error {
	if len(data) == 0 {
		return ledger.NewError(ledger.KindMalformed, "metadata.instruction.short", "instruction data too short")
	}
	switch data[0] {
	case TagCreateMetadataAccountV3:
		var args CreateMetadataArgs
		if err := borsh.Deserialize(&args, data[1:]); err != nil {
			return ledger.WrapError(ledger.KindMalformed, "metadata.instruction.decode", "decode arguments", err)
		}
		return createMetadata(ic, args)
	case TagCreateMasterEditionV3:
		var args CreateMasterEditionArgs
		if err := borsh.Deserialize(&args, data[1:]); err != nil {
			return ledger.WrapError(ledger.KindMalformed, "metadata.instruction.decode", "decode arguments", err)
		}
		return createMasterEdition(ic, args)
	}
	return ledger.Errorf(ledger.KindMalformed, "metadata.instruction.unknown", "unknown metadata instruction %d", data[0])
}

// CheckLengths enforces the registry's byte limits on the text fields.
// Fields are stored NUL-padded, so a NUL inside one is rejected rather than
// silently lost on decode.
func CheckLengths(name, symbol, uri string) error {
	for _, f := range [...]struct{ field, v string }{{"name", name}, {"symbol", symbol}, {"uri", uri}} {
		if strings.IndexByte(f.v, 0) >= 0 {
			return ledger.Errorf(ledger.KindMalformed, "metadata.text.nul", "%s contains a NUL byte", f.field)
		}
	}
	if len(name) > MaxNameLength {
		return ledger.Errorf(ledger.KindPayloadTooLarge, "metadata.name_too_long", "name is %d bytes, limit %d", len(name), MaxNameLength)
	}
	if len(symbol) > MaxSymbolLength {
		return ledger.Errorf(ledger.KindPayloadTooLarge, "metadata.symbol_too_long", "symbol is %d bytes, limit %d", len(symbol), MaxSymbolLength)
	}
	if len(uri) > MaxURILength {
		return ledger.Errorf(ledger.KindPayloadTooLarge, "metadata.uri_too_long", "uri is %d bytes, limit %d", len(uri), MaxURILength)
	}
	return nil
}

// ValidateData checks a creation payload against the registry rules.
// Creators may only be marked verified when they sign.
func ValidateData(d DataV2, signed func(address.Address) bool) error {
	if err := CheckLengths(d.Name, d.Symbol, d.URI); err != nil {
		return err
	}
	if d.SellerFeeBasisPoints > MaxSellerFeeBasisPts {
		return ledger.Errorf(ledger.KindMalformed, "metadata.seller_fee", "seller fee %d exceeds %d basis points", d.SellerFeeBasisPoints, MaxSellerFeeBasisPts)
	}
	if d.Creators != nil {
		creators := *d.Creators
		if len(creators) == 0 || len(creators) > MaxCreatorLimit {
			return ledger.Errorf(ledger.KindMalformed, "metadata.creators.count", "creator list must hold 1 to %d entries", MaxCreatorLimit)
		}
		seen := make(map[address.Address]bool, len(creators))
		var total int
		for _, c := range creators {
			if seen[c.Address] {
				return ledger.Errorf(ledger.KindMalformed, "metadata.creators.duplicate", "duplicate creator %s", c.Address)
			}
			seen[c.Address] = true
			total += int(c.Share)
			if c.Verified && !signed(c.Address) {
				return ledger.Errorf(ledger.KindConstraintViolation, "metadata.creators.unverified", "creator %s cannot be verified without signing", c.Address)
			}
		}
		if total != 100 {
			return ledger.Errorf(ledger.KindMalformed, "metadata.creators.shares", "creator shares sum to %d, want 100", total)
		}
	}
	if d.Collection != nil && d.Collection.Verified {
		return ledger.NewError(ledger.KindConstraintViolation, "metadata.collection.verified", "collection cannot be verified at creation")
	}
	return nil
}

func createMetadata(ic *ledger.InvokeContext, args CreateMetadataArgs) error {
	accts := ic.Accounts()
	if len(accts) < 6 {
		return ledger.Errorf(ledger.KindMalformed, "metadata.create.accounts", "expected at least 6 accounts, got %d", len(accts))
	}
	md, mint, mintAuth, payer, updateAuth := accts[0], accts[1], accts[2], accts[3], accts[4]

	want, bump, err := FindMetadataAddress(mint.Address)
	if err != nil {
		return ledger.WrapError(ledger.KindInternal, "metadata.derive", "derive metadata address", err)
	}
	if md.Address != want {
		return ledger.Errorf(ledger.KindConstraintViolation, "metadata.create.address", "metadata account %s does not match derived address %s", md.Address, want)
	}
	if md.Account.HasState() {
		return ledger.Errorf(ledger.KindAlreadyInitialized, "metadata.create.already_initialized", "metadata account %s already has state", md.Address)
	}

	signed := func(a address.Address) bool {
		for _, info := range accts {
			if info.Address == a && info.IsSigner {
				return true
			}
		}
		return false
	}
	if err := ValidateData(args.Data, signed); err != nil {
		return err
	}

	m, err := token.LoadMint(mint.Account)
	if err != nil {
		return err
	}
	if m.MintAuthority == nil || *m.MintAuthority != mintAuth.Address {
		return ledger.Errorf(ledger.KindAuthorityMismatch, "metadata.create.mint_authority", "%s is not the mint authority of %s", mintAuth.Address, mint.Address)
	}
	if !mintAuth.IsSigner {
		return ledger.Errorf(ledger.KindConstraintViolation, "metadata.create.mint_authority_signer", "mint authority %s must sign", mintAuth.Address)
	}

	_, editionBump, err := FindEditionAddress(mint.Address)
	if err != nil {
		return ledger.WrapError(ledger.KindInternal, "metadata.derive", "derive edition address", err)
	}
	standard := TokenStandardFungibleAsset
	if m.Decimals > 0 {
		standard = TokenStandardFungible
	}
	record := Metadata{
		Key:             KeyMetadataV1,
		UpdateAuthority: updateAuth.Address,
		Mint:            mint.Address,
		Data: Data{
			RawName:              pad(args.Data.Name, MaxNameLength),
			RawSymbol:            pad(args.Data.Symbol, MaxSymbolLength),
			RawURI:               pad(args.Data.URI, MaxURILength),
			SellerFeeBasisPoints: args.Data.SellerFeeBasisPoints,
			Creators:             args.Data.Creators,
		},
		IsMutable:         args.IsMutable,
		EditionNonce:      &editionBump,
		TokenStandard:     &standard,
		Collection:        args.Data.Collection,
		Uses:              args.Data.Uses,
		CollectionDetails: args.CollectionDetails,
	}
	body, err := encode(record)
	if err != nil {
		return err
	}

	seeds := append(metadataSeeds(mint.Address), []byte{bump})
	lamports := ic.Rent().MinimumBalance(len(body))
	if err := ic.Invoke(system.CreateAccount(payer.Address, md.Address, lamports, uint64(len(body)), address.MetadataProgram), seeds); err != nil {
		return err
	}
	md.Account.Data = body
	ic.Log("metadata %s registered for mint %s", md.Address, mint.Address)
	return nil
}

func createMasterEdition(ic *ledger.InvokeContext, args CreateMasterEditionArgs) error {
	accts := ic.Accounts()
	if len(accts) < 8 {
		return ledger.Errorf(ledger.KindMalformed, "metadata.edition.accounts", "expected at least 8 accounts, got %d", len(accts))
	}
	edition, mint, updateAuth, mintAuth, payer, mdInfo := accts[0], accts[1], accts[2], accts[3], accts[4], accts[5]

	want, bump, err := FindEditionAddress(mint.Address)
	if err != nil {
		return ledger.WrapError(ledger.KindInternal, "metadata.derive", "derive edition address", err)
	}
	if edition.Address != want {
		return ledger.Errorf(ledger.KindConstraintViolation, "metadata.edition.address", "edition account %s does not match derived address %s", edition.Address, want)
	}
	mdWant, _, err := FindMetadataAddress(mint.Address)
	if err != nil {
		return ledger.WrapError(ledger.KindInternal, "metadata.derive", "derive metadata address", err)
	}
	if mdInfo.Address != mdWant {
		return ledger.Errorf(ledger.KindConstraintViolation, "metadata.edition.metadata_address", "metadata account %s does not match derived address %s", mdInfo.Address, mdWant)
	}
	if mdInfo.Account.Owner != address.MetadataProgram {
		return ledger.Errorf(ledger.KindInvalidAccountData, "metadata.edition.metadata_missing", "mint %s has no metadata record", mint.Address)
	}
	record, err := DecodeMetadata(mdInfo.Account.Data)
	if err != nil {
		return err
	}
	if record.Mint != mint.Address {
		return ledger.NewError(ledger.KindConstraintViolation, "metadata.edition.metadata_mint", "metadata record belongs to another mint")
	}
	if edition.Account.HasState() {
		return ledger.Errorf(ledger.KindAlreadyInitialized, "metadata.edition.already_initialized", "edition account %s already has state", edition.Address)
	}
	if record.UpdateAuthority != updateAuth.Address {
		return ledger.Errorf(ledger.KindAuthorityMismatch, "metadata.edition.update_authority", "%s is not the update authority of %s", updateAuth.Address, mdInfo.Address)
	}
	if !updateAuth.IsSigner {
		return ledger.Errorf(ledger.KindConstraintViolation, "metadata.edition.update_authority_signer", "update authority %s must sign", updateAuth.Address)
	}

	m, err := token.LoadMint(mint.Account)
	if err != nil {
		return err
	}
	if m.MintAuthority == nil || *m.MintAuthority != mintAuth.Address {
		return ledger.Errorf(ledger.KindAuthorityMismatch, "metadata.edition.mint_authority", "%s is not the mint authority of %s", mintAuth.Address, mint.Address)
	}
	if !mintAuth.IsSigner {
		return ledger.Errorf(ledger.KindConstraintViolation, "metadata.edition.mint_authority_signer", "mint authority %s must sign", mintAuth.Address)
	}
	if m.Decimals != 0 {
		return ledger.Errorf(ledger.KindConstraintViolation, "metadata.edition.decimals", "edition mints must have 0 decimals, got %d", m.Decimals)
	}
	if m.Supply != 1 {
		return ledger.Errorf(ledger.KindConstraintViolation, "metadata.edition.supply", "edition mints must have supply 1, got %d", m.Supply)
	}

	body, err := encode(MasterEdition{Key: KeyMasterEditionV2, MaxSupply: args.MaxSupply})
	if err != nil {
		return err
	}
	seeds := append(editionSeeds(mint.Address), []byte{bump})
	lamports := ic.Rent().MinimumBalance(len(body))
	if err := ic.Invoke(system.CreateAccount(payer.Address, edition.Address, lamports, uint64(len(body)), address.MetadataProgram), seeds); err != nil {
		return err
	}
	edition.Account.Data = body

	nft := TokenStandardNonFungible
	record.TokenStandard = &nft
	updated, err := encode(*record)
	if err != nil {
		return err
	}
	if len(updated) != len(mdInfo.Account.Data) {
		return ledger.NewError(ledger.KindInternal, "metadata.edition.resize", "metadata record changed size")
	}
	mdInfo.Account.Data = updated
	ic.Log("master edition %s finalized for mint %s", edition.Address, mint.Address)
	return nil
}
