package address

// Canonical singleton identities of the subsystems the NFT flow depends on.
var (
	SystemProgram          = MustParse("11111111111111111111111111111111")
	TokenProgram           = MustParse("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgram = MustParse("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	MetadataProgram        = MustParse("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

	// SysvarOwner owns every sysvar account.
	SysvarOwner = MustParse("Sysvar1111111111111111111111111111111111111")
	RentSysvar  = MustParse("SysvarRent111111111111111111111111111111111")

	// NativeLoader owns the executable accounts of built-in programs.
	NativeLoader = MustParse("NativeLoader1111111111111111111111111111111")
)
