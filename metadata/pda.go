package metadata

import "xdao.co/nftmint/address"

const (
	metadataPrefix = "metadata"
	editionSuffix  = "edition"
)

func metadataSeeds(mint address.Address) [][]byte {
	return [][]byte{[]byte(metadataPrefix), address.MetadataProgram[:], mint[:]}
}

func editionSeeds(mint address.Address) [][]byte {
	return append(metadataSeeds(mint), []byte(editionSuffix))
}

// FindMetadataAddress derives the metadata record address of mint:
// seeds ["metadata", metadata program, mint].
func FindMetadataAddress(mint address.Address) (address.Address, uint8, error) {
	return address.FindProgramAddress(metadataSeeds(mint), address.MetadataProgram)
}

// FindEditionAddress derives the edition record address of mint:
// seeds ["metadata", metadata program, mint, "edition"].
func FindEditionAddress(mint address.Address) (address.Address, uint8, error) {
	return address.FindProgramAddress(editionSeeds(mint), address.MetadataProgram)
}
