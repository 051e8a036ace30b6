package nft

import (
	"bytes"
	"crypto/sha256"

	"github.com/near/borsh-go"

	"xdao.co/nftmint/ledger"
)

// initNFTDiscriminator prefixes init_nft instruction data:
// sha256("global:init_nft")[:8].
var initNFTDiscriminator = discriminator("init_nft")

func discriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

// InitNFTArgs are the text parameters of init_nft.
type InitNFTArgs struct {
	Name   string
	Symbol string
	URI    string
}

// Encode returns init_nft instruction data.
func (a InitNFTArgs) Encode() ([]byte, error) {
	body, err := borsh.Serialize(a)
	if err != nil {
		return nil, ledger.WrapError(ledger.KindMalformed, "nft.instruction.encode", "encode arguments", err)
	}
	return append(append([]byte(nil), initNFTDiscriminator...), body...), nil
}

// DecodeInitNFTArgs parses init_nft instruction data.
func DecodeInitNFTArgs(data []byte) (InitNFTArgs, error) {
	if len(data) < len(initNFTDiscriminator) {
		return InitNFTArgs{}, ledger.NewError(ledger.KindMalformed, "nft.instruction.short", "instruction data too short")
	}
	if !bytes.Equal(data[:8], initNFTDiscriminator) {
		return InitNFTArgs{}, ledger.NewError(ledger.KindMalformed, "nft.instruction.unknown", "unknown instruction")
	}
	var a InitNFTArgs
	if err := borsh.Deserialize(&a, data[8:]); err != nil {
		return InitNFTArgs{}, ledger.WrapError(ledger.KindMalformed, "nft.instruction.decode", "decode arguments", err)
	}
	return a, nil
}
