package keys

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const kdfSalt = "xdao-nftmint-keys-v1"

// DeriveRoleSeed deterministically derives a role-specific seed from a root seed.
//
// HKDF-SHA256(ikm = root, salt = "xdao-nftmint-keys-v1", info = "role:" + role).
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	r := hkdf.New(sha256.New, rootSeed, []byte(kdfSalt), []byte("role:"+role))
	out := make([]byte, SeedSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("kdf: %w", err)
	}
	return out, nil
}
