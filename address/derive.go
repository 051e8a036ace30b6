package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// MaxSeeds is the maximum number of seeds, including the bump seed.
	MaxSeeds = 16
	// MaxSeedLen is the maximum byte length of a single seed.
	MaxSeedLen = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	ErrMaxSeedLength = errors.New("address: seed exceeds 32 bytes")
	ErrTooManySeeds  = errors.New("address: too many seeds")
	ErrOnCurve       = errors.New("address: derived address lies on the ed25519 curve")
	// ErrNoViableBump means every bump from 255 to 0 produced an on-curve
	// candidate. With a correct scheme this does not happen in practice.
	ErrNoViableBump = errors.New("address: unable to find a viable bump seed")
)

// CreateProgramAddress derives an address from seeds and the owning program.
//
// The caller supplies the complete seed list (bump included, if any).
func CreateProgramAddress(seeds [][]byte, program Address) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Zero, ErrTooManySeeds
	}
	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return Zero, ErrMaxSeedLength
		}
		_, _ = h.Write(s)
	}
	_, _ = h.Write(program[:])
	_, _ = h.Write([]byte(pdaMarker))

	var out Address
	copy(out[:], h.Sum(nil))
	if IsOnCurve(out) {
		return Zero, ErrOnCurve
	}
	return out, nil
}

// FindProgramAddress searches the bump seed from 255 down to 0 and returns the
// first valid derived address together with its bump.
func FindProgramAddress(seeds [][]byte, program Address) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Zero, 0, ErrTooManySeeds
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	bump := []byte{0}
	withBump[len(seeds)] = bump

	for b := 255; b >= 0; b-- {
		bump[0] = uint8(b)
		addr, err := CreateProgramAddress(withBump, program)
		if err == nil {
			return addr, uint8(b), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Zero, 0, err
		}
	}
	return Zero, 0, ErrNoViableBump
}

// MustFindProgramAddress panics when no address can be derived.
func MustFindProgramAddress(seeds [][]byte, program Address) (Address, uint8) {
	addr, bump, err := FindProgramAddress(seeds, program)
	if err != nil {
		panic(fmt.Sprintf("derive address for program %s: %v", program, err))
	}
	return addr, bump
}

// IsOnCurve reports whether a decodes as a valid ed25519 point.
func IsOnCurve(a Address) bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}
