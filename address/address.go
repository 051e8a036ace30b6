package address

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/mr-tron/base58"
)

// Size is the byte length of an Address.
const Size = 32

// Address identifies an account on the ledger.
//
// Text form is base58, matching the wallet tooling the ledger interoperates with.
type Address [Size]byte

var (
	// Zero is the all-zero address (also the system program identity).
	Zero Address

	ErrInvalidLength = errors.New("address: invalid length")
	ErrInvalidBase58 = errors.New("address: invalid base58")
)

// Parse decodes a base58 address string.
func Parse(s string) (Address, error) {
	var a Address
	b, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidBase58, err)
	}
	if len(b) != Size {
		return a, fmt.Errorf("%w: got %d bytes", ErrInvalidLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytes copies b into an Address.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("%w: got %d bytes", ErrInvalidLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// FromPublicKey returns the address of an ed25519 public key.
func FromPublicKey(pub ed25519.PublicKey) (Address, error) {
	return FromBytes(pub)
}

func (a Address) String() string { return base58.Encode(a[:]) }

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, a[:])
	return out
}

func (a Address) IsZero() bool { return a == Zero }

// Compare orders addresses bytewise.
func (a Address) Compare(b Address) int { return bytes.Compare(a[:], b[:]) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
