package keys

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"

	"xdao.co/nftmint/address"
)

// SeedSize is the byte length of a keypair seed.
const SeedSize = ed25519.SeedSize

// Keypair is an ed25519 signing key and the ledger address it controls.
type Keypair struct {
	priv ed25519.PrivateKey
	addr address.Address
}

// NewKeypairFromSeed returns the keypair for a 32-byte seed.
func NewKeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	addr, err := address.FromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv, addr: addr}, nil
}

// GenerateKeypair draws a fresh seed from r (crypto/rand when nil).
func GenerateKeypair(r io.Reader) (*Keypair, error) {
	if r == nil {
		r = rand.Reader
	}
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, err
	}
	return NewKeypairFromSeed(seed)
}

func (k *Keypair) Address() address.Address { return k.addr }

func (k *Keypair) Sign(message []byte) []byte { return ed25519.Sign(k.priv, message) }

func (k *Keypair) PublicKey() ed25519.PublicKey { return k.priv.Public().(ed25519.PublicKey) }

// Seed returns a copy of the keypair's seed.
func (k *Keypair) Seed() []byte { return append([]byte(nil), k.priv.Seed()...) }
