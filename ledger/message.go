package ledger

import (
	"crypto/sha256"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"

	"xdao.co/nftmint/address"
)

// Hash is a 32-byte digest; recent blockhashes use it.
type Hash [32]byte

func (h Hash) String() string { return base58.Encode(h[:]) }

// ParseHash decodes a base58 hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("ledger: invalid hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("ledger: invalid hash length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Signature is an ed25519 signature over a serialized Message.
type Signature [ed25519.SignatureSize]byte

func (s Signature) String() string { return base58.Encode(s[:]) }

// AccountMeta names an account an instruction touches and the privileges it
// requests for it.
type AccountMeta struct {
	Address    address.Address
	IsSigner   bool
	IsWritable bool
}

// Writable returns a writable AccountMeta.
func Writable(a address.Address, signer bool) AccountMeta {
	return AccountMeta{Address: a, IsSigner: signer, IsWritable: true}
}

// ReadOnly returns a read-only AccountMeta.
func ReadOnly(a address.Address, signer bool) AccountMeta {
	return AccountMeta{Address: a, IsSigner: signer}
}

// Instruction is a single program call.
type Instruction struct {
	ProgramID address.Address
	Accounts  []AccountMeta
	Data      []byte
}

// Message is the signed part of a transaction.
type Message struct {
	FeePayer        address.Address
	RecentBlockhash Hash
	Instructions    []Instruction
}

// Bytes returns the canonical serialization that signatures cover.
func (m Message) Bytes() ([]byte, error) {
	b, err := borsh.Serialize(m)
	if err != nil {
		return nil, WrapError(KindMalformed, "ledger.message.encode", "encode message", err)
	}
	return b, nil
}

// Privilege is the merged privilege set of one address across a message.
type Privilege struct {
	Address    address.Address
	IsSigner   bool
	IsWritable bool
}

// AccountKeys returns every address the message references, fee payer first
// and the rest in order of first appearance, with privileges merged.
// Program ids are included read-only.
func (m Message) AccountKeys() []Privilege {
	idx := map[address.Address]int{}
	var out []Privilege
	add := func(a address.Address, signer, writable bool) {
		if i, ok := idx[a]; ok {
			out[i].IsSigner = out[i].IsSigner || signer
			out[i].IsWritable = out[i].IsWritable || writable
			return
		}
		idx[a] = len(out)
		out = append(out, Privilege{Address: a, IsSigner: signer, IsWritable: writable})
	}
	add(m.FeePayer, true, true)
	for _, ix := range m.Instructions {
		for _, meta := range ix.Accounts {
			add(meta.Address, meta.IsSigner, meta.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}
	return out
}

// Signers returns the addresses that must sign, fee payer first.
func (m Message) Signers() []address.Address {
	var out []address.Address
	for _, k := range m.AccountKeys() {
		if k.IsSigner {
			out = append(out, k.Address)
		}
	}
	return out
}

// Signer produces signatures for one address.
type Signer interface {
	Address() address.Address
	Sign(message []byte) []byte
}

// Transaction is a message plus one signature per required signer, in
// Message.Signers order.
type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction signs msg with the supplied signers.
//
// Every required signer must be supplied; extra signers are an error.
func NewTransaction(msg Message, signers ...Signer) (*Transaction, error) {
	body, err := msg.Bytes()
	if err != nil {
		return nil, err
	}
	byAddr := make(map[address.Address]Signer, len(signers))
	for _, s := range signers {
		byAddr[s.Address()] = s
	}
	required := msg.Signers()
	tx := &Transaction{Message: msg, Signatures: make([]Signature, len(required))}
	for i, a := range required {
		s, ok := byAddr[a]
		if !ok {
			return nil, Errorf(KindConstraintViolation, "ledger.tx.missing_signer", "missing signer %s", a)
		}
		delete(byAddr, a)
		copy(tx.Signatures[i][:], s.Sign(body))
	}
	for a := range byAddr {
		return nil, Errorf(KindMalformed, "ledger.tx.unexpected_signer", "signer %s is not required by the message", a)
	}
	return tx, nil
}

// Verify checks that every required signer produced a valid signature.
func (tx *Transaction) Verify() error {
	if tx == nil {
		return NewError(KindMalformed, "ledger.tx.nil", "nil transaction")
	}
	required := tx.Message.Signers()
	if len(tx.Signatures) != len(required) {
		return Errorf(KindMalformed, "ledger.tx.signature_count", "expected %d signatures, got %d", len(required), len(tx.Signatures))
	}
	body, err := tx.Message.Bytes()
	if err != nil {
		return err
	}
	for i, a := range required {
		if !ed25519.Verify(ed25519.PublicKey(a[:]), body, tx.Signatures[i][:]) {
			return Errorf(KindConstraintViolation, "ledger.tx.signature", "signature verification failed for %s", a)
		}
	}
	return nil
}

// ID is the transaction's first signature.
func (tx *Transaction) ID() Signature {
	if tx == nil || len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0]
}

// EncodeTransaction serializes tx for the wire.
func EncodeTransaction(tx *Transaction) ([]byte, error) {
	if tx == nil {
		return nil, NewError(KindMalformed, "ledger.tx.nil", "nil transaction")
	}
	b, err := borsh.Serialize(*tx)
	if err != nil {
		return nil, WrapError(KindMalformed, "ledger.tx.encode", "encode transaction", err)
	}
	return b, nil
}

// DecodeTransaction parses a transaction produced by EncodeTransaction.
func DecodeTransaction(b []byte) (*Transaction, error) {
	var tx Transaction
	if err := borsh.Deserialize(&tx, b); err != nil {
		return nil, WrapError(KindMalformed, "ledger.tx.decode", "decode transaction", err)
	}
	return &tx, nil
}

func nextBlockhash(prev Hash, entropy []byte) Hash {
	h := sha256.New()
	_, _ = h.Write(prev[:])
	_, _ = h.Write(entropy)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
