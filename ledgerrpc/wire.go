package ledgerrpc

import (
	"github.com/near/borsh-go"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
)

type accountReply struct {
	Lamports   uint64
	Owner      address.Address
	Executable bool
	Data       []byte
}

type receiptReply struct {
	Signature ledger.Signature
	Slot      uint64
	Fee       uint64
	Logs      []string
}

type blockhashReply struct {
	Blockhash ledger.Hash
	Slot      uint64
}

type airdropRequest struct {
	Address  address.Address
	Lamports uint64
}

func encodeReceipt(r *ledger.Receipt) ([]byte, error) {
	return borsh.Serialize(receiptReply{Signature: r.Signature, Slot: r.Slot, Fee: r.Fee, Logs: r.Logs})
}

func decodeReceipt(b []byte) (*ledger.Receipt, error) {
	var r receiptReply
	if err := borsh.Deserialize(&r, b); err != nil {
		return nil, err
	}
	return &ledger.Receipt{Signature: r.Signature, Slot: r.Slot, Fee: r.Fee, Logs: r.Logs}, nil
}
