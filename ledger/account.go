package ledger

import (
	"bytes"

	"xdao.co/nftmint/address"
)

// Account is the ledger-level state stored at an address.
//
// An address with no stored state reads as the zero Account owned by the
// system program.
type Account struct {
	Lamports   uint64
	Owner      address.Address
	Executable bool
	Data       []byte
}

// Clone returns a deep copy.
func (a Account) Clone() Account {
	out := a
	if a.Data != nil {
		out.Data = append([]byte(nil), a.Data...)
	}
	return out
}

// HasState reports whether the account holds lamports, data, or has been
// assigned away from the system program.
func (a Account) HasState() bool {
	return a.Lamports > 0 || len(a.Data) > 0 || a.Owner != address.SystemProgram
}

func (a Account) Equal(b Account) bool {
	return a.Lamports == b.Lamports &&
		a.Owner == b.Owner &&
		a.Executable == b.Executable &&
		bytes.Equal(a.Data, b.Data)
}

// AccountInfo is an account as seen by an executing program.
//
// Account points into the transaction's working set; programs mutate it in
// place and the runtime checks the result against the ownership rules when
// the instruction returns.
type AccountInfo struct {
	Address    address.Address
	IsSigner   bool
	IsWritable bool
	Account    *Account
}
