package ledger

import "xdao.co/nftmint/address"

// MaxInvokeDepth bounds nested cross-program invocation. Top-level
// instructions run at depth 1.
const MaxInvokeDepth = 4

// Program is an executable subsystem hosted by the Bank.
//
// Process runs one instruction. It reads and mutates the accounts exposed by
// ic and reports failure by returning an error; the runtime then discards
// every tentative write of the whole transaction.
type Program interface {
	ID() address.Address
	Process(ic *InvokeContext, data []byte) error
}
