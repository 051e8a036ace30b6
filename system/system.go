// Package system implements the ledger's account allocator: it creates
// accounts, moves lamports between system-owned accounts and hands accounts
// over to other programs.
//
// Instruction data uses the allocator's native layout: a little-endian u32
// tag followed by the fixed-width fields of the instruction.
package system

import (
	"encoding/binary"

	"github.com/near/borsh-go"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
)

// MaxPermittedDataLength bounds the space a single account may allocate.
const MaxPermittedDataLength = 10 * 1024 * 1024

// Instruction tags.
const (
	TagCreateAccount uint32 = 0
	TagAssign        uint32 = 1
	TagTransfer      uint32 = 2
	TagAllocate      uint32 = 8
)

type createAccountArgs struct {
	Lamports uint64
	Space    uint64
	Owner    address.Address
}

type assignArgs struct {
	Owner address.Address
}

type transferArgs struct {
	Lamports uint64
}

type allocateArgs struct {
	Space uint64
}

// Program is the system program.
type Program struct{}

var _ ledger.Program = Program{}

func New() Program { return Program{} }

func (Program) ID() address.Address { return address.SystemProgram }

func (p Program) Process(ic *ledger.InvokeContext, data []byte) error {
	if len(data) < 4 {
		return ledger.NewError(ledger.KindMalformed, "system.instruction.short", "instruction data too short")
	}
	tag := binary.LittleEndian.Uint32(data)
	body := data[4:]
	switch tag {
	case TagCreateAccount:
		var args createAccountArgs
		if err := decode(body, 48, &args); err != nil {
			return err
		}
		return createAccount(ic, args)
	case TagAssign:
		var args assignArgs
		if err := decode(body, 32, &args); err != nil {
			return err
		}
		return assign(ic, args.Owner)
	case TagTransfer:
		var args transferArgs
		if err := decode(body, 8, &args); err != nil {
			return err
		}
		return transfer(ic, args.Lamports)
	case TagAllocate:
		var args allocateArgs
		if err := decode(body, 8, &args); err != nil {
			return err
		}
		return allocate(ic, args.Space)
	default:
		return ledger.Errorf(ledger.KindMalformed, "system.instruction.unknown", "unknown system instruction %d", tag)
	}
}

func decode(body []byte, want int, v any) error {
	if len(body) != want {
		return ledger.Errorf(ledger.KindMalformed, "system.instruction.length", "expected %d bytes of arguments, got %d", want, len(body))
	}
	if err := borsh.Deserialize(v, body); err != nil {
		return ledger.WrapError(ledger.KindMalformed, "system.instruction.decode", "decode arguments", err)
	}
	return nil
}

func requireSigner(info *ledger.AccountInfo, check string) error {
	if !info.IsSigner {
		return ledger.Errorf(ledger.KindConstraintViolation, check, "account %s must sign", info.Address)
	}
	return nil
}

func inUse(a *ledger.Account) bool {
	return a.Lamports > 0 || len(a.Data) > 0 || a.Owner != address.SystemProgram
}

func createAccount(ic *ledger.InvokeContext, args createAccountArgs) error {
	from, err := ic.Account(0)
	if err != nil {
		return err
	}
	to, err := ic.Account(1)
	if err != nil {
		return err
	}
	if err := requireSigner(from, "system.create_account.from_signer"); err != nil {
		return err
	}
	if err := requireSigner(to, "system.create_account.to_signer"); err != nil {
		return err
	}
	if inUse(to.Account) {
		return ledger.Errorf(ledger.KindAlreadyInitialized, "system.create_account.in_use", "account %s already in use", to.Address)
	}
	if args.Space > MaxPermittedDataLength {
		return ledger.Errorf(ledger.KindMalformed, "system.create_account.space", "space %d exceeds %d", args.Space, MaxPermittedDataLength)
	}
	if err := debit(from, args.Lamports, "system.create_account.funds"); err != nil {
		return err
	}
	to.Account.Lamports = args.Lamports
	to.Account.Data = make([]byte, args.Space)
	to.Account.Owner = args.Owner
	ic.Log("created %s (%d bytes, owner %s)", to.Address, args.Space, args.Owner)
	return nil
}

func assign(ic *ledger.InvokeContext, owner address.Address) error {
	acct, err := ic.Account(0)
	if err != nil {
		return err
	}
	if acct.Account.Owner == owner {
		return nil
	}
	if err := requireSigner(acct, "system.assign.signer"); err != nil {
		return err
	}
	acct.Account.Owner = owner
	return nil
}

func transfer(ic *ledger.InvokeContext, lamports uint64) error {
	from, err := ic.Account(0)
	if err != nil {
		return err
	}
	to, err := ic.Account(1)
	if err != nil {
		return err
	}
	if err := requireSigner(from, "system.transfer.signer"); err != nil {
		return err
	}
	if len(from.Account.Data) > 0 {
		return ledger.Errorf(ledger.KindInvalidAccountData, "system.transfer.from_data", "transfer source %s carries data", from.Address)
	}
	if err := debit(from, lamports, "system.transfer.funds"); err != nil {
		return err
	}
	if to.Account.Lamports+lamports < to.Account.Lamports {
		return ledger.Errorf(ledger.KindOverflow, "system.transfer.overflow", "balance of %s overflows", to.Address)
	}
	to.Account.Lamports += lamports
	return nil
}

func allocate(ic *ledger.InvokeContext, space uint64) error {
	acct, err := ic.Account(0)
	if err != nil {
		return err
	}
	if err := requireSigner(acct, "system.allocate.signer"); err != nil {
		return err
	}
	if len(acct.Account.Data) > 0 || acct.Account.Owner != address.SystemProgram {
		return ledger.Errorf(ledger.KindAlreadyInitialized, "system.allocate.in_use", "account %s already in use", acct.Address)
	}
	if space > MaxPermittedDataLength {
		return ledger.Errorf(ledger.KindMalformed, "system.allocate.space", "space %d exceeds %d", space, MaxPermittedDataLength)
	}
	acct.Account.Data = make([]byte, space)
	return nil
}

func debit(from *ledger.AccountInfo, lamports uint64, check string) error {
	if from.Account.Lamports < lamports {
		return ledger.Errorf(ledger.KindInsufficientFunds, check, "account %s has %d lamports, needs %d", from.Address, from.Account.Lamports, lamports)
	}
	from.Account.Lamports -= lamports
	return nil
}
