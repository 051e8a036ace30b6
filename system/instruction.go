package system

import (
	"encoding/binary"

	"github.com/near/borsh-go"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
)

func encode(tag uint32, args any) []byte {
	body, err := borsh.Serialize(args)
	if err != nil {
		// Argument structs are fixed-width; serialization cannot fail.
		panic(err)
	}
	return append(binary.LittleEndian.AppendUint32(nil, tag), body...)
}

// CreateAccount funds a new account at to with lamports, allocates space
// bytes and assigns it to owner. Both from and to must sign.
func CreateAccount(from, to address.Address, lamports, space uint64, owner address.Address) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: address.SystemProgram,
		Accounts:  []ledger.AccountMeta{ledger.Writable(from, true), ledger.Writable(to, true)},
		Data:      encode(TagCreateAccount, createAccountArgs{Lamports: lamports, Space: space, Owner: owner}),
	}
}

func Assign(acct, owner address.Address) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: address.SystemProgram,
		Accounts:  []ledger.AccountMeta{ledger.Writable(acct, true)},
		Data:      encode(TagAssign, assignArgs{Owner: owner}),
	}
}

func Transfer(from, to address.Address, lamports uint64) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: address.SystemProgram,
		Accounts:  []ledger.AccountMeta{ledger.Writable(from, true), ledger.Writable(to, false)},
		Data:      encode(TagTransfer, transferArgs{Lamports: lamports}),
	}
}

func Allocate(acct address.Address, space uint64) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: address.SystemProgram,
		Accounts:  []ledger.AccountMeta{ledger.Writable(acct, true)},
		Data:      encode(TagAllocate, allocateArgs{Space: space}),
	}
}
