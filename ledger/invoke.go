package ledger

import (
	"context"
	"fmt"

	"xdao.co/nftmint/address"
)

// txn is the copy-on-write working set of one executing transaction.
type txn struct {
	ctx      context.Context
	bank     *Bank
	keys     map[address.Address]Privilege
	accounts map[address.Address]*Account
	original map[address.Address]Account
	logs     []string
}

func (t *txn) logf(format string, args ...any) {
	t.logs = append(t.logs, fmt.Sprintf(format, args...))
}

// process runs ix at depth with the privileges carried by its metas.
func (t *txn) process(ix Instruction, depth int) error {
	prog, ok := t.bank.program(ix.ProgramID)
	if !ok {
		return Errorf(KindMalformed, "ledger.program.unknown", "unknown program %s", ix.ProgramID)
	}

	infos := make([]*AccountInfo, len(ix.Accounts))
	pre := make(map[address.Address]Account, len(ix.Accounts))
	writable := make(map[address.Address]bool, len(ix.Accounts))
	signer := make(map[address.Address]bool, len(ix.Accounts))
	for i, m := range ix.Accounts {
		acct, ok := t.accounts[m.Address]
		if !ok {
			return Errorf(KindMalformed, "ledger.account.missing", "account %s is not part of the transaction", m.Address)
		}
		infos[i] = &AccountInfo{Address: m.Address, IsSigner: m.IsSigner, IsWritable: m.IsWritable, Account: acct}
		if _, seen := pre[m.Address]; !seen {
			pre[m.Address] = acct.Clone()
		}
		writable[m.Address] = writable[m.Address] || m.IsWritable
		signer[m.Address] = signer[m.Address] || m.IsSigner
	}

	ic := &InvokeContext{
		txn:       t,
		programID: ix.ProgramID,
		accounts:  infos,
		depth:     depth,
		pre:       pre,
		writable:  writable,
		signer:    signer,
	}

	t.logf("Program %s invoke [%d]", ix.ProgramID, depth)
	if err := prog.Process(ic, ix.Data); err != nil {
		t.logf("Program %s failed: %v", ix.ProgramID, err)
		return err
	}
	if err := ic.verify(); err != nil {
		t.logf("Program %s failed: %v", ix.ProgramID, err)
		return err
	}
	t.logf("Program %s success", ix.ProgramID)
	return nil
}

// InvokeContext is a program's view of the instruction it is executing.
type InvokeContext struct {
	txn       *txn
	programID address.Address
	accounts  []*AccountInfo
	depth     int
	pre       map[address.Address]Account
	writable  map[address.Address]bool
	signer    map[address.Address]bool
}

// Context returns the transaction's context.
func (ic *InvokeContext) Context() context.Context { return ic.txn.ctx }

// ProgramID is the program the runtime dispatched this instruction to.
func (ic *InvokeContext) ProgramID() address.Address { return ic.programID }

// Depth is 1 for top-level instructions and increases with each nested invocation.
func (ic *InvokeContext) Depth() int { return ic.depth }

// Accounts returns the instruction's accounts in positional order.
func (ic *InvokeContext) Accounts() []*AccountInfo { return ic.accounts }

// Account returns the i-th instruction account.
func (ic *InvokeContext) Account(i int) (*AccountInfo, error) {
	if i < 0 || i >= len(ic.accounts) {
		return nil, Errorf(KindMalformed, "ledger.account.not_enough_keys", "instruction needs at least %d accounts, got %d", i+1, len(ic.accounts))
	}
	return ic.accounts[i], nil
}

// Rent returns the bank's rent schedule.
func (ic *InvokeContext) Rent() Rent { return ic.txn.bank.rent }

// Log appends a program log line to the transaction receipt.
func (ic *InvokeContext) Log(format string, args ...any) {
	ic.txn.logf("Program log: "+format, args...)
}

// Invoke performs a cross-program invocation.
//
// Privileges are inherited: an account may be writable in ix only if it is
// writable here, and a signer only if it signs here or is an address derived
// from this program with one of signerSeeds.
func (ic *InvokeContext) Invoke(ix Instruction, signerSeeds ...[][]byte) error {
	if ic.depth+1 > MaxInvokeDepth {
		return Errorf(KindMalformed, "ledger.cpi.depth", "invocation depth %d exceeds %d", ic.depth+1, MaxInvokeDepth)
	}
	if !ic.has(ix.ProgramID) {
		return Errorf(KindMalformed, "ledger.cpi.program_missing", "program %s was not passed to %s", ix.ProgramID, ic.programID)
	}

	derived := make(map[address.Address]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		a, err := address.CreateProgramAddress(seeds, ic.programID)
		if err != nil {
			return WrapError(KindConstraintViolation, "ledger.cpi.signer_seeds", "invalid signer seeds", err)
		}
		derived[a] = true
	}

	for _, m := range ix.Accounts {
		if !ic.has(m.Address) {
			return Errorf(KindMalformed, "ledger.cpi.account_missing", "account %s was not passed to %s", m.Address, ic.programID)
		}
		if m.IsWritable && !ic.writable[m.Address] {
			return Errorf(KindConstraintViolation, "ledger.cpi.writable_escalation", "account %s is not writable in caller", m.Address)
		}
		if m.IsSigner && !ic.signer[m.Address] && !derived[m.Address] {
			return Errorf(KindConstraintViolation, "ledger.cpi.signer_escalation", "account %s did not sign", m.Address)
		}
	}

	if err := ic.verify(); err != nil {
		return err
	}
	if err := ic.txn.process(ix, ic.depth+1); err != nil {
		return err
	}
	for a := range ic.pre {
		ic.pre[a] = ic.txn.accounts[a].Clone()
	}
	return nil
}

func (ic *InvokeContext) has(a address.Address) bool {
	_, ok := ic.pre[a]
	return ok
}

// verify enforces the ownership rules on every account of the instruction.
func (ic *InvokeContext) verify() error {
	var before, after uint64
	for a, prev := range ic.pre {
		cur := ic.txn.accounts[a]
		before += prev.Lamports
		after += cur.Lamports

		if prev.Equal(*cur) {
			continue
		}
		if !ic.writable[a] {
			return Errorf(KindConstraintViolation, "ledger.rule.readonly_modified", "program %s modified read-only account %s", ic.programID, a)
		}
		if prev.Executable != cur.Executable {
			return Errorf(KindConstraintViolation, "ledger.rule.executable_modified", "program %s changed executable flag of %s", ic.programID, a)
		}
		if prev.Owner != ic.programID {
			if prev.Owner != cur.Owner {
				return Errorf(KindConstraintViolation, "ledger.rule.owner_modified", "program %s reassigned account %s it does not own", ic.programID, a)
			}
			if string(prev.Data) != string(cur.Data) {
				return Errorf(KindConstraintViolation, "ledger.rule.external_data_modified", "program %s modified data of account %s it does not own", ic.programID, a)
			}
			if cur.Lamports < prev.Lamports {
				return Errorf(KindConstraintViolation, "ledger.rule.external_spend", "program %s debited account %s it does not own", ic.programID, a)
			}
			continue
		}
		if prev.Owner != cur.Owner && !zeroed(cur.Data) {
			return Errorf(KindConstraintViolation, "ledger.rule.owner_modified", "account %s can only be reassigned with zeroed data", a)
		}
	}
	if before != after {
		return Errorf(KindConstraintViolation, "ledger.rule.unbalanced", "program %s changed total lamports from %d to %d", ic.programID, before, after)
	}
	return nil
}

func zeroed(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
