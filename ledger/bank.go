package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"xdao.co/nftmint/address"
)

const (
	// DefaultLamportsPerSignature is the fee charged per transaction signature.
	DefaultLamportsPerSignature = 5000

	// MaxRecentBlockhashes is how many blockhashes stay valid for new transactions.
	MaxRecentBlockhashes = 150

	tracerName = "xdao.co/nftmint/ledger"
)

// GenesisBlockhash is the blockhash of a fresh bank.
var GenesisBlockhash = nextBlockhash(Hash{}, []byte("xdao-nftmint-genesis"))

// Receipt describes a committed (or attempted) transaction.
type Receipt struct {
	Signature Signature
	Slot      uint64
	Fee       uint64
	Logs      []string
}

// Bank executes transactions against an AccountStore.
//
// A transaction either commits every change it made, fee included, in one
// AccountStore.Commit, or leaves no trace. Transactions touching disjoint
// writable accounts run concurrently; overlapping ones are serialized by
// account locks.
type Bank struct {
	store                AccountStore
	rent                 Rent
	lamportsPerSignature uint64
	logger               *zap.Logger
	tracer               trace.Tracer
	locks                *lockTable

	progMu   sync.RWMutex
	programs map[address.Address]Program

	mu    sync.Mutex
	state State
}

// Option configures a Bank.
type Option func(*Bank)

// WithStore sets the backing AccountStore. Defaults to a MemoryStore.
func WithStore(s AccountStore) Option { return func(b *Bank) { b.store = s } }

// WithRent overrides the rent schedule.
func WithRent(r Rent) Option { return func(b *Bank) { b.rent = r } }

// WithLamportsPerSignature overrides the fee schedule.
func WithLamportsPerSignature(n uint64) Option {
	return func(b *Bank) { b.lamportsPerSignature = n }
}

func WithLogger(l *zap.Logger) Option { return func(b *Bank) { b.logger = l } }

func WithTracer(t trace.Tracer) Option { return func(b *Bank) { b.tracer = t } }

// State is a bank's position in its history.
type State struct {
	Slot uint64
	// Blockhashes are the valid recent blockhashes, oldest first.
	Blockhashes []Hash
	// Processed maps signatures still inside the window to their slot.
	Processed map[Signature]uint64
}

// WithState resumes a bank at st, e.g. after restoring a snapshot. A state
// with no blockhashes is ignored.
func WithState(st State) Option {
	return func(b *Bank) {
		if len(st.Blockhashes) == 0 {
			return
		}
		b.state = st.clone()
	}
}

// NewBank returns a bank at genesis.
func NewBank(opts ...Option) *Bank {
	b := &Bank{
		rent:                 DefaultRent(),
		lamportsPerSignature: DefaultLamportsPerSignature,
		locks:                newLockTable(),
		programs:             make(map[address.Address]Program),
		state: State{
			Blockhashes: []Hash{GenesisBlockhash},
			Processed:   make(map[Signature]uint64),
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.store == nil {
		b.store = NewMemoryStore()
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.tracer == nil {
		b.tracer = otel.Tracer(tracerName)
	}
	return b
}

// Register installs programs, replacing any program already registered under
// the same id.
func (b *Bank) Register(programs ...Program) {
	b.progMu.Lock()
	defer b.progMu.Unlock()
	for _, p := range programs {
		b.programs[p.ID()] = p
	}
}

func (b *Bank) program(id address.Address) (Program, bool) {
	b.progMu.RLock()
	defer b.progMu.RUnlock()
	p, ok := b.programs[id]
	return p, ok
}

func (b *Bank) Rent() Rent { return b.rent }

func (b *Bank) LamportsPerSignature() uint64 { return b.lamportsPerSignature }

// Slot returns the number of committed state transitions.
func (b *Bank) Slot() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Slot
}

// LatestBlockhash returns the blockhash new transactions should reference.
func (b *Bank) LatestBlockhash() Hash {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Blockhashes[len(b.state.Blockhashes)-1]
}

// RecentBlockhashes returns the valid blockhashes, oldest first.
func (b *Bank) RecentBlockhashes() []Hash {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Hash(nil), b.state.Blockhashes...)
}

// View runs fn while commits are paused, so the State it receives matches the
// store's contents for fn's whole duration. fn must not call back into the
// bank's write paths.
func (b *Bank) View(ctx context.Context, fn func(State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(b.state.clone())
}

// Store returns the bank's backing store.
func (b *Bank) Store() AccountStore { return b.store }

// Account returns the committed state at addr. Built-in program and sysvar
// accounts are synthesized. found is false when nothing is stored.
func (b *Bank) Account(ctx context.Context, addr address.Address) (Account, bool, error) {
	if a, ok := b.builtin(addr); ok {
		return a, true, nil
	}
	return b.store.Get(ctx, addr)
}

func (b *Bank) builtin(addr address.Address) (Account, bool) {
	if addr == address.RentSysvar {
		data := b.rent.Encode()
		return Account{Lamports: b.rent.MinimumBalance(len(data)), Owner: address.SysvarOwner, Data: data}, true
	}
	if _, ok := b.program(addr); ok {
		return Account{Lamports: 1, Owner: address.NativeLoader, Executable: true}, true
	}
	return Account{}, false
}

// Airdrop credits lamports to addr outside of any transaction. It is the
// development faucet; it commits and advances the slot like a transaction.
func (b *Bank) Airdrop(ctx context.Context, addr address.Address, lamports uint64) (*Receipt, error) {
	if _, ok := b.builtin(addr); ok {
		return nil, Errorf(KindMalformed, "ledger.airdrop.builtin", "cannot airdrop to built-in account %s", addr)
	}
	release, err := b.locks.acquire(ctx, []address.Address{addr}, nil)
	if err != nil {
		return nil, err
	}
	defer release()

	acct, _, err := b.store.Get(ctx, addr)
	if err != nil {
		return nil, WrapError(KindInternal, "ledger.store.get", "load account", err)
	}
	if acct.Lamports+lamports < acct.Lamports {
		return nil, Errorf(KindOverflow, "ledger.airdrop.overflow", "airdrop overflows balance of %s", addr)
	}
	acct.Lamports += lamports

	entropy := make([]byte, 0, address.Size+8)
	entropy = append(entropy, addr[:]...)
	entropy = binary.LittleEndian.AppendUint64(entropy, lamports)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.commitLocked(ctx, []AccountUpdate{{Address: addr, Account: acct}}, entropy, Signature{}); err != nil {
		return nil, WrapError(KindInternal, "ledger.store.commit", "commit airdrop", err)
	}
	b.logger.Debug("airdrop", zap.Stringer("address", addr), zap.Uint64("lamports", lamports), zap.Uint64("slot", b.state.Slot))
	return &Receipt{Slot: b.state.Slot}, nil
}

// Execute runs tx atomically.
//
// The returned Receipt carries program logs even when err is non-nil; on
// error no state (fee included) was committed.
func (b *Bank) Execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	ctx, span := b.tracer.Start(ctx, "ledger.Execute")
	defer span.End()

	receipt, err := b.execute(ctx, tx)
	if receipt != nil {
		span.SetAttributes(
			attribute.String("tx.signature", receipt.Signature.String()),
			attribute.Int64("tx.slot", int64(receipt.Slot)),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		b.logger.Info("transaction aborted",
			zap.String("kind", string(KindOf(err))),
			zap.String("check", CheckOf(err)),
			zap.String("step", StepOf(err)),
			zap.Error(err),
		)
		return receipt, err
	}
	b.logger.Debug("transaction committed",
		zap.Stringer("signature", receipt.Signature),
		zap.Uint64("slot", receipt.Slot),
		zap.Uint64("fee", receipt.Fee),
	)
	return receipt, nil
}

func (b *Bank) execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	if err := b.sanitize(tx); err != nil {
		return nil, err
	}
	if err := tx.Verify(); err != nil {
		return nil, err
	}
	sig := tx.ID()
	receipt := &Receipt{Signature: sig}
	if err := b.checkAge(tx); err != nil {
		return receipt, err
	}

	keys := tx.Message.AccountKeys()
	var writable, readonly []address.Address
	for _, k := range keys {
		if k.IsWritable {
			writable = append(writable, k.Address)
		} else {
			readonly = append(readonly, k.Address)
		}
	}
	release, err := b.locks.acquire(ctx, writable, readonly)
	if err != nil {
		return receipt, err
	}
	defer release()

	t := &txn{
		ctx:      ctx,
		bank:     b,
		keys:     make(map[address.Address]Privilege, len(keys)),
		accounts: make(map[address.Address]*Account, len(keys)),
		original: make(map[address.Address]Account, len(keys)),
	}
	for _, k := range keys {
		acct, _, err := b.Account(ctx, k.Address)
		if err != nil {
			return receipt, WrapError(KindInternal, "ledger.store.get", "load account", err)
		}
		t.keys[k.Address] = k
		t.original[k.Address] = acct.Clone()
		working := acct.Clone()
		t.accounts[k.Address] = &working
	}

	fee := b.lamportsPerSignature * uint64(len(tx.Signatures))
	payer := t.accounts[tx.Message.FeePayer]
	if payer.Owner != address.SystemProgram {
		return receipt, Errorf(KindInvalidAccountData, "ledger.fee_payer.owner", "fee payer %s is not a system account", tx.Message.FeePayer)
	}
	if payer.Lamports < fee {
		return receipt, Errorf(KindInsufficientFunds, "ledger.fee_payer.balance", "fee payer %s cannot cover fee of %d lamports", tx.Message.FeePayer, fee)
	}
	payer.Lamports -= fee
	receipt.Fee = fee

	for _, ix := range tx.Message.Instructions {
		if err := t.process(ix, 1); err != nil {
			receipt.Logs = t.logs
			return receipt, err
		}
	}
	receipt.Logs = t.logs

	updates, err := t.collect()
	if err != nil {
		return receipt, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.state.Processed[sig]; dup {
		return receipt, Errorf(KindAlreadyProcessed, "ledger.tx.already_processed", "transaction %s already processed", sig)
	}
	if !b.recentLocked(tx.Message.RecentBlockhash) {
		return receipt, Errorf(KindMalformed, "ledger.tx.blockhash", "blockhash %s expired", tx.Message.RecentBlockhash)
	}
	if err := b.commitLocked(ctx, updates, sig[:], sig); err != nil {
		return receipt, WrapError(KindInternal, "ledger.store.commit", "commit transaction", err)
	}
	receipt.Slot = b.state.Slot
	return receipt, nil
}

func (b *Bank) sanitize(tx *Transaction) error {
	if tx == nil {
		return NewError(KindMalformed, "ledger.tx.nil", "nil transaction")
	}
	if len(tx.Message.Instructions) == 0 {
		return NewError(KindMalformed, "ledger.tx.empty", "transaction has no instructions")
	}
	for _, k := range tx.Message.AccountKeys() {
		if !k.IsWritable {
			continue
		}
		if _, ok := b.builtin(k.Address); ok {
			return Errorf(KindMalformed, "ledger.tx.writable_builtin", "built-in account %s cannot be writable", k.Address)
		}
	}
	return nil
}

func (b *Bank) checkAge(tx *Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.state.Processed[tx.ID()]; dup {
		return Errorf(KindAlreadyProcessed, "ledger.tx.already_processed", "transaction %s already processed", tx.ID())
	}
	if !b.recentLocked(tx.Message.RecentBlockhash) {
		return Errorf(KindMalformed, "ledger.tx.blockhash", "blockhash %s not found", tx.Message.RecentBlockhash)
	}
	return nil
}

func (b *Bank) recentLocked(h Hash) bool {
	for _, r := range b.state.Blockhashes {
		if r == h {
			return true
		}
	}
	return false
}

// commitLocked writes updates and the slot they open. History stores
// receive both in one atomic step; the bank advances only after the store
// accepted them.
func (b *Bank) commitLocked(ctx context.Context, updates []AccountUpdate, entropy []byte, sig Signature) error {
	p := Progress{
		Slot:      b.state.Slot + 1,
		Blockhash: nextBlockhash(b.state.Blockhashes[len(b.state.Blockhashes)-1], entropy),
		Signature: sig,
	}
	var err error
	if hs, ok := b.store.(HistoryStore); ok {
		err = hs.CommitProgress(ctx, updates, p)
	} else {
		err = b.store.Commit(ctx, updates)
	}
	if err != nil {
		return err
	}
	b.state.advance(p)
	return nil
}

// collect enforces the end-of-transaction rent rule and returns the changes
// to commit in address order.
func (t *txn) collect() ([]AccountUpdate, error) {
	rent := t.bank.rent
	var updates []AccountUpdate
	for a, cur := range t.accounts {
		if !t.keys[a].IsWritable {
			continue
		}
		prev := t.original[a]
		if prev.Equal(*cur) {
			continue
		}
		if rentPaying(rent, *cur) {
			grandfathered := rentPaying(rent, prev) && len(prev.Data) == len(cur.Data) && cur.Lamports <= prev.Lamports
			if !grandfathered {
				return nil, Errorf(KindInsufficientFunds, "ledger.rent", "account %s would be left below the rent-exempt minimum", a)
			}
		}
		if cur.Lamports == 0 {
			updates = append(updates, AccountUpdate{Address: a, Delete: true})
			continue
		}
		updates = append(updates, AccountUpdate{Address: a, Account: cur.Clone()})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Address.Compare(updates[j].Address) < 0 })
	return updates, nil
}

func rentPaying(r Rent, a Account) bool {
	return a.Lamports > 0 && !r.IsExempt(a.Lamports, len(a.Data))
}

// IsContextError reports whether err came from context cancellation.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
