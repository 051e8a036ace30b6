package ledger

import (
	"context"
	"sort"
	"sync"

	"xdao.co/nftmint/address"
)

// AccountUpdate is one entry of an atomic commit.
type AccountUpdate struct {
	Address address.Address
	Account Account
	// Delete removes the account (it reads as empty afterwards).
	Delete bool
}

// AccountStore persists committed account state.
//
// Contract:
//   - Get returns found=false for addresses with no stored state.
//   - Commit MUST apply all updates or none.
//   - Range visits accounts in ascending address order.
type AccountStore interface {
	Get(ctx context.Context, addr address.Address) (Account, bool, error)
	Commit(ctx context.Context, updates []AccountUpdate) error
	Range(ctx context.Context, fn func(address.Address, Account) error) error
}

// MemoryStore is an in-process HistoryStore.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[address.Address]Account
	history  *State
}

var _ HistoryStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[address.Address]Account)}
}

func (s *MemoryStore) Get(ctx context.Context, addr address.Address) (Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[addr]
	if !ok {
		return Account{}, false, nil
	}
	return a.Clone(), true, nil
}

func (s *MemoryStore) Commit(ctx context.Context, updates []AccountUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(updates)
	return nil
}

func (s *MemoryStore) applyLocked(updates []AccountUpdate) {
	for _, u := range updates {
		if u.Delete {
			delete(s.accounts, u.Address)
			continue
		}
		s.accounts[u.Address] = u.Account.Clone()
	}
}

// CommitProgress appends p to the history. A store with no history starts
// from genesis.
func (s *MemoryStore) CommitProgress(ctx context.Context, updates []AccountUpdate, p Progress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(updates)
	if s.history == nil {
		s.history = &State{Blockhashes: []Hash{GenesisBlockhash}}
	}
	s.history.advance(p)
	return nil
}

func (s *MemoryStore) CommitState(ctx context.Context, updates []AccountUpdate, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(updates)
	h := st.clone()
	s.history = &h
	return nil
}

func (s *MemoryStore) History(ctx context.Context) (State, bool, error) {
	if err := ctx.Err(); err != nil {
		return State{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.history == nil {
		return State{}, false, nil
	}
	return s.history.clone(), true, nil
}

func (s *MemoryStore) Range(ctx context.Context, fn func(address.Address, Account) error) error {
	s.mu.RLock()
	keys := make([]address.Address, 0, len(s.accounts))
	for k := range s.accounts {
		keys = append(keys, k)
	}
	snapshot := make(map[address.Address]Account, len(keys))
	for _, k := range keys {
		snapshot[k] = s.accounts[k].Clone()
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k, snapshot[k]); err != nil {
			return err
		}
	}
	return nil
}
