package ledger

import "context"

// Progress is what one commit appends to a bank's history. A zero Signature
// marks a faucet credit.
type Progress struct {
	Slot      uint64
	Blockhash Hash
	Signature Signature
}

// HistoryStore is an AccountStore that records bank history in the same
// atomic step as the accounts, so a bank reopened over it keeps rejecting
// replays.
type HistoryStore interface {
	AccountStore
	// CommitProgress applies updates and appends p.
	CommitProgress(ctx context.Context, updates []AccountUpdate, p Progress) error
	// CommitState applies updates and replaces the recorded history with st.
	CommitState(ctx context.Context, updates []AccountUpdate, st State) error
	// History returns the recorded state, windowed to MaxRecentBlockhashes.
	// found is false when nothing was recorded.
	History(ctx context.Context) (st State, found bool, err error)
}

// Resume returns the option continuing from the history recorded in store,
// or nil when store records none.
func Resume(ctx context.Context, store AccountStore) (Option, error) {
	hs, ok := store.(HistoryStore)
	if !ok {
		return nil, nil
	}
	st, found, err := hs.History(ctx)
	if err != nil {
		return nil, WrapError(KindInternal, "ledger.store.history", "load history", err)
	}
	if !found {
		return nil, nil
	}
	return WithState(st), nil
}

// advance moves st forward by p. Blockhashes and processed signatures older
// than the window are dropped.
func (st *State) advance(p Progress) {
	st.Slot = p.Slot
	st.Blockhashes = append(st.Blockhashes, p.Blockhash)
	if len(st.Blockhashes) > MaxRecentBlockhashes {
		st.Blockhashes = st.Blockhashes[len(st.Blockhashes)-MaxRecentBlockhashes:]
	}
	if st.Processed == nil {
		st.Processed = make(map[Signature]uint64)
	}
	for s, slot := range st.Processed {
		if st.Slot-slot >= MaxRecentBlockhashes {
			delete(st.Processed, s)
		}
	}
	if p.Signature != (Signature{}) {
		st.Processed[p.Signature] = p.Slot
	}
}

func (st State) clone() State {
	out := State{
		Slot:        st.Slot,
		Blockhashes: append([]Hash(nil), st.Blockhashes...),
		Processed:   make(map[Signature]uint64, len(st.Processed)),
	}
	for sig, slot := range st.Processed {
		out.Processed[sig] = slot
	}
	return out
}
