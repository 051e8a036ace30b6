// Package snapshot captures a bank's committed state as one content-addressed
// block and restores banks from such blocks.
//
// A snapshot holds every stored account in ascending address order, the slot
// and the recent blockhash window, so a restored bank accepts exactly the
// transactions the original would have.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ipfs/go-cid"
	"github.com/near/borsh-go"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/cidutil"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/storage"
)

// Version is the encoding version written by Encode.
const Version uint8 = 1

// LatestRef is the ref Write moves by default.
const LatestRef = "latest"

var (
	ErrVersion       = errors.New("snapshot: unsupported version")
	ErrNotCanonical  = errors.New("snapshot: entries not in strictly ascending order")
	ErrNoBlockhashes = errors.New("snapshot: empty blockhash window")
	ErrStoreNotEmpty = errors.New("snapshot: restore target already holds accounts")
)

// Entry is one stored account.
type Entry struct {
	Address    address.Address
	Lamports   uint64
	Owner      address.Address
	Executable bool
	Data       []byte
}

// Processed records a signature the bank will still reject as a replay.
type Processed struct {
	Signature ledger.Signature
	Slot      uint64
}

type Snapshot struct {
	Version     uint8
	Slot        uint64
	Blockhashes []ledger.Hash
	// Processed is sorted by signature bytes.
	Processed []Processed
	Accounts  []Entry
}

// Capture reads bank's state with commits paused.
func Capture(ctx context.Context, bank *ledger.Bank) (*Snapshot, error) {
	var snap *Snapshot
	err := bank.View(ctx, func(st ledger.State) error {
		s := &Snapshot{Version: Version, Slot: st.Slot, Blockhashes: st.Blockhashes}
		for sig, slot := range st.Processed {
			s.Processed = append(s.Processed, Processed{Signature: sig, Slot: slot})
		}
		sort.Slice(s.Processed, func(i, j int) bool {
			return bytes.Compare(s.Processed[i].Signature[:], s.Processed[j].Signature[:]) < 0
		})
		err := bank.Store().Range(ctx, func(a address.Address, acct ledger.Account) error {
			s.Accounts = append(s.Accounts, Entry{
				Address:    a,
				Lamports:   acct.Lamports,
				Owner:      acct.Owner,
				Executable: acct.Executable,
				Data:       acct.Data,
			})
			return nil
		})
		if err != nil {
			return err
		}
		snap = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: capture: %w", err)
	}
	return snap, nil
}

// Encode returns the canonical borsh encoding of s.
func (s *Snapshot) Encode() ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return borsh.Serialize(*s)
}

// Decode parses and checks an encoded snapshot.
func Decode(b []byte) (*Snapshot, error) {
	var s Snapshot
	if err := borsh.Deserialize(&s, b); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Snapshot) check() error {
	if s.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	if len(s.Blockhashes) == 0 || len(s.Blockhashes) > ledger.MaxRecentBlockhashes {
		return ErrNoBlockhashes
	}
	for i := 1; i < len(s.Processed); i++ {
		if bytes.Compare(s.Processed[i-1].Signature[:], s.Processed[i].Signature[:]) >= 0 {
			return ErrNotCanonical
		}
	}
	for i := 1; i < len(s.Accounts); i++ {
		if s.Accounts[i-1].Address.Compare(s.Accounts[i].Address) >= 0 {
			return ErrNotCanonical
		}
	}
	return nil
}

// Write captures bank, stores the block in dst and moves ref to it. An empty
// ref leaves refs untouched.
func Write(ctx context.Context, bank *ledger.Bank, dst storage.SnapshotStore, ref string) (cid.Cid, *Snapshot, error) {
	snap, err := Capture(ctx, bank)
	if err != nil {
		return cid.Undef, nil, err
	}
	b, err := snap.Encode()
	if err != nil {
		return cid.Undef, nil, err
	}
	id, err := dst.Put(ctx, b)
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("snapshot: put: %w", err)
	}
	if ref != "" {
		if err := dst.SetRef(ctx, ref, id); err != nil {
			return cid.Undef, nil, fmt.Errorf("snapshot: set ref: %w", err)
		}
	}
	return id, snap, nil
}

// Load fetches and decodes the snapshot stored under id. The bytes are
// checked against id even if the store already does so.
func Load(ctx context.Context, src storage.CAS, id cid.Cid) (*Snapshot, error) {
	b, err := src.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot: get %s: %w", id, err)
	}
	if !cidutil.Matches(id, b) {
		return nil, fmt.Errorf("snapshot: get %s: %w", id, storage.ErrCIDMismatch)
	}
	return Decode(b)
}

// LoadRef resolves ref and loads the snapshot it points at. found is false
// when ref was never set.
func LoadRef(ctx context.Context, src storage.SnapshotStore, ref string) (snap *Snapshot, id cid.Cid, found bool, err error) {
	id, err = src.Ref(ctx, ref)
	if storage.IsNotFound(err) {
		return nil, cid.Undef, false, nil
	}
	if err != nil {
		return nil, cid.Undef, false, fmt.Errorf("snapshot: ref %q: %w", ref, err)
	}
	snap, err = Load(ctx, src, id)
	if err != nil {
		return nil, cid.Undef, false, err
	}
	return snap, id, true, nil
}

// Restore writes the snapshot's accounts into the empty store dst in one
// commit, together with the history when dst is a ledger.HistoryStore, and
// returns the bank option that resumes its slot, blockhashes and
// replay protection.
func (s *Snapshot) Restore(ctx context.Context, dst ledger.AccountStore) (ledger.Option, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	errNonEmpty := errors.New("non-empty")
	err := dst.Range(ctx, func(address.Address, ledger.Account) error { return errNonEmpty })
	if errors.Is(err, errNonEmpty) {
		return nil, ErrStoreNotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: restore: %w", err)
	}

	updates := make([]ledger.AccountUpdate, 0, len(s.Accounts))
	for _, e := range s.Accounts {
		updates = append(updates, ledger.AccountUpdate{
			Address: e.Address,
			Account: ledger.Account{
				Lamports:   e.Lamports,
				Owner:      e.Owner,
				Executable: e.Executable,
				Data:       e.Data,
			},
		})
	}
	st := ledger.State{
		Slot:        s.Slot,
		Blockhashes: s.Blockhashes,
		Processed:   make(map[ledger.Signature]uint64, len(s.Processed)),
	}
	for _, p := range s.Processed {
		st.Processed[p.Signature] = p.Slot
	}
	// A history store records the restored window with the accounts, so it
	// resumes correctly without the snapshot next time.
	if hs, ok := dst.(ledger.HistoryStore); ok {
		err = hs.CommitState(ctx, updates, st)
	} else if len(updates) > 0 {
		err = dst.Commit(ctx, updates)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: restore: %w", err)
	}
	return ledger.WithState(st), nil
}
