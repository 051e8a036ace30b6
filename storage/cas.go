package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// CAS is a content-addressable block store. Ledger snapshots are written to
// it as single blocks.
//
// Contract:
// - Put MUST be idempotent.
// - Stored blocks MUST be immutable.
// - CIDs MUST be derived from the bytes written (CIDv1, raw, sha2-256).
// - Get MUST return ErrNotFound when the CID is absent and ErrCIDMismatch
//   when the stored bytes no longer hash to it.
type CAS interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) (bool, error)
}

// Refs names blocks. A ref is the only mutable state in a snapshot store;
// moving it never touches the blocks it points at.
type Refs interface {
	SetRef(ctx context.Context, name string, id cid.Cid) error
	// Ref returns ErrNotFound for a name that was never set.
	Ref(ctx context.Context, name string) (cid.Cid, error)
}

// SnapshotStore is what the snapshot package writes to.
type SnapshotStore interface {
	CAS
	Refs
}
