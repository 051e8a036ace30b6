package testkit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/nftmint/cidutil"
	"xdao.co/nftmint/storage"
)

// NewSnapshotStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewSnapshotStore func(t *testing.T) storage.SnapshotStore

// RunSnapshotStoreConformance checks the storage.CAS and storage.Refs
// contracts against a backend.
func RunSnapshotStoreConformance(t *testing.T, newStore NewSnapshotStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte("hello, nftmint snapshots")

		id, err := s.Put(ctx, want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := cidutil.Sum(want)
		if err != nil {
			t.Fatalf("Sum failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same bytes")

		id1, err := s.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := s.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing")
		id, err := cidutil.Sum(b)
		if err != nil {
			t.Fatalf("Sum failed: %v", err)
		}

		if ok, err := s.Has(ctx, id); err != nil || ok {
			t.Fatalf("Has(missing) = %v, %v; want false, nil", ok, err)
		}
		if _, err := s.Get(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := s.Put(ctx, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if ok, err := s.Has(ctx, id); err != nil || !ok {
			t.Fatalf("Has after Put = %v, %v; want true, nil", ok, err)
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		if ok, _ := s.Has(ctx, undef); ok {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := s.Get(ctx, undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})

	t.Run("RefMoves", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Ref(ctx, "latest"); !storage.IsNotFound(err) {
			t.Fatalf("Ref before SetRef: got %v want ErrNotFound", err)
		}
		first, err := s.Put(ctx, []byte("first"))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		second, err := s.Put(ctx, []byte("second"))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		for _, id := range []cid.Cid{first, second} {
			if err := s.SetRef(ctx, "latest", id); err != nil {
				t.Fatalf("SetRef failed: %v", err)
			}
			got, err := s.Ref(ctx, "latest")
			if err != nil {
				t.Fatalf("Ref failed: %v", err)
			}
			if got != id {
				t.Fatalf("Ref = %s, want %s", got, id)
			}
		}
		if _, err := s.Get(ctx, first); err != nil {
			t.Fatalf("moving a ref must keep old blocks: %v", err)
		}
	})

	t.Run("RefRequiresStoredBlock", func(t *testing.T) {
		s := newStore(t)
		id, err := cidutil.Sum([]byte("never stored"))
		if err != nil {
			t.Fatalf("Sum failed: %v", err)
		}
		if err := s.SetRef(ctx, "latest", id); !storage.IsNotFound(err) {
			t.Fatalf("SetRef on missing block: got %v want ErrNotFound", err)
		}
	})

	t.Run("RefNameChecked", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Put(ctx, []byte("x"))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		for _, name := range []string{"", "../escape", ".hidden", "Upper"} {
			if err := s.SetRef(ctx, name, id); !errors.Is(err, storage.ErrInvalidRef) {
				t.Fatalf("SetRef(%q): got %v want ErrInvalidRef", name, err)
			}
		}
	})
}
