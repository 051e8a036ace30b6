package storage

import (
	"context"
	"errors"

	"github.com/ipfs/go-cid"

	"xdao.co/nftmint/cidutil"
)

// NamedStore associates a snapshot store with a stable name for error
// reporting.
type NamedStore struct {
	Name  string
	Store SnapshotStore
}

// Replicating mirrors snapshots across backends.
//
// Writes go to every backend in order and stop at the first failure. Reads
// fall back in slice order, so callers MUST supply a fixed order; the first
// backend is the primary.
type Replicating struct {
	Backends []NamedStore
}

var _ SnapshotStore = Replicating{}

var errNoBackends = errors.New("storage: replicating store has no backends")

// PutAll writes data to every backend and returns the CID each reported.
// Any backend disagreeing with the CID of data yields ErrCIDMismatch.
func (r Replicating) PutAll(ctx context.Context, data []byte) (cid.Cid, map[string]cid.Cid, error) {
	if len(r.Backends) == 0 {
		return cid.Undef, nil, errNoBackends
	}
	want, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, nil, err
	}
	out := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		got, err := b.Store.Put(ctx, data)
		if err != nil {
			return cid.Undef, out, &BackendError{Name: b.Name, Err: err}
		}
		out[b.Name] = got
		if !got.Equals(want) {
			return cid.Undef, out, &BackendError{Name: b.Name, Err: ErrCIDMismatch}
		}
	}
	return want, out, nil
}

func (r Replicating) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(ctx, data)
	return id, err
}

func (r Replicating) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	for _, b := range r.Backends {
		out, err := b.Store.Get(ctx, id)
		if err == nil {
			return out, nil
		}
		if !IsNotFound(err) {
			return nil, &BackendError{Name: b.Name, Err: err}
		}
	}
	return nil, ErrNotFound
}

func (r Replicating) Has(ctx context.Context, id cid.Cid) (bool, error) {
	for _, b := range r.Backends {
		ok, err := b.Store.Has(ctx, id)
		if err != nil {
			return false, &BackendError{Name: b.Name, Err: err}
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// SetRef moves name on every backend. The block must already be stored on
// each of them, which Put guarantees.
func (r Replicating) SetRef(ctx context.Context, name string, id cid.Cid) error {
	if len(r.Backends) == 0 {
		return errNoBackends
	}
	for _, b := range r.Backends {
		if err := b.Store.SetRef(ctx, name, id); err != nil {
			return &BackendError{Name: b.Name, Err: err}
		}
	}
	return nil
}

// Ref returns the first backend's value of name, falling back to mirrors
// when the primary never saw it.
func (r Replicating) Ref(ctx context.Context, name string) (cid.Cid, error) {
	for _, b := range r.Backends {
		id, err := b.Store.Ref(ctx, name)
		if err == nil {
			return id, nil
		}
		if !IsNotFound(err) {
			return cid.Undef, &BackendError{Name: b.Name, Err: err}
		}
	}
	return cid.Undef, ErrNotFound
}

// BackendError attributes a failure to one backend of a Replicating store.
type BackendError struct {
	Name string
	Err  error
}

func (e *BackendError) Error() string { return "storage: backend " + e.Name + ": " + e.Err.Error() }

func (e *BackendError) Unwrap() error { return e.Err }
