package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/nftmint/cidutil"
	"xdao.co/nftmint/storage"
)

// Store is a directory-backed snapshot store.
//
// Layout:
//
//	<root>/blocks/<cid[:2]>/<cid>   immutable, mode 0444
//	<root>/refs/<name>              cid string, replaced atomically
type Store struct {
	root string
}

var _ storage.SnapshotStore = (*Store)(nil)

// New opens (creating if needed) a store rooted at root.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	for _, dir := range []string{filepath.Join(root, "blocks"), filepath.Join(root, "refs")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	id, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}

	path := s.blockPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if !os.IsExist(err) {
			return cid.Undef, err
		}
		existing, rerr := os.ReadFile(path)
		if rerr != nil || !bytes.Equal(existing, data) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := os.ReadFile(s.blockPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if !cidutil.Matches(id, b) {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (s *Store) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !id.Defined() {
		return false, nil
	}
	_, err := os.Stat(s.blockPath(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// SetRef points name at id. The block must already be stored.
func (s *Store) SetRef(ctx context.Context, name string, id cid.Cid) error {
	if err := storage.CheckRefName(name); err != nil {
		return err
	}
	ok, err := s.Has(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("localfs: ref %q: %w", name, storage.ErrNotFound)
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "refs"), ".tmp-"+name+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(id.String() + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.refPath(name))
}

func (s *Store) Ref(ctx context.Context, name string) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	if err := storage.CheckRefName(name); err != nil {
		return cid.Undef, err
	}
	b, err := os.ReadFile(s.refPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return cid.Undef, storage.ErrNotFound
		}
		return cid.Undef, err
	}
	id, err := cid.Decode(strings.TrimSpace(string(b)))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: ref %q: %v", storage.ErrInvalidCID, name, err)
	}
	return id, nil
}

func (s *Store) blockPath(id cid.Cid) string {
	k := id.String()
	if len(k) < 2 {
		return filepath.Join(s.root, "blocks", k)
	}
	return filepath.Join(s.root, "blocks", k[:2], k)
}

func (s *Store) refPath(name string) string {
	return filepath.Join(s.root, "refs", name)
}
