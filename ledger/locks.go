package ledger

import (
	"context"
	"sync"

	"xdao.co/nftmint/address"
)

// lockTable grants account locks for executing transactions.
//
// Writers are exclusive, readers shared. A transaction's whole lock set is
// taken at once or not at all, so two transactions can never hold halves of
// each other's sets.
type lockTable struct {
	mu      sync.Mutex
	writers map[address.Address]struct{}
	readers map[address.Address]int
	changed chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{
		writers: make(map[address.Address]struct{}),
		readers: make(map[address.Address]int),
		changed: make(chan struct{}),
	}
}

// acquire blocks until every lock is available or ctx is done.
func (l *lockTable) acquire(ctx context.Context, writable, readonly []address.Address) (func(), error) {
	for {
		l.mu.Lock()
		if l.available(writable, readonly) {
			for _, a := range writable {
				l.writers[a] = struct{}{}
			}
			for _, a := range readonly {
				l.readers[a]++
			}
			l.mu.Unlock()
			var once sync.Once
			return func() { once.Do(func() { l.release(writable, readonly) }) }, nil
		}
		wait := l.changed
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

func (l *lockTable) available(writable, readonly []address.Address) bool {
	for _, a := range writable {
		if _, ok := l.writers[a]; ok {
			return false
		}
		if l.readers[a] > 0 {
			return false
		}
	}
	for _, a := range readonly {
		if _, ok := l.writers[a]; ok {
			return false
		}
	}
	return true
}

func (l *lockTable) release(writable, readonly []address.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range writable {
		delete(l.writers, a)
	}
	for _, a := range readonly {
		if l.readers[a] <= 1 {
			delete(l.readers, a)
			continue
		}
		l.readers[a]--
	}
	close(l.changed)
	l.changed = make(chan struct{})
}
